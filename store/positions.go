// Package store persists reading positions so a rebuilt page list can be
// reopened where the reader left off.
package store

import (
	"fmt"
	"sync"

	"go.uber.org/zap"
	"zombiezen.com/go/sqlite"
	"zombiezen.com/go/sqlite/sqlitex"
)

// Position is the last page a reader was on, keyed by chapter so it survives
// repagination with different geometry.
type Position struct {
	ChapterID string
	PageIndex int
}

// Positions is a sqlite-backed position store. A single connection guarded
// by a mutex is plenty, reads and writes are rare and tiny.
type Positions struct {
	mu   sync.Mutex
	conn *sqlite.Conn
	log  *zap.Logger
}

const schema = `
CREATE TABLE IF NOT EXISTS positions (
	book       TEXT PRIMARY KEY,
	chapter_id TEXT NOT NULL,
	page_index INTEGER NOT NULL,
	updated_at TEXT NOT NULL DEFAULT (datetime('now'))
);`

// Open creates or opens the position database at path. An empty path opens
// an in-memory store, positions then live as long as the process.
func Open(path string, log *zap.Logger) (*Positions, error) {
	flags := sqlite.OpenReadWrite | sqlite.OpenCreate
	if len(path) == 0 {
		path = ":memory:"
		flags |= sqlite.OpenMemory
	}
	conn, err := sqlite.OpenConn(path, flags)
	if err != nil {
		return nil, fmt.Errorf("unable to open position store %q: %w", path, err)
	}
	if err := sqlitex.ExecuteTransient(conn, schema, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("unable to prepare position store schema: %w", err)
	}
	return &Positions{conn: conn, log: log}, nil
}

// Save upserts the position for a book.
func (p *Positions) Save(bookID string, pos Position) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := sqlitex.Execute(p.conn, `
INSERT INTO positions (book, chapter_id, page_index, updated_at)
VALUES (?, ?, ?, datetime('now'))
ON CONFLICT (book) DO UPDATE SET
	chapter_id = excluded.chapter_id,
	page_index = excluded.page_index,
	updated_at = excluded.updated_at;`,
		&sqlitex.ExecOptions{Args: []any{bookID, pos.ChapterID, pos.PageIndex}})
	if err != nil {
		return fmt.Errorf("unable to save position for %q: %w", bookID, err)
	}
	p.log.Debug("Saved reading position",
		zap.String("book", bookID), zap.String("chapter", pos.ChapterID), zap.Int("page", pos.PageIndex))
	return nil
}

// Load returns the stored position for a book, reporting whether one exists.
func (p *Positions) Load(bookID string) (Position, bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var (
		pos   Position
		found bool
	)
	err := sqlitex.Execute(p.conn,
		`SELECT chapter_id, page_index FROM positions WHERE book = ?;`,
		&sqlitex.ExecOptions{
			Args: []any{bookID},
			ResultFunc: func(stmt *sqlite.Stmt) error {
				pos.ChapterID = stmt.ColumnText(0)
				pos.PageIndex = stmt.ColumnInt(1)
				found = true
				return nil
			},
		})
	if err != nil {
		return Position{}, false, fmt.Errorf("unable to load position for %q: %w", bookID, err)
	}
	return pos, found, nil
}

// Forget removes the stored position for a book.
func (p *Positions) Forget(bookID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := sqlitex.Execute(p.conn, `DELETE FROM positions WHERE book = ?;`,
		&sqlitex.ExecOptions{Args: []any{bookID}})
	if err != nil {
		return fmt.Errorf("unable to forget position for %q: %w", bookID, err)
	}
	return nil
}

func (p *Positions) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.conn.Close()
}
