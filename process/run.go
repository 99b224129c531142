// Package process implements the paginate command: load a book source,
// measure and paginate it, and write the resulting bundle.
package process

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/language"

	"pager/book"
	"pager/export"
	"pager/measure"
	"pager/paginate"
	"pager/state"
	"pager/store"
)

// dinkusMediaName is where the decorative divider lands in the media set when
// the book does not ship its own.
const dinkusMediaName = "media/dinkus.svg"

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("paginate")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}
	src, err = filepath.Abs(src)
	if err != nil {
		return err
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Mailformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	env.Overwrite = cmd.Bool("overwrite")

	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	cp := cmd.String("force-zip-cp")
	if len(cp) > 0 {
		env.CodePage, err = ianaindex.IANA.Encoding(cp)
		if err != nil {
			log.Warn("Unknown character set specification. Ignoring...", zap.String("charset", cp), zap.Error(err))
			env.CodePage = nil
		} else {
			n, _ := ianaindex.IANA.Name(env.CodePage)
			log.Debug("Forcefully converting all non UTF-8 file names in archives", zap.String("charset", n))
		}
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return processBook(ctx, src, dst, log)
}

// processBook paginates a single book source and writes the bundle. "src" is
// the absolute path of the source file, directory or archive, "dst" the
// destination directory.
func processBook(ctx context.Context, src, dst string, log *zap.Logger) (rerr error) {
	env := state.EnvFromContext(ctx)

	var outputName string

	log.Info("Pagination starting", zap.String("from", src))
	defer func(start time.Time) {
		// NOTE: some of golang graphic processing libraries are not mature
		// enough, if multiple books are being processed we do not want to stop.
		if r := recover(); r != nil {
			log.Error("Pagination ended with panic",
				zap.Any("panic", r), zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName), zap.ByteString("stack", debug.Stack()))
			rerr = fmt.Errorf("pagination panic: %v", r)
		} else {
			log.Info("Pagination completed", zap.Duration("elapsed", time.Since(start)), zap.String("to", outputName))
		}
	}(time.Now())

	b, media, err := book.Load(src, env.CodePage, log)
	if err != nil {
		return fmt.Errorf("unable to load book source (%s): %w", src, err)
	}
	if media == nil {
		media = book.Media{}
	}
	if _, ok := media[dinkusMediaName]; !ok {
		media[dinkusMediaName] = env.DefaultDinkus
	}

	var fontData []byte
	if len(env.Cfg.Layout.FontPath) > 0 {
		if fontData, err = os.ReadFile(env.Cfg.Layout.FontPath); err != nil {
			return fmt.Errorf("unable to read probe font from %q: %w", env.Cfg.Layout.FontPath, err)
		}
	}

	index := measure.NewMediaIndex(log)
	probe, err := measure.NewProbe(fontData, index, log)
	if err != nil {
		return err
	}

	driver := paginate.NewDriver(env.Cfg, probe, index, log)
	res, err := driver.Run(ctx, b, media)
	if err != nil {
		return fmt.Errorf("unable to paginate book (%s): %w", src, err)
	}
	if err := driver.Hyphenate(ctx, res, bookLanguage(b)); err != nil {
		return fmt.Errorf("hyphenation interrupted: %w", err)
	}

	restorePosition(b, src, res, env, log)

	// Determine output file name and path based on input and configuration.
	outputName = export.BuildOutputPath(b, src, dst, env.Cfg.Output, log)

	// Check if output file already exists
	if _, err := os.Stat(outputName); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", outputName)
		}
		log.Warn("Overwriting existing file", zap.String("file", outputName))
		if err = os.Remove(outputName); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	} else if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	if err := export.Write(ctx, outputName, b, res, media, log); err != nil {
		return fmt.Errorf("unable to write bundle: %w", err)
	}

	// Store pagination result for debugging
	if env.Rpt != nil {
		env.Rpt.Store(fmt.Sprintf("result-%s%s", bookID(b, src), filepath.Ext(outputName)), outputName)
		if data, err := json.MarshalIndent(res.Pages, "", "  "); err == nil {
			env.Rpt.StoreData(fmt.Sprintf("pages-%s.json", bookID(b, src)), data)
		}
	}

	return nil
}

// restorePosition maps a previously saved reading position onto the freshly
// rebuilt page list. Pagination never fails because the position store is
// unavailable.
func restorePosition(b *book.Book, src string, res *paginate.Result, env *state.LocalEnv, log *zap.Logger) {
	positions, err := store.Open(env.Cfg.Positions.Path, log)
	if err != nil {
		log.Warn("Position store unavailable", zap.Error(err))
		return
	}
	defer positions.Close()

	id := bookID(b, src)
	pos, found, err := positions.Load(id)
	if err != nil {
		log.Warn("Unable to load reading position", zap.String("book", id), zap.Error(err))
		return
	}
	if !found {
		return
	}

	if i := res.Locate(pos.ChapterID, pos.PageIndex); i >= 0 {
		log.Info("Reading position restored",
			zap.String("book", id), zap.String("chapter", pos.ChapterID), zap.Int("page", pos.PageIndex), zap.Int("global_page", i))
		return
	}

	// geometry or content changed enough that the page is gone, drop back to
	// the start of the chapter
	if i := res.Locate(pos.ChapterID, 0); i >= 0 {
		log.Info("Reading position approximated to chapter start",
			zap.String("book", id), zap.String("chapter", pos.ChapterID), zap.Int("global_page", i))
		if err := positions.Save(id, store.Position{ChapterID: pos.ChapterID, PageIndex: 0}); err != nil {
			log.Warn("Unable to update reading position", zap.String("book", id), zap.Error(err))
		}
		return
	}

	log.Info("Stored reading position no longer maps to any page", zap.String("book", id))
	if err := positions.Forget(id); err != nil {
		log.Warn("Unable to forget reading position", zap.String("book", id), zap.Error(err))
	}
}

func bookID(b *book.Book, src string) string {
	base := filepath.Base(src)
	if len(b.Title) > 0 {
		return b.Title + "|" + base
	}
	return base
}

func bookLanguage(b *book.Book) language.Tag {
	if len(b.Language) == 0 {
		return language.English
	}
	tag, err := language.Parse(b.Language)
	if err != nil {
		return language.English
	}
	return tag
}
