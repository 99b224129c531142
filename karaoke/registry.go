package karaoke

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

// Registry owns playback controllers keyed by karaoke id. Controllers are
// created lazily on first use and live until explicitly disposed.
type Registry struct {
	frameInterval   time.Duration
	maxInitAttempts int
	log             *zap.Logger

	mu          sync.Mutex
	controllers map[string]*Controller
}

func NewRegistry(frameInterval time.Duration, maxInitAttempts int, log *zap.Logger) *Registry {
	return &Registry{
		frameInterval:   frameInterval,
		maxInitAttempts: maxInitAttempts,
		log:             log,
		controllers:     make(map[string]*Controller),
	}
}

// Obtain returns the controller for src, constructing it on first call. The
// transport and surface arguments are only used at construction time.
func (r *Registry) Obtain(src *Source, slices []Slice, tr Transport, surf Surface) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.controllers[src.ID]; ok {
		return c
	}
	c := NewController(src, slices, tr, surf, r.frameInterval, r.maxInitAttempts, r.log)
	r.controllers[src.ID] = c
	return c
}

// Get returns an already constructed controller.
func (r *Registry) Get(id string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.controllers[id]
	return c, ok
}

// Dispose tears down and forgets the controller for id.
func (r *Registry) Dispose(id string) {
	r.mu.Lock()
	c, ok := r.controllers[id]
	delete(r.controllers, id)
	r.mu.Unlock()
	if ok {
		c.Dispose()
	}
}

// DisposeAll tears down every controller, used when a new pagination run
// supersedes the content the controllers were built for.
func (r *Registry) DisposeAll() {
	r.mu.Lock()
	all := r.controllers
	r.controllers = make(map[string]*Controller)
	r.mu.Unlock()
	for _, c := range all {
		c.Dispose()
	}
}
