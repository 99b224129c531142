package karaoke

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// WordState is the highlight phase of a single word at some audio time.
type WordState int

const (
	WordPending WordState = iota
	WordActive
	WordComplete
)

func (s WordState) String() string {
	switch s {
	case WordPending:
		return "pending"
	case WordActive:
		return "active"
	case WordComplete:
		return "complete"
	}
	return fmt.Sprintf("WordState(%d)", int(s))
}

// Transport is the audio handle owned by a controller. CurrentTime is in
// seconds of audio playback.
type Transport interface {
	Play(from float64) error
	Pause() error
	CurrentTime() float64
	Ended() bool
}

// Surface is the rendered slice markup the controller paints highlight state
// onto. Attached turning false means the page holding the markup went away;
// the controller treats that as a silent stop, not an error.
type Surface interface {
	InitSlice(sl Slice, words []WordRange) error
	SetWord(wordIndex int, state WordState, ratio float64)
	Reset()
	Attached() bool
}

// PlaybackState records where a paused cross-page playback should continue.
type PlaybackState struct {
	ResumeWordIndex    int
	ResumeTime         float64
	HasResume          bool
	WaitingForNextPage bool
}

// Controller drives per-word highlighting for one Source across its slices.
// It owns the audio transport and the playback state; all highlight
// decisions derive from transport time so scrubbing works for free.
type Controller struct {
	src       *Source
	slices    []Slice
	transport Transport
	surface   Surface
	log       *zap.Logger

	frameInterval   time.Duration
	maxInitAttempts int

	mu      sync.Mutex
	state   PlaybackState
	current int // active slice index, -1 when idle
	inited  map[int]bool
	cancel  context.CancelFunc
}

// NewController wires a controller for one source. frameInterval is the
// progress loop cadence, maxInitAttempts bounds markup initialization
// retries.
func NewController(src *Source, slices []Slice, tr Transport, surf Surface, frameInterval time.Duration, maxInitAttempts int, log *zap.Logger) *Controller {
	return &Controller{
		src:             src,
		slices:          slices,
		transport:       tr,
		surface:         surf,
		log:             log,
		frameInterval:   frameInterval,
		maxInitAttempts: maxInitAttempts,
		current:         -1,
		inited:          make(map[int]bool),
	}
}

// Play starts (or resumes) playback of the given slice and launches the
// progress loop. Slice markup is initialized once; failed initialization is
// retried on the next frame up to the configured attempt limit before
// failing terminally. Audio starts from zero unless resume state targets
// this slice.
func (c *Controller) Play(ctx context.Context, sliceIndex int) error {
	if sliceIndex < 0 || sliceIndex >= len(c.slices) {
		return fmt.Errorf("karaoke %s: no slice %d", c.src.ID, sliceIndex)
	}

	c.mu.Lock()
	c.stopLoopLocked()
	c.mu.Unlock()

	// retried with sleeps in between, must not hold the state lock
	if err := c.initSlice(sliceIndex); err != nil {
		return err
	}

	c.mu.Lock()
	from := 0.0
	if c.state.HasResume && c.sliceOfWord(c.state.ResumeWordIndex) == sliceIndex {
		from = c.state.ResumeTime
	}
	c.current = sliceIndex

	loopCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()

	if err := c.transport.Play(from); err != nil {
		return fmt.Errorf("karaoke %s: %w", c.src.ID, err)
	}

	go c.loop(loopCtx)
	return nil
}

// OnPageEnter is the navigation hook: when a cross-page pause is waiting and
// its resume word lives in the entered slice, playback continues from the
// recorded time. Otherwise nothing happens.
func (c *Controller) OnPageEnter(ctx context.Context, sliceIndex int) error {
	c.mu.Lock()
	waiting := c.state.WaitingForNextPage && c.sliceOfWord(c.state.ResumeWordIndex) == sliceIndex
	c.mu.Unlock()
	if !waiting {
		return nil
	}
	return c.Play(ctx, sliceIndex)
}

// Pause stops audio and the progress loop keeping all playback state.
func (c *Controller) Pause() {
	c.mu.Lock()
	c.stopLoopLocked()
	c.mu.Unlock()
	_ = c.transport.Pause()
}

// Stop cancels the progress loop without touching audio or highlight state.
func (c *Controller) Stop() {
	c.mu.Lock()
	c.stopLoopLocked()
	c.current = -1
	c.mu.Unlock()
}

// Dispose releases the controller: loop cancelled, audio paused, highlight
// and resume state cleared.
func (c *Controller) Dispose() {
	c.mu.Lock()
	c.stopLoopLocked()
	c.current = -1
	c.state = PlaybackState{}
	c.mu.Unlock()
	_ = c.transport.Pause()
	c.surface.Reset()
}

// State returns a copy of the playback state.
func (c *Controller) State() PlaybackState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) loop(ctx context.Context) {
	ticker := time.NewTicker(c.frameInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !c.Advance(c.transport.CurrentTime()) {
				return
			}
		}
	}
}

// Advance applies one frame of highlight state for audio time t and reports
// whether the loop should keep running. It is the whole per-frame logic:
// word fill ratios, cross-page boundary pause and end-of-playback reset.
func (c *Controller) Advance(t float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.current < 0 {
		return false
	}
	if !c.surface.Attached() {
		// markup disappeared mid-loop, stop silently
		c.stopLoopLocked()
		c.current = -1
		return false
	}

	// a resume is considered consumed only once playback moves past it,
	// rapid back-and-forth navigation before that keeps the state intact
	if c.state.WaitingForNextPage &&
		c.sliceOfWord(c.state.ResumeWordIndex) == c.current &&
		t > c.state.ResumeTime {
		c.state = PlaybackState{}
	}

	words := c.src.WordsIn(c.slices[c.current])
	for _, w := range words {
		switch {
		case t < w.Start:
			c.surface.SetWord(w.WordIndex, WordPending, 0)
		case t >= w.End:
			c.surface.SetWord(w.WordIndex, WordComplete, 1)
		default:
			ratio := (t - w.Start) / (w.End - w.Start)
			c.surface.SetWord(w.WordIndex, WordActive, clamp01(ratio))
		}
	}
	// the ended check must not depend on the slice carrying timed words:
	// trailing words may be untimed and still end playback
	atLastWord := len(words) > 0 && t >= words[len(words)-1].End
	if c.transport.Ended() || (c.current == len(c.slices)-1 && atLastWord) {
		// full completion resets highlighting everywhere and clears resume
		c.stopLoopLocked()
		c.current = -1
		c.state = PlaybackState{}
		c.surface.Reset()
		return false
	}
	if len(words) == 0 {
		return true
	}

	last := words[len(words)-1]
	if c.current < len(c.slices)-1 && t >= last.End {
		_ = c.transport.Pause()
		next, ok := c.src.WordAfter(c.slices[c.current].EndChar)
		if !ok {
			next = WordRange{WordIndex: last.WordIndex + 1, Start: last.End}
		}
		c.state = PlaybackState{
			ResumeWordIndex:    next.WordIndex,
			ResumeTime:         next.Start,
			HasResume:          true,
			WaitingForNextPage: true,
		}
		c.stopLoopLocked()
		c.current = -1
		return false
	}
	return true
}

func (c *Controller) initSlice(sliceIndex int) error {
	c.mu.Lock()
	done := c.inited[sliceIndex]
	c.mu.Unlock()
	if done {
		return nil
	}
	sl := c.slices[sliceIndex]
	words := c.src.WordsIn(sl)

	var err error
	for attempt := 1; attempt <= c.maxInitAttempts; attempt++ {
		if err = c.surface.InitSlice(sl, words); err == nil {
			c.mu.Lock()
			c.inited[sliceIndex] = true
			c.mu.Unlock()
			return nil
		}
		c.log.Debug("Karaoke slice markup not ready",
			zap.String("id", c.src.ID), zap.Int("slice", sliceIndex), zap.Int("attempt", attempt))
		time.Sleep(c.frameInterval)
	}
	return fmt.Errorf("karaoke %s: unable to initialize slice %d markup: %w", c.src.ID, sliceIndex, err)
}

func (c *Controller) stopLoopLocked() {
	if c.cancel != nil {
		c.cancel()
		c.cancel = nil
	}
}

// sliceOfWord returns the index of the slice containing the word, -1 when
// the word is unknown.
func (c *Controller) sliceOfWord(wordIndex int) int {
	for _, w := range c.src.Words() {
		if w.WordIndex != wordIndex {
			continue
		}
		for i, sl := range c.slices {
			if w.CharStart >= sl.StartChar && w.CharStart < sl.EndChar {
				return i
			}
		}
	}
	return -1
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
