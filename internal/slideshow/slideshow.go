package slideshow

import (
	"strings"
	"sync"
	"time"

	"memorial-guestbook/internal/entity"
	"memorial-guestbook/pkg/cache"
)

const (
	// Images advance on their own; videos advance when playback ends.
	DefaultImageInterval = 2 * time.Second

	// The media list is refetched in the background at this cadence so a
	// running slideshow picks up new tributes without restarting.
	DefaultRefreshInterval = 60 * time.Second

	// Controls fade after a short idle period.
	DefaultControlsTimeout = 3 * time.Second
)

// Fetcher retrieves the full visible media list.
type Fetcher interface {
	FetchAllMedia() ([]entity.MediaWithAuthor, error)
}

// Fullscreener toggles the display surface. Implementations that cannot
// do fullscreen just return nil.
type Fullscreener interface {
	Enter() error
	Exit() error
}

// Key is an abstract input event; the caller maps real keyboard input
// onto these.
type Key int

const (
	KeyNone Key = iota
	KeyNext
	KeyPrevious
	KeyPause
	KeyFullscreen
	KeyEscape
)

// Config carries the tunables. Zero values take the defaults above.
type Config struct {
	ImageInterval   time.Duration
	RefreshInterval time.Duration
	ControlsTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.ImageInterval <= 0 {
		c.ImageInterval = DefaultImageInterval
	}
	if c.RefreshInterval <= 0 {
		c.RefreshInterval = DefaultRefreshInterval
	}
	if c.ControlsTimeout <= 0 {
		c.ControlsTimeout = DefaultControlsTimeout
	}
	return c
}

// Controller runs the slideshow: one item on screen at a time, a single
// advance timer, periodic list refresh. Safe for concurrent use.
type Controller struct {
	cfg        Config
	fetcher    Fetcher
	fullscreen Fullscreener
	cache      *cache.Cache
	onChange   func()

	mu              sync.Mutex
	items           []entity.MediaWithAuthor
	index           int
	paused          bool
	controlsVisible bool
	inFullscreen    bool
	closed          bool

	advanceTimer *time.Timer
	advanceGen   uint64
	hideTimer    *time.Timer
	stopRefresh  chan struct{}
}

// New creates a stopped controller. cache and fullscreen may be nil.
func New(fetcher Fetcher, fullscreen Fullscreener, c *cache.Cache, cfg Config) *Controller {
	return &Controller{
		cfg:        cfg.withDefaults(),
		fetcher:    fetcher,
		fullscreen: fullscreen,
		cache:      c,
	}
}

// OnChange registers a callback fired after every visible state change.
// Must be set before Start.
func (s *Controller) OnChange(fn func()) {
	s.onChange = fn
}

// Start loads the media list and begins advancing. A failed initial
// fetch falls back to the cached list when one exists; an empty result
// is not an error, the slideshow just reports Empty.
func (s *Controller) Start() error {
	items, err := s.fetcher.FetchAllMedia()
	if err != nil {
		if s.cache != nil {
			var cached []entity.MediaWithAuthor
			if s.cache.Get(cache.KeySlideshowMedia, &cached) {
				items = cached
				err = nil
			}
		}
		if err != nil {
			return err
		}
	} else if s.cache != nil {
		s.cache.Set(cache.KeySlideshowMedia, items)
	}

	s.mu.Lock()
	s.items = items
	s.index = 0
	s.stopRefresh = make(chan struct{})
	s.scheduleAdvanceLocked()
	s.mu.Unlock()

	go s.refreshLoop()

	s.notify()
	return nil
}

func (s *Controller) refreshLoop() {
	ticker := time.NewTicker(s.cfg.RefreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			s.refresh()
		case <-s.stopRefresh:
			return
		}
	}
}

// refresh refetches the list and swaps it in only when it actually
// changed, so an unchanged wall never disturbs the current position.
// When the list does change, the index is clamped right away.
func (s *Controller) refresh() {
	items, err := s.fetcher.FetchAllMedia()
	if err != nil {
		return
	}
	if s.cache != nil {
		s.cache.Set(cache.KeySlideshowMedia, items)
	}

	s.mu.Lock()
	if s.closed || urlSignature(items) == urlSignature(s.items) {
		s.mu.Unlock()
		return
	}

	s.items = items
	if s.index >= len(s.items) {
		s.index = 0
	}
	s.scheduleAdvanceLocked()
	s.mu.Unlock()

	s.notify()
}

func urlSignature(items []entity.MediaWithAuthor) string {
	urls := make([]string, len(items))
	for i, item := range items {
		urls[i] = item.URL
	}
	return strings.Join(urls, "\n")
}

// scheduleAdvanceLocked owns the single advance timer slot: whatever was
// pending is cancelled, and a new timer is armed only for images. The
// generation counter invalidates a timer that already fired and is
// waiting on the mutex, since Stop cannot cancel those.
func (s *Controller) scheduleAdvanceLocked() {
	s.advanceGen++
	if s.advanceTimer != nil {
		s.advanceTimer.Stop()
		s.advanceTimer = nil
	}
	if s.closed || s.paused || len(s.items) == 0 {
		return
	}
	if s.items[s.index].Type != entity.MediaTypeImage {
		return
	}
	gen := s.advanceGen
	s.advanceTimer = time.AfterFunc(s.cfg.ImageInterval, func() { s.advance(gen) })
}

func (s *Controller) advance(gen uint64) {
	s.mu.Lock()
	if s.closed || gen != s.advanceGen || len(s.items) == 0 {
		s.mu.Unlock()
		return
	}
	s.index = (s.index + 1) % len(s.items)
	s.scheduleAdvanceLocked()
	s.mu.Unlock()

	s.notify()
}

// Next moves forward one item, wrapping at the end.
func (s *Controller) Next() {
	s.step(1)
}

// Previous moves back one item, wrapping at the start.
func (s *Controller) Previous() {
	s.step(-1)
}

func (s *Controller) step(delta int) {
	s.mu.Lock()
	if s.closed || len(s.items) == 0 {
		s.mu.Unlock()
		return
	}
	s.index = (s.index + delta + len(s.items)) % len(s.items)
	s.scheduleAdvanceLocked()
	s.mu.Unlock()

	s.notify()
}

// VideoEnded advances past the current item if it is a video. Stray
// signals while an image is showing are ignored.
func (s *Controller) VideoEnded() {
	s.mu.Lock()
	if s.closed || len(s.items) == 0 || s.items[s.index].Type != entity.MediaTypeVideo {
		s.mu.Unlock()
		return
	}
	s.index = (s.index + 1) % len(s.items)
	s.scheduleAdvanceLocked()
	s.mu.Unlock()

	s.notify()
}

// HandleKey maps an input event onto the slideshow. Any key counts as
// activity and wakes the controls.
func (s *Controller) HandleKey(key Key) {
	s.Activity()

	switch key {
	case KeyNext:
		s.Next()
	case KeyPrevious:
		s.Previous()
	case KeyPause:
		s.TogglePause()
	case KeyFullscreen:
		s.toggleFullscreen()
	case KeyEscape:
		s.exitFullscreen()
	}
}

// TogglePause freezes automatic advancement; manual navigation keeps
// working while paused.
func (s *Controller) TogglePause() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.paused = !s.paused
	s.scheduleAdvanceLocked()
	s.mu.Unlock()

	s.notify()
}

func (s *Controller) Paused() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.paused
}

func (s *Controller) toggleFullscreen() {
	if s.fullscreen == nil {
		return
	}
	s.mu.Lock()
	entering := !s.inFullscreen
	s.inFullscreen = entering
	s.mu.Unlock()

	if entering {
		s.fullscreen.Enter()
	} else {
		s.fullscreen.Exit()
	}
}

func (s *Controller) exitFullscreen() {
	if s.fullscreen == nil {
		return
	}
	s.mu.Lock()
	wasIn := s.inFullscreen
	s.inFullscreen = false
	s.mu.Unlock()

	if wasIn {
		s.fullscreen.Exit()
	}
}

// Activity shows the controls and restarts the idle timer that hides
// them again.
func (s *Controller) Activity() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.controlsVisible = true
	if s.hideTimer != nil {
		s.hideTimer.Stop()
	}
	s.hideTimer = time.AfterFunc(s.cfg.ControlsTimeout, s.hideControls)
	s.mu.Unlock()

	s.notify()
}

func (s *Controller) hideControls() {
	s.mu.Lock()
	if s.closed || !s.controlsVisible {
		s.mu.Unlock()
		return
	}
	s.controlsVisible = false
	s.mu.Unlock()

	s.notify()
}

// Current returns the item on screen. ok is false when the show is empty.
func (s *Controller) Current() (entity.MediaWithAuthor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.items) == 0 {
		return entity.MediaWithAuthor{}, false
	}
	return s.items[s.index], true
}

func (s *Controller) Index() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.index
}

func (s *Controller) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Controller) Empty() bool {
	return s.Len() == 0
}

func (s *Controller) ControlsVisible() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.controlsVisible
}

// Close stops every timer and the refresh loop. The controller cannot
// be restarted.
func (s *Controller) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	if s.advanceTimer != nil {
		s.advanceTimer.Stop()
		s.advanceTimer = nil
	}
	if s.hideTimer != nil {
		s.hideTimer.Stop()
		s.hideTimer = nil
	}
	if s.stopRefresh != nil {
		close(s.stopRefresh)
	}
	s.mu.Unlock()

	if s.fullscreen != nil {
		s.fullscreen.Exit()
	}
}

func (s *Controller) notify() {
	if s.onChange != nil {
		s.onChange()
	}
}
