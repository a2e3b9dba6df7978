package slideshow

import (
	"sync"
	"testing"
	"time"

	"memorial-guestbook/internal/entity"
	"memorial-guestbook/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeFetcher struct {
	mu    sync.Mutex
	items []entity.MediaWithAuthor
	err   error
}

func (f *fakeFetcher) FetchAllMedia() ([]entity.MediaWithAuthor, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	out := make([]entity.MediaWithAuthor, len(f.items))
	copy(out, f.items)
	return out, nil
}

func (f *fakeFetcher) setItems(items []entity.MediaWithAuthor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items = items
}

type fakeFullscreen struct {
	mu      sync.Mutex
	entered int
	exited  int
}

func (f *fakeFullscreen) Enter() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entered++
	return nil
}

func (f *fakeFullscreen) Exit() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exited++
	return nil
}

type memStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemStorage() *memStorage {
	return &memStorage{data: map[string][]byte{}}
}

func (s *memStorage) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *memStorage) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *memStorage) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

func (s *memStorage) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

func images(urls ...string) []entity.MediaWithAuthor {
	items := make([]entity.MediaWithAuthor, len(urls))
	for i, u := range urls {
		items[i] = entity.MediaWithAuthor{URL: u, Type: entity.MediaTypeImage}
	}
	return items
}

// manualConfig keeps every timer far away so only explicit calls move
// the slideshow.
var manualConfig = Config{
	ImageInterval:   time.Hour,
	RefreshInterval: time.Hour,
	ControlsTimeout: time.Hour,
}

func eventually(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	assert.Eventually(t, cond, 2*time.Second, 5*time.Millisecond, msg)
}

func TestStart_AdvancesThroughImages(t *testing.T) {
	fetcher := &fakeFetcher{items: images("a", "b", "c")}
	s := New(fetcher, nil, nil, Config{ImageInterval: 20 * time.Millisecond, RefreshInterval: time.Hour, ControlsTimeout: time.Hour})
	defer s.Close()

	require.NoError(t, s.Start())
	assert.Equal(t, 0, s.Index())

	eventually(t, func() bool { return s.Index() == 2 }, "show should reach the last image")
	eventually(t, func() bool { return s.Index() == 0 }, "show should wrap around")
}

func TestVideo_HoldsUntilEnded(t *testing.T) {
	fetcher := &fakeFetcher{items: []entity.MediaWithAuthor{
		{URL: "v", Type: entity.MediaTypeVideo},
		{URL: "a", Type: entity.MediaTypeImage},
	}}
	s := New(fetcher, nil, nil, Config{ImageInterval: 15 * time.Millisecond, RefreshInterval: time.Hour, ControlsTimeout: time.Hour})
	defer s.Close()

	require.NoError(t, s.Start())

	// No advance timer runs for a video.
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 0, s.Index())

	s.VideoEnded()
	assert.Equal(t, 1, s.Index())

	// A second end signal while an image shows changes nothing.
	s.VideoEnded()
	assert.Equal(t, 1, s.Index())
}

func TestNextPrevious_Circular(t *testing.T) {
	fetcher := &fakeFetcher{items: images("a", "b", "c")}
	s := New(fetcher, nil, nil, manualConfig)
	defer s.Close()
	require.NoError(t, s.Start())

	s.Previous()
	assert.Equal(t, 2, s.Index())

	s.Next()
	assert.Equal(t, 0, s.Index())

	s.Next()
	s.Next()
	s.Next()
	assert.Equal(t, 0, s.Index())
}

func TestRefresh_KeepsPositionWhenUnchanged(t *testing.T) {
	fetcher := &fakeFetcher{items: images("a", "b", "c")}
	s := New(fetcher, nil, nil, Config{ImageInterval: time.Hour, RefreshInterval: 15 * time.Millisecond, ControlsTimeout: time.Hour})
	defer s.Close()
	require.NoError(t, s.Start())

	s.Next()
	assert.Equal(t, 1, s.Index())

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, 1, s.Index())
	assert.Equal(t, 3, s.Len())
}

func TestRefresh_ClampsIndexOnShrunkList(t *testing.T) {
	fetcher := &fakeFetcher{items: images("a", "b", "c")}
	s := New(fetcher, nil, nil, Config{ImageInterval: time.Hour, RefreshInterval: 15 * time.Millisecond, ControlsTimeout: time.Hour})
	defer s.Close()
	require.NoError(t, s.Start())

	s.Next()
	s.Next()
	assert.Equal(t, 2, s.Index())

	fetcher.setItems(images("a"))

	eventually(t, func() bool { return s.Len() == 1 }, "refresh should pick up the shrunk list")
	assert.Equal(t, 0, s.Index())
}

func TestHandleKey_NavigationAndControls(t *testing.T) {
	fetcher := &fakeFetcher{items: images("a", "b")}
	s := New(fetcher, nil, nil, Config{ImageInterval: time.Hour, RefreshInterval: time.Hour, ControlsTimeout: 20 * time.Millisecond})
	defer s.Close()
	require.NoError(t, s.Start())

	assert.False(t, s.ControlsVisible())

	s.HandleKey(KeyNext)
	assert.Equal(t, 1, s.Index())
	assert.True(t, s.ControlsVisible())

	eventually(t, func() bool { return !s.ControlsVisible() }, "controls should hide after the idle timeout")

	s.HandleKey(KeyPrevious)
	assert.Equal(t, 0, s.Index())
	assert.True(t, s.ControlsVisible())
}

func TestPause_StopsAutoAdvance(t *testing.T) {
	fetcher := &fakeFetcher{items: images("a", "b", "c")}
	s := New(fetcher, nil, nil, Config{ImageInterval: 15 * time.Millisecond, RefreshInterval: time.Hour, ControlsTimeout: time.Hour})
	defer s.Close()
	require.NoError(t, s.Start())

	s.HandleKey(KeyPause)
	require.True(t, s.Paused())
	frozen := s.Index()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, frozen, s.Index())

	// Manual navigation still works while paused.
	s.Next()
	assert.Equal(t, (frozen+1)%3, s.Index())
	stillFrozen := s.Index()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, stillFrozen, s.Index())

	s.HandleKey(KeyPause)
	require.False(t, s.Paused())
	eventually(t, func() bool { return s.Index() != stillFrozen }, "resume should restart the advance timer")
}

func TestAdvance_StaleTimerIsIgnored(t *testing.T) {
	fetcher := &fakeFetcher{items: images("a", "b", "c")}
	s := New(fetcher, nil, nil, manualConfig)
	defer s.Close()
	require.NoError(t, s.Start())

	s.mu.Lock()
	stale := s.advanceGen
	s.mu.Unlock()

	// A manual step reschedules, so a timer from before it that fired
	// while the step held the mutex must not move the show again.
	s.Next()
	require.Equal(t, 1, s.Index())

	s.advance(stale)
	assert.Equal(t, 1, s.Index())

	s.mu.Lock()
	current := s.advanceGen
	s.mu.Unlock()
	s.advance(current)
	assert.Equal(t, 2, s.Index())
}

func TestHandleKey_Fullscreen(t *testing.T) {
	fetcher := &fakeFetcher{items: images("a")}
	fs := &fakeFullscreen{}
	s := New(fetcher, fs, nil, manualConfig)
	defer s.Close()
	require.NoError(t, s.Start())

	s.HandleKey(KeyFullscreen)
	fs.mu.Lock()
	assert.Equal(t, 1, fs.entered)
	fs.mu.Unlock()

	s.HandleKey(KeyEscape)
	fs.mu.Lock()
	assert.Equal(t, 1, fs.exited)
	fs.mu.Unlock()

	// Escape outside fullscreen is a no-op.
	s.HandleKey(KeyEscape)
	fs.mu.Lock()
	assert.Equal(t, 1, fs.exited)
	fs.mu.Unlock()
}

func TestStart_FetchFailureFallsBackToCache(t *testing.T) {
	storage := newMemStorage()
	seed := cache.New(storage)
	seed.Set(cache.KeySlideshowMedia, images("cached-a", "cached-b"))

	fetcher := &fakeFetcher{err: assert.AnError}
	s := New(fetcher, nil, cache.New(storage), manualConfig)
	defer s.Close()

	require.NoError(t, s.Start())
	assert.Equal(t, 2, s.Len())

	current, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "cached-a", current.URL)
}

func TestStart_FetchFailureNoCache(t *testing.T) {
	fetcher := &fakeFetcher{err: assert.AnError}
	s := New(fetcher, nil, nil, manualConfig)

	assert.Error(t, s.Start())
}

func TestStart_EmptyList(t *testing.T) {
	fetcher := &fakeFetcher{}
	s := New(fetcher, nil, nil, manualConfig)
	defer s.Close()

	require.NoError(t, s.Start())
	assert.True(t, s.Empty())

	_, ok := s.Current()
	assert.False(t, ok)

	// Navigation on an empty show must not panic.
	s.Next()
	s.Previous()
	s.VideoEnded()
}

func TestClose_StopsAdvancing(t *testing.T) {
	fetcher := &fakeFetcher{items: images("a", "b", "c")}
	s := New(fetcher, nil, nil, Config{ImageInterval: 15 * time.Millisecond, RefreshInterval: time.Hour, ControlsTimeout: time.Hour})
	require.NoError(t, s.Start())

	s.Close()
	frozen := s.Index()

	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, frozen, s.Index())

	// Closing twice is fine.
	s.Close()
}
