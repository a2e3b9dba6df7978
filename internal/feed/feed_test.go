package feed

import (
	"encoding/json"
	"fmt"
	"sync"
	"testing"
	"time"

	"memorial-guestbook/internal/entity"
	"memorial-guestbook/pkg/cache"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mapStorage struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMapStorage() *mapStorage {
	return &mapStorage{data: map[string][]byte{}}
}

func (s *mapStorage) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	return v, ok
}

func (s *mapStorage) Set(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = value
	return nil
}

func (s *mapStorage) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data, key)
}

func (s *mapStorage) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

// fakeSource serves pages out of a fixed post list and counts calls.
type fakeSource struct {
	mu    sync.Mutex
	posts []*entity.Post
	calls int
	err   error
}

func newFakeSource(n int) *fakeSource {
	s := &fakeSource{}
	for i := 0; i < n; i++ {
		s.posts = append(s.posts, &entity.Post{ID: fmt.Sprintf("post-%03d", i)})
	}
	return s
}

func (s *fakeSource) ListPosts(limit, offset int) (*Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	end := offset + limit
	if offset > len(s.posts) {
		offset = len(s.posts)
	}
	if end > len(s.posts) {
		end = len(s.posts)
	}
	return &Page{Posts: s.posts[offset:end], TotalCount: int64(len(s.posts))}, nil
}

func (s *fakeSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func TestLoad_FirstPage(t *testing.T) {
	source := newFakeSource(30)
	c := NewController(source, nil)

	require.NoError(t, c.Load())

	posts, total := c.Snapshot()
	assert.Len(t, posts, PageSize)
	assert.Equal(t, int64(30), total)
	assert.True(t, c.HasMore())
}

func TestLoad_ServedFromFreshCache(t *testing.T) {
	storage := newMapStorage()
	source := newFakeSource(30)

	first := NewController(source, cache.New(storage))
	require.NoError(t, first.Load())
	assert.Equal(t, 1, source.callCount())

	// A second controller over the same storage starts without a fetch.
	second := NewController(source, cache.New(storage))
	require.NoError(t, second.Load())
	assert.Equal(t, 1, source.callCount())

	posts, total := second.Snapshot()
	assert.Len(t, posts, PageSize)
	assert.Equal(t, int64(30), total)
}

func TestLoad_StaleCacheRefetches(t *testing.T) {
	storage := newMapStorage()
	source := newFakeSource(5)

	// Plant an entry written long ago.
	stale := Page{Posts: []*entity.Post{{ID: "stale"}}, TotalCount: 1}
	raw, err := json.Marshal(stale)
	require.NoError(t, err)
	entry, err := json.Marshal(cache.Entry{
		Data:      raw,
		Timestamp: time.Now().Add(-10 * time.Minute).UnixMilli(),
	})
	require.NoError(t, err)
	require.NoError(t, storage.Set(cache.Prefix+cache.KeyPostFeed, entry))

	c := NewController(source, cache.New(storage))
	require.NoError(t, c.Load())
	assert.Equal(t, 1, source.callCount())

	posts, _ := c.Snapshot()
	require.Len(t, posts, 5)
	assert.NotEqual(t, "stale", posts[0].ID)
}

func TestLoad_FetchFailureFallsBackToStaleCache(t *testing.T) {
	storage := newMapStorage()
	source := newFakeSource(30)

	first := NewController(source, cache.New(storage))
	require.NoError(t, first.Load())

	source.mu.Lock()
	source.err = assert.AnError
	source.mu.Unlock()

	second := NewController(source, cache.New(storage))
	// Force past the freshness check straight into the fetch.
	require.NoError(t, second.Refresh())

	posts, total := second.Snapshot()
	assert.Len(t, posts, PageSize)
	assert.Equal(t, int64(30), total)
}

func TestLoadMore_AppendsAndStops(t *testing.T) {
	source := newFakeSource(30)
	c := NewController(source, nil)
	require.NoError(t, c.Load())

	require.NoError(t, c.LoadMore())
	posts, _ := c.Snapshot()
	assert.Len(t, posts, 24)
	assert.True(t, c.HasMore())

	require.NoError(t, c.LoadMore())
	posts, _ = c.Snapshot()
	assert.Len(t, posts, 30)
	assert.False(t, c.HasMore())

	// Nothing left: no further fetch happens.
	before := source.callCount()
	require.NoError(t, c.LoadMore())
	assert.Equal(t, before, source.callCount())
}

func TestLoadMore_WritesMergedListToCache(t *testing.T) {
	storage := newMapStorage()
	source := newFakeSource(30)

	first := NewController(source, cache.New(storage))
	require.NoError(t, first.Load())
	require.NoError(t, first.LoadMore())

	// A controller restarted within the TTL must see every loaded page,
	// not just the first one.
	second := NewController(source, cache.New(storage))
	require.NoError(t, second.Load())

	posts, total := second.Snapshot()
	assert.Len(t, posts, 24)
	assert.Equal(t, int64(30), total)
	assert.Equal(t, 2, source.callCount())
}

func TestLoadMore_DeduplicatesOverlap(t *testing.T) {
	source := newFakeSource(30)
	c := NewController(source, nil)
	require.NoError(t, c.Load())

	// A post created between fetches shifts the pages so they overlap.
	source.mu.Lock()
	source.posts = append([]*entity.Post{{ID: "brand-new"}}, source.posts...)
	source.mu.Unlock()

	require.NoError(t, c.LoadMore())

	posts, _ := c.Snapshot()
	ids := map[string]int{}
	for _, p := range posts {
		ids[p.ID]++
	}
	for id, n := range ids {
		assert.Equal(t, 1, n, "post %s appears %d times", id, n)
	}
}

// gatedSource blocks inside ListPosts until released.
type gatedSource struct {
	inner   *fakeSource
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSource) ListPosts(limit, offset int) (*Page, error) {
	if offset > 0 {
		g.entered <- struct{}{}
		<-g.release
	}
	return g.inner.ListPosts(limit, offset)
}

func TestLoadMore_SingleFlight(t *testing.T) {
	gated := &gatedSource{
		inner:   newFakeSource(30),
		entered: make(chan struct{}),
		release: make(chan struct{}),
	}
	c := NewController(gated, nil)
	require.NoError(t, c.Load())

	done := make(chan error, 1)
	go func() { done <- c.LoadMore() }()
	<-gated.entered

	// While the first fetch is parked, a second call must bail out.
	require.NoError(t, c.LoadMore())

	close(gated.release)
	require.NoError(t, <-done)

	posts, _ := c.Snapshot()
	assert.Len(t, posts, 24)
	assert.Equal(t, 2, gated.inner.callCount())
}
