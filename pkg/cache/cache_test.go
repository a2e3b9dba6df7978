package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
)

type fakeStorage struct {
	data map[string][]byte
	full bool
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{data: map[string][]byte{}}
}

func (s *fakeStorage) Get(key string) ([]byte, bool) {
	v, ok := s.data[key]
	return v, ok
}

func (s *fakeStorage) Set(key string, value []byte) error {
	if s.full {
		return errors.New("quota exceeded")
	}
	s.data[key] = value
	return nil
}

func (s *fakeStorage) Delete(key string) { delete(s.data, key) }

func (s *fakeStorage) Keys() []string {
	keys := make([]string, 0, len(s.data))
	for k := range s.data {
		keys = append(keys, k)
	}
	return keys
}

func TestSetGet(t *testing.T) {
	c := New(newFakeStorage())

	c.Set("feed", []string{"a", "b"})

	var got []string
	assert.True(t, c.Get("feed", &got))
	assert.Equal(t, []string{"a", "b"}, got)
}

func TestGet_Missing(t *testing.T) {
	c := New(newFakeStorage())

	var got []string
	assert.False(t, c.Get("missing", &got))
}

func TestGet_CorruptEntryTreatedAsAbsent(t *testing.T) {
	storage := newFakeStorage()
	storage.data[Prefix+"bad"] = []byte("{not json")
	c := New(storage)

	var got map[string]string
	assert.False(t, c.Get("bad", &got))
	_, ok := c.Timestamp("bad")
	assert.False(t, ok)
}

func TestIsValid(t *testing.T) {
	c := New(newFakeStorage())
	base := time.Now()
	c.now = func() time.Time { return base }

	assert.False(t, c.IsValid("k", time.Minute))

	c.Set("k", 42)
	assert.True(t, c.IsValid("k", time.Minute))

	// 59s later: still inside a one minute TTL
	c.now = func() time.Time { return base.Add(59 * time.Second) }
	assert.True(t, c.IsValid("k", time.Minute))

	// exactly at the TTL boundary: stale
	c.now = func() time.Time { return base.Add(time.Minute) }
	assert.False(t, c.IsValid("k", time.Minute))
}

func TestSet_ImmediatelyValid(t *testing.T) {
	c := New(newFakeStorage())
	c.Set("k", "v")
	assert.True(t, c.IsValid("k", time.Millisecond))
}

func TestSetWithETag(t *testing.T) {
	c := New(newFakeStorage())
	c.SetWithETag("k", "v", "abc123")

	etag, ok := c.ETag("k")
	assert.True(t, ok)
	assert.Equal(t, "abc123", etag)
}

func TestQuotaFailure_SweepsOldEntriesAndDropsWrite(t *testing.T) {
	storage := newFakeStorage()
	c := New(storage)
	base := time.Now()

	// One stale entry (2h old), one fresh (1m old).
	c.now = func() time.Time { return base.Add(-2 * time.Hour) }
	c.Set("stale", "old")
	c.now = func() time.Time { return base.Add(-time.Minute) }
	c.Set("fresh", "new")

	c.now = func() time.Time { return base }
	storage.full = true
	c.Set("incoming", "dropped")

	// The failed write is dropped, stale entries are gone, fresh survive.
	var got string
	assert.False(t, c.Get("incoming", &got))
	assert.False(t, c.Get("stale", &got))
	assert.True(t, c.Get("fresh", &got))
	assert.Equal(t, "new", got)
}

func TestClear(t *testing.T) {
	c := New(newFakeStorage())
	c.Set("a", 1)
	c.Set("b", 2)

	c.Clear("a")

	var got int
	assert.False(t, c.Get("a", &got))
	assert.True(t, c.Get("b", &got))
}

func TestClearAll_OnlyNamespacedKeys(t *testing.T) {
	storage := newFakeStorage()
	storage.data["unrelated_key"] = []byte("keep me")
	c := New(storage)
	c.Set("a", 1)
	c.Set("b", 2)

	c.ClearAll()

	var got int
	assert.False(t, c.Get("a", &got))
	assert.False(t, c.Get("b", &got))
	_, ok := storage.data["unrelated_key"]
	assert.True(t, ok)
}

func TestFileStorage_RoundTrip(t *testing.T) {
	storage, err := NewFileStorage(t.TempDir())
	assert.NoError(t, err)

	c := New(storage)
	c.Set("k", map[string]int{"n": 7})

	var got map[string]int
	assert.True(t, c.Get("k", &got))
	assert.Equal(t, 7, got["n"])

	c.ClearAll()
	assert.False(t, c.Get("k", &got))
}

func TestRedisStorage_RoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	c := New(NewRedisStorage(client))
	c.Set("k", "hello")

	var got string
	assert.True(t, c.Get("k", &got))
	assert.Equal(t, "hello", got)
	assert.True(t, c.IsValid("k", time.Minute))

	c.Clear("k")
	assert.False(t, c.Get("k", &got))
}
