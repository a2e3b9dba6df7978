package cache

import (
	"encoding/json"
	"strings"
	"time"
)

// All entries live under this prefix so the cache never clobbers
// unrelated data in a shared storage backend.
const Prefix = "memorial_cache_"

const (
	DefaultTTL = 5 * time.Minute
	sweepAge   = time.Hour
)

// Cache keys used across the app.
const (
	KeySlideshowMedia = "slideshow_media"
	KeyPostFeed       = "post_feed"
)

// Storage is the persistent key/value backend the cache writes through.
// Set returns an error when the backend is full or unwritable.
type Storage interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte) error
	Delete(key string)
	Keys() []string
}

// Entry is the stored representation of one cached value. Staleness is
// evaluated at read time against the caller's TTL; the entry itself
// carries no expiry.
type Entry struct {
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
	ETag      string          `json:"etag,omitempty"`
}

type Cache struct {
	storage Storage
	now     func() time.Time
}

func New(storage Storage) *Cache {
	return &Cache{storage: storage, now: time.Now}
}

// Get unmarshals the last written value for key into out. Absent or
// corrupt entries are treated the same: no value.
func (c *Cache) Get(key string, out interface{}) bool {
	entry, ok := c.entry(key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(entry.Data, out); err != nil {
		return false
	}
	return true
}

// Timestamp returns the write time of the entry in epoch milliseconds.
func (c *Cache) Timestamp(key string) (int64, bool) {
	entry, ok := c.entry(key)
	if !ok {
		return 0, false
	}
	return entry.Timestamp, true
}

// ETag returns the etag recorded with the entry, if any.
func (c *Cache) ETag(key string) (string, bool) {
	entry, ok := c.entry(key)
	if !ok || entry.ETag == "" {
		return "", false
	}
	return entry.ETag, true
}

// IsValid reports whether an entry exists and was written less than ttl ago.
func (c *Cache) IsValid(key string, ttl time.Duration) bool {
	ts, ok := c.Timestamp(key)
	if !ok {
		return false
	}
	return c.now().UnixMilli()-ts < ttl.Milliseconds()
}

func (c *Cache) Set(key string, data interface{}) {
	c.SetWithETag(key, data, "")
}

// SetWithETag overwrites the entry for key. On a storage failure it
// sweeps entries older than one hour and drops the write; the caller
// just refetches next time.
func (c *Cache) SetWithETag(key string, data interface{}, etag string) {
	raw, err := json.Marshal(data)
	if err != nil {
		return
	}
	entry := Entry{
		Data:      raw,
		Timestamp: c.now().UnixMilli(),
		ETag:      etag,
	}
	encoded, err := json.Marshal(entry)
	if err != nil {
		return
	}
	if err := c.storage.Set(Prefix+key, encoded); err != nil {
		c.sweepOld()
	}
}

func (c *Cache) Clear(key string) {
	c.storage.Delete(Prefix + key)
}

// ClearAll removes every namespaced entry and nothing else.
func (c *Cache) ClearAll() {
	for _, key := range c.storage.Keys() {
		if strings.HasPrefix(key, Prefix) {
			c.storage.Delete(key)
		}
	}
}

func (c *Cache) entry(key string) (*Entry, bool) {
	raw, ok := c.storage.Get(Prefix + key)
	if !ok {
		return nil, false
	}
	var entry Entry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return nil, false
	}
	return &entry, true
}

// sweepOld evicts namespaced entries older than an hour, plus any that
// no longer parse.
func (c *Cache) sweepOld() {
	cutoff := c.now().UnixMilli() - sweepAge.Milliseconds()
	for _, key := range c.storage.Keys() {
		if !strings.HasPrefix(key, Prefix) {
			continue
		}
		raw, ok := c.storage.Get(key)
		if !ok {
			continue
		}
		var entry Entry
		if err := json.Unmarshal(raw, &entry); err != nil {
			c.storage.Delete(key)
			continue
		}
		if entry.Timestamp < cutoff {
			c.storage.Delete(key)
		}
	}
}
