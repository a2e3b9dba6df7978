package feed

import (
	"sync"
	"time"

	"memorial-guestbook/internal/entity"
	"memorial-guestbook/pkg/cache"
)

const (
	// PageSize is how many posts one fetch brings in.
	PageSize = 12

	// cacheTTL bounds how long a cached first page is served without a
	// round trip.
	cacheTTL = 2 * time.Minute
)

// Page is one fetched slice of the wall plus the total the server knows
// about.
type Page struct {
	Posts      []*entity.Post `json:"posts"`
	TotalCount int64          `json:"total_count"`
}

// Source fetches pages of posts, usually over HTTP.
type Source interface {
	ListPosts(limit, offset int) (*Page, error)
}

// Controller accumulates the paginated wall: the first page comes from
// cache when fresh, later pages append without duplicates. Safe for
// concurrent use.
type Controller struct {
	source Source
	cache  *cache.Cache

	mu          sync.Mutex
	posts       []*entity.Post
	total       int64
	loadingMore bool
}

// NewController creates a feed over source. cache may be nil, which
// disables offline reuse but changes nothing else.
func NewController(source Source, c *cache.Cache) *Controller {
	return &Controller{source: source, cache: c}
}

// Load brings in the first page, from cache when it is still fresh.
// When the fetch fails but any cached page exists, the stale copy is
// served instead of the error.
func (c *Controller) Load() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cache != nil && c.cache.IsValid(cache.KeyPostFeed, cacheTTL) {
		var page Page
		if c.cache.Get(cache.KeyPostFeed, &page) {
			c.posts = page.Posts
			c.total = page.TotalCount
			return nil
		}
	}

	return c.fetchFirstLocked()
}

// Refresh refetches the first page unconditionally, replacing what is
// loaded.
func (c *Controller) Refresh() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fetchFirstLocked()
}

func (c *Controller) fetchFirstLocked() error {
	page, err := c.source.ListPosts(PageSize, 0)
	if err != nil {
		if c.cache != nil {
			var stale Page
			if c.cache.Get(cache.KeyPostFeed, &stale) {
				c.posts = stale.Posts
				c.total = stale.TotalCount
				return nil
			}
		}
		return err
	}

	c.posts = page.Posts
	c.total = page.TotalCount
	if c.cache != nil {
		c.cache.Set(cache.KeyPostFeed, page)
	}
	return nil
}

// LoadMore appends the next page and writes the grown list back to
// cache. Calls made while a fetch is already in flight, or when
// everything is loaded, return immediately.
func (c *Controller) LoadMore() error {
	c.mu.Lock()
	if c.loadingMore || int64(len(c.posts)) >= c.total {
		c.mu.Unlock()
		return nil
	}
	c.loadingMore = true
	offset := len(c.posts)
	c.mu.Unlock()

	page, err := c.source.ListPosts(PageSize, offset)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.loadingMore = false
	if err != nil {
		return err
	}

	c.mergeLocked(page.Posts)
	c.total = page.TotalCount
	if c.cache != nil {
		c.cache.Set(cache.KeyPostFeed, Page{Posts: c.posts, TotalCount: c.total})
	}
	return nil
}

// mergeLocked appends incoming posts, skipping IDs already present.
// Pages can overlap when posts were created between fetches.
func (c *Controller) mergeLocked(incoming []*entity.Post) {
	seen := make(map[string]struct{}, len(c.posts))
	for _, p := range c.posts {
		seen[p.ID] = struct{}{}
	}
	for _, p := range incoming {
		if _, ok := seen[p.ID]; ok {
			continue
		}
		seen[p.ID] = struct{}{}
		c.posts = append(c.posts, p)
	}
}

// HasMore reports whether the server holds posts beyond what is loaded.
func (c *Controller) HasMore() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return int64(len(c.posts)) < c.total
}

// Loading reports whether a LoadMore fetch is in flight.
func (c *Controller) Loading() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loadingMore
}

// Snapshot returns the loaded posts and the server-side total.
func (c *Controller) Snapshot() ([]*entity.Post, int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	posts := make([]*entity.Post, len(c.posts))
	copy(posts, c.posts)
	return posts, c.total
}
