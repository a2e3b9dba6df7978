package entity

import "time"

type MediaType string

const (
	MediaTypeImage MediaType = "image"
	MediaTypeVideo MediaType = "video"
)

// Media policy enforced at submission time; the store itself does not
// enforce it.
const (
	MaxImagesPerPost = 10
	MaxVideosPerPost = 1
)

type MediaItem struct {
	URL  string    `json:"url"`
	Type MediaType `json:"type"`
}

type Post struct {
	ID         string      `json:"id"`
	GuestName  string      `json:"guest_name"`
	Message    string      `json:"message"`
	Media      []MediaItem `json:"media"`
	GuestToken string      `json:"-"`
	IsHidden   bool        `json:"is_hidden"`
	IsPinned   bool        `json:"is_pinned"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// MediaWithAuthor is a media item enriched with its post's author,
// built transiently for the slideshow. Never persisted.
type MediaWithAuthor struct {
	URL       string    `json:"url"`
	Type      MediaType `json:"type"`
	GuestName string    `json:"guest_name"`
	PostID    string    `json:"post_id"`
}

// FlattenMedia builds the slideshow playback order: every post's media
// in the given post order (callers pass posts pinned-first, newest-first).
func FlattenMedia(posts []*Post) []MediaWithAuthor {
	var out []MediaWithAuthor
	for _, post := range posts {
		for _, item := range post.Media {
			out = append(out, MediaWithAuthor{
				URL:       item.URL,
				Type:      item.Type,
				GuestName: post.GuestName,
				PostID:    post.ID,
			})
		}
	}
	return out
}
