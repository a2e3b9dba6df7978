package usecase

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	"memorial-guestbook/internal/entity"
	"memorial-guestbook/internal/media"
	"memorial-guestbook/internal/repo/persistent"
	"memorial-guestbook/pkg/logger"
	"memorial-guestbook/pkg/s3"

	"github.com/google/uuid"
)

var (
	// ErrNotAuthorized means the caller's guest token does not match the
	// token the post was created with.
	ErrNotAuthorized = errors.New("you can only modify your own posts")

	ErrTooManyImages = fmt.Errorf("maximum %d images allowed per post", entity.MaxImagesPerPost)
	ErrTooManyVideos = fmt.Errorf("maximum %d video allowed per post", entity.MaxVideosPerPost)
)

// MediaStorage is the slice of the object store the post flow needs.
type MediaStorage interface {
	UploadFile(key string, file io.Reader, contentType string) (string, error)
	DeleteFiles(keys []string) []string
}

// ModerationPublisher announces new tributes for moderation. Optional.
type ModerationPublisher interface {
	PublishNewPost(task map[string]interface{}) error
}

// MediaUpload is one user-selected file, fully buffered.
type MediaUpload struct {
	FileName string
	Data     []byte
}

type PostUseCase interface {
	CreatePost(guestName, message, guestToken string, uploads []MediaUpload) (*entity.Post, error)
	GetPost(postID string) (*entity.Post, error)
	ListPosts(limit, offset int) ([]*entity.Post, int64, error)
	ListAllPosts(limit, offset int) ([]*entity.Post, int64, error)
	UpdatePost(postID, guestToken string, guestName, message *string, mediaItems []entity.MediaItem) (*entity.Post, error)
	DeletePost(postID, guestToken string, isAdmin bool) error
	ListSlideshowMedia() ([]entity.MediaWithAuthor, error)
	SetHidden(postID string, hidden bool) error
	SetPinned(postID string, pinned bool) error
}

type postUseCase struct {
	postRepo    persistent.PostRepository
	storage     MediaStorage
	queueClient ModerationPublisher
	logger      *logger.Logger
}

func NewPostUseCase(
	postRepo persistent.PostRepository,
	storage MediaStorage,
	queueClient ModerationPublisher,
	log *logger.Logger,
) PostUseCase {
	return &postUseCase{
		postRepo:    postRepo,
		storage:     storage,
		queueClient: queueClient,
		logger:      log,
	}
}

func (uc *postUseCase) CreatePost(guestName, message, guestToken string, uploads []MediaUpload) (*entity.Post, error) {
	items, err := uc.uploadMedia(uploads)
	if err != nil {
		return nil, err
	}

	post := &entity.Post{
		GuestName:  guestName,
		Message:    message,
		GuestToken: guestToken,
		Media:      items,
	}

	if err := uc.postRepo.Create(post); err != nil {
		uc.cleanupMedia(items)
		return nil, fmt.Errorf("failed to create post: %w", err)
	}

	if uc.queueClient != nil {
		go uc.publishModerationTask(post)
	}

	return post, nil
}

// uploadMedia processes and stores each file, enforcing the per-post
// media policy. On any failure the files already stored are removed.
func (uc *postUseCase) uploadMedia(uploads []MediaUpload) ([]entity.MediaItem, error) {
	var items []entity.MediaItem
	imageCount, videoCount := 0, 0

	for _, upload := range uploads {
		processed, mediaType, err := media.Process(media.File{Name: upload.FileName, Data: upload.Data})
		if err != nil {
			uc.cleanupMedia(items)
			return nil, err
		}

		switch mediaType {
		case entity.MediaTypeImage:
			imageCount++
			if imageCount > entity.MaxImagesPerPost {
				uc.cleanupMedia(items)
				return nil, ErrTooManyImages
			}
		case entity.MediaTypeVideo:
			videoCount++
			if videoCount > entity.MaxVideosPerPost {
				uc.cleanupMedia(items)
				return nil, ErrTooManyVideos
			}
		}

		key := fmt.Sprintf("media/%s%s", uuid.New().String(), path.Ext(processed.Name))
		url, err := uc.storage.UploadFile(key, bytes.NewReader(processed.Data), contentTypeFor(processed.Data))
		if err != nil {
			uc.cleanupMedia(items)
			return nil, fmt.Errorf("failed to upload file to storage: %w", err)
		}

		items = append(items, entity.MediaItem{URL: url, Type: mediaType})
	}

	return items, nil
}

func (uc *postUseCase) GetPost(postID string) (*entity.Post, error) {
	return uc.postRepo.GetByID(postID)
}

func (uc *postUseCase) ListPosts(limit, offset int) ([]*entity.Post, int64, error) {
	return uc.postRepo.ListVisible(limit, offset)
}

func (uc *postUseCase) ListAllPosts(limit, offset int) ([]*entity.Post, int64, error) {
	return uc.postRepo.ListAll(limit, offset)
}

// UpdatePost changes any subset of name, message and media. A nil
// mediaItems leaves the media untouched; a non-nil one replaces the
// whole list, so an empty slice strips the post down to text.
func (uc *postUseCase) UpdatePost(postID, guestToken string, guestName, message *string, mediaItems []entity.MediaItem) (*entity.Post, error) {
	post, err := uc.postRepo.GetByID(postID)
	if err != nil {
		return nil, err
	}

	if post.GuestToken == "" || post.GuestToken != guestToken {
		return nil, ErrNotAuthorized
	}

	if mediaItems != nil {
		if err := checkMediaPolicy(mediaItems); err != nil {
			return nil, err
		}
	}

	if guestName != nil {
		post.GuestName = *guestName
	}
	if message != nil {
		post.Message = *message
	}

	if err := uc.postRepo.Update(post); err != nil {
		return nil, err
	}

	if mediaItems != nil {
		if err := uc.postRepo.ReplaceMedia(postID, mediaItems); err != nil {
			return nil, err
		}
		uc.cleanupMedia(droppedMedia(post.Media, mediaItems))
	}

	return uc.postRepo.GetByID(postID)
}

func checkMediaPolicy(items []entity.MediaItem) error {
	imageCount, videoCount := 0, 0
	for _, item := range items {
		switch item.Type {
		case entity.MediaTypeImage:
			imageCount++
		case entity.MediaTypeVideo:
			videoCount++
		}
	}
	if imageCount > entity.MaxImagesPerPost {
		return ErrTooManyImages
	}
	if videoCount > entity.MaxVideosPerPost {
		return ErrTooManyVideos
	}
	return nil
}

// droppedMedia returns the items of old whose URL no longer appears in
// updated; their stored objects are orphans once the edit lands.
func droppedMedia(old, updated []entity.MediaItem) []entity.MediaItem {
	kept := make(map[string]struct{}, len(updated))
	for _, item := range updated {
		kept[item.URL] = struct{}{}
	}
	var dropped []entity.MediaItem
	for _, item := range old {
		if _, ok := kept[item.URL]; !ok {
			dropped = append(dropped, item)
		}
	}
	return dropped
}

func (uc *postUseCase) DeletePost(postID, guestToken string, isAdmin bool) error {
	post, err := uc.postRepo.GetByID(postID)
	if err != nil {
		return err
	}

	if !isAdmin && (post.GuestToken == "" || post.GuestToken != guestToken) {
		return ErrNotAuthorized
	}

	if err := uc.postRepo.Delete(postID); err != nil {
		return err
	}

	// Storage cleanup is best effort: the post row is authoritative, an
	// orphaned object costs pennies.
	uc.cleanupMedia(post.Media)
	return nil
}

func (uc *postUseCase) ListSlideshowMedia() ([]entity.MediaWithAuthor, error) {
	posts, _, err := uc.postRepo.ListVisible(0, 0)
	if err != nil {
		return nil, err
	}
	return entity.FlattenMedia(posts), nil
}

func (uc *postUseCase) SetHidden(postID string, hidden bool) error {
	if _, err := uc.postRepo.GetByID(postID); err != nil {
		return err
	}
	return uc.postRepo.SetHidden(postID, hidden)
}

func (uc *postUseCase) SetPinned(postID string, pinned bool) error {
	if _, err := uc.postRepo.GetByID(postID); err != nil {
		return err
	}
	return uc.postRepo.SetPinned(postID, pinned)
}

func (uc *postUseCase) cleanupMedia(items []entity.MediaItem) {
	var keys []string
	for _, item := range items {
		if key := s3.KeyFromURL(item.URL); key != "" {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return
	}
	if failed := uc.storage.DeleteFiles(keys); len(failed) > 0 {
		uc.logger.Warn("Failed to delete %d media object(s) from storage: %v", len(failed), failed)
	}
}

func (uc *postUseCase) publishModerationTask(post *entity.Post) {
	task := map[string]interface{}{
		"type":        "new_post",
		"post_id":     post.ID,
		"guest_name":  post.GuestName,
		"media_count": len(post.Media),
	}

	if err := uc.queueClient.PublishNewPost(task); err != nil {
		uc.logger.Error("Failed to publish moderation task: %v (post_id=%s)", err, post.ID)
	} else {
		uc.logger.Info("Published moderation task: post_id=%s", post.ID)
	}
}

func contentTypeFor(data []byte) string {
	if len(data) > 512 {
		data = data[:512]
	}
	return http.DetectContentType(data)
}
