package persistent

import (
	"time"

	"memorial-guestbook/internal/entity"
	"memorial-guestbook/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostRepository interface {
	Create(post *entity.Post) error
	GetByID(id string) (*entity.Post, error)
	// ListVisible returns one page of non-hidden posts, pinned first then
	// newest first, plus the exact total count of all matching posts.
	ListVisible(limit, offset int) ([]*entity.Post, int64, error)
	// ListAll includes hidden posts, for the moderation dashboard.
	ListAll(limit, offset int) ([]*entity.Post, int64, error)
	Update(post *entity.Post) error
	ReplaceMedia(postID string, media []entity.MediaItem) error
	SetHidden(id string, hidden bool) error
	SetPinned(id string, pinned bool) error
	Delete(id string) error
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(post *entity.Post) error {
	postModel := ToPostModel(post)
	if postModel.ID == "" {
		postModel.ID = uuid.New().String()
	}

	return r.db.Transaction(func(tx *gorm.DB) error {
		media := postModel.Media
		postModel.Media = nil

		if err := tx.Create(postModel).Error; err != nil {
			return err
		}

		for i := range media {
			media[i].PostID = postModel.ID
			if media[i].ID == "" {
				media[i].ID = uuid.New().String()
			}
			if err := tx.Create(&media[i]).Error; err != nil {
				return err
			}
		}
		postModel.Media = media

		*post = *ToPostEntity(postModel)
		return nil
	})
}

func (r *postRepository) GetByID(id string) (*entity.Post, error) {
	var postModel model.PostModel
	if err := r.db.Preload("Media", func(db *gorm.DB) *gorm.DB {
		return db.Order("post_media.sort_order ASC")
	}).Where("id = ?", id).First(&postModel).Error; err != nil {
		return nil, err
	}
	return ToPostEntity(&postModel), nil
}

func (r *postRepository) ListVisible(limit, offset int) ([]*entity.Post, int64, error) {
	return r.list(limit, offset, true)
}

func (r *postRepository) ListAll(limit, offset int) ([]*entity.Post, int64, error) {
	return r.list(limit, offset, false)
}

func (r *postRepository) list(limit, offset int, visibleOnly bool) ([]*entity.Post, int64, error) {
	countQuery := r.db.Model(&model.PostModel{})
	if visibleOnly {
		countQuery = countQuery.Where("is_hidden = ?", false)
	}
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query := r.db.Preload("Media", func(db *gorm.DB) *gorm.DB {
		return db.Order("post_media.sort_order ASC")
	}).Order("is_pinned DESC, created_at DESC")
	if visibleOnly {
		query = query.Where("is_hidden = ?", false)
	}
	if limit > 0 {
		query = query.Limit(limit).Offset(offset)
	}

	var postModels []model.PostModel
	if err := query.Find(&postModels).Error; err != nil {
		return nil, 0, err
	}

	posts := make([]*entity.Post, len(postModels))
	for i := range postModels {
		posts[i] = ToPostEntity(&postModels[i])
	}
	return posts, total, nil
}

func (r *postRepository) Update(post *entity.Post) error {
	updates := map[string]interface{}{
		"guest_name": post.GuestName,
		"message":    post.Message,
		"is_hidden":  post.IsHidden,
		"is_pinned":  post.IsPinned,
		"updated_at": time.Now(),
	}
	return r.db.Model(&model.PostModel{}).Where("id = ?", post.ID).Updates(updates).Error
}

// ReplaceMedia swaps the post's media set in one transaction, keeping
// the given order.
func (r *postRepository) ReplaceMedia(postID string, media []entity.MediaItem) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", postID).Delete(&model.MediaItemModel{}).Error; err != nil {
			return err
		}
		for i, item := range media {
			itemModel := model.MediaItemModel{
				ID:        uuid.New().String(),
				PostID:    postID,
				URL:       item.URL,
				Type:      string(item.Type),
				SortOrder: i,
			}
			if err := tx.Create(&itemModel).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *postRepository) SetHidden(id string, hidden bool) error {
	return r.db.Model(&model.PostModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"is_hidden":  hidden,
		"updated_at": time.Now(),
	}).Error
}

func (r *postRepository) SetPinned(id string, pinned bool) error {
	return r.db.Model(&model.PostModel{}).Where("id = ?", id).Updates(map[string]interface{}{
		"is_pinned":  pinned,
		"updated_at": time.Now(),
	}).Error
}

func (r *postRepository) Delete(id string) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&model.MediaItemModel{}).Error; err != nil {
			return err
		}
		return tx.Where("id = ?", id).Delete(&model.PostModel{}).Error
	})
}
