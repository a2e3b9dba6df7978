package persistent

import (
	"memorial-guestbook/internal/entity"
	"memorial-guestbook/internal/model"
)

func ToPostModel(post *entity.Post) *model.PostModel {
	media := make([]model.MediaItemModel, len(post.Media))
	for i, item := range post.Media {
		media[i] = model.MediaItemModel{
			PostID:    post.ID,
			URL:       item.URL,
			Type:      string(item.Type),
			SortOrder: i,
		}
	}

	return &model.PostModel{
		ID:         post.ID,
		GuestName:  post.GuestName,
		Message:    post.Message,
		GuestToken: post.GuestToken,
		IsHidden:   post.IsHidden,
		IsPinned:   post.IsPinned,
		CreatedAt:  post.CreatedAt,
		UpdatedAt:  post.UpdatedAt,
		Media:      media,
	}
}

func ToPostEntity(postModel *model.PostModel) *entity.Post {
	media := make([]entity.MediaItem, len(postModel.Media))
	for i, item := range postModel.Media {
		media[i] = entity.MediaItem{
			URL:  item.URL,
			Type: entity.MediaType(item.Type),
		}
	}

	return &entity.Post{
		ID:         postModel.ID,
		GuestName:  postModel.GuestName,
		Message:    postModel.Message,
		GuestToken: postModel.GuestToken,
		IsHidden:   postModel.IsHidden,
		IsPinned:   postModel.IsPinned,
		CreatedAt:  postModel.CreatedAt,
		UpdatedAt:  postModel.UpdatedAt,
		Media:      media,
	}
}

func ToAdminEntity(adminModel *model.AdminModel) *entity.Admin {
	return &entity.Admin{
		ID:           adminModel.ID,
		Username:     adminModel.Username,
		PasswordHash: adminModel.PasswordHash,
		CreatedAt:    adminModel.CreatedAt,
	}
}
