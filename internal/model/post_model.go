package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type PostModel struct {
	ID         string           `gorm:"type:uuid;primary_key" json:"id"`
	GuestName  string           `gorm:"type:varchar(100);not null" json:"guest_name"`
	Message    string           `gorm:"type:text;not null" json:"message"`
	GuestToken string           `gorm:"type:uuid;not null;index" json:"-"`
	IsHidden   bool             `gorm:"default:false;index" json:"is_hidden"`
	IsPinned   bool             `gorm:"default:false" json:"is_pinned"`
	CreatedAt  time.Time        `json:"created_at"`
	UpdatedAt  time.Time        `json:"updated_at"`
	Media      []MediaItemModel `gorm:"foreignKey:PostID" json:"media,omitempty"`
}

func (PostModel) TableName() string {
	return "posts"
}

func (p *PostModel) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return nil
}

type MediaItemModel struct {
	ID        string    `gorm:"type:uuid;primary_key" json:"id"`
	PostID    string    `gorm:"type:uuid;not null;index" json:"post_id"`
	URL       string    `gorm:"type:varchar(500);not null" json:"url"`
	Type      string    `gorm:"type:varchar(10);not null" json:"type"`
	SortOrder int       `gorm:"not null;default:0;index" json:"sort_order"`
	CreatedAt time.Time `json:"created_at"`
}

func (MediaItemModel) TableName() string {
	return "post_media"
}

func (m *MediaItemModel) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return nil
}
