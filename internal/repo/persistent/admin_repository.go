package persistent

import (
	"memorial-guestbook/internal/entity"
	"memorial-guestbook/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AdminRepository interface {
	Create(admin *entity.Admin) error
	GetByUsername(username string) (*entity.Admin, error)
}

type adminRepository struct {
	db *gorm.DB
}

func NewAdminRepository(db *gorm.DB) AdminRepository {
	return &adminRepository{db: db}
}

func (r *adminRepository) Create(admin *entity.Admin) error {
	adminModel := &model.AdminModel{
		ID:           admin.ID,
		Username:     admin.Username,
		PasswordHash: admin.PasswordHash,
	}
	if adminModel.ID == "" {
		adminModel.ID = uuid.New().String()
	}
	if err := r.db.Create(adminModel).Error; err != nil {
		return err
	}
	*admin = *ToAdminEntity(adminModel)
	return nil
}

func (r *adminRepository) GetByUsername(username string) (*entity.Admin, error) {
	var adminModel model.AdminModel
	if err := r.db.Where("username = ?", username).First(&adminModel).Error; err != nil {
		return nil, err
	}
	return ToAdminEntity(&adminModel), nil
}
