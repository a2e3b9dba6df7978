package usecase

import (
	"testing"

	"memorial-guestbook/internal/entity"
	"memorial-guestbook/internal/model"
	"memorial-guestbook/internal/repo/persistent"
	"memorial-guestbook/pkg/jwt"
	"memorial-guestbook/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newAdminUseCase(t *testing.T) (AdminUseCase, *jwt.Service) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.AdminModel{}))

	repo := persistent.NewAdminRepository(db)
	hash, err := bcrypt.GenerateFromPassword([]byte("correct-horse"), bcrypt.DefaultCost)
	require.NoError(t, err)
	require.NoError(t, repo.Create(&entity.Admin{Username: "admin", PasswordHash: string(hash)}))

	jwtService := jwt.NewService("test-secret")
	return NewAdminUseCase(repo, jwtService, logger.New()), jwtService
}

func TestAdminLogin_Success(t *testing.T) {
	uc, jwtService := newAdminUseCase(t)

	token, err := uc.Login("admin", "correct-horse")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "admin", claims.Role)
}

func TestAdminLogin_WrongPassword(t *testing.T) {
	uc, _ := newAdminUseCase(t)

	_, err := uc.Login("admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAdminLogin_UnknownUser(t *testing.T) {
	uc, _ := newAdminUseCase(t)

	_, err := uc.Login("nobody", "correct-horse")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}
