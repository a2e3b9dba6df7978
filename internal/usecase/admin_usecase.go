package usecase

import (
	"errors"

	"memorial-guestbook/internal/repo/persistent"
	"memorial-guestbook/pkg/jwt"
	"memorial-guestbook/pkg/logger"

	"golang.org/x/crypto/bcrypt"
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type AdminUseCase interface {
	Login(username, password string) (string, error)
}

type adminUseCase struct {
	adminRepo  persistent.AdminRepository
	jwtService *jwt.Service
	logger     *logger.Logger
}

func NewAdminUseCase(adminRepo persistent.AdminRepository, jwtService *jwt.Service, log *logger.Logger) AdminUseCase {
	return &adminUseCase{
		adminRepo:  adminRepo,
		jwtService: jwtService,
		logger:     log,
	}
}

// Login verifies the password against the stored bcrypt hash and issues
// an admin token. Unknown users and wrong passwords are indistinguishable
// to the caller.
func (uc *adminUseCase) Login(username, password string) (string, error) {
	admin, err := uc.adminRepo.GetByUsername(username)
	if err != nil {
		return "", ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(password)); err != nil {
		return "", ErrInvalidCredentials
	}

	token, err := uc.jwtService.GenerateToken(admin.ID, "admin")
	if err != nil {
		uc.logger.Error("Failed to generate admin token: %v", err)
		return "", err
	}

	return token, nil
}
