package auth

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"nexus-backend/internal/config"
	"nexus-backend/internal/models"
	"nexus-backend/internal/nexus"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrInvalidCredentials is returned on a failed login. It deliberately
// does not distinguish unknown email from wrong password.
var ErrInvalidCredentials = errors.New("invalid email or password")

const minPasswordLen = 8

// Service handles registration, login and token issuance.
type Service struct {
	db     *gorm.DB
	cfg    *config.Auth
	logger *zap.Logger
}

// NewService creates the auth service.
func NewService(db *gorm.DB, cfg *config.Auth, logger *zap.Logger) *Service {
	return &Service{db: db, cfg: cfg, logger: logger}
}

func (s *Service) tokenTTL() time.Duration {
	return time.Duration(s.cfg.TokenTTLMinutes) * time.Minute
}

// Register creates a user and returns a fresh access token.
func (s *Service) Register(email, password string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", fmt.Errorf("%w: a valid email is required", nexus.ErrValidation)
	}
	if len(password) < minPasswordLen {
		return nil, "", fmt.Errorf("%w: password must be at least %d characters", nexus.ErrValidation, minPasswordLen)
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	user := models.User{Email: email, PasswordHash: hash}
	err = s.db.Transaction(func(tx *gorm.DB) error {
		var existing models.User
		err := tx.Where("email = ?", email).First(&existing).Error
		if err == nil {
			return fmt.Errorf("%w: email already registered", nexus.ErrDuplicate)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("could not check email: %w", err)
		}
		return tx.Create(&user).Error
	})
	if err != nil {
		return nil, "", err
	}

	token, err := CreateAccessToken(s.cfg.JWTSecret, user.ID, s.tokenTTL())
	if err != nil {
		return nil, "", err
	}

	s.logger.Info("User registered", zap.String("user_id", user.ID))
	return &user, token, nil
}

// Login verifies credentials and returns an access token.
func (s *Service) Login(email, password string) (*models.User, string, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	err := s.db.Where("email = ?", email).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", ErrInvalidCredentials
	}
	if err != nil {
		return nil, "", fmt.Errorf("could not load user: %w", err)
	}

	if !VerifyPassword(password, user.PasswordHash) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := CreateAccessToken(s.cfg.JWTSecret, user.ID, s.tokenTTL())
	if err != nil {
		return nil, "", err
	}

	return &user, token, nil
}

// UserByID loads a user or returns ErrInvalidToken when absent, since the
// only caller is token resolution.
func (s *Service) UserByID(id string) (*models.User, error) {
	var user models.User
	err := s.db.First(&user, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("could not load user: %w", err)
	}
	return &user, nil
}
