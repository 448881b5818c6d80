package services

import (
	"context"
	"errors"
	"fmt"

	"task-tracker/backend/internal/models"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
)

// Session is returned by a successful signup or login.
type Session struct {
	Token string             `json:"token"`
	User  models.UserSummary `json:"user"`
}

type AuthService interface {
	Signup(ctx context.Context, email, password string) (*Session, error)
	Login(ctx context.Context, email, password string) (*Session, error)
	Me(ctx context.Context, userID int64) (*models.User, error)
}

type AuthServiceImpl struct {
	db          *gorm.DB
	credentials *Credentials
	logger      zerolog.Logger
}

func NewAuthService(db *gorm.DB, credentials *Credentials, logger zerolog.Logger) *AuthServiceImpl {
	return &AuthServiceImpl{
		db:          db,
		credentials: credentials,
		logger:      logger,
	}
}

func (s *AuthServiceImpl) Signup(ctx context.Context, email, password string) (*Session, error) {
	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, invalidInput("email and password are required")
	}

	db := s.db.WithContext(ctx)

	_, err := s.findByEmail(db, email)
	if err == nil {
		return nil, conflict("email already registered")
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := s.credentials.HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := models.User{Email: email, PasswordHash: hash}
	if err := db.Create(&user).Error; err != nil {
		// Lost a race with a concurrent signup for the same address.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, conflict("email already registered")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	s.logger.Info().Int64("user_id", user.ID).Msg("user signed up")
	return s.newSession(&user)
}

func (s *AuthServiceImpl) Login(ctx context.Context, email, password string) (*Session, error) {
	email = models.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, invalidInput("email and password are required")
	}

	user, err := s.findByEmail(s.db.WithContext(ctx), email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, unauthorized("invalid credentials")
		}
		return nil, err
	}

	if !s.credentials.CheckPassword(password, user.PasswordHash) {
		return nil, unauthorized("invalid credentials")
	}

	return s.newSession(user)
}

func (s *AuthServiceImpl) Me(ctx context.Context, userID int64) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, userID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, notFound("user not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	return &user, nil
}

func (s *AuthServiceImpl) findByEmail(db *gorm.DB, email string) (*models.User, error) {
	var user models.User
	if err := db.Where("lower(email) = lower(?)", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *AuthServiceImpl) newSession(user *models.User) (*Session, error) {
	token, err := s.credentials.IssueToken(user)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, User: user.Summary()}, nil
}
