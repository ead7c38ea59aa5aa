package service

import (
	"errors"
	"log/slog"
	"regexp"

	"github.com/taskdeck/backend-go/internal/database/models"
	"github.com/taskdeck/backend-go/internal/database/repository"
)

// UserService defines the interface for user directory business logic.
// Users mirror identities held at the provider; they are created on
// first sight of a verified token.
type UserService interface {
	GetUser(id string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	CreateUser(id, email string, displayName *string) (*models.User, error)
	UpdateDisplayName(id string, displayName *string) (*models.User, error)
	FindOrCreate(id, email string, displayName *string) (*models.User, error)
	DeleteUser(id string) error
}

type userService struct {
	userRepo repository.UserRepository
	logger   *slog.Logger
}

// NewUserService creates a new user service instance
func NewUserService(userRepo repository.UserRepository, logger *slog.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		logger:   logger,
	}
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func (s *userService) GetUser(id string) (*models.User, error) {
	return s.userRepo.FindByID(id)
}

func (s *userService) GetUserByEmail(email string) (*models.User, error) {
	return s.userRepo.FindByEmail(email)
}

func (s *userService) CreateUser(id, email string, displayName *string) (*models.User, error) {
	if id == "" {
		return nil, ErrUserIDRequired
	}
	if email == "" {
		return nil, ErrEmailRequired
	}
	if !emailPattern.MatchString(email) {
		return nil, ErrInvalidEmail
	}

	user := &models.User{
		ID:          id,
		Email:       email,
		DisplayName: displayName,
	}

	if err := s.userRepo.Create(user); err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			s.logger.Warn("⚠️ [UserService] User already exists", "user_id", id)
			return nil, repository.ErrUserAlreadyExists
		}
		s.logger.Error("❌ [UserService] Failed to create user", "error", err, "user_id", id)
		return nil, err
	}

	s.logger.Info("✅ [UserService] User created", "user_id", id)
	return user, nil
}

func (s *userService) UpdateDisplayName(id string, displayName *string) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err != nil {
		return nil, err
	}

	user.DisplayName = displayName
	if err := s.userRepo.Update(user); err != nil {
		s.logger.Error("❌ [UserService] Failed to update display name", "error", err, "user_id", id)
		return nil, err
	}

	return user, nil
}

// FindOrCreate resolves a verified identity to a stored user, creating
// the row on first sight. Concurrent first requests for the same brand
// new subject race on the insert; the unique constraint decides the
// winner and the loser falls back to a read.
func (s *userService) FindOrCreate(id, email string, displayName *string) (*models.User, error) {
	user, err := s.userRepo.FindByID(id)
	if err == nil {
		if displayNameChanged(user.DisplayName, displayName) {
			return s.UpdateDisplayName(id, displayName)
		}
		return user, nil
	}
	if !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	user, err = s.CreateUser(id, email, displayName)
	if err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			// Lost the first-sight race; the row exists now.
			return s.userRepo.FindByID(id)
		}
		return nil, err
	}

	return user, nil
}

func (s *userService) DeleteUser(id string) error {
	// Physical delete; the database cascades the user's todos.
	return s.userRepo.Delete(id)
}

func displayNameChanged(stored, incoming *string) bool {
	if incoming == nil {
		return false
	}
	return stored == nil || *stored != *incoming
}

// Service errors
var (
	ErrUserIDRequired = errors.New("user id is required")
	ErrEmailRequired  = errors.New("email is required")
	ErrInvalidEmail   = errors.New("email address is not valid")
)
