package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/pvmachado/tt-tournament-system/models"
	"github.com/pvmachado/tt-tournament-system/repositories"
)

// AuthService verifies credentials for both kinds of accounts: seeded
// admins log in with their email, imported players with the generated
// "player{id}" login name.
type AuthService interface {
	Login(ctx context.Context, input LoginInput) (*models.User, error)
	CreateAdmin(ctx context.Context, input CreateAdminInput) (*models.User, error)
	EnsureAdmin(ctx context.Context, email, password string) error
}

type LoginInput struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type CreateAdminInput struct {
	UserName string `json:"user_name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type authService struct {
	db       *sql.DB
	userRepo repositories.UserRepository
	logger   *slog.Logger
}

func NewAuthService(db *sql.DB, userRepo repositories.UserRepository, logger *slog.Logger) AuthService {
	return &authService{
		db:       db,
		userRepo: userRepo,
		logger:   logger,
	}
}

func (s *authService) Login(ctx context.Context, input LoginInput) (*models.User, error) {
	var (
		user *models.User
		err  error
	)
	if strings.Contains(input.Login, "@") {
		user, err = s.userRepo.GetByEmail(ctx, input.Login)
	} else {
		user, err = s.userRepo.GetByUserName(ctx, s.db, input.Login)
	}
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up account %q: %w", input.Login, err)
	}

	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password))
	if err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to compare password hash: %w", err)
	}

	user.PasswordHash = ""
	return user, nil
}

// CreateAdmin registers a new administrator account. Only existing
// admins may reach it through the API.
func (s *authService) CreateAdmin(ctx context.Context, input CreateAdminInput) (*models.User, error) {
	if input.UserName == "" || input.Email == "" {
		return nil, fmt.Errorf("user name and email are required: %w", ErrValidationFailed)
	}
	if len(input.Password) < DefaultPasswordLength {
		return nil, fmt.Errorf("admin password must be at least %d characters: %w", DefaultPasswordLength, ErrPasswordTooShort)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	admin := &models.User{
		UserName:     input.UserName,
		Email:        input.Email,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}
	if err := s.userRepo.Create(ctx, s.db, admin); err != nil {
		switch {
		case errors.Is(err, repositories.ErrUserNameConflict):
			return nil, ErrUserNameConflict
		case errors.Is(err, repositories.ErrUserEmailConflict):
			return nil, ErrUserEmailConflict
		}
		return nil, fmt.Errorf("failed to create admin account: %w", err)
	}

	admin.PasswordHash = ""
	return admin, nil
}

// EnsureAdmin seeds the configured admin account on startup. Calling it
// again with the same email is a no-op, so restarts are safe.
func (s *authService) EnsureAdmin(ctx context.Context, email, password string) error {
	if email == "" || password == "" {
		return nil
	}

	_, err := s.userRepo.GetByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return fmt.Errorf("failed to look up admin account: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash admin password: %w", err)
	}

	admin := &models.User{
		UserName:     adminUserNameFromEmail(email),
		Email:        email,
		PasswordHash: string(hash),
		Role:         models.RoleAdmin,
	}
	if err := s.userRepo.Create(ctx, s.db, admin); err != nil {
		// A concurrent start may have seeded the account already.
		if errors.Is(err, repositories.ErrUserEmailConflict) || errors.Is(err, repositories.ErrUserNameConflict) {
			return nil
		}
		return fmt.Errorf("failed to create admin account: %w", err)
	}

	s.logger.Info("seeded admin account", slog.Int("user_id", admin.ID), slog.String("email", email))
	return nil
}

func adminUserNameFromEmail(email string) string {
	if at := strings.IndexByte(email, '@'); at > 0 {
		return email[:at]
	}
	return email
}
