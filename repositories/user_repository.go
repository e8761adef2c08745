package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/pvmachado/tt-tournament-system/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserNameConflict  = errors.New("user name conflict")
	ErrUserEmailConflict = errors.New("user email conflict")
	ErrUserRoleInvalid   = errors.New("user role invalid")
)

type UserRepository interface {
	Create(ctx context.Context, exec SQLExecutor, user *models.User) error
	GetByID(ctx context.Context, id int) (*models.User, error)
	GetByUserName(ctx context.Context, exec SQLExecutor, userName string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

type postgresUserRepository struct {
	db *sql.DB
}

func NewPostgresUserRepository(db *sql.DB) UserRepository {
	return &postgresUserRepository{db: db}
}

func (r *postgresUserRepository) Create(ctx context.Context, exec SQLExecutor, user *models.User) error {
	query := `
		INSERT INTO users (user_name, email, password_hash, role)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		user.UserName,
		user.Email,
		user.PasswordHash,
		user.Role,
	).Scan(&user.ID, &user.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // unique_violation
				if pqErr.Constraint == "users_user_name_key" {
					return ErrUserNameConflict
				}
				if pqErr.Constraint == "users_email_key" {
					return ErrUserEmailConflict
				}
			case "23514": // check_violation
				if pqErr.Constraint == "chk_users_role" {
					return ErrUserRoleInvalid
				}
			}
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *postgresUserRepository) GetByID(ctx context.Context, id int) (*models.User, error) {
	query := `
		SELECT id, user_name, email, password_hash, role, created_at
		FROM users
		WHERE id = $1`
	return r.scanUser(ctx, r.db, query, id)
}

// GetByUserName runs on the given executor so the import transaction sees
// accounts it has itself staged.
func (r *postgresUserRepository) GetByUserName(ctx context.Context, exec SQLExecutor, userName string) (*models.User, error) {
	query := `
		SELECT id, user_name, email, password_hash, role, created_at
		FROM users
		WHERE user_name = $1`
	return r.scanUser(ctx, exec, query, userName)
}

func (r *postgresUserRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, user_name, email, password_hash, role, created_at
		FROM users
		WHERE email = $1`
	return r.scanUser(ctx, r.db, query, email)
}

func (r *postgresUserRepository) scanUser(ctx context.Context, exec SQLExecutor, query string, args ...interface{}) (*models.User, error) {
	user := &models.User{}
	err := exec.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.UserName,
		&user.Email,
		&user.PasswordHash,
		&user.Role,
		&user.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}
	return user, nil
}
