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
	ErrPlayerNotFound           = errors.New("player not found")
	ErrPlayerExternalIDConflict = errors.New("player ratings central id conflict")
	ErrPlayerUserInvalid        = errors.New("player user reference conflict or invalid")
)

type PlayerRepository interface {
	Create(ctx context.Context, exec SQLExecutor, player *models.Player) error
	Update(ctx context.Context, exec SQLExecutor, player *models.Player) error
	ListAll(ctx context.Context, exec SQLExecutor) ([]*models.Player, error)
	GetByID(ctx context.Context, id int) (*models.Player, error)
	GetByUserID(ctx context.Context, userID int) (*models.Player, error)
}

type postgresPlayerRepository struct {
	db *sql.DB
}

func NewPostgresPlayerRepository(db *sql.DB) PlayerRepository {
	return &postgresPlayerRepository{db: db}
}

func (r *postgresPlayerRepository) Create(ctx context.Context, exec SQLExecutor, player *models.Player) error {
	query := `
		INSERT INTO players (name, ratings_central_id, rating, st_dev, group_label, user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		player.Name,
		player.RatingsCentralID,
		player.Rating,
		player.StDev,
		player.Group,
		player.UserID,
	).Scan(&player.ID, &player.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // unique_violation
				if pqErr.Constraint == "players_ratings_central_id_key" {
					return ErrPlayerExternalIDConflict
				}
			case "23503": // foreign_key_violation
				if pqErr.Constraint == "players_user_id_fkey" {
					return ErrPlayerUserInvalid
				}
			}
		}
		return fmt.Errorf("failed to create player: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields only: name, group, rating and
// deviation. The ratings central id and account association never change
// through this path.
func (r *postgresPlayerRepository) Update(ctx context.Context, exec SQLExecutor, player *models.Player) error {
	query := `
		UPDATE players SET
			name = $1,
			group_label = $2,
			rating = $3,
			st_dev = $4
		WHERE id = $5`

	result, err := exec.ExecContext(ctx, query,
		player.Name,
		player.Group,
		player.Rating,
		player.StDev,
		player.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update player %d: %w", player.ID, err)
	}
	return checkAffectedRows(result, ErrPlayerNotFound)
}

func (r *postgresPlayerRepository) ListAll(ctx context.Context, exec SQLExecutor) ([]*models.Player, error) {
	query := `
		SELECT id, name, ratings_central_id, rating, st_dev, group_label, user_id, created_at
		FROM players
		ORDER BY id ASC`

	rows, err := exec.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list players: %w", err)
	}
	defer rows.Close()

	players := make([]*models.Player, 0)
	for rows.Next() {
		var p models.Player
		if scanErr := rows.Scan(
			&p.ID,
			&p.Name,
			&p.RatingsCentralID,
			&p.Rating,
			&p.StDev,
			&p.Group,
			&p.UserID,
			&p.CreatedAt,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", scanErr)
		}
		players = append(players, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating player rows: %w", err)
	}
	return players, nil
}

func (r *postgresPlayerRepository) GetByID(ctx context.Context, id int) (*models.Player, error) {
	query := `
		SELECT id, name, ratings_central_id, rating, st_dev, group_label, user_id, created_at
		FROM players
		WHERE id = $1`
	return r.scanPlayer(ctx, query, id)
}

func (r *postgresPlayerRepository) GetByUserID(ctx context.Context, userID int) (*models.Player, error) {
	query := `
		SELECT id, name, ratings_central_id, rating, st_dev, group_label, user_id, created_at
		FROM players
		WHERE user_id = $1`
	return r.scanPlayer(ctx, query, userID)
}

func (r *postgresPlayerRepository) scanPlayer(ctx context.Context, query string, args ...interface{}) (*models.Player, error) {
	p := &models.Player{}
	err := r.db.QueryRowContext(ctx, query, args...).Scan(
		&p.ID,
		&p.Name,
		&p.RatingsCentralID,
		&p.Rating,
		&p.StDev,
		&p.Group,
		&p.UserID,
		&p.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrPlayerNotFound
		}
		return nil, fmt.Errorf("failed to scan player: %w", err)
	}
	return p, nil
}
