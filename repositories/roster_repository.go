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
	ErrRosterLinkConflict      = errors.New("player already linked to this tournament")
	ErrRosterPlayerInvalid     = errors.New("roster link player conflict or invalid")
	ErrRosterTournamentInvalid = errors.New("roster link tournament conflict or invalid")
)

// RosterRepository manages tournament_players, the association between a
// tournament and the players eligible for its draw.
type RosterRepository interface {
	Create(ctx context.Context, exec SQLExecutor, tp *models.TournamentPlayer) error
	ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.TournamentPlayer, error)
	ListPlayersByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Player, error)
}

type postgresRosterRepository struct {
	db *sql.DB
}

func NewPostgresRosterRepository(db *sql.DB) RosterRepository {
	return &postgresRosterRepository{db: db}
}

func (r *postgresRosterRepository) Create(ctx context.Context, exec SQLExecutor, tp *models.TournamentPlayer) error {
	query := `
		INSERT INTO tournament_players (tournament_id, player_id)
		VALUES ($1, $2)`

	_, err := exec.ExecContext(ctx, query, tp.TournamentID, tp.PlayerID)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23505": // unique_violation
				if pqErr.Constraint == "tournament_players_pkey" {
					return ErrRosterLinkConflict
				}
			case "23503": // foreign_key_violation
				switch pqErr.Constraint {
				case "tournament_players_player_id_fkey":
					return ErrRosterPlayerInvalid
				case "tournament_players_tournament_id_fkey":
					return ErrRosterTournamentInvalid
				}
			}
		}
		return fmt.Errorf("failed to create roster link: %w", err)
	}
	return nil
}

func (r *postgresRosterRepository) ListByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]models.TournamentPlayer, error) {
	query := `
		SELECT tournament_id, player_id
		FROM tournament_players
		WHERE tournament_id = $1
		ORDER BY player_id ASC`

	rows, err := exec.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster links for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	links := make([]models.TournamentPlayer, 0)
	for rows.Next() {
		var tp models.TournamentPlayer
		if scanErr := rows.Scan(&tp.TournamentID, &tp.PlayerID); scanErr != nil {
			return nil, fmt.Errorf("failed to scan roster link row: %w", scanErr)
		}
		links = append(links, tp)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roster link rows: %w", err)
	}
	return links, nil
}

// ListPlayersByTournament returns the full roster of a tournament. Inside
// an import transaction it sees the links staged earlier in that same
// transaction, which is what the draw generator must be fed.
func (r *postgresRosterRepository) ListPlayersByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) ([]*models.Player, error) {
	query := `
		SELECT p.id, p.name, p.ratings_central_id, p.rating, p.st_dev, p.group_label, p.user_id, p.created_at
		FROM tournament_players tp
		JOIN players p ON p.id = tp.player_id
		WHERE tp.tournament_id = $1
		ORDER BY p.id ASC`

	rows, err := exec.QueryContext(ctx, query, tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roster players for tournament %d: %w", tournamentID, err)
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
			return nil, fmt.Errorf("failed to scan roster player row: %w", scanErr)
		}
		players = append(players, &p)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating roster player rows: %w", err)
	}
	return players, nil
}
