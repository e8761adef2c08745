package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"github.com/pvmachado/tt-tournament-system/models"
)

var (
	ErrGameNotFound           = errors.New("game not found")
	ErrGamePlayerInvalid      = errors.New("game player conflict or invalid")
	ErrGameTournamentInvalid  = errors.New("game tournament conflict or invalid")
	ErrGamePlayersNotDistinct = errors.New("game players must be distinct")
)

type GameRepository interface {
	Create(ctx context.Context, exec SQLExecutor, game *models.Game) error
	DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int64, error)
	ListByTournament(ctx context.Context, tournamentID int, onlyPlayed bool) ([]*models.Game, error)
	ListByPlayer(ctx context.Context, playerID int) ([]*models.Game, error)
	UpdateScores(ctx context.Context, exec SQLExecutor, gameID int, score1, score2 int) error
}

type postgresGameRepository struct {
	db *sql.DB
}

func NewPostgresGameRepository(db *sql.DB) GameRepository {
	return &postgresGameRepository{db: db}
}

func (r *postgresGameRepository) Create(ctx context.Context, exec SQLExecutor, game *models.Game) error {
	query := `
		INSERT INTO games (tournament_id, player1_id, player2_id, group_label, sequence, score1, score2, scheduled_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	err := exec.QueryRowContext(ctx, query,
		game.TournamentID,
		game.Player1ID,
		game.Player2ID,
		game.Group,
		game.Sequence,
		game.Score1,
		game.Score2,
		game.ScheduledAt,
	).Scan(&game.ID, &game.CreatedAt)

	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok {
			switch pqErr.Code {
			case "23503": // foreign_key_violation
				switch pqErr.Constraint {
				case "games_player1_id_fkey", "games_player2_id_fkey":
					return ErrGamePlayerInvalid
				case "games_tournament_id_fkey":
					return ErrGameTournamentInvalid
				}
			case "23514": // check_violation
				if pqErr.Constraint == "chk_games_distinct_players" {
					return ErrGamePlayersNotDistinct
				}
			}
		}
		return fmt.Errorf("failed to create game: %w", err)
	}
	return nil
}

// DeleteByTournament discards the whole schedule of a tournament. The
// import runs it just before regenerating the draw, in the same
// transaction as the inserts.
func (r *postgresGameRepository) DeleteByTournament(ctx context.Context, exec SQLExecutor, tournamentID int) (int64, error) {
	query := `DELETE FROM games WHERE tournament_id = $1`
	result, err := exec.ExecContext(ctx, query, tournamentID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete games for tournament %d: %w", tournamentID, err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check deleted games for tournament %d: %w", tournamentID, err)
	}
	return deleted, nil
}

func (r *postgresGameRepository) ListByTournament(ctx context.Context, tournamentID int, onlyPlayed bool) ([]*models.Game, error) {
	var queryBuilder strings.Builder
	queryBuilder.WriteString(`
		SELECT
			g.id, g.tournament_id, g.player1_id, g.player2_id, g.group_label, g.sequence,
			g.score1, g.score2, g.scheduled_at, g.created_at,
			p1.name, p2.name
		FROM games g
		JOIN players p1 ON p1.id = g.player1_id
		JOIN players p2 ON p2.id = g.player2_id
		WHERE g.tournament_id = $1`)

	if onlyPlayed {
		queryBuilder.WriteString(" AND g.score1 IS NOT NULL AND g.score2 IS NOT NULL")
	}
	queryBuilder.WriteString(" ORDER BY g.group_label ASC, g.sequence ASC")

	rows, err := r.db.QueryContext(ctx, queryBuilder.String(), tournamentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list games for tournament %d: %w", tournamentID, err)
	}
	defer rows.Close()

	return scanGamesWithNames(rows)
}

func (r *postgresGameRepository) ListByPlayer(ctx context.Context, playerID int) ([]*models.Game, error) {
	query := `
		SELECT
			g.id, g.tournament_id, g.player1_id, g.player2_id, g.group_label, g.sequence,
			g.score1, g.score2, g.scheduled_at, g.created_at,
			p1.name, p2.name
		FROM games g
		JOIN players p1 ON p1.id = g.player1_id
		JOIN players p2 ON p2.id = g.player2_id
		WHERE g.player1_id = $1 OR g.player2_id = $1
		ORDER BY g.tournament_id DESC, g.group_label ASC, g.sequence ASC`

	rows, err := r.db.QueryContext(ctx, query, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list games for player %d: %w", playerID, err)
	}
	defer rows.Close()

	return scanGamesWithNames(rows)
}

func (r *postgresGameRepository) UpdateScores(ctx context.Context, exec SQLExecutor, gameID int, score1, score2 int) error {
	query := `UPDATE games SET score1 = $1, score2 = $2 WHERE id = $3`
	result, err := exec.ExecContext(ctx, query, score1, score2, gameID)
	if err != nil {
		return fmt.Errorf("failed to update scores for game %d: %w", gameID, err)
	}
	return checkAffectedRows(result, ErrGameNotFound)
}

func scanGamesWithNames(rows *sql.Rows) ([]*models.Game, error) {
	games := make([]*models.Game, 0)
	for rows.Next() {
		var g models.Game
		var p1Name, p2Name string
		if scanErr := rows.Scan(
			&g.ID,
			&g.TournamentID,
			&g.Player1ID,
			&g.Player2ID,
			&g.Group,
			&g.Sequence,
			&g.Score1,
			&g.Score2,
			&g.ScheduledAt,
			&g.CreatedAt,
			&p1Name,
			&p2Name,
		); scanErr != nil {
			return nil, fmt.Errorf("failed to scan game row: %w", scanErr)
		}
		g.Player1 = &models.Player{ID: g.Player1ID, Name: p1Name}
		g.Player2 = &models.Player{ID: g.Player2ID, Name: p2Name}
		games = append(games, &g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating game rows: %w", err)
	}
	return games, nil
}
