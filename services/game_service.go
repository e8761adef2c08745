package services

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/pvmachado/tt-tournament-system/models"
	"github.com/pvmachado/tt-tournament-system/repositories"
)

type GameService interface {
	ListGamesByTournament(ctx context.Context, tournamentID int, onlyPlayed bool) ([]*models.Game, error)
	ListGamesByPlayer(ctx context.Context, playerID int) ([]*models.Game, error)
	UpdateScores(ctx context.Context, tournamentID int, updates []ScoreUpdate) (int, error)
	ExportResultsCSV(ctx context.Context, tournamentID int, onlyPlayed bool) ([]byte, error)
}

type ScoreUpdate struct {
	GameID int `json:"game_id"`
	Score1 int `json:"score1"`
	Score2 int `json:"score2"`
}

type gameService struct {
	db             *sql.DB
	gameRepo       repositories.GameRepository
	tournamentRepo repositories.TournamentRepository
	logger         *slog.Logger
}

func NewGameService(
	db *sql.DB,
	gameRepo repositories.GameRepository,
	tournamentRepo repositories.TournamentRepository,
	logger *slog.Logger,
) GameService {
	return &gameService{
		db:             db,
		gameRepo:       gameRepo,
		tournamentRepo: tournamentRepo,
		logger:         logger,
	}
}

func (s *gameService) ListGamesByTournament(ctx context.Context, tournamentID int, onlyPlayed bool) ([]*models.Game, error) {
	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to fetch tournament %d: %w", tournamentID, err)
	}

	games, err := s.gameRepo.ListByTournament(ctx, tournamentID, onlyPlayed)
	if err != nil {
		return nil, fmt.Errorf("failed to list games for tournament %d: %w", tournamentID, err)
	}
	return games, nil
}

func (s *gameService) ListGamesByPlayer(ctx context.Context, playerID int) ([]*models.Game, error) {
	games, err := s.gameRepo.ListByPlayer(ctx, playerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list games for player %d: %w", playerID, err)
	}
	return games, nil
}

// UpdateScores records results for a batch of games in one transaction.
// Every update is validated before any write, so a bad entry rejects the
// whole batch. Returns the number of games updated.
func (s *gameService) UpdateScores(ctx context.Context, tournamentID int, updates []ScoreUpdate) (int, error) {
	for _, u := range updates {
		if u.Score1 < 0 || u.Score2 < 0 {
			return 0, fmt.Errorf("game %d: %w", u.GameID, ErrNegativeScore)
		}
	}
	if len(updates) == 0 {
		return 0, nil
	}

	if _, err := s.tournamentRepo.GetByID(ctx, tournamentID); err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return 0, ErrTournamentNotFound
		}
		return 0, fmt.Errorf("failed to fetch tournament %d: %w", tournamentID, err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin score update transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				s.logger.Error("score update rollback failed", slog.Any("error", rbErr))
			}
		}
	}()

	for _, u := range updates {
		if err := s.gameRepo.UpdateScores(ctx, tx, u.GameID, u.Score1, u.Score2); err != nil {
			if errors.Is(err, repositories.ErrGameNotFound) {
				return 0, fmt.Errorf("game %d: %w", u.GameID, ErrGameNotFound)
			}
			return 0, fmt.Errorf("failed to update scores for game %d: %w", u.GameID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit score updates: %w", err)
	}
	committed = true

	s.logger.Info("recorded game results",
		slog.Int("tournament_id", tournamentID),
		slog.Int("games_updated", len(updates)),
	)
	return len(updates), nil
}

// ExportResultsCSV renders the tournament schedule as CSV. Unplayed
// games carry empty score cells when they are included.
func (s *gameService) ExportResultsCSV(ctx context.Context, tournamentID int, onlyPlayed bool) ([]byte, error) {
	games, err := s.ListGamesByTournament(ctx, tournamentID, onlyPlayed)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"Player1", "Score1", "Player2", "Score2", "Group", "Date"}); err != nil {
		return nil, fmt.Errorf("failed to write export header: %w", err)
	}
	for _, g := range games {
		record := []string{
			playerDisplayName(g.Player1, g.Player1ID),
			scoreCell(g.Score1),
			playerDisplayName(g.Player2, g.Player2ID),
			scoreCell(g.Score2),
			g.Group,
			g.ScheduledAt.Format("2006-01-02"),
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write export row for game %d: %w", g.ID, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush export: %w", err)
	}
	return buf.Bytes(), nil
}

func playerDisplayName(p *models.Player, fallbackID int) string {
	if p != nil && p.Name != "" {
		return p.Name
	}
	return fmt.Sprintf("Player %d", fallbackID)
}

func scoreCell(score *int) string {
	if score == nil {
		return ""
	}
	return strconv.Itoa(*score)
}
