package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/pvmachado/tt-tournament-system/models"
	"github.com/pvmachado/tt-tournament-system/repositories"
)

type TournamentService interface {
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error)
	ListTournaments(ctx context.Context) ([]models.Tournament, error)
	GetTournamentDetails(ctx context.Context, id int) (*models.Tournament, error)
}

type CreateTournamentInput struct {
	Name        string    `json:"name"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	AdminUserID *int      `json:"-"`
}

type tournamentService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	rosterRepo     repositories.RosterRepository
	gameRepo       repositories.GameRepository
}

func NewTournamentService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	rosterRepo repositories.RosterRepository,
	gameRepo repositories.GameRepository,
) TournamentService {
	return &tournamentService{
		db:             db,
		tournamentRepo: tournamentRepo,
		rosterRepo:     rosterRepo,
		gameRepo:       gameRepo,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrTournamentNameRequired
	}
	if !input.EndDate.After(input.StartDate) {
		return nil, ErrTournamentInvalidDates
	}

	tournament := &models.Tournament{
		Name:        name,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		AdminUserID: input.AdminUserID,
	}
	if err := s.tournamentRepo.Create(ctx, tournament); err != nil {
		return nil, fmt.Errorf("failed to create tournament: %w", err)
	}
	return tournament, nil
}

func (s *tournamentService) GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to fetch tournament %d: %w", id, err)
	}
	return tournament, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	return tournaments, nil
}

// GetTournamentDetails loads the tournament with its linked roster and
// full schedule. Roster and games are independent reads, so they run
// concurrently.
func (s *tournamentService) GetTournamentDetails(ctx context.Context, id int) (*models.Tournament, error) {
	tournament, err := s.GetTournamentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		players, err := s.rosterRepo.ListPlayersByTournament(gCtx, s.db, id)
		if err != nil {
			return fmt.Errorf("failed to fetch roster for tournament %d: %w", id, err)
		}
		tournament.Players = make([]models.Player, 0, len(players))
		for _, p := range players {
			tournament.Players = append(tournament.Players, *p)
		}
		return nil
	})

	g.Go(func() error {
		games, err := s.gameRepo.ListByTournament(gCtx, id, false)
		if err != nil {
			return fmt.Errorf("failed to fetch games for tournament %d: %w", id, err)
		}
		tournament.Games = make([]models.Game, 0, len(games))
		for _, game := range games {
			tournament.Games = append(tournament.Games, *game)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tournament, nil
}
