package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/pvmachado/tt-tournament-system/brackets"
	"github.com/pvmachado/tt-tournament-system/models"
	"github.com/pvmachado/tt-tournament-system/repositories"
	"github.com/pvmachado/tt-tournament-system/roster"
)

// ImportSummary is returned after a committed import. NewCredentials
// holds the one-time plaintext passwords of accounts provisioned by this
// batch; the caller is responsible for disclosing them.
type ImportSummary struct {
	TournamentID   int                  `json:"tournament_id"`
	NewCredentials []models.Credentials `json:"new_credentials"`
	PlayersCreated int                  `json:"players_created"`
	PlayersUpdated int                  `json:"players_updated"`
	LinksCreated   int                  `json:"links_created"`
	GamesDeleted   int                  `json:"games_deleted"`
	GamesGenerated int                  `json:"games_generated"`
}

// ImportService runs a roster import as one atomic unit of work: parse,
// reconcile against persisted players, provision accounts for new ones,
// link the roster to the tournament and regenerate the round-robin draw.
// Either everything commits or nothing does.
type ImportService interface {
	ImportRoster(ctx context.Context, tournamentID int, file io.Reader) (*ImportSummary, error)
}

type importService struct {
	db             *sql.DB
	tournamentRepo repositories.TournamentRepository
	playerRepo     repositories.PlayerRepository
	rosterRepo     repositories.RosterRepository
	gameRepo       repositories.GameRepository
	credentials    CredentialService
	drawGenerator  brackets.DrawGenerator
	hub            *brackets.Hub
	logger         *slog.Logger
}

func NewImportService(
	db *sql.DB,
	tournamentRepo repositories.TournamentRepository,
	playerRepo repositories.PlayerRepository,
	rosterRepo repositories.RosterRepository,
	gameRepo repositories.GameRepository,
	credentials CredentialService,
	drawGenerator brackets.DrawGenerator,
	hub *brackets.Hub,
	logger *slog.Logger,
) ImportService {
	return &importService{
		db:             db,
		tournamentRepo: tournamentRepo,
		playerRepo:     playerRepo,
		rosterRepo:     rosterRepo,
		gameRepo:       gameRepo,
		credentials:    credentials,
		drawGenerator:  drawGenerator,
		hub:            hub,
		logger:         logger,
	}
}

func (s *importService) ImportRoster(ctx context.Context, tournamentID int, file io.Reader) (*ImportSummary, error) {
	tournament, err := s.tournamentRepo.GetByID(ctx, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}

	parsed, err := roster.Parse(file)
	if err != nil {
		return nil, err
	}
	// Any row error rejects the whole batch before a single write.
	if len(parsed.Errors) > 0 {
		return nil, &RosterValidationError{Rows: parsed.Errors}
	}
	if len(parsed.Candidates) == 0 {
		// Valid no-op: nothing to reconcile, nothing touched.
		return &ImportSummary{TournamentID: tournamentID, NewCredentials: []models.Credentials{}}, nil
	}

	candidates := dedupeCandidates(parsed.Candidates)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin import transaction: %w", err)
	}
	committed := false
	defer func() {
		if committed {
			return
		}
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			s.logger.Error("import rollback failed", slog.Int("tournament_id", tournamentID), slog.Any("error", rbErr))
		}
	}()

	summary, err := s.runImport(ctx, tx, tournament, candidates)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit import for tournament %d: %w", tournamentID, err)
	}
	committed = true

	s.logger.Info("roster import committed",
		slog.Int("tournament_id", tournamentID),
		slog.Int("players_created", summary.PlayersCreated),
		slog.Int("players_updated", summary.PlayersUpdated),
		slog.Int("links_created", summary.LinksCreated),
		slog.Int("games_generated", summary.GamesGenerated),
	)

	if s.hub != nil {
		s.hub.BroadcastToRoom(fmt.Sprintf("%d", tournamentID), brackets.Message{
			Type:    "SCHEDULE_UPDATED",
			RoomID:  fmt.Sprintf("%d", tournamentID),
			Payload: summary,
		})
	}

	return summary, nil
}

// runImport performs every read and write of one import on the given
// transaction, so the roster snapshot it reconciles against is the same
// one the commit applies to.
func (s *importService) runImport(ctx context.Context, tx *sql.Tx, tournament *models.Tournament, candidates []roster.Candidate) (*ImportSummary, error) {
	summary := &ImportSummary{
		TournamentID:   tournament.ID,
		NewCredentials: []models.Credentials{},
	}

	existing, err := s.playerRepo.ListAll(ctx, tx)
	if err != nil {
		return nil, err
	}
	byExternalID := make(map[int]*models.Player, len(existing))
	for _, p := range existing {
		byExternalID[p.RatingsCentralID] = p
	}

	links, err := s.rosterRepo.ListByTournament(ctx, tx, tournament.ID)
	if err != nil {
		return nil, err
	}
	linked := make(map[int]bool, len(links))
	for _, l := range links {
		linked[l.PlayerID] = true
	}

	for _, c := range candidates {
		player, known := byExternalID[c.RatingsCentralID]
		if known {
			player.Name = c.Name
			player.Group = c.Group
			player.Rating = c.Rating
			player.StDev = c.StDev
			if err := s.playerRepo.Update(ctx, tx, player); err != nil {
				return nil, err
			}
			summary.PlayersUpdated++
		} else {
			prov, err := s.credentials.Provision(ctx, tx, c.RatingsCentralID)
			if err != nil {
				return nil, &CredentialProvisioningError{RatingsCentralID: c.RatingsCentralID, Err: err}
			}
			player = &models.Player{
				Name:             c.Name,
				RatingsCentralID: c.RatingsCentralID,
				Rating:           c.Rating,
				StDev:            c.StDev,
				Group:            c.Group,
				UserID:           prov.User.ID,
			}
			if err := s.playerRepo.Create(ctx, tx, player); err != nil {
				return nil, err
			}
			byExternalID[c.RatingsCentralID] = player
			summary.PlayersCreated++
			if prov.Created {
				summary.NewCredentials = append(summary.NewCredentials, models.Credentials{
					UserName: prov.User.UserName,
					Password: prov.PlainPassword,
				})
			}
		}

		// Players dropped from a later file stay linked; the reconciler
		// only ever adds links.
		if !linked[player.ID] {
			tp := &models.TournamentPlayer{TournamentID: tournament.ID, PlayerID: player.ID}
			if err := s.rosterRepo.Create(ctx, tx, tp); err != nil {
				return nil, err
			}
			linked[player.ID] = true
			summary.LinksCreated++
		}
	}

	// The draw is fed the roster as this transaction will commit it,
	// including links staged above.
	finalRoster, err := s.rosterRepo.ListPlayersByTournament(ctx, tx, tournament.ID)
	if err != nil {
		return nil, err
	}

	deleted, err := s.gameRepo.DeleteByTournament(ctx, tx, tournament.ID)
	if err != nil {
		return nil, err
	}
	summary.GamesDeleted = int(deleted)

	pairings, err := s.drawGenerator.GenerateDraw(ctx, brackets.GenerateDrawParams{
		Tournament: tournament,
		Players:    finalRoster,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to generate draw for tournament %d: %w", tournament.ID, err)
	}

	scheduledAt := tournament.StartDate
	if time.Now().After(scheduledAt) {
		scheduledAt = time.Now()
	}
	for _, pairing := range pairings {
		game := &models.Game{
			TournamentID: tournament.ID,
			Player1ID:    pairing.Player1ID,
			Player2ID:    pairing.Player2ID,
			Group:        pairing.Group,
			Sequence:     pairing.Sequence,
			ScheduledAt:  scheduledAt,
		}
		if err := s.gameRepo.Create(ctx, tx, game); err != nil {
			return nil, err
		}
		summary.GamesGenerated++
	}

	return summary, nil
}

// dedupeCandidates collapses rows sharing an external id into a single
// candidate at the first row's position, with the last row's values
// winning for the mutable fields.
func dedupeCandidates(candidates []roster.Candidate) []roster.Candidate {
	position := make(map[int]int, len(candidates))
	out := make([]roster.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if i, seen := position[c.RatingsCentralID]; seen {
			out[i] = c
			continue
		}
		position[c.RatingsCentralID] = len(out)
		out = append(out, c)
	}
	return out
}
