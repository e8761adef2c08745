package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvmachado/tt-tournament-system/brackets"
	"github.com/pvmachado/tt-tournament-system/repositories"
)

const importTournamentID = 5

var (
	playerColumns     = []string{"id", "name", "ratings_central_id", "rating", "st_dev", "group_label", "user_id", "created_at"}
	linkColumns       = []string{"tournament_id", "player_id"}
	tournamentColumns = []string{"id", "name", "start_date", "end_date", "admin_user_id", "created_at"}
	returningColumns  = []string{"id", "created_at"}
)

func newImportServiceWithMock(t *testing.T) (ImportService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	userRepo := repositories.NewPostgresUserRepository(db)
	playerRepo := repositories.NewPostgresPlayerRepository(db)
	tournamentRepo := repositories.NewPostgresTournamentRepository(db)
	rosterRepo := repositories.NewPostgresRosterRepository(db)
	gameRepo := repositories.NewPostgresGameRepository(db)

	svc := NewImportService(
		db,
		tournamentRepo,
		playerRepo,
		rosterRepo,
		gameRepo,
		NewCredentialService(userRepo, nil),
		brackets.NewRoundRobinGenerator(),
		nil,
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	return svc, mock
}

func expectTournamentLookup(mock sqlmock.Sqlmock) {
	mock.ExpectQuery("FROM tournaments").
		WithArgs(importTournamentID).
		WillReturnRows(sqlmock.NewRows(tournamentColumns).
			AddRow(importTournamentID, "Spring Open", time.Now().Add(24*time.Hour), time.Now().Add(48*time.Hour), nil, time.Now()))
}

func rosterFile(rows ...string) io.Reader {
	return strings.NewReader("Code,ID,Club,Name,Rating,StDev,Events,Group\n" + strings.Join(rows, "\n") + "\n")
}

func TestImportRosterTournamentNotFound(t *testing.T) {
	svc, mock := newImportServiceWithMock(t)

	mock.ExpectQuery("FROM tournaments").
		WithArgs(importTournamentID).
		WillReturnError(sql.ErrNoRows)

	_, err := svc.ImportRoster(context.Background(), importTournamentID, rosterFile("X,1001,Club,Alice,1500,60,1,A"))
	assert.ErrorIs(t, err, ErrTournamentNotFound)
	assert.NoError(t, mock.ExpectationsWereMet(), "no transaction may be opened for a missing tournament")
}

func TestImportRosterRowErrorsRejectWholeBatch(t *testing.T) {
	svc, mock := newImportServiceWithMock(t)

	expectTournamentLookup(mock)

	_, err := svc.ImportRoster(context.Background(), importTournamentID, rosterFile(
		"X,1001,Club,Alice,1500,60,1,A",
		"X,not-a-number,Club,Broken,1500,60,1,A",
	))

	var validationErr *RosterValidationError
	require.ErrorAs(t, err, &validationErr)
	require.Len(t, validationErr.Rows, 1)
	assert.Equal(t, 3, validationErr.Rows[0].Line)

	// The valid row must not have been written either.
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportRosterEmptyFileIsNoop(t *testing.T) {
	svc, mock := newImportServiceWithMock(t)

	expectTournamentLookup(mock)

	summary, err := svc.ImportRoster(context.Background(), importTournamentID, strings.NewReader("Code,ID,Club,Name,Rating,StDev,Events,Group\n"))
	require.NoError(t, err)
	assert.Zero(t, summary.PlayersCreated)
	assert.Zero(t, summary.PlayersUpdated)
	assert.Zero(t, summary.LinksCreated)
	assert.Empty(t, summary.NewCredentials)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportRosterFullFlowCommits(t *testing.T) {
	svc, mock := newImportServiceWithMock(t)

	expectTournamentLookup(mock)
	mock.ExpectBegin()

	// Existing player 1001 is already persisted but not yet linked.
	mock.ExpectQuery("FROM players").
		WillReturnRows(sqlmock.NewRows(playerColumns).
			AddRow(1, "Old Name", 1001, 1700, 90, "B", 3, time.Now()))
	mock.ExpectQuery("SELECT tournament_id, player_id").
		WithArgs(importTournamentID).
		WillReturnRows(sqlmock.NewRows(linkColumns))

	// Candidate 1001: update mutable fields with the file's values.
	mock.ExpectExec("UPDATE players SET").
		WithArgs("Alice Souza", "A", 1850, 75, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO tournament_players").
		WithArgs(importTournamentID, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Candidate 2002 is new: account provisioning plus player creation.
	mock.ExpectQuery("WHERE user_name").
		WithArgs("player2002").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("INSERT INTO users").
		WillReturnRows(sqlmock.NewRows(returningColumns).AddRow(7, time.Now()))
	mock.ExpectQuery("INSERT INTO players").
		WillReturnRows(sqlmock.NewRows(returningColumns).AddRow(12, time.Now()))
	mock.ExpectExec("INSERT INTO tournament_players").
		WithArgs(importTournamentID, 12).
		WillReturnResult(sqlmock.NewResult(0, 1))

	// Final roster feeds the draw; the old schedule is discarded first.
	mock.ExpectQuery("JOIN players p ON").
		WithArgs(importTournamentID).
		WillReturnRows(sqlmock.NewRows(playerColumns).
			AddRow(1, "Alice Souza", 1001, 1850, 75, "A", 3, time.Now()).
			AddRow(12, "Bruno Lima", 2002, 1500, 60, "A", 7, time.Now()))
	mock.ExpectExec("DELETE FROM games").
		WithArgs(importTournamentID).
		WillReturnResult(sqlmock.NewResult(0, 3))
	mock.ExpectQuery("INSERT INTO games").
		WillReturnRows(sqlmock.NewRows(returningColumns).AddRow(100, time.Now()))

	mock.ExpectCommit()

	summary, err := svc.ImportRoster(context.Background(), importTournamentID, rosterFile(
		"X,1001,Club,Alice Souza,1850,75,12,A",
		"X,2002,Club,Bruno Lima,1500,60,3,A",
	))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.PlayersUpdated)
	assert.Equal(t, 1, summary.PlayersCreated)
	assert.Equal(t, 2, summary.LinksCreated)
	assert.Equal(t, 3, summary.GamesDeleted)
	assert.Equal(t, 1, summary.GamesGenerated)
	require.Len(t, summary.NewCredentials, 1)
	assert.Equal(t, "player2002", summary.NewCredentials[0].UserName)
	assert.Len(t, summary.NewCredentials[0].Password, DefaultPasswordLength)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportRosterDuplicateExternalIDLastWins(t *testing.T) {
	svc, mock := newImportServiceWithMock(t)

	expectTournamentLookup(mock)
	mock.ExpectBegin()

	mock.ExpectQuery("FROM players").
		WillReturnRows(sqlmock.NewRows(playerColumns).
			AddRow(1, "Old Name", 1001, 1700, 90, "A", 3, time.Now()))
	mock.ExpectQuery("SELECT tournament_id, player_id").
		WithArgs(importTournamentID).
		WillReturnRows(sqlmock.NewRows(linkColumns).AddRow(importTournamentID, 1))

	// Two rows share external id 1001: exactly one update, carrying the
	// last row's values.
	mock.ExpectExec("UPDATE players SET").
		WithArgs("Second Name", "A", 1500, 60, 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	mock.ExpectQuery("JOIN players p ON").
		WithArgs(importTournamentID).
		WillReturnRows(sqlmock.NewRows(playerColumns).
			AddRow(1, "Second Name", 1001, 1500, 60, "A", 3, time.Now()))
	mock.ExpectExec("DELETE FROM games").
		WithArgs(importTournamentID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	mock.ExpectCommit()

	summary, err := svc.ImportRoster(context.Background(), importTournamentID, rosterFile(
		"X,1001,Club,First Name,1400,80,1,A",
		"X,1001,Club,Second Name,1500,60,1,A",
	))
	require.NoError(t, err)

	assert.Equal(t, 1, summary.PlayersUpdated)
	assert.Zero(t, summary.PlayersCreated)
	assert.Zero(t, summary.LinksCreated)
	// A single linked player yields no games.
	assert.Zero(t, summary.GamesGenerated)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportRosterProvisioningFailureRollsBack(t *testing.T) {
	svc, mock := newImportServiceWithMock(t)

	expectTournamentLookup(mock)
	mock.ExpectBegin()

	mock.ExpectQuery("FROM players").
		WillReturnRows(sqlmock.NewRows(playerColumns))
	mock.ExpectQuery("SELECT tournament_id, player_id").
		WithArgs(importTournamentID).
		WillReturnRows(sqlmock.NewRows(linkColumns))

	mock.ExpectQuery("WHERE user_name").
		WithArgs("player2002").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("INSERT INTO users").
		WillReturnError(errors.New("users insert failed"))

	mock.ExpectRollback()

	_, err := svc.ImportRoster(context.Background(), importTournamentID, rosterFile(
		"X,2002,Club,Bruno Lima,1500,60,3,A",
	))

	var provErr *CredentialProvisioningError
	require.ErrorAs(t, err, &provErr)
	assert.Equal(t, 2002, provErr.RatingsCentralID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestImportRosterGameWriteFailureRollsBackEverything(t *testing.T) {
	svc, mock := newImportServiceWithMock(t)

	expectTournamentLookup(mock)
	mock.ExpectBegin()

	mock.ExpectQuery("FROM players").
		WillReturnRows(sqlmock.NewRows(playerColumns))
	mock.ExpectQuery("SELECT tournament_id, player_id").
		WithArgs(importTournamentID).
		WillReturnRows(sqlmock.NewRows(linkColumns))

	// Two brand new players in the same group provision and link cleanly.
	for i, rcID := range []int{2002, 2003} {
		mock.ExpectQuery("WHERE user_name").
			WithArgs(LoginNameForRatingsCentralID(rcID)).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectQuery("INSERT INTO users").
			WillReturnRows(sqlmock.NewRows(returningColumns).AddRow(10+i, time.Now()))
		mock.ExpectQuery("INSERT INTO players").
			WillReturnRows(sqlmock.NewRows(returningColumns).AddRow(20+i, time.Now()))
		mock.ExpectExec("INSERT INTO tournament_players").
			WithArgs(importTournamentID, 20+i).
			WillReturnResult(sqlmock.NewResult(0, 1))
	}

	mock.ExpectQuery("JOIN players p ON").
		WithArgs(importTournamentID).
		WillReturnRows(sqlmock.NewRows(playerColumns).
			AddRow(20, "Bruno Lima", 2002, 1500, 60, "A", 10, time.Now()).
			AddRow(21, "Carla Souza", 2003, 1600, 55, "A", 11, time.Now()))
	mock.ExpectExec("DELETE FROM games").
		WithArgs(importTournamentID).
		WillReturnResult(sqlmock.NewResult(0, 0))

	// The schedule write fails: every earlier account, player and link
	// write of this import must be rolled back with it.
	mock.ExpectQuery("INSERT INTO games").
		WillReturnError(errors.New("games insert failed"))

	mock.ExpectRollback()

	_, err := svc.ImportRoster(context.Background(), importTournamentID, rosterFile(
		"X,2002,Club,Bruno Lima,1500,60,3,A",
		"X,2003,Club,Carla Souza,1600,55,2,A",
	))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "games insert failed")
	assert.NoError(t, mock.ExpectationsWereMet())
}
