package services

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvmachado/tt-tournament-system/repositories"
)

func newTournamentServiceWithMock(t *testing.T) (TournamentService, sqlmock.Sqlmock) {
	t.Helper()

	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := NewTournamentService(
		db,
		repositories.NewPostgresTournamentRepository(db),
		repositories.NewPostgresRosterRepository(db),
		repositories.NewPostgresGameRepository(db),
	)
	return svc, mock
}

func TestCreateTournamentValidation(t *testing.T) {
	svc, mock := newTournamentServiceWithMock(t)

	start := time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)

	_, err := svc.CreateTournament(context.Background(), CreateTournamentInput{
		Name:      "   ",
		StartDate: start,
		EndDate:   start.Add(48 * time.Hour),
	})
	assert.ErrorIs(t, err, ErrTournamentNameRequired)

	_, err = svc.CreateTournament(context.Background(), CreateTournamentInput{
		Name:      "Spring Open",
		StartDate: start,
		EndDate:   start,
	})
	assert.ErrorIs(t, err, ErrTournamentInvalidDates)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTournamentPersists(t *testing.T) {
	svc, mock := newTournamentServiceWithMock(t)

	start := time.Date(2026, time.March, 14, 0, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)

	mock.ExpectQuery("INSERT INTO tournaments").
		WithArgs("Spring Open", start, end, nil).
		WillReturnRows(sqlmock.NewRows(returningColumns).AddRow(importTournamentID, time.Now()))

	tournament, err := svc.CreateTournament(context.Background(), CreateTournamentInput{
		Name:      "Spring Open",
		StartDate: start,
		EndDate:   end,
	})
	require.NoError(t, err)
	assert.Equal(t, importTournamentID, tournament.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetTournamentDetailsLoadsRosterAndSchedule(t *testing.T) {
	svc, mock := newTournamentServiceWithMock(t)

	// Roster and schedule load concurrently, so arrival order varies.
	mock.MatchExpectationsInOrder(false)

	expectTournamentLookup(mock)
	mock.ExpectQuery("JOIN players p ON").
		WithArgs(importTournamentID).
		WillReturnRows(sqlmock.NewRows(playerColumns).
			AddRow(1, "Alice Souza", 1001, 1850, 75, "A", 3, time.Now()).
			AddRow(12, "Bruno Lima", 2002, 1500, 60, "A", 7, time.Now()))
	mock.ExpectQuery("FROM games").
		WithArgs(importTournamentID).
		WillReturnRows(sqlmock.NewRows(gameColumns).
			AddRow(100, importTournamentID, 1, 12, "A", 1, nil, nil, time.Now(), time.Now(), "Alice Souza", "Bruno Lima"))

	tournament, err := svc.GetTournamentDetails(context.Background(), importTournamentID)
	require.NoError(t, err)

	require.Len(t, tournament.Players, 2)
	assert.Equal(t, "Alice Souza", tournament.Players[0].Name)
	require.Len(t, tournament.Games, 1)
	assert.Equal(t, "Bruno Lima", tournament.Games[0].Player2.Name)

	assert.NoError(t, mock.ExpectationsWereMet())
}
