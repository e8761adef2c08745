package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pvmachado/tt-tournament-system/roster"
	"github.com/pvmachado/tt-tournament-system/services"
)

type stubImportService struct {
	summary *services.ImportSummary
	err     error
}

func (s *stubImportService) ImportRoster(_ context.Context, tournamentID int, _ io.Reader) (*services.ImportSummary, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := *s.summary
	out.TournamentID = tournamentID
	return &out, nil
}

func postRoster(t *testing.T, handler *ImportHandler, body string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", "roster.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(body))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	router := chi.NewRouter()
	router.Post("/tournaments/{tournamentID}/roster", handler.ImportRoster)

	req := httptest.NewRequest(http.MethodPost, "/tournaments/5/roster", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestImportRosterEndpointReturnsSummary(t *testing.T) {
	stub := &stubImportService{summary: &services.ImportSummary{
		PlayersCreated: 2,
		GamesGenerated: 1,
	}}
	handler := NewImportHandler(stub, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := postRoster(t, handler, "header\nrow")
	require.Equal(t, http.StatusOK, rec.Code)

	var response struct {
		Summary services.ImportSummary `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	assert.Equal(t, 5, response.Summary.TournamentID)
	assert.Equal(t, 2, response.Summary.PlayersCreated)
}

func TestImportRosterEndpointMapsRowErrorsTo422(t *testing.T) {
	stub := &stubImportService{err: &services.RosterValidationError{
		Rows: []roster.RowError{
			{Line: 3, Message: "row has 5 columns, expected at least 8"},
			{Line: 7, Message: "invalid ratings central id \"abc\""},
		},
	}}
	handler := NewImportHandler(stub, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := postRoster(t, handler, "header\nbad")
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	var response struct {
		Error []struct {
			Line    int    `json:"line"`
			Message string `json:"message"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &response))
	require.Len(t, response.Error, 2)
	assert.Equal(t, 3, response.Error[0].Line)
	assert.Equal(t, 7, response.Error[1].Line)
}

func TestImportRosterEndpointMapsUnknownTournamentTo404(t *testing.T) {
	stub := &stubImportService{err: services.ErrTournamentNotFound}
	handler := NewImportHandler(stub, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	rec := postRoster(t, handler, "header\nrow")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestImportRosterEndpointRequiresFileField(t *testing.T) {
	handler := NewImportHandler(&stubImportService{summary: &services.ImportSummary{}}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))

	router := chi.NewRouter()
	router.Post("/tournaments/{tournamentID}/roster", handler.ImportRoster)

	req := httptest.NewRequest(http.MethodPost, "/tournaments/5/roster", bytes.NewBufferString("not multipart"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
