package handlers

import (
	"fmt"
	"net/http"

	"github.com/pvmachado/tt-tournament-system/services"
)

type GameHandler struct {
	gameService services.GameService
}

func NewGameHandler(gameService services.GameService) *GameHandler {
	return &GameHandler{gameService: gameService}
}

func (h *GameHandler) ListByTournament(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	onlyPlayed := r.URL.Query().Get("played") == "true"

	games, err := h.gameService.ListGamesByTournament(r.Context(), tournamentID, onlyPlayed)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"games": games}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GameHandler) ListByPlayer(w http.ResponseWriter, r *http.Request) {
	playerID, err := idParam(r, "playerID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	games, err := h.gameService.ListGamesByPlayer(r.Context(), playerID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"games": games}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateScores records a batch of results. The batch is atomic: one bad
// entry rejects every update in it.
func (h *GameHandler) UpdateScores(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Updates []services.ScoreUpdate `json:"updates"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	updated, err := h.gameService.UpdateScores(r.Context(), tournamentID, input.Updates)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"games_updated": updated}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ExportCSV streams the schedule as a CSV attachment.
func (h *GameHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	onlyPlayed := r.URL.Query().Get("played") == "true"

	out, err := h.gameService.ExportResultsCSV(r.Context(), tournamentID, onlyPlayed)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"tournament_%d_results.csv\"", tournamentID))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(out); err != nil {
		serverErrorResponse(w, r, err)
	}
}
