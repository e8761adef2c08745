package handlers

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/pvmachado/tt-tournament-system/services"
	"github.com/pvmachado/tt-tournament-system/storage"
)

const maxRosterFileSize = 10 << 20 // 10MB

type ImportHandler struct {
	importService services.ImportService
	uploader      storage.FileUploader
	logger        *slog.Logger
}

// NewImportHandler wires the roster upload endpoint. uploader may be nil
// when archiving is not configured.
func NewImportHandler(importService services.ImportService, uploader storage.FileUploader, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{
		importService: importService,
		uploader:      uploader,
		logger:        logger,
	}
}

// ImportRoster accepts a multipart roster file and runs the import. The
// response carries the import summary, including one-time credentials
// for newly provisioned players.
func (h *ImportHandler) ImportRoster(w http.ResponseWriter, r *http.Request) {
	tournamentID, err := idParam(r, "tournamentID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxRosterFileSize)
	file, header, err := r.FormFile("file")
	if err != nil {
		badRequestResponse(w, r, errors.New("multipart form must carry a roster file under the \"file\" field"))
		return
	}
	defer file.Close()

	// Buffer the upload so the same bytes can be archived after the
	// import succeeds.
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, file); err != nil {
		badRequestResponse(w, r, errors.New("failed to read roster file"))
		return
	}

	summary, err := h.importService.ImportRoster(r.Context(), tournamentID, bytes.NewReader(buf.Bytes()))
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	h.archiveRoster(r, tournamentID, header.Filename, buf.Bytes())

	if err := writeJSON(w, http.StatusOK, jsonResponse{"summary": summary}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// archiveRoster is best effort: a failed archive never fails an import
// that already committed.
func (h *ImportHandler) archiveRoster(r *http.Request, tournamentID int, filename string, data []byte) {
	if h.uploader == nil {
		return
	}

	key := storage.RosterArchiveKey(tournamentID, time.Now())
	result, err := h.uploader.Upload(r.Context(), key, "text/csv", bytes.NewReader(data))
	if err != nil {
		h.logger.Error("failed to archive roster file",
			slog.Int("tournament_id", tournamentID),
			slog.String("filename", filename),
			slog.Any("error", err),
		)
		return
	}

	h.logger.Info("archived roster file",
		slog.Int("tournament_id", tournamentID),
		slog.String("key", result.Key),
	)
}
