package storage

import (
	"context"
	"fmt"
	"io"
	"time"
)

type UploadResult struct {
	Key      string
	Location string
	ETag     string
}

// FileUploader archives uploaded roster files so a rejected or disputed
// import can be audited against the exact bytes that were submitted.
type FileUploader interface {
	Upload(ctx context.Context, key string, contentType string, reader io.Reader) (*UploadResult, error)

	Delete(ctx context.Context, key string) error

	GetPublicURL(key string) string
}

// RosterArchiveKey builds the object key for an imported roster file.
func RosterArchiveKey(tournamentID int, uploadedAt time.Time) string {
	return fmt.Sprintf("rosters/%d/%s.csv", tournamentID, uploadedAt.UTC().Format("20060102T150405Z"))
}
