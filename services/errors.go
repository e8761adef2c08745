package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pvmachado/tt-tournament-system/roster"
)

// Shared service errors, mapped to HTTP statuses in the handlers layer.
var (
	ErrNotFound = errors.New("requested resource not found")

	// Validation and business rules
	ErrValidationFailed       = errors.New("validation failed")
	ErrPasswordTooShort       = errors.New("password length must be at least 4 to satisfy all character classes")
	ErrInvalidCredentials     = errors.New("invalid email or password")
	ErrNegativeScore          = errors.New("scores must not be negative")
	ErrTournamentNameRequired = errors.New("tournament name is required")
	ErrTournamentInvalidDates = errors.New("tournament end date must be after start date")
	ErrEmptyRosterFile        = errors.New("roster file contains no data rows")

	// Conflicts
	ErrUserEmailConflict = errors.New("email address is already in use")
	ErrUserNameConflict  = errors.New("user name is already in use")

	// Authentication and authorization
	ErrAuthenticationFailed = errors.New("authentication failed")
	ErrForbiddenOperation   = errors.New("operation not allowed for the current user")

	// Entity-specific lookups
	ErrUserNotFound       = errors.New("user not found")
	ErrPlayerNotFound     = errors.New("player not found")
	ErrTournamentNotFound = errors.New("tournament not found")
	ErrGameNotFound       = errors.New("game not found")
)

// RosterValidationError aggregates the per-row errors of a rejected
// import batch. The batch is rejected before any write happens; the
// caller fixes the file and resubmits the whole import.
type RosterValidationError struct {
	Rows []roster.RowError
}

func (e *RosterValidationError) Error() string {
	msgs := make([]string, 0, len(e.Rows))
	for _, r := range e.Rows {
		msgs = append(msgs, r.Error())
	}
	return fmt.Sprintf("roster validation failed: %s", strings.Join(msgs, "; "))
}

// CredentialProvisioningError marks a failed account provisioning for one
// candidate. A half-provisioned roster is unsafe, so it aborts the whole
// import and rolls the transaction back.
type CredentialProvisioningError struct {
	RatingsCentralID int
	Err              error
}

func (e *CredentialProvisioningError) Error() string {
	return fmt.Sprintf("failed to provision credentials for ratings central id %d: %v", e.RatingsCentralID, e.Err)
}

func (e *CredentialProvisioningError) Unwrap() error {
	return e.Err
}
