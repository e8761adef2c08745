package services

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/bcrypt"

	"github.com/pvmachado/tt-tournament-system/models"
	"github.com/pvmachado/tt-tournament-system/repositories"
)

const (
	passwordLower   = "abcdefghijklmnopqrstuvwxyz"
	passwordUpper   = "ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	passwordDigits  = "1234567890"
	passwordSymbols = "!@#$%^&*()_-+={[}]|:;<,>.?"

	// DefaultPasswordLength is used for accounts provisioned during a
	// roster import.
	DefaultPasswordLength = 8
)

// ProvisionResult carries the account and, for newly created accounts,
// the plaintext password. The plaintext is surfaced exactly once and
// never stored; only the bcrypt hash is persisted.
type ProvisionResult struct {
	User          *models.User
	PlainPassword string
	Created       bool
}

// CredentialService provisions login-ready accounts for players first
// seen in a roster import.
type CredentialService interface {
	Provision(ctx context.Context, exec repositories.SQLExecutor, ratingsCentralID int) (*ProvisionResult, error)
	GeneratePassword(length int) (string, error)
}

type credentialService struct {
	userRepo repositories.UserRepository
	random   io.Reader
}

// NewCredentialService builds a provisioner around the given randomness
// source. Pass nil to use crypto/rand; tests inject a deterministic
// source to pin down the generated character classes.
func NewCredentialService(userRepo repositories.UserRepository, random io.Reader) CredentialService {
	if random == nil {
		random = rand.Reader
	}
	return &credentialService{
		userRepo: userRepo,
		random:   random,
	}
}

// LoginNameForRatingsCentralID derives the fixed login name for an
// imported player. The mapping is deterministic, which is what makes
// provisioning idempotent.
func LoginNameForRatingsCentralID(ratingsCentralID int) string {
	return fmt.Sprintf("player%d", ratingsCentralID)
}

func (s *credentialService) Provision(ctx context.Context, exec repositories.SQLExecutor, ratingsCentralID int) (*ProvisionResult, error) {
	userName := LoginNameForRatingsCentralID(ratingsCentralID)

	existing, err := s.userRepo.GetByUserName(ctx, exec, userName)
	if err == nil {
		// Re-provisioning the same external id reuses the account; no
		// new password is issued.
		return &ProvisionResult{User: existing}, nil
	}
	if !errors.Is(err, repositories.ErrUserNotFound) {
		return nil, fmt.Errorf("failed to look up account %s: %w", userName, err)
	}

	plain, err := s.GeneratePassword(DefaultPasswordLength)
	if err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash generated password: %w", err)
	}

	user := &models.User{
		UserName:     userName,
		Email:        fmt.Sprintf("%s@example.com", userName),
		PasswordHash: string(hash),
		Role:         models.RolePlayer,
	}
	if err := s.userRepo.Create(ctx, exec, user); err != nil {
		return nil, fmt.Errorf("failed to create account %s: %w", userName, err)
	}

	return &ProvisionResult{
		User:          user,
		PlainPassword: plain,
		Created:       true,
	}, nil
}

// GeneratePassword produces a password containing at least one lowercase
// letter, one uppercase letter, one digit and one symbol. The guaranteed
// characters are shuffled into random positions, so they are not
// predictably placed at the front.
func (s *credentialService) GeneratePassword(length int) (string, error) {
	if length < 4 {
		return "", ErrPasswordTooShort
	}

	combined := passwordLower + passwordUpper + passwordDigits + passwordSymbols
	password := make([]byte, 0, length)

	for _, class := range []string{passwordLower, passwordUpper, passwordDigits, passwordSymbols} {
		c, err := s.pickChar(class)
		if err != nil {
			return "", err
		}
		password = append(password, c)
	}
	for len(password) < length {
		c, err := s.pickChar(combined)
		if err != nil {
			return "", err
		}
		password = append(password, c)
	}

	// Fisher-Yates over the whole sequence.
	for i := len(password) - 1; i > 0; i-- {
		j, err := s.randomIndex(i + 1)
		if err != nil {
			return "", err
		}
		password[i], password[j] = password[j], password[i]
	}

	return string(password), nil
}

func (s *credentialService) pickChar(alphabet string) (byte, error) {
	i, err := s.randomIndex(len(alphabet))
	if err != nil {
		return 0, err
	}
	return alphabet[i], nil
}

func (s *credentialService) randomIndex(n int) (int, error) {
	var buf [4]byte
	if _, err := io.ReadFull(s.random, buf[:]); err != nil {
		return 0, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return int(binary.BigEndian.Uint32(buf[:]) % uint32(n)), nil
}
