package services

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/pvmachado/tt-tournament-system/models"
)

func newAuthServiceWithFake(t *testing.T) (AuthService, *fakeUserRepo) {
	t.Helper()
	repo := newFakeUserRepo()
	svc := NewAuthService(nil, repo, slog.New(slog.NewTextHandler(io.Discard, nil)))
	return svc, repo
}

func seedAccount(t *testing.T, repo *fakeUserRepo, userName, email, password string, role models.UserRole) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), nil, &models.User{
		UserName:     userName,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
	}))
}

func TestLoginByUserNameAndEmail(t *testing.T) {
	svc, repo := newAuthServiceWithFake(t)
	seedAccount(t, repo, "player1001", "player1001@example.com", "s3cret!Pw", models.RolePlayer)

	user, err := svc.Login(context.Background(), LoginInput{Login: "player1001", Password: "s3cret!Pw"})
	require.NoError(t, err)
	assert.Equal(t, models.RolePlayer, user.Role)
	assert.Empty(t, user.PasswordHash)

	user, err = svc.Login(context.Background(), LoginInput{Login: "player1001@example.com", Password: "s3cret!Pw"})
	require.NoError(t, err)
	assert.Equal(t, "player1001", user.UserName)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, repo := newAuthServiceWithFake(t)
	seedAccount(t, repo, "player1001", "player1001@example.com", "s3cret!Pw", models.RolePlayer)

	_, err := svc.Login(context.Background(), LoginInput{Login: "player1001", Password: "wrong"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), LoginInput{Login: "nobody", Password: "s3cret!Pw"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestEnsureAdminSeedsOnce(t *testing.T) {
	svc, repo := newAuthServiceWithFake(t)

	require.NoError(t, svc.EnsureAdmin(context.Background(), "director@club.org", "changeMe!1"))

	admin, err := repo.GetByEmail(context.Background(), "director@club.org")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.Equal(t, "director", admin.UserName)

	// A second startup with the same configuration changes nothing.
	require.NoError(t, svc.EnsureAdmin(context.Background(), "director@club.org", "changeMe!1"))
	assert.Len(t, repo.byUserName, 1)
}

func TestEnsureAdminSkipsWhenUnconfigured(t *testing.T) {
	svc, repo := newAuthServiceWithFake(t)

	require.NoError(t, svc.EnsureAdmin(context.Background(), "", ""))
	assert.Empty(t, repo.byUserName)
}

func TestCreateAdmin(t *testing.T) {
	svc, repo := newAuthServiceWithFake(t)

	admin, err := svc.CreateAdmin(context.Background(), CreateAdminInput{
		UserName: "referee",
		Email:    "referee@club.org",
		Password: "longEnough!1",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, admin.Role)
	assert.Empty(t, admin.PasswordHash)

	stored, err := repo.GetByUserName(context.Background(), nil, "referee")
	require.NoError(t, err)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("longEnough!1")))

	_, err = svc.CreateAdmin(context.Background(), CreateAdminInput{
		UserName: "referee",
		Email:    "other@club.org",
		Password: "longEnough!1",
	})
	assert.ErrorIs(t, err, ErrUserNameConflict)

	_, err = svc.CreateAdmin(context.Background(), CreateAdminInput{
		UserName: "short",
		Email:    "short@club.org",
		Password: "tiny",
	})
	assert.ErrorIs(t, err, ErrPasswordTooShort)
}
