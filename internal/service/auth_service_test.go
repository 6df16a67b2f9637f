package service

import (
	"context"
	"database/sql"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/techlyn/academy-api/internal/models"
	appErrors "github.com/techlyn/academy-api/pkg/errors"
)

type mockAuthRepo struct {
	users         map[string]models.User
	refreshTokens map[string]models.RefreshToken
	resetTokens   map[string]models.PasswordResetToken
	revokedAllFor []string
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		users:         make(map[string]models.User),
		refreshTokens: make(map[string]models.RefreshToken),
		resetTokens:   make(map[string]models.PasswordResetToken),
	}
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			user := u
			return &user, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return &u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	m.users[user.ID] = *user
	return nil
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, ts time.Time) error {
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = passwordHash
	m.users[id] = u
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.refreshTokens[token.Token] = *token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if rt, ok := m.refreshTokens[token]; ok {
		return &rt, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for key, rt := range m.refreshTokens {
		if rt.ID == id {
			rt.Revoked = true
			rt.RevokedAt = &revokedAt
			m.refreshTokens[key] = rt
		}
	}
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revokedAllFor = append(m.revokedAllFor, userID)
	for key, rt := range m.refreshTokens {
		if rt.UserID == userID {
			rt.Revoked = true
			m.refreshTokens[key] = rt
		}
	}
	return nil
}

func (m *mockAuthRepo) CreatePasswordResetToken(ctx context.Context, token *models.PasswordResetToken) error {
	m.resetTokens[token.Token] = *token
	return nil
}

func (m *mockAuthRepo) FindPasswordResetToken(ctx context.Context, token string) (*models.PasswordResetToken, error) {
	if prt, ok := m.resetTokens[token]; ok {
		return &prt, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) MarkPasswordResetTokenUsed(ctx context.Context, id string, usedAt time.Time) error {
	for key, prt := range m.resetTokens {
		if prt.ID == id {
			prt.UsedAt = &usedAt
			m.resetTokens[key] = prt
		}
	}
	return nil
}

type mockAuthNotifier struct {
	welcomes   []string
	resetLinks []string
}

func (m *mockAuthNotifier) Welcome(toName, toEmail, role string) {
	m.welcomes = append(m.welcomes, toEmail)
}

func (m *mockAuthNotifier) PasswordReset(toName, toEmail, resetLink string) {
	m.resetLinks = append(m.resetLinks, resetLink)
}

func newAuthFixture() (*mockAuthRepo, *mockAuthNotifier, *AuthService) {
	repo := newMockAuthRepo()
	notifier := &mockAuthNotifier{}
	svc := NewAuthService(repo, notifier, nil, nil, AuthConfig{
		AccessTokenSecret:   "test-secret",
		AccessTokenExpiry:   time.Hour,
		RefreshTokenExpiry:  24 * time.Hour,
		PasswordResetExpiry: time.Hour,
		PasswordResetURL:    "http://localhost:3000/reset-password",
		Issuer:              "techylyn-academy",
		Audience:            []string{"techylyn-academy-api"},
	})
	return repo, notifier, svc
}

func seedAuthUser(repo *mockAuthRepo, password string) models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	user := models.User{
		ID:           uuid.NewString(),
		Email:        "ada@example.com",
		PasswordHash: string(hash),
		FullName:     "Ada Student",
		Role:         models.RoleStudent,
		Active:       true,
	}
	repo.users[user.ID] = user
	return user
}

func TestRegisterSendsWelcomeEmail(t *testing.T) {
	_, notifier, svc := newAuthFixture()

	session, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "grace@example.com",
		Password: "correct-horse",
		FullName: "Grace Student",
	})
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, session.User.Role)
	require.Len(t, notifier.welcomes, 1)
	assert.Equal(t, "grace@example.com", notifier.welcomes[0])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	repo, notifier, svc := newAuthFixture()
	seedAuthUser(repo, "correct-horse")

	_, err := svc.Register(context.Background(), RegisterRequest{
		Email:    "ada@example.com",
		Password: "correct-horse",
		FullName: "Ada Again",
	})
	require.Error(t, err)
	assert.Equal(t, "CONFLICT", appErrors.FromError(err).Code)
	assert.Empty(t, notifier.welcomes)
}

func TestRequestPasswordResetMailsLink(t *testing.T) {
	repo, notifier, svc := newAuthFixture()
	seedAuthUser(repo, "correct-horse")

	err := svc.RequestPasswordReset(context.Background(), PasswordResetRequest{Email: "ada@example.com"})
	require.NoError(t, err)

	require.Len(t, repo.resetTokens, 1)
	require.Len(t, notifier.resetLinks, 1)
	for token := range repo.resetTokens {
		assert.True(t, strings.HasSuffix(notifier.resetLinks[0], "?token="+token))
	}
	assert.True(t, strings.HasPrefix(notifier.resetLinks[0], "http://localhost:3000/reset-password"))
}

func TestRequestPasswordResetUnknownEmail(t *testing.T) {
	_, notifier, svc := newAuthFixture()

	err := svc.RequestPasswordReset(context.Background(), PasswordResetRequest{Email: "nobody@example.com"})
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", appErrors.FromError(err).Code)
	assert.Empty(t, notifier.resetLinks)
}

func TestResetPasswordReplacesHashAndRevokesSessions(t *testing.T) {
	repo, _, svc := newAuthFixture()
	user := seedAuthUser(repo, "old-password")
	repo.refreshTokens["live-token"] = models.RefreshToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     "live-token",
		ExpiresAt: time.Now().UTC().Add(24 * time.Hour),
	}
	repo.resetTokens["reset-token"] = models.PasswordResetToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     "reset-token",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}

	err := svc.ResetPassword(context.Background(), PasswordResetConfirmRequest{
		Token:       "reset-token",
		NewPassword: "brand-new-pass",
	})
	require.NoError(t, err)

	updated := repo.users[user.ID]
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(updated.PasswordHash), []byte("brand-new-pass")))
	assert.NotNil(t, repo.resetTokens["reset-token"].UsedAt)
	assert.Contains(t, repo.revokedAllFor, user.ID)
	assert.True(t, repo.refreshTokens["live-token"].Revoked)
}

func TestResetPasswordRejectsExpiredToken(t *testing.T) {
	repo, _, svc := newAuthFixture()
	user := seedAuthUser(repo, "old-password")
	repo.resetTokens["stale-token"] = models.PasswordResetToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     "stale-token",
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}

	err := svc.ResetPassword(context.Background(), PasswordResetConfirmRequest{
		Token:       "stale-token",
		NewPassword: "brand-new-pass",
	})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", appErrors.FromError(err).Code)
}

func TestResetPasswordRejectsUsedToken(t *testing.T) {
	repo, _, svc := newAuthFixture()
	user := seedAuthUser(repo, "old-password")
	used := time.Now().UTC().Add(-time.Minute)
	repo.resetTokens["spent-token"] = models.PasswordResetToken{
		ID:        uuid.NewString(),
		UserID:    user.ID,
		Token:     "spent-token",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
		UsedAt:    &used,
	}

	err := svc.ResetPassword(context.Background(), PasswordResetConfirmRequest{
		Token:       "spent-token",
		NewPassword: "brand-new-pass",
	})
	require.Error(t, err)
	assert.Equal(t, "VALIDATION_ERROR", appErrors.FromError(err).Code)
}
