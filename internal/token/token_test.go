package token

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tarulabs/taru-api/internal/config"
	"github.com/tarulabs/taru-api/internal/model"
)

// mockUserRepo stores token state in memory for one user.
type mockUserRepo struct {
	user      *model.User
	updateErr error
}

func (m *mockUserRepo) Create(ctx context.Context, user *model.User) error { return nil }

func (m *mockUserRepo) GetByID(ctx context.Context, id uuid.UUID) (*model.User, error) {
	if m.user != nil && m.user.ID == id {
		return m.user, nil
	}
	return nil, nil
}

func (m *mockUserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	return nil, nil
}

func (m *mockUserRepo) GetByAuthToken(ctx context.Context, token string) (*model.User, error) {
	if m.user != nil && m.user.AuthToken != nil && *m.user.AuthToken == token {
		return m.user, nil
	}
	return nil, nil
}

func (m *mockUserRepo) GetByRefreshToken(ctx context.Context, token string) (*model.User, error) {
	if m.user != nil && m.user.RefreshToken != nil && *m.user.RefreshToken == token {
		return m.user, nil
	}
	return nil, nil
}

func (m *mockUserRepo) UpdateTokens(ctx context.Context, id uuid.UUID, authToken *string, authExpiresAt *time.Time, refreshToken *string, refreshExpiresAt *time.Time) error {
	if m.updateErr != nil {
		return m.updateErr
	}
	m.user.AuthToken = authToken
	m.user.AuthTokenExpiresAt = authExpiresAt
	m.user.RefreshToken = refreshToken
	m.user.RefreshTokenExpiresAt = refreshExpiresAt
	return nil
}

func (m *mockUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID) error { return nil }

func (m *mockUserRepo) UpdateProfile(ctx context.Context, user *model.User) error { return nil }

func (m *mockUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash string) error {
	return nil
}

func newTestAuthority(repo *mockUserRepo) *Authority {
	return NewAuthority(repo, config.TokenConfig{
		AuthTTL:    time.Hour,
		RefreshTTL: 168 * time.Hour,
	})
}

func TestIssueStoresPairWithTTLs(t *testing.T) {
	repo := &mockUserRepo{user: &model.User{ID: uuid.New(), IsActive: true}}
	authority := newTestAuthority(repo)

	before := time.Now()
	pair, err := authority.Issue(context.Background(), repo.user.ID)
	require.NoError(t, err)

	assert.NotEmpty(t, pair.AuthToken)
	assert.NotEmpty(t, pair.RefreshToken)
	assert.NotEqual(t, pair.AuthToken, pair.RefreshToken)

	assert.WithinDuration(t, before.Add(time.Hour), pair.AuthExpiresAt, time.Minute)
	assert.WithinDuration(t, before.Add(168*time.Hour), pair.RefreshExpiresAt, time.Minute)

	require.NotNil(t, repo.user.AuthToken)
	assert.Equal(t, pair.AuthToken, *repo.user.AuthToken)
	require.NotNil(t, repo.user.RefreshToken)
	assert.Equal(t, pair.RefreshToken, *repo.user.RefreshToken)
}

func TestIssueOverwritesPreviousSession(t *testing.T) {
	repo := &mockUserRepo{user: &model.User{ID: uuid.New(), IsActive: true}}
	authority := newTestAuthority(repo)
	ctx := context.Background()

	first, err := authority.Issue(ctx, repo.user.ID)
	require.NoError(t, err)
	second, err := authority.Issue(ctx, repo.user.ID)
	require.NoError(t, err)

	assert.NotEqual(t, first.AuthToken, second.AuthToken)

	_, err = authority.Validate(ctx, first.AuthToken)
	assert.ErrorIs(t, err, ErrInvalidToken)

	user, err := authority.Validate(ctx, second.AuthToken)
	require.NoError(t, err)
	assert.Equal(t, repo.user.ID, user.ID)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	repo := &mockUserRepo{user: &model.User{ID: uuid.New(), IsActive: true}}
	authority := newTestAuthority(repo)
	ctx := context.Background()

	pair, err := authority.Issue(ctx, repo.user.ID)
	require.NoError(t, err)

	authority.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	_, err = authority.Validate(ctx, pair.AuthToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsUnknownAndEmptyTokens(t *testing.T) {
	repo := &mockUserRepo{user: &model.User{ID: uuid.New(), IsActive: true}}
	authority := newTestAuthority(repo)
	ctx := context.Background()

	_, err := authority.Validate(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = authority.Validate(ctx, "no-such-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateRejectsInactiveUser(t *testing.T) {
	repo := &mockUserRepo{user: &model.User{ID: uuid.New(), IsActive: true}}
	authority := newTestAuthority(repo)
	ctx := context.Background()

	pair, err := authority.Issue(ctx, repo.user.ID)
	require.NoError(t, err)

	repo.user.IsActive = false
	_, err = authority.Validate(ctx, pair.AuthToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRefreshRotatesAuthTokenOnly(t *testing.T) {
	repo := &mockUserRepo{user: &model.User{ID: uuid.New(), IsActive: true}}
	authority := newTestAuthority(repo)
	ctx := context.Background()

	old, err := authority.Issue(ctx, repo.user.ID)
	require.NoError(t, err)

	user, fresh, err := authority.Refresh(ctx, old.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, repo.user.ID, user.ID)
	assert.NotEqual(t, old.AuthToken, fresh.AuthToken)
	assert.Equal(t, old.RefreshToken, fresh.RefreshToken)
	assert.Equal(t, old.RefreshExpiresAt, fresh.RefreshExpiresAt)

	// The old auth token is dead, the refresh token still works.
	_, err = authority.Validate(ctx, old.AuthToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, _, err = authority.Refresh(ctx, old.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshRejectsExpiredRefreshToken(t *testing.T) {
	repo := &mockUserRepo{user: &model.User{ID: uuid.New(), IsActive: true}}
	authority := newTestAuthority(repo)
	ctx := context.Background()

	pair, err := authority.Issue(ctx, repo.user.ID)
	require.NoError(t, err)

	authority.now = func() time.Time { return time.Now().Add(169 * time.Hour) }
	_, _, err = authority.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestRevokeKillsBothTokens(t *testing.T) {
	repo := &mockUserRepo{user: &model.User{ID: uuid.New(), IsActive: true}}
	authority := newTestAuthority(repo)
	ctx := context.Background()

	pair, err := authority.Issue(ctx, repo.user.ID)
	require.NoError(t, err)

	require.NoError(t, authority.Revoke(ctx, repo.user.ID))

	_, err = authority.Validate(ctx, pair.AuthToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, _, err = authority.Refresh(ctx, pair.RefreshToken)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
