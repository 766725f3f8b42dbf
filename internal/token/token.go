// Package token issues and validates opaque bearer tokens. Tokens are
// random strings stored on the user row, so revocation and rotation are a
// single update away.
package token

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tarulabs/taru-api/internal/config"
	"github.com/tarulabs/taru-api/internal/model"
	"github.com/tarulabs/taru-api/internal/repository"
)

var (
	ErrInvalidToken = errors.New("invalid or expired token")
)

// Pair is one auth/refresh token set with its expiry times.
type Pair struct {
	AuthToken        string
	AuthExpiresAt    time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// Authority manages the single active session per user: issuing a new pair
// invalidates whatever pair was stored before.
type Authority struct {
	users repository.UserRepository
	cfg   config.TokenConfig
	now   func() time.Time
}

func NewAuthority(users repository.UserRepository, cfg config.TokenConfig) *Authority {
	return &Authority{users: users, cfg: cfg, now: time.Now}
}

// Issue generates a fresh token pair and stores it on the user row,
// overwriting any previous session.
func (a *Authority) Issue(ctx context.Context, userID uuid.UUID) (*Pair, error) {
	authToken, err := generateToken()
	if err != nil {
		return nil, err
	}
	refreshToken, err := generateToken()
	if err != nil {
		return nil, err
	}

	now := a.now()
	pair := &Pair{
		AuthToken:        authToken,
		AuthExpiresAt:    now.Add(a.cfg.AuthTTL),
		RefreshToken:     refreshToken,
		RefreshExpiresAt: now.Add(a.cfg.RefreshTTL),
	}
	err = a.users.UpdateTokens(ctx, userID,
		&pair.AuthToken, &pair.AuthExpiresAt,
		&pair.RefreshToken, &pair.RefreshExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("store token pair: %w", err)
	}
	return pair, nil
}

// Validate resolves an auth token to its user. Unknown, expired, or
// deactivated-user tokens all come back as ErrInvalidToken.
func (a *Authority) Validate(ctx context.Context, authToken string) (*model.User, error) {
	if authToken == "" {
		return nil, ErrInvalidToken
	}
	user, err := a.users.GetByAuthToken(ctx, authToken)
	if err != nil {
		return nil, fmt.Errorf("look up auth token: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, ErrInvalidToken
	}
	if user.AuthTokenExpiresAt == nil || a.now().After(*user.AuthTokenExpiresAt) {
		return nil, ErrInvalidToken
	}
	return user, nil
}

// Refresh exchanges a live refresh token for a new auth token. The refresh
// token itself is retained, so a session keeps its 7-day window.
func (a *Authority) Refresh(ctx context.Context, refreshToken string) (*model.User, *Pair, error) {
	if refreshToken == "" {
		return nil, nil, ErrInvalidToken
	}
	user, err := a.users.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		return nil, nil, fmt.Errorf("look up refresh token: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, nil, ErrInvalidToken
	}
	if user.RefreshTokenExpiresAt == nil || a.now().After(*user.RefreshTokenExpiresAt) {
		return nil, nil, ErrInvalidToken
	}

	authToken, err := generateToken()
	if err != nil {
		return nil, nil, err
	}
	pair := &Pair{
		AuthToken:        authToken,
		AuthExpiresAt:    a.now().Add(a.cfg.AuthTTL),
		RefreshToken:     refreshToken,
		RefreshExpiresAt: *user.RefreshTokenExpiresAt,
	}
	err = a.users.UpdateTokens(ctx, user.ID,
		&pair.AuthToken, &pair.AuthExpiresAt,
		&pair.RefreshToken, &pair.RefreshExpiresAt)
	if err != nil {
		return nil, nil, fmt.Errorf("store refreshed token: %w", err)
	}
	return user, pair, nil
}

// Revoke clears the stored pair so both tokens die immediately.
func (a *Authority) Revoke(ctx context.Context, userID uuid.UUID) error {
	if err := a.users.UpdateTokens(ctx, userID, nil, nil, nil, nil); err != nil {
		return fmt.Errorf("revoke tokens: %w", err)
	}
	return nil
}

func generateToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
