// Package session binds refresh tokens to the jti of the access token they were issued with.
package session

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/angelmondragon/garage-backend/pkg/config"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

var ErrInvalidRefreshToken = errors.New("invalid refresh token")

// Store is the key-value surface a session needs. The pkg/redis Client satisfies it.
type Store interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	AccessSessionKey(accessID string) string
}

// AccessSessionChecker is what the auth middleware asks on every request.
type AccessSessionChecker interface {
	HasSession(ctx context.Context, accessID string) (bool, error)
}

// entry is stored per access id. Only a digest of the refresh token is kept.
type entry struct {
	UserID   uuid.UUID `json:"user_id"`
	Digest   string    `json:"digest"`
	IssuedAt time.Time `json:"issued_at"`
}

type Manager struct {
	store Store
	ttl   time.Duration
	now   func() time.Time
}

// NewManager requires the refresh TTL to outlive the access token.
func NewManager(store Store, cfg config.JWTConfig) (*Manager, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	refresh := cfg.RefreshTokenTTL()
	access := time.Duration(cfg.ExpirationMinutes) * time.Minute
	switch {
	case refresh <= 0:
		return nil, errors.New("refresh token ttl must be positive")
	case refresh <= access:
		return nil, fmt.Errorf("refresh token ttl %s must exceed access token ttl %s", refresh, access)
	}
	return &Manager{store: store, ttl: refresh, now: time.Now}, nil
}

// NewAccessID returns a fresh jti.
func NewAccessID() string {
	return uuid.NewString()
}

// Generate opens a session for accessID and returns its refresh token.
func (m *Manager) Generate(ctx context.Context, userID uuid.UUID, accessID string) (string, error) {
	if userID == uuid.Nil {
		return "", errors.New("user id is required")
	}
	if strings.TrimSpace(accessID) == "" {
		return "", errors.New("access id is required")
	}
	return m.open(ctx, userID, accessID)
}

// Rotate exchanges a refresh token for a new access id and refresh token. The old session
// is removed so each refresh token works once.
func (m *Manager) Rotate(ctx context.Context, oldAccessID, provided string) (uuid.UUID, string, string, error) {
	if strings.TrimSpace(oldAccessID) == "" || strings.TrimSpace(provided) == "" {
		return uuid.Nil, "", "", ErrInvalidRefreshToken
	}
	current, err := m.lookup(ctx, oldAccessID)
	if err != nil {
		return uuid.Nil, "", "", err
	}
	if subtle.ConstantTimeCompare([]byte(current.Digest), []byte(digest(provided))) != 1 {
		return uuid.Nil, "", "", ErrInvalidRefreshToken
	}

	accessID := NewAccessID()
	token, err := m.open(ctx, current.UserID, accessID)
	if err != nil {
		return uuid.Nil, "", "", err
	}
	if err := m.store.Del(ctx, m.store.AccessSessionKey(oldAccessID)); err != nil {
		return uuid.Nil, "", "", fmt.Errorf("drop rotated session: %w", err)
	}
	return current.UserID, accessID, token, nil
}

// Revoke ends the session; the access token stops working on its next request.
func (m *Manager) Revoke(ctx context.Context, accessID string) error {
	if strings.TrimSpace(accessID) == "" {
		return errors.New("access id is required")
	}
	return m.store.Del(ctx, m.store.AccessSessionKey(accessID))
}

func (m *Manager) HasSession(ctx context.Context, accessID string) (bool, error) {
	if strings.TrimSpace(accessID) == "" {
		return false, errors.New("access id is required")
	}
	_, err := m.lookup(ctx, accessID)
	switch {
	case errors.Is(err, ErrInvalidRefreshToken):
		return false, nil
	case err != nil:
		return false, err
	}
	return true, nil
}

func (m *Manager) open(ctx context.Context, userID uuid.UUID, accessID string) (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generate refresh token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(raw)

	payload, err := json.Marshal(entry{UserID: userID, Digest: digest(token), IssuedAt: m.now().UTC()})
	if err != nil {
		return "", fmt.Errorf("encode session: %w", err)
	}
	if err := m.store.Set(ctx, m.store.AccessSessionKey(accessID), string(payload), m.ttl); err != nil {
		return "", fmt.Errorf("store session: %w", err)
	}
	return token, nil
}

func (m *Manager) lookup(ctx context.Context, accessID string) (entry, error) {
	raw, err := m.store.Get(ctx, m.store.AccessSessionKey(accessID))
	if errors.Is(err, redis.Nil) {
		return entry{}, ErrInvalidRefreshToken
	}
	if err != nil {
		return entry{}, err
	}
	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil || e.Digest == "" {
		return entry{}, ErrInvalidRefreshToken
	}
	return e, nil
}

func digest(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
