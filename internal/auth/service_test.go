package auth

import (
	"context"
	"testing"
	"time"

	pkgAuth "github.com/angelmondragon/garage-backend/pkg/auth"
	"github.com/angelmondragon/garage-backend/pkg/auth/session"
	"github.com/angelmondragon/garage-backend/pkg/config"
	"github.com/angelmondragon/garage-backend/pkg/db/models"
	"github.com/angelmondragon/garage-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/garage-backend/pkg/errors"
	"github.com/angelmondragon/garage-backend/pkg/security"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "secret",
		Issuer:            "garage",
		ExpirationMinutes: 30,
	}
}

func TestServiceLoginIssuesTokens(t *testing.T) {
	password := "Torque-wrench-42"
	user := &models.User{
		ID:           uuid.New(),
		Username:     "mechanic",
		Email:        "mech@example.com",
		PasswordHash: mustHashPassword(t, password),
		Role:         enums.UserRoleAdmin,
		IsActive:     true,
	}
	cfg := testJWTConfig()

	svc, sessions, err := buildTestService(user, cfg)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	resp, err := svc.Login(context.Background(), LoginRequest{Email: " MECH@example.com ", Password: password})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := pkgAuth.ParseAccessToken(cfg, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.Role != enums.UserRoleAdmin {
		t.Fatalf("expected admin role claim, got %s", claims.Role)
	}
	if claims.Username != "mechanic" {
		t.Fatalf("expected username claim, got %q", claims.Username)
	}
	if resp.RefreshToken != "refresh-token" {
		t.Fatalf("expected refresh token to be set, got %q", resp.RefreshToken)
	}
	if sessions.generatedFor != user.ID || sessions.lastAccessID != claims.ID {
		t.Fatalf("session not bound to the minted token")
	}
	if resp.User.LastLoginAt == nil {
		t.Fatalf("expected last login to be recorded")
	}
}

func TestServiceLoginRejectsBadCredentials(t *testing.T) {
	user := &models.User{
		ID:           uuid.New(),
		Username:     "inactive",
		Email:        "inactive@example.com",
		PasswordHash: mustHashPassword(t, "Correct-horse-1"),
		Role:         enums.UserRoleStaff,
		IsActive:     false,
	}
	svc, _, err := buildTestService(user, testJWTConfig())
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	cases := []LoginRequest{
		{Email: "inactive@example.com", Password: "Correct-horse-1"},
		{Email: "inactive@example.com", Password: "wrong"},
		{Email: "", Password: "Correct-horse-1"},
	}
	for _, req := range cases {
		_, err := svc.Login(context.Background(), req)
		if !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
			t.Fatalf("expected unauthorized for %+v, got %v", req, err)
		}
	}

	missing, _, err := buildTestService(nil, testJWTConfig())
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	if _, err := missing.Login(context.Background(), LoginRequest{Email: "ghost@example.com", Password: "x"}); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for unknown user, got %v", err)
	}
}

func TestServiceRefreshRotatesSession(t *testing.T) {
	user := &models.User{ID: uuid.New(), Username: "mechanic", Role: enums.UserRoleStaff, IsActive: true}
	cfg := testJWTConfig()
	svc, sessions, err := buildTestService(user, cfg)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	expired := mintAt(t, cfg, user, "old-access", time.Now().Add(-2*time.Hour))
	sessions.rotateUser = user.ID
	sessions.rotateAccessID = "new-access"

	resp, err := svc.Refresh(context.Background(), expired, "refresh-token")
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if sessions.rotatedFrom != "old-access" {
		t.Fatalf("expected rotation from old-access, got %q", sessions.rotatedFrom)
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, resp.AccessToken)
	if err != nil {
		t.Fatalf("parse refreshed token: %v", err)
	}
	if claims.ID != "new-access" {
		t.Fatalf("expected new jti, got %q", claims.ID)
	}
	if resp.RefreshToken != "rotated-refresh" {
		t.Fatalf("unexpected refresh token %q", resp.RefreshToken)
	}
}

func TestServiceRefreshFailures(t *testing.T) {
	user := &models.User{ID: uuid.New(), Username: "mechanic", Role: enums.UserRoleStaff, IsActive: true}
	cfg := testJWTConfig()
	svc, sessions, err := buildTestService(user, cfg)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	token := mintAt(t, cfg, user, "access", time.Now())

	if _, err := svc.Refresh(context.Background(), "garbage", "refresh-token"); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for malformed token, got %v", err)
	}

	sessions.rotateErr = session.ErrInvalidRefreshToken
	if _, err := svc.Refresh(context.Background(), token, "stolen"); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for bad refresh token, got %v", err)
	}

	sessions.rotateErr = nil
	sessions.rotateUser = user.ID
	sessions.rotateAccessID = "next"
	user.IsActive = false
	if _, err := svc.Refresh(context.Background(), token, "refresh-token"); !pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized) {
		t.Fatalf("expected unauthorized for inactive user, got %v", err)
	}
	if sessions.revoked != "next" {
		t.Fatalf("expected rotated session to be revoked, got %q", sessions.revoked)
	}
}

func TestServiceLogoutRevokesSession(t *testing.T) {
	user := &models.User{ID: uuid.New(), Username: "mechanic", Role: enums.UserRoleStaff, IsActive: true}
	cfg := testJWTConfig()
	svc, sessions, err := buildTestService(user, cfg)
	if err != nil {
		t.Fatalf("build service: %v", err)
	}

	if err := svc.Logout(context.Background(), mintAt(t, cfg, user, "bye", time.Now())); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if sessions.revoked != "bye" {
		t.Fatalf("expected session bye to be revoked, got %q", sessions.revoked)
	}
}

func TestServiceLoginUpgradesOutdatedHash(t *testing.T) {
	password := "Torque-wrench-42"
	outdated, err := security.HashPassword(password, config.PasswordConfig{ArgonTime: 2})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	user := &models.User{
		ID:           uuid.New(),
		Username:     "mechanic",
		Email:        "mech@example.com",
		PasswordHash: outdated,
		Role:         enums.UserRoleStaff,
		IsActive:     true,
	}

	svc, _, err := buildTestService(user, testJWTConfig())
	if err != nil {
		t.Fatalf("build service: %v", err)
	}
	if _, err := svc.Login(context.Background(), LoginRequest{Email: user.Email, Password: password}); err != nil {
		t.Fatalf("login: %v", err)
	}

	if user.PasswordHash == outdated {
		t.Fatal("expected hash to be replaced")
	}
	if security.NeedsRehash(user.PasswordHash, config.PasswordConfig{}) {
		t.Fatal("expected upgraded hash to match current costs")
	}
	ok, err := security.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		t.Fatalf("expected upgraded hash to verify, ok=%v err=%v", ok, err)
	}
}

func buildTestService(user *models.User, jwtCfg config.JWTConfig) (Service, *stubSessionManager, error) {
	sessionMgr := &stubSessionManager{refreshToken: "refresh-token"}
	svc, err := NewService(ServiceParams{
		UserRepo:       stubUserRepo{user: user},
		SessionManager: sessionMgr,
		JWTConfig:      jwtCfg,
	})
	return svc, sessionMgr, err
}

func mintAt(t *testing.T, cfg config.JWTConfig, user *models.User, accessID string, at time.Time) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg, at, pkgAuth.AccessTokenPayload{
		UserID:   user.ID,
		Username: user.Username,
		Role:     user.Role,
		JTI:      accessID,
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func mustHashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := security.HashPassword(password, config.PasswordConfig{})
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	return hash
}

type stubUserRepo struct {
	user *models.User
	err  error
}

func (s stubUserRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.user == nil || s.user.Email != email {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s stubUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.user == nil || s.user.ID != id {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func (s stubUserRepo) UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error {
	if s.user != nil && s.user.ID == id {
		s.user.LastLoginAt = &at
	}
	return nil
}

func (s stubUserRepo) UpdatePasswordHash(ctx context.Context, id uuid.UUID, hash string) error {
	if s.user != nil && s.user.ID == id {
		s.user.PasswordHash = hash
	}
	return nil
}

type stubSessionManager struct {
	refreshToken string
	generatedFor uuid.UUID
	lastAccessID string

	rotateUser     uuid.UUID
	rotateAccessID string
	rotateErr      error
	rotatedFrom    string

	revoked string
}

func (s *stubSessionManager) Generate(ctx context.Context, userID uuid.UUID, accessID string) (string, error) {
	s.generatedFor = userID
	s.lastAccessID = accessID
	return s.refreshToken, nil
}

func (s *stubSessionManager) Rotate(ctx context.Context, oldAccessID, provided string) (uuid.UUID, string, string, error) {
	if s.rotateErr != nil {
		return uuid.Nil, "", "", s.rotateErr
	}
	s.rotatedFrom = oldAccessID
	return s.rotateUser, s.rotateAccessID, "rotated-refresh", nil
}

func (s *stubSessionManager) Revoke(ctx context.Context, accessID string) error {
	s.revoked = accessID
	return nil
}
