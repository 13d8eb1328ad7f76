package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/angelmondragon/garage-backend/api/responses"
	pkgAuth "github.com/angelmondragon/garage-backend/pkg/auth"
	"github.com/angelmondragon/garage-backend/pkg/auth/session"
	"github.com/angelmondragon/garage-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/garage-backend/pkg/errors"
	"github.com/angelmondragon/garage-backend/pkg/logger"
)

// Auth admits requests that carry a valid access token whose session is still open and puts
// the caller on the context.
func Auth(cfg config.JWTConfig, sessions session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			claims, err := authenticate(ctx, cfg, sessions, BearerToken(r))
			if err != nil {
				responses.WriteError(ctx, logg, w, err)
				return
			}

			ctx = WithActor(ctx, Actor{UserID: claims.UserID, Role: claims.Role})
			if logg != nil {
				ctx = logg.WithActorRole(logg.WithUserID(ctx, claims.UserID.String()), string(claims.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func authenticate(ctx context.Context, cfg config.JWTConfig, sessions session.AccessSessionChecker, token string) (*pkgAuth.AccessTokenClaims, error) {
	if token == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	claims, err := pkgAuth.ParseAccessToken(cfg, token)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token")
	}
	if claims.ID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id")
	}
	if sessions == nil {
		return claims, nil
	}
	// A logged-out or rotated session kills its access token before expiry.
	live, err := sessions.HasSession(ctx, claims.ID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session")
	}
	if !live {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "session expired or revoked")
	}
	return claims, nil
}

// BearerToken reads the Authorization header; the "Bearer" scheme is optional.
func BearerToken(r *http.Request) string {
	value := strings.TrimSpace(r.Header.Get("Authorization"))
	if scheme, rest, ok := strings.Cut(value, " "); ok && strings.EqualFold(scheme, "bearer") {
		return strings.TrimSpace(rest)
	}
	return value
}
