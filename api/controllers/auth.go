package controllers

import (
	"net/http"

	"github.com/angelmondragon/garage-backend/api/middleware"
	"github.com/angelmondragon/garage-backend/api/responses"
	"github.com/angelmondragon/garage-backend/api/validators"
	"github.com/angelmondragon/garage-backend/internal/auth"
	pkgerrors "github.com/angelmondragon/garage-backend/pkg/errors"
	"github.com/angelmondragon/garage-backend/pkg/logger"
)

// AuthLogin exchanges email and password for an access and refresh token pair.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "auth")
			return
		}
		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tokens, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tokens)
	}
}

// AuthRegister opens a staff account and returns the same payload as a login.
func AuthRegister(reg auth.RegisterService, svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if reg == nil || svc == nil {
			unavailable(w, r, logg, "auth")
			return
		}
		var body auth.RegisterRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if _, err := reg.Register(r.Context(), body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tokens, err := svc.Login(r.Context(), auth.LoginRequest{Email: body.Email, Password: body.Password})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, tokens)
	}
}

// AuthRefresh takes the (possibly expired) access token from the header and the refresh
// token from the body.
func AuthRefresh(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "auth")
			return
		}
		var body auth.RefreshRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		access, err := bearer(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		tokens, err := svc.Refresh(r.Context(), access, body.RefreshToken)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, tokens)
	}
}

func AuthLogout(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			unavailable(w, r, logg, "auth")
			return
		}
		access, err := bearer(r)
		if err == nil {
			err = svc.Logout(r.Context(), access)
		}
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "logged_out"})
	}
}

// bearer is used on routes outside the Auth middleware, where an expired token is allowed.
func bearer(r *http.Request) (string, error) {
	if token := middleware.BearerToken(r); token != "" {
		return token, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
}
