package controllers

import (
	"net/http"

	"github.com/angelmondragon/garage-backend/api/middleware"
	"github.com/angelmondragon/garage-backend/api/responses"
	pkgerrors "github.com/angelmondragon/garage-backend/pkg/errors"
	"github.com/angelmondragon/garage-backend/pkg/logger"
	"github.com/google/uuid"
)

func unavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger, name string) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, name+" service unavailable"))
}

func currentUserID(r *http.Request) (uuid.UUID, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	return actor.UserID, nil
}
