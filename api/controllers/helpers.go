package controllers

import (
	"net/http"

	"github.com/jkhalligan/gala-ticket-platform/api/middleware"
	"github.com/jkhalligan/gala-ticket-platform/internal/permissions"
	"github.com/jkhalligan/gala-ticket-platform/pkg/auth"
	pkgerrors "github.com/jkhalligan/gala-ticket-platform/pkg/errors"
)

func actorFromRequest(r *http.Request) (permissions.Actor, error) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		return permissions.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return actor, nil
}

func identityFromRequest(r *http.Request) (auth.Identity, error) {
	identity, ok := middleware.IdentityFromContext(r.Context())
	if !ok {
		return auth.Identity{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials")
	}
	return identity, nil
}
