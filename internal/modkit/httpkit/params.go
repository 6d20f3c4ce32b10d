package httpkit

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	perr "punchcard/internal/platform/errors"
)

// Param returns a chi route parameter by name
func Param(r *http.Request, name string) string {
	return chi.URLParam(r, name)
}

// ParamUUID parses a chi route parameter as a UUID
func ParamUUID(r *http.Request, name string) (uuid.UUID, error) {
	raw := chi.URLParam(r, name)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, perr.WithField(perr.InvalidArgf("invalid %s %q", name, raw), name)
	}
	return id, nil
}
