package controller

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/sberahim/sqlalchemy-challenge/internal/modules/climate/repository"
	"github.com/sberahim/sqlalchemy-challenge/internal/modules/climate/service"
	"github.com/sberahim/sqlalchemy-challenge/internal/utils"
)

// statusFor maps a service error to the response status and the message
// shown to the client. Store causes are never exposed.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, service.ErrInvalidDate):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, repository.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, repository.ErrStoreUnavailable.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, context.Canceled) {
		slog.Debug("request cancelled", "path", r.URL.Path)
		return
	}
	status, msg := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("request failed", "path", r.URL.Path, "status", status, "error", err)
	}
	utils.WriteError(w, status, msg)
}
