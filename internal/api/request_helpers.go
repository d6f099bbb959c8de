package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/phrazzld/taskpilot/internal/domain"
)

// getPathUUID extracts a UUID from the URL path parameters.
// A missing or malformed parameter yields an error wrapping domain.ErrInvalidID.
func getPathUUID(r *http.Request, paramName string) (uuid.UUID, error) {
	pathParam := chi.URLParam(r, paramName)
	if pathParam == "" {
		return uuid.Nil, fmt.Errorf("%w: %s is required", domain.ErrInvalidID, paramName)
	}

	id, err := uuid.Parse(pathParam)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %s has invalid format", domain.ErrInvalidID, paramName)
	}
	if id == uuid.Nil {
		return uuid.Nil, fmt.Errorf("%w: %s cannot be the nil UUID", domain.ErrInvalidID, paramName)
	}

	return id, nil
}

// referenceTime returns the request's reference time in UTC, or the
// handler clock's current time when the request did not supply one.
func referenceTime(now *time.Time, clock func() time.Time) time.Time {
	if now != nil {
		return now.UTC()
	}
	return clock().UTC()
}

// normalizeTask fills the defaults a client may omit from a task snapshot.
func normalizeTask(task *domain.Task) {
	if task.Status == "" {
		task.Status = domain.TaskStatusPending
	}
}
