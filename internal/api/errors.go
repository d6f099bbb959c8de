package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/phrazzld/taskpilot/internal/api/shared"
	"github.com/phrazzld/taskpilot/internal/domain"
	"github.com/phrazzld/taskpilot/internal/domain/priority"
	"github.com/phrazzld/taskpilot/internal/reschedule"
	"github.com/phrazzld/taskpilot/internal/service"
	"github.com/phrazzld/taskpilot/internal/store"
)

// MapErrorToStatusCode maps internal errors to appropriate HTTP status codes
// based on the error type. This prevents leaking internal error types or
// messages to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	// A task snapshot broke an invariant; the request itself was well formed
	case errors.Is(err, domain.ErrInvalidTask),
		errors.Is(err, service.ErrScheduleUnavailable):
		return http.StatusUnprocessableEntity

	// Bad request errors
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrInvalidID),
		errors.Is(err, priority.ErrNilTask),
		errors.Is(err, priority.ErrNotMissed),
		errors.Is(err, priority.ErrSlotInPast),
		errors.Is(err, store.ErrInvalidEntity),
		errors.Is(err, shared.ErrEmptyBody):
		return http.StatusBadRequest

	// Not found errors
	case errors.Is(err, service.ErrTaskNotFound),
		errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound

	// Conflict errors
	case errors.Is(err, priority.ErrEscalated),
		errors.Is(err, store.ErrConflict):
		return http.StatusConflict

	// The runner cannot take more work right now
	case errors.Is(err, reschedule.ErrQueueFull),
		errors.Is(err, reschedule.ErrQueueClosed):
		return http.StatusServiceUnavailable

	// Default: internal server error
	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a sanitized, user-friendly error message
// based on the error type. This prevents leaking sensitive internal details.
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, service.ErrScheduleUnavailable):
		return "Schedule could not be computed"

	case errors.Is(err, domain.ErrInvalidTask):
		if invalid, ok := domain.AsInvalidTask(err); ok {
			return fmt.Sprintf("Invalid task: %v", invalid.Err)
		}
		return "Invalid task"

	case errors.Is(err, domain.ErrInvalidID):
		return "Invalid ID"

	case errors.Is(err, priority.ErrNilTask), errors.Is(err, shared.ErrEmptyBody):
		return "Task is required"

	case errors.Is(err, priority.ErrNotMissed):
		return "Only missed tasks can be re-slotted"

	case errors.Is(err, priority.ErrEscalated):
		return "Task is awaiting a user decision"

	case errors.Is(err, priority.ErrSlotInPast):
		return "New due date must be in the future"

	case errors.Is(err, service.ErrTaskNotFound), errors.Is(err, store.ErrNotFound):
		return "Task not found"

	case errors.Is(err, store.ErrConflict):
		return "Task was modified concurrently"

	case errors.Is(err, store.ErrInvalidEntity):
		return "Invalid entity data"

	case errors.Is(err, reschedule.ErrQueueFull):
		return "Reschedule queue is full, try again later"

	case errors.Is(err, reschedule.ErrQueueClosed):
		return "Rescheduling is shutting down"

	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns validator errors into a short message naming
// the first failing field, without echoing the submitted value.
func SanitizeValidationError(err error) string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
		fe := validationErrors[0]
		return fmt.Sprintf("Invalid %s: %s", fe.Field(), getValidationTagMessage(fe.Tag()))
	}
	return "Validation error"
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte", "gt":
		return "too small"
	case "max", "lte", "lt":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

// HandleAPIError writes the error response for err. defaultMsg replaces the
// generic message of unmapped (500) errors. Invalid task errors carry the
// offending task ID in the response body. Conflicts are logged at WARN.
func HandleAPIError(w http.ResponseWriter, r *http.Request, err error, defaultMsg string) {
	statusCode := MapErrorToStatusCode(err)
	message := GetSafeErrorMessage(err)
	if statusCode == http.StatusInternalServerError && defaultMsg != "" {
		message = defaultMsg
	}

	var opts []shared.ResponseOption
	if invalid, ok := domain.AsInvalidTask(err); ok {
		opts = append(opts, shared.WithInvalidTask(invalid.TaskID, invalid.Field))
	}
	if statusCode == http.StatusConflict {
		opts = append(opts, shared.WithElevatedLogLevel())
	}

	shared.RespondWithErrorAndLog(w, r, statusCode, message, err, opts...)
}
