package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/parking-ledger/internal/application"
	"github.com/example/parking-ledger/internal/logging"
)

var (
	errBadRequestBody = errors.New("request body is malformed")
	errInvalidID      = errors.New("identifier must be a positive integer")
	errMissingToken   = errors.New("a bearer token is required")
	errInvalidToken   = errors.New("the bearer token is invalid or expired")

	errServiceUnavailable = errors.New("handler is not configured")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		r.loggerFor(ctx).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		r.loggerFor(ctx).WarnContext(ctx, "request rejected", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{ErrorCode: errorCodeForStatus(status), Message: message})
}

// writeRequestError reports a malformed or invalid request body as 400. Callers log the failure.
func (r responder) writeRequestError(ctx context.Context, w http.ResponseWriter, err error) {
	reqErr, ok := isRequestError(err)
	if !ok {
		r.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}
	r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
		ErrorCode: errorCodeForStatus(http.StatusBadRequest),
		Message:   reqErr.message,
		Errors:    reqErr.fields,
	})
}

func serviceUnavailable(w http.ResponseWriter, r *http.Request) {
	newResponder(nil).writeError(r.Context(), w, http.StatusInternalServerError, errServiceUnavailable)
}

// handleServiceError maps registry errors onto HTTP statuses.
func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		r.writeJSON(ctx, w, http.StatusBadRequest, errorResponse{
			ErrorCode: "INVALID_ARGUMENT",
			Message:   "the request contains invalid fields",
			Errors:    vErr.FieldErrors,
		})
		return
	}

	status, code := statusForError(err)
	if status == http.StatusInternalServerError {
		r.loggerFor(ctx).ErrorContext(ctx, "unexpected service error", "error", err)
		r.writeJSON(ctx, w, status, errorResponse{ErrorCode: code, Message: http.StatusText(status)})
		return
	}
	r.writeJSON(ctx, w, status, errorResponse{ErrorCode: code, Message: err.Error()})
}

func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, application.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, application.ErrSpaceNotFound):
		return http.StatusNotFound, "SPACE_NOT_FOUND"
	case errors.Is(err, application.ErrSpaceUnavailable):
		return http.StatusNotFound, "SPACE_UNAVAILABLE"
	case errors.Is(err, application.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, application.ErrInvalidState):
		return http.StatusConflict, "INVALID_STATE"
	case errors.Is(err, application.ErrTimeConflict):
		return http.StatusConflict, "TIME_CONFLICT"
	case errors.Is(err, application.ErrAlreadyInitialized):
		return http.StatusConflict, "ALREADY_INITIALIZED"
	case errors.Is(err, application.ErrInactive):
		return http.StatusConflict, "INACTIVE"
	case errors.Is(err, application.ErrInvalidRange):
		return http.StatusBadRequest, "INVALID_RANGE"
	case errors.Is(err, application.ErrTooEarly):
		return http.StatusBadRequest, "TOO_EARLY"
	case errors.Is(err, application.ErrInvalidArgument):
		return http.StatusBadRequest, "INVALID_ARGUMENT"
	default:
		return http.StatusInternalServerError, "INTERNAL"
	}
}

func errorCodeForStatus(status int) string {
	switch status {
	case http.StatusBadRequest:
		return "BAD_REQUEST"
	case http.StatusUnauthorized:
		return "UNAUTHENTICATED"
	case http.StatusNotFound:
		return "NOT_FOUND"
	case http.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	default:
		return "INTERNAL"
	}
}

func (r responder) loggerFor(ctx context.Context) *slog.Logger {
	if logger := logging.FromContext(ctx); logger != nil {
		return logger
	}
	return r.logger
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Errors    map[string]string `json:"errors,omitempty"`
}
