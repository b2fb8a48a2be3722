package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/parking-ledger/internal/application"
)

// SpaceService captures the space registry operations exposed over HTTP.
type SpaceService interface {
	Register(ctx context.Context, caller application.Principal, input application.RegisterSpaceInput) (application.Space, error)
	UpdateDetails(ctx context.Context, caller application.Principal, id int64, input application.UpdateSpaceInput) (application.Space, error)
	SetAvailability(ctx context.Context, caller application.Principal, id int64, available bool) (application.Space, error)
	Deactivate(ctx context.Context, caller application.Principal, id int64) (application.Space, error)
	Get(ctx context.Context, id int64) (application.Space, error)
	HourlyRate(ctx context.Context, id int64) (int64, error)
	DailyRate(ctx context.Context, id int64) (int64, error)
}

// SpaceHandler serves the space registry endpoints.
type SpaceHandler struct {
	service   SpaceService
	responder responder
	logger    *slog.Logger
}

// NewSpaceHandler constructs a SpaceHandler using the default logger.
func NewSpaceHandler(service SpaceService) *SpaceHandler {
	return NewSpaceHandlerWithLogger(service, nil)
}

// NewSpaceHandlerWithLogger constructs a SpaceHandler with a specified logger.
func NewSpaceHandlerWithLogger(service SpaceService, logger *slog.Logger) *SpaceHandler {
	logger = defaultLogger(logger)
	return &SpaceHandler{service: service, responder: newResponder(logger), logger: logger}
}

func (h *SpaceHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "SpaceHandler", operation, attrs...)
}

type registerSpaceRequest struct {
	Location    string `json:"location" validate:"max=256"`
	Description string `json:"description" validate:"max=1024"`
	HourlyRate  *int64 `json:"hourly_rate" validate:"required"`
	DailyRate   *int64 `json:"daily_rate" validate:"required"`
}

type updateSpaceRequest struct {
	Description *string `json:"description" validate:"omitempty,max=1024"`
	HourlyRate  *int64  `json:"hourly_rate"`
	DailyRate   *int64  `json:"daily_rate"`
}

type availabilityRequest struct {
	Available *bool `json:"available" validate:"required"`
}

type spaceDTO struct {
	ID          int64  `json:"id"`
	Owner       string `json:"owner"`
	Location    string `json:"location"`
	Description string `json:"description"`
	HourlyRate  int64  `json:"hourly_rate"`
	DailyRate   int64  `json:"daily_rate"`
	Available   bool   `json:"available"`
	Active      bool   `json:"active"`
	IsAvailable bool   `json:"is_available"`
}

type ratesResponse struct {
	SpaceID    int64 `json:"space_id"`
	HourlyRate int64 `json:"hourly_rate"`
	DailyRate  int64 `json:"daily_rate"`
}

func toSpaceDTO(space application.Space) spaceDTO {
	return spaceDTO{
		ID:          space.ID,
		Owner:       space.Owner.String(),
		Location:    space.Location,
		Description: space.Description,
		HourlyRate:  space.HourlyRate,
		DailyRate:   space.DailyRate,
		Available:   space.Available,
		Active:      space.Active,
		IsAvailable: space.Active && space.Available,
	}
}

// Register handles POST /spaces.
func (h *SpaceHandler) Register(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		serviceUnavailable(w, r)
		return
	}

	ctx := r.Context()
	var req registerSpaceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(ctx, "Register", "error_kind", "bad_request").WarnContext(ctx, "failed to decode space request", "error", err)
		h.responder.writeRequestError(ctx, w, err)
		return
	}

	space, err := h.service.Register(ctx, principalOf(ctx), application.RegisterSpaceInput{
		Location:    req.Location,
		Description: req.Description,
		HourlyRate:  *req.HourlyRate,
		DailyRate:   *req.DailyRate,
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusCreated, toSpaceDTO(space))
}

// Get handles GET /spaces/{id}.
func (h *SpaceHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		serviceUnavailable(w, r)
		return
	}

	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	space, err := h.service.Get(ctx, id)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, toSpaceDTO(space))
}

// UpdateDetails handles PATCH /spaces/{id}.
func (h *SpaceHandler) UpdateDetails(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		serviceUnavailable(w, r)
		return
	}

	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	var req updateSpaceRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(ctx, "UpdateDetails", "error_kind", "bad_request").WarnContext(ctx, "failed to decode space update request", "error", err)
		h.responder.writeRequestError(ctx, w, err)
		return
	}

	space, err := h.service.UpdateDetails(ctx, principalOf(ctx), id, application.UpdateSpaceInput{
		Description: req.Description,
		HourlyRate:  req.HourlyRate,
		DailyRate:   req.DailyRate,
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, toSpaceDTO(space))
}

// SetAvailability handles PUT /spaces/{id}/availability.
func (h *SpaceHandler) SetAvailability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		serviceUnavailable(w, r)
		return
	}

	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	var req availabilityRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(ctx, "SetAvailability", "error_kind", "bad_request").WarnContext(ctx, "failed to decode availability request", "error", err)
		h.responder.writeRequestError(ctx, w, err)
		return
	}

	space, err := h.service.SetAvailability(ctx, principalOf(ctx), id, *req.Available)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, toSpaceDTO(space))
}

// Deactivate handles POST /spaces/{id}/deactivate.
func (h *SpaceHandler) Deactivate(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		serviceUnavailable(w, r)
		return
	}

	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	space, err := h.service.Deactivate(ctx, principalOf(ctx), id)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, toSpaceDTO(space))
}

// Rates handles GET /spaces/{id}/rates.
func (h *SpaceHandler) Rates(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		serviceUnavailable(w, r)
		return
	}

	ctx := r.Context()
	id, err := pathID(r, "id")
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	hourly, err := h.service.HourlyRate(ctx, id)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}
	daily, err := h.service.DailyRate(ctx, id)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, ratesResponse{SpaceID: id, HourlyRate: hourly, DailyRate: daily})
}
