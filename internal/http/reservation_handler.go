package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/example/parking-ledger/internal/application"
)

var errInvalidTime = errors.New("time query parameter must be an integer")

// ReservationService captures the reservation ledger operations exposed over HTTP.
type ReservationService interface {
	Create(ctx context.Context, caller application.Principal, spaceID, start, end int64) (application.Reservation, error)
	Confirm(ctx context.Context, caller application.Principal, id, paymentID int64) (application.Reservation, error)
	Cancel(ctx context.Context, caller application.Principal, id int64) (application.Reservation, error)
	CheckIn(ctx context.Context, caller application.Principal, id, now int64) (application.Reservation, error)
	CheckOut(ctx context.Context, caller application.Principal, id, now int64) (application.Reservation, error)
	Get(ctx context.Context, id int64) (application.Reservation, error)
	IsTimeAvailable(ctx context.Context, spaceID, t int64) (bool, error)
	ForSpace(ctx context.Context, spaceID int64) ([]application.Reservation, error)
	ForHolder(ctx context.Context, holder application.Principal) ([]application.Reservation, error)
}

// ReservationHandler serves the reservation ledger endpoints.
type ReservationHandler struct {
	service   ReservationService
	responder responder
	logger    *slog.Logger
}

// NewReservationHandler constructs a ReservationHandler using the default logger.
func NewReservationHandler(service ReservationService) *ReservationHandler {
	return NewReservationHandlerWithLogger(service, nil)
}

// NewReservationHandlerWithLogger constructs a ReservationHandler with a specified logger.
func NewReservationHandlerWithLogger(service ReservationService, logger *slog.Logger) *ReservationHandler {
	logger = defaultLogger(logger)
	return &ReservationHandler{service: service, responder: newResponder(logger), logger: logger}
}

func (h *ReservationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "ReservationHandler", operation, attrs...)
}

type createReservationRequest struct {
	SpaceID   *int64 `json:"space_id" validate:"required"`
	StartTime *int64 `json:"start_time" validate:"required"`
	EndTime   *int64 `json:"end_time" validate:"required"`
}

type confirmReservationRequest struct {
	PaymentID *int64 `json:"payment_id" validate:"required"`
}

type clockRequest struct {
	CurrentTime *int64 `json:"current_time" validate:"required"`
}

type reservationDTO struct {
	ID        int64  `json:"id"`
	SpaceID   int64  `json:"space_id"`
	Holder    string `json:"holder"`
	StartTime int64  `json:"start_time"`
	EndTime   int64  `json:"end_time"`
	Status    string `json:"status"`
	PaymentID int64  `json:"payment_id"`
	IsActive  bool   `json:"is_active"`
}

type timeAvailabilityResponse struct {
	SpaceID   int64 `json:"space_id"`
	Time      int64 `json:"time"`
	Available bool  `json:"available"`
}

func toReservationDTO(reservation application.Reservation) reservationDTO {
	return reservationDTO{
		ID:        reservation.ID,
		SpaceID:   reservation.SpaceID,
		Holder:    reservation.Holder.String(),
		StartTime: reservation.StartTime,
		EndTime:   reservation.EndTime,
		Status:    string(reservation.Status),
		PaymentID: reservation.PaymentID,
		IsActive:  reservation.Status.IsActive(),
	}
}

func toReservationDTOs(reservations []application.Reservation) []reservationDTO {
	dtos := make([]reservationDTO, 0, len(reservations))
	for _, reservation := range reservations {
		dtos = append(dtos, toReservationDTO(reservation))
	}
	return dtos
}

// Create handles POST /reservations.
func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		serviceUnavailable(w, r)
		return
	}

	ctx := r.Context()
	var req createReservationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(ctx, "Create", "error_kind", "bad_request").WarnContext(ctx, "failed to decode reservation request", "error", err)
		h.responder.writeRequestError(ctx, w, err)
		return
	}

	reservation, err := h.service.Create(ctx, principalOf(ctx), *req.SpaceID, *req.StartTime, *req.EndTime)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusCreated, toReservationDTO(reservation))
}

// Get handles GET /reservations/{id}.
func (h *ReservationHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	reservation, err := h.service.Get(ctx, id)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, toReservationDTO(reservation))
}

// Confirm handles POST /reservations/{id}/confirm.
func (h *ReservationHandler) Confirm(w http.ResponseWriter, r *http.Request) {
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

	var req confirmReservationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(ctx, "Confirm", "error_kind", "bad_request").WarnContext(ctx, "failed to decode confirmation request", "error", err)
		h.responder.writeRequestError(ctx, w, err)
		return
	}

	h.finish(w, r, "Confirm", id, func(ctx context.Context, caller application.Principal) (application.Reservation, error) {
		return h.service.Confirm(ctx, caller, id, *req.PaymentID)
	})
}

// Cancel handles POST /reservations/{id}/cancel.
func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		serviceUnavailable(w, r)
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	h.finish(w, r, "Cancel", id, func(ctx context.Context, caller application.Principal) (application.Reservation, error) {
		return h.service.Cancel(ctx, caller, id)
	})
}

// CheckIn handles POST /reservations/{id}/check-in.
func (h *ReservationHandler) CheckIn(w http.ResponseWriter, r *http.Request) {
	h.clocked(w, r, "CheckIn", func(ctx context.Context, caller application.Principal, id, now int64) (application.Reservation, error) {
		return h.service.CheckIn(ctx, caller, id, now)
	})
}

// CheckOut handles POST /reservations/{id}/check-out.
func (h *ReservationHandler) CheckOut(w http.ResponseWriter, r *http.Request) {
	h.clocked(w, r, "CheckOut", func(ctx context.Context, caller application.Principal, id, now int64) (application.Reservation, error) {
		return h.service.CheckOut(ctx, caller, id, now)
	})
}

// TimeAvailability handles GET /spaces/{id}/availability?time=T.
func (h *ReservationHandler) TimeAvailability(w http.ResponseWriter, r *http.Request) {
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
	at, err := strconv.ParseInt(r.URL.Query().Get("time"), 10, 64)
	if err != nil {
		h.responder.writeError(ctx, w, http.StatusBadRequest, errInvalidTime)
		return
	}

	available, err := h.service.IsTimeAvailable(ctx, id, at)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, timeAvailabilityResponse{SpaceID: id, Time: at, Available: available})
}

// ForSpace handles GET /spaces/{id}/reservations.
func (h *ReservationHandler) ForSpace(w http.ResponseWriter, r *http.Request) {
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

	reservations, err := h.service.ForSpace(ctx, id)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, toReservationDTOs(reservations))
}

// ForHolder handles GET /holders/{principal}/reservations.
func (h *ReservationHandler) ForHolder(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		serviceUnavailable(w, r)
		return
	}

	ctx := r.Context()
	reservations, err := h.service.ForHolder(ctx, application.Principal(chi.URLParam(r, "principal")))
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, toReservationDTOs(reservations))
}

func (h *ReservationHandler) clocked(w http.ResponseWriter, r *http.Request, operation string, call func(context.Context, application.Principal, int64, int64) (application.Reservation, error)) {
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

	var req clockRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(ctx, operation, "error_kind", "bad_request").WarnContext(ctx, "failed to decode clock request", "error", err)
		h.responder.writeRequestError(ctx, w, err)
		return
	}

	h.finish(w, r, operation, id, func(ctx context.Context, caller application.Principal) (application.Reservation, error) {
		return call(ctx, caller, id, *req.CurrentTime)
	})
}

func (h *ReservationHandler) finish(w http.ResponseWriter, r *http.Request, operation string, id int64, call func(context.Context, application.Principal) (application.Reservation, error)) {
	ctx := r.Context()
	reservation, err := call(ctx, principalOf(ctx))
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, toReservationDTO(reservation))
}
