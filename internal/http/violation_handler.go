package http

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/parking-ledger/internal/application"
	"github.com/example/parking-ledger/internal/lifecycle"
)

var errAmbiguousEvidence = errors.New("provide either evidence_hash or evidence, not both")

// ViolationService captures the violation registry operations exposed over HTTP.
type ViolationService interface {
	Report(ctx context.Context, caller application.Principal, input application.ReportViolationInput) (application.Violation, error)
	Review(ctx context.Context, caller application.Principal, id int64, decision lifecycle.ViolationStatus, penalty *int64) (application.Violation, error)
	IdentifyViolator(ctx context.Context, caller application.Principal, id int64, violator application.Principal) (application.Violation, error)
	PayPenalty(ctx context.Context, caller application.Principal, id int64) (application.Violation, error)
	Get(ctx context.Context, id int64) (application.Violation, error)
	ForSpace(ctx context.Context, spaceID int64) ([]int64, error)
	ForViolator(ctx context.Context, violator application.Principal) ([]int64, error)
}

// ViolationHandler serves the violation registry endpoints.
type ViolationHandler struct {
	service   ViolationService
	responder responder
	logger    *slog.Logger
}

// NewViolationHandler constructs a ViolationHandler using the default logger.
func NewViolationHandler(service ViolationService) *ViolationHandler {
	return NewViolationHandlerWithLogger(service, nil)
}

// NewViolationHandlerWithLogger constructs a ViolationHandler with a specified logger.
func NewViolationHandlerWithLogger(service ViolationService, logger *slog.Logger) *ViolationHandler {
	logger = defaultLogger(logger)
	return &ViolationHandler{service: service, responder: newResponder(logger), logger: logger}
}

func (h *ViolationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "ViolationHandler", operation, attrs...)
}

// reportViolationRequest accepts either a hex digest or the raw evidence, which is hashed on arrival.
type reportViolationRequest struct {
	SpaceID      *int64 `json:"space_id" validate:"required"`
	LicensePlate string `json:"license_plate" validate:"max=32"`
	Description  string `json:"description" validate:"max=1024"`
	EvidenceHash string `json:"evidence_hash" validate:"required_without=Evidence,omitempty,max=66,hexadecimal"`
	Evidence     string `json:"evidence" validate:"required_without=EvidenceHash,omitempty,base64"`
	Timestamp    *int64 `json:"timestamp" validate:"required"`
}

type reviewViolationRequest struct {
	Decision      string `json:"decision" validate:"max=32"`
	PenaltyAmount *int64 `json:"penalty_amount"`
}

type identifyViolatorRequest struct {
	Violator string `json:"violator" validate:"max=256"`
}

type violationDTO struct {
	ID            int64   `json:"id"`
	SpaceID       int64   `json:"space_id"`
	Reporter      string  `json:"reporter"`
	Violator      *string `json:"violator,omitempty"`
	LicensePlate  string  `json:"license_plate"`
	Description   string  `json:"description"`
	EvidenceHash  string  `json:"evidence_hash"`
	Timestamp     int64   `json:"timestamp"`
	Status        string  `json:"status"`
	PenaltyAmount int64   `json:"penalty_amount"`
}

type violationIDsResponse struct {
	SpaceID      int64   `json:"space_id,omitempty"`
	Violator     string  `json:"violator,omitempty"`
	ViolationIDs []int64 `json:"violation_ids"`
}

func toViolationDTO(violation application.Violation) violationDTO {
	dto := violationDTO{
		ID:            violation.ID,
		SpaceID:       violation.SpaceID,
		Reporter:      violation.Reporter.String(),
		LicensePlate:  violation.LicensePlate,
		Description:   violation.Description,
		EvidenceHash:  violation.EvidenceHash.String(),
		Timestamp:     violation.Timestamp,
		Status:        string(violation.Status),
		PenaltyAmount: violation.PenaltyAmount,
	}
	if violation.Violator != nil {
		violator := violation.Violator.String()
		dto.Violator = &violator
	}
	return dto
}

func (req reportViolationRequest) evidenceHash() (application.EvidenceHash, error) {
	if req.EvidenceHash != "" && req.Evidence != "" {
		return application.EvidenceHash{}, errAmbiguousEvidence
	}
	if req.EvidenceHash != "" {
		return application.ParseEvidenceHash(req.EvidenceHash)
	}
	raw, err := base64.StdEncoding.DecodeString(req.Evidence)
	if err != nil {
		return application.EvidenceHash{}, err
	}
	return application.DigestEvidence(raw), nil
}

// Report handles POST /violations.
func (h *ViolationHandler) Report(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		serviceUnavailable(w, r)
		return
	}

	ctx := r.Context()
	var req reportViolationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(ctx, "Report", "error_kind", "bad_request").WarnContext(ctx, "failed to decode violation request", "error", err)
		h.responder.writeRequestError(ctx, w, err)
		return
	}

	hash, err := req.evidenceHash()
	if err != nil {
		var vErr *application.ValidationError
		if errors.As(err, &vErr) {
			h.responder.handleServiceError(ctx, w, err)
			return
		}
		h.responder.writeError(ctx, w, http.StatusBadRequest, err)
		return
	}

	violation, err := h.service.Report(ctx, principalOf(ctx), application.ReportViolationInput{
		SpaceID:      *req.SpaceID,
		LicensePlate: req.LicensePlate,
		Description:  req.Description,
		EvidenceHash: hash,
		Timestamp:    *req.Timestamp,
	})
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusCreated, toViolationDTO(violation))
}

// Get handles GET /violations/{id}.
func (h *ViolationHandler) Get(w http.ResponseWriter, r *http.Request) {
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

	violation, err := h.service.Get(ctx, id)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, toViolationDTO(violation))
}

// Review handles POST /violations/{id}/review.
func (h *ViolationHandler) Review(w http.ResponseWriter, r *http.Request) {
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

	var req reviewViolationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(ctx, "Review", "error_kind", "bad_request").WarnContext(ctx, "failed to decode review request", "error", err)
		h.responder.writeRequestError(ctx, w, err)
		return
	}

	// Unknown decisions pass through; the registry rejects them after its state checks.
	decision := lifecycle.ViolationStatus(strings.ToLower(strings.TrimSpace(req.Decision)))

	h.finish(w, r, "Review", id, func(ctx context.Context, caller application.Principal) (application.Violation, error) {
		return h.service.Review(ctx, caller, id, decision, req.PenaltyAmount)
	})
}

// IdentifyViolator handles PUT /violations/{id}/violator.
func (h *ViolationHandler) IdentifyViolator(w http.ResponseWriter, r *http.Request) {
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

	var req identifyViolatorRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.log(ctx, "IdentifyViolator", "error_kind", "bad_request").WarnContext(ctx, "failed to decode violator request", "error", err)
		h.responder.writeRequestError(ctx, w, err)
		return
	}

	violator := application.Principal(strings.TrimSpace(req.Violator))
	h.finish(w, r, "IdentifyViolator", id, func(ctx context.Context, caller application.Principal) (application.Violation, error) {
		return h.service.IdentifyViolator(ctx, caller, id, violator)
	})
}

// PayPenalty handles POST /violations/{id}/pay.
func (h *ViolationHandler) PayPenalty(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		serviceUnavailable(w, r)
		return
	}

	id, err := pathID(r, "id")
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	h.finish(w, r, "PayPenalty", id, func(ctx context.Context, caller application.Principal) (application.Violation, error) {
		return h.service.PayPenalty(ctx, caller, id)
	})
}

// ForSpace handles GET /spaces/{id}/violations.
func (h *ViolationHandler) ForSpace(w http.ResponseWriter, r *http.Request) {
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

	ids, err := h.service.ForSpace(ctx, id)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, violationIDsResponse{SpaceID: id, ViolationIDs: nonNilIDs(ids)})
}

// ForViolator handles GET /violators/{principal}/violations.
func (h *ViolationHandler) ForViolator(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		serviceUnavailable(w, r)
		return
	}

	ctx := r.Context()
	violator := application.Principal(chi.URLParam(r, "principal"))
	ids, err := h.service.ForViolator(ctx, violator)
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, violationIDsResponse{Violator: violator.String(), ViolationIDs: nonNilIDs(ids)})
}

func (h *ViolationHandler) finish(w http.ResponseWriter, r *http.Request, operation string, id int64, call func(context.Context, application.Principal) (application.Violation, error)) {
	ctx := r.Context()
	violation, err := call(ctx, principalOf(ctx))
	if err != nil {
		h.responder.handleServiceError(ctx, w, err)
		return
	}

	h.responder.writeJSON(ctx, w, http.StatusOK, toViolationDTO(violation))
}

func nonNilIDs(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
