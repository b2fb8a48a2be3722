package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/example/parking-ledger/internal/application"
)

// RoleService captures the access control operations exposed over HTTP.
type RoleService interface {
	InitializeAdmins(ctx context.Context, caller application.Principal) error
	InitializeEnforcers(ctx context.Context, caller application.Principal) error
	AddAdmin(ctx context.Context, caller, p application.Principal) error
	AddEnforcer(ctx context.Context, caller, p application.Principal) error
	HasRole(ctx context.Context, role application.Role, p application.Principal) (bool, error)
}

// RoleHandler serves the admin and enforcer membership endpoints.
type RoleHandler struct {
	service   RoleService
	responder responder
	logger    *slog.Logger
}

// NewRoleHandler constructs a RoleHandler using the default logger.
func NewRoleHandler(service RoleService) *RoleHandler {
	return NewRoleHandlerWithLogger(service, nil)
}

// NewRoleHandlerWithLogger constructs a RoleHandler with a specified logger.
func NewRoleHandlerWithLogger(service RoleService, logger *slog.Logger) *RoleHandler {
	logger = defaultLogger(logger)
	return &RoleHandler{service: service, responder: newResponder(logger), logger: logger}
}

func (h *RoleHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "RoleHandler", operation, attrs...)
}

type addMemberRequest struct {
	Principal string `json:"principal" validate:"max=256"`
}

type membershipResponse struct {
	Principal string `json:"principal"`
	Role      string `json:"role"`
	Member    bool   `json:"member"`
}

// Bootstrap handles POST /roles/{role}/bootstrap.
func (h *RoleHandler) Bootstrap(role application.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h == nil || h.service == nil {
			serviceUnavailable(w, r)
			return
		}

		ctx := r.Context()
		caller := principalOf(ctx)
		var err error
		switch role {
		case application.RoleAdmin:
			err = h.service.InitializeAdmins(ctx, caller)
		default:
			err = h.service.InitializeEnforcers(ctx, caller)
		}
		if err != nil {
			h.responder.handleServiceError(ctx, w, err)
			return
		}

		h.responder.writeJSON(ctx, w, http.StatusCreated, membershipResponse{
			Principal: caller.String(),
			Role:      string(role),
			Member:    true,
		})
	}
}

// AddMember handles POST /roles/{role}.
func (h *RoleHandler) AddMember(role application.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h == nil || h.service == nil {
			serviceUnavailable(w, r)
			return
		}

		ctx := r.Context()
		var req addMemberRequest
		if err := decodeJSON(w, r, &req); err != nil {
			h.log(ctx, "AddMember", "error_kind", "bad_request").WarnContext(ctx, "failed to decode role member request", "error", err)
			h.responder.writeRequestError(ctx, w, err)
			return
		}

		caller := principalOf(ctx)
		member := application.Principal(strings.TrimSpace(req.Principal))
		var err error
		switch role {
		case application.RoleAdmin:
			err = h.service.AddAdmin(ctx, caller, member)
		default:
			err = h.service.AddEnforcer(ctx, caller, member)
		}
		if err != nil {
			h.responder.handleServiceError(ctx, w, err)
			return
		}

		h.responder.writeJSON(ctx, w, http.StatusOK, membershipResponse{
			Principal: member.String(),
			Role:      string(role),
			Member:    true,
		})
	}
}

// Membership handles GET /roles/{role}/{principal}.
func (h *RoleHandler) Membership(role application.Role) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if h == nil || h.service == nil {
			serviceUnavailable(w, r)
			return
		}

		ctx := r.Context()
		principal := application.Principal(chi.URLParam(r, "principal"))
		member, err := h.service.HasRole(ctx, role, principal)
		if err != nil {
			h.log(ctx, "Membership", "role", string(role)).ErrorContext(ctx, "failed to check membership", "error", err, "error_kind", application.ErrorKind(err))
			h.responder.handleServiceError(ctx, w, err)
			return
		}

		h.responder.writeJSON(ctx, w, http.StatusOK, membershipResponse{
			Principal: principal.String(),
			Role:      string(role),
			Member:    member,
		})
	}
}
