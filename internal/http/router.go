package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/example/parking-ledger/internal/application"
)

// RouterConfig wires handlers and cross-cutting middleware into the router.
type RouterConfig struct {
	Roles        *RoleHandler
	Spaces       *SpaceHandler
	Reservations *ReservationHandler
	Violations   *ViolationHandler
	Verifier     TokenVerifier
	Logger       *slog.Logger
	CORSOrigins  []string
	Middleware   []func(http.Handler) http.Handler
}

// NewRouter builds the HTTP API. Every route except /healthz requires a bearer token.
func NewRouter(cfg RouterConfig) http.Handler {
	logger := defaultLogger(cfg.Logger)
	responder := newResponder(logger)

	r := chi.NewRouter()
	r.Use(RequestLogger(logger))
	if len(cfg.CORSOrigins) > 0 {
		r.Use(CORS(cfg.CORSOrigins))
	}
	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		responder.writeError(req.Context(), w, http.StatusNotFound, nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, req *http.Request) {
		responder.writeError(req.Context(), w, http.StatusMethodNotAllowed, nil)
	})

	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) {
		responder.writeJSON(req.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		if cfg.Verifier != nil {
			r.Use(RequireBearer(cfg.Verifier, logger))
		}

		if cfg.Roles != nil {
			r.Route("/roles", func(r chi.Router) {
				r.Post("/admins/bootstrap", cfg.Roles.Bootstrap(application.RoleAdmin))
				r.Post("/admins", cfg.Roles.AddMember(application.RoleAdmin))
				r.Get("/admins/{principal}", cfg.Roles.Membership(application.RoleAdmin))
				r.Post("/enforcers/bootstrap", cfg.Roles.Bootstrap(application.RoleEnforcer))
				r.Post("/enforcers", cfg.Roles.AddMember(application.RoleEnforcer))
				r.Get("/enforcers/{principal}", cfg.Roles.Membership(application.RoleEnforcer))
			})
		}

		r.Route("/spaces", func(r chi.Router) {
			if cfg.Spaces != nil {
				r.Post("/", cfg.Spaces.Register)
			}
			r.Route("/{id}", func(r chi.Router) {
				if cfg.Spaces != nil {
					r.Get("/", cfg.Spaces.Get)
					r.Patch("/", cfg.Spaces.UpdateDetails)
					r.Put("/availability", cfg.Spaces.SetAvailability)
					r.Post("/deactivate", cfg.Spaces.Deactivate)
					r.Get("/rates", cfg.Spaces.Rates)
				}
				if cfg.Reservations != nil {
					r.Get("/availability", cfg.Reservations.TimeAvailability)
					r.Get("/reservations", cfg.Reservations.ForSpace)
				}
				if cfg.Violations != nil {
					r.Get("/violations", cfg.Violations.ForSpace)
				}
			})
		})

		if cfg.Reservations != nil {
			r.Post("/reservations", cfg.Reservations.Create)
			r.Route("/reservations/{id}", func(r chi.Router) {
				r.Get("/", cfg.Reservations.Get)
				r.Post("/confirm", cfg.Reservations.Confirm)
				r.Post("/cancel", cfg.Reservations.Cancel)
				r.Post("/check-in", cfg.Reservations.CheckIn)
				r.Post("/check-out", cfg.Reservations.CheckOut)
			})
			r.Get("/holders/{principal}/reservations", cfg.Reservations.ForHolder)
		}

		if cfg.Violations != nil {
			r.Post("/violations", cfg.Violations.Report)
			r.Route("/violations/{id}", func(r chi.Router) {
				r.Get("/", cfg.Violations.Get)
				r.Post("/review", cfg.Violations.Review)
				r.Put("/violator", cfg.Violations.IdentifyViolator)
				r.Post("/pay", cfg.Violations.PayPenalty)
			})
			r.Get("/violators/{principal}/violations", cfg.Violations.ForViolator)
		}
	})

	return r
}
