package auth

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/httprate"

	"github.com/operate360/operate360/internal/platform/httpx"
	"github.com/operate360/operate360/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	guard          *Guard
	events         EventRecorder
	rateLimitPerIP int
}

// NewHandler constructs a Handler instance. rateLimitPerIP bounds login and
// register attempts per client IP per minute; zero disables the limit.
func NewHandler(logger *slog.Logger, service *Service, guard *Guard, events EventRecorder, rateLimitPerIP int) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		guard:          guard,
		events:         events,
		rateLimitPerIP: rateLimitPerIP,
	}
}

// MountRoutes registers auth routes on provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		if h.rateLimitPerIP > 0 {
			r.Use(httprate.LimitByIP(h.rateLimitPerIP, time.Minute))
		}
		r.Post("/login", h.handleLogin)
		r.Post("/register", h.handleRegister)
	})
	// Logout only needs a bearer token to be present; it does not verify it.
	r.Post("/logout", h.handleLogout)
	r.With(h.guard.Authenticate).Get("/me", h.handleMe)
}

type tokenResponse struct {
	Message   string    `json:"message"`
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *Identity `json:"user,omitempty"`
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var in LoginInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.record("login", "bad_request")
		httpx.Message(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sess, err := h.service.Login(r.Context(), in)
	if err != nil {
		h.fail(w, r, "login", err)
		return
	}
	h.record("login", "success")
	httpx.JSON(w, http.StatusOK, tokenResponse{
		Message:   "login successfully",
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
	})
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in RegisterInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		h.record("register", "bad_request")
		httpx.Message(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	sess, err := h.service.Register(r.Context(), in)
	if err != nil {
		h.fail(w, r, "register", err)
		return
	}
	h.record("register", "success")
	httpx.JSON(w, http.StatusCreated, tokenResponse{
		Message:   "Register a user successfully",
		Token:     sess.Token,
		ExpiresAt: sess.ExpiresAt,
		User:      &sess.Identity,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), BearerToken(r)); err != nil {
		h.fail(w, r, "logout", err)
		return
	}
	h.record("logout", "success")
	httpx.Message(w, http.StatusOK, "Logout successful")
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	p, ok := shared.PrincipalFromContext(r.Context())
	if !ok {
		httpx.RespondError(w, ErrUnauthorized)
		return
	}
	id, err := h.service.Me(r.Context(), p.UserID)
	if err != nil {
		h.fail(w, r, "me", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user": id})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, event string, err error) {
	status := httpx.StatusFor(err)
	if status >= http.StatusInternalServerError {
		h.logger.Error(event+" failed",
			slog.Any("error", err),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
		h.record(event, "error")
	} else {
		h.record(event, "rejected")
	}
	httpx.RespondError(w, err)
}

func (h *Handler) record(event, outcome string) {
	if h.events != nil {
		h.events.RecordAuthEvent(event, outcome)
	}
}
