package users

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/operate360/operate360/internal/auth"
	"github.com/operate360/operate360/internal/platform/httpx"
	"github.com/operate360/operate360/internal/shared"
)

// Handler manages user management endpoints.
type Handler struct {
	logger      *slog.Logger
	service     *Service
	guard       *auth.Guard
	adminRoleID int64
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard *auth.Guard, adminRoleID int64) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, guard: guard, adminRoleID: adminRoleID}
}

// MountRoutes registers user routes. Every route requires a valid token.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Use(h.guard.Authenticate)
	r.Get("/", h.listUsers)
	r.Get("/{userId}", h.getUser)
	r.Put("/{userId}/update-profile", h.updateProfile)
	r.Put("/{userId}/change-password", h.changePassword)
	r.With(auth.RequireRoles(h.adminRoleID)).Delete("/{userId}", h.deleteUser)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.fail(w, r, "list users", err)
		return
	}
	httpx.JSON(w, http.StatusOK, users)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	user, err := h.service.GetUser(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get user", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) updateProfile(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	var in ProfileInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Message(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	actor, _ := shared.PrincipalFromContext(r.Context())
	user, err := h.service.UpdateProfile(r.Context(), actor, id, in)
	if err != nil {
		h.fail(w, r, "update profile", err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) changePassword(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	var in PasswordInput
	if err := httpx.DecodeJSON(r, &in); err != nil {
		httpx.Message(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	actor, _ := shared.PrincipalFromContext(r.Context())
	if err := h.service.ChangePassword(r.Context(), actor, id, in); err != nil {
		h.fail(w, r, "change password", err)
		return
	}
	httpx.Message(w, http.StatusOK, "Password updated successfully")
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	id, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.service.DeleteUser(r.Context(), id); err != nil {
		h.fail(w, r, "delete user", err)
		return
	}
	httpx.Message(w, http.StatusOK, "User deleted successfully")
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "userId"), 10, 64)
	if err != nil || id <= 0 {
		httpx.RespondError(w, ErrInvalidUserID)
		return 0, false
	}
	return id, true
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(op+" failed",
			slog.Any("error", err),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	}
	httpx.RespondError(w, err)
}
