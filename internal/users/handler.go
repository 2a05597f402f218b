package users

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/shared/server/middleware"
	"resume-builder/internal/shared/server/respond"
	"resume-builder/internal/shared/storage/db"
)

type Handler struct {
	Svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/auth/sync-user", h.syncUser)
	rg.GET("/me", h.me)
}

type syncUserRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

type syncUserResponse struct {
	Message string `json:"message"`
	User    User   `json:"user"`
}

var syncMessages = map[Outcome]string{
	OutcomeCreated:   "User synced (created) successfully.",
	OutcomeUpdated:   "User synced (updated) successfully.",
	OutcomeUnchanged: "User already synced.",
}

func (h *Handler) syncUser(c *gin.Context) {
	if h.Svc == nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "service unavailable", nil)
		return
	}

	var req syncUserRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respond.Error(c, http.StatusBadRequest, "validation_error", "Request body must be a JSON object.", nil)
		return
	}

	id := middleware.IdentityFromContext(c)
	user, outcome, err := h.Svc.Reconcile(c.Request.Context(), Profile{
		SubjectID: id.SubjectID,
		Email:     id.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
	})
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", "Missing user ID or email in token.", nil)
		case errors.Is(err, db.ErrUnavailable):
			respond.Error(c, http.StatusServiceUnavailable, "unavailable", "Failed to sync user.", nil)
		default:
			respond.Internal(c, "users.sync", err, "Failed to sync user.")
		}
		return
	}

	status := http.StatusOK
	if outcome == OutcomeCreated {
		status = http.StatusCreated
	}
	respond.JSON(c, status, syncUserResponse{Message: syncMessages[outcome], User: user})
}

func (h *Handler) me(c *gin.Context) {
	if h.Svc == nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "service unavailable", nil)
		return
	}
	user, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, "not_found", "User not found. Sync the account first.", nil)
		case errors.Is(err, db.ErrUnavailable):
			respond.Error(c, http.StatusServiceUnavailable, "unavailable", "Failed to load user.", nil)
		default:
			respond.Internal(c, "users.me", err, "Failed to load user.")
		}
		return
	}
	respond.OK(c, user)
}
