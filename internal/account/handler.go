package account

import (
	"errors"
	"io"
	"net/http"
	"strings"

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
	rg.DELETE("/auth/delete-user", h.deleteUser)
}

type deleteUserRequest struct {
	SubjectID string `json:"subjectId"`
	UID       string `json:"uid"`
}

func (r deleteUserRequest) target() string {
	if id := strings.TrimSpace(r.SubjectID); id != "" {
		return id
	}
	return strings.TrimSpace(r.UID)
}

func (h *Handler) deleteUser(c *gin.Context) {
	if h.Svc == nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "service unavailable", nil)
		return
	}

	var req deleteUserRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respond.Error(c, http.StatusBadRequest, "validation_error", "User ID is required.", nil)
		return
	}
	target := req.target()
	if target == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "User ID is required.", []map[string]string{
			{"field": "subjectId", "issue": "required"},
		})
		return
	}

	_, err := h.Svc.DeleteUser(c.Request.Context(), middleware.UserIDFromContext(c), target)
	if err != nil {
		switch {
		case errors.Is(err, ErrForbidden):
			respond.Error(c, http.StatusForbidden, "forbidden", "You are not allowed to delete this user.", nil)
		case errors.Is(err, db.ErrUnavailable):
			respond.Error(c, http.StatusServiceUnavailable, "unavailable", "Failed to delete user.", nil)
		default:
			respond.Internal(c, "account.delete_user", err, "Failed to delete user.")
		}
		return
	}
	respond.Message(c, http.StatusOK, "User "+target+" deleted successfully.")
}
