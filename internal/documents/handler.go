package documents

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"resume-builder/internal/shared/server/middleware"
	"resume-builder/internal/shared/server/respond"
	"resume-builder/internal/shared/storage/db"
)

const maxBodySize = 1 << 20 // 1MB

// Handler wires one collection's HTTP routes to its service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches the collection's CRUD routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	g := rg.Group(h.Svc.Collection.Route)
	g.POST("", h.create)
	g.GET("", h.list)
	g.GET("/:id", h.get)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
}

func (h *Handler) create(c *gin.Context) {
	req, ok := h.bind(c, opCreate)
	if !ok {
		return
	}
	doc, err := h.Svc.Create(c.Request.Context(), middleware.UserIDFromContext(c), req.Title, req.Data)
	if err != nil {
		h.fail(c, err, opCreate)
		return
	}
	c.Set(middleware.DocumentIDKey, doc.ID)
	respond.JSON(c, http.StatusCreated, toResponse(doc))
}

func (h *Handler) list(c *gin.Context) {
	docs, err := h.Svc.List(c.Request.Context(), middleware.UserIDFromContext(c))
	if err != nil {
		h.fail(c, err, opList)
		return
	}
	respond.OK(c, toResponses(docs))
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.DocumentIDKey, id)
	doc, err := h.Svc.Get(c.Request.Context(), middleware.UserIDFromContext(c), id)
	if err != nil {
		h.fail(c, err, opGet)
		return
	}
	respond.OK(c, toResponse(doc))
}

func (h *Handler) update(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.DocumentIDKey, id)
	req, ok := h.bind(c, opUpdate)
	if !ok {
		return
	}
	if err := h.Svc.Update(c.Request.Context(), middleware.UserIDFromContext(c), id, req.Title, req.Data); err != nil {
		h.fail(c, err, opUpdate)
		return
	}
	respond.Message(c, http.StatusOK, h.Svc.Collection.msgUpdated())
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	c.Set(middleware.DocumentIDKey, id)
	if err := h.Svc.Delete(c.Request.Context(), middleware.UserIDFromContext(c), id); err != nil {
		h.fail(c, err, opDelete)
		return
	}
	respond.Message(c, http.StatusOK, h.Svc.Collection.msgDeleted())
}

func (h *Handler) bind(c *gin.Context, op string) (documentRequest, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBodySize)
	var req documentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(c, http.StatusRequestEntityTooLarge, "payload_too_large", "Request body is too large.", nil)
			return documentRequest{}, false
		}
		respond.Error(c, http.StatusBadRequest, "validation_error", h.Svc.Collection.msgRequired(op), nil)
		return documentRequest{}, false
	}
	return req, true
}

func (h *Handler) fail(c *gin.Context, err error, op string) {
	coll := h.Svc.Collection
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", coll.msgRequired(op), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "not_found", coll.msgNotFound(op), nil)
	case errors.Is(err, db.ErrUnavailable):
		respond.Error(c, http.StatusServiceUnavailable, "unavailable", coll.msgFailed(op), nil)
	default:
		respond.Internal(c, "documents."+coll.Name+"."+op, err, coll.msgFailed(op))
	}
}
