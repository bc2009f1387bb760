package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/katalog-materi-api/internal/models"
	"github.com/noah-isme/katalog-materi-api/internal/service"
	appErrors "github.com/noah-isme/katalog-materi-api/pkg/errors"
	"github.com/noah-isme/katalog-materi-api/pkg/response"
)

// ReferenceHandler serves the four reference-data resources. One handler
// instance is bound per kind when routes are registered.
type ReferenceHandler struct {
	refs *service.ReferenceService
	kind models.ReferenceKind
}

// NewReferenceHandler constructs a ReferenceHandler for one kind.
func NewReferenceHandler(refs *service.ReferenceService, kind models.ReferenceKind) *ReferenceHandler {
	return &ReferenceHandler{refs: refs, kind: kind}
}

// List godoc
// @Summary List reference entities
// @Tags Reference
// @Produce json
// @Param search query string false "Case-insensitive name filter"
// @Success 200 {object} response.Envelope
// @Router /{kind} [get]
func (h *ReferenceHandler) List(c *gin.Context) {
	filter := models.ReferenceFilter{Search: strings.TrimSpace(c.Query("search"))}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}

	items, err := h.refs.List(c.Request.Context(), h.kind, filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Get returns one reference entity.
func (h *ReferenceHandler) Get(c *gin.Context) {
	entity, err := h.refs.Get(c.Request.Context(), h.kind, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entity, nil)
}

// Create adds a reference entity.
func (h *ReferenceHandler) Create(c *gin.Context) {
	var req service.ReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	entity, err := h.refs.Create(c.Request.Context(), h.kind, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entity)
}

// Update renames a reference entity.
func (h *ReferenceHandler) Update(c *gin.Context) {
	var req service.ReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	entity, err := h.refs.Update(c.Request.Context(), h.kind, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entity, nil)
}

// Delete removes a reference entity.
func (h *ReferenceHandler) Delete(c *gin.Context) {
	if err := h.refs.Delete(c.Request.Context(), h.kind, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
