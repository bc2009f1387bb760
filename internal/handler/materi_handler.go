package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/katalog-materi-api/internal/models"
	"github.com/noah-isme/katalog-materi-api/internal/service"
	appErrors "github.com/noah-isme/katalog-materi-api/pkg/errors"
	"github.com/noah-isme/katalog-materi-api/pkg/response"
)

// MateriHandler exposes the catalog endpoints.
type MateriHandler struct {
	materi *service.MateriService
}

// NewMateriHandler constructs MateriHandler.
func NewMateriHandler(materi *service.MateriService) *MateriHandler {
	return &MateriHandler{materi: materi}
}

// parseMateriFilter reads the shared filter query parameters used by the
// list, export, and stats endpoints.
func parseMateriFilter(c *gin.Context) models.MateriFilter {
	filter := models.MateriFilter{
		Search:  strings.TrimSpace(c.Query("search")),
		Status:  c.Query("status"),
		Brand:   c.Query("brand"),
		Cluster: c.Query("cluster"),
		Fitur:   c.Query("fitur"),
		Jenis:   c.Query("jenis"),
	}

	if raw := c.Query("start_date"); raw != "" {
		if parsed, err := time.Parse("2006-01-02", raw); err == nil {
			filter.StartDate = &parsed
		}
	}
	if raw := c.Query("end_date"); raw != "" {
		if parsed, err := time.Parse("2006-01-02", raw); err == nil {
			filter.EndDate = &parsed
		}
	}
	if c.Query("only_visual_docs") == "true" {
		filter.OnlyVisualDocs = true
	}

	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "10")); err == nil {
		filter.PageSize = size
	}
	return filter
}

// List godoc
// @Summary List materi
// @Tags Materi
// @Produce json
// @Param search query string false "Title or keyword substring"
// @Param status query string false "aktif | expired"
// @Param brand query string false "Brand name"
// @Param cluster query string false "Cluster name"
// @Param fitur query string false "Fitur name"
// @Param jenis query string false "Jenis name"
// @Param start_date query string false "Range start (YYYY-MM-DD)"
// @Param end_date query string false "Range end (YYYY-MM-DD)"
// @Param only_visual_docs query bool false "Only materi with a Key Visual document"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /materi [get]
func (h *MateriHandler) List(c *gin.Context) {
	filter := parseMateriFilter(c)

	details, pagination, err := h.materi.List(c.Request.Context(), filter, callerRole(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, details, pagination)
}

// Get godoc
// @Summary Get materi detail
// @Tags Materi
// @Produce json
// @Param id path string true "Materi ID"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /materi/{id} [get]
func (h *MateriHandler) Get(c *gin.Context) {
	detail, err := h.materi.Get(c.Request.Context(), c.Param("id"), callerRole(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Create godoc
// @Summary Create materi
// @Tags Materi
// @Accept json
// @Produce json
// @Param payload body service.MateriRequest true "Materi payload"
// @Security BearerAuth
// @Success 201 {object} response.Envelope
// @Router /materi [post]
func (h *MateriHandler) Create(c *gin.Context) {
	var req service.MateriRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	detail, err := h.materi.Create(c.Request.Context(), claims.UserID, claims.Role, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, detail)
}

// Update godoc
// @Summary Replace materi
// @Tags Materi
// @Accept json
// @Produce json
// @Param id path string true "Materi ID"
// @Param payload body service.MateriRequest true "Materi payload"
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /materi/{id} [put]
func (h *MateriHandler) Update(c *gin.Context) {
	var req service.MateriRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	detail, err := h.materi.Update(c.Request.Context(), claims.UserID, claims.Role, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, detail, nil)
}

// Delete godoc
// @Summary Delete materi
// @Tags Materi
// @Param id path string true "Materi ID"
// @Security BearerAuth
// @Success 204
// @Router /materi/{id} [delete]
func (h *MateriHandler) Delete(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.materi.Delete(c.Request.Context(), claims.UserID, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Export godoc
// @Summary Export the filtered catalog
// @Tags Materi
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv (default) or pdf"
// @Security BearerAuth
// @Success 200 {file} file
// @Router /materi/export [get]
func (h *MateriHandler) Export(c *gin.Context) {
	filter := parseMateriFilter(c)
	format := service.ExportFormat(c.DefaultQuery("format", string(service.ExportCSV)))

	result, err := h.materi.Export(c.Request.Context(), filter, callerRole(c), format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+result.Filename+`"`)
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}
