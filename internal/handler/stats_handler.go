package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/katalog-materi-api/internal/service"
	"github.com/noah-isme/katalog-materi-api/pkg/response"
)

// StatsHandler serves aggregate statistics endpoints.
type StatsHandler struct {
	stats *service.StatsService
}

// NewStatsHandler constructs StatsHandler.
func NewStatsHandler(stats *service.StatsService) *StatsHandler {
	return &StatsHandler{stats: stats}
}

// Summary godoc
// @Summary Aggregate catalog statistics
// @Tags Stats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /stats [get]
func (h *StatsHandler) Summary(c *gin.Context) {
	filter := parseMateriFilter(c)

	summary, err := h.stats.Summary(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, summary, nil)
}

// Monthly godoc
// @Summary Monthly statistics for the current year
// @Tags Stats
// @Produce json
// @Security BearerAuth
// @Success 200 {object} response.Envelope
// @Router /stats/monthly [get]
func (h *StatsHandler) Monthly(c *gin.Context) {
	filter := parseMateriFilter(c)

	stats, err := h.stats.Monthly(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
