package handler

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/dojoflow/dojoflow-api/internal/service"
	appErrors "github.com/dojoflow/dojoflow-api/pkg/errors"
	"github.com/dojoflow/dojoflow-api/pkg/response"
)

// ProgressionHandler exposes readiness and award endpoints.
type ProgressionHandler struct {
	progression *service.ProgressionService
	dashboard   *service.DashboardService
	metrics     *service.MetricsService
}

// NewProgressionHandler constructs ProgressionHandler.
func NewProgressionHandler(progression *service.ProgressionService, dashboard *service.DashboardService, metrics *service.MetricsService) *ProgressionHandler {
	return &ProgressionHandler{progression: progression, dashboard: dashboard, metrics: metrics}
}

// Progress godoc
// @Summary Evaluate a student's readiness for the next degree or belt
// @Tags Progression
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/progress [get]
func (h *ProgressionHandler) Progress(c *gin.Context) {
	result, err := h.progression.Progress(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Promote godoc
// @Summary Apply the next award to a student
// @Tags Progression
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.PromoteRequest false "Award payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{id}/promote [post]
func (h *ProgressionHandler) Promote(c *gin.Context) {
	var req service.PromoteRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.progression.Promote(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	if h.metrics != nil {
		h.metrics.RecordPromotion(string(result.Awarded.Belt))
	}
	if h.dashboard != nil {
		h.dashboard.Invalidate(c.Request.Context())
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// History godoc
// @Summary List a student's award history
// @Tags Progression
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/belt-history [get]
func (h *ProgressionHandler) History(c *gin.Context) {
	entries, err := h.progression.History(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Ready godoc
// @Summary List students ready for an award or inside the alert window
// @Tags Progression
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /progression/ready [get]
func (h *ProgressionHandler) Ready(c *gin.Context) {
	ready, err := h.progression.ReadyStudents(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, ready, nil)
}
