package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/dojoflow/dojoflow-api/internal/models"
	"github.com/dojoflow/dojoflow-api/internal/service"
	appErrors "github.com/dojoflow/dojoflow-api/pkg/errors"
	"github.com/dojoflow/dojoflow-api/pkg/response"
)

// CheckinHandler exposes the check-in endpoints.
type CheckinHandler struct {
	checkins  *service.CheckinService
	dashboard *service.DashboardService
	metrics   *service.MetricsService
}

// NewCheckinHandler constructs CheckinHandler.
func NewCheckinHandler(checkins *service.CheckinService, dashboard *service.DashboardService, metrics *service.MetricsService) *CheckinHandler {
	return &CheckinHandler{checkins: checkins, dashboard: dashboard, metrics: metrics}
}

// Checkin godoc
// @Summary Record a student check-in
// @Tags Checkins
// @Accept json
// @Produce json
// @Param payload body service.CheckinRequest true "Check-in payload"
// @Success 201 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /checkins [post]
func (h *CheckinHandler) Checkin(c *gin.Context) {
	var req service.CheckinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	result, err := h.checkins.Checkin(c.Request.Context(), req)
	if err != nil {
		if appErr := appErrors.FromError(err); h.metrics != nil {
			h.metrics.RecordCheckinDecision("blocked", appErr.Code)
		}
		response.Error(c, err)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordCheckinDecision(string(result.Decision.Outcome), result.Decision.Code)
	}
	if h.dashboard != nil {
		h.dashboard.Invalidate(c.Request.Context())
	}
	response.Created(c, result)
}

// History godoc
// @Summary List recorded check-ins
// @Tags Checkins
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param sessionId query string false "Filter by session"
// @Param from query string false "RFC3339 lower bound"
// @Param to query string false "RFC3339 upper bound"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /checkins [get]
func (h *CheckinHandler) History(c *gin.Context) {
	var filter models.AttendanceFilter
	filter.StudentID = c.Query("studentId")
	filter.SessionID = c.Query("sessionId")
	if raw := c.Query("from"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.DateFrom = &ts
		}
	}
	if raw := c.Query("to"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.DateTo = &ts
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}

	records, total, err := h.checkins.History(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 50
	}
	response.JSON(c, http.StatusOK, records, &models.Pagination{Page: page, PageSize: size, TotalCount: total})
}
