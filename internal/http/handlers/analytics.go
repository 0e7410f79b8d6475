package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/classpulse/classpulse-backend/internal/http/response"
	"github.com/classpulse/classpulse-backend/internal/requestdata"
	"github.com/classpulse/classpulse-backend/internal/services"
)

type AnalyticsHandler struct {
	analytics services.AnalyticsService
	exports   services.ExportService
}

func NewAnalyticsHandler(analytics services.AnalyticsService, exports services.ExportService) *AnalyticsHandler {
	return &AnalyticsHandler{analytics: analytics, exports: exports}
}

func (h *AnalyticsHandler) VideoAnalytics(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.User == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	videoID, err := uuid.Parse(c.Param("videoId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	analytics, err := h.analytics.GetVideoAnalytics(c.Request.Context(), rd.User, videoID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, analytics)
}

func (h *AnalyticsHandler) ClassroomAnalytics(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.User == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	rows, err := h.analytics.GetClassroomAnalytics(c.Request.Context(), rd.User)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, rows)
}

func (h *AnalyticsHandler) ExportVideoCSV(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.User == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	videoID, err := uuid.Parse(c.Param("videoId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	export, err := h.exports.ExportVideoCSV(c.Request.Context(), rd.User, videoID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCSV(c, export.Filename, export.Content)
}

func (h *AnalyticsHandler) ExportClassroomCSV(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.User == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	export, err := h.exports.ExportClassroomCSV(c.Request.Context(), rd.User)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCSV(c, export.Filename, export.Content)
}

func (h *AnalyticsHandler) ExportClicksCSV(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.User == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	videoID, err := uuid.Parse(c.Param("videoId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	export, err := h.exports.ExportClicksCSV(c.Request.Context(), rd.User, videoID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCSV(c, export.Filename, export.Content)
}

func (h *AnalyticsHandler) ExportAllClicksCSV(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil || rd.User == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	export, err := h.exports.ExportAllClicksCSV(c.Request.Context(), rd.User)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondCSV(c, export.Filename, export.Content)
}
