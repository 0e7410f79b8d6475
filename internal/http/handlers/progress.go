package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/classpulse/classpulse-backend/internal/http/response"
	"github.com/classpulse/classpulse-backend/internal/requestdata"
	"github.com/classpulse/classpulse-backend/internal/services"
)

type ProgressHandler struct {
	progress services.ProgressService
}

func NewProgressHandler(progress services.ProgressService) *ProgressHandler {
	return &ProgressHandler{progress: progress}
}

// Heartbeat is the player's periodic telemetry sample.
func (h *ProgressHandler) Heartbeat(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var in services.HeartbeatInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}
	progress, err := h.progress.RecordHeartbeat(c.Request.Context(), rd.UserID, in)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, progress)
}

type clickRequest struct {
	VideoID uuid.UUID `json:"video_id"`
}

func (h *ProgressHandler) RecordClick(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	var in clickRequest
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_json", err)
		return
	}

	var meta datatypes.JSON
	if ua := c.Request.UserAgent(); ua != "" {
		if raw, err := json.Marshal(map[string]string{"user_agent": ua}); err == nil {
			meta = raw
		}
	}

	if _, err := h.progress.RecordClick(c.Request.Context(), rd.UserID, in.VideoID, meta); err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

func (h *ProgressHandler) GetMyProgress(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	videoID, err := uuid.Parse(c.Param("videoId"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "validation_error", err)
		return
	}
	progress, err := h.progress.GetMyProgress(c.Request.Context(), rd.UserID, videoID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, progress)
}

func (h *ProgressHandler) GetAllMyProgress(c *gin.Context) {
	rd := requestdata.GetRequestData(c.Request.Context())
	if rd == nil {
		response.RespondError(c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	records, err := h.progress.GetAllMyProgress(c.Request.Context(), rd.UserID)
	if err != nil {
		response.RespondAPIError(c, err)
		return
	}
	response.RespondOK(c, records)
}
