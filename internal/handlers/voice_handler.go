package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/accessible-exam-service/internal/models"
	"github.com/SAP-F-2025/accessible-exam-service/internal/services"
	"github.com/SAP-F-2025/accessible-exam-service/internal/transcription"
	"github.com/SAP-F-2025/accessible-exam-service/internal/utils"
)

type VoiceHandler struct {
	BaseHandler
	voiceService services.VoiceService
}

func NewVoiceHandler(voiceService services.VoiceService, logger utils.Logger) *VoiceHandler {
	return &VoiceHandler{
		BaseHandler:  NewBaseHandler(logger),
		voiceService: voiceService,
	}
}

// SubmitVoice transcribes a recorded answer and applies it to the question
// that was on screen
// @Summary Voice answer
// @Tags sessions
// @Accept audio/webm,audio/wav,audio/mpeg,audio/ogg
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.VoiceResponse
// @Failure 400 {object} ErrorResponse
// @Failure 403 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /sessions/{id}/voice [post]
func (h *VoiceHandler) SubmitVoice(c *gin.Context) {
	id := c.Param("id")
	h.LogRequest(c, "Processing voice answer", "session_id", id, "content_type", c.ContentType())

	source := transcription.FromReader(c.Request.Body, c.GetHeader("Content-Type"))

	result, err := h.voiceService.Process(c.Request.Context(), id, source)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, models.VoiceResponse{
		Transcript:    result.Transcript,
		MatchedOption: result.MatchedOption,
		Applied:       result.Applied,
		View:          result.View,
	})
}
