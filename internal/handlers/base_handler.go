package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/accessible-exam-service/internal/models"
	"github.com/SAP-F-2025/accessible-exam-service/internal/services"
	"github.com/SAP-F-2025/accessible-exam-service/internal/transcription"
	"github.com/SAP-F-2025/accessible-exam-service/internal/utils"
	"github.com/SAP-F-2025/accessible-exam-service/internal/validator"
)

type ErrorResponse = models.ErrorResponse
type SuccessResponse = models.SuccessResponse

// BaseHandler carries what every handler shares: the logger and the error
// response helpers.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs an incoming request with the request scoped logger.
func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	args = append(args, "method", c.Request.Method, "path", c.FullPath())
	utils.GetLogger(c, h.logger).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, msg string, err error, args ...any) {
	args = append(args, "error", err)
	utils.GetLogger(c, h.logger).Error(msg, args...)
}

// RespondWithError writes an ErrorResponse. err is logged for 5xx only.
func (h *BaseHandler) RespondWithError(c *gin.Context, status int, msg string, details interface{}) {
	if status >= http.StatusInternalServerError {
		if err, ok := details.(error); ok {
			h.LogError(c, msg, err)
			details = nil
		}
	}
	switch d := details.(type) {
	case validator.ValidationErrors, services.ValidationErrors:
		// field lists go out as arrays
	case error:
		details = d.Error()
	}
	c.JSON(status, ErrorResponse{
		Message:   msg,
		Details:   details,
		Timestamp: time.Now().UTC(),
		Path:      c.Request.URL.Path,
	})
}

func (h *BaseHandler) bindAndValidate(c *gin.Context, v *validator.Validator, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid request payload", err)
		return false
	}
	if err := v.Validate(req); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			h.RespondWithError(c, http.StatusBadRequest, "Validation failed", ve)
			return false
		}
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err)
		return false
	}
	return true
}

// parseIntParam parses a non-negative integer path parameter, writing a 400
// and returning false when it is not one.
func (h *BaseHandler) parseIntParam(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil || v < 0 {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid "+name, c.Param(name))
		return 0, false
	}
	return v, true
}

// handleServiceError maps service and transcription errors to responses.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors services.ValidationErrors
	if errors.As(err, &validationErrors) {
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", validationErrors)
		return
	}

	var transitionErr *services.TransitionError
	if errors.As(err, &transitionErr) {
		h.RespondWithError(c, http.StatusConflict, "Invalid step transition", map[string]interface{}{
			"operation": transitionErr.Operation,
			"from":      transitionErr.From,
			"allowed":   transitionErr.Allowed,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrSessionNotFound), errors.Is(err, services.ErrSessionClosed):
		h.RespondWithError(c, http.StatusNotFound, "Session not found", nil)
	case errors.Is(err, services.ErrQuestionNotFound):
		h.RespondWithError(c, http.StatusNotFound, "Question not found", nil)
	case errors.Is(err, services.ErrNotSubmitted):
		h.RespondWithError(c, http.StatusConflict, "Exam has not been submitted", nil)
	case errors.Is(err, services.ErrVoiceInputDisabled):
		h.RespondWithError(c, http.StatusConflict, "Voice input is disabled for this session", nil)
	case errors.Is(err, services.ErrExamNotActive):
		h.RespondWithError(c, http.StatusConflict, "Exam is not active", nil)
	case errors.Is(err, services.ErrValidationFailed):
		h.RespondWithError(c, http.StatusBadRequest, "Validation failed", err)
	case errors.Is(err, transcription.ErrUnsupportedAudioFormat):
		h.RespondWithError(c, http.StatusBadRequest, "Unsupported audio format", err)
	case errors.Is(err, transcription.ErrDevicePermissionDenied):
		h.RespondWithError(c, http.StatusForbidden, "Microphone access denied", err)
	case errors.Is(err, transcription.ErrTranscriptionFailed):
		h.RespondWithError(c, http.StatusBadGateway, "Transcription failed", err)
	case errors.Is(err, transcription.ErrVoiceUnavailable):
		h.RespondWithError(c, http.StatusServiceUnavailable, "Voice input is unavailable", nil)
	default:
		h.RespondWithError(c, http.StatusInternalServerError, "Internal server error", err)
	}
}
