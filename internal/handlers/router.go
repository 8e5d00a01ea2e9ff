package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/accessible-exam-service/internal/services"
	"github.com/SAP-F-2025/accessible-exam-service/internal/utils"
	"github.com/SAP-F-2025/accessible-exam-service/internal/validator"
)

const serviceName = "accessible-exam-service"

type HandlerManager struct {
	serviceManager     services.ServiceManager
	sessionHandler     *SessionHandler
	voiceHandler       *VoiceHandler
	eventsHandler      *EventsHandler
	answerSheetHandler *AnswerSheetHandler
	catalogHandler     *CatalogHandler
}

func NewHandlerManager(
	serviceManager services.ServiceManager,
	validator *validator.Validator,
	logger utils.Logger,
) *HandlerManager {
	return &HandlerManager{
		serviceManager:     serviceManager,
		sessionHandler:     NewSessionHandler(serviceManager.Sessions(), validator, logger),
		voiceHandler:       NewVoiceHandler(serviceManager.Voice(), logger),
		eventsHandler:      NewEventsHandler(serviceManager.Sessions(), serviceManager.Events(), logger),
		answerSheetHandler: NewAnswerSheetHandler(serviceManager.AnswerSheet(), logger),
		catalogHandler:     NewCatalogHandler(serviceManager.Sessions(), logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		// Read-only listings
		v1.GET("/profiles", hm.catalogHandler.ListProfiles)
		v1.GET("/questions", hm.catalogHandler.ListQuestions)

		sessions := v1.Group("/sessions")
		{
			sessions.POST("", hm.sessionHandler.CreateSession)
			sessions.GET("/:id", hm.sessionHandler.GetSession)
			sessions.DELETE("/:id", hm.sessionHandler.CloseSession)

			// Step transitions
			sessions.POST("/:id/login", hm.sessionHandler.Login)
			sessions.POST("/:id/category", hm.sessionHandler.SelectCategory)
			sessions.POST("/:id/exit", hm.sessionHandler.Exit)

			// Exam input, all gated on an active exam
			sessions.POST("/:id/keys", hm.sessionHandler.PressKey)
			sessions.POST("/:id/gestures", hm.sessionHandler.Gesture)
			sessions.POST("/:id/actions", hm.sessionHandler.UIAction)
			sessions.PUT("/:id/answers/:question_id", hm.sessionHandler.RecordAnswer)
			sessions.POST("/:id/voice", hm.voiceHandler.SubmitVoice)

			sessions.GET("/:id/events", hm.eventsHandler.StreamEvents)
			sessions.GET("/:id/answer-sheet", hm.answerSheetHandler.DownloadAnswerSheet)
		}

		v1.GET("/candidates/:candidate_id/session", hm.sessionHandler.GetCandidateSession)
	}

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": serviceName,
				"error":   err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":          "healthy",
			"service":         serviceName,
			"voice_available": hm.serviceManager.Voice().Available(),
			"timestamp":       time.Now().UTC().Format(time.RFC3339),
		})
	})
}
