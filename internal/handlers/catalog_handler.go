package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/accessible-exam-service/internal/accessibility"
	"github.com/SAP-F-2025/accessible-exam-service/internal/models"
	"github.com/SAP-F-2025/accessible-exam-service/internal/services"
	"github.com/SAP-F-2025/accessible-exam-service/internal/utils"
)

// CatalogHandler serves the read-only listings: accessibility profiles and
// the question catalog.
type CatalogHandler struct {
	BaseHandler
	sessionService services.SessionService
}

func NewCatalogHandler(sessionService services.SessionService, logger utils.Logger) *CatalogHandler {
	return &CatalogHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
	}
}

// ListProfiles returns every disability category with its preset
// @Summary List accessibility profiles
// @Tags catalog
// @Produce json
// @Success 200 {object} models.ProfileListResponse
// @Router /profiles [get]
func (h *CatalogHandler) ListProfiles(c *gin.Context) {
	c.JSON(http.StatusOK, models.ProfileListResponse{Profiles: accessibility.Profiles()})
}

// ListQuestions returns the questions new sessions are created with
// @Summary List questions
// @Tags catalog
// @Produce json
// @Success 200 {object} models.QuestionListResponse
// @Router /questions [get]
func (h *CatalogHandler) ListQuestions(c *gin.Context) {
	questions := h.sessionService.Questions()
	c.JSON(http.StatusOK, models.QuestionListResponse{
		Questions: questions,
		Total:     len(questions),
	})
}
