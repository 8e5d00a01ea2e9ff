package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/accessible-exam-service/internal/services"
	"github.com/SAP-F-2025/accessible-exam-service/internal/utils"
)

type AnswerSheetHandler struct {
	BaseHandler
	answerSheetService services.AnswerSheetService
}

func NewAnswerSheetHandler(answerSheetService services.AnswerSheetService, logger utils.Logger) *AnswerSheetHandler {
	return &AnswerSheetHandler{
		BaseHandler:        NewBaseHandler(logger),
		answerSheetService: answerSheetService,
	}
}

// DownloadAnswerSheet exports the answers of a submitted exam as xlsx
// @Summary Download answer sheet
// @Tags sessions
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param id path string true "Session ID"
// @Success 200 {file} file
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/answer-sheet [get]
func (h *AnswerSheetHandler) DownloadAnswerSheet(c *gin.Context) {
	id := c.Param("id")
	h.LogRequest(c, "Exporting answer sheet", "session_id", id)

	sheet, err := h.answerSheetService.Export(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", sheet.Filename))
	c.Data(http.StatusOK, sheet.ContentType, sheet.Data)
}
