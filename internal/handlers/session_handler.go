package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/accessible-exam-service/internal/models"
	"github.com/SAP-F-2025/accessible-exam-service/internal/services"
	"github.com/SAP-F-2025/accessible-exam-service/internal/utils"
	"github.com/SAP-F-2025/accessible-exam-service/internal/validator"
)

type SessionHandler struct {
	BaseHandler
	sessionService services.SessionService
	validator      *validator.Validator
}

func NewSessionHandler(
	sessionService services.SessionService,
	validator *validator.Validator,
	logger utils.Logger,
) *SessionHandler {
	return &SessionHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
		validator:      validator,
	}
}

// CreateSession opens a new session at the login screen
// @Summary Create exam session
// @Tags sessions
// @Produce json
// @Success 201 {object} models.SessionView
// @Router /sessions [post]
func (h *SessionHandler) CreateSession(c *gin.Context) {
	h.LogRequest(c, "Creating exam session")

	session, err := h.sessionService.Create(c.Request.Context())
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.Header("Location", "/api/v1/sessions/"+session.ID())
	c.JSON(http.StatusCreated, session.View())
}

// GetSession returns the current view of a session
// @Summary Get session view
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} models.SessionView
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, session.View())
}

// GetCandidateSession finds the live session a candidate logged into
// @Router /candidates/{candidate_id}/session [get]
func (h *SessionHandler) GetCandidateSession(c *gin.Context) {
	candidateID := c.Param("candidate_id")
	h.LogRequest(c, "Looking up candidate session", "candidate_id", candidateID)

	session, err := h.sessionService.FindByCandidate(c.Request.Context(), candidateID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, session.View())
}

// CloseSession ends a session for good ("Finish Session")
// @Summary Close session
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id} [delete]
func (h *SessionHandler) CloseSession(c *gin.Context) {
	id := c.Param("id")
	h.LogRequest(c, "Closing exam session", "session_id", id)

	if err := h.sessionService.Close(c.Request.Context(), id); err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Login records the candidate and moves to category selection
// @Summary Log in
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param body body models.LoginRequest true "Credentials"
// @Success 200 {object} models.SessionView
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/login [post]
func (h *SessionHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !h.bindAndValidate(c, h.validator, &req) {
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Candidate logging in", "session_id", session.ID(), "candidate_id", req.CandidateID)

	view, err := session.Login(req.CandidateID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// SelectCategory applies an accessibility profile and starts the exam
// @Summary Select disability category
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param body body models.SelectCategoryRequest true "Category"
// @Success 200 {object} models.SessionView
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{id}/category [post]
func (h *SessionHandler) SelectCategory(c *gin.Context) {
	var req models.SelectCategoryRequest
	if !h.bindAndValidate(c, h.validator, &req) {
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Selecting disability category", "session_id", session.ID(), "category", req.Category)

	view, err := session.SelectCategory(req.Category)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// PressKey dispatches a keyboard shortcut
// @Router /sessions/{id}/keys [post]
func (h *SessionHandler) PressKey(c *gin.Context) {
	var req models.KeyPressRequest
	if !h.bindAndValidate(c, h.validator, &req) {
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}

	res, err := session.PressKey(req.Key)
	h.respondDispatch(c, res, err)
}

// Gesture dispatches a simulated swipe
// @Router /sessions/{id}/gestures [post]
func (h *SessionHandler) Gesture(c *gin.Context) {
	var req models.GestureRequest
	if !h.bindAndValidate(c, h.validator, &req) {
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}

	res, err := session.Gesture(req.Gesture)
	h.respondDispatch(c, res, err)
}

// UIAction dispatches an on-screen button press
// @Router /sessions/{id}/actions [post]
func (h *SessionHandler) UIAction(c *gin.Context) {
	var req models.UIActionRequest
	if !h.bindAndValidate(c, h.validator, &req) {
		return
	}

	action, ok := services.ResolveUIAction(req.Action, req.Flag, 0, req.Value)
	if !ok {
		h.RespondWithError(c, http.StatusBadRequest, "Invalid action", map[string]interface{}{
			"action": req.Action,
			"flag":   req.Flag,
		})
		return
	}

	session, ok := h.session(c)
	if !ok {
		return
	}

	res, err := session.Dispatch(action)
	h.respondDispatch(c, res, err)
}

// RecordAnswer stores the answer for one question
// @Summary Record answer
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param question_id path int true "Question ID"
// @Param body body models.AnswerRequest true "Answer"
// @Success 200 {object} models.DispatchResponse
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{id}/answers/{question_id} [put]
func (h *SessionHandler) RecordAnswer(c *gin.Context) {
	questionID, ok := h.parseIntParam(c, "question_id")
	if !ok {
		return
	}
	var req models.AnswerRequest
	if !h.bindAndValidate(c, h.validator, &req) {
		return
	}
	session, ok := h.session(c)
	if !ok {
		return
	}

	res, err := session.RecordAnswer(questionID, req.Value)
	h.respondDispatch(c, res, err)
}

// Exit abandons the exam and returns to the login screen
// @Router /sessions/{id}/exit [post]
func (h *SessionHandler) Exit(c *gin.Context) {
	session, ok := h.session(c)
	if !ok {
		return
	}

	h.LogRequest(c, "Exiting exam", "session_id", session.ID())

	view, err := session.Exit()
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// Helper methods

func (h *SessionHandler) session(c *gin.Context) (*services.ExamSession, bool) {
	session, err := h.sessionService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.handleServiceError(c, err)
		return nil, false
	}
	return session, true
}

func (h *SessionHandler) respondDispatch(c *gin.Context, res services.DispatchResult, err error) {
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, models.DispatchResponse{
		Applied: res.Applied,
		Action:  res.ActionName(),
		View:    res.View,
	})
}
