package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SAP-F-2025/accessible-exam-service/internal/events"
	"github.com/SAP-F-2025/accessible-exam-service/internal/services"
	"github.com/SAP-F-2025/accessible-exam-service/internal/utils"
)

const (
	eventSnapshot    = "snapshot"
	defaultKeepAlive = 15 * time.Second
	keepAliveComment = ": keep-alive\n\n"
)

// EventsHandler streams session views to browsers over server-sent events.
type EventsHandler struct {
	BaseHandler
	sessionService services.SessionService
	subscriber     events.EventSubscriber
	keepAlive      time.Duration
}

func NewEventsHandler(sessionService services.SessionService, subscriber events.EventSubscriber, logger utils.Logger) *EventsHandler {
	return &EventsHandler{
		BaseHandler:    NewBaseHandler(logger),
		sessionService: sessionService,
		subscriber:     subscriber,
		keepAlive:      defaultKeepAlive,
	}
}

// StreamEvents sends the current view, then every committed change until
// the client leaves or the session closes. Events older than the last one
// sent are dropped.
// @Summary Stream session views
// @Tags sessions
// @Produce text/event-stream
// @Param id path string true "Session ID"
// @Failure 404 {object} ErrorResponse
// @Failure 503 {object} ErrorResponse
// @Router /sessions/{id}/events [get]
func (h *EventsHandler) StreamEvents(c *gin.Context) {
	id := c.Param("id")
	ctx := c.Request.Context()

	if h.subscriber == nil {
		h.RespondWithError(c, http.StatusServiceUnavailable, "Event stream is unavailable", nil)
		return
	}

	session, err := h.sessionService.Get(ctx, id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	// subscribe before reading the view so nothing committed in between is lost
	stream, err := h.subscriber.Subscribe(ctx, id)
	if err != nil {
		h.RespondWithError(c, http.StatusInternalServerError, "Failed to subscribe to session events", err)
		return
	}

	h.LogRequest(c, "Streaming session events", "session_id", id)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	view := session.View()
	last := view.State.Version
	c.SSEvent(eventSnapshot, view)
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Writer.WriteString(keepAliveComment); err != nil {
				return
			}
			c.Writer.Flush()
		case ev, ok := <-stream:
			if !ok {
				return
			}
			if ev.Version < last {
				continue
			}
			last = ev.Version
			if ev.View != nil {
				c.SSEvent(ev.Type, ev.View)
			} else {
				c.SSEvent(ev.Type, gin.H{"session_id": ev.SessionID, "version": ev.Version})
			}
			c.Writer.Flush()
			if ev.Type == events.EventClosed {
				return
			}
		}
	}
}
