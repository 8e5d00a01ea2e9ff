// Package events carries committed session changes to interested parties:
// live view streams in process, and an optional Kafka audit topic.
package events

import (
	"context"
	"time"

	"github.com/SAP-F-2025/accessible-exam-service/internal/models"
)

const Source = "accessible-exam-service"

// Event types, one per kind of committed change.
const (
	EventSessionCreated   = "session.created"
	EventLoggedIn         = "session.logged_in"
	EventCategorySelected = "session.category_selected"
	EventAnswerRecorded   = "exam.answer_recorded"
	EventAdvanced         = "exam.advanced"
	EventRetreated        = "exam.retreated"
	EventFeatureToggled   = "exam.feature_toggled"
	EventSubmitted        = "exam.submitted"
	EventTimedOut         = "exam.timed_out"
	EventTick             = "exam.tick"
	EventExited           = "session.exited"
	EventViewChanged      = "session.view_changed"
	EventClosed           = "session.closed"
)

type Event struct {
	ID        string              `json:"id"`
	Type      string              `json:"type"`
	Source    string              `json:"source"`
	SessionID string              `json:"session_id"`
	Version   uint64              `json:"version"`
	Timestamp time.Time           `json:"timestamp"`
	View      *models.SessionView `json:"view,omitempty"`
}

// IsAudited reports whether the event belongs in the audit trail. Clock
// ticks and indicator changes only matter to live views.
func (e Event) IsAudited() bool {
	return e.Type != EventTick && e.Type != EventViewChanged
}

type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

type EventSubscriber interface {
	// Subscribe streams events of one session until ctx is done.
	Subscribe(ctx context.Context, sessionID string) (<-chan Event, error)
}
