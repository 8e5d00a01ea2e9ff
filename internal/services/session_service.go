package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/SAP-F-2025/accessible-exam-service/internal/catalog"
	"github.com/SAP-F-2025/accessible-exam-service/internal/events"
	"github.com/SAP-F-2025/accessible-exam-service/internal/models"
	"github.com/SAP-F-2025/accessible-exam-service/internal/repositories"
	"github.com/SAP-F-2025/accessible-exam-service/internal/scheduler"
)

// mirrorTimeout bounds a single snapshot write so a slow mirror cannot
// stall a session's event stream for long.
const mirrorTimeout = 2 * time.Second

type sessionService struct {
	questions      catalog.Source
	mirror         repositories.SnapshotRepository
	publisher      events.EventPublisher
	sched          scheduler.Scheduler
	config         SessionConfig
	voiceAvailable bool
	logger         *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*ExamSession
}

// SessionServiceDeps are the collaborators of the session service. Mirror
// and Publisher may be nil.
type SessionServiceDeps struct {
	Questions      catalog.Source
	Mirror         repositories.SnapshotRepository
	Publisher      events.EventPublisher
	Scheduler      scheduler.Scheduler
	Config         SessionConfig
	VoiceAvailable bool
	Logger         *slog.Logger
}

func NewSessionService(deps SessionServiceDeps) SessionService {
	if deps.Scheduler == nil {
		deps.Scheduler = scheduler.New()
	}
	if deps.Questions == nil {
		deps.Questions = catalog.NewStatic(catalog.Defaults())
	}
	if deps.Logger == nil {
		deps.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &sessionService{
		questions:      deps.Questions,
		mirror:         deps.Mirror,
		publisher:      deps.Publisher,
		sched:          deps.Scheduler,
		config:         deps.Config,
		voiceAvailable: deps.VoiceAvailable,
		logger:         deps.Logger,
		sessions:       make(map[string]*ExamSession),
	}
}

// Create starts a session at LOGIN with the catalog as it is right now.
// Later catalog reloads do not affect it.
func (s *sessionService) Create(ctx context.Context) (*ExamSession, error) {
	id := uuid.NewString()
	session, err := NewExamSession(id, s.questions.Questions(), SessionOptions{
		Config:         s.config,
		Scheduler:      s.sched,
		Logger:         s.logger,
		VoiceAvailable: s.voiceAvailable,
		Listener:       s.observe,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	s.mu.Lock()
	s.sessions[id] = session
	s.mu.Unlock()

	s.logger.Info("Session created", "session_id", id, "questions", len(session.questions))

	view := session.View()
	s.observe(events.Event{
		Type:      events.EventSessionCreated,
		SessionID: id,
		Version:   view.State.Version,
		Timestamp: s.sched.Now(),
		View:      &view,
	})
	return session, nil
}

func (s *sessionService) Get(ctx context.Context, sessionID string) (*ExamSession, error) {
	s.mu.RLock()
	session, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return session, nil
}

// FindByCandidate looks the candidate up in the snapshot mirror and returns
// the live session it points to.
func (s *sessionService) FindByCandidate(ctx context.Context, candidateID string) (*ExamSession, error) {
	if s.mirror == nil {
		return nil, fmt.Errorf("%w: candidate %s", ErrSessionNotFound, candidateID)
	}
	snapshot, err := s.mirror.FindByCandidate(ctx, candidateID)
	if err != nil {
		if errors.Is(err, repositories.ErrSnapshotNotFound) {
			return nil, fmt.Errorf("%w: candidate %s", ErrSessionNotFound, candidateID)
		}
		return nil, fmt.Errorf("failed to look up candidate: %w", err)
	}
	return s.Get(ctx, snapshot.SessionID)
}

// Close ends a session, stops its timers and drops it from the mirror.
func (s *sessionService) Close(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	session, ok := s.sessions[sessionID]
	delete(s.sessions, sessionID)
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}

	view := session.View()
	session.Close()

	if s.mirror != nil {
		if err := s.mirror.Delete(ctx, sessionID); err != nil && !errors.Is(err, repositories.ErrSnapshotNotFound) {
			s.logger.Warn("Failed to remove session snapshot", "session_id", sessionID, "error", err)
		}
	}
	if s.publisher != nil {
		err := s.publisher.Publish(ctx, events.Event{
			Type:      events.EventClosed,
			SessionID: sessionID,
			Version:   view.State.Version,
			Timestamp: s.sched.Now(),
			View:      &view,
		})
		if err != nil {
			s.logger.Warn("Failed to publish close event", "session_id", sessionID, "error", err)
		}
	}

	s.logger.Info("Session closed", "session_id", sessionID, "step", view.State.Step)
	return nil
}

func (s *sessionService) List(ctx context.Context) []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

func (s *sessionService) Questions() []models.Question {
	return s.questions.Questions()
}

// CloseAll closes every live session, used on shutdown.
func (s *sessionService) CloseAll(ctx context.Context) {
	for _, id := range s.List(ctx) {
		if err := s.Close(ctx, id); err != nil && !errors.Is(err, ErrSessionNotFound) {
			s.logger.Error("Failed to close session", "session_id", id, "error", err)
		}
	}
}

// observe mirrors the snapshot and forwards the event. It is the session
// listener, so it runs in commit order for each session.
func (s *sessionService) observe(ev events.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()

	if s.mirror != nil && ev.View != nil {
		snapshot := ev.View.State.Clone()
		if err := s.mirror.Save(ctx, &snapshot); err != nil {
			s.logger.Warn("Failed to mirror session snapshot", "session_id", ev.SessionID, "error", err)
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, ev); err != nil {
			s.logger.Warn("Failed to publish session event", "session_id", ev.SessionID, "type", ev.Type, "error", err)
		}
	}
}
