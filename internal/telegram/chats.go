package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/SAP-F-2025/accessible-exam-service/internal/accessibility"
	"github.com/SAP-F-2025/accessible-exam-service/internal/models"
	"github.com/SAP-F-2025/accessible-exam-service/internal/services"
	"github.com/SAP-F-2025/accessible-exam-service/internal/transcription"
)

var errNoSession = errors.New("no exam session, send /start to begin")

// chats binds each Telegram chat to one exam session. It holds no Telegram
// types so the flow can be driven without a bot.
type chats struct {
	sessions services.SessionService
	voice    services.VoiceService
	logger   *slog.Logger

	mu     sync.Mutex
	byChat map[int64]string
}

func newChats(sessions services.SessionService, voice services.VoiceService, logger *slog.Logger) *chats {
	return &chats{
		sessions: sessions,
		voice:    voice,
		logger:   logger,
		byChat:   make(map[int64]string),
	}
}

// start replaces the chat's session with a fresh one logged in as
// candidateID.
func (c *chats) start(ctx context.Context, chatID int64, candidateID string) (models.SessionView, error) {
	c.finish(ctx, chatID)

	session, err := c.sessions.Create(ctx)
	if err != nil {
		return models.SessionView{}, err
	}
	c.mu.Lock()
	c.byChat[chatID] = session.ID()
	c.mu.Unlock()

	c.logger.Info("Telegram session started", "chat_id", chatID, "session_id", session.ID())
	return session.Login(candidateID)
}

// finish closes the chat's session, if any.
func (c *chats) finish(ctx context.Context, chatID int64) bool {
	c.mu.Lock()
	id, ok := c.byChat[chatID]
	delete(c.byChat, chatID)
	c.mu.Unlock()
	if !ok {
		return false
	}
	if err := c.sessions.Close(ctx, id); err != nil && !errors.Is(err, services.ErrSessionNotFound) {
		c.logger.Warn("Failed to close telegram session", "chat_id", chatID, "session_id", id, "error", err)
	}
	return true
}

func (c *chats) session(ctx context.Context, chatID int64) (*services.ExamSession, error) {
	c.mu.Lock()
	id, ok := c.byChat[chatID]
	c.mu.Unlock()
	if !ok {
		return nil, errNoSession
	}
	session, err := c.sessions.Get(ctx, id)
	if errors.Is(err, services.ErrSessionNotFound) {
		c.mu.Lock()
		delete(c.byChat, chatID)
		c.mu.Unlock()
		return nil, errNoSession
	}
	return session, err
}

func (c *chats) view(ctx context.Context, chatID int64) (models.SessionView, error) {
	session, err := c.session(ctx, chatID)
	if err != nil {
		return models.SessionView{}, err
	}
	return session.View(), nil
}

func (c *chats) selectCategory(ctx context.Context, chatID int64, arg string) (models.SessionView, error) {
	session, err := c.session(ctx, chatID)
	if err != nil {
		return models.SessionView{}, err
	}
	category := models.DisabilityCategory(strings.ToUpper(strings.TrimSpace(arg)))
	if !accessibility.IsValid(category) {
		return session.View(), unknownCategoryError(category)
	}
	return session.SelectCategory(category)
}

func unknownCategoryError(category models.DisabilityCategory) error {
	categories := accessibility.Categories()
	names := make([]string, len(categories))
	for i, cat := range categories {
		names[i] = string(cat)
	}
	return fmt.Errorf("unknown category %q, choose one of: %s", category, strings.Join(names, ", "))
}

func (c *chats) key(ctx context.Context, chatID int64, key string) (models.SessionView, error) {
	session, err := c.session(ctx, chatID)
	if err != nil {
		return models.SessionView{}, err
	}
	res, err := session.PressKey(key)
	return res.View, err
}

func (c *chats) gesture(ctx context.Context, chatID int64, arg string) (models.SessionView, error) {
	session, err := c.session(ctx, chatID)
	if err != nil {
		return models.SessionView{}, err
	}
	g := models.Gesture(strings.ToLower(strings.TrimSpace(arg)))
	if _, ok := services.ResolveGesture(g); !ok {
		return session.View(), fmt.Errorf("gesture must be next or prev")
	}
	res, err := session.Gesture(g)
	return res.View, err
}

// answer picks option n of the question on screen, or records free text
// for open questions.
func (c *chats) answer(ctx context.Context, chatID int64, arg string) (models.SessionView, error) {
	session, err := c.session(ctx, chatID)
	if err != nil {
		return models.SessionView{}, err
	}
	view := session.View()
	if !view.State.ExamActive() {
		return view, services.ErrExamNotActive
	}

	value := strings.TrimSpace(arg)
	if view.Question != nil && view.Question.IsMultipleChoice() {
		if value, err = optionByNumber(view, arg); err != nil {
			return view, err
		}
	}
	res, err := session.RecordAnswer(0, value)
	return res.View, err
}

func (c *chats) exit(ctx context.Context, chatID int64) (models.SessionView, error) {
	session, err := c.session(ctx, chatID)
	if err != nil {
		return models.SessionView{}, err
	}
	return session.Exit()
}

func (c *chats) speak(ctx context.Context, chatID int64, source transcription.AudioSource) (*services.VoiceResult, error) {
	session, err := c.session(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return c.voice.Process(ctx, session.ID(), source)
}

func (c *chats) closeAll(ctx context.Context) {
	c.mu.Lock()
	ids := make([]int64, 0, len(c.byChat))
	for chatID := range c.byChat {
		ids = append(ids, chatID)
	}
	c.mu.Unlock()
	for _, chatID := range ids {
		c.finish(ctx, chatID)
	}
}

// replyForError turns a session error into something a candidate can act on.
func replyForError(err error) string {
	var transitionErr *services.TransitionError
	switch {
	case errors.Is(err, errNoSession):
		return errNoSession.Error()
	case errors.As(err, &transitionErr):
		return fmt.Sprintf("You can't do that now (%s).", strings.ReplaceAll(transitionErr.Operation, "_", " "))
	case errors.Is(err, services.ErrExamNotActive):
		return "The exam is not running."
	case errors.Is(err, services.ErrVoiceInputDisabled):
		return "Voice input is off. Press v to turn it on."
	case errors.Is(err, transcription.ErrVoiceUnavailable):
		return "Voice answers are not available on this server."
	case errors.Is(err, transcription.ErrDevicePermissionDenied):
		return services.ToastMicrophoneDenied
	case errors.Is(err, transcription.ErrTranscriptionFailed):
		return services.ToastTranscriptionFailed
	case errors.Is(err, transcription.ErrUnsupportedAudioFormat):
		return "That audio format is not supported."
	case errors.Is(err, services.ErrValidationFailed):
		return "Invalid input: " + err.Error()
	}
	return err.Error()
}
