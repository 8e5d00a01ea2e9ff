package services

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"slices"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/SAP-F-2025/accessible-exam-service/internal/accessibility"
	"github.com/SAP-F-2025/accessible-exam-service/internal/events"
	"github.com/SAP-F-2025/accessible-exam-service/internal/models"
	"github.com/SAP-F-2025/accessible-exam-service/internal/notification"
	"github.com/SAP-F-2025/accessible-exam-service/internal/scheduler"
)

const (
	DefaultExamDurationSeconds = 3600
	DefaultExtraTimeMultiplier = 1.5
	MaxAnswerLength            = 2000
)

const (
	ToastNextQuestion        = "Next Question"
	ToastPreviousQuestion    = "Previous Question"
	ToastExamSubmitted       = "Exam Submitted"
	ToastMicrophoneDenied    = "Microphone access denied or not available."
	ToastTranscriptionFailed = "Error transcribing audio. Please try again."
	toastVoicePrefix         = "Selected via Voice: "
)

// SessionConfig holds the exam timing rules.
type SessionConfig struct {
	ExamDurationSeconds int
	ExtraTimeMultiplier float64
	// AutoSubmitOnExpiry submits the exam when the clock reaches zero.
	// When false the clock stays at zero and the exam remains open.
	AutoSubmitOnExpiry bool
}

func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		ExamDurationSeconds: DefaultExamDurationSeconds,
		ExtraTimeMultiplier: DefaultExtraTimeMultiplier,
		AutoSubmitOnExpiry:  true,
	}
}

// ExamDuration is the starting time in seconds for an accessibility config.
func (c SessionConfig) ExamDuration(cfg models.AccessibilityConfig) int {
	if cfg.ExtraTime {
		return int(math.Round(float64(c.ExamDurationSeconds) * c.ExtraTimeMultiplier))
	}
	return c.ExamDurationSeconds
}

type SessionOptions struct {
	Config    SessionConfig
	Scheduler scheduler.Scheduler
	Logger    *slog.Logger
	// VoiceAvailable reports whether a transcription backend exists.
	VoiceAvailable bool
	// Listener receives every change in commit order. It runs after the
	// session lock is released and must not call back into the session.
	Listener func(events.Event)
}

// ExamSession is one candidate's pass through login, profile selection,
// the exam and confirmation. Every change builds a new SessionState and
// swaps it in under mu; readers get clones.
type ExamSession struct {
	id           string
	questions    []models.Question
	cfg          SessionConfig
	sched        scheduler.Scheduler
	logger       *slog.Logger
	voiceBackend bool
	listener     func(events.Event)

	mu     sync.Mutex
	emitMu sync.Mutex
	state  models.SessionState
	closed bool

	clock    scheduler.Task
	clockGen uint64

	toast   *notification.Channel
	gesture *notification.Indicator
	save    *notification.SaveIndicator
}

func NewExamSession(id string, questions []models.Question, opts SessionOptions) (*ExamSession, error) {
	if len(questions) == 0 {
		return nil, ErrNoQuestions
	}
	if opts.Scheduler == nil {
		opts.Scheduler = scheduler.New()
	}
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if opts.Config.ExamDurationSeconds <= 0 {
		opts.Config.ExamDurationSeconds = DefaultExamDurationSeconds
	}
	if opts.Config.ExtraTimeMultiplier <= 0 {
		opts.Config.ExtraTimeMultiplier = DefaultExtraTimeMultiplier
	}

	s := &ExamSession{
		id:           id,
		questions:    cloneQuestions(questions),
		cfg:          opts.Config,
		sched:        opts.Scheduler,
		logger:       opts.Logger.With("session_id", id),
		voiceBackend: opts.VoiceAvailable,
		listener:     opts.Listener,
	}
	s.toast = notification.NewChannel(s.sched, notification.ToastLifetime, s.emitDerived)
	s.gesture = notification.NewIndicator(s.sched, notification.GestureLifetime, s.emitDerived)
	s.save = notification.NewSaveIndicator(s.sched, s.emitDerived)

	s.state = s.initialState()
	s.state.Version = 1
	s.state.UpdatedAt = s.sched.Now()
	return s, nil
}

func (s *ExamSession) ID() string { return s.id }

func (s *ExamSession) Questions() []models.Question {
	return cloneQuestions(s.questions)
}

func (s *ExamSession) Snapshot() models.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.Clone()
}

func (s *ExamSession) View() models.SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.viewLocked()
}

// Login moves from LOGIN to DISABILITY_SELECT. The candidate id is
// recorded but not authenticated.
func (s *ExamSession) Login(candidateID string) (models.SessionView, error) {
	candidateID = strings.TrimSpace(candidateID)
	if candidateID == "" {
		return s.View(), newValidationError("candidate_id", "is required")
	}

	return s.transition("login", events.EventLoggedIn, []models.AppStep{models.StepLogin},
		func(cur models.SessionState) models.SessionState {
			next := cur.Clone()
			next.CandidateID = candidateID
			next.Step = models.StepDisabilitySelect
			return next
		})
}

// SelectCategory applies the category's preset and starts the exam with
// fresh progress. Only valid from DISABILITY_SELECT.
func (s *ExamSession) SelectCategory(category models.DisabilityCategory) (models.SessionView, error) {
	if !accessibility.IsValid(category) {
		category = models.DisabilityNone
	}

	return s.transition("select_category", events.EventCategorySelected, []models.AppStep{models.StepDisabilitySelect},
		func(cur models.SessionState) models.SessionState {
			cfg := accessibility.Resolve(category)
			next := cur.Clone()
			next.Category = category
			next.Config = cfg
			next.Exam = newExamState(s.cfg.ExamDuration(cfg))
			next.Step = models.StepExam
			return next
		})
}

// Exit abandons the running exam and returns to LOGIN.
func (s *ExamSession) Exit() (models.SessionView, error) {
	return s.transition("exit", events.EventExited, []models.AppStep{models.StepExam},
		func(cur models.SessionState) models.SessionState {
			s.toast.Clear()
			s.gesture.Clear()
			s.save.Reset()

			next := s.initialState()
			next.SessionID = cur.SessionID
			return next
		})
}

func (s *ExamSession) Advance() (DispatchResult, error) { return s.Dispatch(AdvanceAction(SourceUI)) }
func (s *ExamSession) Retreat() (DispatchResult, error) { return s.Dispatch(RetreatAction(SourceUI)) }
func (s *ExamSession) Submit() (DispatchResult, error)  { return s.Dispatch(SubmitAction(SourceUI)) }

func (s *ExamSession) ToggleFeature(flag models.FeatureFlag) (DispatchResult, error) {
	return s.Dispatch(ToggleFeatureAction(SourceUI, flag))
}

// RecordAnswer stores value for questionID. A questionID of 0 means the
// question currently on screen.
func (s *ExamSession) RecordAnswer(questionID int, value string) (DispatchResult, error) {
	return s.Dispatch(RecordAnswerAction(SourceUI, questionID, value))
}

// PressKey dispatches a keyboard shortcut. Unbound keys are ignored.
func (s *ExamSession) PressKey(key string) (DispatchResult, error) {
	action, ok := ResolveKey(key)
	if !ok {
		return DispatchResult{View: s.View()}, nil
	}
	return s.Dispatch(action)
}

// Gesture dispatches a simulated swipe and flashes the gesture indicator
// while the exam is open, even when navigation hits a boundary.
func (s *ExamSession) Gesture(g models.Gesture) (DispatchResult, error) {
	action, ok := ResolveGesture(g)
	if !ok {
		return DispatchResult{View: s.View()}, nil
	}
	return s.dispatch(action, func() { s.gesture.Show(string(g)) })
}

// ApplyTranscript answers questionID with the option named in transcript.
// A transcript that names no option changes nothing.
func (s *ExamSession) ApplyTranscript(questionID int, transcript string) (DispatchResult, string, error) {
	q, ok := s.question(questionID)
	if !ok {
		return DispatchResult{View: s.View()}, "", fmt.Errorf("%w: %d", ErrQuestionNotFound, questionID)
	}
	option, matched := MatchVoiceOption(transcript, q)
	if !matched {
		s.logger.Debug("Voice transcript matched no option", "question_id", questionID)
		return DispatchResult{View: s.View()}, "", nil
	}
	res, err := s.Dispatch(RecordAnswerAction(SourceVoice, questionID, option))
	return res, option, err
}

// Notify shows a message on the toast channel.
func (s *ExamSession) Notify(text string) models.SessionView {
	s.mu.Lock()
	if s.closed {
		defer s.mu.Unlock()
		return s.viewLocked()
	}
	s.toast.Set(text)
	return s.releaseAndEmit(events.EventViewChanged)
}

// Dispatch applies one action through the exam gate: nothing happens
// unless the step is EXAM and the exam is not submitted.
func (s *ExamSession) Dispatch(a Action) (DispatchResult, error) {
	return s.dispatch(a, nil)
}

func (s *ExamSession) dispatch(a Action, onGateOpen func()) (DispatchResult, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return DispatchResult{}, ErrSessionClosed
	}
	if !s.state.ExamActive() {
		view := s.viewLocked()
		s.mu.Unlock()
		return DispatchResult{Action: &a, View: view}, nil
	}

	if onGateOpen != nil {
		onGateOpen()
	}

	next, eventType, err := s.applyLocked(a)
	if err != nil {
		view := s.viewLocked()
		s.mu.Unlock()
		return DispatchResult{Action: &a, View: view}, err
	}
	if eventType == "" {
		if onGateOpen != nil {
			return DispatchResult{Action: &a, View: s.releaseAndEmit(events.EventViewChanged)}, nil
		}
		view := s.viewLocked()
		s.mu.Unlock()
		return DispatchResult{Action: &a, View: view}, nil
	}

	s.commitLocked(next)
	s.logger.Debug("Action applied", "action", a.Kind.String(), "source", a.Source, "version", next.Version)
	view := s.releaseAndEmit(eventType)
	return DispatchResult{Applied: true, Action: &a, View: view}, nil
}

// applyLocked computes the state an action leads to. An empty event type
// means the action was a no-op at a boundary.
func (s *ExamSession) applyLocked(a Action) (models.SessionState, string, error) {
	cur := s.state
	idx := cur.Exam.CurrentQuestionIndex
	last := len(s.questions) - 1

	switch a.Kind {
	case ActionAdvance:
		if idx >= last {
			return cur, "", nil
		}
		next := cur.Clone()
		next.Exam.CurrentQuestionIndex++
		s.toast.Set(ToastNextQuestion)
		return next, events.EventAdvanced, nil

	case ActionRetreat:
		if idx <= 0 {
			return cur, "", nil
		}
		next := cur.Clone()
		next.Exam.CurrentQuestionIndex--
		s.toast.Set(ToastPreviousQuestion)
		return next, events.EventRetreated, nil

	case ActionSubmit:
		if idx != last {
			return cur, "", nil
		}
		s.toast.Set(ToastExamSubmitted)
		s.logger.Info("Exam submitted", "answered", len(cur.Exam.Answers), "time_left", cur.Exam.TimeLeft)
		return submittedState(cur, models.EndReasonSubmitted), events.EventSubmitted, nil

	case ActionToggleFeature:
		cfg, err := cur.Config.Toggled(a.Flag)
		if err != nil {
			return cur, "", newValidationError("flag", err.Error())
		}
		next := cur.Clone()
		next.Config = cfg
		status := "Disabled"
		if cfg.Get(a.Flag) {
			status = "Enabled"
		}
		s.toast.Set(a.Flag.Label() + " " + status)
		return next, events.EventFeatureToggled, nil

	case ActionRecordAnswer:
		qid := a.QuestionID
		if qid == 0 {
			qid = s.questions[idx].ID
		}
		q, ok := s.question(qid)
		if !ok {
			return cur, "", fmt.Errorf("%w: %d", ErrQuestionNotFound, qid)
		}
		if err := validateAnswer(q, a.Value); err != nil {
			return cur, "", err
		}
		next := cur.Clone()
		next.Exam.Answers[qid] = a.Value
		s.save.Touch()
		if a.Source == SourceVoice {
			s.toast.Set(toastVoicePrefix + a.Value)
		}
		return next, events.EventAnswerRecorded, nil
	}

	return cur, "", fmt.Errorf("%w: unknown action %s", ErrValidationFailed, a.Kind)
}

// Close stops every timer. The session rejects changes afterwards. Close
// returns only once a listener call already in flight has finished, so
// nothing reaches observers after it. It must not be called from the
// listener.
func (s *ExamSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.syncClockLocked()
	s.toast.Close()
	s.gesture.Close()
	s.save.Close()
	s.mu.Unlock()

	s.emitMu.Lock()
	s.emitMu.Unlock()
}

func (s *ExamSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// voiceTarget returns the question a voice answer would go to, or why
// voice input is refused right now.
func (s *ExamSession) voiceTarget() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return 0, ErrSessionClosed
	case !s.state.ExamActive():
		return 0, ErrExamNotActive
	case !s.state.Config.VoiceInput:
		return 0, ErrVoiceInputDisabled
	}
	return s.questions[s.state.Exam.CurrentQuestionIndex].ID, nil
}

func (s *ExamSession) transition(op, eventType string, allowed []models.AppStep, build func(models.SessionState) models.SessionState) (models.SessionView, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return models.SessionView{}, ErrSessionClosed
	}
	if !slices.Contains(allowed, s.state.Step) {
		from := s.state.Step
		view := s.viewLocked()
		s.mu.Unlock()
		return view, newTransitionError(op, from, allowed...)
	}

	from := s.state.Step
	next := build(s.state)
	s.commitLocked(next)
	s.logger.Info("Session step changed", "operation", op, "from", from, "to", next.Step, "category", next.Category)
	return s.releaseAndEmit(eventType), nil
}

// commitLocked swaps in next and re-evaluates the clock.
func (s *ExamSession) commitLocked(next models.SessionState) {
	next.Version = s.state.Version + 1
	next.UpdatedAt = s.sched.Now()
	s.state = next
	s.syncClockLocked()
}

// releaseAndEmit unlocks mu and hands the change to the listener. emitMu
// is taken before mu is released so listeners see changes in commit order.
func (s *ExamSession) releaseAndEmit(eventType string) models.SessionView {
	view := s.viewLocked()
	if s.listener == nil {
		s.mu.Unlock()
		return view
	}

	s.emitMu.Lock()
	s.mu.Unlock()
	defer s.emitMu.Unlock()

	eventView := view
	s.listener(events.Event{
		Type:      eventType,
		SessionID: s.id,
		Version:   view.State.Version,
		Timestamp: s.sched.Now(),
		View:      &eventView,
	})
	return view
}

// emitDerived publishes a view after an indicator or toast expired.
func (s *ExamSession) emitDerived() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.releaseAndEmit(events.EventViewChanged)
}

func (s *ExamSession) viewLocked() models.SessionView {
	st := s.state.Clone()
	v := models.SessionView{
		State:          st,
		QuestionCount:  len(s.questions),
		TimeDisplay:    models.FormatTimeLeft(st.Exam.TimeLeft),
		Toast:          s.toast.Current(),
		SaveStatus:     s.save.Status(),
		ActiveGesture:  models.Gesture(s.gesture.Value()),
		VoiceAvailable: s.voiceBackend && st.Config.VoiceInput,
		AnsweredCount:  len(st.Exam.Answers),
	}
	if st.Step == models.StepExam || st.Step == models.StepConfirmation {
		idx := st.Exam.CurrentQuestionIndex
		q := cloneQuestion(s.questions[idx])
		v.Question = &q
		v.QuestionNumber = idx + 1
		v.IsLastQuestion = idx == len(s.questions)-1
		v.CurrentAnswer = st.Exam.Answers[q.ID]
	}
	return v
}

func (s *ExamSession) initialState() models.SessionState {
	cfg := accessibility.Resolve(models.DisabilityNone)
	return models.SessionState{
		SessionID: s.id,
		Step:      models.StepLogin,
		Category:  models.DisabilityNone,
		Config:    cfg,
		Exam:      newExamState(s.cfg.ExamDuration(cfg)),
	}
}

func (s *ExamSession) question(id int) (models.Question, bool) {
	for _, q := range s.questions {
		if q.ID == id {
			return cloneQuestion(q), true
		}
	}
	return models.Question{}, false
}

func newExamState(timeLeft int) models.ExamState {
	return models.ExamState{
		Answers:  map[int]string{},
		TimeLeft: timeLeft,
	}
}

func submittedState(cur models.SessionState, reason string) models.SessionState {
	next := cur.Clone()
	next.Exam.IsSubmitted = true
	next.Exam.EndReason = reason
	next.Step = models.StepConfirmation
	return next
}

func validateAnswer(q models.Question, value string) error {
	if strings.TrimSpace(value) == "" {
		return newValidationError("value", "answer must not be empty")
	}
	if utf8.RuneCountInString(value) > MaxAnswerLength {
		return newValidationError("value", fmt.Sprintf("answer exceeds %d characters", MaxAnswerLength))
	}
	if q.IsMultipleChoice() && !slices.Contains(q.Options, value) {
		return newValidationError("value", "answer is not one of the question's options")
	}
	return nil
}

func cloneQuestion(q models.Question) models.Question {
	if q.Options != nil {
		q.Options = append([]string(nil), q.Options...)
	}
	return q
}

func cloneQuestions(in []models.Question) []models.Question {
	out := make([]models.Question, len(in))
	for i, q := range in {
		out[i] = cloneQuestion(q)
	}
	return out
}
