package services

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/accessible-exam-service/internal/accessibility"
	"github.com/SAP-F-2025/accessible-exam-service/internal/catalog"
	"github.com/SAP-F-2025/accessible-exam-service/internal/events"
	"github.com/SAP-F-2025/accessible-exam-service/internal/models"
	"github.com/SAP-F-2025/accessible-exam-service/internal/scheduler"
)

var epoch = time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

type eventRecorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *eventRecorder) record(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *eventRecorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.Event(nil), r.events...)
}

func (r *eventRecorder) ofType(eventType string) []events.Event {
	var out []events.Event
	for _, e := range r.all() {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}

func newTestSession(t *testing.T, cfg SessionConfig) (*ExamSession, *scheduler.Fake, *eventRecorder) {
	t.Helper()
	clock := scheduler.NewFake(epoch)
	rec := &eventRecorder{}
	s, err := NewExamSession("session-1", catalog.Defaults(), SessionOptions{
		Config:         cfg,
		Scheduler:      clock,
		VoiceAvailable: true,
		Listener:       rec.record,
	})
	require.NoError(t, err)
	t.Cleanup(s.Close)
	return s, clock, rec
}

func startExam(t *testing.T, s *ExamSession, category models.DisabilityCategory) {
	t.Helper()
	_, err := s.Login("candidate-7")
	require.NoError(t, err)
	_, err = s.SelectCategory(category)
	require.NoError(t, err)
}

func TestNewExamSession(t *testing.T) {
	s, clock, _ := newTestSession(t, DefaultSessionConfig())

	st := s.Snapshot()
	assert.Equal(t, models.StepLogin, st.Step)
	assert.Equal(t, models.DisabilityNone, st.Category)
	assert.Equal(t, uint64(1), st.Version)
	assert.Equal(t, 3600, st.Exam.TimeLeft)
	assert.Empty(t, st.Exam.Answers)
	assert.Equal(t, 0, clock.Pending(), "no clock before the exam starts")

	_, err := NewExamSession("empty", nil, SessionOptions{})
	assert.ErrorIs(t, err, ErrNoQuestions)
}

func TestExamSession_SelectCategoryDuration(t *testing.T) {
	tests := []struct {
		category models.DisabilityCategory
		timeLeft int
		display  string
	}{
		{models.DisabilityNone, 3600, "1:00:00"},
		{models.DisabilityVisualBlind, 5400, "1:30:00"},
		{models.DisabilityVisualLowVision, 5400, "1:30:00"},
		{models.DisabilityMotorImpairment, 5400, "1:30:00"},
		{models.DisabilityCognitiveImpairment, 5400, "1:30:00"},
		{models.DisabilityHearingImpairment, 3600, "1:00:00"},
	}

	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			s, clock, _ := newTestSession(t, DefaultSessionConfig())
			startExam(t, s, tt.category)

			view := s.View()
			assert.Equal(t, models.StepExam, view.State.Step)
			assert.Equal(t, tt.category, view.State.Category)
			assert.Equal(t, accessibility.Resolve(tt.category), view.State.Config)
			assert.Equal(t, tt.timeLeft, view.State.Exam.TimeLeft)
			assert.Equal(t, tt.display, view.TimeDisplay)
			assert.Equal(t, 0, view.State.Exam.CurrentQuestionIndex)
			assert.Equal(t, 1, view.QuestionNumber)
			require.NotNil(t, view.Question)
			assert.Equal(t, 1, view.Question.ID)
			assert.Equal(t, 1, clock.Pending(), "exactly one clock runs")
		})
	}
}

func TestSessionConfig_ExamDurationRounds(t *testing.T) {
	cfg := SessionConfig{ExamDurationSeconds: 5, ExtraTimeMultiplier: 1.5}
	assert.Equal(t, 8, cfg.ExamDuration(models.AccessibilityConfig{ExtraTime: true}))
	assert.Equal(t, 5, cfg.ExamDuration(models.AccessibilityConfig{}))
}

func TestExamSession_StepTransitions(t *testing.T) {
	t.Run("category before login is rejected", func(t *testing.T) {
		s, _, _ := newTestSession(t, DefaultSessionConfig())

		_, err := s.SelectCategory(models.DisabilityVisualBlind)
		require.ErrorIs(t, err, ErrInvalidTransition)

		var te *TransitionError
		require.True(t, errors.As(err, &te))
		assert.Equal(t, models.StepLogin, te.From)
		assert.Equal(t, uint64(1), s.Snapshot().Version)
	})

	t.Run("category during the exam is rejected", func(t *testing.T) {
		s, _, _ := newTestSession(t, DefaultSessionConfig())
		startExam(t, s, models.DisabilityNone)
		before := s.Snapshot()

		_, err := s.SelectCategory(models.DisabilityVisualBlind)
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, before, s.Snapshot())
	})

	t.Run("login requires a candidate", func(t *testing.T) {
		s, _, _ := newTestSession(t, DefaultSessionConfig())

		_, err := s.Login("   ")
		assert.ErrorIs(t, err, ErrValidationFailed)

		_, err = s.Login("candidate-7")
		require.NoError(t, err)
		_, err = s.Login("candidate-8")
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, "candidate-7", s.Snapshot().CandidateID)
	})

	t.Run("unknown category resolves to standard", func(t *testing.T) {
		s, _, _ := newTestSession(t, DefaultSessionConfig())
		startExam(t, s, models.DisabilityCategory("TELEPATHIC"))
		assert.Equal(t, models.DisabilityNone, s.Snapshot().Category)
	})

	t.Run("exit only from the exam", func(t *testing.T) {
		s, _, _ := newTestSession(t, DefaultSessionConfig())
		_, err := s.Exit()
		assert.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestExamSession_Navigation(t *testing.T) {
	s, clock, _ := newTestSession(t, DefaultSessionConfig())
	startExam(t, s, models.DisabilityNone)

	res, err := s.Retreat()
	require.NoError(t, err)
	assert.False(t, res.Applied, "retreat at the first question is a no-op")
	assert.Equal(t, "", res.View.Toast)

	res, err = s.Advance()
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, 1, res.View.State.Exam.CurrentQuestionIndex)
	assert.Equal(t, ToastNextQuestion, res.View.Toast)

	_, err = s.Advance()
	require.NoError(t, err)
	clock.Advance(notificationLifetime)

	res, err = s.Advance()
	require.NoError(t, err)
	assert.False(t, res.Applied, "advance at the last question is a no-op")
	assert.Equal(t, 2, res.View.State.Exam.CurrentQuestionIndex)
	assert.True(t, res.View.IsLastQuestion)
	assert.Equal(t, "", res.View.Toast, "no toast when the index did not move")

	res, err = s.Retreat()
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, 1, res.View.State.Exam.CurrentQuestionIndex)
	assert.Equal(t, ToastPreviousQuestion, res.View.Toast)
}

// notificationLifetime is long enough for any toast to expire.
const notificationLifetime = 2 * time.Second

func TestExamSession_Submit(t *testing.T) {
	s, clock, rec := newTestSession(t, DefaultSessionConfig())
	startExam(t, s, models.DisabilityNone)

	res, err := s.Submit()
	require.NoError(t, err)
	assert.False(t, res.Applied, "submit needs the last question")
	assert.False(t, s.Snapshot().Exam.IsSubmitted)

	s.Advance()
	s.Advance()
	clock.Advance(1500 * time.Millisecond)

	res, err = s.Submit()
	require.NoError(t, err)
	assert.True(t, res.Applied)

	st := res.View.State
	assert.Equal(t, models.StepConfirmation, st.Step)
	assert.True(t, st.Exam.IsSubmitted)
	assert.Equal(t, models.EndReasonSubmitted, st.Exam.EndReason)
	assert.Equal(t, ToastExamSubmitted, res.View.Toast)
	assert.Len(t, rec.ofType(events.EventSubmitted), 1)

	timeAtSubmit := st.Exam.TimeLeft
	clock.Advance(time.Minute)
	assert.Equal(t, timeAtSubmit, s.Snapshot().Exam.TimeLeft, "clock stops on submit")
	assert.Equal(t, 0, clock.Pending())
}

func TestExamSession_GateAfterSubmit(t *testing.T) {
	s, _, _ := newTestSession(t, DefaultSessionConfig())
	startExam(t, s, models.DisabilityMotorImpairment)
	s.Advance()
	s.Advance()
	_, err := s.Submit()
	require.NoError(t, err)
	before := s.Snapshot()

	inputs := []func() (DispatchResult, error){
		func() (DispatchResult, error) { return s.PressKey("p") },
		func() (DispatchResult, error) { return s.PressKey("h") },
		func() (DispatchResult, error) { return s.Gesture(models.GesturePrev) },
		func() (DispatchResult, error) { return s.Retreat() },
		func() (DispatchResult, error) { return s.ToggleFeature(models.FeatureLargeText) },
		func() (DispatchResult, error) { return s.RecordAnswer(1, "To improve SEO rankings") },
		func() (DispatchResult, error) { return s.Submit() },
	}
	for i, input := range inputs {
		res, err := input()
		require.NoError(t, err, "input %d", i)
		assert.False(t, res.Applied, "input %d", i)
		assert.Equal(t, models.Gesture(""), res.View.ActiveGesture, "input %d", i)
	}
	assert.Equal(t, before, s.Snapshot())
}

func TestExamSession_GateBeforeExam(t *testing.T) {
	s, _, rec := newTestSession(t, DefaultSessionConfig())

	res, err := s.PressKey("n")
	require.NoError(t, err)
	assert.False(t, res.Applied)

	res, err = s.Gesture(models.GestureNext)
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, models.Gesture(""), res.View.ActiveGesture)

	assert.Equal(t, uint64(1), s.Snapshot().Version)
	assert.Empty(t, rec.all())
}

func TestExamSession_RecordAnswer(t *testing.T) {
	s, clock, _ := newTestSession(t, DefaultSessionConfig())
	startExam(t, s, models.DisabilityNone)

	t.Run("last write wins", func(t *testing.T) {
		_, err := s.RecordAnswer(2, "Screen Magnifier")
		require.NoError(t, err)
		res, err := s.RecordAnswer(2, "Screen Reader")
		require.NoError(t, err)

		assert.Equal(t, map[int]string{2: "Screen Reader"}, res.View.State.Exam.Answers)
		assert.Equal(t, 0, res.View.State.Exam.CurrentQuestionIndex, "answering does not navigate")
	})

	t.Run("save indicator cycle", func(t *testing.T) {
		assert.Equal(t, models.SaveSaving, s.View().SaveStatus)
		clock.Advance(800 * time.Millisecond)
		assert.Equal(t, models.SaveSaved, s.View().SaveStatus)
		clock.Advance(2000 * time.Millisecond)
		assert.Equal(t, models.SaveIdle, s.View().SaveStatus)
	})

	t.Run("zero id means current question", func(t *testing.T) {
		res, err := s.RecordAnswer(0, "To improve SEO rankings")
		require.NoError(t, err)
		assert.True(t, res.Applied)
		assert.Equal(t, "To improve SEO rankings", res.View.State.Exam.Answers[1])
		assert.Equal(t, "To improve SEO rankings", res.View.CurrentAnswer)
	})

	t.Run("rejects", func(t *testing.T) {
		version := s.Snapshot().Version

		_, err := s.RecordAnswer(99, "anything")
		assert.ErrorIs(t, err, ErrQuestionNotFound)

		_, err = s.RecordAnswer(1, "Not one of the options")
		assert.ErrorIs(t, err, ErrValidationFailed)

		_, err = s.RecordAnswer(1, "  ")
		assert.ErrorIs(t, err, ErrValidationFailed)

		assert.Equal(t, version, s.Snapshot().Version)
	})
}

func TestExamSession_ToggleFeature(t *testing.T) {
	s, _, _ := newTestSession(t, DefaultSessionConfig())
	startExam(t, s, models.DisabilityVisualBlind)
	preset := accessibility.Resolve(models.DisabilityVisualBlind)

	res, err := s.ToggleFeature(models.FeatureHighContrast)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.True(t, res.View.State.Config.HighContrast)
	assert.Equal(t, models.DisabilityVisualBlind, res.View.State.Category, "toggling keeps the category")
	assert.Equal(t, "High Contrast Enabled", res.View.Toast)

	expected := preset
	expected.HighContrast = true
	assert.Equal(t, expected, res.View.State.Config, "only one flag changes")

	res, err = s.PressKey("H")
	require.NoError(t, err)
	assert.Equal(t, "toggle_feature:high_contrast", res.ActionName())
	assert.False(t, res.View.State.Config.HighContrast)
	assert.Equal(t, "High Contrast Disabled", res.View.Toast)

	res, err = s.PressKey("l")
	require.NoError(t, err)
	assert.True(t, res.View.State.Config.LargeText)
	assert.Equal(t, "Large Text Enabled", res.View.Toast)

	res, err = s.PressKey("x")
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Nil(t, res.Action)

	_, err = s.ToggleFeature(models.FeatureFlag("telepathy"))
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestExamSession_ToggleExtraTimeKeepsClock(t *testing.T) {
	s, _, _ := newTestSession(t, DefaultSessionConfig())
	startExam(t, s, models.DisabilityNone)

	res, err := s.ToggleFeature(models.FeatureExtraTime)
	require.NoError(t, err)
	assert.True(t, res.View.State.Config.ExtraTime)
	assert.Equal(t, 3600, res.View.State.Exam.TimeLeft, "extra time applies at profile selection only")
}

func TestExamSession_Clock(t *testing.T) {
	t.Run("counts down once per second", func(t *testing.T) {
		s, clock, rec := newTestSession(t, DefaultSessionConfig())
		startExam(t, s, models.DisabilityNone)

		clock.Advance(3 * time.Second)
		view := s.View()
		assert.Equal(t, 3597, view.State.Exam.TimeLeft)
		assert.Equal(t, "59:57", view.TimeDisplay)
		assert.Len(t, rec.ofType(events.EventTick), 3)

		clock.Advance(999 * time.Millisecond)
		assert.Equal(t, 3597, s.Snapshot().Exam.TimeLeft)
	})

	t.Run("expiry submits with time_out", func(t *testing.T) {
		cfg := DefaultSessionConfig()
		cfg.ExamDurationSeconds = 5
		s, clock, rec := newTestSession(t, cfg)
		startExam(t, s, models.DisabilityNone)
		s.RecordAnswer(1, "To reduce server costs")

		clock.Advance(10 * time.Second)

		view := s.View()
		assert.Equal(t, 0, view.State.Exam.TimeLeft)
		assert.True(t, view.State.Exam.IsSubmitted)
		assert.Equal(t, models.EndReasonTimeout, view.State.Exam.EndReason)
		assert.Equal(t, models.StepConfirmation, view.State.Step)
		assert.Equal(t, "To reduce server costs", view.State.Exam.Answers[1])
		assert.Len(t, rec.ofType(events.EventTimedOut), 1)
		assert.Len(t, rec.ofType(events.EventTick), 4)
		assert.Equal(t, 0, clock.Pending())

		clock.Advance(10 * time.Second)
		assert.Equal(t, 0, s.Snapshot().Exam.TimeLeft, "never negative")
	})

	t.Run("expiry without auto submit freezes at zero", func(t *testing.T) {
		cfg := DefaultSessionConfig()
		cfg.ExamDurationSeconds = 3
		cfg.AutoSubmitOnExpiry = false
		s, clock, _ := newTestSession(t, cfg)
		startExam(t, s, models.DisabilityNone)

		clock.Advance(10 * time.Second)
		st := s.Snapshot()
		assert.Equal(t, 0, st.Exam.TimeLeft)
		assert.Equal(t, models.StepExam, st.Step)
		assert.Empty(t, st.Exam.EndReason)
		assert.False(t, st.Exam.IsSubmitted)
		assert.Equal(t, 0, clock.Pending())

		res, err := s.Advance()
		require.NoError(t, err)
		assert.True(t, res.Applied, "the exam stays open at zero")
	})
}

func TestExamSession_Exit(t *testing.T) {
	s, clock, rec := newTestSession(t, DefaultSessionConfig())
	startExam(t, s, models.DisabilityMotorImpairment)
	s.Advance()
	s.RecordAnswer(2, "Screen Reader")
	s.Gesture(models.GestureNext)
	require.NotZero(t, clock.Pending())

	view, err := s.Exit()
	require.NoError(t, err)
	assert.Equal(t, models.StepLogin, view.State.Step)
	assert.Equal(t, models.DisabilityNone, view.State.Category)
	assert.Empty(t, view.State.Exam.Answers)
	assert.Equal(t, 0, view.State.Exam.CurrentQuestionIndex)
	assert.Equal(t, "", view.Toast)
	assert.Equal(t, models.SaveIdle, view.SaveStatus)
	assert.Equal(t, 0, clock.Pending(), "exit cancels every timer")
	assert.Len(t, rec.ofType(events.EventExited), 1)

	clock.Advance(5 * time.Second)
	assert.Equal(t, 3600, s.Snapshot().Exam.TimeLeft)

	startExam(t, s, models.DisabilityNone)
	assert.Equal(t, 1, clock.Pending())
}

func TestExamSession_Gesture(t *testing.T) {
	s, clock, rec := newTestSession(t, DefaultSessionConfig())
	startExam(t, s, models.DisabilityMotorImpairment)

	res, err := s.Gesture(models.GesturePrev)
	require.NoError(t, err)
	assert.False(t, res.Applied, "no earlier question")
	assert.Equal(t, models.GesturePrev, res.View.ActiveGesture, "indicator shows even at a boundary")
	assert.NotEmpty(t, rec.ofType(events.EventViewChanged))

	clock.Advance(time.Second)
	assert.Equal(t, models.Gesture(""), s.View().ActiveGesture)

	res, err = s.Gesture(models.GestureNext)
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, models.GestureNext, res.View.ActiveGesture)
	assert.Equal(t, ToastNextQuestion, res.View.Toast)
	assert.Equal(t, 1, res.View.State.Exam.CurrentQuestionIndex)

	res, err = s.Gesture(models.Gesture("up"))
	require.NoError(t, err)
	assert.False(t, res.Applied)
}

func TestExamSession_ApplyTranscript(t *testing.T) {
	s, _, _ := newTestSession(t, DefaultSessionConfig())
	startExam(t, s, models.DisabilityVisualBlind)
	s.Advance()

	res, option, err := s.ApplyTranscript(2, "I think the answer is screen reader")
	require.NoError(t, err)
	assert.Equal(t, "Screen Reader", option)
	assert.True(t, res.Applied)
	assert.Equal(t, "Screen Reader", res.View.State.Exam.Answers[2])
	assert.Equal(t, "Selected via Voice: Screen Reader", res.View.Toast)

	version := s.Snapshot().Version
	res, option, err = s.ApplyTranscript(2, "no idea at all")
	require.NoError(t, err)
	assert.False(t, res.Applied)
	assert.Equal(t, "", option)
	assert.Equal(t, version, s.Snapshot().Version)

	// the transcript belongs to the question captured with it
	res, _, err = s.ApplyTranscript(1, "to make web content more accessible to people with disabilities")
	require.NoError(t, err)
	assert.True(t, res.Applied)
	assert.Equal(t, 1, res.View.State.Exam.CurrentQuestionIndex)
	assert.Equal(t, "To make web content more accessible to people with disabilities", res.View.State.Exam.Answers[1])

	_, _, err = s.ApplyTranscript(42, "screen reader")
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestExamSession_EventsInCommitOrder(t *testing.T) {
	s, clock, rec := newTestSession(t, DefaultSessionConfig())
	startExam(t, s, models.DisabilityNone)
	s.Advance()
	s.RecordAnswer(0, "Screen Reader")
	clock.Advance(3 * time.Second)
	s.PressKey("p")

	all := rec.all()
	require.NotEmpty(t, all)
	assert.Equal(t, events.EventLoggedIn, all[0].Type)
	assert.Equal(t, events.EventCategorySelected, all[1].Type)
	assert.Equal(t, events.EventAdvanced, all[2].Type)

	for i := 1; i < len(all); i++ {
		assert.GreaterOrEqual(t, all[i].Version, all[i-1].Version, "event %d out of order", i)
	}
	for _, e := range all {
		assert.Equal(t, "session-1", e.SessionID)
		require.NotNil(t, e.View)
		assert.Equal(t, e.Version, e.View.State.Version)
	}
}

func TestExamSession_Close(t *testing.T) {
	s, clock, _ := newTestSession(t, DefaultSessionConfig())
	startExam(t, s, models.DisabilityNone)
	s.Advance()

	s.Close()
	assert.True(t, s.Closed())
	assert.Equal(t, 0, clock.Pending())

	_, err := s.Advance()
	assert.ErrorIs(t, err, ErrSessionClosed)
	_, err = s.Exit()
	assert.ErrorIs(t, err, ErrSessionClosed)

	s.Close()
}

func TestExamSession_ConcurrentInputs(t *testing.T) {
	s, clock, _ := newTestSession(t, DefaultSessionConfig())
	startExam(t, s, models.DisabilityMotorImpairment)

	var wg sync.WaitGroup
	keys := []string{"n", "p", "h", "l", "n"}
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s.PressKey(keys[i%len(keys)])
			s.RecordAnswer(2, "Screen Reader")
			s.Gesture(models.GestureNext)
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 10; i++ {
			clock.Advance(500 * time.Millisecond)
		}
	}()
	wg.Wait()

	st := s.Snapshot()
	assert.GreaterOrEqual(t, st.Exam.CurrentQuestionIndex, 0)
	assert.LessOrEqual(t, st.Exam.CurrentQuestionIndex, 2)
	assert.Equal(t, "Screen Reader", st.Exam.Answers[2])
	assert.Equal(t, 3600*3/2-5, st.Exam.TimeLeft)
}
