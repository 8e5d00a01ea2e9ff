package services

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/SAP-F-2025/accessible-exam-service/internal/catalog"
	"github.com/SAP-F-2025/accessible-exam-service/internal/events"
	"github.com/SAP-F-2025/accessible-exam-service/internal/models"
	"github.com/SAP-F-2025/accessible-exam-service/internal/repositories"
	"github.com/SAP-F-2025/accessible-exam-service/internal/repositories/memory"
	"github.com/SAP-F-2025/accessible-exam-service/internal/scheduler"
	"github.com/SAP-F-2025/accessible-exam-service/internal/transcription"
)

type fakeTranscriber struct {
	text      string
	err       error
	available bool
	calls     int
	mimeType  string
	// during runs while the transcription is in flight
	during func()
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (string, error) {
	f.calls++
	f.mimeType = mimeType
	if f.during != nil {
		f.during()
	}
	return f.text, f.err
}

func (f *fakeTranscriber) Available() bool { return f.available }

type testEnv struct {
	clock     *scheduler.Fake
	mirror    repositories.SnapshotRepository
	publisher *events.MockEventPublisher
	sessions  SessionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelWarn}))
	env := &testEnv{
		clock:     scheduler.NewFake(epoch),
		mirror:    memory.NewSnapshotMemory(),
		publisher: events.NewMockEventPublisher(logger),
	}
	env.sessions = NewSessionService(SessionServiceDeps{
		Questions:      catalog.NewStatic(catalog.Defaults()),
		Mirror:         env.mirror,
		Publisher:      env.publisher,
		Scheduler:      env.clock,
		Config:         DefaultSessionConfig(),
		VoiceAvailable: true,
		Logger:         logger,
	})
	t.Cleanup(func() { env.sessions.CloseAll(context.Background()) })
	return env
}

func TestSessionService_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	session, err := env.sessions.Create(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, session.ID())

	got, err := env.sessions.Get(ctx, session.ID())
	require.NoError(t, err)
	assert.Same(t, session, got)
	assert.Equal(t, []string{session.ID()}, env.sessions.List(ctx))

	created := env.publisher.EventsOfType(events.EventSessionCreated)
	require.Len(t, created, 1)
	assert.Equal(t, session.ID(), created[0].SessionID)

	t.Run("mirror follows every change", func(t *testing.T) {
		_, err := session.Login("cand-42")
		require.NoError(t, err)
		_, err = session.SelectCategory(models.DisabilityVisualBlind)
		require.NoError(t, err)
		env.clock.Advance(2 * time.Second)

		snapshot, err := env.mirror.Get(ctx, session.ID())
		require.NoError(t, err)
		assert.Equal(t, session.Snapshot().Version, snapshot.Version)
		assert.Equal(t, 5398, snapshot.Exam.TimeLeft)

		found, err := env.sessions.FindByCandidate(ctx, "cand-42")
		require.NoError(t, err)
		assert.Same(t, session, found)
	})

	t.Run("close removes everything", func(t *testing.T) {
		require.NoError(t, env.sessions.Close(ctx, session.ID()))

		_, err := env.sessions.Get(ctx, session.ID())
		assert.ErrorIs(t, err, ErrSessionNotFound)
		_, err = env.mirror.Get(ctx, session.ID())
		assert.ErrorIs(t, err, repositories.ErrSnapshotNotFound)
		assert.Len(t, env.publisher.EventsOfType(events.EventClosed), 1)
		assert.Equal(t, 0, env.clock.Pending())

		err = env.sessions.Close(ctx, session.ID())
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})

	_, err = env.sessions.FindByCandidate(ctx, "nobody")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

// gatedMirror parks the next Save after arm until release is closed.
type gatedMirror struct {
	repositories.SnapshotRepository
	armed   atomic.Bool
	entered chan struct{}
	release chan struct{}
}

func (m *gatedMirror) arm() {
	m.entered = make(chan struct{})
	m.release = make(chan struct{})
	m.armed.Store(true)
}

func (m *gatedMirror) Save(ctx context.Context, state *models.SessionState) error {
	if m.armed.CompareAndSwap(true, false) {
		close(m.entered)
		<-m.release
	}
	return m.SnapshotRepository.Save(ctx, state)
}

func TestSessionService_CloseWaitsForInFlightMirror(t *testing.T) {
	ctx := context.Background()
	mirror := &gatedMirror{SnapshotRepository: memory.NewSnapshotMemory()}
	sessions := NewSessionService(SessionServiceDeps{
		Questions: catalog.NewStatic(catalog.Defaults()),
		Mirror:    mirror,
		Scheduler: scheduler.NewFake(epoch),
		Config:    DefaultSessionConfig(),
	})
	t.Cleanup(func() { sessions.CloseAll(ctx) })

	session, err := sessions.Create(ctx)
	require.NoError(t, err)
	_, err = session.Login("cand-9")
	require.NoError(t, err)

	mirror.arm()
	selected := make(chan error, 1)
	go func() {
		_, err := session.SelectCategory(models.DisabilityNone)
		selected <- err
	}()
	<-mirror.entered

	closed := make(chan error, 1)
	go func() { closed <- sessions.Close(ctx, session.ID()) }()

	select {
	case <-closed:
		t.Fatal("Close returned while a snapshot save was in flight")
	case <-time.After(50 * time.Millisecond):
	}

	close(mirror.release)
	require.NoError(t, <-selected)
	require.NoError(t, <-closed)

	_, err = mirror.Get(ctx, session.ID())
	assert.ErrorIs(t, err, repositories.ErrSnapshotNotFound)
	ids, err := mirror.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSessionService_SessionsAreIndependent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a, err := env.sessions.Create(ctx)
	require.NoError(t, err)
	b, err := env.sessions.Create(ctx)
	require.NoError(t, err)

	startExam(t, a, models.DisabilityNone)
	startExam(t, b, models.DisabilityVisualBlind)
	a.Advance()
	env.clock.Advance(time.Second)

	assert.Equal(t, 1, a.Snapshot().Exam.CurrentQuestionIndex)
	assert.Equal(t, 0, b.Snapshot().Exam.CurrentQuestionIndex)
	assert.Equal(t, 3599, a.Snapshot().Exam.TimeLeft)
	assert.Equal(t, 5399, b.Snapshot().Exam.TimeLeft)
	assert.Equal(t, ToastNextQuestion, a.View().Toast)
	assert.Equal(t, "", b.View().Toast)
}

func TestVoiceService_Process(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	setup := func(t *testing.T, category models.DisabilityCategory, tr *fakeTranscriber) (*testEnv, *ExamSession, VoiceService) {
		env := newTestEnv(t)
		session, err := env.sessions.Create(ctx)
		require.NoError(t, err)
		startExam(t, session, category)
		session.Advance()
		return env, session, NewVoiceService(env.sessions, tr, time.Second, logger)
	}

	t.Run("matched phrase answers the current question", func(t *testing.T) {
		tr := &fakeTranscriber{text: "I think the answer is screen reader", available: true}
		_, session, voice := setup(t, models.DisabilityVisualBlind, tr)

		res, err := voice.Process(ctx, session.ID(), transcription.FromBytes([]byte("RIFF"), "audio/webm;codecs=opus"))
		require.NoError(t, err)
		assert.True(t, res.Applied)
		assert.Equal(t, "Screen Reader", res.MatchedOption)
		assert.Equal(t, "Screen Reader", session.Snapshot().Exam.Answers[2])
		assert.Equal(t, "audio/webm", tr.mimeType)
	})

	t.Run("answer goes to the question captured with the audio", func(t *testing.T) {
		tr := &fakeTranscriber{text: "screen reader", available: true}
		_, session, voice := setup(t, models.DisabilityVisualBlind, tr)
		tr.during = func() { session.Advance() }

		res, err := voice.Process(ctx, session.ID(), transcription.FromBytes([]byte("RIFF"), "audio/wav"))
		require.NoError(t, err)
		assert.True(t, res.Applied)
		st := session.Snapshot()
		assert.Equal(t, 2, st.Exam.CurrentQuestionIndex, "navigation proceeds during transcription")
		assert.Equal(t, "Screen Reader", st.Exam.Answers[2])
	})

	t.Run("no match changes nothing", func(t *testing.T) {
		tr := &fakeTranscriber{text: "umm", available: true}
		_, session, voice := setup(t, models.DisabilityVisualBlind, tr)
		version := session.Snapshot().Version

		res, err := voice.Process(ctx, session.ID(), transcription.FromBytes([]byte("RIFF"), "audio/wav"))
		require.NoError(t, err)
		assert.False(t, res.Applied)
		assert.Equal(t, "umm", res.Transcript)
		assert.Equal(t, version, session.Snapshot().Version)
	})

	t.Run("transcription failure sets the toast", func(t *testing.T) {
		tr := &fakeTranscriber{err: errors.New("quota exceeded"), available: true}
		_, session, voice := setup(t, models.DisabilityVisualBlind, tr)
		before := session.Snapshot()

		_, err := voice.Process(ctx, session.ID(), transcription.FromBytes([]byte("RIFF"), "audio/wav"))
		assert.ErrorIs(t, err, transcription.ErrTranscriptionFailed)
		assert.Equal(t, ToastTranscriptionFailed, session.View().Toast)
		assert.Equal(t, before.Exam.Answers, session.Snapshot().Exam.Answers)
	})

	t.Run("empty recording is a denied microphone", func(t *testing.T) {
		tr := &fakeTranscriber{available: true}
		_, session, voice := setup(t, models.DisabilityVisualBlind, tr)

		_, err := voice.Process(ctx, session.ID(), transcription.FromBytes(nil, "audio/wav"))
		assert.ErrorIs(t, err, transcription.ErrDevicePermissionDenied)
		assert.Equal(t, ToastMicrophoneDenied, session.View().Toast)
		assert.Equal(t, 0, tr.calls)
	})

	t.Run("non audio upload is rejected", func(t *testing.T) {
		tr := &fakeTranscriber{available: true}
		_, session, voice := setup(t, models.DisabilityVisualBlind, tr)

		_, err := voice.Process(ctx, session.ID(), transcription.FromBytes([]byte("x"), "text/plain"))
		assert.ErrorIs(t, err, transcription.ErrUnsupportedAudioFormat)
		assert.Equal(t, 0, tr.calls)
	})

	t.Run("voice input disabled", func(t *testing.T) {
		tr := &fakeTranscriber{text: "screen reader", available: true}
		_, session, voice := setup(t, models.DisabilityNone, tr)

		_, err := voice.Process(ctx, session.ID(), transcription.FromBytes([]byte("RIFF"), "audio/wav"))
		assert.ErrorIs(t, err, ErrVoiceInputDisabled)

		session.PressKey("v")
		_, err = voice.Process(ctx, session.ID(), transcription.FromBytes([]byte("RIFF"), "audio/wav"))
		assert.NoError(t, err)
	})

	t.Run("backend unavailable", func(t *testing.T) {
		_, session, voice := setup(t, models.DisabilityVisualBlind, &fakeTranscriber{})
		assert.False(t, voice.Available())

		_, err := voice.Process(ctx, session.ID(), transcription.FromBytes([]byte("RIFF"), "audio/wav"))
		assert.ErrorIs(t, err, transcription.ErrVoiceUnavailable)
	})

	t.Run("exam not active", func(t *testing.T) {
		env := newTestEnv(t)
		session, err := env.sessions.Create(ctx)
		require.NoError(t, err)
		voice := NewVoiceService(env.sessions, &fakeTranscriber{available: true}, time.Second, logger)

		_, err = voice.Process(ctx, session.ID(), transcription.FromBytes([]byte("RIFF"), "audio/wav"))
		assert.ErrorIs(t, err, ErrExamNotActive)

		_, err = voice.Process(ctx, "missing", transcription.FromBytes([]byte("RIFF"), "audio/wav"))
		assert.ErrorIs(t, err, ErrSessionNotFound)
	})
}

func TestAnswerSheetService_Export(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	sheets := NewAnswerSheetService(env.sessions, logger)

	session, err := env.sessions.Create(ctx)
	require.NoError(t, err)
	startExam(t, session, models.DisabilityCognitiveImpairment)

	_, err = sheets.Export(ctx, session.ID())
	assert.ErrorIs(t, err, ErrNotSubmitted)

	session.RecordAnswer(1, "To make web content more accessible to people with disabilities")
	session.Advance()
	session.Advance()
	session.RecordAnswer(3, "Ensuring all functionality is available from a keyboard")
	_, err = session.Submit()
	require.NoError(t, err)

	sheet, err := sheets.Export(ctx, session.ID())
	require.NoError(t, err)
	assert.Equal(t, "answer-sheet-"+session.ID()+".xlsx", sheet.Filename)
	assert.Equal(t, xlsxContentType, sheet.ContentType)

	f, err := excelize.OpenReader(bytes.NewReader(sheet.Data))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(answersSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, []string{"#", "Question", "Type", "Answer"}, rows[0])
	assert.Equal(t, "To make web content more accessible to people with disabilities", rows[1][3])
	assert.Equal(t, "(no answer)", rows[2][3])
	assert.Equal(t, "Ensuring all functionality is available from a keyboard", rows[3][3])

	reason, err := f.GetCellValue(summarySheet, "B5")
	require.NoError(t, err)
	assert.Equal(t, models.EndReasonSubmitted, reason)

	profile, err := f.GetCellValue(summarySheet, "B3")
	require.NoError(t, err)
	assert.Equal(t, "Cognitive (ADHD/Dyslexia)", profile)

	_, err = sheets.Export(ctx, "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}
