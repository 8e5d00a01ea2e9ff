package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SAP-F-2025/accessible-exam-service/internal/transcription"
)

const DefaultTranscriptionTimeout = 30 * time.Second

type voiceService struct {
	sessions    SessionService
	transcriber transcription.Transcriber
	timeout     time.Duration
	logger      *slog.Logger
}

func NewVoiceService(sessions SessionService, transcriber transcription.Transcriber, timeout time.Duration, logger *slog.Logger) VoiceService {
	if transcriber == nil {
		transcriber = transcription.Unavailable{}
	}
	if timeout <= 0 {
		timeout = DefaultTranscriptionTimeout
	}
	return &voiceService{
		sessions:    sessions,
		transcriber: transcriber,
		timeout:     timeout,
		logger:      logger,
	}
}

func (v *voiceService) Available() bool {
	return v.transcriber.Available()
}

// Process captures one recording, transcribes it and answers the question
// that was on screen when the recording started. The session lock is not
// held while the transcriber runs.
func (v *voiceService) Process(ctx context.Context, sessionID string, source transcription.AudioSource) (*VoiceResult, error) {
	session, err := v.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	questionID, err := session.voiceTarget()
	if err != nil {
		return nil, err
	}
	if !v.transcriber.Available() {
		return nil, transcription.ErrVoiceUnavailable
	}

	rec, err := source.Capture(ctx)
	if err != nil {
		if errors.Is(err, transcription.ErrUnsupportedAudioFormat) {
			return nil, err
		}
		session.Notify(ToastMicrophoneDenied)
		v.logger.Warn("Audio capture failed", "session_id", sessionID, "error", err)
		if !errors.Is(err, transcription.ErrDevicePermissionDenied) {
			err = fmt.Errorf("%w: %v", transcription.ErrDevicePermissionDenied, err)
		}
		return nil, err
	}

	tctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	start := time.Now()
	transcript, err := v.transcriber.Transcribe(tctx, rec.Data, rec.MIMEType)
	if err != nil {
		session.Notify(ToastTranscriptionFailed)
		v.logger.Error("Transcription failed", "session_id", sessionID, "error", err, "duration", time.Since(start))
		if errors.Is(err, transcription.ErrVoiceUnavailable) || errors.Is(err, transcription.ErrTranscriptionFailed) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", transcription.ErrTranscriptionFailed, err)
	}

	v.logger.Info("Audio transcribed", "session_id", sessionID, "question_id", questionID, "bytes", len(rec.Data), "duration", time.Since(start))

	res, option, err := session.ApplyTranscript(questionID, transcript)
	if err != nil {
		return nil, err
	}
	return &VoiceResult{
		Transcript:    transcript,
		MatchedOption: option,
		Applied:       res.Applied,
		View:          res.View,
	}, nil
}
