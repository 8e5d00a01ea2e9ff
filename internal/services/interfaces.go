package services

import (
	"context"
	"io"

	"github.com/SAP-F-2025/accessible-exam-service/internal/events"
	"github.com/SAP-F-2025/accessible-exam-service/internal/models"
	"github.com/SAP-F-2025/accessible-exam-service/internal/transcription"
)

// ===== RESULT TYPES =====

// VoiceResult is the outcome of one voice answer attempt. Applied is false
// when the transcript named none of the options.
type VoiceResult struct {
	Transcript    string             `json:"transcript"`
	MatchedOption string             `json:"matched_option,omitempty"`
	Applied       bool               `json:"applied"`
	View          models.SessionView `json:"view"`
}

// AnswerSheet is an exported workbook for a submitted exam.
type AnswerSheet struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ===== SERVICE INTERFACES =====

type SessionService interface {
	Create(ctx context.Context) (*ExamSession, error)
	Get(ctx context.Context, sessionID string) (*ExamSession, error)
	FindByCandidate(ctx context.Context, candidateID string) (*ExamSession, error)
	Close(ctx context.Context, sessionID string) error
	List(ctx context.Context) []string
	Questions() []models.Question
	CloseAll(ctx context.Context)
}

type VoiceService interface {
	Process(ctx context.Context, sessionID string, source transcription.AudioSource) (*VoiceResult, error)
	Available() bool
}

type AnswerSheetService interface {
	Export(ctx context.Context, sessionID string) (*AnswerSheet, error)
	Write(ctx context.Context, sessionID string, w io.Writer) error
}

type ServiceManager interface {
	// Core service getters
	Sessions() SessionService
	Voice() VoiceService
	AnswerSheet() AnswerSheetService
	Events() events.EventSubscriber

	// Health and lifecycle
	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
