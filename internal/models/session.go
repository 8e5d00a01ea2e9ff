package models

import (
	"fmt"
	"time"
)

type AppStep string

const (
	StepLogin            AppStep = "LOGIN"
	StepDisabilitySelect AppStep = "DISABILITY_SELECT"
	StepExam             AppStep = "EXAM"
	StepConfirmation     AppStep = "CONFIRMATION"
)

const (
	EndReasonSubmitted = "submitted"
	EndReasonTimeout   = "time_out"
)

// ExamState is the candidate's progress through the question list.
type ExamState struct {
	Answers              map[int]string `json:"answers"`
	TimeLeft             int            `json:"time_left"` // seconds
	CurrentQuestionIndex int            `json:"current_question_index"`
	IsSubmitted          bool           `json:"is_submitted"`
	EndReason            string         `json:"end_reason,omitempty"`
}

// Clone returns a deep copy so snapshots never share the answers map.
func (e ExamState) Clone() ExamState {
	answers := make(map[int]string, len(e.Answers))
	for k, v := range e.Answers {
		answers[k] = v
	}
	e.Answers = answers
	return e
}

// SessionState is an immutable snapshot of one exam session. Every action
// produces a new value; a stored snapshot is never mutated in place.
type SessionState struct {
	SessionID   string              `json:"session_id"`
	CandidateID string              `json:"candidate_id,omitempty"`
	Step        AppStep             `json:"step"`
	Category    DisabilityCategory  `json:"category"`
	Config      AccessibilityConfig `json:"config"`
	Exam        ExamState           `json:"exam"`
	Version     uint64              `json:"version"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

func (s SessionState) Clone() SessionState {
	s.Exam = s.Exam.Clone()
	return s
}

// ExamActive reports whether exam interactions are accepted.
func (s SessionState) ExamActive() bool {
	return s.Step == StepExam && !s.Exam.IsSubmitted
}

type SaveStatus string

const (
	SaveIdle   SaveStatus = "idle"
	SaveSaving SaveStatus = "saving"
	SaveSaved  SaveStatus = "saved"
)

type Gesture string

const (
	GesturePrev Gesture = "prev"
	GestureNext Gesture = "next"
)

// SessionView is the read model handed to presentation layers.
type SessionView struct {
	State          SessionState `json:"state"`
	Question       *Question    `json:"question,omitempty"`
	QuestionNumber int          `json:"question_number,omitempty"`
	QuestionCount  int          `json:"question_count"`
	IsLastQuestion bool         `json:"is_last_question"`
	CurrentAnswer  string       `json:"current_answer,omitempty"`
	TimeDisplay    string       `json:"time_display"`
	Toast          string       `json:"toast,omitempty"`
	SaveStatus     SaveStatus   `json:"save_status"`
	ActiveGesture  Gesture      `json:"active_gesture,omitempty"`
	VoiceAvailable bool         `json:"voice_available"`
	AnsweredCount  int          `json:"answered_count"`
}

// FormatTimeLeft renders seconds as H:MM:SS, or MM:SS below one hour.
func FormatTimeLeft(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}
