package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/SAP-F-2025/accessible-exam-service/internal/models"
)

var (
	ErrSessionNotFound    = errors.New("session not found")
	ErrSessionClosed      = errors.New("session closed")
	ErrInvalidTransition  = errors.New("invalid step transition")
	ErrQuestionNotFound   = errors.New("question not found")
	ErrVoiceInputDisabled = errors.New("voice input is disabled for this session")
	ErrExamNotActive      = errors.New("exam is not active")
	ErrNotSubmitted       = errors.New("exam has not been submitted")
	ErrValidationFailed   = errors.New("validation failed")
	ErrNoQuestions        = errors.New("question list is empty")
)

// TransitionError describes a step change the state machine refused.
type TransitionError struct {
	Operation string
	From      models.AppStep
	Allowed   []models.AppStep
}

func (e *TransitionError) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}
	return fmt.Sprintf("%s not allowed from step %s (requires %s)", e.Operation, e.From, strings.Join(allowed, " or "))
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }

func newTransitionError(op string, from models.AppStep, allowed ...models.AppStep) error {
	return &TransitionError{Operation: op, From: from, Allowed: allowed}
}

// ValidationError is a single field problem.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationErrors collects field problems found by the services.
type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	msgs := make([]string, len(v))
	for i, e := range v {
		msgs[i] = fmt.Sprintf("%s: %s", e.Field, e.Message)
	}
	return strings.Join(msgs, "; ")
}

func (v ValidationErrors) Unwrap() error { return ErrValidationFailed }

func newValidationError(field, message string) error {
	return ValidationErrors{{Field: field, Message: message}}
}
