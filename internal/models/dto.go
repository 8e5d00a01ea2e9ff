package models

import "time"

// ===== SESSION REQUESTS =====

type LoginRequest struct {
	CandidateID string `json:"candidate_id" validate:"required,max=64"`
	Password    string `json:"password" validate:"required,max=128"` // accepted, never checked
}

type SelectCategoryRequest struct {
	Category DisabilityCategory `json:"category" validate:"required,disability_category"`
}

type KeyPressRequest struct {
	Key string `json:"key" validate:"required,max=16"`
}

type GestureRequest struct {
	Gesture Gesture `json:"gesture" validate:"required,gesture"`
}

type UIActionRequest struct {
	Action string      `json:"action" validate:"required,ui_action"`
	Flag   FeatureFlag `json:"flag" validate:"omitempty,feature_flag"`
	Value  string      `json:"value" validate:"max=2000"`
}

type AnswerRequest struct {
	Value string `json:"value" validate:"required,max=2000"`
}

// ===== RESPONSES =====

type DispatchResponse struct {
	Applied bool        `json:"applied"`
	Action  string      `json:"action,omitempty"`
	View    SessionView `json:"view"`
}

type VoiceResponse struct {
	Transcript    string      `json:"transcript"`
	MatchedOption string      `json:"matched_option,omitempty"`
	Applied       bool        `json:"applied"`
	View          SessionView `json:"view"`
}

type ProfileListResponse struct {
	Profiles []AccessibilityProfile `json:"profiles"`
}

type QuestionListResponse struct {
	Questions []Question `json:"questions"`
	Total     int        `json:"total"`
}

// ===== ERROR RESPONSES =====

type ErrorResponse struct {
	Message   string      `json:"message"`
	Details   interface{} `json:"details,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Path      string      `json:"path,omitempty"`
}

type SuccessResponse struct {
	Message   string      `json:"message"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
}
