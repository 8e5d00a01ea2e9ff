package models

import "fmt"

type DisabilityCategory string

const (
	DisabilityNone                DisabilityCategory = "NONE"
	DisabilityVisualBlind         DisabilityCategory = "VISUAL_BLIND"
	DisabilityVisualLowVision     DisabilityCategory = "VISUAL_LOW_VISION"
	DisabilityMotorImpairment     DisabilityCategory = "MOTOR_IMPAIRMENT"
	DisabilityCognitiveImpairment DisabilityCategory = "COGNITIVE_IMPAIRMENT"
	DisabilityHearingImpairment   DisabilityCategory = "HEARING_IMPAIRMENT"
)

// AccessibilityConfig is the active bundle of UI/interaction toggles for a session.
type AccessibilityConfig struct {
	VoiceInput        bool `json:"voice_input"`
	TextToSpeech      bool `json:"text_to_speech"`
	LargeText         bool `json:"large_text"`
	HighContrast      bool `json:"high_contrast"`
	ExtraTime         bool `json:"extra_time"`
	LargeButtons      bool `json:"large_buttons"`
	SimplifiedUI      bool `json:"simplified_ui"`
	GestureSimulation bool `json:"gesture_simulation"`
}

type FeatureFlag string

const (
	FeatureVoiceInput        FeatureFlag = "voice_input"
	FeatureTextToSpeech      FeatureFlag = "text_to_speech"
	FeatureLargeText         FeatureFlag = "large_text"
	FeatureHighContrast      FeatureFlag = "high_contrast"
	FeatureExtraTime         FeatureFlag = "extra_time"
	FeatureLargeButtons      FeatureFlag = "large_buttons"
	FeatureSimplifiedUI      FeatureFlag = "simplified_ui"
	FeatureGestureSimulation FeatureFlag = "gesture_simulation"
)

// AllFeatureFlags lists the flags in AccessibilityConfig field order.
var AllFeatureFlags = []FeatureFlag{
	FeatureVoiceInput,
	FeatureTextToSpeech,
	FeatureLargeText,
	FeatureHighContrast,
	FeatureExtraTime,
	FeatureLargeButtons,
	FeatureSimplifiedUI,
	FeatureGestureSimulation,
}

var featureLabels = map[FeatureFlag]string{
	FeatureVoiceInput:        "Voice Input",
	FeatureTextToSpeech:      "Text to Speech",
	FeatureLargeText:         "Large Text",
	FeatureHighContrast:      "High Contrast",
	FeatureExtraTime:         "Extra Time",
	FeatureLargeButtons:      "Large Buttons",
	FeatureSimplifiedUI:      "Simplified UI",
	FeatureGestureSimulation: "Gesture Simulation",
}

// Label returns the human readable name used in shortcut feedback.
func (f FeatureFlag) Label() string {
	if label, ok := featureLabels[f]; ok {
		return label
	}
	return string(f)
}

func (f FeatureFlag) IsValid() bool {
	_, ok := featureLabels[f]
	return ok
}

// Get reports the value of a single flag.
func (c AccessibilityConfig) Get(flag FeatureFlag) bool {
	switch flag {
	case FeatureVoiceInput:
		return c.VoiceInput
	case FeatureTextToSpeech:
		return c.TextToSpeech
	case FeatureLargeText:
		return c.LargeText
	case FeatureHighContrast:
		return c.HighContrast
	case FeatureExtraTime:
		return c.ExtraTime
	case FeatureLargeButtons:
		return c.LargeButtons
	case FeatureSimplifiedUI:
		return c.SimplifiedUI
	case FeatureGestureSimulation:
		return c.GestureSimulation
	}
	return false
}

// Toggled returns a copy of the config with exactly one flag flipped.
func (c AccessibilityConfig) Toggled(flag FeatureFlag) (AccessibilityConfig, error) {
	switch flag {
	case FeatureVoiceInput:
		c.VoiceInput = !c.VoiceInput
	case FeatureTextToSpeech:
		c.TextToSpeech = !c.TextToSpeech
	case FeatureLargeText:
		c.LargeText = !c.LargeText
	case FeatureHighContrast:
		c.HighContrast = !c.HighContrast
	case FeatureExtraTime:
		c.ExtraTime = !c.ExtraTime
	case FeatureLargeButtons:
		c.LargeButtons = !c.LargeButtons
	case FeatureSimplifiedUI:
		c.SimplifiedUI = !c.SimplifiedUI
	case FeatureGestureSimulation:
		c.GestureSimulation = !c.GestureSimulation
	default:
		return c, fmt.Errorf("unknown feature flag %q", flag)
	}
	return c, nil
}

// EnabledFlags returns the enabled flags in field order.
func (c AccessibilityConfig) EnabledFlags() []FeatureFlag {
	var enabled []FeatureFlag
	for _, flag := range AllFeatureFlags {
		if c.Get(flag) {
			enabled = append(enabled, flag)
		}
	}
	return enabled
}

// AccessibilityProfile pairs a category with its preset, for listings.
type AccessibilityProfile struct {
	Category DisabilityCategory  `json:"category"`
	Label    string              `json:"label"`
	Config   AccessibilityConfig `json:"config"`
	MapsTo   string              `json:"maps_to"`
}
