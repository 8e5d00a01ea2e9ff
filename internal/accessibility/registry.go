// Package accessibility maps disability categories to their accommodation presets.
package accessibility

import (
	"strings"

	"github.com/SAP-F-2025/accessible-exam-service/internal/models"
)

type preset struct {
	label  string
	config models.AccessibilityConfig
}

// presets is the fixed lookup table. Every category carries all eight flags.
var presets = map[models.DisabilityCategory]preset{
	models.DisabilityNone: {
		label: "None / Standard",
		config: models.AccessibilityConfig{
			VoiceInput:        false,
			TextToSpeech:      false,
			LargeText:         false,
			HighContrast:      false,
			ExtraTime:         false,
			LargeButtons:      false,
			SimplifiedUI:      false,
			GestureSimulation: false,
		},
	},
	models.DisabilityVisualBlind: {
		label: "Visual (Blind)",
		config: models.AccessibilityConfig{
			VoiceInput:        true,
			TextToSpeech:      true,
			LargeText:         false,
			HighContrast:      false,
			ExtraTime:         true,
			LargeButtons:      true,
			SimplifiedUI:      true,
			GestureSimulation: false,
		},
	},
	models.DisabilityVisualLowVision: {
		label: "Visual (Low Vision)",
		config: models.AccessibilityConfig{
			VoiceInput:        false,
			TextToSpeech:      true,
			LargeText:         true,
			HighContrast:      true,
			ExtraTime:         true,
			LargeButtons:      true,
			SimplifiedUI:      false,
			GestureSimulation: false,
		},
	},
	models.DisabilityMotorImpairment: {
		label: "Motor Impairment",
		config: models.AccessibilityConfig{
			VoiceInput:        true,
			TextToSpeech:      false,
			LargeText:         false,
			HighContrast:      false,
			ExtraTime:         true,
			LargeButtons:      true,
			SimplifiedUI:      true,
			GestureSimulation: true,
		},
	},
	models.DisabilityCognitiveImpairment: {
		label: "Cognitive (ADHD/Dyslexia)",
		config: models.AccessibilityConfig{
			VoiceInput:        false,
			TextToSpeech:      true,
			LargeText:         false,
			HighContrast:      false,
			ExtraTime:         true,
			LargeButtons:      false,
			SimplifiedUI:      true,
			GestureSimulation: false,
		},
	},
	models.DisabilityHearingImpairment: {
		label: "Hearing Impairment",
		config: models.AccessibilityConfig{
			VoiceInput:        false,
			TextToSpeech:      false,
			LargeText:         false,
			HighContrast:      false,
			ExtraTime:         false,
			LargeButtons:      false,
			SimplifiedUI:      false,
			GestureSimulation: false,
		},
	},
}

// categories is the display order of the selection screen.
var categories = []models.DisabilityCategory{
	models.DisabilityNone,
	models.DisabilityVisualBlind,
	models.DisabilityVisualLowVision,
	models.DisabilityMotorImpairment,
	models.DisabilityCognitiveImpairment,
	models.DisabilityHearingImpairment,
}

// Resolve returns the preset configuration for a category. Unknown
// categories get the standard preset.
func Resolve(category models.DisabilityCategory) models.AccessibilityConfig {
	if p, ok := presets[category]; ok {
		return p.config
	}
	return presets[models.DisabilityNone].config
}

func IsValid(category models.DisabilityCategory) bool {
	_, ok := presets[category]
	return ok
}

// Categories returns every category in display order.
func Categories() []models.DisabilityCategory {
	out := make([]models.DisabilityCategory, len(categories))
	copy(out, categories)
	return out
}

func Label(category models.DisabilityCategory) string {
	if p, ok := presets[category]; ok {
		return p.label
	}
	return string(category)
}

// Profiles lists every category with its preset and a readable summary.
func Profiles() []models.AccessibilityProfile {
	profiles := make([]models.AccessibilityProfile, 0, len(categories))
	for _, category := range categories {
		p := presets[category]
		profiles = append(profiles, models.AccessibilityProfile{
			Category: category,
			Label:    p.label,
			Config:   p.config,
			MapsTo:   Summary(p.config),
		})
	}
	return profiles
}

// Summary describes the enabled flags in words, e.g. "voice input, extra time".
func Summary(config models.AccessibilityConfig) string {
	enabled := config.EnabledFlags()
	if len(enabled) == 0 {
		return "Standard UI"
	}
	parts := make([]string, 0, len(enabled))
	for _, flag := range enabled {
		parts = append(parts, strings.ToLower(flag.Label()))
	}
	return strings.Join(parts, ", ")
}
