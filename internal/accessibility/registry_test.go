package accessibility

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SAP-F-2025/accessible-exam-service/internal/models"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		category models.DisabilityCategory
		want     []models.FeatureFlag
	}{
		{name: "none", category: models.DisabilityNone, want: nil},
		{
			name:     "blind",
			category: models.DisabilityVisualBlind,
			want: []models.FeatureFlag{
				models.FeatureVoiceInput, models.FeatureTextToSpeech, models.FeatureExtraTime,
				models.FeatureLargeButtons, models.FeatureSimplifiedUI,
			},
		},
		{
			name:     "low vision",
			category: models.DisabilityVisualLowVision,
			want: []models.FeatureFlag{
				models.FeatureTextToSpeech, models.FeatureLargeText, models.FeatureHighContrast,
				models.FeatureExtraTime, models.FeatureLargeButtons,
			},
		},
		{
			name:     "motor",
			category: models.DisabilityMotorImpairment,
			want: []models.FeatureFlag{
				models.FeatureVoiceInput, models.FeatureExtraTime, models.FeatureLargeButtons,
				models.FeatureSimplifiedUI, models.FeatureGestureSimulation,
			},
		},
		{
			name:     "cognitive",
			category: models.DisabilityCognitiveImpairment,
			want: []models.FeatureFlag{
				models.FeatureTextToSpeech, models.FeatureExtraTime, models.FeatureSimplifiedUI,
			},
		},
		{name: "hearing", category: models.DisabilityHearingImpairment, want: nil},
		{name: "unknown falls back to none", category: "TELEPATHIC", want: nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.category).EnabledFlags())
		})
	}
}

func TestResolve_IsPure(t *testing.T) {
	for _, category := range Categories() {
		assert.Equal(t, Resolve(category), Resolve(category), string(category))
	}
}

func TestCategories_AllHaveExplicitEntries(t *testing.T) {
	cats := Categories()
	require.Len(t, cats, 6)
	assert.Equal(t, models.DisabilityNone, cats[0])
	for _, category := range cats {
		assert.True(t, IsValid(category), string(category))
		_, ok := presets[category]
		assert.True(t, ok, "missing preset for %s", category)
	}
	assert.False(t, IsValid("SOMETHING_ELSE"))
}

func TestCategories_ReturnsCopy(t *testing.T) {
	cats := Categories()
	cats[0] = "MUTATED"
	assert.Equal(t, models.DisabilityNone, Categories()[0])
}

func TestProfiles(t *testing.T) {
	profiles := Profiles()
	require.Len(t, profiles, 6)

	byCategory := make(map[models.DisabilityCategory]models.AccessibilityProfile)
	for _, p := range profiles {
		byCategory[p.Category] = p
	}

	assert.Equal(t, "Standard UI", byCategory[models.DisabilityNone].MapsTo)
	assert.Equal(t, "Standard UI", byCategory[models.DisabilityHearingImpairment].MapsTo)
	assert.Equal(t, "Visual (Blind)", byCategory[models.DisabilityVisualBlind].Label)
	assert.Equal(t, "text to speech, extra time, simplified ui",
		byCategory[models.DisabilityCognitiveImpairment].MapsTo)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "Motor Impairment", Label(models.DisabilityMotorImpairment))
	assert.Equal(t, "UNKNOWN", Label("UNKNOWN"))
}
