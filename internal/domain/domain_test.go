package domain

import (
	"errors"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDomainLabelBasic(t *testing.T) {
	tests := []struct {
		name   string
		domain DomainID
		want   string
	}{
		{name: "water", domain: DomainWaterStress, want: "Water Health"},
		{name: "biodiversity", domain: DomainBiodiversity, want: "Biodiversity"},
		{name: "soil", domain: DomainID("soil_health"), want: "Soil Vitality"},
		{name: "unknown domain returns raw value", domain: DomainID("fog_drip"), want: "fog_drip"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.domain.Label())
		})
	}
}

func TestErrorKindMatching(t *testing.T) {
	err := fmt.Errorf("deliver: %w", NewError(KindNoData, "s-1", "no reading for %s", "main-channel"))

	require.ErrorIs(t, err, ErrNoData)
	require.ErrorIs(t, err, &Error{Kind: KindNoData, SessionID: "s-1"})
	assert.NotErrorIs(t, err, &Error{Kind: KindNoData, SessionID: "s-2"})
	assert.NotErrorIs(t, err, ErrInvalidConfig)
	assert.Equal(t, KindNoData, KindOf(err))
	assert.Contains(t, err.Error(), "no_data [session s-1]: no reading for main-channel")

	var typed *Error
	require.True(t, errors.As(err, &typed))
	assert.False(t, typed.Retryable())
	assert.True(t, NewError(KindInvalidConfig, "", "bad").Retryable())
}

func TestWithSessionFillsMissingSessionID(t *testing.T) {
	err := WithSession(NewError(KindUnknownDomain, "", "no translator"), "s-9")

	var typed *Error
	require.True(t, errors.As(err, &typed))
	assert.Equal(t, SessionID("s-9"), typed.SessionID)

	plain := errors.New("boom")
	assert.Equal(t, plain, WithSession(plain, "s-9"))
}

func TestReadingIsImmutable(t *testing.T) {
	captured := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	source := map[string]Measurement{IndicatorSoilMoisture: {Value: 18, Unit: "%"}}
	r := NewReading(DomainWaterStress, "main-channel", captured, source)

	source[IndicatorSoilMoisture] = Measurement{Value: 99}
	view := r.Indicators()
	view[IndicatorSoilMoisture] = Measurement{Value: 42}

	v, ok := r.Value(IndicatorSoilMoisture)
	require.True(t, ok)
	assert.Equal(t, 18.0, v)
}

func TestReadingMissingTreatsNaNAsAbsent(t *testing.T) {
	r := NewReading(DomainWaterStress, "a", time.Now(), map[string]Measurement{
		IndicatorSoilMoisture:         {Value: math.NaN()},
		IndicatorPrecipitationDeficit: {Value: 10},
	})

	assert.Equal(t, []string{IndicatorSoilMoisture, IndicatorStreamFlow},
		r.Missing([]string{IndicatorSoilMoisture, IndicatorPrecipitationDeficit, IndicatorStreamFlow}))
}

func TestReadingFreshness(t *testing.T) {
	captured := time.Date(2026, 10, 19, 9, 0, 0, 0, time.UTC)
	r := NewReading(DomainWaterStress, "a", captured, nil)

	assert.True(t, r.IsFresh(captured.Add(5*time.Minute), 10*time.Minute))
	assert.False(t, r.IsFresh(captured.Add(11*time.Minute), 10*time.Minute))
	assert.True(t, r.IsFresh(captured.Add(24*time.Hour), 0))
}

func TestIntensityRangeClamp(t *testing.T) {
	r := DefaultIntensityRange

	assert.Equal(t, 0.0, r.Clamp(-3))
	assert.Equal(t, 10.0, r.Clamp(1e9))
	assert.Equal(t, 4.5, r.Clamp(4.5))
	assert.Equal(t, 0.0, r.Clamp(math.NaN()))
}

func TestPatternValidate(t *testing.T) {
	p := FeedbackPattern{Type: PatternTension, Rhythm: RhythmSteady, Intensity: 3, PulseCount: 2, Duration: time.Second}
	require.NoError(t, p.Validate(DefaultIntensityRange))

	p.Intensity = 11
	assert.ErrorContains(t, p.Validate(DefaultIntensityRange), "outside")

	p.Intensity = 3
	p.Duration = 0
	assert.ErrorContains(t, p.Validate(DefaultIntensityRange), "duration must be positive")

	p.Duration = time.Second
	p.Rhythm = "staccato"
	assert.ErrorContains(t, p.Validate(DefaultIntensityRange), "unsupported rhythm")
}

func TestCalibrateScalesOnlyIntensityAndDuration(t *testing.T) {
	canonical := FeedbackPattern{
		Type:         PatternTension,
		Rhythm:       RhythmIntermittent,
		Intensity:    8,
		PulseCount:   3,
		Duration:     2 * time.Second,
		BodyLocation: LocationThroatAndChest,
	}
	pulse := Pulse{
		Patterns: []FeedbackPattern{canonical},
		Segments: []Segment{{Index: 0, Duration: 2 * time.Second, Pattern: canonical}},
	}
	cal := Calibration{
		IntensityScale: 1.5,
		DurationScale:  0.5,
		MaxIntensity:   9,
		LocationMap:    map[BodyLocation]BodyLocation{LocationThroatAndChest: LocationArmsOnly},
	}

	segments := cal.Calibrate(pulse, DefaultIntensityRange)
	require.Len(t, segments, 1)

	got := segments[0]
	assert.Equal(t, 9.0, got.Pattern.Intensity)
	assert.Equal(t, time.Second, got.Pattern.Duration)
	assert.Equal(t, time.Second, got.Duration)
	assert.Equal(t, LocationArmsOnly, got.ActuatorLocation)
	assert.True(t, got.Pattern.SameCanonical(canonical))
	assert.Equal(t, 8.0, pulse.Segments[0].Pattern.Intensity)
}

func TestCalibrationValidate(t *testing.T) {
	assert.NoError(t, Calibration{}.Validate())
	assert.NoError(t, Calibration{IntensityScale: 0.5, DurationScale: 2}.Validate())
	assert.ErrorContains(t, Calibration{IntensityScale: 3}.Validate(), "intensity scale")
	assert.ErrorContains(t, Calibration{MaxIntensity: -1}.Validate(), "max intensity")
}

func TestSummarizeReflections(t *testing.T) {
	circle := ReflectionCircle{Eligible: []ParticipantID{"a", "b"}}
	entries := []ReflectionEntry{
		{ParticipantID: "a", EmotionTag: "grief", ActionIdeas: []string{"plant natives"}},
		{ParticipantID: "b", EmotionTag: "hope"},
		{ParticipantID: "a", EmotionTag: "hope", ActionIdeas: []string{"restore channel", "monitor flow"}},
	}

	summary := Summarize(circle, entries)
	assert.Equal(t, 3, summary.Entries)
	assert.Equal(t, 3, summary.ActionIdeas)
	assert.Equal(t, "hope", summary.DominantEmotion)
	assert.True(t, summary.AllReflected)
	assert.Contains(t, summary.String(), "primarily hope feelings")

	assert.Equal(t, "No reflections shared yet.", Summarize(circle, nil).String())
}

func TestReflectionEntryNormalize(t *testing.T) {
	e := ReflectionEntry{
		ParticipantID: "a",
		Content:       "  felt the river  ",
		EmotionTag:    " Hope ",
		Insights:      []string{" ", "dry banks"},
	}.Normalize()

	require.NoError(t, e.Validate())
	assert.Equal(t, "felt the river", e.Content)
	assert.Equal(t, "hope", e.EmotionTag)
	assert.Equal(t, []string{"dry banks"}, e.Insights)
	assert.ErrorContains(t, ReflectionEntry{ParticipantID: "a"}.Validate(), "empty")
}
