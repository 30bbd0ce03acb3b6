package domain

import (
	"fmt"
	"math"
	"time"
)

type PatternType string
type Rhythm string
type BodyLocation string

const (
	PatternTension           PatternType = "tension"
	PatternPressure          PatternType = "pressure"
	PatternAffirmation       PatternType = "affirmation"
	PatternPulse             PatternType = "pulse"
	PatternHarmony           PatternType = "harmony"
	PatternSimplifiedHarmony PatternType = "simplified_harmony"
	PatternMonotony          PatternType = "monotony"
)

const (
	RhythmSteady       Rhythm = "steady"
	RhythmIntermittent Rhythm = "intermittent"
	RhythmEscalating   Rhythm = "escalating"
)

const (
	LocationWholeBody      BodyLocation = "whole_body"
	LocationThroatAndChest BodyLocation = "throat_and_chest"
	LocationChestAndLimbs  BodyLocation = "chest_and_limbs"
	LocationTorsoAndArms   BodyLocation = "torso_and_arms"
	LocationArmsOnly       BodyLocation = "arms_only"
)

func (t PatternType) Valid() bool {
	switch t {
	case PatternTension, PatternPressure, PatternAffirmation, PatternPulse,
		PatternHarmony, PatternSimplifiedHarmony, PatternMonotony:
		return true
	default:
		return false
	}
}

func (r Rhythm) Valid() bool {
	switch r {
	case RhythmSteady, RhythmIntermittent, RhythmEscalating:
		return true
	default:
		return false
	}
}

type IntensityRange struct {
	Min float64
	Max float64
}

// DefaultIntensityRange is the 0..10 scale shared by the built-in translators.
var DefaultIntensityRange = IntensityRange{Min: 0, Max: 10}

func (r IntensityRange) Clamp(v float64) float64 {
	if math.IsNaN(v) {
		return r.Min
	}
	return math.Min(r.Max, math.Max(r.Min, v))
}

func (r IntensityRange) Contains(v float64) bool {
	return !math.IsNaN(v) && v >= r.Min && v <= r.Max
}

// FeedbackPattern is the value produced by a translator. It is never mutated;
// a new reading always yields a new pattern.
type FeedbackPattern struct {
	Domain       DomainID
	Type         PatternType
	Intensity    float64
	Rhythm       Rhythm
	PulseCount   int
	Duration     time.Duration
	BodyLocation BodyLocation
	EmotionTag   string
	Description  string
}

func (p FeedbackPattern) Validate(bounds IntensityRange) error {
	if !p.Type.Valid() {
		return fmt.Errorf("unsupported pattern type %q", p.Type)
	}
	if !p.Rhythm.Valid() {
		return fmt.Errorf("unsupported rhythm %q", p.Rhythm)
	}
	if !bounds.Contains(p.Intensity) {
		return fmt.Errorf("intensity %.3f outside [%g, %g]", p.Intensity, bounds.Min, bounds.Max)
	}
	if p.PulseCount < 0 {
		return fmt.Errorf("pulse count must not be negative")
	}
	if p.Duration <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	return nil
}

// SameCanonical reports whether two patterns agree on every field that must
// be identical across participants of one session.
func (p FeedbackPattern) SameCanonical(other FeedbackPattern) bool {
	return p.Domain == other.Domain &&
		p.Type == other.Type &&
		p.Rhythm == other.Rhythm &&
		p.PulseCount == other.PulseCount &&
		p.BodyLocation == other.BodyLocation
}
