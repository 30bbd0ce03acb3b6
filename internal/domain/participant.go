package domain

import (
	"fmt"
	"math"
	"strings"
	"time"
)

type ParticipantID string

const (
	minCalibrationScale = 0.1
	maxCalibrationScale = 2.0
)

// Calibration adjusts a canonical pattern to one wearer. Zero values mean
// "no adjustment".
type Calibration struct {
	IntensityScale float64
	DurationScale  float64
	MaxIntensity   float64
	LocationMap    map[BodyLocation]BodyLocation
}

type Participant struct {
	ID          ParticipantID
	DisplayName string
	Calibration Calibration
}

func (c Calibration) Validate() error {
	for name, scale := range map[string]float64{"intensity": c.IntensityScale, "duration": c.DurationScale} {
		if scale == 0 {
			continue
		}
		if math.IsNaN(scale) || scale < minCalibrationScale || scale > maxCalibrationScale {
			return fmt.Errorf("%s scale %.2f outside [%g, %g]", name, scale, minCalibrationScale, maxCalibrationScale)
		}
	}
	if c.MaxIntensity < 0 || math.IsNaN(c.MaxIntensity) {
		return fmt.Errorf("max intensity must not be negative")
	}
	return nil
}

func (p Participant) Validate() error {
	if strings.TrimSpace(string(p.ID)) == "" {
		return fmt.Errorf("participant id is required")
	}
	return p.Calibration.Validate()
}

func (c Calibration) intensityScale() float64 {
	if c.IntensityScale == 0 {
		return 1
	}
	return c.IntensityScale
}

func (c Calibration) durationScale() float64 {
	if c.DurationScale == 0 {
		return 1
	}
	return c.DurationScale
}

// Bounds narrows the translator range to the participant's safe ceiling.
func (c Calibration) Bounds(bounds IntensityRange) IntensityRange {
	if c.MaxIntensity > 0 && c.MaxIntensity < bounds.Max {
		bounds.Max = math.Max(bounds.Min, c.MaxIntensity)
	}
	return bounds
}

func (c Calibration) Location(canonical BodyLocation) BodyLocation {
	if mapped, ok := c.LocationMap[canonical]; ok && mapped != "" {
		return mapped
	}
	return canonical
}

// CalibratedSegment is a segment as felt by one participant. Only intensity,
// duration and timing scale; type, rhythm and pulse count stay canonical.
type CalibratedSegment struct {
	Index            int
	Offset           time.Duration
	Duration         time.Duration
	Pattern          FeedbackPattern
	ActuatorLocation BodyLocation
}

type Payload struct {
	SessionID     SessionID
	ParticipantID ParticipantID
	DeliverAt     time.Time
	Segments      []CalibratedSegment
}

func (c Calibration) Calibrate(pulse Pulse, bounds IntensityRange) []CalibratedSegment {
	safe := c.Bounds(bounds)
	iScale := c.intensityScale()
	dScale := c.durationScale()

	segments := make([]CalibratedSegment, 0, len(pulse.Segments))
	for _, segment := range pulse.Segments {
		pattern := segment.Pattern
		pattern.Intensity = safe.Clamp(pattern.Intensity * iScale)
		pattern.Duration = scaleDuration(pattern.Duration, dScale)

		segments = append(segments, CalibratedSegment{
			Index:            segment.Index,
			Offset:           scaleDuration(segment.Offset, dScale),
			Duration:         scaleDuration(segment.Duration, dScale),
			Pattern:          pattern,
			ActuatorLocation: c.Location(pattern.BodyLocation),
		})
	}
	return segments
}

func scaleDuration(d time.Duration, scale float64) time.Duration {
	if d <= 0 {
		return d
	}
	scaled := time.Duration(math.Round(float64(d) * scale))
	if scaled <= 0 {
		return time.Millisecond
	}
	return scaled
}
