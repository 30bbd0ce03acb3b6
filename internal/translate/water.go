package translate

import (
	"fmt"
	"math"
	"time"

	"github.com/bnema/mycelium-pulse/internal/domain"
)

const DefaultEcosystem = "temperate_forest"

type moistureBand struct {
	optimalLow      float64
	optimalHigh     float64
	stressThreshold float64
	saturation      float64
}

var moistureBands = map[string]moistureBand{
	"temperate_forest": {optimalLow: 30, optimalHigh: 45, stressThreshold: 25, saturation: 55},
	"grassland":        {optimalLow: 20, optimalHigh: 35, stressThreshold: 15, saturation: 45},
	"desert_scrub":     {optimalLow: 8, optimalHigh: 20, stressThreshold: 5, saturation: 30},
	"wetland":          {optimalLow: 60, optimalHigh: 85, stressThreshold: 50, saturation: 95},
	"rainforest":       {optimalLow: 50, optimalHigh: 70, stressThreshold: 45, saturation: 80},
}

// IndicatorSpec declares the unit and plausible range of an input. Values
// outside the range are clamped, since sensor noise is expected.
type IndicatorSpec struct {
	Name string
	Unit string
	Min  float64
	Max  float64
}

func (s IndicatorSpec) clamp(v float64) float64 {
	return math.Min(s.Max, math.Max(s.Min, v))
}

var (
	specSoilMoisture = IndicatorSpec{Name: domain.IndicatorSoilMoisture, Unit: "%", Min: 0, Max: 100}
	specPrecipDef    = IndicatorSpec{Name: domain.IndicatorPrecipitationDeficit, Unit: "%", Min: 0, Max: 100}
	specStreamFlow   = IndicatorSpec{Name: domain.IndicatorStreamFlow, Unit: "ratio", Min: 0, Max: 10}
	specLeafPotental = IndicatorSpec{Name: domain.IndicatorLeafWaterPotential, Unit: "MPa", Min: -10, Max: 0}
)

const (
	waterBaseIntensity = 2.0
	waterPulseLength   = 800 * time.Millisecond
	waterPauseLength   = 1200 * time.Millisecond
)

// WaterStressTranslator maps soil moisture and precipitation deficit to a
// tension (drought), pressure (waterlogging) or affirmation pattern.
type WaterStressTranslator struct {
	ecosystem string
	bounds    domain.IntensityRange
}

var _ Translator = (*WaterStressTranslator)(nil)

func NewWaterStressTranslator(ecosystem string) (*WaterStressTranslator, error) {
	if ecosystem == "" {
		ecosystem = DefaultEcosystem
	}
	if _, ok := moistureBands[ecosystem]; !ok {
		return nil, fmt.Errorf("unknown ecosystem type %q", ecosystem)
	}
	return &WaterStressTranslator{ecosystem: ecosystem, bounds: domain.DefaultIntensityRange}, nil
}

func (t *WaterStressTranslator) Domain() domain.DomainID {
	return domain.DomainWaterStress
}

func (t *WaterStressTranslator) RequiredIndicators() []string {
	return []string{domain.IndicatorSoilMoisture, domain.IndicatorPrecipitationDeficit}
}

func (t *WaterStressTranslator) Indicators() []IndicatorSpec {
	return []IndicatorSpec{specSoilMoisture, specPrecipDef, specStreamFlow, specLeafPotental}
}

func (t *WaterStressTranslator) OutputRange() domain.IntensityRange {
	return t.bounds
}

func (t *WaterStressTranslator) Translate(reading domain.Reading) (domain.FeedbackPattern, error) {
	if err := requireIndicators(t, reading); err != nil {
		return domain.FeedbackPattern{}, err
	}

	band, err := t.band(reading.Ecosystem)
	if err != nil {
		return domain.FeedbackPattern{}, err
	}

	moisture, _ := reading.Value(domain.IndicatorSoilMoisture)
	moisture = specSoilMoisture.clamp(moisture)

	if moisture > band.saturation {
		level := clamp01((moisture - band.saturation) / (100 - band.saturation))
		return finish(t, pressurePattern(level, t.bounds))
	}

	stress := droughtStress(moisture, band)
	stress = adjustForIndicators(stress, reading)
	if stress == 0 {
		return finish(t, domain.FeedbackPattern{
			Type:         domain.PatternAffirmation,
			Intensity:    waterBaseIntensity * 0.5,
			Rhythm:       domain.RhythmSteady,
			PulseCount:   1,
			Duration:     waterPulseLength,
			BodyLocation: domain.LocationWholeBody,
			EmotionTag:   "contentment",
			Description:  "A gentle, affirming warmth indicating healthy water balance",
		})
	}

	return finish(t, tensionPattern(stress, t.bounds))
}

func (t *WaterStressTranslator) band(ecosystem string) (moistureBand, error) {
	if ecosystem == "" {
		ecosystem = t.ecosystem
	}
	band, ok := moistureBands[ecosystem]
	if !ok {
		return moistureBand{}, &domain.Error{
			Kind: domain.KindIncompleteReading,
			Err:  fmt.Errorf("unknown ecosystem type %q", ecosystem),
		}
	}
	return band, nil
}

// droughtStress is continuous and non-increasing in moisture below the
// optimal band: 0..0.3 down to the stress threshold, 0.3..1 below it.
func droughtStress(moisture float64, band moistureBand) float64 {
	if moisture >= band.optimalLow {
		return 0
	}

	var stress float64
	if moisture > band.stressThreshold {
		stress = 0.3 * (band.optimalLow - moisture) / (band.optimalLow - band.stressThreshold)
	} else {
		stress = 0.3 + 0.7*clamp01((band.stressThreshold-moisture)/band.stressThreshold)
	}

	if stress > 0.7 {
		stress = 0.7 + math.Pow(stress-0.7, 0.7)
	}
	return clamp01(stress)
}

func adjustForIndicators(stress float64, reading domain.Reading) float64 {
	if leaf, ok := reading.Value(domain.IndicatorLeafWaterPotential); ok {
		leaf = specLeafPotental.clamp(leaf)
		switch {
		case leaf < -2.0:
			stress += 0.2
		case leaf < -1.5:
			stress += 0.1
		}
	}

	if flow, ok := reading.Value(domain.IndicatorStreamFlow); ok {
		flow = specStreamFlow.clamp(flow)
		stress *= 1 + 0.3*clamp01((0.5-flow)/0.5)
	}

	deficit, _ := reading.Value(domain.IndicatorPrecipitationDeficit)
	deficit = specPrecipDef.clamp(deficit)
	stress += 0.2 * clamp01((deficit-10)/90)

	return clamp01(stress)
}

func tensionPattern(stress float64, bounds domain.IntensityRange) domain.FeedbackPattern {
	pulses := int(stress * 6)
	if pulses < 2 {
		pulses = 2
	}
	if pulses > 5 {
		pulses = 5
	}

	rhythm := domain.RhythmIntermittent
	if stress > 0.7 {
		rhythm = domain.RhythmEscalating
	}

	emotion := "concern"
	if stress >= 0.5 {
		emotion = "urgency"
	}

	pulse := time.Duration(float64(waterPulseLength) * (1.0 - stress*0.5)).Round(time.Millisecond)

	return domain.FeedbackPattern{
		Type:         domain.PatternTension,
		Intensity:    waterBaseIntensity + (bounds.Max-waterBaseIntensity)*math.Pow(stress, 1.5),
		Rhythm:       rhythm,
		PulseCount:   pulses,
		Duration:     train(pulses, pulse, waterPauseLength),
		BodyLocation: domain.LocationThroatAndChest,
		EmotionTag:   emotion,
		Description:  "A constricting sensation mimicking thirst, intensifying with drought severity",
	}
}

func pressurePattern(level float64, bounds domain.IntensityRange) domain.FeedbackPattern {
	const pulses = 2
	return domain.FeedbackPattern{
		Type:         domain.PatternPressure,
		Intensity:    waterBaseIntensity + (bounds.Max-waterBaseIntensity)*math.Pow(level, 1.5),
		Rhythm:       domain.RhythmSteady,
		PulseCount:   pulses,
		Duration:     train(pulses, waterPulseLength*3/2, waterPauseLength),
		BodyLocation: domain.LocationChestAndLimbs,
		EmotionTag:   "heaviness",
		Description:  "A slow, heavy pressure mimicking the feeling of waterlogged soil",
	}
}

// train is the length of n pulses separated by pauses.
func train(n int, pulse, pause time.Duration) time.Duration {
	if n <= 0 {
		return pulse
	}
	return time.Duration(n)*pulse + time.Duration(n-1)*pause
}
