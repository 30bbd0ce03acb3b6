package translate

import (
	"fmt"
	"time"

	"github.com/bnema/mycelium-pulse/internal/domain"
)

type diversityBand struct {
	optimalLow   float64
	lowThreshold float64
}

var diversityBands = map[string]map[string]diversityBand{
	"temperate_forest": {
		domain.IndicatorSpeciesCount: {optimalLow: 20, lowThreshold: 10},
		domain.IndicatorBirdSpecies:  {optimalLow: 15, lowThreshold: 8},
		domain.IndicatorInsectOrders: {optimalLow: 8, lowThreshold: 5},
		domain.IndicatorShannonIndex: {optimalLow: 2.5, lowThreshold: 2.0},
	},
	"grassland": {
		domain.IndicatorSpeciesCount: {optimalLow: 15, lowThreshold: 8},
		domain.IndicatorBirdSpecies:  {optimalLow: 10, lowThreshold: 6},
		domain.IndicatorInsectOrders: {optimalLow: 7, lowThreshold: 4},
		domain.IndicatorShannonIndex: {optimalLow: 2.0, lowThreshold: 1.5},
	},
	"wetland": {
		domain.IndicatorSpeciesCount: {optimalLow: 25, lowThreshold: 15},
		domain.IndicatorBirdSpecies:  {optimalLow: 20, lowThreshold: 12},
		domain.IndicatorInsectOrders: {optimalLow: 8, lowThreshold: 5},
		domain.IndicatorShannonIndex: {optimalLow: 2.8, lowThreshold: 2.2},
	},
	"desert_scrub": {
		domain.IndicatorSpeciesCount: {optimalLow: 10, lowThreshold: 5},
		domain.IndicatorBirdSpecies:  {optimalLow: 8, lowThreshold: 4},
		domain.IndicatorInsectOrders: {optimalLow: 5, lowThreshold: 3},
		domain.IndicatorShannonIndex: {optimalLow: 1.5, lowThreshold: 1.0},
	},
	"rainforest": {
		domain.IndicatorSpeciesCount: {optimalLow: 35, lowThreshold: 20},
		domain.IndicatorBirdSpecies:  {optimalLow: 25, lowThreshold: 14},
		domain.IndicatorInsectOrders: {optimalLow: 10, lowThreshold: 6},
		domain.IndicatorShannonIndex: {optimalLow: 3.2, lowThreshold: 2.5},
	},
}

var diversityWeights = map[string]float64{
	domain.IndicatorSpeciesCount:      1.2,
	domain.IndicatorBirdSpecies:       1.0,
	domain.IndicatorInsectOrders:      1.1,
	domain.IndicatorShannonIndex:      1.3,
	domain.IndicatorAcousticDiversity: 1.0,
}

// weighted in a fixed order so float summation is reproducible
var diversityOrder = []string{
	domain.IndicatorSpeciesCount,
	domain.IndicatorAcousticDiversity,
	domain.IndicatorBirdSpecies,
	domain.IndicatorInsectOrders,
	domain.IndicatorShannonIndex,
}

var (
	specSpeciesCount = IndicatorSpec{Name: domain.IndicatorSpeciesCount, Unit: "count", Min: 0, Max: 10000}
	specAcoustic     = IndicatorSpec{Name: domain.IndicatorAcousticDiversity, Unit: "index", Min: 0, Max: 1}
	specBirdSpecies  = IndicatorSpec{Name: domain.IndicatorBirdSpecies, Unit: "count", Min: 0, Max: 10000}
	specInsectOrders = IndicatorSpec{Name: domain.IndicatorInsectOrders, Unit: "count", Min: 0, Max: 100}
	specShannon      = IndicatorSpec{Name: domain.IndicatorShannonIndex, Unit: "index", Min: 0, Max: 10}
)

const bioBaseIntensity = 3.0

// BiodiversityTranslator maps species richness and soundscape diversity to a
// harmony pattern whose intensity and layering grow with abundance.
type BiodiversityTranslator struct {
	ecosystem string
	bounds    domain.IntensityRange
}

var _ Translator = (*BiodiversityTranslator)(nil)

func NewBiodiversityTranslator(ecosystem string) (*BiodiversityTranslator, error) {
	if ecosystem == "" {
		ecosystem = DefaultEcosystem
	}
	if _, ok := diversityBands[ecosystem]; !ok {
		return nil, fmt.Errorf("unknown ecosystem type %q", ecosystem)
	}
	return &BiodiversityTranslator{ecosystem: ecosystem, bounds: domain.DefaultIntensityRange}, nil
}

func (t *BiodiversityTranslator) Domain() domain.DomainID {
	return domain.DomainBiodiversity
}

func (t *BiodiversityTranslator) RequiredIndicators() []string {
	return []string{domain.IndicatorSpeciesCount, domain.IndicatorAcousticDiversity}
}

func (t *BiodiversityTranslator) Indicators() []IndicatorSpec {
	return []IndicatorSpec{specSpeciesCount, specAcoustic, specBirdSpecies, specInsectOrders, specShannon}
}

func (t *BiodiversityTranslator) OutputRange() domain.IntensityRange {
	return t.bounds
}

func (t *BiodiversityTranslator) Translate(reading domain.Reading) (domain.FeedbackPattern, error) {
	if err := requireIndicators(t, reading); err != nil {
		return domain.FeedbackPattern{}, err
	}

	ecosystem := reading.Ecosystem
	if ecosystem == "" {
		ecosystem = t.ecosystem
	}
	bands, ok := diversityBands[ecosystem]
	if !ok {
		return domain.FeedbackPattern{}, &domain.Error{
			Kind: domain.KindIncompleteReading,
			Err:  fmt.Errorf("unknown ecosystem type %q", ecosystem),
		}
	}

	richness := t.richness(reading, bands)
	return finish(t, richnessPattern(richness, t.bounds))
}

// richness is the weighted mean health of every indicator present, 0..1.
func (t *BiodiversityTranslator) richness(reading domain.Reading, bands map[string]diversityBand) float64 {
	specs := map[string]IndicatorSpec{}
	for _, s := range t.Indicators() {
		specs[s.Name] = s
	}

	var total, weights float64
	for _, name := range diversityOrder {
		v, ok := reading.Value(name)
		if !ok {
			continue
		}
		v = specs[name].clamp(v)

		var health float64
		if name == domain.IndicatorAcousticDiversity {
			health = clamp01(v)
		} else {
			health = indicatorHealth(v, bands[name])
		}

		w := diversityWeights[name]
		total += health * w
		weights += w
	}
	if weights == 0 {
		return 0
	}
	return clamp01(total / weights)
}

// indicatorHealth rises 0..0.5 up to the low threshold and 0.5..1 up to the
// optimal band.
func indicatorHealth(v float64, band diversityBand) float64 {
	switch {
	case v >= band.optimalLow:
		return 1
	case v >= band.lowThreshold:
		return 0.5 + 0.5*(v-band.lowThreshold)/(band.optimalLow-band.lowThreshold)
	case band.lowThreshold > 0:
		return 0.5 * v / band.lowThreshold
	default:
		return 0
	}
}

func richnessPattern(r float64, bounds domain.IntensityRange) domain.FeedbackPattern {
	pulses := int(r * 10)
	if pulses < 1 {
		pulses = 1
	}
	p := domain.FeedbackPattern{
		Intensity:  bioBaseIntensity + (bounds.Max-bioBaseIntensity)*r,
		PulseCount: pulses,
	}

	switch {
	case r >= 0.8:
		p.Type = domain.PatternHarmony
		p.Rhythm = domain.RhythmSteady
		p.Duration = 3 * time.Second
		p.BodyLocation = domain.LocationWholeBody
		p.EmotionTag = "wonder"
		p.Description = "A rich, expansive symphony of sensations, like standing in a vibrant ecosystem"
	case r >= 0.5:
		p.Type = domain.PatternSimplifiedHarmony
		p.Rhythm = domain.RhythmSteady
		p.Duration = 2500 * time.Millisecond
		p.BodyLocation = domain.LocationTorsoAndArms
		p.EmotionTag = "contentment"
		p.Description = "A pleasant but simplified pattern, like a garden with fewer species"
	default:
		p.Type = domain.PatternMonotony
		p.Rhythm = domain.RhythmIntermittent
		p.Duration = 2 * time.Second
		p.BodyLocation = domain.LocationArmsOnly
		p.EmotionTag = "concern"
		if r < 0.3 {
			p.EmotionTag = "alarm"
		}
		p.Description = "A sparse, monotonous pulse signaling ecological simplification"
	}
	return p
}
