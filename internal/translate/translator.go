// Package translate turns ecological readings into haptic feedback patterns.
//
// Translators are pure: the same reading always yields the same pattern and
// no state is carried between calls.
package translate

import (
	"fmt"
	"math"
	"strings"

	"github.com/bnema/mycelium-pulse/internal/domain"
)

type Translator interface {
	Domain() domain.DomainID
	RequiredIndicators() []string
	OutputRange() domain.IntensityRange
	Translate(reading domain.Reading) (domain.FeedbackPattern, error)
}

func requireIndicators(t Translator, reading domain.Reading) error {
	if reading.Domain != "" && reading.Domain != t.Domain() {
		return &domain.Error{
			Kind: domain.KindIncompleteReading,
			Err:  fmt.Errorf("reading for domain %q given to %q translator", reading.Domain, t.Domain()),
		}
	}
	if missing := reading.Missing(t.RequiredIndicators()); len(missing) > 0 {
		return &domain.Error{
			Kind: domain.KindIncompleteReading,
			Err:  fmt.Errorf("%s reading missing %s", t.Domain(), strings.Join(missing, ", ")),
		}
	}
	return nil
}

// finish clamps and validates the pattern against the translator's declared range.
func finish(t Translator, p domain.FeedbackPattern) (domain.FeedbackPattern, error) {
	bounds := t.OutputRange()
	p.Domain = t.Domain()
	p.Intensity = roundTo(bounds.Clamp(p.Intensity), 3)
	if p.PulseCount < 0 {
		p.PulseCount = 0
	}
	if err := p.Validate(bounds); err != nil {
		return domain.FeedbackPattern{}, fmt.Errorf("%s translator produced invalid pattern: %w", t.Domain(), err)
	}
	return p, nil
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Min(1, math.Max(0, v))
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
