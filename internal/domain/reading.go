package domain

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"
)

type DomainID string

const (
	DomainWaterStress  DomainID = "water_stress"
	DomainBiodiversity DomainID = "biodiversity"
)

const (
	IndicatorSoilMoisture         = "soil_moisture"
	IndicatorPrecipitationDeficit = "precipitation_deficit"
	IndicatorStreamFlow           = "stream_flow"
	IndicatorLeafWaterPotential   = "leaf_water_potential"
	IndicatorSpeciesCount         = "species_count"
	IndicatorAcousticDiversity    = "acoustic_diversity"
	IndicatorBirdSpecies          = "bird_species"
	IndicatorInsectOrders         = "insect_orders"
	IndicatorShannonIndex         = "shannon_index"
)

type Measurement struct {
	Value float64
	Unit  string
}

// Reading is an immutable set of measurements captured for one domain and
// focus area. Build it with NewReading.
type Reading struct {
	Domain     DomainID
	FocusArea  string
	Ecosystem  string
	CapturedAt time.Time
	indicators map[string]Measurement
}

func NewReading(domainID DomainID, focusArea string, capturedAt time.Time, indicators map[string]Measurement) Reading {
	copied := make(map[string]Measurement, len(indicators))
	for name, m := range indicators {
		copied[strings.TrimSpace(name)] = m
	}

	return Reading{
		Domain:     domainID,
		FocusArea:  focusArea,
		CapturedAt: capturedAt,
		indicators: copied,
	}
}

// WithEcosystem returns a copy tagged with the given ecosystem type.
func (r Reading) WithEcosystem(ecosystem string) Reading {
	r.Ecosystem = strings.TrimSpace(ecosystem)
	return r
}

// Value returns the indicator value. NaN counts as absent.
func (r Reading) Value(name string) (float64, bool) {
	m, ok := r.indicators[name]
	if !ok || math.IsNaN(m.Value) {
		return 0, false
	}
	return m.Value, true
}

func (r Reading) Measurement(name string) (Measurement, bool) {
	m, ok := r.indicators[name]
	return m, ok
}

func (r Reading) Indicators() map[string]Measurement {
	copied := make(map[string]Measurement, len(r.indicators))
	for name, m := range r.indicators {
		copied[name] = m
	}
	return copied
}

func (r Reading) IndicatorNames() []string {
	names := make([]string, 0, len(r.indicators))
	for name := range r.indicators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Missing lists the required indicators that are absent or NaN, in the order given.
func (r Reading) Missing(required []string) []string {
	var missing []string
	for _, name := range required {
		if _, ok := r.Value(name); !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

func (r Reading) Age(now time.Time) time.Duration {
	return now.Sub(r.CapturedAt)
}

// IsFresh reports whether the reading is no older than maxAge at now.
// A non-positive maxAge accepts any age.
func (r Reading) IsFresh(now time.Time, maxAge time.Duration) bool {
	if maxAge <= 0 {
		return true
	}
	return r.Age(now) <= maxAge
}

func (r Reading) Validate() error {
	if strings.TrimSpace(string(r.Domain)) == "" {
		return fmt.Errorf("domain is required")
	}
	if r.CapturedAt.IsZero() {
		return fmt.Errorf("captured_at is required")
	}
	if len(r.indicators) == 0 {
		return fmt.Errorf("at least one indicator is required")
	}
	return nil
}

// Label returns a display name; unknown domains return the raw id.
func (d DomainID) Label() string {
	switch d {
	case DomainWaterStress:
		return "Water Health"
	case DomainBiodiversity:
		return "Biodiversity"
	case "soil_health":
		return "Soil Vitality"
	case "air_quality":
		return "Air Quality"
	default:
		return string(d)
	}
}
