package toml

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bnema/mycelium-pulse/internal/domain"
	"github.com/bnema/mycelium-pulse/internal/ports"
	"github.com/spf13/viper"
)

const (
	ReadingsPathKey  = "readings.path"
	readingsFileName = "readings.toml"
	readingsLabel    = "readings"

	// maxReadingsPerArea bounds the history kept per domain and focus area.
	maxReadingsPerArea = 32
)

type readingsFileSchema struct {
	Version  int             `toml:"version"`
	Readings []readingSchema `toml:"readings"`
}

type readingSchema struct {
	Domain     string            `toml:"domain"`
	FocusArea  string            `toml:"focus_area"`
	Ecosystem  string            `toml:"ecosystem,omitempty"`
	CapturedAt string            `toml:"captured_at"`
	Indicators []indicatorSchema `toml:"indicators"`
}

type indicatorSchema struct {
	Name  string  `toml:"name"`
	Value float64 `toml:"value"`
	Unit  string  `toml:"unit,omitempty"`
}

// ReadingFeed is a file-backed reading source. Readings are recorded by
// field tooling or the CLI and served newest first.
type ReadingFeed struct {
	path  string
	mu    *sync.RWMutex
	clock ports.Clock
}

var _ ports.ReadingSource = (*ReadingFeed)(nil)

func NewReadingFeed(cfg *viper.Viper) (*ReadingFeed, error) {
	path, err := resolvePath(cfg, ReadingsPathKey, readingsFileName)
	if err != nil {
		return nil, err
	}

	return &ReadingFeed{path: path, mu: lockForPath(path), clock: ports.SystemClock{}}, nil
}

// WithClock sets the clock used to judge freshness.
func (f *ReadingFeed) WithClock(clock ports.Clock) *ReadingFeed {
	if clock != nil {
		f.clock = clock
	}
	return f
}

func (f *ReadingFeed) Record(ctx context.Context, reading domain.Reading) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := reading.Validate(); err != nil {
		return fmt.Errorf("validate reading: %w", err)
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	return withFileLock(ctx, f.path, func() error {
		return f.record(reading)
	})
}

func (f *ReadingFeed) record(reading domain.Reading) error {
	file, err := f.readSchema()
	if err != nil {
		return err
	}

	file.Readings = append(file.Readings, toReadingSchema(reading))
	file.Readings = trimReadings(file.Readings, reading.Domain, reading.FocusArea)
	if file.Version == 0 {
		file.Version = currentSchemaVersion
	}

	return writeTOMLFile(f.path, readingsLabel, file)
}

func (f *ReadingFeed) LatestReading(ctx context.Context, domainID domain.DomainID, focusArea string, maxAge time.Duration) (domain.Reading, error) {
	if err := ctx.Err(); err != nil {
		return domain.Reading{}, err
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	file, err := f.readSchema()
	if err != nil {
		return domain.Reading{}, err
	}

	var (
		latest domain.Reading
		found  bool
	)
	for _, entry := range file.Readings {
		if !matchesArea(entry, domainID, focusArea) {
			continue
		}
		reading := fromReadingSchema(entry)
		if !found || reading.CapturedAt.After(latest.CapturedAt) {
			latest, found = reading, true
		}
	}

	if !found || (maxAge > 0 && !latest.IsFresh(f.clock.Now(), maxAge)) {
		return domain.Reading{}, domain.ErrReadingNotFound
	}
	return latest, nil
}

func (f *ReadingFeed) readSchema() (readingsFileSchema, error) {
	var file readingsFileSchema
	if err := readTOMLFile(f.path, readingsLabel, &file); err != nil {
		return readingsFileSchema{}, err
	}
	if err := validateVersion(file.Version, readingsLabel); err != nil {
		return readingsFileSchema{}, err
	}
	return file, nil
}

func matchesArea(entry readingSchema, domainID domain.DomainID, focusArea string) bool {
	return entry.Domain == string(domainID) && strings.EqualFold(entry.FocusArea, focusArea)
}

// trimReadings drops the oldest entries for one area once it exceeds
// maxReadingsPerArea. Entries are appended in recording order.
func trimReadings(readings []readingSchema, domainID domain.DomainID, focusArea string) []readingSchema {
	count := 0
	for _, entry := range readings {
		if matchesArea(entry, domainID, focusArea) {
			count++
		}
	}
	drop := count - maxReadingsPerArea
	if drop <= 0 {
		return readings
	}

	kept := readings[:0]
	for _, entry := range readings {
		if drop > 0 && matchesArea(entry, domainID, focusArea) {
			drop--
			continue
		}
		kept = append(kept, entry)
	}
	return kept
}

func toReadingSchema(reading domain.Reading) readingSchema {
	encoded := readingSchema{
		Domain:     string(reading.Domain),
		FocusArea:  reading.FocusArea,
		Ecosystem:  reading.Ecosystem,
		CapturedAt: formatTime(reading.CapturedAt),
	}
	for _, name := range reading.IndicatorNames() {
		m, _ := reading.Measurement(name)
		encoded.Indicators = append(encoded.Indicators, indicatorSchema{Name: name, Value: m.Value, Unit: m.Unit})
	}
	return encoded
}

func fromReadingSchema(entry readingSchema) domain.Reading {
	indicators := make(map[string]domain.Measurement, len(entry.Indicators))
	for _, ind := range entry.Indicators {
		indicators[ind.Name] = domain.Measurement{Value: ind.Value, Unit: ind.Unit}
	}
	reading := domain.NewReading(domain.DomainID(entry.Domain), entry.FocusArea, parseTime(entry.CapturedAt), indicators)
	if entry.Ecosystem != "" {
		reading = reading.WithEcosystem(entry.Ecosystem)
	}
	return reading
}
