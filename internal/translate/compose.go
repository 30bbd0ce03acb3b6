package translate

import (
	"fmt"
	"time"

	"github.com/bnema/mycelium-pulse/internal/domain"
)

// maxInterleavedSegments bounds the timeline so a tiny slice cannot explode it.
const maxInterleavedSegments = 4096

// Compose builds the pulse timeline for the given patterns, kept in caller
// order. A single pattern always yields one segment at offset zero.
func Compose(patterns []domain.FeedbackPattern, composition domain.Composition) (domain.Pulse, error) {
	if len(patterns) == 0 {
		return domain.Pulse{}, fmt.Errorf("compose pulse: no patterns")
	}
	if err := composition.Validate(len(patterns)); err != nil {
		return domain.Pulse{}, fmt.Errorf("compose pulse: %w", err)
	}

	pulse := domain.Pulse{
		Mode:     composition.Mode,
		Patterns: append([]domain.FeedbackPattern(nil), patterns...),
	}

	if len(patterns) == 1 {
		pulse.Segments = []domain.Segment{{Index: 0, Duration: patterns[0].Duration, Pattern: patterns[0]}}
		return pulse, nil
	}

	switch composition.Mode {
	case domain.CompositionSequential:
		pulse.Segments = sequential(patterns, composition)
	case domain.CompositionInterleaved:
		segments, err := interleaved(patterns, composition)
		if err != nil {
			return domain.Pulse{}, err
		}
		pulse.Segments = segments
	}

	return pulse, nil
}

func sequential(patterns []domain.FeedbackPattern, composition domain.Composition) []domain.Segment {
	segments := make([]domain.Segment, 0, len(patterns))
	var offset time.Duration
	for i, p := range patterns {
		segments = append(segments, domain.Segment{Index: i, Offset: offset, Duration: p.Duration, Pattern: p})
		offset += p.Duration + composition.Gap
	}
	return segments
}

func interleaved(patterns []domain.FeedbackPattern, composition domain.Composition) ([]domain.Segment, error) {
	remaining := make([]time.Duration, len(patterns))
	for i, p := range patterns {
		remaining[i] = p.Duration
	}

	var segments []domain.Segment
	var offset time.Duration
	slice := composition.Slice

	for {
		emitted := false
		for i, p := range patterns {
			if remaining[i] <= 0 {
				continue
			}
			d := slice
			if remaining[i] < d {
				d = remaining[i]
			}
			remaining[i] -= d
			segments = append(segments, domain.Segment{
				Index:    i,
				Offset:   offset,
				Duration: d,
				Pattern:  p,
			})
			offset += d
			emitted = true
			if len(segments) > maxInterleavedSegments {
				return nil, fmt.Errorf("compose pulse: interleave slice %s yields more than %d segments", composition.Slice, maxInterleavedSegments)
			}
		}
		if !emitted {
			return segments, nil
		}
	}
}
