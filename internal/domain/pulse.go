package domain

import (
	"fmt"
	"time"
)

type CompositionMode string

const (
	CompositionSingle      CompositionMode = ""
	CompositionSequential  CompositionMode = "sequential"
	CompositionInterleaved CompositionMode = "interleaved"
)

// Composition controls how patterns from several domains are combined into
// one integrated pulse.
type Composition struct {
	Mode  CompositionMode
	Gap   time.Duration
	Slice time.Duration
}

func (c Composition) Validate(domainCount int) error {
	switch c.Mode {
	case CompositionSingle:
		if domainCount > 1 {
			return fmt.Errorf("composition mode is required for %d domains", domainCount)
		}
	case CompositionSequential:
		if c.Gap < 0 {
			return fmt.Errorf("sequential gap must not be negative")
		}
	case CompositionInterleaved:
		if c.Slice <= 0 {
			return fmt.Errorf("interleaved slice must be positive")
		}
	default:
		return fmt.Errorf("unsupported composition mode %q", c.Mode)
	}
	return nil
}

// Segment is one timed emission of a pattern within a pulse.
type Segment struct {
	Index    int
	Offset   time.Duration
	Duration time.Duration
	Pattern  FeedbackPattern
}

// Pulse is the canonical translation result delivered by a session: the
// per-domain patterns in caller order and the timeline built from them.
type Pulse struct {
	Mode     CompositionMode
	Patterns []FeedbackPattern
	Segments []Segment
}

// Primary returns the first domain's pattern.
func (p Pulse) Primary() (FeedbackPattern, bool) {
	if len(p.Patterns) == 0 {
		return FeedbackPattern{}, false
	}
	return p.Patterns[0], true
}

func (p Pulse) TotalDuration() time.Duration {
	var end time.Duration
	for _, s := range p.Segments {
		if e := s.Offset + s.Duration; e > end {
			end = e
		}
	}
	return end
}

func (p Pulse) clone() Pulse {
	patterns := append([]FeedbackPattern(nil), p.Patterns...)
	segments := append([]Segment(nil), p.Segments...)
	return Pulse{Mode: p.Mode, Patterns: patterns, Segments: segments}
}
