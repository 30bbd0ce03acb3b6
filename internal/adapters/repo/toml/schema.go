package toml

import (
	"sort"

	"github.com/bnema/mycelium-pulse/internal/domain"
)

const sessionsLabel = "sessions"

type sessionsFileSchema struct {
	Version  int             `toml:"version"`
	Sessions []sessionSchema `toml:"sessions"`
}

func (s *sessionsFileSchema) applyDefaults() {
	if s.Version == 0 {
		s.Version = currentSchemaVersion
	}
}

type sessionSchema struct {
	ID                 string                      `toml:"id"`
	Initiator          string                      `toml:"initiator"`
	Domains            []string                    `toml:"domains"`
	FocusArea          string                      `toml:"focus_area"`
	ScheduledAt        string                      `toml:"scheduled_at"`
	Duration           string                      `toml:"duration"`
	JoinOpensAt        string                      `toml:"join_opens_at"`
	Composition        compositionSchema           `toml:"composition,omitempty"`
	Capacity           int                         `toml:"capacity,omitempty"`
	Calibrations       []calibrationOverrideSchema `toml:"calibrations,omitempty"`
	State              string                      `toml:"state"`
	Members            []memberSchema              `toml:"members,omitempty"`
	Delivery           *deliverySchema             `toml:"delivery,omitempty"`
	ReflectionCircleID string                      `toml:"reflection_circle_id,omitempty"`
	CancelReason       string                      `toml:"cancel_reason,omitempty"`
	CreatedAt          string                      `toml:"created_at"`
	UpdatedAt          string                      `toml:"updated_at"`
	ClosedAt           string                      `toml:"closed_at,omitempty"`
}

type compositionSchema struct {
	Mode  string `toml:"mode,omitempty"`
	Gap   string `toml:"gap,omitempty"`
	Slice string `toml:"slice,omitempty"`
}

type calibrationSchema struct {
	IntensityScale float64           `toml:"intensity_scale,omitempty"`
	DurationScale  float64           `toml:"duration_scale,omitempty"`
	MaxIntensity   float64           `toml:"max_intensity,omitempty"`
	LocationMap    map[string]string `toml:"location_map,omitempty"`
}

type calibrationOverrideSchema struct {
	ParticipantID string            `toml:"participant_id"`
	Calibration   calibrationSchema `toml:"calibration"`
}

type memberSchema struct {
	ParticipantID string `toml:"participant_id"`
	JoinedAt      string `toml:"joined_at"`
}

type deliverySchema struct {
	Mode        string          `toml:"mode,omitempty"`
	Patterns    []patternSchema `toml:"patterns"`
	Segments    []segmentSchema `toml:"segments"`
	ReadingAt   string          `toml:"reading_at"`
	Members     []string        `toml:"members"`
	Outcomes    []outcomeSchema `toml:"outcomes,omitempty"`
	StartedAt   string          `toml:"started_at"`
	CompletedAt string          `toml:"completed_at,omitempty"`
}

type patternSchema struct {
	Domain       string  `toml:"domain"`
	Type         string  `toml:"type"`
	Intensity    float64 `toml:"intensity"`
	Rhythm       string  `toml:"rhythm"`
	PulseCount   int     `toml:"pulse_count"`
	Duration     string  `toml:"duration"`
	BodyLocation string  `toml:"body_location"`
	EmotionTag   string  `toml:"emotion_tag"`
	Description  string  `toml:"description,omitempty"`
}

type segmentSchema struct {
	Index            int           `toml:"index"`
	Offset           string        `toml:"offset,omitempty"`
	Duration         string        `toml:"duration"`
	Pattern          patternSchema `toml:"pattern"`
	ActuatorLocation string        `toml:"actuator_location,omitempty"`
}

type outcomeSchema struct {
	ParticipantID string          `toml:"participant_id"`
	Status        string          `toml:"status"`
	Error         string          `toml:"error,omitempty"`
	AttemptedAt   string          `toml:"attempted_at"`
	Segments      []segmentSchema `toml:"segments,omitempty"`
}

func toSessionSchema(session domain.Session) sessionSchema {
	encoded := sessionSchema{
		ID:          string(session.ID),
		Initiator:   string(session.Initiator),
		FocusArea:   session.FocusArea,
		ScheduledAt: formatTime(session.ScheduledAt),
		Duration:    formatDuration(session.Duration),
		JoinOpensAt: formatTime(session.JoinOpensAt),
		Composition: compositionSchema{
			Mode:  string(session.Composition.Mode),
			Gap:   formatDuration(session.Composition.Gap),
			Slice: formatDuration(session.Composition.Slice),
		},
		Capacity:           session.Capacity,
		State:              string(session.State),
		ReflectionCircleID: string(session.ReflectionCircleID),
		CancelReason:       session.CancelReason,
		CreatedAt:          formatTime(session.CreatedAt),
		UpdatedAt:          formatTime(session.UpdatedAt),
		ClosedAt:           formatTime(session.ClosedAt),
	}

	for _, d := range session.Domains {
		encoded.Domains = append(encoded.Domains, string(d))
	}
	for id, cal := range session.Calibrations {
		encoded.Calibrations = append(encoded.Calibrations, calibrationOverrideSchema{
			ParticipantID: string(id),
			Calibration:   toCalibrationSchema(cal),
		})
	}
	sortCalibrations(encoded.Calibrations)

	// Members are written in join order so the file reads chronologically.
	for _, id := range session.MemberList() {
		m := session.Members[id]
		encoded.Members = append(encoded.Members, memberSchema{
			ParticipantID: string(m.ParticipantID),
			JoinedAt:      formatTime(m.JoinedAt),
		})
	}

	if session.Delivery != nil {
		encoded.Delivery = toDeliverySchema(*session.Delivery)
	}

	return encoded
}

func fromSessionSchema(encoded sessionSchema) domain.Session {
	session := domain.Session{
		ID:          domain.SessionID(encoded.ID),
		Initiator:   domain.ParticipantID(encoded.Initiator),
		FocusArea:   encoded.FocusArea,
		ScheduledAt: parseTime(encoded.ScheduledAt),
		Duration:    parseDuration(encoded.Duration),
		JoinOpensAt: parseTime(encoded.JoinOpensAt),
		Composition: domain.Composition{
			Mode:  domain.CompositionMode(encoded.Composition.Mode),
			Gap:   parseDuration(encoded.Composition.Gap),
			Slice: parseDuration(encoded.Composition.Slice),
		},
		Capacity:           encoded.Capacity,
		State:              domain.SessionState(encoded.State),
		Members:            make(map[domain.ParticipantID]domain.Membership, len(encoded.Members)),
		ReflectionCircleID: domain.CircleID(encoded.ReflectionCircleID),
		CancelReason:       encoded.CancelReason,
		CreatedAt:          parseTime(encoded.CreatedAt),
		UpdatedAt:          parseTime(encoded.UpdatedAt),
		ClosedAt:           parseTime(encoded.ClosedAt),
	}

	for _, d := range encoded.Domains {
		session.Domains = append(session.Domains, domain.DomainID(d))
	}
	if len(encoded.Calibrations) > 0 {
		session.Calibrations = make(map[domain.ParticipantID]domain.Calibration, len(encoded.Calibrations))
		for _, override := range encoded.Calibrations {
			session.Calibrations[domain.ParticipantID(override.ParticipantID)] = fromCalibrationSchema(override.Calibration)
		}
	}
	for _, m := range encoded.Members {
		id := domain.ParticipantID(m.ParticipantID)
		session.Members[id] = domain.Membership{ParticipantID: id, JoinedAt: parseTime(m.JoinedAt)}
	}
	if encoded.Delivery != nil {
		delivery := fromDeliverySchema(*encoded.Delivery)
		session.Delivery = &delivery
	}

	return session
}

func toDeliverySchema(delivery domain.Delivery) *deliverySchema {
	encoded := &deliverySchema{
		Mode:        string(delivery.Pulse.Mode),
		ReadingAt:   formatTime(delivery.ReadingAt),
		StartedAt:   formatTime(delivery.StartedAt),
		CompletedAt: formatTime(delivery.CompletedAt),
	}
	for _, p := range delivery.Pulse.Patterns {
		encoded.Patterns = append(encoded.Patterns, toPatternSchema(p))
	}
	for _, s := range delivery.Pulse.Segments {
		encoded.Segments = append(encoded.Segments, segmentSchema{
			Index:    s.Index,
			Offset:   formatDuration(s.Offset),
			Duration: formatDuration(s.Duration),
			Pattern:  toPatternSchema(s.Pattern),
		})
	}
	for _, id := range delivery.Members {
		encoded.Members = append(encoded.Members, string(id))
	}
	for _, o := range delivery.Outcomes {
		outcome := outcomeSchema{
			ParticipantID: string(o.ParticipantID),
			Status:        string(o.Status),
			Error:         o.Error,
			AttemptedAt:   formatTime(o.AttemptedAt),
		}
		for _, s := range o.Segments {
			outcome.Segments = append(outcome.Segments, segmentSchema{
				Index:            s.Index,
				Offset:           formatDuration(s.Offset),
				Duration:         formatDuration(s.Duration),
				Pattern:          toPatternSchema(s.Pattern),
				ActuatorLocation: string(s.ActuatorLocation),
			})
		}
		encoded.Outcomes = append(encoded.Outcomes, outcome)
	}
	return encoded
}

func fromDeliverySchema(encoded deliverySchema) domain.Delivery {
	delivery := domain.Delivery{
		Pulse:       domain.Pulse{Mode: domain.CompositionMode(encoded.Mode)},
		ReadingAt:   parseTime(encoded.ReadingAt),
		StartedAt:   parseTime(encoded.StartedAt),
		CompletedAt: parseTime(encoded.CompletedAt),
	}
	for _, p := range encoded.Patterns {
		delivery.Pulse.Patterns = append(delivery.Pulse.Patterns, fromPatternSchema(p))
	}
	for _, s := range encoded.Segments {
		delivery.Pulse.Segments = append(delivery.Pulse.Segments, domain.Segment{
			Index:    s.Index,
			Offset:   parseDuration(s.Offset),
			Duration: parseDuration(s.Duration),
			Pattern:  fromPatternSchema(s.Pattern),
		})
	}
	for _, id := range encoded.Members {
		delivery.Members = append(delivery.Members, domain.ParticipantID(id))
	}
	for _, o := range encoded.Outcomes {
		outcome := domain.ParticipantOutcome{
			ParticipantID: domain.ParticipantID(o.ParticipantID),
			Status:        domain.DeliveryStatus(o.Status),
			Error:         o.Error,
			AttemptedAt:   parseTime(o.AttemptedAt),
		}
		for _, s := range o.Segments {
			outcome.Segments = append(outcome.Segments, domain.CalibratedSegment{
				Index:            s.Index,
				Offset:           parseDuration(s.Offset),
				Duration:         parseDuration(s.Duration),
				Pattern:          fromPatternSchema(s.Pattern),
				ActuatorLocation: domain.BodyLocation(s.ActuatorLocation),
			})
		}
		delivery.Outcomes = append(delivery.Outcomes, outcome)
	}
	return delivery
}

func toPatternSchema(p domain.FeedbackPattern) patternSchema {
	return patternSchema{
		Domain:       string(p.Domain),
		Type:         string(p.Type),
		Intensity:    p.Intensity,
		Rhythm:       string(p.Rhythm),
		PulseCount:   p.PulseCount,
		Duration:     formatDuration(p.Duration),
		BodyLocation: string(p.BodyLocation),
		EmotionTag:   p.EmotionTag,
		Description:  p.Description,
	}
}

func fromPatternSchema(p patternSchema) domain.FeedbackPattern {
	return domain.FeedbackPattern{
		Domain:       domain.DomainID(p.Domain),
		Type:         domain.PatternType(p.Type),
		Intensity:    p.Intensity,
		Rhythm:       domain.Rhythm(p.Rhythm),
		PulseCount:   p.PulseCount,
		Duration:     parseDuration(p.Duration),
		BodyLocation: domain.BodyLocation(p.BodyLocation),
		EmotionTag:   p.EmotionTag,
		Description:  p.Description,
	}
}

func toCalibrationSchema(cal domain.Calibration) calibrationSchema {
	encoded := calibrationSchema{
		IntensityScale: cal.IntensityScale,
		DurationScale:  cal.DurationScale,
		MaxIntensity:   cal.MaxIntensity,
	}
	if len(cal.LocationMap) > 0 {
		encoded.LocationMap = make(map[string]string, len(cal.LocationMap))
		for from, to := range cal.LocationMap {
			encoded.LocationMap[string(from)] = string(to)
		}
	}
	return encoded
}

func fromCalibrationSchema(encoded calibrationSchema) domain.Calibration {
	cal := domain.Calibration{
		IntensityScale: encoded.IntensityScale,
		DurationScale:  encoded.DurationScale,
		MaxIntensity:   encoded.MaxIntensity,
	}
	if len(encoded.LocationMap) > 0 {
		cal.LocationMap = make(map[domain.BodyLocation]domain.BodyLocation, len(encoded.LocationMap))
		for from, to := range encoded.LocationMap {
			cal.LocationMap[domain.BodyLocation(from)] = domain.BodyLocation(to)
		}
	}
	return cal
}

func sortCalibrations(overrides []calibrationOverrideSchema) {
	sort.Slice(overrides, func(i, j int) bool {
		return overrides[i].ParticipantID < overrides[j].ParticipantID
	})
}
