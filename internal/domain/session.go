package domain

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type SessionID string
type CircleID string
type SessionState string

const (
	StateProposed       SessionState = "proposed"
	StateScheduled      SessionState = "scheduled"
	StateOpen           SessionState = "open"
	StateDelivering     SessionState = "delivering"
	StateDelivered      SessionState = "delivered"
	StateReflectionOpen SessionState = "reflection_open"
	StateClosed         SessionState = "closed"
	StateCancelled      SessionState = "cancelled"
)

var sessionTransitions = map[SessionState][]SessionState{
	StateProposed:       {StateScheduled, StateCancelled},
	StateScheduled:      {StateOpen, StateDelivering, StateCancelled},
	StateOpen:           {StateDelivering, StateCancelled},
	StateDelivering:     {StateDelivered},
	StateDelivered:      {StateReflectionOpen, StateClosed},
	StateReflectionOpen: {StateClosed},
}

func (s SessionState) CanTransitionTo(next SessionState) bool {
	for _, allowed := range sessionTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s SessionState) Joinable() bool {
	return s == StateScheduled || s == StateOpen
}

func (s SessionState) Terminal() bool {
	return s == StateClosed || s == StateCancelled
}

// DeliveryStarted reports whether the shared experience has begun.
func (s SessionState) DeliveryStarted() bool {
	switch s {
	case StateDelivering, StateDelivered, StateReflectionOpen, StateClosed:
		return true
	default:
		return false
	}
}

type Membership struct {
	ParticipantID ParticipantID
	JoinedAt      time.Time
}

type DeliveryStatus string

const (
	DeliveryOK     DeliveryStatus = "delivered"
	DeliveryFailed DeliveryStatus = "failed"
)

type ParticipantOutcome struct {
	ParticipantID ParticipantID
	Status        DeliveryStatus
	Error         string
	Segments      []CalibratedSegment
	AttemptedAt   time.Time
}

type Delivery struct {
	Pulse       Pulse
	ReadingAt   time.Time
	Members     []ParticipantID
	Outcomes    []ParticipantOutcome
	StartedAt   time.Time
	CompletedAt time.Time
}

func (d Delivery) Failures() []ParticipantOutcome {
	var failed []ParticipantOutcome
	for _, outcome := range d.Outcomes {
		if outcome.Status == DeliveryFailed {
			failed = append(failed, outcome)
		}
	}
	return failed
}

func (d Delivery) WasMember(id ParticipantID) bool {
	for _, member := range d.Members {
		if member == id {
			return true
		}
	}
	return false
}

// SessionConfig enumerates every option accepted when scheduling a session.
// Capacity caps membership, keeping the first joiners by time; zero is
// unlimited. Calibrations override the roster calibration per participant.
type SessionConfig struct {
	Domains      []DomainID
	FocusArea    string
	ScheduledAt  time.Time
	Duration     time.Duration
	Composition  Composition
	JoinLead     time.Duration
	Capacity     int
	Calibrations map[ParticipantID]Calibration
}

func (c SessionConfig) Validate(now time.Time) error {
	if len(c.Domains) == 0 {
		return fmt.Errorf("at least one domain is required")
	}
	seen := make(map[DomainID]struct{}, len(c.Domains))
	for _, d := range c.Domains {
		if strings.TrimSpace(string(d)) == "" {
			return fmt.Errorf("domain must not be empty")
		}
		if _, ok := seen[d]; ok {
			return fmt.Errorf("domain %q listed twice", d)
		}
		seen[d] = struct{}{}
	}
	if strings.TrimSpace(c.FocusArea) == "" {
		return fmt.Errorf("focus area is required")
	}
	if c.ScheduledAt.IsZero() {
		return fmt.Errorf("scheduled time is required")
	}
	if !c.ScheduledAt.After(now) {
		return fmt.Errorf("scheduled time %s is not in the future", c.ScheduledAt.Format(time.RFC3339))
	}
	if c.Duration <= 0 {
		return fmt.Errorf("duration must be positive")
	}
	if c.JoinLead < 0 {
		return fmt.Errorf("join lead must not be negative")
	}
	if c.Capacity < 0 {
		return fmt.Errorf("capacity must not be negative")
	}
	for id, cal := range c.Calibrations {
		if err := cal.Validate(); err != nil {
			return fmt.Errorf("calibration override for %s: %w", id, err)
		}
	}
	return c.Composition.Validate(len(c.Domains))
}

type Session struct {
	ID                 SessionID
	Initiator          ParticipantID
	Domains            []DomainID
	FocusArea          string
	ScheduledAt        time.Time
	Duration           time.Duration
	JoinOpensAt        time.Time
	Composition        Composition
	Capacity           int
	Calibrations       map[ParticipantID]Calibration
	State              SessionState
	Members            map[ParticipantID]Membership
	Delivery           *Delivery
	ReflectionCircleID CircleID
	CancelReason       string
	CreatedAt          time.Time
	UpdatedAt          time.Time
	ClosedAt           time.Time
}

func NewSession(id SessionID, initiator ParticipantID, cfg SessionConfig, now time.Time) Session {
	joinOpensAt := cfg.ScheduledAt.Add(-cfg.JoinLead)
	if joinOpensAt.Before(now) {
		joinOpensAt = now
	}

	var calibrations map[ParticipantID]Calibration
	if len(cfg.Calibrations) > 0 {
		calibrations = make(map[ParticipantID]Calibration, len(cfg.Calibrations))
		for pid, cal := range cfg.Calibrations {
			calibrations[pid] = cal
		}
	}

	return Session{
		ID:           id,
		Initiator:    initiator,
		Domains:      append([]DomainID(nil), cfg.Domains...),
		FocusArea:    strings.TrimSpace(cfg.FocusArea),
		ScheduledAt:  cfg.ScheduledAt,
		Duration:     cfg.Duration,
		JoinOpensAt:  joinOpensAt,
		Composition:  cfg.Composition,
		Capacity:     cfg.Capacity,
		Calibrations: calibrations,
		State:        StateScheduled,
		Members:      map[ParticipantID]Membership{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func (s *Session) Transition(next SessionState, now time.Time) error {
	if !s.State.CanTransitionTo(next) {
		return &Error{
			Kind:      KindSessionState,
			SessionID: s.ID,
			Err:       fmt.Errorf("cannot move from %s to %s", s.State, next),
		}
	}
	s.State = next
	s.UpdatedAt = now
	if next.Terminal() {
		s.ClosedAt = now
	}
	return nil
}

// JoinWindowOpen reports whether membership may change at now. The window
// never extends past the scheduled delivery instant.
func (s Session) JoinWindowOpen(now time.Time) bool {
	return s.State.Joinable() && now.Before(s.ScheduledAt)
}

func (s Session) Due(now time.Time) bool {
	return !now.Before(s.ScheduledAt)
}

// AddMember is idempotent and reports whether the membership set changed.
func (s *Session) AddMember(id ParticipantID, now time.Time) bool {
	if s.Members == nil {
		s.Members = map[ParticipantID]Membership{}
	}
	if _, ok := s.Members[id]; ok {
		return false
	}
	s.Members[id] = Membership{ParticipantID: id, JoinedAt: now}
	s.UpdatedAt = now
	return true
}

func (s *Session) RemoveMember(id ParticipantID, now time.Time) bool {
	if _, ok := s.Members[id]; !ok {
		return false
	}
	delete(s.Members, id)
	s.UpdatedAt = now
	return true
}

// Full reports whether the session has reached its capacity.
func (s Session) Full() bool {
	return s.Capacity > 0 && len(s.Members) >= s.Capacity
}

// CalibrationFor returns the session override for id, if any.
func (s Session) CalibrationFor(id ParticipantID) (Calibration, bool) {
	cal, ok := s.Calibrations[id]
	return cal, ok
}

func (s Session) IsMember(id ParticipantID) bool {
	_, ok := s.Members[id]
	return ok
}

// MemberList orders members by join time, then id.
func (s Session) MemberList() []ParticipantID {
	members := make([]Membership, 0, len(s.Members))
	for _, m := range s.Members {
		members = append(members, m)
	}
	sort.Slice(members, func(i, j int) bool {
		if members[i].JoinedAt.Equal(members[j].JoinedAt) {
			return members[i].ParticipantID < members[j].ParticipantID
		}
		return members[i].JoinedAt.Before(members[j].JoinedAt)
	})

	ids := make([]ParticipantID, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.ParticipantID)
	}
	return ids
}

// FirstMembers returns up to n members by join order.
func (s Session) FirstMembers(n int) []ParticipantID {
	members := s.MemberList()
	if n < 0 || n >= len(members) {
		return members
	}
	return members[:n]
}

// Clone returns a deep copy so callers never share mutable state with the
// coordinator.
func (s Session) Clone() Session {
	clone := s
	clone.Domains = append([]DomainID(nil), s.Domains...)
	if s.Calibrations != nil {
		clone.Calibrations = make(map[ParticipantID]Calibration, len(s.Calibrations))
		for id, cal := range s.Calibrations {
			clone.Calibrations[id] = cal
		}
	}
	clone.Members = make(map[ParticipantID]Membership, len(s.Members))
	for id, m := range s.Members {
		clone.Members[id] = m
	}
	if s.Delivery != nil {
		d := *s.Delivery
		d.Pulse = s.Delivery.Pulse.clone()
		d.Members = append([]ParticipantID(nil), s.Delivery.Members...)
		d.Outcomes = append([]ParticipantOutcome(nil), s.Delivery.Outcomes...)
		clone.Delivery = &d
	}
	return clone
}

func (s Session) Validate() error {
	if strings.TrimSpace(string(s.ID)) == "" {
		return fmt.Errorf("session id is required")
	}
	if len(s.Domains) == 0 {
		return fmt.Errorf("session %s has no domain", s.ID)
	}
	if s.State == "" {
		return fmt.Errorf("session %s has no state", s.ID)
	}
	return nil
}
