package application

import (
	"errors"
	"fmt"
	"time"

	"github.com/bnema/mycelium-pulse/internal/domain"
)

// SessionSnapshot is a read-only copy of a session as seen at AsOf.
type SessionSnapshot struct {
	Session        domain.Session
	Members        []domain.ParticipantID
	JoinWindowOpen bool
	AsOf           time.Time
}

// DeliveryResult summarizes one delivery. State is the delivery outcome
// (Delivered or Cancelled); SessionState is where the session ended up,
// which may already be ReflectionOpen.
type DeliveryResult struct {
	SessionID    domain.SessionID
	State        domain.SessionState
	SessionState domain.SessionState
	Pulse        domain.Pulse
	ReadingAt    time.Time
	Members      []domain.ParticipantID
	Delivered    []domain.ParticipantID
	Failures     []domain.ParticipantOutcome
	CircleID     domain.CircleID
	// Replayed is set when the session had already been delivered and the
	// stored result was returned.
	Replayed bool
}

type DeliveryPhase string

const (
	PhaseAwaitingReadings DeliveryPhase = "awaiting_readings"
	PhaseBroadcasting     DeliveryPhase = "broadcasting"
)

// DeliveryProgress is reported while a delivery runs. Attempted and Failed
// count participants once the pulse has been sent to them or given up on.
type DeliveryProgress struct {
	Phase     DeliveryPhase
	Members   int
	Attempted int
	Failed    int
}

func (r DeliveryResult) Pattern() (domain.FeedbackPattern, bool) {
	return r.Pulse.Primary()
}

// PartialFailure joins one DeliveryPartialFailure per unreachable participant,
// or returns nil when everyone received the pulse.
func (r DeliveryResult) PartialFailure() error {
	var errs []error
	for _, outcome := range r.Failures {
		errs = append(errs, &domain.Error{
			Kind:        domain.KindDeliveryPartialFailure,
			SessionID:   r.SessionID,
			Participant: outcome.ParticipantID,
			Err:         errors.New(outcome.Error),
		})
	}
	return errors.Join(errs...)
}

func resultFromSession(session domain.Session, replayed bool) DeliveryResult {
	result := DeliveryResult{
		SessionID:    session.ID,
		SessionState: session.State,
		CircleID:     session.ReflectionCircleID,
		Replayed:     replayed,
	}
	if session.Delivery == nil {
		result.State = session.State
		return result
	}

	d := session.Delivery
	result.State = domain.StateDelivered
	if session.State == domain.StateDelivering {
		result.State = domain.StateDelivering
	}
	result.Pulse = d.Pulse
	result.ReadingAt = d.ReadingAt
	result.Members = append([]domain.ParticipantID(nil), d.Members...)
	for _, outcome := range d.Outcomes {
		if outcome.Status == domain.DeliveryOK {
			result.Delivered = append(result.Delivered, outcome.ParticipantID)
			continue
		}
		result.Failures = append(result.Failures, outcome)
	}
	return result
}

type ReflectionView struct {
	Circle  domain.ReflectionCircle
	Entries []domain.ReflectionEntry
	Summary domain.ReflectionSummary
}

// TickReport counts what one Tick changed.
type TickReport struct {
	Opened    []domain.SessionID
	Delivered []domain.SessionID
	Cancelled []domain.SessionID
	Closed    []domain.SessionID
	Errors    map[domain.SessionID]error
}

func (r TickReport) Err() error {
	var errs []error
	for id, err := range r.Errors {
		errs = append(errs, fmt.Errorf("session %s: %w", id, err))
	}
	return errors.Join(errs...)
}
