package domain

import "time"

type EventType string

const (
	EventScheduled           EventType = "session.scheduled"
	EventOpened              EventType = "session.opened"
	EventJoined              EventType = "session.joined"
	EventLeft                EventType = "session.left"
	EventDelivering          EventType = "session.delivering"
	EventParticipantFailed   EventType = "session.participant_failed"
	EventDelivered           EventType = "session.delivered"
	EventCancelled           EventType = "session.cancelled"
	EventReflectionOpened    EventType = "session.reflection_opened"
	EventReflectionSubmitted EventType = "session.reflection_submitted"
	EventClosed              EventType = "session.closed"
)

type Event struct {
	Type          EventType
	SessionID     SessionID
	ParticipantID ParticipantID
	State         SessionState
	Detail        string
	At            time.Time
}
