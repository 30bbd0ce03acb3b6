package domain

import (
	"errors"
	"fmt"
	"strings"
)

type ErrorKind string

const (
	KindInvalidConfig          ErrorKind = "invalid_config"
	KindUnknownDomain          ErrorKind = "unknown_domain"
	KindIncompleteReading      ErrorKind = "incomplete_reading"
	KindSessionNotJoinable     ErrorKind = "session_not_joinable"
	KindNoData                 ErrorKind = "no_data"
	KindDeliveryPartialFailure ErrorKind = "delivery_partial_failure"
	KindSessionState           ErrorKind = "session_state"
	KindNotFound               ErrorKind = "not_found"
)

// Sentinels match any *Error of the same kind through errors.Is.
var (
	ErrInvalidConfig          = &Error{Kind: KindInvalidConfig}
	ErrUnknownDomain          = &Error{Kind: KindUnknownDomain}
	ErrIncompleteReading      = &Error{Kind: KindIncompleteReading}
	ErrSessionNotJoinable     = &Error{Kind: KindSessionNotJoinable}
	ErrNoData                 = &Error{Kind: KindNoData}
	ErrDeliveryPartialFailure = &Error{Kind: KindDeliveryPartialFailure}
	ErrSessionState           = &Error{Kind: KindSessionState}
	ErrSessionNotFound        = &Error{Kind: KindNotFound}
)

var (
	ErrReadingNotFound     = errors.New("reading not found")
	ErrParticipantNotFound = errors.New("participant not found")
	ErrCircleNotFound      = errors.New("reflection circle not found")
)

// Error carries a machine-checkable kind plus the session and participant it
// relates to, when known.
type Error struct {
	Kind        ErrorKind
	SessionID   SessionID
	Participant ParticipantID
	Err         error
}

func NewError(kind ErrorKind, sessionID SessionID, format string, args ...any) *Error {
	return &Error{Kind: kind, SessionID: sessionID, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Kind))
	if e.SessionID != "" {
		fmt.Fprintf(&b, " [session %s]", e.SessionID)
	}
	if e.Participant != "" {
		fmt.Fprintf(&b, " [participant %s]", e.Participant)
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && (t.SessionID == "" || t.SessionID == e.SessionID)
}

// Retryable reports whether nothing happened and the caller may retry as is.
// A NoData failure leaves the session cancelled and requires rescheduling.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindInvalidConfig, KindUnknownDomain, KindIncompleteReading:
		return true
	default:
		return false
	}
}

func KindOf(err error) ErrorKind {
	var target *Error
	if errors.As(err, &target) {
		return target.Kind
	}
	return ""
}

func WithSession(err error, sessionID SessionID) error {
	var target *Error
	if errors.As(err, &target) && target.SessionID == "" {
		clone := *target
		clone.SessionID = sessionID
		return &clone
	}
	return err
}
