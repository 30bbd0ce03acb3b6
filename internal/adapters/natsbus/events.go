package natsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/bnema/mycelium-pulse/internal/domain"
	"github.com/bnema/mycelium-pulse/internal/ports"
)

type eventMessage struct {
	Type          string    `json:"type"`
	SessionID     string    `json:"session_id"`
	ParticipantID string    `json:"participant_id,omitempty"`
	State         string    `json:"state"`
	Detail        string    `json:"detail,omitempty"`
	At            time.Time `json:"at"`
}

type EventPublisher struct {
	conn   Conn
	prefix string
}

var _ ports.EventPublisher = (*EventPublisher)(nil)

func NewEventPublisher(conn Conn, prefix string) *EventPublisher {
	return &EventPublisher{conn: conn, prefix: prefix}
}

func (p *EventPublisher) Publish(ctx context.Context, event domain.Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := json.Marshal(eventMessage{
		Type:          string(event.Type),
		SessionID:     string(event.SessionID),
		ParticipantID: string(event.ParticipantID),
		State:         string(event.State),
		Detail:        event.Detail,
		At:            event.At,
	})
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	if err := p.conn.Publish(subject(p.prefix, "events", string(event.Type)), data); err != nil {
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	return nil
}
