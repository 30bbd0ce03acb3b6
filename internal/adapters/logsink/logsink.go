// Package logsink writes haptic payloads and session events to a structured
// logger. It stands in for devices and the event bus when NATS is not
// configured.
package logsink

import (
	"context"
	"log/slog"

	"github.com/bnema/mycelium-pulse/internal/domain"
	"github.com/bnema/mycelium-pulse/internal/ports"
)

type HapticSink struct {
	logger *slog.Logger
}

var _ ports.HapticDeliverer = (*HapticSink)(nil)

func NewHapticSink(logger *slog.Logger) *HapticSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &HapticSink{logger: logger.With("component", "haptics")}
}

func (s *HapticSink) Deliver(ctx context.Context, payload domain.Payload) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, seg := range payload.Segments {
		s.logger.InfoContext(ctx, "haptic segment",
			"session_id", payload.SessionID,
			"participant_id", payload.ParticipantID,
			"deliver_at", payload.DeliverAt,
			"index", seg.Index,
			"offset", seg.Offset,
			"duration", seg.Duration,
			"pattern", seg.Pattern.Type,
			"intensity", seg.Pattern.Intensity,
			"rhythm", seg.Pattern.Rhythm,
			"pulses", seg.Pattern.PulseCount,
			"location", seg.ActuatorLocation,
		)
	}
	return nil
}

type EventSink struct {
	logger *slog.Logger
}

var _ ports.EventPublisher = (*EventSink)(nil)

func NewEventSink(logger *slog.Logger) *EventSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &EventSink{logger: logger.With("component", "events")}
}

func (s *EventSink) Publish(ctx context.Context, event domain.Event) error {
	attrs := []any{
		"event", event.Type,
		"session_id", event.SessionID,
		"state", event.State,
		"at", event.At,
	}
	if event.ParticipantID != "" {
		attrs = append(attrs, "participant_id", event.ParticipantID)
	}
	if event.Detail != "" {
		attrs = append(attrs, "detail", event.Detail)
	}
	s.logger.DebugContext(ctx, "session event", attrs...)
	return nil
}
