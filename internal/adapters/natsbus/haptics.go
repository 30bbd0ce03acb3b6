package natsbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bnema/mycelium-pulse/internal/domain"
	"github.com/bnema/mycelium-pulse/internal/ports"
	"github.com/nats-io/nats.go"
	"golang.org/x/time/rate"
)

var ErrDeviceOffline = errors.New("haptic device offline")

type segmentMessage struct {
	Index      int     `json:"index"`
	OffsetMS   int64   `json:"offset_ms"`
	DurationMS int64   `json:"duration_ms"`
	Pattern    string  `json:"pattern"`
	Intensity  float64 `json:"intensity"`
	Rhythm     string  `json:"rhythm"`
	PulseCount int     `json:"pulse_count"`
	Location   string  `json:"location"`
	EmotionTag string  `json:"emotion_tag,omitempty"`
}

type payloadMessage struct {
	SessionID     string           `json:"session_id"`
	ParticipantID string           `json:"participant_id"`
	DeliverAt     time.Time        `json:"deliver_at"`
	Segments      []segmentMessage `json:"segments"`
}

type ackMessage struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

type HapticOptions struct {
	Prefix string
	// RatePerSecond caps outgoing requests across all devices; zero disables
	// the limit.
	RatePerSecond float64
	Burst         int
}

// HapticDeliverer sends each payload as a request on the participant's device
// subject and waits for the device to acknowledge it.
type HapticDeliverer struct {
	conn    Conn
	prefix  string
	limiter *rate.Limiter
}

var _ ports.HapticDeliverer = (*HapticDeliverer)(nil)

func NewHapticDeliverer(conn Conn, opts HapticOptions) *HapticDeliverer {
	limiter := rate.NewLimiter(rate.Inf, 0)
	if opts.RatePerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RatePerSecond), burst)
	}
	return &HapticDeliverer{conn: conn, prefix: opts.Prefix, limiter: limiter}
}

func (d *HapticDeliverer) Deliver(ctx context.Context, payload domain.Payload) error {
	data, err := json.Marshal(toPayloadMessage(payload))
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	if err := d.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("wait for send slot: %w", err)
	}

	reply, err := d.conn.RequestWithContext(ctx, subject(d.prefix, "haptics", token(string(payload.ParticipantID))), data)
	if errors.Is(err, nats.ErrNoResponders) {
		return ErrDeviceOffline
	}
	if err != nil {
		return fmt.Errorf("request device ack: %w", err)
	}

	var ack ackMessage
	if err := json.Unmarshal(reply.Data, &ack); err != nil {
		return fmt.Errorf("decode device ack: %w", err)
	}
	if !ack.OK {
		if ack.Error == "" {
			ack.Error = "device rejected payload"
		}
		return errors.New(ack.Error)
	}
	return nil
}

func toPayloadMessage(payload domain.Payload) payloadMessage {
	msg := payloadMessage{
		SessionID:     string(payload.SessionID),
		ParticipantID: string(payload.ParticipantID),
		DeliverAt:     payload.DeliverAt,
		Segments:      make([]segmentMessage, 0, len(payload.Segments)),
	}
	for _, s := range payload.Segments {
		msg.Segments = append(msg.Segments, segmentMessage{
			Index:      s.Index,
			OffsetMS:   s.Offset.Milliseconds(),
			DurationMS: s.Duration.Milliseconds(),
			Pattern:    string(s.Pattern.Type),
			Intensity:  s.Pattern.Intensity,
			Rhythm:     string(s.Pattern.Rhythm),
			PulseCount: s.Pattern.PulseCount,
			Location:   string(s.ActuatorLocation),
			EmotionTag: s.Pattern.EmotionTag,
		})
	}
	return msg
}
