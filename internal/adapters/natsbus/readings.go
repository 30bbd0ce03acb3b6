package natsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/bnema/mycelium-pulse/internal/domain"
	"github.com/bnema/mycelium-pulse/internal/ports"
	"github.com/nats-io/nats.go"
)

type measurementMessage struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

type readingMessage struct {
	Domain     string                        `json:"domain"`
	FocusArea  string                        `json:"focus_area"`
	Ecosystem  string                        `json:"ecosystem,omitempty"`
	CapturedAt time.Time                     `json:"captured_at"`
	Indicators map[string]measurementMessage `json:"indicators"`
}

type areaKey struct {
	domain    domain.DomainID
	focusArea string
}

// keyFor matches focus areas case-insensitively, ignoring surrounding space.
func keyFor(domainID domain.DomainID, focusArea string) areaKey {
	return areaKey{domain: domainID, focusArea: strings.ToLower(strings.TrimSpace(focusArea))}
}

// ReadingFeed caches the newest reading seen per domain and focus area.
type ReadingFeed struct {
	conn   Conn
	prefix string
	clock  ports.Clock
	logger *slog.Logger

	mu     sync.RWMutex
	latest map[areaKey]domain.Reading
	sub    *nats.Subscription
}

var _ ports.ReadingSource = (*ReadingFeed)(nil)

func NewReadingFeed(conn Conn, prefix string, clock ports.Clock, logger *slog.Logger) *ReadingFeed {
	if clock == nil {
		clock = ports.SystemClock{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReadingFeed{
		conn:   conn,
		prefix: prefix,
		clock:  clock,
		logger: logger.With("component", "nats_readings"),
		latest: map[areaKey]domain.Reading{},
	}
}

// Start subscribes to every domain's reading subject.
func (f *ReadingFeed) Start() error {
	sub, err := f.conn.Subscribe(subject(f.prefix, "readings", ">"), f.handle)
	if err != nil {
		return fmt.Errorf("subscribe to readings: %w", err)
	}
	f.mu.Lock()
	f.sub = sub
	f.mu.Unlock()
	return nil
}

func (f *ReadingFeed) Close() error {
	f.mu.Lock()
	sub := f.sub
	f.sub = nil
	f.mu.Unlock()
	if sub == nil {
		return nil
	}
	return sub.Unsubscribe()
}

func (f *ReadingFeed) handle(msg *nats.Msg) {
	reading, err := decodeReading(msg.Data)
	if err != nil {
		f.logger.Warn("dropping malformed reading", "subject", msg.Subject, "error", err)
		return
	}

	key := keyFor(reading.Domain, reading.FocusArea)

	f.mu.Lock()
	defer f.mu.Unlock()
	if current, ok := f.latest[key]; ok && !reading.CapturedAt.After(current.CapturedAt) {
		return
	}
	f.latest[key] = reading
}

func (f *ReadingFeed) LatestReading(ctx context.Context, domainID domain.DomainID, focusArea string, maxAge time.Duration) (domain.Reading, error) {
	if err := ctx.Err(); err != nil {
		return domain.Reading{}, err
	}

	f.mu.RLock()
	reading, ok := f.latest[keyFor(domainID, focusArea)]
	f.mu.RUnlock()

	if !ok || !reading.IsFresh(f.clock.Now(), maxAge) {
		return domain.Reading{}, domain.ErrReadingNotFound
	}
	return reading, nil
}

// PublishReading sends a reading onto the feed subject for its domain.
func PublishReading(conn Conn, prefix string, reading domain.Reading) error {
	if err := reading.Validate(); err != nil {
		return fmt.Errorf("validate reading: %w", err)
	}

	msg := readingMessage{
		Domain:     string(reading.Domain),
		FocusArea:  reading.FocusArea,
		Ecosystem:  reading.Ecosystem,
		CapturedAt: reading.CapturedAt,
		Indicators: make(map[string]measurementMessage),
	}
	for name, m := range reading.Indicators() {
		msg.Indicators[name] = measurementMessage{Value: m.Value, Unit: m.Unit}
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode reading: %w", err)
	}
	return conn.Publish(subject(prefix, "readings", token(string(reading.Domain))), data)
}

func decodeReading(data []byte) (domain.Reading, error) {
	var msg readingMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return domain.Reading{}, fmt.Errorf("decode reading: %w", err)
	}

	indicators := make(map[string]domain.Measurement, len(msg.Indicators))
	for name, m := range msg.Indicators {
		indicators[name] = domain.Measurement{Value: m.Value, Unit: m.Unit}
	}
	reading := domain.NewReading(domain.DomainID(msg.Domain), strings.TrimSpace(msg.FocusArea), msg.CapturedAt, indicators)
	if msg.Ecosystem != "" {
		reading = reading.WithEcosystem(msg.Ecosystem)
	}
	if err := reading.Validate(); err != nil {
		return domain.Reading{}, err
	}
	return reading, nil
}
