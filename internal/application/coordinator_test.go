package application

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/bnema/mycelium-pulse/internal/adapters/repo/memory"
	"github.com/bnema/mycelium-pulse/internal/domain"
	"github.com/bnema/mycelium-pulse/internal/ports/mocks"
	"github.com/bnema/mycelium-pulse/internal/translate"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 6, 21, 5, 30, 0, 0, time.UTC)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Set(now time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = now
}

type inMemoryRoster struct {
	participants map[domain.ParticipantID]domain.Participant
}

func (r *inMemoryRoster) IsRegistered(_ context.Context, id domain.ParticipantID) (bool, error) {
	_, ok := r.participants[id]
	return ok, nil
}

func (r *inMemoryRoster) Participant(_ context.Context, id domain.ParticipantID) (domain.Participant, error) {
	p, ok := r.participants[id]
	if !ok {
		return domain.Participant{}, domain.ErrParticipantNotFound
	}
	return p, nil
}

type inMemoryReadings struct {
	mu       sync.Mutex
	readings map[string]domain.Reading
	calls    int
}

func (r *inMemoryReadings) Put(reading domain.Reading) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.readings == nil {
		r.readings = map[string]domain.Reading{}
	}
	r.readings[string(reading.Domain)+"|"+reading.FocusArea] = reading
}

func (r *inMemoryReadings) LatestReading(_ context.Context, d domain.DomainID, focusArea string, _ time.Duration) (domain.Reading, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	reading, ok := r.readings[string(d)+"|"+focusArea]
	if !ok {
		return domain.Reading{}, domain.ErrReadingNotFound
	}
	return reading, nil
}

type recordingHaptics struct {
	mu       sync.Mutex
	payloads []domain.Payload
	offline  map[domain.ParticipantID]bool
}

func (h *recordingHaptics) Deliver(_ context.Context, payload domain.Payload) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.offline[payload.ParticipantID] {
		return errors.New("device offline")
	}
	h.payloads = append(h.payloads, payload)
	return nil
}

func (h *recordingHaptics) Payloads() []domain.Payload {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.Payload(nil), h.payloads...)
}

type harness struct {
	coord       *Coordinator
	clock       *manualClock
	sessions    *memory.SessionRepository
	reflections *memory.ReflectionStore
	readings    *inMemoryReadings
	haptics     *recordingHaptics
	roster      *inMemoryRoster
}

func testOptions() CoordinatorOptions {
	opts := DefaultCoordinatorOptions()
	opts.PollInterval = 2 * time.Millisecond
	opts.ReadingTimeout = 20 * time.Millisecond
	opts.DeliveryTimeout = time.Second
	opts.AutoOpenReflection = false
	return opts
}

func newHarness(t *testing.T, opts CoordinatorOptions) *harness {
	t.Helper()

	registry, err := translate.NewDefaultRegistry(translate.DefaultOptions{})
	require.NoError(t, err)

	h := &harness{
		clock:       &manualClock{now: t0},
		sessions:    memory.NewSessionRepository(),
		reflections: memory.NewReflectionStore(),
		readings:    &inMemoryReadings{},
		haptics:     &recordingHaptics{offline: map[domain.ParticipantID]bool{}},
		roster: &inMemoryRoster{participants: map[domain.ParticipantID]domain.Participant{
			"kai":   {ID: "kai"},
			"lani":  {ID: "lani"},
			"makoa": {ID: "makoa"},
			"noe":   {ID: "noe"},
		}},
	}

	var seq int
	var seqMu sync.Mutex
	coord, err := NewCoordinator(CoordinatorDeps{
		Sessions:    h.sessions,
		Reflections: h.reflections,
		Readings:    h.readings,
		Roster:      h.roster,
		Haptics:     h.haptics,
		Registry:    registry,
		Clock:       h.clock,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		NewID: func() string {
			seqMu.Lock()
			defer seqMu.Unlock()
			seq++
			return fmt.Sprintf("id-%d", seq)
		},
	}, opts)
	require.NoError(t, err)
	h.coord = coord

	return h
}

func (h *harness) schedule(t *testing.T, domains ...domain.DomainID) domain.SessionID {
	t.Helper()
	cfg := domain.SessionConfig{
		Domains:     domains,
		FocusArea:   "main-channel",
		ScheduledAt: t0.Add(2 * time.Minute),
		Duration:    600 * time.Second,
	}
	if len(domains) > 1 {
		cfg.Composition = domain.Composition{Mode: domain.CompositionSequential, Gap: time.Second}
	}
	id, err := h.coord.ScheduleSession(context.Background(), ScheduleCommand{Initiator: "kai", Config: cfg})
	require.NoError(t, err)
	return id
}

func (h *harness) putWaterReading(moisture, deficit float64) {
	h.readings.Put(domain.NewReading(domain.DomainWaterStress, "main-channel", t0.Add(time.Minute), map[string]domain.Measurement{
		domain.IndicatorSoilMoisture:         {Value: moisture, Unit: "%"},
		domain.IndicatorPrecipitationDeficit: {Value: deficit, Unit: "%"},
	}))
}

func (h *harness) joinAll(t *testing.T, id domain.SessionID, participants ...domain.ParticipantID) {
	t.Helper()
	for _, p := range participants {
		require.NoError(t, h.coord.JoinSession(context.Background(), id, p))
	}
}

func (h *harness) atDelivery() {
	h.clock.Set(t0.Add(2 * time.Minute))
}

func TestScenarioWaterStressDeliveryToThreeParticipants(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testOptions())
	ctx := context.Background()

	id := h.schedule(t, domain.DomainWaterStress)
	h.joinAll(t, id, "kai", "lani", "makoa")
	h.putWaterReading(18, 25)
	h.atDelivery()

	result, err := h.coord.DeliverSession(ctx, id)
	require.NoError(t, err)

	pattern, ok := result.Pattern()
	require.True(t, ok)
	assert.Equal(t, domain.PatternTension, pattern.Type)
	assert.True(t, domain.DefaultIntensityRange.Contains(pattern.Intensity))
	assert.Equal(t, domain.StateDelivered, result.State)
	assert.ElementsMatch(t, []domain.ParticipantID{"kai", "lani", "makoa"}, result.Delivered)
	assert.Empty(t, result.Failures)

	payloads := h.haptics.Payloads()
	require.Len(t, payloads, 3)
	for _, p := range payloads {
		require.NotEmpty(t, p.Segments)
		assert.True(t, p.Segments[0].Pattern.SameCanonical(pattern))
		assert.Equal(t, t0.Add(2*time.Minute), p.DeliverAt)
	}

	snapshot, err := h.coord.GetSessionState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StateDelivered, snapshot.Session.State)
	require.NotNil(t, snapshot.Session.Delivery)
	assert.Len(t, snapshot.Session.Delivery.Outcomes, 3)
}

func TestScenarioZeroParticipantsStillDelivers(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testOptions())
	id := h.schedule(t, domain.DomainWaterStress)
	h.putWaterReading(30, 5)
	h.atDelivery()

	result, err := h.coord.DeliverSession(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StateDelivered, result.State)
	assert.Equal(t, domain.StateDelivered, result.SessionState)
	assert.Empty(t, result.Delivered)
	assert.Empty(t, h.haptics.Payloads())
}

func TestScenarioNoReadingCancelsSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testOptions())
	id := h.schedule(t, domain.DomainWaterStress)
	h.joinAll(t, id, "kai")
	h.atDelivery()

	result, err := h.coord.DeliverSession(context.Background(), id)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoData)
	assert.Equal(t, domain.KindNoData, domain.KindOf(err))

	var derr *domain.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, id, derr.SessionID)
	assert.False(t, derr.Retryable())

	assert.Equal(t, domain.StateCancelled, result.State)
	assert.Empty(t, result.Pulse.Patterns)

	stored, err := h.sessions.GetByID(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, domain.StateCancelled, stored.State)
	assert.Nil(t, stored.Delivery)
	assert.Empty(t, h.haptics.Payloads())
}

func TestScenarioStaleReadingCountsAsNoData(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	opts.FreshnessWindow = time.Minute
	h := newHarness(t, opts)
	id := h.schedule(t, domain.DomainWaterStress)
	h.readings.Put(domain.NewReading(domain.DomainWaterStress, "main-channel", t0.Add(-time.Hour), map[string]domain.Measurement{
		domain.IndicatorSoilMoisture:         {Value: 18},
		domain.IndicatorPrecipitationDeficit: {Value: 25},
	}))
	h.atDelivery()

	_, err := h.coord.DeliverSession(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestScenarioTwoReflectionsInSubmissionOrder(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	opts.AutoOpenReflection = true
	h := newHarness(t, opts)
	ctx := context.Background()

	id := h.schedule(t, domain.DomainWaterStress)
	h.joinAll(t, id, "kai", "lani")
	h.putWaterReading(18, 25)
	h.atDelivery()

	result, err := h.coord.DeliverSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StateReflectionOpen, result.SessionState)
	require.NotEmpty(t, result.CircleID)

	h.clock.Set(t0.Add(20 * time.Minute))
	require.NoError(t, h.coord.SubmitReflection(ctx, SubmitReflectionCommand{
		SessionID: id, ParticipantID: "lani",
		Entry: domain.ReflectionEntry{Content: "felt the drought in my throat", EmotionTag: "Concern"},
	}))
	h.clock.Set(t0.Add(21 * time.Minute))
	require.NoError(t, h.coord.SubmitReflection(ctx, SubmitReflectionCommand{
		SessionID: id, ParticipantID: "kai",
		Entry: domain.ReflectionEntry{Content: "we should restore the spring", ActionIdeas: []string{"mulch the slope"}},
	}))

	view, err := h.coord.GetReflections(ctx, id)
	require.NoError(t, err)
	require.Len(t, view.Entries, 2)
	assert.Equal(t, domain.ParticipantID("lani"), view.Entries[0].ParticipantID)
	assert.Equal(t, "concern", view.Entries[0].EmotionTag)
	assert.Equal(t, domain.ParticipantID("kai"), view.Entries[1].ParticipantID)
	assert.True(t, view.Entries[0].SubmittedAt.Before(view.Entries[1].SubmittedAt))
	assert.Equal(t, 2, view.Summary.Entries)
	assert.True(t, view.Summary.AllReflected)

	view.Entries[0].Content = "rewritten"
	again, err := h.coord.GetReflections(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "felt the drought in my throat", again.Entries[0].Content)
}

func TestJoinIsIdempotent(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testOptions())
	id := h.schedule(t, domain.DomainWaterStress)

	h.joinAll(t, id, "lani", "lani")

	snapshot, err := h.coord.GetSessionState(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, []domain.ParticipantID{"lani"}, snapshot.Members)
	assert.Equal(t, domain.StateOpen, snapshot.Session.State)
}

func TestJoinRejectsUnregisteredParticipant(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testOptions())
	id := h.schedule(t, domain.DomainWaterStress)

	err := h.coord.JoinSession(context.Background(), id, "stranger")
	assert.ErrorIs(t, err, domain.ErrParticipantNotFound)
}

func TestJoinRejectsWhenFull(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testOptions())
	id, err := h.coord.ScheduleSession(context.Background(), ScheduleCommand{Initiator: "kai", Config: domain.SessionConfig{
		Domains:     []domain.DomainID{domain.DomainWaterStress},
		FocusArea:   "main-channel",
		ScheduledAt: t0.Add(time.Hour),
		Duration:    time.Minute,
		Capacity:    1,
	}})
	require.NoError(t, err)

	h.joinAll(t, id, "kai")
	err = h.coord.JoinSession(context.Background(), id, "lani")
	assert.ErrorIs(t, err, domain.ErrSessionNotJoinable)
}

func TestConcurrentJoinsLoseNoUpdates(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testOptions())
	for i := 0; i < 40; i++ {
		pid := domain.ParticipantID(fmt.Sprintf("p-%02d", i))
		h.roster.participants[pid] = domain.Participant{ID: pid}
	}
	id := h.schedule(t, domain.DomainWaterStress)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, h.coord.JoinSession(context.Background(), id, domain.ParticipantID(fmt.Sprintf("p-%02d", i))))
		}(i)
	}
	wg.Wait()

	snapshot, err := h.coord.GetSessionState(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, snapshot.Members, 40)
}

func TestLeaveNonMemberIsNoop(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testOptions())
	id := h.schedule(t, domain.DomainWaterStress)
	h.joinAll(t, id, "kai")

	require.NoError(t, h.coord.LeaveSession(context.Background(), id, "lani"))
	require.NoError(t, h.coord.LeaveSession(context.Background(), id, "kai"))

	snapshot, err := h.coord.GetSessionState(context.Background(), id)
	require.NoError(t, err)
	assert.Empty(t, snapshot.Members)
}

func TestDeliverTwiceReturnsSamePatternWithoutSecondBroadcast(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testOptions())
	id := h.schedule(t, domain.DomainWaterStress)
	h.joinAll(t, id, "kai", "lani")
	h.putWaterReading(18, 25)
	h.atDelivery()

	first, err := h.coord.DeliverSession(context.Background(), id)
	require.NoError(t, err)
	h.putWaterReading(5, 90)
	second, err := h.coord.DeliverSession(context.Background(), id)
	require.NoError(t, err)

	assert.False(t, first.Replayed)
	assert.True(t, second.Replayed)
	assert.Equal(t, first.Pulse, second.Pulse)
	assert.Len(t, h.haptics.Payloads(), 2)
}

func TestConcurrentDeliverBroadcastsOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testOptions())
	id := h.schedule(t, domain.DomainWaterStress)
	h.joinAll(t, id, "kai", "lani", "makoa")
	h.putWaterReading(18, 25)
	h.atDelivery()

	results := make([]DeliveryResult, 8)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			result, err := h.coord.DeliverSession(context.Background(), id)
			assert.NoError(t, err)
			results[i] = result
		}(i)
	}
	wg.Wait()

	assert.Len(t, h.haptics.Payloads(), 3)
	replayed := 0
	for _, r := range results {
		assert.Equal(t, results[0].Pulse, r.Pulse)
		if r.Replayed {
			replayed++
		}
	}
	assert.Equal(t, 7, replayed)
}

func TestLateJoinerRejectedAndNotDelivered(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testOptions())
	ctx := context.Background()
	id := h.schedule(t, domain.DomainWaterStress)
	h.joinAll(t, id, "kai")
	h.putWaterReading(18, 25)
	h.atDelivery()

	err := h.coord.JoinSession(ctx, id, "noe")
	assert.ErrorIs(t, err, domain.ErrSessionNotJoinable)

	result, err := h.coord.DeliverSession(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []domain.ParticipantID{"kai"}, result.Delivered)

	err = h.coord.JoinSession(ctx, id, "noe")
	assert.ErrorIs(t, err, domain.ErrSessionNotJoinable)

	snapshot, err := h.coord.GetSessionState(ctx, id)
	require.NoError(t, err)
	assert.NotContains(t, snapshot.Session.Delivery.Members, domain.ParticipantID("noe"))
}

func TestNonMemberCannotReflect(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	opts.AutoOpenReflection = true
	h := newHarness(t, opts)
	ctx := context.Background()
	id := h.schedule(t, domain.DomainWaterStress)
	h.joinAll(t, id, "kai")
	h.putWaterReading(18, 25)
	h.atDelivery()
	_, err := h.coord.DeliverSession(ctx, id)
	require.NoError(t, err)

	err = h.coord.SubmitReflection(ctx, SubmitReflectionCommand{
		SessionID: id, ParticipantID: "noe",
		Entry: domain.ReflectionEntry{Content: "I was not there"},
	})
	assert.ErrorIs(t, err, domain.ErrSessionState)
}

func TestReflectBeforeDeliveryFails(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testOptions())
	id := h.schedule(t, domain.DomainWaterStress)
	h.joinAll(t, id, "kai")

	err := h.coord.SubmitReflection(context.Background(), SubmitReflectionCommand{
		SessionID: id, ParticipantID: "kai",
		Entry: domain.ReflectionEntry{Content: "too early"},
	})
	assert.ErrorIs(t, err, domain.ErrSessionState)
}

func TestPartialDeliveryFailureIsRecorded(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testOptions())
	h.haptics.offline["lani"] = true
	id := h.schedule(t, domain.DomainWaterStress)
	h.joinAll(t, id, "kai", "lani", "makoa")
	h.putWaterReading(18, 25)
	h.atDelivery()

	result, err := h.coord.DeliverSession(context.Background(), id)
	require.NoError(t, err)

	assert.Equal(t, domain.StateDelivered, result.State)
	assert.ElementsMatch(t, []domain.ParticipantID{"kai", "makoa"}, result.Delivered)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, domain.ParticipantID("lani"), result.Failures[0].ParticipantID)
	assert.Contains(t, result.Failures[0].Error, "device offline")

	partial := result.PartialFailure()
	assert.ErrorIs(t, partial, domain.ErrDeliveryPartialFailure)
	assert.Contains(t, partial.Error(), "participant lani")
}

func TestScheduleRejectsInvalidConfigWithoutPersisting(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cmd  ScheduleCommand
		want error
	}{
		{
			name: "past time",
			cmd: ScheduleCommand{Initiator: "kai", Config: domain.SessionConfig{
				Domains: []domain.DomainID{domain.DomainWaterStress}, FocusArea: "f",
				ScheduledAt: t0.Add(-time.Minute), Duration: time.Minute,
			}},
			want: domain.ErrInvalidConfig,
		},
		{
			name: "zero duration",
			cmd: ScheduleCommand{Initiator: "kai", Config: domain.SessionConfig{
				Domains: []domain.DomainID{domain.DomainWaterStress}, FocusArea: "f",
				ScheduledAt: t0.Add(time.Minute),
			}},
			want: domain.ErrInvalidConfig,
		},
		{
			name: "unknown domain",
			cmd: ScheduleCommand{Initiator: "kai", Config: domain.SessionConfig{
				Domains: []domain.DomainID{"soil_health"}, FocusArea: "f",
				ScheduledAt: t0.Add(time.Minute), Duration: time.Minute,
			}},
			want: domain.ErrUnknownDomain,
		},
		{
			name: "unregistered initiator",
			cmd: ScheduleCommand{Initiator: "ghost", Config: domain.SessionConfig{
				Domains: []domain.DomainID{domain.DomainWaterStress}, FocusArea: "f",
				ScheduledAt: t0.Add(time.Minute), Duration: time.Minute,
			}},
			want: domain.ErrInvalidConfig,
		},
		{
			name: "two domains without composition",
			cmd: ScheduleCommand{Initiator: "kai", Config: domain.SessionConfig{
				Domains:   []domain.DomainID{domain.DomainWaterStress, domain.DomainBiodiversity},
				FocusArea: "f", ScheduledAt: t0.Add(time.Minute), Duration: time.Minute,
			}},
			want: domain.ErrInvalidConfig,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			h := newHarness(t, testOptions())
			_, err := h.coord.ScheduleSession(context.Background(), tc.cmd)
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.want)

			var derr *domain.Error
			require.ErrorAs(t, err, &derr)
			assert.True(t, derr.Retryable())

			sessions, err := h.sessions.List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, sessions)
		})
	}
}

func TestDeliverUnknownDomainAbortsBeforeMutation(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testOptions())
	ctx := context.Background()
	session := domain.NewSession("legacy", "kai", domain.SessionConfig{
		Domains:     []domain.DomainID{"air_quality"},
		FocusArea:   "main-channel",
		ScheduledAt: t0.Add(time.Minute),
		Duration:    time.Minute,
	}, t0)
	require.NoError(t, h.sessions.Create(ctx, session))
	h.atDelivery()

	_, err := h.coord.DeliverSession(ctx, "legacy")
	assert.ErrorIs(t, err, domain.ErrUnknownDomain)
	assert.ErrorIs(t, err, &domain.Error{Kind: domain.KindUnknownDomain, SessionID: "legacy"})

	stored, err := h.sessions.GetByID(ctx, "legacy")
	require.NoError(t, err)
	assert.Equal(t, domain.StateScheduled, stored.State)
	assert.Zero(t, h.readings.calls)
}

func TestDeliverIncompleteReadingLeavesStateUnchanged(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testOptions())
	ctx := context.Background()
	id := h.schedule(t, domain.DomainWaterStress)
	h.readings.Put(domain.NewReading(domain.DomainWaterStress, "main-channel", t0, map[string]domain.Measurement{
		domain.IndicatorSoilMoisture: {Value: 10},
	}))
	h.atDelivery()

	_, err := h.coord.DeliverSession(ctx, id)
	assert.ErrorIs(t, err, domain.ErrIncompleteReading)

	stored, err := h.sessions.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StateScheduled, stored.State)
	assert.Nil(t, stored.Delivery)
}

func TestDeliverBeforeScheduledTimeFails(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testOptions())
	id := h.schedule(t, domain.DomainWaterStress)
	h.putWaterReading(18, 25)

	_, err := h.coord.DeliverSession(context.Background(), id)
	assert.ErrorIs(t, err, domain.ErrSessionState)
}

func TestDeliverMultiDomainSequential(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testOptions())
	id := h.schedule(t, domain.DomainWaterStress, domain.DomainBiodiversity)
	h.joinAll(t, id, "kai")
	h.putWaterReading(18, 25)
	h.readings.Put(domain.NewReading(domain.DomainBiodiversity, "main-channel", t0, map[string]domain.Measurement{
		domain.IndicatorSpeciesCount:      {Value: 28},
		domain.IndicatorAcousticDiversity: {Value: 0.72},
	}))
	h.atDelivery()

	result, err := h.coord.DeliverSession(context.Background(), id)
	require.NoError(t, err)
	require.Len(t, result.Pulse.Patterns, 2)
	assert.Equal(t, domain.PatternTension, result.Pulse.Patterns[0].Type)
	assert.Equal(t, domain.PatternHarmony, result.Pulse.Patterns[1].Type)
	assert.Equal(t, t0, result.ReadingAt)

	payloads := h.haptics.Payloads()
	require.Len(t, payloads, 1)
	assert.Len(t, payloads[0].Segments, 2)
}

func TestCalibrationOverrideScalesIntensityWithinBounds(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testOptions())
	h.roster.participants["lani"] = domain.Participant{ID: "lani", Calibration: domain.Calibration{MaxIntensity: 3}}
	id, err := h.coord.ScheduleSession(context.Background(), ScheduleCommand{Initiator: "kai", Config: domain.SessionConfig{
		Domains:     []domain.DomainID{domain.DomainWaterStress},
		FocusArea:   "main-channel",
		ScheduledAt: t0.Add(2 * time.Minute),
		Duration:    time.Minute,
		Calibrations: map[domain.ParticipantID]domain.Calibration{
			"kai": {IntensityScale: 2, DurationScale: 0.5},
		},
	}})
	require.NoError(t, err)
	h.joinAll(t, id, "kai", "lani")
	h.putWaterReading(0, 100)
	h.atDelivery()

	result, err := h.coord.DeliverSession(context.Background(), id)
	require.NoError(t, err)
	canonical, _ := result.Pattern()

	byParticipant := map[domain.ParticipantID]domain.Payload{}
	for _, p := range h.haptics.Payloads() {
		byParticipant[p.ParticipantID] = p
	}

	kai := byParticipant["kai"].Segments[0]
	assert.Equal(t, 10.0, kai.Pattern.Intensity)
	assert.Equal(t, canonical.Duration/2, kai.Duration)

	lani := byParticipant["lani"].Segments[0]
	assert.Equal(t, 3.0, lani.Pattern.Intensity)
	assert.Equal(t, canonical.Type, lani.Pattern.Type)
	assert.Equal(t, canonical.PulseCount, lani.Pattern.PulseCount)
}

func TestCancelOnlyBeforeDelivery(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testOptions())
	ctx := context.Background()

	first := h.schedule(t, domain.DomainWaterStress)
	require.NoError(t, h.coord.CancelSession(ctx, first, "storm warning"))
	snapshot, err := h.coord.GetSessionState(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, domain.StateCancelled, snapshot.Session.State)
	assert.Equal(t, "storm warning", snapshot.Session.CancelReason)

	err = h.coord.JoinSession(ctx, first, "kai")
	assert.ErrorIs(t, err, domain.ErrSessionNotJoinable)

	second := h.schedule(t, domain.DomainWaterStress)
	h.putWaterReading(18, 25)
	h.atDelivery()
	_, err = h.coord.DeliverSession(ctx, second)
	require.NoError(t, err)

	err = h.coord.CancelSession(ctx, second, "too late")
	assert.ErrorIs(t, err, domain.ErrSessionState)
}

func TestCloseSealsReflectionCircle(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testOptions())
	ctx := context.Background()
	id := h.schedule(t, domain.DomainWaterStress)
	h.joinAll(t, id, "kai")
	h.putWaterReading(18, 25)
	h.atDelivery()
	_, err := h.coord.DeliverSession(ctx, id)
	require.NoError(t, err)

	circleID, err := h.coord.OpenReflection(ctx, id)
	require.NoError(t, err)
	again, err := h.coord.OpenReflection(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, circleID, again)

	require.NoError(t, h.coord.CloseSession(ctx, id))

	err = h.coord.SubmitReflection(ctx, SubmitReflectionCommand{
		SessionID: id, ParticipantID: "kai",
		Entry: domain.ReflectionEntry{Content: "after close"},
	})
	assert.ErrorIs(t, err, domain.ErrSessionState)

	view, err := h.coord.GetReflections(ctx, id)
	require.NoError(t, err)
	assert.True(t, view.Circle.Closed())

	err = h.coord.CloseSession(ctx, id)
	assert.ErrorIs(t, err, domain.ErrSessionState)
}

func TestGetSessionStateUnknownID(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testOptions())
	_, err := h.coord.GetSessionState(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, err, &domain.Error{Kind: domain.KindNotFound, SessionID: "missing"})
}

func TestListSessionsOrderedBySchedule(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testOptions())
	ctx := context.Background()
	for _, offset := range []time.Duration{3 * time.Hour, time.Hour, 2 * time.Hour} {
		_, err := h.coord.ScheduleSession(ctx, ScheduleCommand{Initiator: "kai", Config: domain.SessionConfig{
			Domains: []domain.DomainID{domain.DomainBiodiversity}, FocusArea: "ridge",
			ScheduledAt: t0.Add(offset), Duration: time.Minute,
		}})
		require.NoError(t, err)
	}

	snapshots, err := h.coord.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, snapshots, 3)
	assert.Equal(t, t0.Add(time.Hour), snapshots[0].Session.ScheduledAt)
	assert.Equal(t, t0.Add(3*time.Hour), snapshots[2].Session.ScheduledAt)
	assert.False(t, snapshots[2].Session.State == domain.StateOpen)
}

func TestTickOpensDeliversAndCloses(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	opts.AutoOpenReflection = true
	opts.ReflectionWindow = time.Hour
	opts.JoinLead = 10 * time.Minute
	h := newHarness(t, opts)
	ctx := context.Background()

	id, err := h.coord.ScheduleSession(ctx, ScheduleCommand{Initiator: "kai", Config: domain.SessionConfig{
		Domains: []domain.DomainID{domain.DomainWaterStress}, FocusArea: "main-channel",
		ScheduledAt: t0.Add(30 * time.Minute), Duration: time.Minute,
	}})
	require.NoError(t, err)

	report, err := h.coord.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Opened)

	h.clock.Set(t0.Add(25 * time.Minute))
	report, err = h.coord.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.SessionID{id}, report.Opened)

	h.readings.Put(domain.NewReading(domain.DomainWaterStress, "main-channel", t0.Add(29*time.Minute), map[string]domain.Measurement{
		domain.IndicatorSoilMoisture:         {Value: 18},
		domain.IndicatorPrecipitationDeficit: {Value: 25},
	}))
	h.clock.Set(t0.Add(30 * time.Minute))
	report, err = h.coord.Tick(ctx)
	require.NoError(t, err)
	require.NoError(t, report.Err())
	assert.Equal(t, []domain.SessionID{id}, report.Delivered)

	h.clock.Set(t0.Add(91 * time.Minute))
	report, err = h.coord.Tick(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.SessionID{id}, report.Closed)

	snapshot, err := h.coord.GetSessionState(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StateClosed, snapshot.Session.State)
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testOptions())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.coord.Run(ctx, 5*time.Millisecond) }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("run did not stop")
	}
}

func TestCoordinatorPublishesLifecycleEvents(t *testing.T) {
	t.Parallel()

	registry, err := translate.NewDefaultRegistry(translate.DefaultOptions{})
	require.NoError(t, err)

	clock := mocks.NewMockClock(t)
	clock.EXPECT().Now().Return(t0)
	events := mocks.NewMockEventPublisher(t)
	roster := mocks.NewMockRoster(t)
	roster.EXPECT().IsRegistered(mock.Anything, domain.ParticipantID("kai")).Return(true, nil)

	events.EXPECT().Publish(mock.Anything, mock.MatchedBy(func(e domain.Event) bool {
		return e.Type == domain.EventScheduled && e.State == domain.StateScheduled
	})).Return(nil).Once()
	events.EXPECT().Publish(mock.Anything, mock.MatchedBy(func(e domain.Event) bool {
		return e.Type == domain.EventOpened
	})).Return(errors.New("broker down")).Once()
	events.EXPECT().Publish(mock.Anything, mock.MatchedBy(func(e domain.Event) bool {
		return e.Type == domain.EventJoined && e.ParticipantID == "kai"
	})).Return(nil).Once()

	coord, err := NewCoordinator(CoordinatorDeps{
		Sessions:    memory.NewSessionRepository(),
		Reflections: memory.NewReflectionStore(),
		Readings:    mocks.NewMockReadingSource(t),
		Roster:      roster,
		Haptics:     mocks.NewMockHapticDeliverer(t),
		Registry:    registry,
		Events:      events,
		Clock:       clock,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}, testOptions())
	require.NoError(t, err)

	id, err := coord.ScheduleSession(context.Background(), ScheduleCommand{Initiator: "kai", Config: domain.SessionConfig{
		Domains: []domain.DomainID{domain.DomainWaterStress}, FocusArea: "main-channel",
		ScheduledAt: t0.Add(10 * time.Minute), Duration: time.Minute,
	}})
	require.NoError(t, err)

	require.NoError(t, coord.JoinSession(context.Background(), id, "kai"))
}

func TestNewCoordinatorRequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := NewCoordinator(CoordinatorDeps{}, DefaultCoordinatorOptions())
	require.Error(t, err)

	h := newHarness(t, testOptions())
	registry, err := translate.NewDefaultRegistry(translate.DefaultOptions{})
	require.NoError(t, err)
	bad := testOptions()
	bad.PollInterval = 0
	_, err = NewCoordinator(CoordinatorDeps{
		Sessions: h.sessions, Reflections: h.reflections, Readings: h.readings,
		Roster: h.roster, Haptics: h.haptics, Registry: registry,
	}, bad)
	require.Error(t, err)
}
