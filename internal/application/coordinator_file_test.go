package application

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/bnema/mycelium-pulse/internal/adapters/repo/memory"
	tomlrepo "github.com/bnema/mycelium-pulse/internal/adapters/repo/toml"
	"github.com/bnema/mycelium-pulse/internal/domain"
	"github.com/bnema/mycelium-pulse/internal/translate"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newFileCoordinator builds a coordinator over its own TOML repository, the
// way each CLI invocation does. Coordinators built on the same path share
// nothing in memory except the fakes passed in.
func newFileCoordinator(t *testing.T, path string, h *harness) *Coordinator {
	t.Helper()

	cfg := viper.New()
	cfg.Set(tomlrepo.SessionsPathKey, path)
	sessions, err := tomlrepo.NewSessionRepository(cfg)
	require.NoError(t, err)

	registry, err := translate.NewDefaultRegistry(translate.DefaultOptions{})
	require.NoError(t, err)

	coord, err := NewCoordinator(CoordinatorDeps{
		Sessions:    sessions,
		Reflections: memory.NewReflectionStore(),
		Readings:    h.readings,
		Roster:      h.roster,
		Haptics:     h.haptics,
		Registry:    registry,
		Clock:       h.clock,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		NewID: func() string {
			return "file-session"
		},
	}, testOptions())
	require.NoError(t, err)
	require.NotNil(t, coord.locker)
	return coord
}

func scheduleOn(t *testing.T, coord *Coordinator) domain.SessionID {
	t.Helper()

	id, err := coord.ScheduleSession(context.Background(), ScheduleCommand{Initiator: "kai", Config: domain.SessionConfig{
		Domains:     []domain.DomainID{domain.DomainWaterStress},
		FocusArea:   "main-channel",
		ScheduledAt: t0.Add(2 * time.Minute),
		Duration:    600 * time.Second,
	}})
	require.NoError(t, err)
	return id
}

func TestConcurrentJoinsAcrossCoordinatorsOnOneFileLoseNoUpdates(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testOptions())
	for i := 0; i < 40; i++ {
		pid := domain.ParticipantID(fmt.Sprintf("p-%02d", i))
		h.roster.participants[pid] = domain.Participant{ID: pid}
	}

	path := filepath.Join(t.TempDir(), "sessions.toml")
	first := newFileCoordinator(t, path, h)
	second := newFileCoordinator(t, path, h)
	id := scheduleOn(t, first)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		coord := first
		if i%2 == 1 {
			coord = second
		}
		wg.Add(1)
		go func(coord *Coordinator, i int) {
			defer wg.Done()
			assert.NoError(t, coord.JoinSession(context.Background(), id, domain.ParticipantID(fmt.Sprintf("p-%02d", i))))
		}(coord, i)
	}
	wg.Wait()

	snapshot, err := second.GetSessionState(context.Background(), id)
	require.NoError(t, err)
	assert.Len(t, snapshot.Members, 40)
	assert.Zero(t, first.heldLocks())
	assert.Zero(t, second.heldLocks())
}

func TestConcurrentDeliverAcrossCoordinatorsOnOneFileBroadcastsOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testOptions())
	path := filepath.Join(t.TempDir(), "sessions.toml")
	first := newFileCoordinator(t, path, h)
	second := newFileCoordinator(t, path, h)

	id := scheduleOn(t, first)
	for _, p := range []domain.ParticipantID{"kai", "lani", "makoa"} {
		require.NoError(t, second.JoinSession(context.Background(), id, p))
	}
	h.putWaterReading(18, 25)
	h.atDelivery()

	results := make([]DeliveryResult, 6)
	var wg sync.WaitGroup
	for i := range results {
		coord := first
		if i%2 == 1 {
			coord = second
		}
		wg.Add(1)
		go func(coord *Coordinator, i int) {
			defer wg.Done()
			result, err := coord.DeliverSession(context.Background(), id)
			assert.NoError(t, err)
			results[i] = result
		}(coord, i)
	}
	wg.Wait()

	assert.Len(t, h.haptics.Payloads(), 3)
	fresh := 0
	for _, r := range results {
		if !r.Replayed {
			fresh++
		}
	}
	assert.Equal(t, 1, fresh)
}

func TestJoinWaitsForSessionLockHeldElsewhere(t *testing.T) {
	t.Parallel()

	h := newHarness(t, testOptions())
	path := filepath.Join(t.TempDir(), "sessions.toml")
	coord := newFileCoordinator(t, path, h)
	id := scheduleOn(t, coord)

	cfg := viper.New()
	cfg.Set(tomlrepo.SessionsPathKey, path)
	other, err := tomlrepo.NewSessionRepository(cfg)
	require.NoError(t, err)
	unlock, err := other.LockSession(context.Background(), id)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	err = coord.JoinSession(ctx, id, "kai")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Zero(t, coord.heldLocks())

	unlock()
	require.NoError(t, coord.JoinSession(context.Background(), id, "kai"))
}
