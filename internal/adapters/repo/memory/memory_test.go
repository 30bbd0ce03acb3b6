package memory

import (
	"context"
	"testing"
	"time"

	"github.com/bnema/mycelium-pulse/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func newSession(id domain.SessionID) domain.Session {
	return domain.NewSession(id, "alice", domain.SessionConfig{
		Domains:     []domain.DomainID{domain.DomainWaterStress},
		FocusArea:   "Amazon Basin",
		ScheduledAt: now.Add(time.Hour),
		Duration:    5 * time.Minute,
	}, now)
}

func TestSessionRepositoryStoresCopies(t *testing.T) {
	t.Parallel()

	repo := NewSessionRepository()
	ctx := context.Background()

	session := newSession("sess-1")
	require.NoError(t, repo.Create(ctx, session))

	session.AddMember("bob", now)
	stored, err := repo.GetByID(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, stored.Members)

	stored.AddMember("carol", now)
	again, err := repo.GetByID(ctx, "sess-1")
	require.NoError(t, err)
	assert.Empty(t, again.Members)

	require.NoError(t, repo.Save(ctx, stored))
	again, err = repo.GetByID(ctx, "sess-1")
	require.NoError(t, err)
	assert.True(t, again.IsMember("carol"))
}

func TestSessionRepositoryErrors(t *testing.T) {
	t.Parallel()

	repo := NewSessionRepository()
	ctx := context.Background()

	_, err := repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	assert.ErrorIs(t, repo.Save(ctx, newSession("missing")), domain.ErrSessionNotFound)

	require.NoError(t, repo.Create(ctx, newSession("sess-1")))
	assert.ErrorIs(t, repo.Create(ctx, newSession("sess-1")), domain.ErrSessionState)

	assert.Error(t, repo.Create(ctx, domain.Session{}))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = repo.List(cancelled)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReflectionStoreAppendOnly(t *testing.T) {
	t.Parallel()

	store := NewReflectionStore()
	ctx := context.Background()

	circle := domain.ReflectionCircle{ID: "circle-1", SessionID: "sess-1", Eligible: []domain.ParticipantID{"alice"}, OpenedAt: now}
	require.NoError(t, store.CreateCircle(ctx, circle))
	assert.Error(t, store.CreateCircle(ctx, circle))

	entry := domain.ReflectionEntry{ParticipantID: "alice", Content: "felt it", Insights: []string{"dry"}}
	require.NoError(t, store.Append(ctx, "circle-1", entry))

	entries, err := store.Get(ctx, "circle-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	entries[0].Insights[0] = "changed"

	entries, err = store.Get(ctx, "circle-1")
	require.NoError(t, err)
	assert.Equal(t, "dry", entries[0].Insights[0])

	require.NoError(t, store.CloseCircle(ctx, "circle-1", now.Add(time.Hour)))
	require.NoError(t, store.CloseCircle(ctx, "circle-1", now.Add(2*time.Hour)))

	got, err := store.Circle(ctx, "circle-1")
	require.NoError(t, err)
	assert.Equal(t, now.Add(time.Hour), got.ClosedAt)

	err = store.Append(ctx, "circle-1", entry)
	require.Error(t, err)
	assert.ErrorContains(t, err, "is closed")

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrCircleNotFound)
	assert.ErrorIs(t, store.Append(ctx, "missing", entry), domain.ErrCircleNotFound)
}
