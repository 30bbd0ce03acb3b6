package cmd

import (
	"errors"
	"testing"
	"time"

	"github.com/bnema/mycelium-pulse/internal/application"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type steppedClock struct {
	now time.Time
}

func (c *steppedClock) Now() time.Time {
	return c.now
}

func TestDeliveryProgressModelShowsReadingWaitThenBroadcast(t *testing.T) {
	clock := &steppedClock{now: time.Date(2026, 6, 21, 5, 32, 0, 0, time.UTC)}
	m := newDeliveryProgressModel("sess-1", 5*time.Minute, clock.Now, nil)

	clock.now = clock.now.Add(12 * time.Second)
	assert.Contains(t, m.View(), "sess-1")
	assert.Contains(t, m.View(), "waiting for fresh readings 12s of 5m0s")

	updated, cmd := m.Update(deliveryProgressMsg{Phase: application.PhaseBroadcasting, Members: 3})
	assert.Nil(t, cmd)
	m = updated.(deliveryProgressModel)
	assert.Contains(t, m.View(), "delivering pulse 0/3")

	updated, _ = m.Update(deliveryProgressMsg{Phase: application.PhaseBroadcasting, Members: 3, Attempted: 2, Failed: 1})
	m = updated.(deliveryProgressModel)
	assert.Contains(t, m.View(), "delivering pulse 2/3")
	assert.Contains(t, m.View(), "1 unreachable")
}

func TestDeliveryProgressModelQuitsWithResult(t *testing.T) {
	m := newDeliveryProgressModel("sess-1", 0, time.Now, nil)
	assert.Contains(t, m.View(), "waiting for fresh readings 0s")

	failure := errors.New("no fresh reading")
	updated, cmd := m.Update(deliveryDoneMsg{
		result: application.DeliveryResult{SessionID: "sess-1"},
		err:    failure,
	})
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())

	m = updated.(deliveryProgressModel)
	assert.Empty(t, m.View())
	assert.ErrorIs(t, m.err, failure)
	assert.Equal(t, "sess-1", string(m.result.SessionID))
}
