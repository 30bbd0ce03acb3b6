package toml

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/bnema/mycelium-pulse/internal/domain"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

var feedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newReadingFeed(t *testing.T) *ReadingFeed {
	t.Helper()

	config := viper.New()
	config.Set(ReadingsPathKey, filepath.Join(t.TempDir(), "readings.toml"))
	feed, err := NewReadingFeed(config)
	require.NoError(t, err)
	return feed.WithClock(fixedClock{now: feedNow})
}

func waterReading(focusArea string, capturedAt time.Time, moisture float64) domain.Reading {
	return domain.NewReading(domain.DomainWaterStress, focusArea, capturedAt, map[string]domain.Measurement{
		domain.IndicatorSoilMoisture:         {Value: moisture, Unit: "percent"},
		domain.IndicatorPrecipitationDeficit: {Value: 25, Unit: "percent"},
	})
}

func TestReadingFeedReturnsNewestReadingForArea(t *testing.T) {
	t.Parallel()

	feed := newReadingFeed(t)
	ctx := context.Background()

	newest := waterReading("Amazon Basin", feedNow.Add(-5*time.Minute), 18).WithEcosystem("rainforest")
	require.NoError(t, feed.Record(ctx, newest))
	require.NoError(t, feed.Record(ctx, waterReading("Amazon Basin", feedNow.Add(-20*time.Minute), 30)))
	require.NoError(t, feed.Record(ctx, waterReading("Sahel", feedNow.Add(-time.Minute), 5)))

	got, err := feed.LatestReading(ctx, domain.DomainWaterStress, "amazon basin", 30*time.Minute)
	require.NoError(t, err)
	assert.True(t, newest.CapturedAt.Equal(got.CapturedAt))
	assert.Equal(t, "rainforest", got.Ecosystem)

	moisture, ok := got.Value(domain.IndicatorSoilMoisture)
	require.True(t, ok)
	assert.InDelta(t, 18, moisture, 1e-9)

	m, ok := got.Measurement(domain.IndicatorPrecipitationDeficit)
	require.True(t, ok)
	assert.Equal(t, "percent", m.Unit)
}

func TestReadingFeedStaleOrMissingReadingIsNotFound(t *testing.T) {
	t.Parallel()

	feed := newReadingFeed(t)
	ctx := context.Background()

	_, err := feed.LatestReading(ctx, domain.DomainWaterStress, "Amazon Basin", time.Hour)
	assert.ErrorIs(t, err, domain.ErrReadingNotFound)

	require.NoError(t, feed.Record(ctx, waterReading("Amazon Basin", feedNow.Add(-2*time.Hour), 18)))

	_, err = feed.LatestReading(ctx, domain.DomainWaterStress, "Amazon Basin", time.Hour)
	assert.ErrorIs(t, err, domain.ErrReadingNotFound)

	_, err = feed.LatestReading(ctx, domain.DomainBiodiversity, "Amazon Basin", 0)
	assert.ErrorIs(t, err, domain.ErrReadingNotFound)

	got, err := feed.LatestReading(ctx, domain.DomainWaterStress, "Amazon Basin", 0)
	require.NoError(t, err)
	assert.Equal(t, "Amazon Basin", got.FocusArea)
}

func TestReadingFeedBoundsHistoryPerArea(t *testing.T) {
	t.Parallel()

	feed := newReadingFeed(t)
	ctx := context.Background()

	for i := 0; i < maxReadingsPerArea+5; i++ {
		require.NoError(t, feed.Record(ctx, waterReading("Amazon Basin", feedNow.Add(-time.Duration(i)*time.Second), float64(i))))
	}
	require.NoError(t, feed.Record(ctx, waterReading("Sahel", feedNow, 3)))

	file, err := feed.readSchema()
	require.NoError(t, err)
	assert.Len(t, file.Readings, maxReadingsPerArea+1)

	// Trimming drops the earliest recorded entries.
	got, err := feed.LatestReading(ctx, domain.DomainWaterStress, "Amazon Basin", 0)
	require.NoError(t, err)
	assert.True(t, feedNow.Add(-5*time.Second).Equal(got.CapturedAt))
}

func TestReadingFeedRecordRejectsEmptyReading(t *testing.T) {
	t.Parallel()

	feed := newReadingFeed(t)

	err := feed.Record(context.Background(), domain.NewReading(domain.DomainWaterStress, "Amazon Basin", feedNow, nil))
	require.Error(t, err)
	assert.ErrorContains(t, err, "validate reading")
}
