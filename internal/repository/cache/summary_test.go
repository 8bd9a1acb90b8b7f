package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/attendance"
	"github.com/cmlabs-hris/attendance-engine/internal/domain/punch"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestRedis(t *testing.T) (*miniredis.Miniredis, attendance.SummaryCache) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, NewSummaryCache(client, time.Hour, Namespace(attendance.DefaultRules(time.UTC)))
}

func day(summary attendance.DailySummary) attendance.CachedDay {
	return attendance.CachedDay{Summary: summary}
}

func TestSummaryCache_MissThenHit(t *testing.T) {
	_, c := setupTestRedis(t)
	ctx := context.Background()

	_, ok, err := c.GetDaily(ctx, "u1", "2026-03-02")
	require.NoError(t, err)
	assert.False(t, ok)

	firstIn := time.Date(2026, 3, 2, 3, 30, 0, 0, time.UTC)
	summary := attendance.DailySummary{
		UserID:              "u1",
		Date:                "2026-03-02",
		FirstIn:             &firstIn,
		WorkDurationMinutes: 0,
		IsPresent:           true,
		AnomalyKind:         attendance.AnomalyMissingOut,
	}
	fp := punch.Fingerprint{Count: 1, LatestID: "e1"}
	require.NoError(t, c.SetDaily(ctx, attendance.CachedDay{Summary: summary, Fingerprint: fp}))

	got, ok, err := c.GetDaily(ctx, "u1", "2026-03-02")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, summary.AnomalyKind, got.Summary.AnomalyKind)
	assert.True(t, firstIn.Equal(*got.Summary.FirstIn))
	assert.True(t, got.Summary.IsPresent)
	assert.Equal(t, fp, got.Fingerprint)
}

func TestSummaryCache_TTL(t *testing.T) {
	mr, c := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.SetDaily(ctx, day(attendance.DailySummary{UserID: "u1", Date: "2026-03-02"})))
	mr.FastForward(2 * time.Hour)

	_, ok, err := c.GetDaily(ctx, "u1", "2026-03-02")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSummaryCache_Invalidate(t *testing.T) {
	_, c := setupTestRedis(t)
	ctx := context.Background()

	require.NoError(t, c.SetDaily(ctx, day(attendance.DailySummary{UserID: "u1", Date: "2026-03-02"})))
	require.NoError(t, c.InvalidateDaily(ctx, "u1", "2026-03-02"))

	_, ok, err := c.GetDaily(ctx, "u1", "2026-03-02")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSummaryCache_NamespaceIsolatesRules(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	ctx := context.Background()

	strict := attendance.DefaultRules(time.UTC)
	strict.CompleteDayMinutes = 480
	a := NewSummaryCache(client, time.Hour, Namespace(attendance.DefaultRules(time.UTC)))
	b := NewSummaryCache(client, time.Hour, Namespace(strict))

	require.NoError(t, a.SetDaily(ctx, day(attendance.DailySummary{UserID: "u1", Date: "2026-03-02", IsComplete: true})))

	_, ok, err := b.GetDaily(ctx, "u1", "2026-03-02")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSummaryCache_BackendFailure(t *testing.T) {
	mr, c := setupTestRedis(t)
	mr.Close()

	_, ok, err := c.GetDaily(context.Background(), "u1", "2026-03-02")
	assert.Error(t, err)
	assert.False(t, ok)
}

func TestSummaryCache_CorruptValue(t *testing.T) {
	mr, c := setupTestRedis(t)
	require.NoError(t, mr.Set(keyPrefix+Namespace(attendance.DefaultRules(time.UTC))+":u1:2026-03-02", "{not json"))

	_, ok, err := c.GetDaily(context.Background(), "u1", "2026-03-02")
	assert.Error(t, err)
	assert.False(t, ok)
}
