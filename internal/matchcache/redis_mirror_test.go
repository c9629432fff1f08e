package matchcache

import (
	"context"
	"testing"
	"time"

	"skillmatch/internal/storage"
	"skillmatch/internal/types"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memFastTier 内存实现，统计调用次数
type memFastTier struct {
	rows  map[string]*FastEntry
	gets  int
	ttl   time.Duration
	nextN int
}

func newMemFastTier() *memFastTier {
	return &memFastTier{rows: map[string]*FastEntry{}, ttl: 30 * 24 * time.Hour}
}

func (m *memFastTier) GetValid(ctx context.Context, c, j string, now time.Time) (*FastEntry, error) {
	m.gets++
	e, ok := m.rows[c+"|"+j]
	if !ok || !e.ValidUntil.After(now) {
		return nil, types.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memFastTier) Upsert(ctx context.Context, e *FastEntry, now time.Time) error {
	m.nextN++
	e.ID = "fast-" + string(rune('0'+m.nextN))
	e.ComputedAt = now
	e.ValidUntil = now.Add(m.ttl)
	cp := *e
	m.rows[e.CandidateID+"|"+e.JobID] = &cp
	return nil
}

func (m *memFastTier) RecordHit(ctx context.Context, id string, now time.Time) error {
	for _, e := range m.rows {
		if e.ID == id && e.ValidUntil.After(now) {
			e.HitCount++
		}
	}
	return nil
}

func (m *memFastTier) Delete(ctx context.Context, c, j string) error {
	delete(m.rows, c+"|"+j)
	return nil
}

func setupMirror(t *testing.T) (*miniredis.Miniredis, *memFastTier, *MirroredFastTier) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	inner := newMemFastTier()
	return mr, inner, NewMirroredFastTier(inner, storage.NewRedisFromClient(client))
}

func TestMirroredFastTier_ReadThroughAndTTL(t *testing.T) {
	mr, inner, tier := setupMirror(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, tier.Upsert(ctx, &FastEntry{
		CandidateID:            "c1",
		JobID:                  "j1",
		OverallMatchPercentage: 72,
		Breakdown:              types.CategoryBreakdown{RequiredMatched: 3, RequiredTotal: 4},
	}, now))
	assert.False(t, mr.Exists("app:match:fast:c1:j1"), "写入后镜像应被清除")

	later := now.Add(time.Hour)
	got, err := tier.GetValid(ctx, "c1", "j1", later)
	require.NoError(t, err)
	assert.Equal(t, 72, got.OverallMatchPercentage)
	assert.Equal(t, 1, inner.gets)

	require.True(t, mr.Exists("app:match:fast:c1:j1"))
	ttl := mr.TTL("app:match:fast:c1:j1")
	assert.Equal(t, 30*24*time.Hour-time.Hour, ttl, "镜像TTL等于剩余有效期")

	got, err = tier.GetValid(ctx, "c1", "j1", later)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Breakdown.RequiredMatched)
	assert.Equal(t, 1, inner.gets, "第二次读取应命中Redis")
}

func TestMirroredFastTier_ExpiredMirrorFallsBack(t *testing.T) {
	_, inner, tier := setupMirror(t)
	ctx := context.Background()
	now := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)

	require.NoError(t, tier.Upsert(ctx, &FastEntry{CandidateID: "c1", JobID: "j1", OverallMatchPercentage: 50}, now))
	_, err := tier.GetValid(ctx, "c1", "j1", now)
	require.NoError(t, err)

	// 超过有效期后即使镜像还在也不能返回
	_, err = tier.GetValid(ctx, "c1", "j1", now.Add(31*24*time.Hour))
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Equal(t, 2, inner.gets)
}

func TestMirroredFastTier_Delete(t *testing.T) {
	mr, _, tier := setupMirror(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, tier.Upsert(ctx, &FastEntry{CandidateID: "c2", JobID: "j2", OverallMatchPercentage: 90}, now))
	_, err := tier.GetValid(ctx, "c2", "j2", now)
	require.NoError(t, err)
	require.True(t, mr.Exists("app:match:fast:c2:j2"))

	require.NoError(t, tier.Delete(ctx, "c2", "j2"))
	assert.False(t, mr.Exists("app:match:fast:c2:j2"))

	_, err = tier.GetValid(ctx, "c2", "j2", now)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestMirroredFastTier_RedisDownStillServes(t *testing.T) {
	mr, _, tier := setupMirror(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, tier.Upsert(ctx, &FastEntry{CandidateID: "c3", JobID: "j3", OverallMatchPercentage: 40}, now))
	mr.Close()

	got, err := tier.GetValid(ctx, "c3", "j3", now)
	require.NoError(t, err)
	assert.Equal(t, 40, got.OverallMatchPercentage)
}

func TestNormalizeBreakdownAndClamp(t *testing.T) {
	b := NormalizeBreakdown(types.CategoryBreakdown{
		RequiredMatched: 5, RequiredTotal: 3,
		PreferredMatched: -1, PreferredTotal: 2,
	})
	assert.Equal(t, 5, b.RequiredTotal)
	assert.Equal(t, 0, b.PreferredMatched)
	assert.Equal(t, 2, b.PreferredTotal)

	assert.Equal(t, 0, ClampPercentage(-3))
	assert.Equal(t, 100, ClampPercentage(140))
	assert.Equal(t, 64, ClampPercentage(64))
}
