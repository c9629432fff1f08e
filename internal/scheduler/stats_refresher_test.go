package scheduler

import (
	"context"
	"errors"
	"testing"
	"time"

	"skillmatch/internal/cachestats"
	"skillmatch/internal/constants"
	"skillmatch/internal/storage"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSource struct {
	calls int
	err   error
}

func (c *countingSource) Refresh(context.Context) (*cachestats.Report, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	r := cachestats.Summarize(cachestats.CacheCounters{DetailHits: 1, AICalls: 1}, cachestats.ScoreCounters{}, time.Now())
	return &r, nil
}

func TestRunOnce_LockHeldByOtherInstance(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	src := &countingSource{}
	r := NewStatsRefresher(src, storage.NewRedisFromClient(client), "")

	require.NoError(t, mr.Set(constants.KeyStatsRefreshLock, "other-instance"))
	assert.False(t, r.RunOnce(context.Background()))
	assert.Equal(t, 0, src.calls)

	mr.Del(constants.KeyStatsRefreshLock)
	assert.True(t, r.RunOnce(context.Background()))
	assert.Equal(t, 1, src.calls)
	assert.False(t, mr.Exists(constants.KeyStatsRefreshLock), "执行完成后释放锁")
}

func TestRunOnce_WithoutRedis(t *testing.T) {
	src := &countingSource{}
	r := NewStatsRefresher(src, nil, "@every 1m")
	assert.True(t, r.RunOnce(context.Background()))

	src.err = errors.New("db down")
	assert.False(t, r.RunOnce(context.Background()))
	assert.Equal(t, 2, src.calls)
}

func TestStart_InvalidSpec(t *testing.T) {
	r := NewStatsRefresher(&countingSource{}, nil, "every now and then")
	assert.Error(t, r.Start())
}

func TestStartStop(t *testing.T) {
	r := NewStatsRefresher(&countingSource{}, nil, "@every 1h")
	require.NoError(t, r.Start())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	r.Stop(ctx)
}
