package cachestats

import (
	"context"
	"errors"
	"time"

	"skillmatch/internal/constants"
	"skillmatch/internal/logger"
	"skillmatch/internal/storage"

	"github.com/rs/zerolog"
)

// CounterSource Collector 实现了该接口
type CounterSource interface {
	Collect(ctx context.Context, now time.Time) (CacheCounters, ScoreCounters, error)
}

// Service 统计报告，结果在 Redis 中缓存一小段时间
type Service struct {
	source      CounterSource
	redis       *storage.Redis
	snapshotTTL time.Duration
	now         func() time.Time
	log         zerolog.Logger
}

// NewService redis 为 nil 时每次都实时计算
func NewService(source CounterSource, redis *storage.Redis, snapshotTTL time.Duration, now func() time.Time) *Service {
	if snapshotTTL <= 0 {
		snapshotTTL = 60 * time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &Service{
		source:      source,
		redis:       redis,
		snapshotTTL: snapshotTTL,
		now:         now,
		log:         logger.Component("cachestats"),
	}
}

// GetCacheStatistics 优先返回 Redis 中的快照
func (s *Service) GetCacheStatistics(ctx context.Context) (*Report, error) {
	if s.redis != nil {
		var cached Report
		err := s.redis.GetJSON(ctx, constants.KeyCacheStatsSnapshot, &cached)
		if err == nil {
			return &cached, nil
		}
		if !errors.Is(err, storage.ErrNotFound) {
			s.log.Warn().Err(err).Msg("读取统计快照失败，实时计算")
		}
	}
	return s.Refresh(ctx)
}

// Refresh 重新计算并覆盖快照
func (s *Service) Refresh(ctx context.Context) (*Report, error) {
	now := s.now()
	cache, scores, err := s.source.Collect(ctx, now)
	if err != nil {
		return nil, err
	}
	report := Summarize(cache, scores, now)

	if s.redis != nil {
		if err := s.redis.SetJSON(ctx, constants.KeyCacheStatsSnapshot, report, s.snapshotTTL); err != nil {
			s.log.Warn().Err(err).Msg("写入统计快照失败")
		}
	}
	return &report, nil
}
