// Package scheduler 定时任务。
package scheduler

import (
	"context"
	"fmt"
	"time"

	"skillmatch/internal/cachestats"
	"skillmatch/internal/constants"
	"skillmatch/internal/logger"
	"skillmatch/internal/storage"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// StatsSource cachestats.Service 实现了该接口
type StatsSource interface {
	Refresh(ctx context.Context) (*cachestats.Report, error)
}

// StatsRefresher 定时刷新缓存统计快照。多实例部署时用 Redis 锁保证同一时间只有一个实例在算。
type StatsRefresher struct {
	source  StatsSource
	redis   *storage.Redis
	spec    string
	lockTTL time.Duration
	cron    *cron.Cron
	log     zerolog.Logger
}

// NewStatsRefresher redis 为 nil 时不加锁
func NewStatsRefresher(source StatsSource, redis *storage.Redis, spec string) *StatsRefresher {
	if spec == "" {
		spec = "@every 5m"
	}
	return &StatsRefresher{
		source:  source,
		redis:   redis,
		spec:    spec,
		lockTTL: constants.DefaultStatsRefreshLockTTL,
		cron:    cron.New(),
		log:     logger.Component("scheduler"),
	}
}

func (s *StatsRefresher) Start() error {
	if _, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.lockTTL)
		defer cancel()
		s.RunOnce(ctx)
	}); err != nil {
		return fmt.Errorf("注册统计刷新任务失败 (%s): %w", s.spec, err)
	}
	s.cron.Start()
	s.log.Info().Str("spec", s.spec).Msg("统计刷新任务已启动")
	return nil
}

// Stop 等待正在执行的任务结束
func (s *StatsRefresher) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// RunOnce 执行一次刷新，返回是否真正执行
func (s *StatsRefresher) RunOnce(ctx context.Context) bool {
	if s.redis != nil {
		lockValue, err := s.redis.AcquireLock(ctx, constants.KeyStatsRefreshLock, s.lockTTL)
		if err != nil {
			s.log.Warn().Err(err).Msg("获取统计刷新锁失败，跳过本次刷新")
			return false
		}
		if lockValue == "" {
			s.log.Debug().Msg("其他实例正在刷新统计")
			return false
		}
		defer func() {
			if _, err := s.redis.ReleaseLock(context.Background(), constants.KeyStatsRefreshLock, lockValue); err != nil {
				s.log.Warn().Err(err).Msg("释放统计刷新锁失败")
			}
		}()
	}

	report, err := s.source.Refresh(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("刷新缓存统计失败")
		return false
	}
	s.log.Info().
		Float64("hit_rate", report.CacheEfficiency.CacheHitRate).
		Str("tier", report.RecommendationTier).
		Int64("valid_entries", report.CacheEfficiency.ValidCacheEntries).
		Msg("缓存统计已刷新")
	return true
}
