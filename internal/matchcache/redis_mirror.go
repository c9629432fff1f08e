package matchcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"skillmatch/internal/constants"
	"skillmatch/internal/logger"
	"skillmatch/internal/storage"
	"skillmatch/internal/types"
)

// MirroredFastTier 在快速层前加一层 Redis 镜像。
// MySQL 仍是唯一的权威来源，Redis 读写失败只记录日志。
type MirroredFastTier struct {
	inner FastTier
	redis *storage.Redis
}

var _ FastTier = (*MirroredFastTier)(nil)

func NewMirroredFastTier(inner FastTier, redis *storage.Redis) *MirroredFastTier {
	return &MirroredFastTier{inner: inner, redis: redis}
}

func mirrorKey(candidateID, jobID string) string {
	return fmt.Sprintf(constants.KeyMatchFastScore, candidateID, jobID)
}

func (m *MirroredFastTier) GetValid(ctx context.Context, candidateID, jobID string, now time.Time) (*FastEntry, error) {
	key := mirrorKey(candidateID, jobID)

	var cached FastEntry
	err := m.redis.GetJSON(ctx, key, &cached)
	switch {
	case err == nil && cached.ValidUntil.After(now):
		return &cached, nil
	case err != nil && !errors.Is(err, storage.ErrNotFound):
		logger.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("读取Redis镜像失败，回退到MySQL")
	}

	entry, err := m.inner.GetValid(ctx, candidateID, jobID, now)
	if err != nil {
		return nil, err
	}

	if err := m.redis.SetJSON(ctx, key, entry, entry.ValidUntil.Sub(now)); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("回填Redis镜像失败")
	}
	return entry, nil
}

// Upsert 写入 MySQL 后删除镜像，下次读取时回填
func (m *MirroredFastTier) Upsert(ctx context.Context, entry *FastEntry, now time.Time) error {
	if err := m.inner.Upsert(ctx, entry, now); err != nil {
		return err
	}
	m.evict(ctx, entry.CandidateID, entry.JobID)
	return nil
}

func (m *MirroredFastTier) RecordHit(ctx context.Context, entryID string, now time.Time) error {
	return m.inner.RecordHit(ctx, entryID, now)
}

func (m *MirroredFastTier) Delete(ctx context.Context, candidateID, jobID string) error {
	m.evict(ctx, candidateID, jobID)
	if err := m.inner.Delete(ctx, candidateID, jobID); err != nil && !errors.Is(err, types.ErrNotFound) {
		return err
	}
	return nil
}

func (m *MirroredFastTier) evict(ctx context.Context, candidateID, jobID string) {
	key := mirrorKey(candidateID, jobID)
	if err := m.redis.Delete(ctx, key); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("key", key).Msg("删除Redis镜像失败")
	}
}
