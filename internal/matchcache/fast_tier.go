package matchcache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"skillmatch/internal/constants"
	"skillmatch/internal/storage/models"
	"skillmatch/internal/tracing"
	"skillmatch/internal/types"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var tracer = otel.Tracer("skillmatch/matchcache")

// GormFastTier 基于 skill_match_scores 表的快速层
type GormFastTier struct {
	db  *gorm.DB
	ttl time.Duration
}

var _ FastTier = (*GormFastTier)(nil)

// NewGormFastTier ttl<=0 时使用默认30天
func NewGormFastTier(db *gorm.DB, ttl time.Duration) *GormFastTier {
	if ttl <= 0 {
		ttl = constants.DefaultCacheTTL
	}
	return &GormFastTier{db: db, ttl: ttl}
}

func (t *GormFastTier) GetValid(ctx context.Context, candidateID, jobID string, now time.Time) (*FastEntry, error) {
	ctx, span := tracer.Start(ctx, "FastTier.GetValid", trace.WithAttributes(
		attribute.String("candidate.id", candidateID),
		attribute.String("job.id", jobID),
	))
	defer span.End()

	var row models.SkillMatchScore
	err := t.db.WithContext(ctx).
		Where("candidate_id = ? AND job_id = ? AND score_valid_until > ?", candidateID, jobID, now).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			span.SetAttributes(attribute.Bool("cache.hit", false))
			return nil, types.ErrNotFound
		}
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, fmt.Errorf("查询快速层失败: %w", err)
	}

	span.SetAttributes(attribute.Bool("cache.hit", true))
	return fastEntryFromModel(&row), nil
}

func (t *GormFastTier) Upsert(ctx context.Context, entry *FastEntry, now time.Time) error {
	ctx, span := tracer.Start(ctx, "FastTier.Upsert")
	defer span.End()

	if entry.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("生成ID失败: %w", err)
		}
		entry.ID = id.String()
	}
	entry.OverallMatchPercentage = ClampPercentage(entry.OverallMatchPercentage)
	entry.Breakdown = NormalizeBreakdown(entry.Breakdown)
	entry.ComputedAt = now
	entry.ValidUntil = now.Add(t.ttl)
	entry.HitCount = 0

	row := fastEntryToModel(entry)
	row.CreatedAt = now
	row.UpdatedAt = now

	err := t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "candidate_id"}, {Name: "job_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"overall_match_percentage",
			"required_skills_matched", "required_skills_total",
			"preferred_skills_matched", "preferred_skills_total",
			"nice_to_have_matched", "nice_to_have_total",
			"hit_count", "score_computed_at", "score_valid_until", "updated_at",
		}),
	}).Create(row).Error
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return fmt.Errorf("写入快速层失败: %w", err)
	}
	return nil
}

func (t *GormFastTier) RecordHit(ctx context.Context, entryID string, now time.Time) error {
	err := t.db.WithContext(ctx).Model(&models.SkillMatchScore{}).
		Where("id = ? AND score_valid_until > ?", entryID, now).
		UpdateColumns(map[string]interface{}{
			"hit_count":  gorm.Expr("hit_count + 1"),
			"updated_at": now,
		}).Error
	if err != nil {
		return fmt.Errorf("更新快速层命中次数失败: %w", err)
	}
	return nil
}

func (t *GormFastTier) Delete(ctx context.Context, candidateID, jobID string) error {
	err := t.db.WithContext(ctx).
		Where("candidate_id = ? AND job_id = ?", candidateID, jobID).
		Delete(&models.SkillMatchScore{}).Error
	if err != nil {
		return fmt.Errorf("删除快速层记录失败: %w", err)
	}
	return nil
}

func fastEntryFromModel(row *models.SkillMatchScore) *FastEntry {
	return &FastEntry{
		ID:                     row.ID,
		CandidateID:            row.CandidateID,
		JobID:                  row.JobID,
		OverallMatchPercentage: ClampPercentage(row.OverallMatchPercentage),
		Breakdown: types.CategoryBreakdown{
			RequiredMatched:   row.RequiredSkillsMatched,
			RequiredTotal:     row.RequiredSkillsTotal,
			PreferredMatched:  row.PreferredSkillsMatched,
			PreferredTotal:    row.PreferredSkillsTotal,
			NiceToHaveMatched: row.NiceToHaveMatched,
			NiceToHaveTotal:   row.NiceToHaveTotal,
		},
		ComputedAt: row.ScoreComputedAt,
		ValidUntil: row.ScoreValidUntil,
		HitCount:   row.HitCount,
	}
}

func fastEntryToModel(e *FastEntry) *models.SkillMatchScore {
	return &models.SkillMatchScore{
		ID:                     e.ID,
		CandidateID:            e.CandidateID,
		JobID:                  e.JobID,
		OverallMatchPercentage: e.OverallMatchPercentage,
		RequiredSkillsMatched:  e.Breakdown.RequiredMatched,
		RequiredSkillsTotal:    e.Breakdown.RequiredTotal,
		PreferredSkillsMatched: e.Breakdown.PreferredMatched,
		PreferredSkillsTotal:   e.Breakdown.PreferredTotal,
		NiceToHaveMatched:      e.Breakdown.NiceToHaveMatched,
		NiceToHaveTotal:        e.Breakdown.NiceToHaveTotal,
		HitCount:               e.HitCount,
		ScoreComputedAt:        e.ComputedAt,
		ScoreValidUntil:        e.ValidUntil,
	}
}
