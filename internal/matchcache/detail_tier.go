package matchcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"skillmatch/internal/constants"
	"skillmatch/internal/storage/models"
	"skillmatch/internal/tracing"
	"skillmatch/internal/types"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDetailTier 基于 job_skill_analysis 表的明细层
type GormDetailTier struct {
	db  *gorm.DB
	ttl time.Duration
}

var _ DetailTier = (*GormDetailTier)(nil)

func NewGormDetailTier(db *gorm.DB, ttl time.Duration) *GormDetailTier {
	if ttl <= 0 {
		ttl = constants.DefaultCacheTTL
	}
	return &GormDetailTier{db: db, ttl: ttl}
}

func (t *GormDetailTier) GetValid(ctx context.Context, candidateID, jobID string, now time.Time) (*DetailEntry, error) {
	ctx, span := tracer.Start(ctx, "DetailTier.GetValid", trace.WithAttributes(
		attribute.String("candidate.id", candidateID),
		attribute.String("job.id", jobID),
	))
	defer span.End()

	entry, err := t.take(ctx, t.db.WithContext(ctx).
		Where("candidate_id = ? AND job_id = ? AND cache_valid_until > ?", candidateID, jobID, now))
	if err != nil && !errors.Is(err, types.ErrNotFound) {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
	}
	span.SetAttributes(attribute.Bool("cache.hit", err == nil))
	return entry, err
}

func (t *GormDetailTier) GetLatest(ctx context.Context, candidateID, jobID string) (*DetailEntry, error) {
	return t.take(ctx, t.db.WithContext(ctx).
		Where("candidate_id = ? AND job_id = ?", candidateID, jobID).
		Order("analysis_date desc"))
}

func (t *GormDetailTier) take(ctx context.Context, q *gorm.DB) (*DetailEntry, error) {
	var row models.JobSkillAnalysis
	if err := q.Take(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("查询明细层失败: %w", err)
	}
	return detailEntryFromModel(&row)
}

func (t *GormDetailTier) Upsert(ctx context.Context, entry *DetailEntry, now time.Time) error {
	ctx, span := tracer.Start(ctx, "DetailTier.Upsert")
	defer span.End()

	if entry.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("生成ID失败: %w", err)
		}
		entry.ID = id.String()
	}
	entry.Result.MatchPercentage = ClampPercentage(entry.Result.MatchPercentage)
	entry.AnalysisDate = now
	entry.CacheValidUntil = now.Add(t.ttl)
	entry.IsCached = true
	entry.AICallCount = 1
	entry.CacheHitCount = 0

	row, err := detailEntryToModel(entry)
	if err != nil {
		return err
	}
	row.CreatedAt = now
	row.UpdatedAt = now

	err = t.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "candidate_id"}, {Name: "job_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"matching_skills", "missing_skills", "skill_match_percentage",
			"analysis_date", "cache_valid_until", "is_cached",
			"ai_call_count", "cache_hit_count", "updated_at",
		}),
	}).Create(row).Error
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return fmt.Errorf("写入明细层失败: %w", err)
	}
	return nil
}

func (t *GormDetailTier) RecordHit(ctx context.Context, entryID string, now time.Time) error {
	err := t.db.WithContext(ctx).Model(&models.JobSkillAnalysis{}).
		Where("id = ? AND cache_valid_until > ?", entryID, now).
		UpdateColumns(map[string]interface{}{
			"cache_hit_count": gorm.Expr("cache_hit_count + 1"),
			"updated_at":      now,
		}).Error
	if err != nil {
		return fmt.Errorf("更新明细层命中次数失败: %w", err)
	}
	return nil
}

func (t *GormDetailTier) Delete(ctx context.Context, candidateID, jobID string) error {
	err := t.db.WithContext(ctx).
		Where("candidate_id = ? AND job_id = ?", candidateID, jobID).
		Delete(&models.JobSkillAnalysis{}).Error
	if err != nil {
		return fmt.Errorf("删除明细层记录失败: %w", err)
	}
	return nil
}

func detailEntryFromModel(row *models.JobSkillAnalysis) (*DetailEntry, error) {
	entry := &DetailEntry{
		ID:              row.ID,
		CandidateID:     row.CandidateID,
		JobID:           row.JobID,
		AnalysisDate:    row.AnalysisDate,
		CacheValidUntil: row.CacheValidUntil,
		IsCached:        row.IsCached,
		AICallCount:     row.AICallCount,
		CacheHitCount:   row.CacheHitCount,
	}
	entry.Result.MatchPercentage = ClampPercentage(row.SkillMatchPercentage)

	if len(row.MatchingSkills) > 0 {
		if err := json.Unmarshal(row.MatchingSkills, &entry.Result.MatchingSkills); err != nil {
			return nil, fmt.Errorf("解析matching_skills失败: %w", err)
		}
	}
	if len(row.MissingSkills) > 0 {
		if err := json.Unmarshal(row.MissingSkills, &entry.Result.MissingSkills); err != nil {
			return nil, fmt.Errorf("解析missing_skills失败: %w", err)
		}
	}
	if entry.Result.MatchingSkills == nil {
		entry.Result.MatchingSkills = []types.MatchingSkill{}
	}
	if entry.Result.MissingSkills == nil {
		entry.Result.MissingSkills = []types.MissingSkill{}
	}
	return entry, nil
}

func detailEntryToModel(e *DetailEntry) (*models.JobSkillAnalysis, error) {
	matching, err := json.Marshal(nonNilMatching(e.Result.MatchingSkills))
	if err != nil {
		return nil, fmt.Errorf("序列化matching_skills失败: %w", err)
	}
	missing, err := json.Marshal(nonNilMissing(e.Result.MissingSkills))
	if err != nil {
		return nil, fmt.Errorf("序列化missing_skills失败: %w", err)
	}
	return &models.JobSkillAnalysis{
		ID:                   e.ID,
		CandidateID:          e.CandidateID,
		JobID:                e.JobID,
		MatchingSkills:       datatypes.JSON(matching),
		MissingSkills:        datatypes.JSON(missing),
		SkillMatchPercentage: e.Result.MatchPercentage,
		AnalysisDate:         e.AnalysisDate,
		CacheValidUntil:      e.CacheValidUntil,
		IsCached:             e.IsCached,
		AICallCount:          e.AICallCount,
		CacheHitCount:        e.CacheHitCount,
	}, nil
}

func nonNilMatching(s []types.MatchingSkill) []types.MatchingSkill {
	if s == nil {
		return []types.MatchingSkill{}
	}
	return s
}

func nonNilMissing(s []types.MissingSkill) []types.MissingSkill {
	if s == nil {
		return []types.MissingSkill{}
	}
	return s
}
