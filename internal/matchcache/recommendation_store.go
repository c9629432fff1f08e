package matchcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"skillmatch/internal/constants"
	"skillmatch/internal/storage/models"
	"skillmatch/internal/types"

	"github.com/gofrs/uuid/v5"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RecommendationEntry 学习建议缓存记录
type RecommendationEntry struct {
	CandidateID     string
	JobID           string
	Recommendations []types.SkillRecommendation
	GeneratedAt     time.Time
	ValidUntil      time.Time
}

// RecommendationStore 学习建议缓存
type RecommendationStore interface {
	GetValid(ctx context.Context, candidateID, jobID string, now time.Time) (*RecommendationEntry, error)
	Upsert(ctx context.Context, entry *RecommendationEntry, now time.Time) error
}

// GormRecommendationStore 基于 job_skill_recommendations 表
type GormRecommendationStore struct {
	db  *gorm.DB
	ttl time.Duration
}

var _ RecommendationStore = (*GormRecommendationStore)(nil)

func NewGormRecommendationStore(db *gorm.DB, ttl time.Duration) *GormRecommendationStore {
	if ttl <= 0 {
		ttl = constants.DefaultRecommendationTTL
	}
	return &GormRecommendationStore{db: db, ttl: ttl}
}

func (s *GormRecommendationStore) GetValid(ctx context.Context, candidateID, jobID string, now time.Time) (*RecommendationEntry, error) {
	var row models.JobSkillRecommendation
	err := s.db.WithContext(ctx).
		Where("candidate_id = ? AND job_id = ? AND valid_until > ?", candidateID, jobID, now).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, types.ErrNotFound
		}
		return nil, fmt.Errorf("查询学习建议缓存失败: %w", err)
	}

	entry := &RecommendationEntry{
		CandidateID: row.CandidateID,
		JobID:       row.JobID,
		GeneratedAt: row.GeneratedAt,
		ValidUntil:  row.ValidUntil,
	}
	if len(row.Recommendations) > 0 {
		if err := json.Unmarshal(row.Recommendations, &entry.Recommendations); err != nil {
			return nil, fmt.Errorf("解析学习建议失败: %w", err)
		}
	}
	if entry.Recommendations == nil {
		entry.Recommendations = []types.SkillRecommendation{}
	}
	return entry, nil
}

func (s *GormRecommendationStore) Upsert(ctx context.Context, entry *RecommendationEntry, now time.Time) error {
	recs := entry.Recommendations
	if recs == nil {
		recs = []types.SkillRecommendation{}
	}
	body, err := json.Marshal(recs)
	if err != nil {
		return fmt.Errorf("序列化学习建议失败: %w", err)
	}
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("生成ID失败: %w", err)
	}

	entry.GeneratedAt = now
	entry.ValidUntil = now.Add(s.ttl)

	row := &models.JobSkillRecommendation{
		ID:              id.String(),
		CandidateID:     entry.CandidateID,
		JobID:           entry.JobID,
		Recommendations: datatypes.JSON(body),
		GeneratedAt:     entry.GeneratedAt,
		ValidUntil:      entry.ValidUntil,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	err = s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "candidate_id"}, {Name: "job_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"recommendations", "generated_at", "valid_until", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return fmt.Errorf("写入学习建议缓存失败: %w", err)
	}
	return nil
}
