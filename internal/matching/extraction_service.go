package matching

import (
	"context"
	"fmt"
	"strings"
	"time"

	"skillmatch/internal/analysis"
	"skillmatch/internal/logger"
	"skillmatch/internal/types"

	"github.com/rs/zerolog"
)

// JobSkillStore 岗位信息读取和技能替换
type JobSkillStore interface {
	FetchJobFullRecord(ctx context.Context, jobID string) (*types.JobRecord, error)
	ReplaceJobSkills(ctx context.Context, jobID string, skills []types.ExtractedSkill, now time.Time) error
}

// ExtractionResponse 技能提取的返回结构
type ExtractionResponse struct {
	JobID       string                 `json:"jobId"`
	Skills      []types.ExtractedSkill `json:"skills"`
	ExtractedAt time.Time              `json:"extractedAt"`
}

// SkillExtractionService 从岗位描述中提取技能并覆盖岗位的技能列表
type SkillExtractionService struct {
	jobs      JobSkillStore
	extractor analysis.SkillExtractor
	now       func() time.Time
	log       zerolog.Logger
}

func NewSkillExtractionService(jobs JobSkillStore, extractor analysis.SkillExtractor, now func() time.Time) *SkillExtractionService {
	if now == nil {
		now = time.Now
	}
	return &SkillExtractionService{
		jobs:      jobs,
		extractor: extractor,
		now:       now,
		log:       logger.Component("skill_extraction"),
	}
}

// ExtractJobSkills 手工指定的技能即使模型没有返回也会保留，按 required 处理
func (s *SkillExtractionService) ExtractJobSkills(ctx context.Context, jobID string, manualSkills []string) (*ExtractionResponse, error) {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return nil, fmt.Errorf("%w: jobId 不能为空", types.ErrInvalidArgument)
	}

	job, err := s.jobs.FetchJobFullRecord(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("读取岗位: %w", err)
	}

	extracted, err := s.extractor.ExtractJobSkills(ctx, job, manualSkills)
	if err != nil {
		s.log.Error().Err(err).Str("job_id", jobID).Msg("技能提取失败")
		return nil, err
	}

	for _, m := range manualSkills {
		extracted = append(extracted, types.ExtractedSkill{Skill: m, Importance: string(types.RequirementRequired)})
	}
	skills := analysis.NormalizeExtractedSkills(extracted)

	now := s.now()
	if err := s.jobs.ReplaceJobSkills(ctx, jobID, skills, now); err != nil {
		return nil, fmt.Errorf("保存岗位技能: %w", err)
	}

	s.log.Info().Str("job_id", jobID).Int("skills", len(skills)).Msg("岗位技能已更新")
	return &ExtractionResponse{
		JobID:       jobID,
		Skills:      skills,
		ExtractedAt: now,
	}, nil
}
