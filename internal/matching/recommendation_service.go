package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"skillmatch/internal/analysis"
	"skillmatch/internal/logger"
	"skillmatch/internal/matchcache"
	"skillmatch/internal/types"

	"github.com/rs/zerolog"
)

// RecommendationService 针对缺失技能的学习建议，结果按组合缓存
type RecommendationService struct {
	store       matchcache.RecommendationStore
	detail      matchcache.DetailTier
	skills      SkillSource
	analyzer    analysis.SkillMatchAnalyzer
	recommender analysis.Recommender
	now         func() time.Time
	log         zerolog.Logger
}

func NewRecommendationService(
	store matchcache.RecommendationStore,
	detail matchcache.DetailTier,
	skills SkillSource,
	analyzer analysis.SkillMatchAnalyzer,
	recommender analysis.Recommender,
	now func() time.Time,
) *RecommendationService {
	if now == nil {
		now = time.Now
	}
	return &RecommendationService{
		store:       store,
		detail:      detail,
		skills:      skills,
		analyzer:    analyzer,
		recommender: recommender,
		now:         now,
		log:         logger.Component("recommendation"),
	}
}

// GetRecommendations 建议生成失败时返回空列表，不写缓存
func (s *RecommendationService) GetRecommendations(ctx context.Context, candidateID, jobID string) (*types.RecommendationResponse, error) {
	candidateID, jobID = strings.TrimSpace(candidateID), strings.TrimSpace(jobID)
	if candidateID == "" || jobID == "" {
		return nil, fmt.Errorf("%w: candidateId 和 jobId 不能为空", types.ErrInvalidArgument)
	}

	now := s.now()
	cached, err := s.store.GetValid(ctx, candidateID, jobID, now)
	switch {
	case err == nil:
		return &types.RecommendationResponse{
			CandidateID:     candidateID,
			JobID:           jobID,
			Recommendations: cached.Recommendations,
			GeneratedAt:     cached.GeneratedAt,
			Cached:          true,
		}, nil
	case !errors.Is(err, types.ErrNotFound):
		s.log.Warn().Err(err).Str("candidate_id", candidateID).Str("job_id", jobID).Msg("读取建议缓存失败")
	}

	missing, err := s.missingSkills(ctx, candidateID, jobID)
	if err != nil {
		return nil, err
	}

	resp := &types.RecommendationResponse{
		CandidateID:     candidateID,
		JobID:           jobID,
		Recommendations: []types.SkillRecommendation{},
		GeneratedAt:     now,
	}
	if len(missing) == 0 {
		return resp, nil
	}

	recs, err := s.recommender.RecommendSkills(ctx, missing)
	if err != nil {
		s.log.Warn().Err(err).Str("candidate_id", candidateID).Str("job_id", jobID).Msg("生成学习建议失败，返回空列表")
		return resp, nil
	}
	resp.Recommendations = recs

	if err := s.store.Upsert(ctx, &matchcache.RecommendationEntry{
		CandidateID:     candidateID,
		JobID:           jobID,
		Recommendations: recs,
	}, now); err != nil {
		w := &types.CachePersistenceWarning{Tier: "recommendation", Op: "upsert", CandidateID: candidateID, JobID: jobID, Err: err}
		s.log.Warn().Err(w).Msg("建议缓存写入失败")
	}
	return resp, nil
}

// missingSkills 优先用最近一次明细分析，不看是否过期
func (s *RecommendationService) missingSkills(ctx context.Context, candidateID, jobID string) ([]types.MissingSkill, error) {
	latest, err := s.detail.GetLatest(ctx, candidateID, jobID)
	if err == nil {
		return latest.Result.MissingSkills, nil
	}
	if !errors.Is(err, types.ErrNotFound) {
		s.log.Warn().Err(err).Str("candidate_id", candidateID).Str("job_id", jobID).Msg("读取明细层失败，改为重新分析")
	}

	candidateSkills, err := s.skills.FetchCandidateSkills(ctx, candidateID)
	if err != nil {
		return nil, fmt.Errorf("读取候选人技能: %w", err)
	}
	jobSkills, err := s.skills.FetchJobSkills(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("读取岗位技能: %w", err)
	}

	result, err := s.analyzer.AnalyzeSkillMatch(ctx, candidateSkills, jobSkills)
	if err != nil {
		return nil, err
	}
	return result.MissingSkills, nil
}
