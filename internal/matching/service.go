// Package matching 组织技能匹配的缓存读取、实时分析和缓存写入。
package matching

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"skillmatch/internal/analysis"
	"skillmatch/internal/config"
	"skillmatch/internal/constants"
	"skillmatch/internal/logger"
	"skillmatch/internal/matchcache"
	"skillmatch/internal/tracing"
	"skillmatch/internal/types"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("skillmatch/matching")

// SkillSource 读取匹配所需的技能列表，候选人或岗位不存在时返回 types.ErrNotFound
type SkillSource interface {
	FetchCandidateSkills(ctx context.Context, candidateID string) ([]types.CandidateSkill, error)
	FetchJobSkills(ctx context.Context, jobID string) ([]types.JobSkill, error)
}

// EventSink 发布领域事件，outbox.Writer 实现了该接口
type EventSink interface {
	Enqueue(ctx context.Context, aggregateID, eventType string, payload interface{}) error
}

// MatchComputedEvent skill_match.computed 事件内容
type MatchComputedEvent struct {
	CandidateID     string                  `json:"candidateId"`
	JobID           string                  `json:"jobId"`
	MatchPercentage int                     `json:"matchPercentage"`
	Breakdown       types.CategoryBreakdown `json:"breakdown"`
	ComputedAt      time.Time               `json:"computedAt"`
}

// MatchInvalidatedEvent skill_match.invalidated 事件内容
type MatchInvalidatedEvent struct {
	CandidateID   string    `json:"candidateId"`
	JobID         string    `json:"jobId"`
	Scope         string    `json:"scope"`
	InvalidatedAt time.Time `json:"invalidatedAt"`
}

// InvalidationResult InvalidateMatch 的返回结构
type InvalidationResult struct {
	CandidateID   string    `json:"candidateId"`
	JobID         string    `json:"jobId"`
	Scope         string    `json:"scope"`
	InvalidatedAt time.Time `json:"invalidatedAt"`
}

// Options 服务的可选设置
type Options struct {
	// TotalsPolicy preferred/nice_to_have 总数的统计口径，默认 missing_only
	TotalsPolicy string
	// DefaultScope InvalidateMatch 未指定范围时使用，默认 all
	DefaultScope string
	Events       EventSink
	Now          func() time.Time
}

// Service 技能匹配编排：快速层 -> 明细层 -> 实时分析
type Service struct {
	fast     matchcache.FastTier
	detail   matchcache.DetailTier
	skills   SkillSource
	analyzer analysis.SkillMatchAnalyzer

	totalsPolicy string
	defaultScope string
	events       EventSink
	now          func() time.Time
	log          zerolog.Logger
}

func NewService(fast matchcache.FastTier, detail matchcache.DetailTier, skills SkillSource, analyzer analysis.SkillMatchAnalyzer, opts Options) *Service {
	s := &Service{
		fast:         fast,
		detail:       detail,
		skills:       skills,
		analyzer:     analyzer,
		totalsPolicy: opts.TotalsPolicy,
		defaultScope: opts.DefaultScope,
		events:       opts.Events,
		now:          opts.Now,
		log:          logger.Component("matching"),
	}
	if s.totalsPolicy != config.PolicyMatchedPlusMissing {
		s.totalsPolicy = config.PolicyMissingOnly
	}
	if !validScope(s.defaultScope) {
		s.defaultScope = config.ScopeAll
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// GetMatch 返回候选人与岗位的技能匹配结果。
// 分析失败时返回 ErrAnalysisUnavailable 或 ErrMalformedAnalysisResult，且不写任何缓存。
func (s *Service) GetMatch(ctx context.Context, candidateID, jobID string) (*types.MatchResponse, error) {
	candidateID, jobID = strings.TrimSpace(candidateID), strings.TrimSpace(jobID)
	if candidateID == "" || jobID == "" {
		return nil, fmt.Errorf("%w: candidateId 和 jobId 不能为空", types.ErrInvalidArgument)
	}

	ctx, span := tracer.Start(ctx, "Matching.GetMatch", trace.WithAttributes(
		attribute.String("candidate.id", candidateID),
		attribute.String("job.id", jobID),
	))
	defer span.End()

	now := s.now()

	if resp, ok := s.fromFastTier(ctx, candidateID, jobID, now); ok {
		span.SetAttributes(attribute.String("cache.source", string(resp.CacheSource)))
		return resp, nil
	}
	if resp, ok := s.fromDetailTier(ctx, candidateID, jobID, now); ok {
		span.SetAttributes(attribute.String("cache.source", string(resp.CacheSource)))
		return resp, nil
	}

	resp, err := s.computeFresh(ctx, candidateID, jobID, now)
	if err != nil {
		errType := tracing.ErrorTypeLLM
		if errors.Is(err, types.ErrNotFound) {
			errType = tracing.ErrorTypeValidation
		}
		tracing.RecordError(span, err, errType)
		return nil, err
	}
	span.SetAttributes(attribute.String("cache.source", string(resp.CacheSource)))
	return resp, nil
}

func (s *Service) fromFastTier(ctx context.Context, candidateID, jobID string, now time.Time) (*types.MatchResponse, bool) {
	entry, err := s.fast.GetValid(ctx, candidateID, jobID, now)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			s.log.Warn().Err(err).Str("candidate_id", candidateID).Str("job_id", jobID).Msg("读取快速层失败，按未命中处理")
		}
		return nil, false
	}

	if err := s.fast.RecordHit(ctx, entry.ID, now); err != nil {
		s.log.Warn().Err(err).Str("entry_id", entry.ID).Msg("快速层命中计数失败")
	}

	return &types.MatchResponse{
		CandidateID:     candidateID,
		JobID:           jobID,
		MatchingSkills:  []types.MatchingSkill{},
		MissingSkills:   []types.MissingSkill{},
		MatchPercentage: matchcache.ClampPercentage(entry.OverallMatchPercentage),
		Breakdown:       entry.Breakdown,
		AnalysisDate:    entry.ComputedAt,
		Cached:          true,
		CacheSource:     types.CacheSourceFast,
	}, true
}

func (s *Service) fromDetailTier(ctx context.Context, candidateID, jobID string, now time.Time) (*types.MatchResponse, bool) {
	entry, err := s.detail.GetValid(ctx, candidateID, jobID, now)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			s.log.Warn().Err(err).Str("candidate_id", candidateID).Str("job_id", jobID).Msg("读取明细层失败，按未命中处理")
		}
		return nil, false
	}
	if !entry.IsCached {
		return nil, false
	}

	if err := s.detail.RecordHit(ctx, entry.ID, now); err != nil {
		s.log.Warn().Err(err).Str("entry_id", entry.ID).Msg("明细层命中计数失败")
	}

	result := entry.Result
	// 明细层没有保存岗位技能总数，按列表长度估算
	jobSkillCount := len(result.MatchingSkills) + len(result.MissingSkills)
	return &types.MatchResponse{
		CandidateID:     candidateID,
		JobID:           jobID,
		MatchingSkills:  nonNilMatching(result.MatchingSkills),
		MissingSkills:   nonNilMissing(result.MissingSkills),
		MatchPercentage: matchcache.ClampPercentage(result.MatchPercentage),
		Breakdown:       DeriveBreakdown(result, jobSkillCount, s.totalsPolicy),
		AnalysisDate:    entry.AnalysisDate,
		Cached:          true,
		CacheSource:     types.CacheSourceDetail,
	}, true
}

func (s *Service) computeFresh(ctx context.Context, candidateID, jobID string, now time.Time) (*types.MatchResponse, error) {
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
		s.log.Error().Err(err).Str("candidate_id", candidateID).Str("job_id", jobID).Msg("技能匹配分析失败")
		return nil, err
	}
	result.MatchPercentage = matchcache.ClampPercentage(result.MatchPercentage)
	result.MatchingSkills = nonNilMatching(result.MatchingSkills)
	result.MissingSkills = nonNilMissing(result.MissingSkills)

	breakdown := DeriveBreakdown(result, len(jobSkills), s.totalsPolicy)
	s.persist(ctx, candidateID, jobID, result, breakdown, now)

	return &types.MatchResponse{
		CandidateID:     candidateID,
		JobID:           jobID,
		MatchingSkills:  result.MatchingSkills,
		MissingSkills:   result.MissingSkills,
		MatchPercentage: result.MatchPercentage,
		Breakdown:       breakdown,
		AnalysisDate:    now,
		Cached:          false,
		CacheSource:     types.CacheSourceFresh,
	}, nil
}

// persist 先写明细层再写快速层，任何失败只记录日志
func (s *Service) persist(ctx context.Context, candidateID, jobID string, result types.MatchResult, breakdown types.CategoryBreakdown, now time.Time) {
	span := trace.SpanFromContext(ctx)

	detailErr := s.detail.Upsert(ctx, &matchcache.DetailEntry{
		CandidateID: candidateID,
		JobID:       jobID,
		Result:      result,
	}, now)
	if detailErr != nil {
		s.warnPersistence(span, &types.CachePersistenceWarning{Tier: "detail", Op: "upsert", CandidateID: candidateID, JobID: jobID, Err: detailErr})
	}

	fastErr := s.fast.Upsert(ctx, &matchcache.FastEntry{
		CandidateID:            candidateID,
		JobID:                  jobID,
		OverallMatchPercentage: result.MatchPercentage,
		Breakdown:              breakdown,
	}, now)
	if fastErr != nil {
		s.warnPersistence(span, &types.CachePersistenceWarning{Tier: "fast", Op: "upsert", CandidateID: candidateID, JobID: jobID, Err: fastErr})
	}

	s.emit(ctx, candidateID+":"+jobID, constants.EventSkillMatchComputed, MatchComputedEvent{
		CandidateID:     candidateID,
		JobID:           jobID,
		MatchPercentage: result.MatchPercentage,
		Breakdown:       breakdown,
		ComputedAt:      now,
	})
}

func (s *Service) warnPersistence(span trace.Span, w *types.CachePersistenceWarning) {
	tracing.RecordWarning(span, w, tracing.ErrorTypeCacheWrite)
	s.log.Warn().Err(w.Err).
		Str("tier", w.Tier).
		Str("op", w.Op).
		Str("candidate_id", w.CandidateID).
		Str("job_id", w.JobID).
		Msg("缓存写入失败")
}

func (s *Service) emit(ctx context.Context, aggregateID, eventType string, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Enqueue(ctx, aggregateID, eventType, payload); err != nil {
		s.log.Warn().Err(err).Str("event_type", eventType).Str("aggregate_id", aggregateID).Msg("事件写入outbox失败")
	}
}

// InvalidateMatch 按范围清除缓存。scope 为空时使用默认范围。
func (s *Service) InvalidateMatch(ctx context.Context, candidateID, jobID, scope string) (*InvalidationResult, error) {
	candidateID, jobID = strings.TrimSpace(candidateID), strings.TrimSpace(jobID)
	if candidateID == "" || jobID == "" {
		return nil, fmt.Errorf("%w: candidateId 和 jobId 不能为空", types.ErrInvalidArgument)
	}
	scope = strings.ToLower(strings.TrimSpace(scope))
	if scope == "" {
		scope = s.defaultScope
	}
	if !validScope(scope) {
		return nil, fmt.Errorf("%w: 未知的范围 %q", types.ErrInvalidArgument, scope)
	}

	ctx, span := tracer.Start(ctx, "Matching.InvalidateMatch", trace.WithAttributes(
		attribute.String("candidate.id", candidateID),
		attribute.String("job.id", jobID),
		attribute.String("scope", scope),
	))
	defer span.End()

	// 两层都尝试清除，一层失败不影响另一层
	var errs []error
	if scope == config.ScopeAll || scope == config.ScopeDetail {
		if err := s.detail.Delete(ctx, candidateID, jobID); err != nil {
			errs = append(errs, fmt.Errorf("清除明细层: %w", err))
		}
	}
	if scope == config.ScopeAll || scope == config.ScopeFast {
		if err := s.fast.Delete(ctx, candidateID, jobID); err != nil {
			errs = append(errs, fmt.Errorf("清除快速层: %w", err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return nil, err
	}

	now := s.now()
	s.log.Info().Str("candidate_id", candidateID).Str("job_id", jobID).Str("scope", scope).Msg("匹配缓存已清除")
	s.emit(ctx, candidateID+":"+jobID, constants.EventSkillMatchInvalidated, MatchInvalidatedEvent{
		CandidateID:   candidateID,
		JobID:         jobID,
		Scope:         scope,
		InvalidatedAt: now,
	})

	return &InvalidationResult{
		CandidateID:   candidateID,
		JobID:         jobID,
		Scope:         scope,
		InvalidatedAt: now,
	}, nil
}

func validScope(scope string) bool {
	switch scope {
	case config.ScopeAll, config.ScopeDetail, config.ScopeFast:
		return true
	}
	return false
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
