// Package compatibility 维护申请上的兼容性分析快照。
//
// 快照没有过期时间，只要分析时间晚于候选人档案和岗位的最后更新时间就继续使用。
package compatibility

import (
	"context"
	"fmt"
	"strings"
	"time"

	"skillmatch/internal/analysis"
	"skillmatch/internal/constants"
	"skillmatch/internal/freshness"
	"skillmatch/internal/logger"
	"skillmatch/internal/tracing"
	"skillmatch/internal/types"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("skillmatch/compatibility")

// Store 申请、候选人和岗位的数据访问，profiles.Repository 实现了该接口
type Store interface {
	FetchApplication(ctx context.Context, applicationID string) (*types.Application, error)
	FetchCandidateFullProfile(ctx context.Context, candidateID string) (*types.CandidateProfile, error)
	FetchJobFullRecord(ctx context.Context, jobID string) (*types.JobRecord, error)
	SaveApplicationAnalysis(ctx context.Context, applicationID string, analysis *types.CompatibilityAnalysis, analyzedAt time.Time) error
}

// EventSink 发布领域事件
type EventSink interface {
	Enqueue(ctx context.Context, aggregateID, eventType string, payload interface{}) error
}

// AnalyzedEvent compatibility.analyzed 事件内容
type AnalyzedEvent struct {
	ApplicationID string    `json:"applicationId"`
	CandidateID   string    `json:"candidateId"`
	JobID         string    `json:"jobId"`
	OverallScore  int       `json:"overallScore"`
	FitLevel      string    `json:"fitLevel"`
	AnalyzedAt    time.Time `json:"analyzedAt"`
}

type Service struct {
	store    Store
	analyzer analysis.CompatibilityAnalyzer
	events   EventSink
	now      func() time.Time
	log      zerolog.Logger
}

// NewService events 可以为 nil
func NewService(store Store, analyzer analysis.CompatibilityAnalyzer, events EventSink, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:    store,
		analyzer: analyzer,
		events:   events,
		now:      now,
		log:      logger.Component("compatibility"),
	}
}

// GetCompatibilitySnapshot 快照仍然新鲜且未要求强制刷新时直接返回，否则重新分析并覆盖快照
func (s *Service) GetCompatibilitySnapshot(ctx context.Context, applicationID string, force bool) (*types.SnapshotResponse, error) {
	applicationID = strings.TrimSpace(applicationID)
	if applicationID == "" {
		return nil, fmt.Errorf("%w: applicationId 不能为空", types.ErrInvalidArgument)
	}

	ctx, span := tracer.Start(ctx, "Compatibility.GetSnapshot", trace.WithAttributes(
		attribute.String("application.id", applicationID),
		attribute.Bool("force", force),
	))
	defer span.End()

	app, err := s.store.FetchApplication(ctx, applicationID)
	if err != nil {
		return nil, fmt.Errorf("读取申请: %w", err)
	}
	profile, err := s.store.FetchCandidateFullProfile(ctx, app.CandidateID)
	if err != nil {
		return nil, fmt.Errorf("读取候选人档案: %w", err)
	}
	span.SetAttributes(
		attribute.String("candidate.id", app.CandidateID),
		attribute.String("candidate.name", tracing.SafeAttributeValue("candidate.name", profile.FullName, tracing.DefaultMaxLength)),
		attribute.String("candidate.email", tracing.SafeAttributeValue("candidate.email", profile.Email, tracing.DefaultMaxLength)),
	)
	job, err := s.store.FetchJobFullRecord(ctx, app.JobID)
	if err != nil {
		return nil, fmt.Errorf("读取岗位: %w", err)
	}

	if !force && app.AnalysisData != nil && app.AnalyzedAt != nil &&
		freshness.IsStillValid(*app.AnalyzedAt, profile.UpdatedAt, job.UpdatedAt) {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return buildResponse(app.ApplicationID, profile, job, *app.AnalysisData, *app.AnalyzedAt, true), nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	result, err := s.analyzer.AnalyzeCandidateCompatibility(ctx, profile, job)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		s.log.Error().Err(err).Str("application_id", applicationID).Msg("兼容性分析失败")
		return nil, err
	}

	now := s.now()
	if err := s.store.SaveApplicationAnalysis(ctx, applicationID, &result, now); err != nil {
		w := &types.CachePersistenceWarning{Tier: "application", Op: "save_analysis", CandidateID: app.CandidateID, JobID: app.JobID, Err: err}
		tracing.RecordWarning(span, w, tracing.ErrorTypeCacheWrite)
		s.log.Warn().Err(err).Str("application_id", applicationID).Msg("兼容性快照写入失败")
	}

	if s.events != nil {
		evt := AnalyzedEvent{
			ApplicationID: applicationID,
			CandidateID:   app.CandidateID,
			JobID:         app.JobID,
			OverallScore:  result.OverallScore,
			FitLevel:      result.FitLevel,
			AnalyzedAt:    now,
		}
		if err := s.events.Enqueue(ctx, applicationID, constants.EventCompatibilityAnalyzed, evt); err != nil {
			s.log.Warn().Err(err).Str("application_id", applicationID).Msg("事件写入outbox失败")
		}
	}

	return buildResponse(applicationID, profile, job, result, now, false), nil
}

func buildResponse(applicationID string, profile *types.CandidateProfile, job *types.JobRecord, a types.CompatibilityAnalysis, analyzedAt time.Time, cached bool) *types.SnapshotResponse {
	return &types.SnapshotResponse{
		ApplicationID:   applicationID,
		CandidateName:   profile.FullName,
		JobTitle:        job.JobTitle,
		OverallScore:    a.OverallScore,
		ScoreBreakdown:  a.ScoreBreakdown,
		Strengths:       orEmpty(a.Strengths),
		SkillGaps:       orEmpty(a.SkillGaps),
		ExperienceGaps:  orEmpty(a.ExperienceGaps),
		Recommendations: orEmpty(a.Recommendations),
		FitLevel:        a.FitLevel,
		Summary:         a.Summary,
		AnalyzedAt:      analyzedAt,
		Cached:          cached,
	}
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
