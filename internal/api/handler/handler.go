// Package handler HTTP 接口处理。
package handler

import (
	"context"
	"errors"

	"skillmatch/internal/cachestats"
	"skillmatch/internal/logger"
	"skillmatch/internal/matching"
	"skillmatch/internal/tracing"
	"skillmatch/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"go.opentelemetry.io/otel/trace"
)

// MatchService 技能匹配
type MatchService interface {
	GetMatch(ctx context.Context, candidateID, jobID string) (*types.MatchResponse, error)
	InvalidateMatch(ctx context.Context, candidateID, jobID, scope string) (*matching.InvalidationResult, error)
}

type RecommendationService interface {
	GetRecommendations(ctx context.Context, candidateID, jobID string) (*types.RecommendationResponse, error)
}

type ExtractionService interface {
	ExtractJobSkills(ctx context.Context, jobID string, manualSkills []string) (*matching.ExtractionResponse, error)
}

type CompatibilityService interface {
	GetCompatibilitySnapshot(ctx context.Context, applicationID string, force bool) (*types.SnapshotResponse, error)
}

type StatsService interface {
	GetCacheStatistics(ctx context.Context) (*cachestats.Report, error)
}

// Pinger 健康检查依赖
type Pinger func(ctx context.Context) error

// Handler 所有接口共用一个处理器
type Handler struct {
	matches         MatchService
	recommendations RecommendationService
	extraction      ExtractionService
	compatibility   CompatibilityService
	stats           StatsService
	pingers         map[string]Pinger
}

// Services 构造 Handler 所需的服务
type Services struct {
	Matches         MatchService
	Recommendations RecommendationService
	Extraction      ExtractionService
	Compatibility   CompatibilityService
	Stats           StatsService
	// Pingers 按名称检查依赖，例如 mysql、redis
	Pingers map[string]Pinger
}

func NewHandler(s Services) *Handler {
	return &Handler{
		matches:         s.Matches,
		recommendations: s.Recommendations,
		extraction:      s.Extraction,
		compatibility:   s.Compatibility,
		stats:           s.Stats,
		pingers:         s.Pingers,
	}
}

// HandleHealth GET /api/v1/health
func (h *Handler) HandleHealth(ctx context.Context, c *app.RequestContext) {
	status := consts.StatusOK
	components := utils.H{}
	for name, ping := range h.pingers {
		if err := ping(ctx); err != nil {
			components[name] = err.Error()
			status = consts.StatusServiceUnavailable
			continue
		}
		components[name] = "ok"
	}

	state := "ok"
	if status != consts.StatusOK {
		state = "degraded"
	}
	c.JSON(status, utils.H{"status": state, "components": components})
}

// writeError 把服务层错误映射为HTTP响应，分析类错误不返回任何分数
func writeError(ctx context.Context, c *app.RequestContext, err error) {
	status := consts.StatusInternalServerError
	body := utils.H{"error": "Internal Server Error", "message": err.Error()}
	switch {
	case errors.Is(err, types.ErrNotFound):
		status = consts.StatusNotFound
		body["error"] = "Not Found"
	case errors.Is(err, types.ErrInvalidArgument):
		status = consts.StatusBadRequest
		body["error"] = "Bad Request"
	case types.IsRetryable(err):
		body["error"] = "Analysis Unavailable"
		if errors.Is(err, types.ErrMalformedAnalysisResult) {
			body["error"] = "Malformed Analysis Result"
		}
		body["retryable"] = true
		body["suggestion"] = "The analysis service could not produce a result. Please retry the request in a few moments."
	default:
		logger.Ctx(ctx).Error().Err(err).Str("path", string(c.Path())).Msg("请求处理失败")
	}

	tracing.RecordHTTPError(trace.SpanFromContext(ctx), err, status)
	c.JSON(status, body)
}

func badRequest(c *app.RequestContext, msg string) {
	c.JSON(consts.StatusBadRequest, utils.H{"error": "Bad Request", "message": msg})
}
