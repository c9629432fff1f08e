package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"skillmatch/internal/api/handler"
	"skillmatch/internal/api/middleware"
	"skillmatch/internal/api/router"
	"skillmatch/internal/cachestats"
	"skillmatch/internal/matching"
	"skillmatch/internal/types"

	"github.com/cloudwego/hertz/pkg/common/config"
	"github.com/cloudwego/hertz/pkg/common/ut"
	"github.com/cloudwego/hertz/pkg/route"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMatches struct {
	getErr      error
	invalidated []string
}

func (s *stubMatches) GetMatch(_ context.Context, c, j string) (*types.MatchResponse, error) {
	if s.getErr != nil {
		return nil, s.getErr
	}
	return &types.MatchResponse{
		CandidateID:     c,
		JobID:           j,
		MatchingSkills:  []types.MatchingSkill{},
		MissingSkills:   []types.MissingSkill{},
		MatchPercentage: 64,
		Cached:          true,
		CacheSource:     types.CacheSourceFast,
	}, nil
}

func (s *stubMatches) InvalidateMatch(_ context.Context, c, j, scope string) (*matching.InvalidationResult, error) {
	if scope == "bogus" {
		return nil, fmt.Errorf("%w: 未知的范围", types.ErrInvalidArgument)
	}
	if scope == "" {
		scope = "all"
	}
	s.invalidated = append(s.invalidated, c+"/"+j+"/"+scope)
	return &matching.InvalidationResult{CandidateID: c, JobID: j, Scope: scope, InvalidatedAt: time.Now()}, nil
}

type stubRecommendations struct{}

func (stubRecommendations) GetRecommendations(_ context.Context, c, j string) (*types.RecommendationResponse, error) {
	return &types.RecommendationResponse{CandidateID: c, JobID: j, Recommendations: []types.SkillRecommendation{{Skill: "docker"}}}, nil
}

type stubExtraction struct{ manual []string }

func (s *stubExtraction) ExtractJobSkills(_ context.Context, jobID string, manual []string) (*matching.ExtractionResponse, error) {
	if jobID == "missing" {
		return nil, types.ErrNotFound
	}
	s.manual = manual
	return &matching.ExtractionResponse{JobID: jobID, Skills: []types.ExtractedSkill{{Skill: "go", Category: "language", Importance: "required"}}}, nil
}

type stubCompatibility struct{ force bool }

func (s *stubCompatibility) GetCompatibilitySnapshot(_ context.Context, id string, force bool) (*types.SnapshotResponse, error) {
	s.force = force
	return &types.SnapshotResponse{ApplicationID: id, OverallScore: 77, Cached: !force}, nil
}

type stubStats struct{}

func (stubStats) GetCacheStatistics(context.Context) (*cachestats.Report, error) {
	r := cachestats.Summarize(cachestats.CacheCounters{DetailHits: 80, AICalls: 20}, cachestats.ScoreCounters{}, time.Now())
	return &r, nil
}

type testServer struct {
	engine        *route.Engine
	matches       *stubMatches
	extraction    *stubExtraction
	compatibility *stubCompatibility
}

func newTestServer(adminKeys ...string) *testServer {
	ts := &testServer{
		matches:       &stubMatches{},
		extraction:    &stubExtraction{},
		compatibility: &stubCompatibility{},
	}
	h := handler.NewHandler(handler.Services{
		Matches:         ts.matches,
		Recommendations: stubRecommendations{},
		Extraction:      ts.extraction,
		Compatibility:   ts.compatibility,
		Stats:           stubStats{},
		Pingers: map[string]handler.Pinger{
			"mysql": func(context.Context) error { return nil },
		},
	})

	isValid := func(key string) bool {
		for _, k := range adminKeys {
			if k == key {
				return true
			}
		}
		return false
	}

	ts.engine = route.NewEngine(config.NewOptions([]config.Option{}))
	ts.engine.Use(middleware.RequestID())
	router.RegisterRoutes(ts.engine, h, middleware.AdminKeyAuth(isValid, len(adminKeys) > 0))
	return ts
}

func decode(t *testing.T, w *ut.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Result().Body(), &body), string(w.Result().Body()))
	return body
}

func jsonBody(s string) *ut.Body {
	return &ut.Body{Body: bytes.NewBufferString(s), Len: len(s)}
}

var jsonHeader = ut.Header{Key: "Content-Type", Value: "application/json"}

func TestGetMatch(t *testing.T) {
	ts := newTestServer()

	for _, method := range []string{"GET", "POST"} {
		w := ut.PerformRequest(ts.engine, method, "/api/v1/candidates/c1/jobs/j1/match", nil)
		require.Equal(t, 200, w.Result().StatusCode(), method)
		body := decode(t, w)
		assert.Equal(t, float64(64), body["matchPercentage"])
		assert.Equal(t, "fast", body["cacheSource"])
		assert.Equal(t, []interface{}{}, body["matchingSkills"])
		assert.NotEmpty(t, w.Result().Header.Get(middleware.HeaderRequestID))
	}
}

func TestGetMatch_ErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		status    int
		title     string
		retryable bool
	}{
		{name: "不存在", err: fmt.Errorf("读取岗位技能: %w", types.ErrNotFound), status: 404, title: "Not Found"},
		{name: "分析不可用", err: types.NewUnavailableError("skill_match", "timeout"), status: 500, title: "Analysis Unavailable", retryable: true},
		{name: "分析结果错误", err: types.NewMalformedError("skill_match", "missing field"), status: 500, title: "Malformed Analysis Result", retryable: true},
		{name: "其他错误", err: errors.New("boom"), status: 500, title: "Internal Server Error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer()
			ts.matches.getErr = tt.err

			w := ut.PerformRequest(ts.engine, "GET", "/api/v1/candidates/c1/jobs/j1/match", nil)
			assert.Equal(t, tt.status, w.Result().StatusCode())
			body := decode(t, w)
			assert.Equal(t, tt.title, body["error"])
			assert.NotContains(t, body, "matchPercentage", "错误响应不包含分数")
			if tt.retryable {
				assert.Equal(t, true, body["retryable"])
				assert.NotEmpty(t, body["suggestion"])
			} else {
				assert.NotContains(t, body, "retryable")
			}
		})
	}
}

func TestInvalidateAndReanalyze(t *testing.T) {
	ts := newTestServer()

	w := ut.PerformRequest(ts.engine, "DELETE", "/api/v1/candidates/c1/jobs/j1/match?scope=detail", nil)
	require.Equal(t, 200, w.Result().StatusCode())
	assert.Equal(t, "detail", decode(t, w)["scope"])

	w = ut.PerformRequest(ts.engine, "DELETE", "/api/v1/candidates/c1/jobs/j1/match?scope=bogus", nil)
	assert.Equal(t, 400, w.Result().StatusCode())

	w = ut.PerformRequest(ts.engine, "POST", "/api/v1/reanalyze", jsonBody(`{"candidateId":"c2","jobId":"j2"}`), jsonHeader)
	require.Equal(t, 200, w.Result().StatusCode())
	assert.Equal(t, "all", decode(t, w)["scope"])

	w = ut.PerformRequest(ts.engine, "POST", "/api/v1/reanalyze", jsonBody(`{"candidateId":"c2"}`), jsonHeader)
	assert.Equal(t, 400, w.Result().StatusCode(), "缺少 jobId")

	w = ut.PerformRequest(ts.engine, "POST", "/api/v1/reanalyze", jsonBody(`not json`), jsonHeader)
	assert.Equal(t, 400, w.Result().StatusCode())

	assert.Equal(t, []string{"c1/j1/detail", "c2/j2/all"}, ts.matches.invalidated)
}

func TestAdminRoutesRequireKey(t *testing.T) {
	ts := newTestServer("secret-key")

	w := ut.PerformRequest(ts.engine, "GET", "/api/v1/cache/statistics", nil)
	assert.Equal(t, 401, w.Result().StatusCode())

	w = ut.PerformRequest(ts.engine, "GET", "/api/v1/cache/statistics", nil, ut.Header{Key: middleware.HeaderAPIKey, Value: "wrong"})
	assert.Equal(t, 401, w.Result().StatusCode())

	w = ut.PerformRequest(ts.engine, "GET", "/api/v1/cache/statistics", nil, ut.Header{Key: middleware.HeaderAPIKey, Value: "secret-key"})
	require.Equal(t, 200, w.Result().StatusCode())
	body := decode(t, w)
	assert.Equal(t, "good", body["recommendationTier"])
	efficiency := body["cacheEfficiency"].(map[string]interface{})
	assert.Equal(t, float64(80), efficiency["cacheHitRate"])

	w = ut.PerformRequest(ts.engine, "DELETE", "/api/v1/candidates/c1/jobs/j1/match", nil)
	assert.Equal(t, 401, w.Result().StatusCode())
	assert.Empty(t, ts.matches.invalidated)

	w = ut.PerformRequest(ts.engine, "GET", "/api/v1/candidates/c1/jobs/j1/match", nil)
	assert.Equal(t, 200, w.Result().StatusCode(), "读取接口不需要 key")
}

func TestExtractSkills(t *testing.T) {
	ts := newTestServer()

	w := ut.PerformRequest(ts.engine, "POST", "/api/v1/jobs/j9/skills/extract", jsonBody(`{"manualSkills":["Go","SQL"]}`), jsonHeader)
	require.Equal(t, 200, w.Result().StatusCode())
	assert.Equal(t, []string{"Go", "SQL"}, ts.extraction.manual)

	w = ut.PerformRequest(ts.engine, "POST", "/api/v1/jobs/j9/skills/extract", nil)
	assert.Equal(t, 200, w.Result().StatusCode(), "请求体可以为空")

	w = ut.PerformRequest(ts.engine, "POST", "/api/v1/jobs/missing/skills/extract", nil)
	assert.Equal(t, 404, w.Result().StatusCode())
	assert.Equal(t, "Not Found", decode(t, w)["error"])
}

func TestCompatibilityForce(t *testing.T) {
	ts := newTestServer()

	w := ut.PerformRequest(ts.engine, "GET", "/api/v1/applications/a1/compatibility", nil)
	require.Equal(t, 200, w.Result().StatusCode())
	assert.False(t, ts.compatibility.force)
	assert.Equal(t, true, decode(t, w)["cached"])

	w = ut.PerformRequest(ts.engine, "POST", "/api/v1/applications/a1/compatibility?force=true", nil)
	require.Equal(t, 200, w.Result().StatusCode())
	assert.True(t, ts.compatibility.force)

	w = ut.PerformRequest(ts.engine, "GET", "/api/v1/applications/a1/compatibility?force=maybe", nil)
	assert.Equal(t, 400, w.Result().StatusCode())
}

func TestHealthAndRecommendations(t *testing.T) {
	ts := newTestServer()

	w := ut.PerformRequest(ts.engine, "GET", "/api/v1/health", nil)
	require.Equal(t, 200, w.Result().StatusCode())
	assert.Equal(t, "ok", decode(t, w)["status"])

	w = ut.PerformRequest(ts.engine, "GET", "/api/v1/candidates/c1/jobs/j1/recommendations", nil)
	require.Equal(t, 200, w.Result().StatusCode())
	recs := decode(t, w)["recommendations"].([]interface{})
	assert.Len(t, recs, 1)
}

func TestRequestIDPropagated(t *testing.T) {
	ts := newTestServer()
	w := ut.PerformRequest(ts.engine, "GET", "/api/v1/health", nil, ut.Header{Key: middleware.HeaderRequestID, Value: "req-123"})
	assert.Equal(t, "req-123", w.Result().Header.Get(middleware.HeaderRequestID))
}
