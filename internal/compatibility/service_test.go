package compatibility

import (
	"context"
	"errors"
	"testing"
	"time"

	"skillmatch/internal/analysis"
	"skillmatch/internal/constants"
	"skillmatch/internal/types"
	"skillmatch/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type memStore struct {
	apps     map[string]*types.Application
	profiles map[string]*types.CandidateProfile
	jobs     map[string]*types.JobRecord
	saves    int
	saveErr  error
}

func (m *memStore) FetchApplication(_ context.Context, id string) (*types.Application, error) {
	a, ok := m.apps[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (m *memStore) FetchCandidateFullProfile(_ context.Context, id string) (*types.CandidateProfile, error) {
	p, ok := m.profiles[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return p, nil
}

func (m *memStore) FetchJobFullRecord(_ context.Context, id string) (*types.JobRecord, error) {
	j, ok := m.jobs[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return j, nil
}

func (m *memStore) SaveApplicationAnalysis(_ context.Context, id string, a *types.CompatibilityAnalysis, at time.Time) error {
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saves++
	app := m.apps[id]
	score := a.OverallScore
	cp := *a
	app.AnalysisScore = &score
	app.AnalysisData = &cp
	app.AnalyzedAt = &at
	return nil
}

type memEvents struct{ kinds []string }

func (m *memEvents) Enqueue(_ context.Context, _ string, eventType string, _ interface{}) error {
	m.kinds = append(m.kinds, eventType)
	return nil
}

const compatibilityResponse = `{
	"overall_score": 82,
	"score_breakdown": {"skills_match": 85, "experience_match": 80, "education_match": 75, "overall_fit": 82},
	"strengths": ["Go"],
	"skill_gaps": ["Kubernetes"],
	"fit_level": "Good",
	"summary": "Strong backend profile"
}`

var base = time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)

func newStore() *memStore {
	return &memStore{
		apps: map[string]*types.Application{
			"app1": {ApplicationID: "app1", CandidateID: "c1", JobID: "j1", Status: "applied"},
		},
		profiles: map[string]*types.CandidateProfile{
			"c1": {CandidateID: "c1", FullName: "Ada Lovelace", UpdatedAt: base.Add(-48 * time.Hour)},
		},
		jobs: map[string]*types.JobRecord{
			"j1": {JobID: "j1", JobTitle: "Backend Engineer", UpdatedAt: base.Add(-72 * time.Hour)},
		},
	}
}

func TestSnapshot_FreshThenCached(t *testing.T) {
	store := newStore()
	events := &memEvents{}
	mock := llm.NewMockChatModel(compatibilityResponse, nil)
	now := base
	svc := NewService(store, analysis.NewCompatibilityAnalyzer(mock, analysis.CallOptions{Temperature: 0.2}), events, func() time.Time { return now })
	ctx := context.Background()

	first, err := svc.GetCompatibilitySnapshot(ctx, "app1", false)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 82, first.OverallScore)
	assert.Equal(t, "Ada Lovelace", first.CandidateName)
	assert.Equal(t, "Backend Engineer", first.JobTitle)
	assert.Equal(t, "Good", first.FitLevel)
	assert.Equal(t, []string{}, first.ExperienceGaps)
	assert.Equal(t, base, first.AnalyzedAt)
	assert.Equal(t, 1, store.saves)
	assert.Equal(t, []string{constants.EventCompatibilityAnalyzed}, events.kinds)

	now = base.Add(time.Hour)
	second, err := svc.GetCompatibilitySnapshot(ctx, "app1", false)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, 1, mock.Calls(), "快照新鲜时不重新分析")
	assert.Equal(t, first.OverallScore, second.OverallScore)
	assert.Equal(t, base, second.AnalyzedAt)
}

// 场景C：快照写入后候选人档案更新，需要重新分析
func TestSnapshot_ProfileUpdatedAfterAnalysis(t *testing.T) {
	store := newStore()
	mock := llm.NewMockChatModel(compatibilityResponse, nil)
	now := base
	svc := NewService(store, analysis.NewCompatibilityAnalyzer(mock, analysis.CallOptions{}), nil, func() time.Time { return now })
	ctx := context.Background()

	_, err := svc.GetCompatibilitySnapshot(ctx, "app1", false)
	require.NoError(t, err)

	store.profiles["c1"].UpdatedAt = base.Add(30 * time.Minute)
	now = base.Add(time.Hour)

	resp, err := svc.GetCompatibilitySnapshot(ctx, "app1", false)
	require.NoError(t, err)
	assert.False(t, resp.Cached)
	assert.Equal(t, 2, mock.Calls())
	assert.Equal(t, now, resp.AnalyzedAt)
}

func TestSnapshot_JobUpdatedAtSameInstantInvalidates(t *testing.T) {
	store := newStore()
	analyzedAt := base
	store.apps["app1"].AnalysisData = &types.CompatibilityAnalysis{OverallScore: 50, FitLevel: "Fair"}
	store.apps["app1"].AnalyzedAt = &analyzedAt
	store.jobs["j1"].UpdatedAt = base

	mock := llm.NewMockChatModel(compatibilityResponse, nil)
	svc := NewService(store, analysis.NewCompatibilityAnalyzer(mock, analysis.CallOptions{}), nil, func() time.Time { return base.Add(time.Minute) })

	resp, err := svc.GetCompatibilitySnapshot(context.Background(), "app1", false)
	require.NoError(t, err)
	assert.False(t, resp.Cached, "更新时间等于分析时间时快照无效")
	assert.Equal(t, 82, resp.OverallScore)
}

func TestSnapshot_Force(t *testing.T) {
	store := newStore()
	mock := llm.NewMockChatModel(compatibilityResponse, nil)
	svc := NewService(store, analysis.NewCompatibilityAnalyzer(mock, analysis.CallOptions{}), nil, func() time.Time { return base })

	_, err := svc.GetCompatibilitySnapshot(context.Background(), "app1", false)
	require.NoError(t, err)
	resp, err := svc.GetCompatibilitySnapshot(context.Background(), "app1", true)
	require.NoError(t, err)
	assert.False(t, resp.Cached)
	assert.Equal(t, 2, mock.Calls())
}

func TestSnapshot_Errors(t *testing.T) {
	store := newStore()
	svc := NewService(store, analysis.NewCompatibilityAnalyzer(llm.NewMockChatModel(`{"overall_score": 90}`, nil), analysis.CallOptions{}), nil, nil)

	_, err := svc.GetCompatibilitySnapshot(context.Background(), "app1", false)
	assert.ErrorIs(t, err, types.ErrMalformedAnalysisResult)
	assert.Equal(t, 0, store.saves, "分析失败不写快照")

	_, err = svc.GetCompatibilitySnapshot(context.Background(), "missing", false)
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = svc.GetCompatibilitySnapshot(context.Background(), "", false)
	assert.ErrorIs(t, err, types.ErrInvalidArgument)

	delete(store.jobs, "j1")
	_, err = svc.GetCompatibilitySnapshot(context.Background(), "app1", false)
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestSnapshot_SaveFailureStillReturnsResult(t *testing.T) {
	store := newStore()
	store.saveErr = errors.New("read-only replica")
	svc := NewService(store, analysis.NewCompatibilityAnalyzer(llm.NewMockChatModel(compatibilityResponse, nil), analysis.CallOptions{}), nil, func() time.Time { return base })

	resp, err := svc.GetCompatibilitySnapshot(context.Background(), "app1", false)
	require.NoError(t, err)
	assert.Equal(t, 82, resp.OverallScore)
	assert.False(t, resp.Cached)
}

func TestSnapshot_SpanMasksCandidatePII(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	orig := tracer
	tracer = sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)).Tracer("test")
	t.Cleanup(func() { tracer = orig })

	store := newStore()
	store.profiles["c1"].Email = "ada@example.com"
	svc := NewService(store, analysis.NewCompatibilityAnalyzer(llm.NewMockChatModel(compatibilityResponse, nil), analysis.CallOptions{}), nil, func() time.Time { return base })

	_, err := svc.GetCompatibilitySnapshot(context.Background(), "app1", false)
	require.NoError(t, err)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	attrs := spans[0].Attributes()
	assert.Contains(t, attrs, attribute.String("candidate.id", "c1"))
	assert.Contains(t, attrs, attribute.String("candidate.name", "Ad********ce"))
	assert.Contains(t, attrs, attribute.String("candidate.email", "ad***********om"))
}
