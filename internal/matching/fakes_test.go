package matching

import (
	"context"
	"fmt"
	"sync"
	"time"

	"skillmatch/internal/matchcache"
	"skillmatch/internal/types"
)

const testTTL = 30 * 24 * time.Hour

func pairKey(c, j string) string { return c + "|" + j }

type memFast struct {
	mu        sync.Mutex
	rows      map[string]*matchcache.FastEntry
	upserts   int
	hits      int
	upsertErr error
	getErr    error
	deleteErr error
}

func newMemFast() *memFast { return &memFast{rows: map[string]*matchcache.FastEntry{}} }

func (m *memFast) GetValid(_ context.Context, c, j string, now time.Time) (*matchcache.FastEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	e, ok := m.rows[pairKey(c, j)]
	if !ok || !e.ValidUntil.After(now) {
		return nil, types.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memFast) Upsert(_ context.Context, e *matchcache.FastEntry, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts++
	e.ID = fmt.Sprintf("fast-%d", m.upserts)
	e.OverallMatchPercentage = matchcache.ClampPercentage(e.OverallMatchPercentage)
	e.Breakdown = matchcache.NormalizeBreakdown(e.Breakdown)
	e.ComputedAt = now
	e.ValidUntil = now.Add(testTTL)
	e.HitCount = 0
	cp := *e
	m.rows[pairKey(e.CandidateID, e.JobID)] = &cp
	return nil
}

func (m *memFast) RecordHit(_ context.Context, id string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.rows {
		if e.ID == id && e.ValidUntil.After(now) {
			e.HitCount++
			m.hits++
		}
	}
	return nil
}

func (m *memFast) Delete(_ context.Context, c, j string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.rows, pairKey(c, j))
	return nil
}

func (m *memFast) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type memDetail struct {
	mu        sync.Mutex
	rows      map[string]*matchcache.DetailEntry
	upserts   int
	upsertErr error
	deleteErr error
}

func newMemDetail() *memDetail { return &memDetail{rows: map[string]*matchcache.DetailEntry{}} }

func (m *memDetail) GetValid(_ context.Context, c, j string, now time.Time) (*matchcache.DetailEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[pairKey(c, j)]
	if !ok || !e.CacheValidUntil.After(now) {
		return nil, types.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memDetail) GetLatest(_ context.Context, c, j string) (*matchcache.DetailEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.rows[pairKey(c, j)]
	if !ok {
		return nil, types.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memDetail) Upsert(_ context.Context, e *matchcache.DetailEntry, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return m.upsertErr
	}
	m.upserts++
	e.ID = fmt.Sprintf("detail-%d", m.upserts)
	e.AnalysisDate = now
	e.CacheValidUntil = now.Add(testTTL)
	e.IsCached = true
	e.AICallCount = 1
	e.CacheHitCount = 0
	cp := *e
	m.rows[pairKey(e.CandidateID, e.JobID)] = &cp
	return nil
}

func (m *memDetail) RecordHit(_ context.Context, id string, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.rows {
		if e.ID == id && e.CacheValidUntil.After(now) {
			e.CacheHitCount++
		}
	}
	return nil
}

func (m *memDetail) Delete(_ context.Context, c, j string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.deleteErr != nil {
		return m.deleteErr
	}
	delete(m.rows, pairKey(c, j))
	return nil
}

func (m *memDetail) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

type memSkills struct {
	candidates map[string][]types.CandidateSkill
	jobs       map[string][]types.JobSkill
}

func (m *memSkills) FetchCandidateSkills(_ context.Context, id string) ([]types.CandidateSkill, error) {
	s, ok := m.candidates[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return s, nil
}

func (m *memSkills) FetchJobSkills(_ context.Context, id string) ([]types.JobSkill, error) {
	s, ok := m.jobs[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return s, nil
}

// fakeAnalyzer 返回固定结果并计数
type fakeAnalyzer struct {
	result types.MatchResult
	err    error
	calls  int
}

func (f *fakeAnalyzer) AnalyzeSkillMatch(context.Context, []types.CandidateSkill, []types.JobSkill) (types.MatchResult, error) {
	f.calls++
	return f.result, f.err
}

type recordedEvent struct {
	AggregateID string
	EventType   string
	Payload     interface{}
}

type memEvents struct {
	events []recordedEvent
	err    error
}

func (m *memEvents) Enqueue(_ context.Context, aggregateID, eventType string, payload interface{}) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, recordedEvent{AggregateID: aggregateID, EventType: eventType, Payload: payload})
	return nil
}

// fixedClock 可手动前进的时钟
type fixedClock struct{ t time.Time }

func (c *fixedClock) Now() time.Time { return c.t }

func (c *fixedClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func scenarioSkills() *memSkills {
	return &memSkills{
		candidates: map[string][]types.CandidateSkill{
			"candidateA": {{SkillName: "React", SkillLevel: "Intermediate"}},
		},
		jobs: map[string][]types.JobSkill{
			"jobX": {{SkillName: "React", Importance: "required"}, {SkillName: "Docker", Importance: "required"}},
		},
	}
}
