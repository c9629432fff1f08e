// Package matchcache 保存候选人-岗位技能匹配结果的两级缓存。
//
// 快速层 (skill_match_scores) 只有分数和分类计数；明细层 (job_skill_analysis)
// 保存完整的技能列表。两层都以 (candidate_id, job_id) 唯一，过期的行保留在表中，
// 但 GetValid 不会返回它们。
package matchcache

import (
	"context"
	"time"

	"skillmatch/internal/types"
)

// FastEntry 快速层记录
type FastEntry struct {
	ID                     string                  `json:"id"`
	CandidateID            string                  `json:"candidate_id"`
	JobID                  string                  `json:"job_id"`
	OverallMatchPercentage int                     `json:"overall_match_percentage"`
	Breakdown              types.CategoryBreakdown `json:"breakdown"`
	ComputedAt             time.Time               `json:"computed_at"`
	ValidUntil             time.Time               `json:"valid_until"`
	HitCount               int                     `json:"hit_count"`
}

// DetailEntry 明细层记录
type DetailEntry struct {
	ID              string
	CandidateID     string
	JobID           string
	Result          types.MatchResult
	AnalysisDate    time.Time
	CacheValidUntil time.Time
	IsCached        bool
	AICallCount     int
	CacheHitCount   int
}

// FastTier 快速层存取接口
type FastTier interface {
	// GetValid 不存在或已过期时返回 types.ErrNotFound
	GetValid(ctx context.Context, candidateID, jobID string, now time.Time) (*FastEntry, error)
	// Upsert 覆盖该组合的记录，有效期从 now 开始计算
	Upsert(ctx context.Context, entry *FastEntry, now time.Time) error
	// RecordHit 命中计数加一，只对未过期的记录生效
	RecordHit(ctx context.Context, entryID string, now time.Time) error
	Delete(ctx context.Context, candidateID, jobID string) error
}

// DetailTier 明细层存取接口
type DetailTier interface {
	GetValid(ctx context.Context, candidateID, jobID string, now time.Time) (*DetailEntry, error)
	// GetLatest 忽略有效期，返回该组合最近一次分析
	GetLatest(ctx context.Context, candidateID, jobID string) (*DetailEntry, error)
	Upsert(ctx context.Context, entry *DetailEntry, now time.Time) error
	RecordHit(ctx context.Context, entryID string, now time.Time) error
	Delete(ctx context.Context, candidateID, jobID string) error
}

// ClampPercentage 限制在 [0,100]
func ClampPercentage(p int) int {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// NormalizeBreakdown 计数不为负，且 total 不小于 matched
func NormalizeBreakdown(b types.CategoryBreakdown) types.CategoryBreakdown {
	fix := func(matched, total *int) {
		if *matched < 0 {
			*matched = 0
		}
		if *total < *matched {
			*total = *matched
		}
	}
	fix(&b.RequiredMatched, &b.RequiredTotal)
	fix(&b.PreferredMatched, &b.PreferredTotal)
	fix(&b.NiceToHaveMatched, &b.NiceToHaveTotal)
	return b
}
