// Package cachestats 统计两级缓存的命中情况和分数分布。
package cachestats

import (
	"math"
	"time"
)

// 建议级别
const (
	TierLow       = "low"
	TierModerate  = "moderate"
	TierGood      = "good"
	TierExcellent = "excellent"
)

var recommendations = map[string]string{
	TierLow:       "Low cache hit rate. Consider increasing cache expiry duration or optimizing cache invalidation logic.",
	TierModerate:  "Moderate cache hit rate. Cache is being used but could be more efficient. Monitor cache invalidation patterns.",
	TierGood:      "Good cache hit rate. Cache is performing well. Continue monitoring performance.",
	TierExcellent: "Excellent cache hit rate! Cache is highly effective and reducing unnecessary AI calls.",
}

// CacheCounters 明细层和快速层的原始计数
type CacheCounters struct {
	TotalCachedAnalyses int64
	ValidCacheEntries   int64
	ExpiredCacheEntries int64
	DetailHits          int64
	FastHits            int64
	AICalls             int64
	AvgMatchPercentage  float64
	MinMatchPercentage  int
	MaxMatchPercentage  int
}

// ScoreCounters 快速层的分数分布
type ScoreCounters struct {
	TotalScoreRecords     int64
	AvgOverallMatch       float64
	AvgRequiredMatch      float64
	AvgPreferredMatch     float64
	AvgNiceToHaveMatch    float64
	MinOverallMatch       int
	MaxOverallMatch       int
	MedianMatchPercentage float64
	ValidScores           int64
	ExpiredScores         int64
}

type CacheEfficiency struct {
	TotalCachedAnalyses int64   `json:"totalCachedAnalyses"`
	ValidCacheEntries   int64   `json:"validCacheEntries"`
	ExpiredCacheEntries int64   `json:"expiredCacheEntries"`
	TotalCacheHits      int64   `json:"totalCacheHits"`
	TotalAICalls        int64   `json:"totalAiCalls"`
	CacheHitRate        float64 `json:"cacheHitRate"`
	AvgMatchPercentage  float64 `json:"avgMatchPercentage"`
	MinMatchPercentage  int     `json:"minMatchPercentage"`
	MaxMatchPercentage  int     `json:"maxMatchPercentage"`
}

type ScoreStatistics struct {
	TotalScoreRecords            int64   `json:"totalScoreRecords"`
	AvgOverallMatch              float64 `json:"avgOverallMatch"`
	AvgRequiredMatchPercentage   float64 `json:"avgRequiredMatchPercent"`
	AvgPreferredMatchPercentage  float64 `json:"avgPreferredMatchPercent"`
	AvgNiceToHaveMatchPercentage float64 `json:"avgNiceToHaveMatchPercent"`
	MinOverallMatch              int     `json:"minOverallMatch"`
	MaxOverallMatch              int     `json:"maxOverallMatch"`
	MedianMatchPercentage        float64 `json:"medianMatchPercentage"`
	ValidScores                  int64   `json:"validScores"`
	ExpiredScores                int64   `json:"expiredScores"`
}

// Report GetCacheStatistics 的返回结构
type Report struct {
	CacheEfficiency    CacheEfficiency `json:"cacheEfficiency"`
	ScoreStatistics    ScoreStatistics `json:"scoreStatistics"`
	Recommendation     string          `json:"recommendation"`
	RecommendationTier string          `json:"recommendationTier"`
	Timestamp          time.Time       `json:"timestamp"`
}

// HitRate hits/(hits+aiCalls)*100，保留两位小数；分母为0时返回0
func HitRate(hits, aiCalls int64) float64 {
	total := hits + aiCalls
	if total <= 0 {
		return 0
	}
	return round2(float64(hits) / float64(total) * 100)
}

// Recommend 按命中率分档
func Recommend(hitRate float64) (tier string, text string) {
	switch {
	case hitRate < 30:
		tier = TierLow
	case hitRate < 60:
		tier = TierModerate
	case hitRate < 85:
		tier = TierGood
	default:
		tier = TierExcellent
	}
	return tier, recommendations[tier]
}

// Summarize 由原始计数生成报告
func Summarize(c CacheCounters, s ScoreCounters, now time.Time) Report {
	hits := c.DetailHits + c.FastHits
	rate := HitRate(hits, c.AICalls)
	tier, text := Recommend(rate)

	return Report{
		CacheEfficiency: CacheEfficiency{
			TotalCachedAnalyses: c.TotalCachedAnalyses,
			ValidCacheEntries:   c.ValidCacheEntries,
			ExpiredCacheEntries: c.ExpiredCacheEntries,
			TotalCacheHits:      hits,
			TotalAICalls:        c.AICalls,
			CacheHitRate:        rate,
			AvgMatchPercentage:  round2(c.AvgMatchPercentage),
			MinMatchPercentage:  c.MinMatchPercentage,
			MaxMatchPercentage:  c.MaxMatchPercentage,
		},
		ScoreStatistics: ScoreStatistics{
			TotalScoreRecords:            s.TotalScoreRecords,
			AvgOverallMatch:              round2(s.AvgOverallMatch),
			AvgRequiredMatchPercentage:   round2(s.AvgRequiredMatch),
			AvgPreferredMatchPercentage:  round2(s.AvgPreferredMatch),
			AvgNiceToHaveMatchPercentage: round2(s.AvgNiceToHaveMatch),
			MinOverallMatch:              s.MinOverallMatch,
			MaxOverallMatch:              s.MaxOverallMatch,
			MedianMatchPercentage:        round2(s.MedianMatchPercentage),
			ValidScores:                  s.ValidScores,
			ExpiredScores:                s.ExpiredScores,
		},
		Recommendation:     text,
		RecommendationTier: tier,
		Timestamp:          now,
	}
}

// Median 输入需已排序
func Median(sorted []int) float64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return float64(sorted[n/2])
	}
	return float64(sorted[n/2-1]+sorted[n/2]) / 2
}

func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return math.Round(v*100) / 100
}
