package cachestats

import (
	"context"
	"fmt"
	"time"

	"skillmatch/internal/storage/models"
	"skillmatch/internal/tracing"

	"go.opentelemetry.io/otel"
	"gorm.io/gorm"
)

var tracer = otel.Tracer("skillmatch/cachestats")

// Collector 用聚合查询读取缓存表的计数
type Collector struct {
	db *gorm.DB
}

func NewCollector(db *gorm.DB) *Collector {
	return &Collector{db: db}
}

type detailAggregate struct {
	Total    int64
	Valid    int64
	Hits     int64
	AICalls  int64
	AvgMatch float64
	MinMatch int
	MaxMatch int
}

type fastAggregate struct {
	Total         int64
	Valid         int64
	Hits          int64
	AvgOverall    float64
	AvgRequired   float64
	AvgPreferred  float64
	AvgNiceToHave float64
	MinOverall    int
	MaxOverall    int
}

// Collect now 用于区分有效和过期的记录
func (c *Collector) Collect(ctx context.Context, now time.Time) (CacheCounters, ScoreCounters, error) {
	ctx, span := tracer.Start(ctx, "CacheStats.Collect")
	defer span.End()

	var d detailAggregate
	err := c.db.WithContext(ctx).Model(&models.JobSkillAnalysis{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN cache_valid_until > ? THEN 1 ELSE 0 END), 0) AS valid,
			COALESCE(SUM(cache_hit_count), 0) AS hits,
			COALESCE(SUM(ai_call_count), 0) AS ai_calls,
			COALESCE(AVG(skill_match_percentage), 0) AS avg_match,
			COALESCE(MIN(skill_match_percentage), 0) AS min_match,
			COALESCE(MAX(skill_match_percentage), 0) AS max_match`, now).
		Scan(&d).Error
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return CacheCounters{}, ScoreCounters{}, fmt.Errorf("统计明细层失败: %w", err)
	}

	// 总数为0的分类不参与平均
	var f fastAggregate
	err = c.db.WithContext(ctx).Model(&models.SkillMatchScore{}).
		Select(`COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN score_valid_until > ? THEN 1 ELSE 0 END), 0) AS valid,
			COALESCE(SUM(hit_count), 0) AS hits,
			COALESCE(AVG(overall_match_percentage), 0) AS avg_overall,
			COALESCE(AVG(CASE WHEN required_skills_total > 0 THEN required_skills_matched * 100.0 / required_skills_total END), 0) AS avg_required,
			COALESCE(AVG(CASE WHEN preferred_skills_total > 0 THEN preferred_skills_matched * 100.0 / preferred_skills_total END), 0) AS avg_preferred,
			COALESCE(AVG(CASE WHEN nice_to_have_total > 0 THEN nice_to_have_matched * 100.0 / nice_to_have_total END), 0) AS avg_nice_to_have,
			COALESCE(MIN(overall_match_percentage), 0) AS min_overall,
			COALESCE(MAX(overall_match_percentage), 0) AS max_overall`, now).
		Scan(&f).Error
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return CacheCounters{}, ScoreCounters{}, fmt.Errorf("统计快速层失败: %w", err)
	}

	var percentages []int
	err = c.db.WithContext(ctx).Model(&models.SkillMatchScore{}).
		Order("overall_match_percentage").
		Pluck("overall_match_percentage", &percentages).Error
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return CacheCounters{}, ScoreCounters{}, fmt.Errorf("读取分数分布失败: %w", err)
	}

	cache, scores := buildCounters(d, f, percentages)
	return cache, scores, nil
}

// buildCounters percentages 需按升序排列
func buildCounters(d detailAggregate, f fastAggregate, percentages []int) (CacheCounters, ScoreCounters) {
	cache := CacheCounters{
		TotalCachedAnalyses: d.Total,
		ValidCacheEntries:   d.Valid,
		ExpiredCacheEntries: d.Total - d.Valid,
		DetailHits:          d.Hits,
		FastHits:            f.Hits,
		AICalls:             d.AICalls,
		AvgMatchPercentage:  d.AvgMatch,
		MinMatchPercentage:  d.MinMatch,
		MaxMatchPercentage:  d.MaxMatch,
	}
	scores := ScoreCounters{
		TotalScoreRecords:     f.Total,
		AvgOverallMatch:       f.AvgOverall,
		AvgRequiredMatch:      f.AvgRequired,
		AvgPreferredMatch:     f.AvgPreferred,
		AvgNiceToHaveMatch:    f.AvgNiceToHave,
		MinOverallMatch:       f.MinOverall,
		MaxOverallMatch:       f.MaxOverall,
		MedianMatchPercentage: Median(percentages),
		ValidScores:           f.Valid,
		ExpiredScores:         f.Total - f.Valid,
	}
	return cache, scores
}
