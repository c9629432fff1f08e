package constants

import "time"

const (
	// DefaultCacheTTL 两级缓存默认有效期
	DefaultCacheTTL = 30 * 24 * time.Hour
	// DefaultRecommendationTTL 技能推荐缓存默认有效期
	DefaultRecommendationTTL = 7 * 24 * time.Hour

	// DefaultModel 默认使用的Groq模型
	DefaultModel = "llama-3.3-70b-versatile"

	DefaultStatsRefreshLockTTL   = 2 * time.Minute
	DefaultRedisOperationTimeout = 2 * time.Second
)

// 任务名，对应配置中的 groq.task_models
const (
	TaskSkillMatch          = "skill_match"
	TaskCompatibility       = "compatibility"
	TaskSkillExtraction     = "skill_extraction"
	TaskSkillRecommendation = "skill_recommendation"
)

// 事件类型
const (
	EventSkillMatchComputed    = "skill_match.computed"
	EventSkillMatchInvalidated = "skill_match.invalidated"
	EventCompatibilityAnalyzed = "compatibility.analyzed"
)
