package constants

// Redis Key 命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// MatchModulePrefix 技能匹配模块
	MatchModulePrefix = "match"
	// StatsModulePrefix 缓存统计模块
	StatsModulePrefix = "stats"

	EntityFastScore = "fast"
	EntitySnapshot  = "snapshot"
	EntityLock      = "lock"

	// KeyMatchFastScore 快速层镜像 (STRING, JSON)
	// 格式: app:match:fast:{candidateID}:{jobID}
	KeyMatchFastScore = AppPrefix + ":" + MatchModulePrefix + ":" + EntityFastScore + ":%s:%s"

	// KeyCacheStatsSnapshot 缓存统计快照 (STRING, JSON)
	// 格式: app:stats:snapshot
	KeyCacheStatsSnapshot = AppPrefix + ":" + StatsModulePrefix + ":" + EntitySnapshot

	// KeyStatsRefreshLock 定时刷新统计的分布式锁 (STRING)
	// 格式: app:stats:lock:refresh
	KeyStatsRefreshLock = AppPrefix + ":" + StatsModulePrefix + ":" + EntityLock + ":refresh"
)
