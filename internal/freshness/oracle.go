// Package freshness 判断一次已保存的分析结果是否仍然有效。
//
// 兼容性快照不使用TTL，而是比较时间戳：只要分析时间严格晚于候选人档案
// 和岗位的最后更新时间，结果就仍然可信。
package freshness

import "time"

// IsStillValid 分析时间严格晚于两侧更新时间时返回 true。
// 零值的更新时间视为从未更新；零值的分析时间视为从未分析。
func IsStillValid(analyzedAt, candidateUpdatedAt, jobUpdatedAt time.Time) bool {
	if analyzedAt.IsZero() {
		return false
	}
	return analyzedAt.After(candidateUpdatedAt) && analyzedAt.After(jobUpdatedAt)
}

// Latest 返回一组时间中最晚的一个，全部为零值时返回零值
func Latest(times ...time.Time) time.Time {
	var latest time.Time
	for _, t := range times {
		if t.After(latest) {
			latest = t
		}
	}
	return latest
}
