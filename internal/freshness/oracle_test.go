package freshness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsStillValid(t *testing.T) {
	base := time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name       string
		analyzedAt time.Time
		candidate  time.Time
		job        time.Time
		want       bool
	}{
		{"分析晚于两侧更新", base, base.Add(-48 * time.Hour), base.Add(-24 * time.Hour), true},
		{"候选人在分析后更新", base, base.Add(time.Hour), base.Add(-24 * time.Hour), false},
		{"岗位在分析后更新", base, base.Add(-time.Hour), base.Add(time.Minute), false},
		{"时间相等不算有效", base, base, base.Add(-time.Hour), false},
		{"岗位时间相等不算有效", base, base.Add(-time.Hour), base, false},
		{"缺失的更新时间视为纪元零点", base, time.Time{}, time.Time{}, true},
		{"从未分析", time.Time{}, time.Time{}, time.Time{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsStillValid(tt.analyzedAt, tt.candidate, tt.job))
		})
	}
}

func TestLatest(t *testing.T) {
	a := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	b := a.Add(time.Hour)

	assert.Equal(t, b, Latest(a, b, time.Time{}))
	assert.True(t, Latest().IsZero())
	assert.True(t, Latest(time.Time{}).IsZero())
}
