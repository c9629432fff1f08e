package matching

import (
	"testing"

	"skillmatch/internal/config"
	"skillmatch/internal/types"

	"github.com/stretchr/testify/assert"
)

func TestDeriveBreakdown(t *testing.T) {
	result := types.MatchResult{
		MatchingSkills: []types.MatchingSkill{
			{Skill: "go", JobRequirement: types.RequirementRequired},
			{Skill: "grpc", JobRequirement: types.RequirementRequired},
			{Skill: "redis", JobRequirement: types.RequirementPreferred},
			{Skill: "rust", JobRequirement: types.RequirementNiceToHave},
		},
		MissingSkills: []types.MissingSkill{
			{Skill: "k8s", JobRequirement: types.RequirementRequired},
			{Skill: "kafka", JobRequirement: types.RequirementPreferred},
		},
	}

	tests := []struct {
		name   string
		policy string
		count  int
		want   types.CategoryBreakdown
	}{
		{
			name:   "只统计缺失",
			policy: config.PolicyMissingOnly,
			count:  6,
			// preferredTotal=1 (缺失) 不小于 matched=1；niceToHaveTotal 被抬到 matched
			want: types.CategoryBreakdown{RequiredMatched: 2, RequiredTotal: 6, PreferredMatched: 1, PreferredTotal: 1, NiceToHaveMatched: 1, NiceToHaveTotal: 1},
		},
		{
			name:   "匹配加缺失",
			policy: config.PolicyMatchedPlusMissing,
			count:  6,
			want:   types.CategoryBreakdown{RequiredMatched: 2, RequiredTotal: 6, PreferredMatched: 1, PreferredTotal: 2, NiceToHaveMatched: 1, NiceToHaveTotal: 1},
		},
		{
			name:   "岗位技能数小于匹配数",
			policy: config.PolicyMissingOnly,
			count:  1,
			want:   types.CategoryBreakdown{RequiredMatched: 2, RequiredTotal: 2, PreferredMatched: 1, PreferredTotal: 1, NiceToHaveMatched: 1, NiceToHaveTotal: 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveBreakdown(result, tt.count, tt.policy))
		})
	}
}

func TestDeriveBreakdown_Empty(t *testing.T) {
	assert.Equal(t, types.CategoryBreakdown{RequiredTotal: 3}, DeriveBreakdown(types.MatchResult{}, 3, config.PolicyMissingOnly))
}
