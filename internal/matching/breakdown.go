package matching

import (
	"skillmatch/internal/config"
	"skillmatch/internal/matchcache"
	"skillmatch/internal/types"
)

// DeriveBreakdown 按要求级别统计匹配数量。
//
// requiredTotal 取岗位技能总数。preferred 和 nice_to_have 的总数取决于 policy：
// missing_only 只数缺失列表里的条目，matched_plus_missing 再加上已匹配的条目。
// 最后所有 total 都不小于对应的 matched。
func DeriveBreakdown(result types.MatchResult, jobSkillCount int, policy string) types.CategoryBreakdown {
	var b types.CategoryBreakdown
	for _, m := range result.MatchingSkills {
		switch m.JobRequirement {
		case types.RequirementPreferred:
			b.PreferredMatched++
		case types.RequirementNiceToHave:
			b.NiceToHaveMatched++
		default:
			b.RequiredMatched++
		}
	}

	var missingPreferred, missingNice int
	for _, m := range result.MissingSkills {
		switch m.JobRequirement {
		case types.RequirementPreferred:
			missingPreferred++
		case types.RequirementNiceToHave:
			missingNice++
		}
	}

	b.RequiredTotal = jobSkillCount
	b.PreferredTotal = missingPreferred
	b.NiceToHaveTotal = missingNice
	if policy == config.PolicyMatchedPlusMissing {
		b.PreferredTotal += b.PreferredMatched
		b.NiceToHaveTotal += b.NiceToHaveMatched
	}
	return matchcache.NormalizeBreakdown(b)
}
