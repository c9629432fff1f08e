package analysis

import (
	"context"
	"fmt"
	"strings"

	"skillmatch/internal/logger"
	"skillmatch/internal/types"

	"github.com/cloudwego/eino/components/model"
	"github.com/tidwall/gjson"
)

const opSkillMatch = "skill_match"

// SkillMatchAnalyzer 技能匹配分析
type SkillMatchAnalyzer interface {
	AnalyzeSkillMatch(ctx context.Context, candidateSkills []types.CandidateSkill, jobSkills []types.JobSkill) (types.MatchResult, error)
}

// LLMSkillMatchAnalyzer 通过 LLM 比较候选人技能与岗位要求
type LLMSkillMatchAnalyzer struct {
	llm  model.ToolCallingChatModel
	opts CallOptions
}

var _ SkillMatchAnalyzer = (*LLMSkillMatchAnalyzer)(nil)

func NewSkillMatchAnalyzer(llm model.ToolCallingChatModel, opts CallOptions) *LLMSkillMatchAnalyzer {
	return &LLMSkillMatchAnalyzer{llm: llm, opts: opts}
}

func (a *LLMSkillMatchAnalyzer) AnalyzeSkillMatch(ctx context.Context, candidateSkills []types.CandidateSkill, jobSkills []types.JobSkill) (types.MatchResult, error) {
	if candidateSkills == nil {
		candidateSkills = []types.CandidateSkill{}
	}
	if jobSkills == nil {
		jobSkills = []types.JobSkill{}
	}
	prompt := fmt.Sprintf(skillMatchPromptTemplate, prettyJSON(candidateSkills), prettyJSON(jobSkills))

	content, err := generate(ctx, a.llm, opSkillMatch, skillMatchSystemPrompt, prompt, a.opts)
	if err != nil {
		return types.MatchResult{}, err
	}

	result, err := ParseSkillMatch(content)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("response", preview(content)).Msg("技能匹配结果校验失败")
		return types.MatchResult{}, err
	}
	return result, nil
}

// ParseSkillMatch 校验并规范化模型输出
func ParseSkillMatch(content string) (types.MatchResult, error) {
	doc, err := parseObject(content)
	if err != nil {
		return types.MatchResult{}, types.NewUnavailableError(opSkillMatch, err.Error())
	}

	pct := doc.Get("match_percentage")
	if !pct.Exists() {
		return types.MatchResult{}, malformed(opSkillMatch, "缺少 match_percentage")
	}

	result := types.MatchResult{
		MatchingSkills:  []types.MatchingSkill{},
		MissingSkills:   []types.MissingSkill{},
		MatchPercentage: coerceScore(pct),
	}

	if matching := doc.Get("matching_skills"); matching.Exists() && matching.Type != gjson.Null {
		if !matching.IsArray() {
			return types.MatchResult{}, malformed(opSkillMatch, "matching_skills 不是数组")
		}
		for i, item := range matching.Array() {
			skill := strings.TrimSpace(item.Get("skill").String())
			if !item.IsObject() || skill == "" {
				return types.MatchResult{}, malformed(opSkillMatch, "matching_skills[%d] 缺少 skill", i)
			}
			result.MatchingSkills = append(result.MatchingSkills, types.MatchingSkill{
				Skill:          skill,
				CandidateLevel: strings.TrimSpace(item.Get("candidate_level").String()),
				JobRequirement: types.NormalizeRequirement(strings.ToLower(strings.TrimSpace(item.Get("job_requirement").String()))),
				MatchQuality:   normalizeQuality(item.Get("match_quality").String()),
			})
		}
	}

	if missing := doc.Get("missing_skills"); missing.Exists() && missing.Type != gjson.Null {
		if !missing.IsArray() {
			return types.MatchResult{}, malformed(opSkillMatch, "missing_skills 不是数组")
		}
		for i, item := range missing.Array() {
			skill := strings.TrimSpace(item.Get("skill").String())
			if !item.IsObject() || skill == "" {
				return types.MatchResult{}, malformed(opSkillMatch, "missing_skills[%d] 缺少 skill", i)
			}
			result.MissingSkills = append(result.MissingSkills, types.MissingSkill{
				Skill:          skill,
				JobRequirement: types.NormalizeRequirement(strings.ToLower(strings.TrimSpace(item.Get("job_requirement").String()))),
				Importance:     strings.TrimSpace(item.Get("importance").String()),
			})
		}
	}

	return result, nil
}

func normalizeQuality(s string) types.MatchQuality {
	if types.MatchQuality(strings.ToLower(strings.TrimSpace(s))) == types.MatchQualityExact {
		return types.MatchQualityExact
	}
	return types.MatchQualitySimilar
}
