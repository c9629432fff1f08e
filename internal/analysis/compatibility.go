package analysis

import (
	"context"
	"fmt"
	"strings"

	"skillmatch/internal/logger"
	"skillmatch/internal/types"

	"github.com/cloudwego/eino/components/model"
)

const opCompatibility = "compatibility"

// CompatibilityAnalyzer 候选人与岗位的整体兼容性分析
type CompatibilityAnalyzer interface {
	AnalyzeCandidateCompatibility(ctx context.Context, profile *types.CandidateProfile, job *types.JobRecord) (types.CompatibilityAnalysis, error)
}

type LLMCompatibilityAnalyzer struct {
	llm  model.ToolCallingChatModel
	opts CallOptions
}

var _ CompatibilityAnalyzer = (*LLMCompatibilityAnalyzer)(nil)

func NewCompatibilityAnalyzer(llm model.ToolCallingChatModel, opts CallOptions) *LLMCompatibilityAnalyzer {
	return &LLMCompatibilityAnalyzer{llm: llm, opts: opts}
}

func (a *LLMCompatibilityAnalyzer) AnalyzeCandidateCompatibility(ctx context.Context, profile *types.CandidateProfile, job *types.JobRecord) (types.CompatibilityAnalysis, error) {
	if profile == nil || job == nil {
		return types.CompatibilityAnalysis{}, fmt.Errorf("%w: 候选人或岗位为空", types.ErrInvalidArgument)
	}

	prompt := buildCompatibilityPrompt(profile, job)
	content, err := generate(ctx, a.llm, opCompatibility, compatibilitySystemPrompt, prompt, a.opts)
	if err != nil {
		return types.CompatibilityAnalysis{}, err
	}

	analysis, err := ParseCompatibility(content)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("response", preview(content)).Msg("兼容性分析结果校验失败")
		return types.CompatibilityAnalysis{}, err
	}
	return analysis, nil
}

func buildCompatibilityPrompt(p *types.CandidateProfile, j *types.JobRecord) string {
	jobSkills := make([]string, 0, len(j.RequiredSkills))
	for _, s := range j.RequiredSkills {
		jobSkills = append(jobSkills, s.SkillName)
	}

	return fmt.Sprintf(compatibilityPromptTemplate,
		j.JobTitle,
		j.ExperienceLevel,
		j.JobType,
		j.JobDescription,
		j.Responsibilities,
		j.Qualifications,
		j.NiceToHave,
		j.MinimumExperienceYears,
		prettyJSON(jobSkills),
		orDefault(p.CurrentJobTitle, "Not specified"),
		orDefault(p.CurrentCompany, "Not specified"),
		p.YearsOfExperience,
		orDefault(p.Bio, "Not provided"),
		prettyJSON(nonNil(p.Skills)),
		prettyJSON(nonNil(p.Experience)),
		prettyJSON(nonNil(p.Education)),
		prettyJSON(nonNil(p.Certifications)),
	)
}

// ParseCompatibility overall_score 和 score_breakdown 必须存在
func ParseCompatibility(content string) (types.CompatibilityAnalysis, error) {
	doc, err := parseObject(content)
	if err != nil {
		return types.CompatibilityAnalysis{}, types.NewUnavailableError(opCompatibility, err.Error())
	}

	score := doc.Get("overall_score")
	breakdown := doc.Get("score_breakdown")
	if !score.Exists() || !breakdown.Exists() {
		return types.CompatibilityAnalysis{}, malformed(opCompatibility, "缺少 overall_score 或 score_breakdown")
	}
	if !breakdown.IsObject() {
		return types.CompatibilityAnalysis{}, malformed(opCompatibility, "score_breakdown 不是对象")
	}

	fitLevel := strings.TrimSpace(doc.Get("fit_level").String())
	if fitLevel == "" {
		fitLevel = "Unknown"
	}

	return types.CompatibilityAnalysis{
		OverallScore: coerceScore(score),
		ScoreBreakdown: types.ScoreBreakdown{
			SkillsMatch:     coerceScore(breakdown.Get("skills_match")),
			ExperienceMatch: coerceScore(breakdown.Get("experience_match")),
			EducationMatch:  coerceScore(breakdown.Get("education_match")),
			OverallFit:      coerceScore(breakdown.Get("overall_fit")),
		},
		Strengths:       stringList(doc.Get("strengths")),
		SkillGaps:       stringList(doc.Get("skill_gaps")),
		ExperienceGaps:  stringList(doc.Get("experience_gaps")),
		Recommendations: stringList(doc.Get("recommendations")),
		FitLevel:        fitLevel,
		Summary:         strings.TrimSpace(doc.Get("summary").String()),
	}, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
