package analysis

import (
	"context"
	"fmt"
	"strings"

	"skillmatch/internal/logger"
	"skillmatch/internal/types"

	"github.com/cloudwego/eino/components/model"
)

const opRecommendation = "skill_recommendation"

// Recommender 为缺失技能生成学习建议
type Recommender interface {
	RecommendSkills(ctx context.Context, missing []types.MissingSkill) ([]types.SkillRecommendation, error)
}

type LLMRecommender struct {
	llm  model.ToolCallingChatModel
	opts CallOptions
}

var _ Recommender = (*LLMRecommender)(nil)

func NewRecommender(llm model.ToolCallingChatModel, opts CallOptions) *LLMRecommender {
	return &LLMRecommender{llm: llm, opts: opts}
}

// RecommendSkills 没有缺失技能时不调用模型
func (r *LLMRecommender) RecommendSkills(ctx context.Context, missing []types.MissingSkill) ([]types.SkillRecommendation, error) {
	if len(missing) == 0 {
		return []types.SkillRecommendation{}, nil
	}

	prompt := fmt.Sprintf(recommendationPromptTemplate, prettyJSON(missing))
	content, err := generate(ctx, r.llm, opRecommendation, recommendationSystemPrompt, prompt, r.opts)
	if err != nil {
		return nil, err
	}

	recs, err := ParseRecommendations(content)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("response", preview(content)).Msg("学习建议解析失败")
		return nil, err
	}
	return recs, nil
}

// ParseRecommendations 跳过没有 skill 的条目
func ParseRecommendations(content string) ([]types.SkillRecommendation, error) {
	doc, err := parseObject(content)
	if err != nil {
		return nil, types.NewUnavailableError(opRecommendation, err.Error())
	}

	out := []types.SkillRecommendation{}
	items := doc.Get("recommendations")
	if !items.IsArray() {
		return out, nil
	}
	for _, item := range items.Array() {
		skill := strings.TrimSpace(item.Get("skill").String())
		if skill == "" {
			continue
		}
		out = append(out, types.SkillRecommendation{
			Skill:         skill,
			LearningPath:  strings.TrimSpace(item.Get("learning_path").String()),
			Resources:     strings.TrimSpace(item.Get("resources").String()),
			EstimatedTime: strings.TrimSpace(item.Get("estimated_time").String()),
			Difficulty:    strings.TrimSpace(item.Get("difficulty").String()),
		})
	}
	return out, nil
}
