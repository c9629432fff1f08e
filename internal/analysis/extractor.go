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

const opExtraction = "skill_extraction"

// SkillExtractor 从岗位信息中提取技能要求
type SkillExtractor interface {
	ExtractJobSkills(ctx context.Context, job *types.JobRecord, manualSkills []string) ([]types.ExtractedSkill, error)
}

type LLMSkillExtractor struct {
	llm  model.ToolCallingChatModel
	opts CallOptions
}

var _ SkillExtractor = (*LLMSkillExtractor)(nil)

func NewSkillExtractor(llm model.ToolCallingChatModel, opts CallOptions) *LLMSkillExtractor {
	return &LLMSkillExtractor{llm: llm, opts: opts}
}

func (e *LLMSkillExtractor) ExtractJobSkills(ctx context.Context, job *types.JobRecord, manualSkills []string) ([]types.ExtractedSkill, error) {
	if job == nil {
		return nil, fmt.Errorf("%w: 岗位为空", types.ErrInvalidArgument)
	}

	manual := ""
	if len(manualSkills) > 0 {
		manual = "\nManually Specified Required Skills: " + strings.Join(manualSkills, ", ")
	}
	prompt := fmt.Sprintf(extractionPromptTemplate,
		job.JobTitle, job.Department, job.JobDescription, job.Responsibilities,
		job.Qualifications, job.NiceToHave, job.Benefits, manual)

	content, err := generate(ctx, e.llm, opExtraction, extractionSystemPrompt, prompt, e.opts)
	if err != nil {
		return nil, err
	}

	skills, err := ParseExtractedSkills(content)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("response", preview(content)).Msg("技能提取结果解析失败")
		return nil, err
	}
	return skills, nil
}

// ParseExtractedSkills 接受 {"skills":[...]} 或直接的数组
func ParseExtractedSkills(content string) ([]types.ExtractedSkill, error) {
	var (
		items gjson.Result
		err   error
	)
	if strings.HasPrefix(stripFences(content), "[") {
		items, err = parseDocument(content, '[', ']')
	} else {
		var doc gjson.Result
		doc, err = parseObject(content)
		items = doc.Get("skills")
	}
	if err != nil {
		return nil, types.NewUnavailableError(opExtraction, err.Error())
	}

	raw := make([]types.ExtractedSkill, 0)
	if items.IsArray() {
		for _, item := range items.Array() {
			raw = append(raw, types.ExtractedSkill{
				Skill:      item.Get("skill").String(),
				Category:   item.Get("category").String(),
				Importance: item.Get("importance").String(),
			})
		}
	}
	return NormalizeExtractedSkills(raw), nil
}

// NormalizeExtractedSkills 技能名小写去空格，补默认分类和重要性，去掉空值和重复项
func NormalizeExtractedSkills(skills []types.ExtractedSkill) []types.ExtractedSkill {
	out := make([]types.ExtractedSkill, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		name := strings.ToLower(strings.TrimSpace(s.Skill))
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		category := strings.TrimSpace(s.Category)
		if category == "" {
			category = "other"
		}
		out = append(out, types.ExtractedSkill{
			Skill:      name,
			Category:   category,
			Importance: string(types.NormalizeRequirement(strings.ToLower(strings.TrimSpace(s.Importance)))),
		})
	}
	return out
}
