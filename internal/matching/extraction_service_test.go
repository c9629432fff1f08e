package matching

import (
	"context"
	"errors"
	"testing"
	"time"

	"skillmatch/internal/analysis"
	"skillmatch/internal/types"
	"skillmatch/pkg/llm"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memJobs struct {
	jobs       map[string]*types.JobRecord
	replaced   map[string][]types.ExtractedSkill
	replacedAt time.Time
	replaceErr error
}

func (m *memJobs) FetchJobFullRecord(_ context.Context, id string) (*types.JobRecord, error) {
	j, ok := m.jobs[id]
	if !ok {
		return nil, types.ErrNotFound
	}
	return j, nil
}

func (m *memJobs) ReplaceJobSkills(_ context.Context, id string, skills []types.ExtractedSkill, now time.Time) error {
	if m.replaceErr != nil {
		return m.replaceErr
	}
	if m.replaced == nil {
		m.replaced = map[string][]types.ExtractedSkill{}
	}
	m.replaced[id] = skills
	m.replacedAt = now
	return nil
}

func TestSkillExtractionService(t *testing.T) {
	jobs := &memJobs{jobs: map[string]*types.JobRecord{"j1": {JobID: "j1", JobTitle: "Platform Engineer"}}}
	mock := llm.NewMockChatModel(`{"skills": [
		{"skill": "Terraform", "category": "tool", "importance": "required"},
		{"skill": "AWS", "category": "platform", "importance": "preferred"}
	]}`, nil)
	now := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	svc := NewSkillExtractionService(jobs, analysis.NewSkillExtractor(mock, analysis.CallOptions{}), func() time.Time { return now })

	resp, err := svc.ExtractJobSkills(context.Background(), "j1", []string{"aws", "Linux"})
	require.NoError(t, err)
	assert.Equal(t, now, resp.ExtractedAt)
	assert.Equal(t, now, jobs.replacedAt, "岗位更新时间使用注入的时钟")
	assert.Equal(t, []types.ExtractedSkill{
		{Skill: "terraform", Category: "tool", Importance: "required"},
		{Skill: "aws", Category: "platform", Importance: "preferred"},
		{Skill: "linux", Category: "other", Importance: "required"},
	}, resp.Skills)
	assert.Equal(t, resp.Skills, jobs.replaced["j1"], "技能列表应整体替换")
}

func TestSkillExtractionService_Errors(t *testing.T) {
	jobs := &memJobs{jobs: map[string]*types.JobRecord{"j1": {JobID: "j1"}}}

	svc := NewSkillExtractionService(jobs, analysis.NewSkillExtractor(llm.NewMockChatModel("", errors.New("timeout")), analysis.CallOptions{}), nil)
	_, err := svc.ExtractJobSkills(context.Background(), "j1", nil)
	assert.ErrorIs(t, err, types.ErrAnalysisUnavailable)
	assert.Empty(t, jobs.replaced, "提取失败时不修改岗位技能")

	_, err = svc.ExtractJobSkills(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, types.ErrNotFound)

	_, err = svc.ExtractJobSkills(context.Background(), "", nil)
	assert.ErrorIs(t, err, types.ErrInvalidArgument)

	jobs.replaceErr = errors.New("tx aborted")
	ok := NewSkillExtractionService(jobs, analysis.NewSkillExtractor(llm.NewMockChatModel(`{"skills": []}`, nil), analysis.CallOptions{}), nil)
	_, err = ok.ExtractJobSkills(context.Background(), "j1", []string{"go"})
	assert.ErrorIs(t, err, jobs.replaceErr)
}
