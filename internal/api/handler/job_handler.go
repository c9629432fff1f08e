package handler

import (
	"context"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// ExtractSkillsRequest 可选的手工技能列表
type ExtractSkillsRequest struct {
	ManualSkills []string `json:"manualSkills"`
}

// HandleExtractSkills POST /api/v1/jobs/:job_id/skills/extract
func (h *Handler) HandleExtractSkills(ctx context.Context, c *app.RequestContext) {
	var req ExtractSkillsRequest
	if len(c.Request.Body()) > 0 {
		if err := c.BindJSON(&req); err != nil {
			badRequest(c, "请求体格式错误")
			return
		}
	}

	resp, err := h.extraction.ExtractJobSkills(ctx, c.Param("job_id"), req.ManualSkills)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, resp)
}
