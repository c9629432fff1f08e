package handler

import (
	"context"
	"strings"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// ReanalyzeRequest POST /api/v1/reanalyze 请求体
type ReanalyzeRequest struct {
	CandidateID string `json:"candidateId"`
	JobID       string `json:"jobId"`
	Scope       string `json:"scope,omitempty"`
}

// HandleGetMatch GET|POST /api/v1/candidates/:candidate_id/jobs/:job_id/match
func (h *Handler) HandleGetMatch(ctx context.Context, c *app.RequestContext) {
	candidateID, jobID := c.Param("candidate_id"), c.Param("job_id")
	if strings.TrimSpace(candidateID) == "" || strings.TrimSpace(jobID) == "" {
		badRequest(c, "candidate_id 和 job_id 不能为空")
		return
	}

	resp, err := h.matches.GetMatch(ctx, candidateID, jobID)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, resp)
}

// HandleInvalidateMatch DELETE /api/v1/candidates/:candidate_id/jobs/:job_id/match?scope=
func (h *Handler) HandleInvalidateMatch(ctx context.Context, c *app.RequestContext) {
	res, err := h.matches.InvalidateMatch(ctx, c.Param("candidate_id"), c.Param("job_id"), c.Query("scope"))
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, res)
}

// HandleReanalyze POST /api/v1/reanalyze
// 只清除缓存，下一次 GetMatch 会重新分析
func (h *Handler) HandleReanalyze(ctx context.Context, c *app.RequestContext) {
	var req ReanalyzeRequest
	if err := c.BindJSON(&req); err != nil {
		badRequest(c, "请求体格式错误")
		return
	}
	if strings.TrimSpace(req.CandidateID) == "" || strings.TrimSpace(req.JobID) == "" {
		badRequest(c, "jobId 和 candidateId 不能为空")
		return
	}

	res, err := h.matches.InvalidateMatch(ctx, req.CandidateID, req.JobID, req.Scope)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, map[string]interface{}{
		"message":       "Cache cleared. The next match request will run a fresh analysis.",
		"candidateId":   res.CandidateID,
		"jobId":         res.JobID,
		"scope":         res.Scope,
		"invalidatedAt": res.InvalidatedAt,
	})
}

// HandleRecommendations GET /api/v1/candidates/:candidate_id/jobs/:job_id/recommendations
func (h *Handler) HandleRecommendations(ctx context.Context, c *app.RequestContext) {
	resp, err := h.recommendations.GetRecommendations(ctx, c.Param("candidate_id"), c.Param("job_id"))
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, resp)
}
