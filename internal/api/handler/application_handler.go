package handler

import (
	"context"
	"strconv"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
)

// HandleCompatibility GET|POST /api/v1/applications/:application_id/compatibility?force=
func (h *Handler) HandleCompatibility(ctx context.Context, c *app.RequestContext) {
	force := false
	if v := c.Query("force"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			badRequest(c, "force 必须是布尔值")
			return
		}
		force = parsed
	}

	resp, err := h.compatibility.GetCompatibilitySnapshot(ctx, c.Param("application_id"), force)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, resp)
}

// HandleCacheStatistics GET /api/v1/cache/statistics
func (h *Handler) HandleCacheStatistics(ctx context.Context, c *app.RequestContext) {
	report, err := h.stats.GetCacheStatistics(ctx)
	if err != nil {
		writeError(ctx, c, err)
		return
	}
	c.JSON(consts.StatusOK, report)
}
