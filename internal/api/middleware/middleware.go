// Package middleware Hertz 中间件。
package middleware

import (
	"context"
	"errors"
	"time"

	"skillmatch/internal/logger"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/hlog"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/google/uuid"
	"github.com/hertz-contrib/keyauth"
)

const (
	HeaderRequestID = "X-Request-ID"
	HeaderAPIKey    = "X-API-Key"
	// ContextKeyAPIKey 校验通过的 API Key 在请求上下文中的键名
	ContextKeyAPIKey = "admin_api_key"
)

var errInvalidAPIKey = errors.New("invalid API key")

// RequestID 沿用客户端的 X-Request-ID，没有时生成一个，并放入日志上下文
func RequestID() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		id := string(c.GetHeader(HeaderRequestID))
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Response.Header.Set(HeaderRequestID, id)
		c.Next(logger.WithRequestID(ctx, id))
	}
}

// AccessLog 通过 hlog 输出访问日志
func AccessLog() app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		c.Next(ctx)
		hlog.CtxInfof(ctx, "%s %s -> %d (%s)", c.Method(), c.Path(), c.Response.StatusCode(), time.Since(start))
	}
}

// Timeout 给下游处理设置截止时间，d<=0 时不生效
func Timeout(d time.Duration) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		if d <= 0 {
			c.Next(ctx)
			return
		}
		tctx, cancel := context.WithTimeout(ctx, d)
		defer cancel()
		c.Next(tctx)
	}
}

// AdminKeyAuth 校验 X-API-Key，enabled 为 false 时直接放行
func AdminKeyAuth(isValid func(key string) bool, enabled bool) app.HandlerFunc {
	if !enabled {
		return func(ctx context.Context, c *app.RequestContext) { c.Next(ctx) }
	}
	return keyauth.New(
		keyauth.WithKeyLookUp("header:"+HeaderAPIKey, ""),
		keyauth.WithContextKey(ContextKeyAPIKey),
		keyauth.WithValidator(func(ctx context.Context, c *app.RequestContext, key string) (bool, error) {
			if isValid(key) {
				return true, nil
			}
			return false, errInvalidAPIKey
		}),
		keyauth.WithErrorHandler(func(ctx context.Context, c *app.RequestContext, err error) {
			msg := "missing or malformed API key"
			if errors.Is(err, errInvalidAPIKey) {
				msg = err.Error()
			}
			c.AbortWithStatusJSON(consts.StatusUnauthorized, utils.H{"error": "Unauthorized", "message": msg})
		}),
	)
}
