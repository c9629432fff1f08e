// Package analysis 调用 LLM 完成技能匹配、兼容性分析、技能提取和学习建议，
// 并在返回前校验模型输出。
package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"skillmatch/internal/config"
	"skillmatch/internal/logger"
	"skillmatch/internal/tracing"
	"skillmatch/internal/types"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var tracer = otel.Tracer("skillmatch/analysis")

// CallOptions 单次调用的模型参数
type CallOptions struct {
	Model       string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// CallOptionsFrom 从配置生成调用参数
func CallOptionsFrom(cfg config.CallConfig, modelName string) CallOptions {
	return CallOptions{
		Model:       modelName,
		Temperature: cfg.Temperature,
		MaxTokens:   cfg.MaxTokens,
		Timeout:     config.GetDuration(cfg.Timeout, 0),
	}
}

func (o CallOptions) modelOptions() []model.Option {
	opts := []model.Option{
		model.WithTemperature(o.Temperature),
	}
	if o.MaxTokens > 0 {
		opts = append(opts, model.WithMaxTokens(o.MaxTokens))
	}
	if o.Model != "" {
		opts = append(opts, model.WithModel(o.Model))
	}
	return opts
}

// generate 发送 system+user 两条消息，返回模型的文本输出。
// 调用失败或空响应统一返回 ErrAnalysisUnavailable。
func generate(ctx context.Context, llm model.ToolCallingChatModel, op, system, user string, opts CallOptions) (string, error) {
	ctx, span := tracer.Start(ctx, "analysis."+op)
	defer span.End()
	span.SetAttributes(
		attribute.String("llm.model", opts.Model),
		attribute.String("llm.prompt", tracing.SafePrompt(user)),
	)

	if llm == nil {
		return "", types.NewUnavailableError(op, "LLM模型未初始化")
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	log := logger.Ctx(ctx)
	start := time.Now()
	resp, err := llm.Generate(ctx, []*schema.Message{
		schema.SystemMessage(system),
		schema.UserMessage(user),
	}, opts.modelOptions()...)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeLLM)
		log.Error().Err(err).Str("op", op).Dur("latency", time.Since(start)).Msg("LLM调用失败")
		return "", &types.AnalysisError{Op: op, BaseErr: types.ErrAnalysisUnavailable, Detail: err.Error()}
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", types.NewUnavailableError(op, "LLM返回空响应")
	}

	span.SetAttributes(attribute.Int("llm.response_length", len(resp.Content)))
	log.Debug().Str("op", op).Dur("latency", time.Since(start)).Int("response_length", len(resp.Content)).Msg("LLM调用完成")
	return resp.Content, nil
}

// prettyJSON 用于拼接到 prompt 里
func prettyJSON(v interface{}) string {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "[]"
	}
	return string(b)
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}

func preview(s string) string {
	return tracing.TruncateString(s, 200)
}

func malformed(op, format string, args ...interface{}) error {
	return types.NewMalformedError(op, fmt.Sprintf(format, args...))
}
