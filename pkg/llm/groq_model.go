// Package llm 提供基于 Groq OpenAI 兼容接口的 eino 聊天模型。
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"skillmatch/internal/logger"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/sashabaranov/go-openai"
)

const (
	DefaultGroqBaseURL = "https://api.groq.com/openai/v1"
	DefaultGroqModel   = "llama-3.3-70b-versatile"
)

// GroqConfig 模型客户端配置
type GroqConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// JSONMode 要求返回 JSON 对象
	JSONMode   bool
	Timeout    time.Duration
	HTTPClient *http.Client
}

// GroqChatModel 实现 model.ToolCallingChatModel
type GroqChatModel struct {
	client    *openai.Client
	modelName string
	jsonMode  bool
	tools     []openai.Tool
}

var _ model.ToolCallingChatModel = (*GroqChatModel)(nil)

// NewGroqChatModel 创建 Groq 聊天模型
func NewGroqChatModel(cfg GroqConfig) (*GroqChatModel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("API 密钥不能为空")
	}

	baseURL := cfg.BaseURL
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultGroqBaseURL
	}
	modelName := cfg.Model
	if strings.TrimSpace(modelName) == "" {
		modelName = DefaultGroqModel
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	clientCfg.BaseURL = strings.TrimRight(baseURL, "/")
	switch {
	case cfg.HTTPClient != nil:
		clientCfg.HTTPClient = cfg.HTTPClient
	case cfg.Timeout > 0:
		clientCfg.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}

	logger.Info().Str("base_url", clientCfg.BaseURL).Str("model", modelName).Msg("使用 Groq LLM 客户端")

	return &GroqChatModel{
		client:    openai.NewClientWithConfig(clientCfg),
		modelName: modelName,
		jsonMode:  cfg.JSONMode,
	}, nil
}

func (g *GroqChatModel) buildRequest(messages []*schema.Message, opts ...model.Option) openai.ChatCompletionRequest {
	options := model.GetCommonOptions(&model.Options{Model: &g.modelName}, opts...)

	req := openai.ChatCompletionRequest{
		Model:    g.modelName,
		Messages: toOpenAIMessages(messages),
	}
	if options.Model != nil && *options.Model != "" {
		req.Model = *options.Model
	}
	if options.Temperature != nil {
		req.Temperature = *options.Temperature
	}
	if options.MaxTokens != nil {
		req.MaxTokens = *options.MaxTokens
	}
	if options.TopP != nil {
		req.TopP = *options.TopP
	}
	if len(options.Stop) > 0 {
		req.Stop = options.Stop
	}
	if len(g.tools) > 0 {
		req.Tools = g.tools
	} else if g.jsonMode {
		// Groq 不允许 tools 与 json_object 同时使用
		req.ResponseFormat = &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject}
	}
	return req
}

// Generate 实现 model.BaseChatModel
func (g *GroqChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	req := g.buildRequest(messages, opts...)

	start := time.Now()
	resp, err := g.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return nil, wrapAPIError(err)
	}
	logger.Ctx(ctx).Debug().
		Str("model", req.Model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Dur("latency", time.Since(start)).
		Msg("Groq 调用完成")

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("从 API 收到空选项")
	}

	choice := resp.Choices[0]
	msg := fromOpenAIMessage(choice.Message)
	msg.ResponseMeta = &schema.ResponseMeta{
		FinishReason: string(choice.FinishReason),
		Usage: &schema.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		},
	}
	return msg, nil
}

// Stream 实现 model.BaseChatModel，按增量返回内容
func (g *GroqChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	req := g.buildRequest(messages, opts...)
	req.Stream = true

	stream, err := g.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, wrapAPIError(err)
	}

	sr, sw := schema.Pipe[*schema.Message](8)
	go func() {
		defer stream.Close()
		defer sw.Close()
		for {
			chunk, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				sw.Send(nil, wrapAPIError(err))
				return
			}
			if len(chunk.Choices) == 0 {
				continue
			}
			delta := chunk.Choices[0].Delta
			if closed := sw.Send(&schema.Message{
				Role:    schema.Assistant,
				Content: delta.Content,
			}, nil); closed {
				return
			}
		}
	}()
	return sr, nil
}

// WithTools 返回绑定了工具的新实例
func (g *GroqChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	converted, err := toOpenAITools(tools)
	if err != nil {
		return nil, err
	}
	clone := *g
	clone.tools = converted
	return &clone, nil
}

func toOpenAITools(tools []*schema.ToolInfo) ([]openai.Tool, error) {
	out := make([]openai.Tool, 0, len(tools))
	for _, info := range tools {
		if info == nil {
			continue
		}
		var params json.RawMessage = json.RawMessage(`{"type":"object","properties":{}}`)
		if info.ParamsOneOf != nil {
			s, err := info.ParamsOneOf.ToOpenAPIV3()
			if err != nil {
				return nil, fmt.Errorf("转换工具 %s 的参数失败: %w", info.Name, err)
			}
			if s != nil {
				b, err := json.Marshal(s)
				if err != nil {
					return nil, fmt.Errorf("序列化工具 %s 的参数失败: %w", info.Name, err)
				}
				params = b
			}
		}
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        info.Name,
				Description: info.Desc,
				Parameters:  params,
			},
		})
	}
	return out, nil
}

func toOpenAIMessages(messages []*schema.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		if m == nil {
			continue
		}
		msg := openai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Function.Name,
					Arguments: tc.Function.Arguments,
				},
			})
		}
		out = append(out, msg)
	}
	return out
}

func fromOpenAIMessage(m openai.ChatCompletionMessage) *schema.Message {
	role := schema.RoleType(m.Role)
	if role == "" {
		role = schema.Assistant
	}
	msg := &schema.Message{Role: role, Content: m.Content}
	for _, tc := range m.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, schema.ToolCall{
			ID: tc.ID,
			Function: schema.FunctionCall{
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			},
		})
	}
	return msg
}

// wrapAPIError 保留状态码，限流器据此判断是否重试
func wrapAPIError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			return fmt.Errorf("429 Too Many Requests: %w", err)
		}
		return fmt.Errorf("API 请求失败，状态 %d: %w", apiErr.HTTPStatusCode, err)
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return fmt.Errorf("API 请求失败，状态 %d: %w", reqErr.HTTPStatusCode, err)
	}
	return fmt.Errorf("发送请求失败: %w", err)
}
