package handler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"skillmatch/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestWriteError_RecordsSpan(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		status   int
		category string
	}{
		{name: "不存在", err: fmt.Errorf("读取候选人: %w", types.ErrNotFound), status: 404, category: "client_error"},
		{name: "参数错误", err: fmt.Errorf("%w: scope", types.ErrInvalidArgument), status: 400, category: "client_error"},
		{name: "分析不可用", err: types.NewUnavailableError("skill_match", "timeout"), status: 500, category: "server_error"},
		{name: "其他错误", err: errors.New("boom"), status: 500, category: "server_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tracetest.NewSpanRecorder()
			tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
			ctx, span := tp.Tracer("test").Start(context.Background(), "request")

			c := app.NewContext(0)
			writeError(ctx, c, tt.err)
			span.End()

			assert.Equal(t, tt.status, c.Response.StatusCode())

			spans := rec.Ended()
			require.Len(t, spans, 1)
			assert.Equal(t, codes.Error, spans[0].Status().Code)
			attrs := spans[0].Attributes()
			assert.Contains(t, attrs, attribute.Int("http.status_code", tt.status))
			assert.Contains(t, attrs, attribute.String("error.category", tt.category))
			assert.Contains(t, attrs, attribute.String("error.type", "http"))
		})
	}
}

func TestWriteError_WithoutSpan(t *testing.T) {
	c := app.NewContext(0)
	writeError(context.Background(), c, types.ErrNotFound)
	assert.Equal(t, 404, c.Response.StatusCode())
}
