// Package logctx enriches slog records with pool and tool-call context
// carried on the request context. Install Handler around any slog.Handler to
// get the enrichment process-wide.
package logctx

import (
	"context"
	"log/slog"
)

type Handler struct {
	slog.Handler
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if pd, ok := ctx.Value(poolDataKey{}).(*PoolData); ok {
		attrs := []any{slog.String("key", pd.Key)}
		if pd.SessionID != "" {
			attrs = append(attrs, slog.String("session_id", pd.SessionID))
		}
		r.AddAttrs(slog.Group("pool", attrs...))
	}

	if td, ok := ctx.Value(toolCallDataKey{}).(*ToolCallData); ok {
		r.AddAttrs(slog.Group("tool",
			slog.String("name", td.ToolName),
		))
	}

	return h.Handler.Handle(ctx, r)
}

type poolDataKey struct{}

type PoolData struct {
	Key       string
	SessionID string
}

func WithPoolData(ctx context.Context, data *PoolData) context.Context {
	return context.WithValue(ctx, poolDataKey{}, data)
}

type toolCallDataKey struct{}

type ToolCallData struct {
	ToolName string
}

func WithToolCallData(ctx context.Context, data *ToolCallData) context.Context {
	return context.WithValue(ctx, toolCallDataKey{}, data)
}
