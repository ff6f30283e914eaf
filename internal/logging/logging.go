// Package logging attaches slog to the gateway event stream.
package logging

import (
	"context"
	"log/slog"

	eventbus "github.com/hanpama/taskgraph/internal/eventbus"
	events "github.com/hanpama/taskgraph/internal/events"
	reqid "github.com/hanpama/taskgraph/internal/reqid"
)

// Setup subscribes logger to the event bus. Request completions log at Info,
// operations at Info or Warn when they returned errors, and backend calls at
// Debug or Warn when the transport failed.
func Setup(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	eventbus.Subscribe(func(ctx context.Context, e events.HTTPFinish) {
		logger.LogAttrs(ctx, slog.LevelInfo, "http request",
			requestID(ctx),
			slog.String("method", e.Request.Method),
			slog.String("path", e.Request.URL.Path),
			slog.Int("status", e.Status),
			slog.Duration("duration", e.Duration),
		)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.GraphQLFinish) {
		level := slog.LevelInfo
		attrs := []slog.Attr{
			requestID(ctx),
			slog.String("operation", e.OperationName),
			slog.String("type", e.OperationType),
			slog.Duration("duration", e.Duration),
		}
		if len(e.Errors) > 0 {
			level = slog.LevelWarn
			attrs = append(attrs,
				slog.Int("errors", len(e.Errors)),
				slog.String("error", e.Errors[0].Error()),
			)
		}
		logger.LogAttrs(ctx, level, "graphql operation", attrs...)
	})

	eventbus.Subscribe(func(ctx context.Context, e events.RESTCallFinish) {
		level := slog.LevelDebug
		attrs := []slog.Attr{
			requestID(ctx),
			slog.String("method", e.Method),
			slog.String("url", e.URL),
			slog.Int("status", e.Status),
			slog.Duration("duration", e.Duration),
		}
		if e.Err != nil {
			level = slog.LevelWarn
			attrs = append(attrs, slog.String("error", e.Err.Error()))
		}
		logger.LogAttrs(ctx, level, "task service call", attrs...)
	})
}

func requestID(ctx context.Context) slog.Attr {
	id, _ := reqid.FromContext(ctx)
	return slog.String("request_id", id)
}
