package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/evalrepl/pkg/domain"
)

// LoggingHooks logs every evaluation result and reset at info level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnResult: func(ctx context.Context, e *domain.EvalEvent) {
			attrs := []any{
				"session_id", e.SessionID,
				"invocation_id", e.InvocationID,
				"shape", e.Shape,
			}
			if e.Result != nil {
				attrs = append(attrs, "duration", e.Result.Duration)
				if e.Result.Failed() {
					attrs = append(attrs, "err", e.Result.Error)
				}
				if !e.Result.Bindings.IsEmpty() {
					attrs = append(attrs, "bindings", e.Result.Bindings)
				}
			}
			logger.InfoContext(ctx, "evaluation", attrs...)
		},
		OnReset: func(ctx context.Context, e *domain.ResetEvent) {
			logger.InfoContext(ctx, "reset", "session_id", e.SessionID, "token", e.Token)
		},
	}
}
