package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/recalc/pkg/domain"
)

// Merge returns hooks that call every non-nil hook of each set in order.
func Merge(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		if f := h.OnSessionStart; f != nil {
			prev := out.OnSessionStart
			out.OnSessionStart = func(ctx context.Context, e *domain.SessionEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				f(ctx, e)
			}
		}
		if f := h.OnSessionStop; f != nil {
			prev := out.OnSessionStop
			out.OnSessionStop = func(ctx context.Context, e *domain.SessionEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				f(ctx, e)
			}
		}
		if f := h.OnEvaluation; f != nil {
			prev := out.OnEvaluation
			out.OnEvaluation = func(ctx context.Context, e *domain.EvaluationEvent) {
				if prev != nil {
					prev(ctx, e)
				}
				f(ctx, e)
			}
		}
		if f := h.OnPropagation; f != nil {
			prev := out.OnPropagation
			out.OnPropagation = func(ctx context.Context, u *domain.VariableUpdate) {
				if prev != nil {
					prev(ctx, u)
				}
				f(ctx, u)
			}
		}
	}
	return out
}

// LoggingHooks logs session transitions at Info and every evaluation and
// propagation at Debug.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnSessionStart: func(ctx context.Context, e *domain.SessionEvent) {
			logger.InfoContext(ctx, "session_start", "session_id", e.SessionID, "workbook_id", e.WorkbookID)
		},
		OnSessionStop: func(ctx context.Context, e *domain.SessionEvent) {
			attrs := []any{"session_id", e.SessionID, "workbook_id", e.WorkbookID, "duration", e.Duration}
			if e.Err != nil {
				logger.WarnContext(ctx, "session_stop", append(attrs, "err", e.Err)...)
				return
			}
			logger.InfoContext(ctx, "session_stop", attrs...)
		},
		OnEvaluation: func(ctx context.Context, e *domain.EvaluationEvent) {
			logger.DebugContext(ctx, "evaluation",
				"session_id", e.SessionID,
				"expression", e.Expression,
				"output", e.Output,
				"duration", e.Duration,
				"err", e.Err,
			)
		},
		OnPropagation: func(ctx context.Context, u *domain.VariableUpdate) {
			logger.DebugContext(ctx, "propagation",
				"session_id", u.SessionID,
				"variable", u.Key().String(),
				"type", u.Type,
			)
		},
	}
}
