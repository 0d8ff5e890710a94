package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventEvaluate EventType = "evaluate"
	EventResult   EventType = "result"
	EventReset    EventType = "reset"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
}

// EvalEvent is emitted before and after an execution.
// Result is only set on EventResult.
type EvalEvent struct {
	EventBase
	InvocationID string  `json:"invocation_id"`
	Input        string  `json:"input"`
	Shape        Shape   `json:"shape,omitempty"`
	Result       *Result `json:"-"`
}

// ResetEvent is emitted when the environment is restored to its seed bindings.
type ResetEvent struct {
	EventBase
	Token string `json:"token,omitempty"`
}

// LifecycleHooks defines callbacks for console observability.
type LifecycleHooks struct {
	OnEvaluate func(context.Context, *EvalEvent)
	OnResult   func(context.Context, *EvalEvent)
	OnReset    func(context.Context, *ResetEvent)
}

// Merge returns hooks that call h first and then other.
func (h LifecycleHooks) Merge(other LifecycleHooks) LifecycleHooks {
	return LifecycleHooks{
		OnEvaluate: chainEval(h.OnEvaluate, other.OnEvaluate),
		OnResult:   chainEval(h.OnResult, other.OnResult),
		OnReset:    chainReset(h.OnReset, other.OnReset),
	}
}

func chainEval(a, b func(context.Context, *EvalEvent)) func(context.Context, *EvalEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *EvalEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}

func chainReset(a, b func(context.Context, *ResetEvent)) func(context.Context, *ResetEvent) {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	return func(ctx context.Context, e *ResetEvent) {
		a(ctx, e)
		b(ctx, e)
	}
}
