package domain

import (
	"context"
	"time"
)

// SessionEvent describes a session lifecycle transition.
type SessionEvent struct {
	Timestamp  time.Time     `json:"timestamp"`
	SessionID  string        `json:"session_id"`
	WorkbookID string        `json:"workbook_id"`
	Duration   time.Duration `json:"duration,omitempty"`
	Err        error         `json:"-"`
}

// EvaluationEvent describes one expression evaluation.
type EvaluationEvent struct {
	Timestamp  time.Time     `json:"timestamp"`
	SessionID  string        `json:"session_id"`
	Expression string        `json:"expression"`
	Output     string        `json:"output,omitempty"`
	Duration   time.Duration `json:"duration"`
	Err        error         `json:"-"`
}

// LifecycleHooks defines callbacks for engine observability. Nil hooks are skipped.
type LifecycleHooks struct {
	OnSessionStart func(context.Context, *SessionEvent)
	OnSessionStop  func(context.Context, *SessionEvent)
	OnEvaluation   func(context.Context, *EvaluationEvent)
	OnPropagation  func(context.Context, *VariableUpdate)
}
