// Package middleware wraps a ports.ResultStore with cross-cutting behavior
// such as field encryption and redaction.
package middleware

import (
	"github.com/aretw0/recalc/pkg/domain"
	"github.com/aretw0/recalc/pkg/ports"
)

// Middleware allows wrapping a ResultStore to add behavior.
type Middleware func(ports.ResultStore) ports.ResultStore

// Chain applies the middlewares so the first one is outermost.
func Chain(store ports.ResultStore, mws ...Middleware) ports.ResultStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}

// clone copies the slices a middleware rewrites so the caller's result is
// never modified.
func clone(r *domain.EvaluationResult) *domain.EvaluationResult {
	out := *r
	out.State = append([]domain.VariableState(nil), r.State...)
	out.Logs = append([]domain.LogLine(nil), r.Logs...)
	return &out
}
