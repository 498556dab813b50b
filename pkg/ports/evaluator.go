package ports

import (
	"context"

	"github.com/aretw0/recalc/pkg/domain"
)

// Evaluator compiles expression text into a reusable Program.
type Evaluator interface {
	// Name identifies the expression language (e.g. "hcl").
	Name() string

	// Compile parses the expression. It fails on syntax errors only; unknown
	// variables are reported by Program.Eval.
	Compile(expression string) (Program, error)
}

// Program is a compiled expression. Implementations must be safe to call
// repeatedly; each Expression actor owns one Program.
type Program interface {
	// Eval runs the program against variables keyed by name and returns a scalar.
	Eval(ctx context.Context, vars map[string]domain.Value) (domain.Value, error)
}
