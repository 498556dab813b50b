// Package js evaluates expressions as JavaScript using goja.
//
// Each evaluation runs in a fresh runtime with the variables installed as
// globals. Tables are plain objects with name, namespace, columns, rows and
// count properties. Every evaluation is bounded by its own timeout; the
// runtime delivers messages without the caller's cancellation.
package js

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aretw0/recalc/pkg/domain"
	"github.com/aretw0/recalc/pkg/evaluator"
	"github.com/aretw0/recalc/pkg/ports"
	"github.com/dop251/goja"
)

// Name is the evaluator name used in configuration.
const Name = "js"

// ErrInterrupted is returned when the context ends during evaluation.
var ErrInterrupted = errors.New("evaluation interrupted")

// DefaultTimeout bounds a single evaluation unless WithTimeout says otherwise.
const DefaultTimeout = 5 * time.Second

// Evaluator compiles JavaScript expressions.
type Evaluator struct {
	timeout time.Duration
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithTimeout sets the wall-clock limit of one evaluation. Zero disables it,
// leaving only the caller's context.
func WithTimeout(d time.Duration) Option {
	return func(e *Evaluator) {
		e.timeout = d
	}
}

// New returns a JavaScript evaluator.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{timeout: DefaultTimeout}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Evaluator) Name() string { return Name }

// Compile implements ports.Evaluator.
func (e *Evaluator) Compile(expression string) (ports.Program, error) {
	src := "(" + evaluator.Normalize(expression) + "\n)"
	prg, err := goja.Compile("expression", src, true)
	if err != nil {
		return nil, fmt.Errorf("compile %q: %w", expression, err)
	}
	return &program{source: expression, prg: prg, timeout: e.timeout}, nil
}

type program struct {
	source  string
	prg     *goja.Program
	timeout time.Duration
}

// Eval implements ports.Program.
func (p *program) Eval(ctx context.Context, vars map[string]domain.Value) (domain.Value, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("evaluate %q: %w: %w", p.source, ErrInterrupted, err)
	}
	vm := goja.New()
	for name, v := range vars {
		if err := vm.Set(name, toJS(v)); err != nil {
			return nil, fmt.Errorf("bind %q: %w", name, err)
		}
	}

	stop := context.AfterFunc(ctx, func() {
		vm.Interrupt(ErrInterrupted)
	})
	defer stop()

	v, err := vm.RunProgram(p.prg)
	if err != nil {
		var interrupted *goja.InterruptedError
		if errors.As(err, &interrupted) {
			return nil, fmt.Errorf("evaluate %q: %w: %w", p.source, ErrInterrupted, ctx.Err())
		}
		return nil, fmt.Errorf("evaluate %q: %w", p.source, err)
	}
	return fromJS(v)
}

func toJS(v domain.Value) any {
	switch v := v.(type) {
	case domain.Float:
		return float64(v)
	case domain.Bool:
		return bool(v)
	case domain.DateTime:
		return time.Time(v).Format(time.RFC3339)
	case domain.String:
		return string(v)
	case domain.Table:
		columns := make([]any, 0, len(v.Columns))
		for _, c := range v.Columns {
			columns = append(columns, c.Name)
		}
		records := v.Records()
		rows := make([]any, 0, len(records))
		for _, rec := range records {
			row := make(map[string]any, len(rec))
			for k, val := range rec {
				row[k] = val
			}
			rows = append(rows, row)
		}
		return map[string]any{
			"name":      v.Name,
			"namespace": v.Namespace,
			"columns":   columns,
			"rows":      rows,
			"count":     len(rows),
		}
	}
	return nil
}

func fromJS(v goja.Value) (domain.Value, error) {
	if v == nil || goja.IsUndefined(v) || goja.IsNull(v) {
		return nil, fmt.Errorf("expression produced no value")
	}
	switch x := v.Export().(type) {
	case int64:
		return domain.Float(float64(x)), nil
	case float64:
		if math.IsNaN(x) {
			return nil, fmt.Errorf("expression produced NaN")
		}
		return domain.Float(x), nil
	case bool:
		return domain.Bool(x), nil
	case string:
		return domain.String(x), nil
	default:
		return nil, fmt.Errorf("expression produced a %T, want a scalar", x)
	}
}
