// Package hcl evaluates expressions written in HCL native syntax.
//
// Variables are bound by name. Tables are bound as objects with name,
// namespace, columns (a tuple of column names), rows (a tuple of objects keyed
// by cell key) and count.
package hcl

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/recalc/pkg/domain"
	"github.com/aretw0/recalc/pkg/evaluator"
	"github.com/aretw0/recalc/pkg/ports"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/hclsyntax"
	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/function"
	"github.com/zclconf/go-cty/cty/function/stdlib"
)

// Name is the evaluator name used in configuration.
const Name = "hcl"

// Evaluator compiles HCL expressions.
type Evaluator struct {
	funcs map[string]function.Function
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithFunction registers an additional function callable from expressions.
func WithFunction(name string, fn function.Function) Option {
	return func(e *Evaluator) {
		e.funcs[name] = fn
	}
}

// New returns an evaluator with a numeric, string and date function library.
func New(opts ...Option) *Evaluator {
	e := &Evaluator{funcs: defaultFunctions()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func defaultFunctions() map[string]function.Function {
	return map[string]function.Function{
		"abs":        stdlib.AbsoluteFunc,
		"ceil":       stdlib.CeilFunc,
		"floor":      stdlib.FloorFunc,
		"max":        stdlib.MaxFunc,
		"min":        stdlib.MinFunc,
		"pow":        stdlib.PowFunc,
		"log":        stdlib.LogFunc,
		"signum":     stdlib.SignumFunc,
		"upper":      stdlib.UpperFunc,
		"lower":      stdlib.LowerFunc,
		"strlen":     stdlib.StrlenFunc,
		"substr":     stdlib.SubstrFunc,
		"trimspace":  stdlib.TrimSpaceFunc,
		"replace":    stdlib.ReplaceFunc,
		"format":     stdlib.FormatFunc,
		"join":       stdlib.JoinFunc,
		"length":     stdlib.LengthFunc,
		"coalesce":   stdlib.CoalesceFunc,
		"parseint":   stdlib.ParseIntFunc,
		"formatdate": stdlib.FormatDateFunc,
		"timeadd":    stdlib.TimeAddFunc,
	}
}

func (e *Evaluator) Name() string { return Name }

// Compile implements ports.Evaluator.
func (e *Evaluator) Compile(expression string) (ports.Program, error) {
	src := evaluator.Normalize(expression)
	expr, diags := hclsyntax.ParseExpression([]byte(src), "expression", hcl.InitialPos)
	if diags.HasErrors() {
		return nil, fmt.Errorf("compile %q: %w", expression, diags)
	}
	return &program{source: expression, expr: expr, funcs: e.funcs}, nil
}

type program struct {
	source string
	expr   hclsyntax.Expression
	funcs  map[string]function.Function
}

// Eval implements ports.Program.
func (p *program) Eval(ctx context.Context, vars map[string]domain.Value) (domain.Value, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	bound := make(map[string]cty.Value, len(vars))
	for name, v := range vars {
		bound[name] = toCty(v)
	}
	val, diags := p.expr.Value(&hcl.EvalContext{Variables: bound, Functions: p.funcs})
	if diags.HasErrors() {
		return nil, fmt.Errorf("evaluate %q: %w", p.source, diags)
	}
	return fromCty(val)
}

func toCty(v domain.Value) cty.Value {
	switch v := v.(type) {
	case domain.Float:
		return cty.NumberFloatVal(float64(v))
	case domain.Bool:
		return cty.BoolVal(bool(v))
	case domain.DateTime:
		return cty.StringVal(time.Time(v).Format(time.RFC3339))
	case domain.String:
		return cty.StringVal(string(v))
	case domain.Table:
		return tableVal(v.DataTable)
	}
	return cty.NullVal(cty.DynamicPseudoType)
}

func tableVal(t domain.DataTable) cty.Value {
	columns := make([]cty.Value, 0, len(t.Columns))
	for _, c := range t.Columns {
		columns = append(columns, cty.StringVal(c.Name))
	}
	records := t.Records()
	rows := make([]cty.Value, 0, len(records))
	for _, rec := range records {
		attrs := make(map[string]cty.Value, len(rec))
		for k, v := range rec {
			attrs[k] = cty.StringVal(v)
		}
		rows = append(rows, cty.ObjectVal(attrs))
	}
	return cty.ObjectVal(map[string]cty.Value{
		"name":      cty.StringVal(t.Name),
		"namespace": cty.StringVal(t.Namespace),
		"columns":   tuple(columns),
		"rows":      tuple(rows),
		"count":     cty.NumberIntVal(int64(len(rows))),
	})
}

func tuple(vals []cty.Value) cty.Value {
	if len(vals) == 0 {
		return cty.EmptyTupleVal
	}
	return cty.TupleVal(vals)
}

func fromCty(val cty.Value) (domain.Value, error) {
	if !val.IsKnown() || val.IsNull() {
		return nil, fmt.Errorf("expression produced no value")
	}
	switch val.Type() {
	case cty.Number:
		f, _ := val.AsBigFloat().Float64()
		return domain.Float(f), nil
	case cty.Bool:
		return domain.Bool(val.True()), nil
	case cty.String:
		return domain.String(val.AsString()), nil
	}
	return nil, fmt.Errorf("expression produced a %s, want a scalar", val.Type().FriendlyName())
}
