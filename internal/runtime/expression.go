package runtime

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/recalc/internal/actor"
	"github.com/aretw0/recalc/pkg/domain"
	"github.com/aretw0/recalc/pkg/ports"
)

// expression evaluates a formula once every declared input has a value.
// The compiled program is built once and kept for the actor's lifetime.
type expression struct {
	binding
	text         string
	dependencies []domain.Dependency
	values       map[string]domain.Value
	output       *domain.Dependant
	program      ports.Program
}

func newExpression(env *Env, self actor.Address) *expression {
	return &expression{
		binding: binding{env: env, self: self, kind: "expression"},
		values:  make(map[string]domain.Value),
	}
}

func (e *expression) Receive(ctx context.Context, msg any) (any, error) {
	if m, ok := msg.(useSessionLogger); ok {
		return nil, e.bind(ctx, m)
	}
	if err := e.requireLogger(msg); err != nil {
		return nil, err
	}
	switch m := msg.(type) {
	case useExpression:
		e.text = m.Text
		e.program = nil
		e.logger.tracef(ctx, "Expression %s set to '%s'.", e.self, m.Text)
		return nil, nil
	case dependOn:
		return nil, e.dependOn(ctx, m.Dependency)
	case outputTo:
		target := m.Target
		e.output = &target
		e.logger.tracef(ctx, "Expression '%s' outputs to %s variable '%s' in namespace '%s'.", e.text, target.Type, target.Name, target.Namespace)
		return nil, nil
	case updateDataVariable:
		return nil, e.receiveUpdate(ctx, m.Update)
	case evaluate:
		return nil, e.evaluate(ctx)
	case stopMsg:
		e.logger.tracef(ctx, "Expression %s is stopping.", e.self)
		e.program = nil
		e.values = make(map[string]domain.Value)
		return nil, nil
	}
	return nil, unhandled(e.kind, msg)
}

func (e *expression) dependOn(ctx context.Context, d domain.Dependency) error {
	if d.Name == "" {
		return fmt.Errorf("%w: expression %s: dependency name is required", domain.ErrInvalidArgument, e.self)
	}
	typ, err := domain.ParseVariableType(d.Type)
	if err != nil {
		e.logger.errorf(ctx, "Expression '%s' cannot depend on '%s' in namespace '%s': %v", e.text, d.Name, d.Namespace, err)
		return err
	}
	d.Type = typ.String()
	e.dependencies = append(e.dependencies, d)
	e.logger.tracef(ctx, "Expression '%s' depends on %s variable '%s' in namespace '%s'.", e.text, d.Type, d.Name, d.Namespace)
	return nil
}

func (e *expression) receiveUpdate(ctx context.Context, u domain.VariableUpdate) error {
	if u.Name == "" {
		return fmt.Errorf("%w: expression %s: update without a variable name", domain.ErrInvalidArgument, e.self)
	}
	val, err := domain.ParseValue(u.Type, u.Value)
	if err != nil {
		e.logger.errorf(ctx, "Expression '%s' rejected '%s' in namespace '%s' of type '%s': %v", e.text, u.Name, u.Namespace, u.Type, err)
		return err
	}
	e.values[u.Name] = val
	e.logger.tracef(ctx, "Expression '%s' received '%s' in namespace '%s' = '%s' (%s).", e.text, u.Name, u.Namespace, u.Value, val.Type())
	return e.evaluate(ctx)
}

// satisfied reports whether every dependency has a value of its declared type.
func (e *expression) satisfied(ctx context.Context) bool {
	for _, d := range e.dependencies {
		v, ok := e.values[d.Name]
		if !ok || v.Type().String() != d.Type {
			e.logger.tracef(ctx, "Expression '%s' is still waiting for '%s' in namespace '%s'.", e.text, d.Name, d.Namespace)
			return false
		}
	}
	e.logger.tracef(ctx, "All %d dependencies of expression '%s' are satisfied.", len(e.dependencies), e.text)
	return true
}

func (e *expression) evaluate(ctx context.Context) error {
	if e.program == nil && e.text != "" && e.satisfied(ctx) {
		prog, err := e.env.Evaluator.Compile(e.text)
		if err != nil {
			e.logger.errorf(ctx, "Expression '%s' does not compile: %v", e.text, err)
			return err
		}
		e.program = prog
	}
	if e.program == nil {
		e.logger.warnf(ctx, "Expression '%s' cannot be evaluated yet.", e.text)
		return nil
	}

	start := time.Now()
	result, err := e.program.Eval(ctx, e.values)
	ev := &domain.EvaluationEvent{
		Timestamp:  start,
		SessionID:  e.sessionID,
		Expression: e.text,
		Duration:   time.Since(start),
		Err:        err,
	}
	if err != nil {
		e.env.onEvaluation(ctx, ev)
		e.logger.errorf(ctx, "Expression '%s' failed: %v", e.text, err)
		return err
	}
	out := result.String()
	ev.Output = out
	e.env.onEvaluation(ctx, ev)
	e.logger.debugf(ctx, "Expression '%s' evaluated to '%s'.", e.text, out)

	if e.output == nil {
		e.logger.tracef(ctx, "Expression '%s' has no dependant to notify.", e.text)
		return nil
	}
	if err := e.variable(actor.Address(e.output.Identity)).updateValue(ctx, out); err != nil {
		return fmt.Errorf("expression %q output to %s: %w", e.text, e.output.Name, err)
	}
	e.logger.tracef(ctx, "Expression '%s' notified '%s' in namespace '%s'.", e.text, e.output.Name, e.output.Namespace)
	return nil
}
