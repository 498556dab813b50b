package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/recalc/internal/actor"
	"github.com/aretw0/recalc/pkg/domain"
)

func call[T any](ctx context.Context, sys *actor.System, addr actor.Address, msg any) (T, error) {
	var zero T
	v, err := sys.Call(ctx, addr, msg)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("unexpected reply %T from %s", v, addr)
	}
	return out, nil
}

// ref is the part of every client shared by all graph actors.
type ref struct {
	sys  *actor.System
	addr actor.Address
}

func (r ref) send(ctx context.Context, msg any) error {
	_, err := r.sys.Call(ctx, r.addr, msg)
	return err
}

func (r ref) useLogger(ctx context.Context, sessionID string) error {
	return r.send(ctx, useSessionLogger{SessionID: sessionID})
}

func (r ref) stop(ctx context.Context) error {
	return r.send(ctx, stopMsg{})
}

type loggerClient struct {
	ref
	env *Env
}

func newLoggerClient(env *Env, sessionID string) loggerClient {
	return loggerClient{ref: ref{sys: env.System, addr: LoggerAddress(sessionID)}, env: env}
}

func (c loggerClient) start(ctx context.Context, sessionID string, level domain.LogLevel) error {
	return c.send(ctx, startLogger{SessionID: sessionID, Level: level})
}

func (c loggerClient) logs(ctx context.Context) ([]domain.LogLine, error) {
	return call[[]domain.LogLine](ctx, c.sys, c.addr, getLogs{})
}

// log appends a line to the session log. A line that cannot be delivered is
// reported on the engine logger instead.
func (c loggerClient) log(ctx context.Context, level domain.LogLevel, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if err := c.send(ctx, appendLog{Level: level, Message: msg}); err != nil {
		c.env.logger().Warn("session log line dropped", "actor", c.addr, "level", level.String(), "message", msg, "err", err)
	}
}

func (c loggerClient) tracef(ctx context.Context, format string, args ...any) {
	c.log(ctx, domain.LevelTrace, format, args...)
}

func (c loggerClient) debugf(ctx context.Context, format string, args ...any) {
	c.log(ctx, domain.LevelDebug, format, args...)
}

func (c loggerClient) infof(ctx context.Context, format string, args ...any) {
	c.log(ctx, domain.LevelInfo, format, args...)
}

func (c loggerClient) warnf(ctx context.Context, format string, args ...any) {
	c.log(ctx, domain.LevelWarning, format, args...)
}

func (c loggerClient) errorf(ctx context.Context, format string, args ...any) {
	c.log(ctx, domain.LevelError, format, args...)
}

type stateClient struct{ ref }

func (c stateClient) start(ctx context.Context, sessionID string) error {
	return c.send(ctx, startState{SessionID: sessionID})
}

func (c stateClient) record(ctx context.Context, u domain.VariableUpdate) error {
	return c.send(ctx, recordState{Update: u})
}

func (c stateClient) state(ctx context.Context) ([]domain.VariableState, error) {
	return call[[]domain.VariableState](ctx, c.sys, c.addr, getState{})
}

type variableClient struct{ ref }

func (c variableClient) updateIdentity(ctx context.Context, id domain.VariableIdentity) error {
	return c.send(ctx, updateIdentity{Identity: id})
}

func (c variableClient) updateValue(ctx context.Context, value string) error {
	return c.send(ctx, updateValue{Value: value})
}

func (c variableClient) register(ctx context.Context, kind dependantKind, addr actor.Address) error {
	return c.send(ctx, registerDependant{Kind: kind, Address: addr})
}

func (c variableClient) value(ctx context.Context) (string, error) {
	return call[string](ctx, c.sys, c.addr, getValue{})
}

// cellClient is the protocol shared by expressions and tables.
type cellClient struct{ ref }

func (c cellClient) dependOn(ctx context.Context, d domain.Dependency) error {
	return c.send(ctx, dependOn{Dependency: d})
}

func (c cellClient) outputTo(ctx context.Context, target domain.Dependant) error {
	return c.send(ctx, outputTo{Target: target})
}

func (c cellClient) update(ctx context.Context, u domain.VariableUpdate) error {
	return c.send(ctx, updateDataVariable{Update: u})
}

type expressionClient struct{ cellClient }

func (c expressionClient) useExpression(ctx context.Context, text string) error {
	return c.send(ctx, useExpression{Text: text})
}

func (c expressionClient) evaluate(ctx context.Context) error {
	return c.send(ctx, evaluate{})
}

type tableClient struct{ cellClient }

func (c tableClient) useTable(ctx context.Context, t domain.DataTable) error {
	return c.send(ctx, useTable{Table: t})
}
