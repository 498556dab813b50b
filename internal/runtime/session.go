package runtime

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/aretw0/recalc/internal/actor"
	"github.com/aretw0/recalc/pkg/domain"
	"github.com/google/uuid"
)

// session builds, drives and tears down the actor graph of one workbook.
// It is the only creator of data variable actors.
type session struct {
	binding
	state   stateClient
	started bool
	// support holds the logger and state actors in spawn order.
	support []actor.Address

	addresses map[domain.VariableKey]actor.Address
	types     map[domain.VariableKey]domain.VariableType

	variables   []actor.Address
	expressions []actor.Address
	tables      []actor.Address
	roots       []actor.Address
}

func newSession(env *Env, sessionID string) *session {
	return &session{
		binding: binding{
			env:       env,
			self:      SessionAddress(sessionID),
			kind:      "session",
			sessionID: sessionID,
		},
		state:     stateClient{ref{sys: env.System, addr: StateAddress(sessionID)}},
		addresses: make(map[domain.VariableKey]actor.Address),
		types:     make(map[domain.VariableKey]domain.VariableType),
	}
}

func (s *session) Receive(ctx context.Context, msg any) (any, error) {
	switch m := msg.(type) {
	case startSession:
		return nil, s.start(ctx, m)
	case stopMsg:
		return nil, s.stop(ctx)
	}
	if err := s.requireLogger(msg); err != nil {
		return nil, err
	}
	switch m := msg.(type) {
	case updateSessionVariable:
		return nil, s.updateVariable(ctx, m.Input)
	case updateSessionTable:
		return nil, s.updateTable(ctx, m.Table)
	case getState:
		return s.state.state(ctx)
	case getLogs:
		return s.logger.logs(ctx)
	}
	return nil, unhandled(s.kind, msg)
}

func (s *session) start(ctx context.Context, m startSession) error {
	if s.started {
		return fmt.Errorf("%w: session %s already started", domain.ErrInvalidArgument, s.sessionID)
	}
	wb := m.Workbook
	if err := wb.Validate(); err != nil {
		return fmt.Errorf("start session %s: %w", s.sessionID, err)
	}

	s.started = true

	sys := s.env.System
	if _, err := sys.Spawn(LoggerAddress(s.sessionID), newSessionLogger(s.env)); err != nil {
		return fmt.Errorf("start session logger: %w", err)
	}
	s.support = append(s.support, LoggerAddress(s.sessionID))
	lc := newLoggerClient(s.env, s.sessionID)
	s.logger = &lc
	if err := s.logger.start(ctx, s.sessionID, m.Level); err != nil {
		return err
	}
	if _, err := sys.Spawn(StateAddress(s.sessionID), newSessionState()); err != nil {
		return fmt.Errorf("start session state: %w", err)
	}
	s.support = append(s.support, StateAddress(s.sessionID))
	if err := s.state.start(ctx, s.sessionID); err != nil {
		return err
	}
	s.logger.infof(ctx, "Starting session for workbook '%s'.", wb.ID)

	for _, bp := range wb.Blueprints {
		if err := s.build(ctx, bp); err != nil {
			s.logger.errorf(ctx, "Session setup failed in blueprint '%s': %v", bp.Name, err)
			return err
		}
	}
	if err := s.applyDefaults(ctx, wb); err != nil {
		return err
	}
	if err := s.triggerRoots(ctx); err != nil {
		return err
	}
	s.logger.infof(ctx, "Session setup complete.")
	return nil
}

func (s *session) build(ctx context.Context, bp domain.Blueprint) error {
	for _, vb := range bp.DataVariables {
		if err := s.createVariable(ctx, vb); err != nil {
			return err
		}
	}
	s.logger.tracef(ctx, "Created %d data variables from blueprint '%s'.", len(bp.DataVariables), bp.Name)

	for _, eb := range bp.Expressions {
		if err := s.createExpression(ctx, bp, eb); err != nil {
			return err
		}
	}
	s.logger.tracef(ctx, "Created %d expressions from blueprint '%s'.", len(bp.Expressions), bp.Name)

	for _, tb := range bp.DataTables {
		if err := s.createTable(ctx, tb); err != nil {
			return err
		}
	}
	s.logger.tracef(ctx, "Created %d data tables from blueprint '%s'.", len(bp.DataTables), bp.Name)

	for _, tr := range bp.Triggers {
		if err := s.createTrigger(ctx, tr); err != nil {
			return err
		}
	}
	s.logger.tracef(ctx, "Created %d triggers from blueprint '%s'.", len(bp.Triggers), bp.Name)
	return nil
}

// getOrCreate returns the address of key, allocating one on first sight.
func (s *session) getOrCreate(key domain.VariableKey) (actor.Address, bool) {
	if addr, ok := s.addresses[key]; ok {
		return addr, false
	}
	addr := actor.NewAddress("variable")
	s.addresses[key] = addr
	return addr, true
}

// tryGet returns the address of key, or "" if the session never created it.
func (s *session) tryGet(key domain.VariableKey) actor.Address {
	return s.addresses[key]
}

func (s *session) createVariable(ctx context.Context, vb domain.DataVariableBlueprint) error {
	key := domain.VariableKey{Namespace: vb.Namespace, Name: vb.Name}
	addr, created := s.getOrCreate(key)
	if !created {
		s.logger.tracef(ctx, "Data variable '%s' in namespace '%s' is declared again; keeping the first declaration.", vb.Name, vb.Namespace)
		return nil
	}
	if _, err := s.env.System.Spawn(addr, newDataVariable(s.env, addr)); err != nil {
		return fmt.Errorf("spawn data variable %s: %w", key, err)
	}
	s.variables = append(s.variables, addr)
	s.types[key] = vb.Type

	v := s.variable(addr)
	if err := v.useLogger(ctx, s.sessionID); err != nil {
		return err
	}
	return v.updateIdentity(ctx, domain.VariableIdentity{
		Identity:  string(addr),
		SessionID: s.sessionID,
		Name:      vb.Name,
		Namespace: vb.Namespace,
		Type:      vb.Type,
	})
}

func (s *session) spawnExpression(ctx context.Context, text string) (expressionClient, error) {
	addr := actor.NewAddress("expression")
	if _, err := s.env.System.Spawn(addr, newExpression(s.env, addr)); err != nil {
		return expressionClient{}, fmt.Errorf("spawn expression: %w", err)
	}
	s.expressions = append(s.expressions, addr)

	c := expressionClient{cellClient{ref{sys: s.env.System, addr: addr}}}
	if err := c.useLogger(ctx, s.sessionID); err != nil {
		return c, err
	}
	return c, c.useExpression(ctx, text)
}

func (s *session) createExpression(ctx context.Context, bp domain.Blueprint, eb domain.ExpressionBlueprint) error {
	c, err := s.spawnExpression(ctx, eb.Expression)
	if err != nil {
		return err
	}
	if eb.IsRoot() {
		s.roots = append(s.roots, c.addr)
	}
	if err := s.linkOutput(ctx, c.cellClient, *eb.Output); err != nil {
		return err
	}
	for _, tr := range eb.InputTables {
		ref, err := tableInput(bp, tr)
		if err != nil {
			s.logger.errorf(ctx, "Expression '%s' reads table '%s' which blueprint '%s' does not declare.", eb.Expression, tr.Name, bp.Name)
			return err
		}
		if err := s.linkInput(ctx, c.cellClient, expressionDependant, ref); err != nil {
			return err
		}
	}
	for _, ref := range uniqueRefs(eb.Inputs) {
		if err := s.linkInput(ctx, c.cellClient, expressionDependant, ref); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) createTrigger(ctx context.Context, tr domain.TriggerBlueprint) error {
	c, err := s.spawnExpression(ctx, TriggerExpression(tr))
	if err != nil {
		return err
	}
	if err := s.linkOutput(ctx, c.cellClient, *tr.Output); err != nil {
		return err
	}
	inputs := make([]domain.VariableRef, 0, len(tr.Expressions))
	for _, te := range tr.Expressions {
		inputs = append(inputs, te.Input)
	}
	for _, ref := range uniqueRefs(inputs) {
		if err := s.linkInput(ctx, c.cellClient, expressionDependant, ref); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) createTable(ctx context.Context, tb domain.DataTableBlueprint) error {
	addr := actor.NewAddress("table")
	if _, err := s.env.System.Spawn(addr, newDataTable(s.env, addr)); err != nil {
		return fmt.Errorf("spawn data table %s: %w", tb.Name, err)
	}
	s.tables = append(s.tables, addr)

	c := tableClient{cellClient{ref{sys: s.env.System, addr: addr}}}
	if err := c.useLogger(ctx, s.sessionID); err != nil {
		return err
	}
	if err := c.useTable(ctx, tb.Table()); err != nil {
		return err
	}
	output := domain.VariableRef{Name: tb.Name, Namespace: tb.Namespace, Type: domain.TypeDataTable}
	if err := s.linkOutput(ctx, c.cellClient, output); err != nil {
		return err
	}
	for _, ref := range uniqueRefs(tb.Inputs) {
		if err := s.linkInput(ctx, c.cellClient, tableDependant, ref); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) linkOutput(ctx context.Context, c cellClient, ref domain.VariableRef) error {
	addr := s.tryGet(ref.Key())
	if addr == "" {
		s.logger.errorf(ctx, "Output '%s' in namespace '%s' was never declared as a data variable.", ref.Name, ref.Namespace)
		return fmt.Errorf("%w: output %s", domain.ErrUnresolvedReference, ref.Key())
	}
	typ := s.resolveType(ref)
	if err := c.outputTo(ctx, domain.Dependant{Identity: string(addr), Name: ref.Name, Namespace: ref.Namespace, Type: typ}); err != nil {
		return err
	}
	s.logger.tracef(ctx, "Linked output %s variable '%s' in namespace '%s'.", typ, ref.Name, ref.Namespace)
	return nil
}

func (s *session) linkInput(ctx context.Context, c cellClient, kind dependantKind, ref domain.VariableRef) error {
	addr := s.tryGet(ref.Key())
	if addr == "" {
		s.logger.errorf(ctx, "Input '%s' in namespace '%s' was never declared as a data variable.", ref.Name, ref.Namespace)
		return fmt.Errorf("%w: input %s", domain.ErrUnresolvedReference, ref.Key())
	}
	typ := s.resolveType(ref)
	if err := c.dependOn(ctx, domain.Dependency{Name: ref.Name, Namespace: ref.Namespace, Type: typ.String()}); err != nil {
		return err
	}
	if err := s.variable(addr).register(ctx, kind, c.addr); err != nil {
		return err
	}
	s.logger.tracef(ctx, "Linked input %s variable '%s' in namespace '%s'.", typ, ref.Name, ref.Namespace)
	return nil
}

// resolveType falls back to the declared type of the variable when a
// reference does not name one.
func (s *session) resolveType(ref domain.VariableRef) domain.VariableType {
	if ref.Type != "" {
		return ref.Type
	}
	return s.types[ref.Key()]
}

func (s *session) applyDefaults(ctx context.Context, wb *domain.Workbook) error {
	for _, bp := range wb.Blueprints {
		for _, tb := range bp.DataTables {
			if err := s.updateTable(ctx, tb.Table()); err != nil {
				return err
			}
		}
		for _, vb := range bp.DataVariables {
			if vb.DefaultValue == "" {
				continue
			}
			in := domain.VariableInput{Name: vb.Name, Namespace: vb.Namespace, Value: vb.DefaultValue}
			if err := s.updateVariable(ctx, in); err != nil {
				return err
			}
		}
	}
	s.logger.debugf(ctx, "Applied default values.")
	return nil
}

func (s *session) triggerRoots(ctx context.Context) error {
	s.logger.debugf(ctx, "Evaluating %d root expressions to start propagation.", len(s.roots))
	for _, addr := range s.roots {
		c := expressionClient{cellClient{ref{sys: s.env.System, addr: addr}}}
		if err := c.evaluate(ctx); err != nil {
			return fmt.Errorf("evaluate root expression %s: %w", addr, err)
		}
	}
	return nil
}

func (s *session) updateVariable(ctx context.Context, in domain.VariableInput) error {
	addr := s.tryGet(domain.VariableKey{Namespace: in.Namespace, Name: in.Name})
	if addr == "" {
		s.logger.warnf(ctx, "Ignored update of data variable '%s' in namespace '%s': the session never created it.", in.Name, in.Namespace)
		return nil
	}
	if err := s.variable(addr).updateValue(ctx, in.Value); err != nil {
		return err
	}
	s.logger.tracef(ctx, "Updated data variable '%s' in namespace '%s' to '%s'.", in.Name, in.Namespace, in.Value)
	return nil
}

func (s *session) updateTable(ctx context.Context, t domain.DataTable) error {
	addr := s.tryGet(domain.VariableKey{Namespace: t.Namespace, Name: t.Name})
	if addr == "" {
		s.logger.warnf(ctx, "Ignored update of data table '%s' in namespace '%s': the session never created it.", t.Name, t.Namespace)
		return nil
	}
	raw, err := t.Encode()
	if err != nil {
		return err
	}
	if err := s.variable(addr).updateValue(ctx, raw); err != nil {
		return err
	}
	s.logger.tracef(ctx, "Updated data table '%s' in namespace '%s'.", t.Name, t.Namespace)
	return nil
}

// stop tears the graph down in creation order: variables, expressions,
// tables, then state, logger and the session itself. Failures are collected
// and do not interrupt the cascade.
func (s *session) stop(ctx context.Context) error {
	if s.logger != nil {
		s.logger.tracef(ctx, "Stopping session.")
	}
	var errs []error
	stopAll := func(addrs []actor.Address) {
		for _, addr := range addrs {
			if err := (ref{sys: s.env.System, addr: addr}).stop(ctx); err != nil {
				errs = append(errs, err)
			}
			if err := s.env.System.Stop(addr); err != nil {
				errs = append(errs, err)
			}
		}
	}
	stopAll(s.variables)
	stopAll(s.expressions)
	stopAll(s.tables)
	slices.Reverse(s.support)
	stopAll(s.support)
	s.variables, s.expressions, s.tables, s.roots, s.support = nil, nil, nil, nil, nil
	clear(s.addresses)
	clear(s.types)

	if err := s.env.System.Stop(s.self); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// TriggerExpression assembles the boolean expression of a trigger. A single
// condition is used verbatim; several are parenthesized and joined with AND
// in declaration order.
func TriggerExpression(tr domain.TriggerBlueprint) string {
	if len(tr.Expressions) == 1 {
		return tr.Expressions[0].Expression
	}
	parts := make([]string, len(tr.Expressions))
	for i, te := range tr.Expressions {
		parts[i] = "(" + te.Expression + ")"
	}
	return strings.Join(parts, " AND ")
}

func tableInput(bp domain.Blueprint, tr domain.TableRef) (domain.VariableRef, error) {
	for _, tb := range bp.DataTables {
		if tb.Name == tr.Name {
			return domain.VariableRef{Name: tb.Name, Namespace: tb.Namespace, Type: domain.TypeDataTable}, nil
		}
	}
	return domain.VariableRef{}, fmt.Errorf("%w: table %q in blueprint %q", domain.ErrUnresolvedReference, tr.Name, bp.Name)
}

func uniqueRefs(refs []domain.VariableRef) []domain.VariableRef {
	seen := make(map[domain.VariableKey]bool, len(refs))
	out := make([]domain.VariableRef, 0, len(refs))
	for _, r := range refs {
		if seen[r.Key()] {
			continue
		}
		seen[r.Key()] = true
		out = append(out, r)
	}
	return out
}

// SessionClient drives a Session actor.
type SessionClient struct {
	ref
	id string
}

// SpawnSession creates the Session actor for sessionID. An empty ID gets a
// random one.
func SpawnSession(env *Env, sessionID string) (*SessionClient, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	if _, err := env.System.Spawn(SessionAddress(sessionID), newSession(env, sessionID)); err != nil {
		return nil, fmt.Errorf("spawn session %s: %w", sessionID, err)
	}
	return &SessionClient{ref: ref{sys: env.System, addr: SessionAddress(sessionID)}, id: sessionID}, nil
}

// ID returns the session ID.
func (c *SessionClient) ID() string { return c.id }

// Start builds the graph of wb, applies its defaults and evaluates its root expressions.
func (c *SessionClient) Start(ctx context.Context, level domain.LogLevel, wb *domain.Workbook) error {
	return c.send(ctx, startSession{Level: level, Workbook: wb})
}

// UpdateDataVariable sets the value of an existing variable. Unknown keys are
// logged and ignored.
func (c *SessionClient) UpdateDataVariable(ctx context.Context, in domain.VariableInput) error {
	return c.send(ctx, updateSessionVariable{Input: in})
}

// UpdateDataTable replaces the value of an existing table variable.
func (c *SessionClient) UpdateDataTable(ctx context.Context, t domain.DataTable) error {
	return c.send(ctx, updateSessionTable{Table: t})
}

// GetState returns the latest snapshot of every variable.
func (c *SessionClient) GetState(ctx context.Context) ([]domain.VariableState, error) {
	return call[[]domain.VariableState](ctx, c.sys, c.addr, getState{})
}

// GetLogs returns the session log.
func (c *SessionClient) GetLogs(ctx context.Context) ([]domain.LogLine, error) {
	return call[[]domain.LogLine](ctx, c.sys, c.addr, getLogs{})
}

// Stop tears the graph down.
func (c *SessionClient) Stop(ctx context.Context) error {
	return c.stop(ctx)
}
