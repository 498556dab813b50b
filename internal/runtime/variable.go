package runtime

import (
	"context"
	"fmt"
	"slices"

	"github.com/aretw0/recalc/internal/actor"
	"github.com/aretw0/recalc/pkg/domain"
)

// dataVariable is a reactive value cell. Only the session creates them.
type dataVariable struct {
	binding
	identity   domain.VariableIdentity
	identified bool
	value      string

	expressions []actor.Address
	tables      []actor.Address
}

func newDataVariable(env *Env, self actor.Address) *dataVariable {
	return &dataVariable{binding: binding{env: env, self: self, kind: "data variable"}}
}

func (v *dataVariable) Receive(ctx context.Context, msg any) (any, error) {
	switch m := msg.(type) {
	case useSessionLogger:
		return nil, v.bind(ctx, m)
	case getValue:
		return v.value, nil
	}
	if err := v.requireLogger(msg); err != nil {
		return nil, err
	}
	switch m := msg.(type) {
	case updateIdentity:
		return nil, v.updateIdentity(ctx, m.Identity)
	case updateValue:
		return nil, v.updateValue(ctx, m.Value)
	case registerDependant:
		return nil, v.register(ctx, m)
	case stopMsg:
		v.logger.tracef(ctx, "Data variable %s is stopping.", v.self)
		v.expressions, v.tables = nil, nil
		return nil, nil
	}
	return nil, unhandled(v.kind, msg)
}

func (v *dataVariable) updateIdentity(ctx context.Context, id domain.VariableIdentity) error {
	if id.Name == "" || !id.Type.Valid() {
		return fmt.Errorf("%w: data variable %s: identity needs a name and a known type", domain.ErrInvalidArgument, v.self)
	}
	if id.Identity == "" {
		id.Identity = string(v.self)
	}
	if id.SessionID == "" {
		id.SessionID = v.sessionID
	}
	v.identity = id
	v.identified = true
	return v.snapshot(ctx)
}

func (v *dataVariable) updateValue(ctx context.Context, value string) error {
	if !v.identified {
		return fmt.Errorf("%w: data variable %s has no identity", domain.ErrInvalidArgument, v.self)
	}
	if value == v.value {
		v.logger.tracef(ctx, "Data variable '%s' in namespace '%s' kept its value '%s'; propagation stops here.", v.identity.Name, v.identity.Namespace, v.value)
		return nil
	}
	v.value = value
	v.logger.debugf(ctx, "Data variable '%s' in namespace '%s' changed to '%s'.", v.identity.Name, v.identity.Namespace, v.value)

	u := v.update()
	v.env.onPropagation(ctx, &u)
	for _, addr := range v.tables {
		t := cellClient{ref{sys: v.env.System, addr: addr}}
		if err := t.update(ctx, u); err != nil {
			v.logger.errorf(ctx, "Data variable '%s' in namespace '%s' failed to update data table %s: %v", u.Name, u.Namespace, addr, err)
		}
	}
	for _, addr := range v.expressions {
		e := cellClient{ref{sys: v.env.System, addr: addr}}
		if err := e.update(ctx, u); err != nil {
			v.logger.errorf(ctx, "Data variable '%s' in namespace '%s' failed to update expression %s: %v", u.Name, u.Namespace, addr, err)
		}
	}
	v.logger.tracef(ctx, "Data variable '%s' in namespace '%s' notified %d dependants.", u.Name, u.Namespace, len(v.tables)+len(v.expressions))

	return v.snapshot(ctx)
}

func (v *dataVariable) register(ctx context.Context, m registerDependant) error {
	if m.Address == "" {
		return fmt.Errorf("%w: data variable %s: dependant address is required", domain.ErrInvalidArgument, v.self)
	}
	list := &v.expressions
	if m.Kind == tableDependant {
		list = &v.tables
	}
	if slices.Contains(*list, m.Address) {
		v.logger.warnf(ctx, "Data variable '%s' in namespace '%s' already notifies %s %s.", v.identity.Name, v.identity.Namespace, m.Kind, m.Address)
		return fmt.Errorf("%w: %s %s on %s", domain.ErrDuplicateDependant, m.Kind, m.Address, v.self)
	}
	*list = append(*list, m.Address)
	v.logger.tracef(ctx, "Data variable '%s' in namespace '%s' registered %s %s as a dependant.", v.identity.Name, v.identity.Namespace, m.Kind, m.Address)
	return nil
}

func (v *dataVariable) update() domain.VariableUpdate {
	return domain.VariableUpdate{
		Identity:  v.identity.Identity,
		SessionID: v.identity.SessionID,
		Name:      v.identity.Name,
		Namespace: v.identity.Namespace,
		Type:      v.identity.Type.String(),
		Value:     v.value,
	}
}

func (v *dataVariable) snapshot(ctx context.Context) error {
	st := stateClient{ref{sys: v.env.System, addr: StateAddress(v.identity.SessionID)}}
	if err := st.record(ctx, v.update()); err != nil {
		return fmt.Errorf("snapshot %s: %w", v.identity.Name, err)
	}
	return nil
}
