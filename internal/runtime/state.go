package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/recalc/pkg/domain"
)

// sessionState keeps the latest snapshot of every variable, last write wins.
type sessionState struct {
	sessionID string
	order     []domain.VariableKey
	snapshots map[domain.VariableKey]domain.VariableState
}

func newSessionState() *sessionState {
	return &sessionState{snapshots: make(map[domain.VariableKey]domain.VariableState)}
}

func (s *sessionState) Receive(ctx context.Context, msg any) (any, error) {
	switch m := msg.(type) {
	case startState:
		s.sessionID = m.SessionID
		return nil, nil
	case recordState:
		return nil, s.record(m.Update)
	case getState:
		out := make([]domain.VariableState, 0, len(s.order))
		for _, k := range s.order {
			out = append(out, s.snapshots[k])
		}
		return out, nil
	case stopMsg:
		return nil, nil
	}
	return nil, unhandled("session state", msg)
}

func (s *sessionState) record(u domain.VariableUpdate) error {
	typ, err := domain.ParseVariableType(u.Type)
	if err != nil {
		return fmt.Errorf("record %s: %w", u.Key(), err)
	}
	key := u.Key()
	if _, ok := s.snapshots[key]; !ok {
		s.order = append(s.order, key)
	}
	s.snapshots[key] = domain.VariableState{
		Identity:  u.Identity,
		SessionID: u.SessionID,
		Name:      u.Name,
		Namespace: u.Namespace,
		Type:      typ,
		Value:     u.Value,
	}
	return nil
}
