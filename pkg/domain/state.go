package domain

import "time"

// VariableKey is the externally meaningful identity of a variable within a session.
type VariableKey struct {
	Namespace string `json:"namespace"`
	Name      string `json:"name"`
}

// String returns the key in namespace_name form.
func (k VariableKey) String() string {
	return k.Namespace + "_" + k.Name
}

// VariableIdentity binds a variable actor to its key.
type VariableIdentity struct {
	Identity  string       `json:"identity"`
	SessionID string       `json:"session_id"`
	Name      string       `json:"name"`
	Namespace string       `json:"namespace"`
	Type      VariableType `json:"type"`
}

// VariableUpdate is the notification a variable sends to its dependants.
// Type is kept as the raw wire string and decoded by the receiver.
type VariableUpdate struct {
	Identity  string `json:"identity"`
	SessionID string `json:"session_id"`
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Type      string `json:"type"`
	Value     string `json:"value"`
}

// Key returns the key of the updated variable.
func (u VariableUpdate) Key() VariableKey {
	return VariableKey{Namespace: u.Namespace, Name: u.Name}
}

// VariableState is the latest snapshot of a variable.
type VariableState struct {
	Identity  string       `json:"identity"`
	SessionID string       `json:"session_id"`
	Name      string       `json:"name"`
	Namespace string       `json:"namespace"`
	Type      VariableType `json:"type"`
	Value     string       `json:"value"`
}

// Key returns the key of the snapshot.
func (s VariableState) Key() VariableKey {
	return VariableKey{Namespace: s.Namespace, Name: s.Name}
}

// Dependency is a named, typed input an expression or table expects.
type Dependency struct {
	Name      string `json:"name"`
	Namespace string `json:"namespace"`
	Type      string `json:"type"`
}

// Dependant is the output target of an expression or table.
type Dependant struct {
	Identity  string       `json:"identity"`
	Name      string       `json:"name"`
	Namespace string       `json:"namespace"`
	Type      VariableType `json:"type"`
}

// EvaluationResult is what a session hands off when it ends.
type EvaluationResult struct {
	SessionID  string          `json:"session_id"`
	WorkbookID string          `json:"workbook_id"`
	State      []VariableState `json:"state"`
	Logs       []LogLine       `json:"logs"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Lookup returns the snapshot for (namespace, name).
func (r *EvaluationResult) Lookup(namespace, name string) (VariableState, bool) {
	for _, s := range r.State {
		if s.Namespace == namespace && s.Name == name {
			return s, true
		}
	}
	return VariableState{}, false
}
