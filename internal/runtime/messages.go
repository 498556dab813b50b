package runtime

import (
	"github.com/aretw0/recalc/internal/actor"
	"github.com/aretw0/recalc/pkg/domain"
)

// Shared by every graph actor.
type (
	useSessionLogger struct{ SessionID string }
	stopMsg          struct{}
)

// SessionLogger.
type (
	startLogger struct {
		SessionID string
		Level     domain.LogLevel
	}
	appendLog struct {
		Level   domain.LogLevel
		Message string
	}
	getLogs struct{}
)

// SessionState.
type (
	startState  struct{ SessionID string }
	recordState struct{ Update domain.VariableUpdate }
	getState    struct{}
)

// DataVariable.
type (
	updateIdentity struct{ Identity domain.VariableIdentity }
	updateValue    struct{ Value string }
	getValue       struct{}
)

type dependantKind int

const (
	expressionDependant dependantKind = iota
	tableDependant
)

func (k dependantKind) String() string {
	if k == tableDependant {
		return "data table"
	}
	return "expression"
}

type registerDependant struct {
	Kind    dependantKind
	Address actor.Address
}

// Expression and DataTable.
type (
	useExpression      struct{ Text string }
	useTable           struct{ Table domain.DataTable }
	dependOn           struct{ Dependency domain.Dependency }
	outputTo           struct{ Target domain.Dependant }
	updateDataVariable struct{ Update domain.VariableUpdate }
	evaluate           struct{}
)

// Session.
type (
	startSession struct {
		Level    domain.LogLevel
		Workbook *domain.Workbook
	}
	updateSessionVariable struct{ Input domain.VariableInput }
	updateSessionTable    struct{ Table domain.DataTable }
)
