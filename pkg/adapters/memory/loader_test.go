package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/recalc/pkg/adapters/memory"
	"github.com/aretw0/recalc/pkg/domain"
	"github.com/aretw0/recalc/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryLoader_Contract(t *testing.T) {
	loader := memory.NewLoader(map[string]string{
		"payroll": `{"id":"payroll","blueprints":[{"name":"main","dataVariables":[{"name":"Rate","namespace":"Global","type":"FLOAT","defaultValue":"1.5"}]}]}`,
		"empty":   `{"blueprints":[]}`,
	})
	ports.RunWorkbookLoaderContract(t, loader, []string{"empty", "payroll"})
}

func TestMemoryLoader_FromWorkbooks(t *testing.T) {
	wb := &domain.Workbook{ID: "wb", Blueprints: []domain.Blueprint{{
		Name:          "main",
		DataVariables: []domain.DataVariableBlueprint{{Name: "x", Namespace: "Global", Type: domain.TypeFloat, DefaultValue: "1"}},
	}}}
	loader, err := memory.NewFromWorkbooks(wb)
	require.NoError(t, err)

	got, err := loader.LoadWorkbook(context.Background(), "wb")
	require.NoError(t, err)
	assert.Equal(t, wb, got)
	assert.NotSame(t, wb, got)

	_, err = memory.NewFromWorkbooks(&domain.Workbook{})
	assert.ErrorIs(t, err, domain.ErrInvalidArgument)
}
