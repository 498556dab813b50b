package file_test

import (
	"context"
	"testing"

	"github.com/aretw0/recalc/internal/testutils"
	"github.com/aretw0/recalc/pkg/adapters/file"
	"github.com/aretw0/recalc/pkg/domain"
	"github.com/aretw0/recalc/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.WorkbookLoader = (*file.Loader)(nil)

const payrollYAML = `
name: Payroll
blueprints:
  - name: main
    dataVariables:
      - {name: Hours, namespace: Global, type: FLOAT, defaultValue: "40"}
      - {name: Rate, namespace: Global, type: FLOAT, defaultValue: "12.5"}
      - {name: Pay, namespace: Global, type: FLOAT}
    expressions:
      - expression: Hours * Rate
        inputDataVariables:
          - {name: Hours, namespace: Global, type: FLOAT}
          - {name: Rate, namespace: Global, type: FLOAT}
        outputDataVariable: {name: Pay, namespace: Global, type: FLOAT}
`

const circleJSON = `{
  "id": "circle",
  "name": "Circle",
  "blueprints": [{
    "name": "main",
    "dataVariables": [
      {"name": "Radius", "namespace": "Global", "type": "FLOAT", "defaultValue": "1"},
      {"name": "Area", "namespace": "Global", "type": "FLOAT"}
    ],
    "expressions": [{
      "expression": "Radius * Radius * 3",
      "inputDataVariables": [{"name": "Radius", "namespace": "Global", "type": "FLOAT"}],
      "outputDataVariable": {"name": "Area", "namespace": "Global", "type": "FLOAT"}
    }]
  }]
}`

func seed(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	testutils.WriteFiles(t, dir, map[string]string{
		"payroll.yaml": payrollYAML,
		"circle.json":  circleJSON,
		"notes.txt":    "ignored",
	})
	return dir
}

func TestLoader_Contract(t *testing.T) {
	ports.RunWorkbookLoaderContract(t, file.NewLoader(seed(t)), []string{"circle", "payroll"})
}

func TestLoader_DecodesYAML(t *testing.T) {
	loader := file.NewLoader(seed(t))

	wb, err := loader.LoadWorkbook(context.Background(), "payroll")
	require.NoError(t, err)
	assert.Equal(t, "payroll", wb.ID)
	assert.Equal(t, "Payroll", wb.Name)
	require.Len(t, wb.Blueprints, 1)

	bp := wb.Blueprints[0]
	require.Len(t, bp.DataVariables, 3)
	assert.Equal(t, domain.TypeFloat, bp.DataVariables[0].Type)
	assert.Equal(t, "12.5", bp.DataVariables[1].DefaultValue)
	require.Len(t, bp.Expressions, 1)
	require.NotNil(t, bp.Expressions[0].Output)
	assert.Equal(t, "Pay", bp.Expressions[0].Output.Name)
	assert.Len(t, bp.Expressions[0].Inputs, 2)
	require.NoError(t, wb.Validate())
}

func TestLoader_StrictDecoding(t *testing.T) {
	dir := t.TempDir()
	testutils.WriteFiles(t, dir, map[string]string{
		"typo.yaml": "name: x\nblueprintz: []\n",
		"typo.json": `{"name": "x", "blueprintz": []}`,
	})
	loader := file.NewLoader(dir)

	_, err := loader.LoadWorkbook(context.Background(), "typo")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrWorkbookNotFound)

	_, err = file.Decode([]byte(`{"name": "x", "blueprintz": []}`), ".json")
	assert.Error(t, err)

	ids, err := loader.ListWorkbooks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"typo"}, ids)
}

func TestLoader_RejectsPathTraversal(t *testing.T) {
	loader := file.NewLoader(seed(t))
	for _, id := range []string{"", "../payroll", "sub/payroll"} {
		_, err := loader.LoadWorkbook(context.Background(), id)
		assert.ErrorIs(t, err, domain.ErrWorkbookNotFound, id)
	}
}
