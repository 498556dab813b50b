package loam

import (
	"context"
	"testing"

	"github.com/aretw0/loam"
	"github.com/aretw0/recalc/internal/testutils"
	"github.com/aretw0/recalc/pkg/domain"
	"github.com/aretw0/recalc/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const payrollJSON = `{
  "id": "payroll",
  "name": "Payroll",
  "blueprints": [
    {
      "name": "main",
      "dataVariables": [
        {"name": "Hours", "namespace": "Global", "type": "FLOAT", "defaultValue": 40},
        {"name": "Rate", "namespace": "Global", "type": "float", "defaultValue": "12.5"},
        {"name": "Pay", "namespace": "Global", "type": "FLOAT"}
      ],
      "expressions": [
        {
          "expression": "Hours * Rate",
          "inputDataVariables": [
            {"name": "Hours", "namespace": "Global", "type": "FLOAT"},
            {"name": "Rate", "namespace": "Global", "type": "FLOAT"}
          ],
          "outputDataVariable": {"name": "Pay", "namespace": "Global", "type": "FLOAT"}
        }
      ]
    }
  ]
}`

func newLoader(t *testing.T, files map[string]string) *Loader {
	t.Helper()
	dir, repo := testutils.SetupTestRepo(t)
	testutils.WriteFiles(t, dir, files)
	return New(loam.NewTypedRepository[WorkbookMetadata](repo))
}

func TestLoader_Contract(t *testing.T) {
	loader := newLoader(t, map[string]string{
		"payroll.json": payrollJSON,
		"empty.json":   `{"blueprints": [{"name": "blank"}]}`,
	})
	ports.RunWorkbookLoaderContract(t, loader, []string{"payroll", "empty"})
}

func TestLoader_DecodesBlueprints(t *testing.T) {
	loader := newLoader(t, map[string]string{"payroll.json": payrollJSON})

	wb, err := loader.LoadWorkbook(context.Background(), "payroll")
	require.NoError(t, err)
	require.NoError(t, wb.Validate())
	assert.Equal(t, "Payroll", wb.Name)
	require.Len(t, wb.Blueprints, 1)

	bp := wb.Blueprints[0]
	require.Len(t, bp.DataVariables, 3)
	assert.Equal(t, "40", bp.DataVariables[0].DefaultValue, "numeric defaults keep their decimal form")
	assert.Equal(t, domain.TypeFloat, bp.DataVariables[1].Type, "type names are case-insensitive")
	assert.Equal(t, "12.5", bp.DataVariables[1].DefaultValue)

	require.Len(t, bp.Expressions, 1)
	assert.Len(t, bp.Expressions[0].Inputs, 2)
	assert.Equal(t, &domain.VariableRef{Name: "Pay", Namespace: "Global", Type: domain.TypeFloat}, bp.Expressions[0].Output)
}

func TestLoader_DecodesTables(t *testing.T) {
	loader := newLoader(t, map[string]string{
		"prices.json": `{"blueprints": [{
			"name": "prices",
			"dataVariables": [{"name": "prices", "namespace": "Global", "type": "DATATABLE"}],
			"dataTables": [{
				"name": "prices",
				"namespace": "Global",
				"columns": [{"name": "item", "type": "string"}, {"name": "price", "type": "FLOAT"}],
				"rows": [{"cells": [{"name": "apple", "namespace": "Global", "key": "price", "value": 1.5}]}]
			}]
		}]}`,
	})

	wb, err := loader.LoadWorkbook(context.Background(), "prices")
	require.NoError(t, err)
	require.Len(t, wb.Blueprints, 1)
	require.Len(t, wb.Blueprints[0].DataTables, 1)

	table := wb.Blueprints[0].DataTables[0]
	assert.Equal(t, []domain.DataTableColumn{
		{Name: "item", Type: domain.TypeString},
		{Name: "price", Type: domain.TypeFloat},
	}, table.Columns)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, domain.DataTableCell{Name: "apple", Namespace: "Global", Key: "price", Value: "1.5"}, table.Rows[0].Cells[0])
}

func TestLoader_ResolvesImports(t *testing.T) {
	loader := newLoader(t, map[string]string{
		"shared/tax.json": `{"blueprints": [{"name": "tax", "dataVariables": [{"name": "TaxRate", "namespace": "Global", "type": "FLOAT", "defaultValue": "0.2"}]}]}`,
		"invoice.json":    `{"blueprints": ["shared/tax", {"name": "invoice", "dataVariables": [{"name": "Net", "namespace": "Global", "type": "FLOAT"}]}]}`,
	})

	wb, err := loader.LoadWorkbook(context.Background(), "invoice")
	require.NoError(t, err)
	require.Len(t, wb.Blueprints, 2)
	assert.Equal(t, "tax", wb.Blueprints[0].Name, "imports keep declaration order")
	assert.Equal(t, "invoice", wb.Blueprints[1].Name)
}

func TestLoader_DetectsImportCycles(t *testing.T) {
	loader := newLoader(t, map[string]string{
		"a.json": `{"blueprints": ["b"]}`,
		"b.json": `{"blueprints": ["a"]}`,
	})

	_, err := loader.LoadWorkbook(context.Background(), "a")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cycle detected")
}

func TestLoader_ListWorkbooks_NormalizesIDs(t *testing.T) {
	loader := newLoader(t, map[string]string{
		"explicit.json": `{"id": "explicit.json", "blueprints": []}`,
		"implicit.json": `{"blueprints": []}`,
	})

	ids, err := loader.ListWorkbooks(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"explicit", "implicit"}, ids)
}

func TestLoader_ListWorkbooks_DetectsCollisions(t *testing.T) {
	loader := newLoader(t, map[string]string{
		"foo.json": `{"id": "foo", "blueprints": []}`,
		"bar.json": `{"id": "foo", "blueprints": []}`,
	})

	_, err := loader.ListWorkbooks(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collision detected")
}

func TestScalar(t *testing.T) {
	assert.Equal(t, "", scalar(nil))
	assert.Equal(t, "x", scalar("x"))
	assert.Equal(t, "true", scalar(true))
	assert.Equal(t, "2.5", scalar(2.5))
}
