package tui_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/aretw0/recalc/internal/presentation/tui"
	"github.com/aretw0/recalc/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultMarkdown(t *testing.T) {
	table, err := domain.DataTable{
		Name:    "prices",
		Columns: []domain.DataTableColumn{{Name: "price", Type: "FLOAT"}},
		Rows:    []domain.DataTableRow{{Cells: []domain.DataTableCell{{Key: "price", Value: "3"}}}},
	}.Encode()
	require.NoError(t, err)

	md := tui.ResultMarkdown(&domain.EvaluationResult{
		SessionID:  "s1",
		WorkbookID: "payroll",
		State: []domain.VariableState{
			{Name: "Pay", Namespace: "Global", Type: domain.TypeFloat, Value: "500"},
			{Name: "Note", Namespace: "Global", Type: domain.TypeString, Value: "a|b"},
			{Name: "prices", Namespace: "Global", Type: domain.TypeDataTable, Value: table},
		},
		Logs: []domain.LogLine{{Level: domain.LevelWarning, Message: "careful"}},
	})

	assert.Contains(t, md, "# payroll")
	assert.Contains(t, md, "| Global | Pay | FLOAT | 500 |")
	assert.Contains(t, md, `a\|b`)
	assert.Contains(t, md, "1 columns x 1 rows")
	assert.Contains(t, md, "- **Warning** careful")
}

func TestResultMarkdown_Empty(t *testing.T) {
	md := tui.ResultMarkdown(&domain.EvaluationResult{SessionID: "s1", WorkbookID: "wb"})
	assert.Contains(t, md, "_No variables._")
	assert.NotContains(t, md, "## Log")
}

func TestWorkbookMarkdown(t *testing.T) {
	md := tui.WorkbookMarkdown(&domain.Workbook{
		ID: "payroll",
		Blueprints: []domain.Blueprint{{
			Name:          "main",
			DataVariables: []domain.DataVariableBlueprint{{Name: "Hours", Namespace: "Global", Type: domain.TypeFloat, DefaultValue: "40"}},
			Expressions: []domain.ExpressionBlueprint{{
				Expression: "Hours * 2",
				Output:     &domain.VariableRef{Name: "Pay", Namespace: "Global"},
			}},
		}},
	})
	assert.True(t, strings.HasPrefix(md, "# payroll"))
	assert.Contains(t, md, "| Global.Hours | FLOAT | 40 |")
	assert.Contains(t, md, "- `Global.Pay` = `Hours * 2`")
}

func TestNewRenderer_PlainWhenPiped(t *testing.T) {
	var buf bytes.Buffer
	out, err := tui.NewRenderer(&buf)("# title")
	require.NoError(t, err)
	assert.Equal(t, "# title", out)
}

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "v1.2.3")
	assert.Contains(t, buf.String(), "v1.2.3")
	assert.Contains(t, buf.String(), "___")
}
