package domain_test

import (
	"testing"
	"time"

	"github.com/aretw0/recalc/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseVariableType(t *testing.T) {
	for _, s := range []string{"FLOAT", "float", " Bool ", "DATETIME", "string", "DataTable"} {
		typ, err := domain.ParseVariableType(s)
		require.NoError(t, err, s)
		assert.True(t, typ.Valid())
	}

	_, err := domain.ParseVariableType("DECIMAL")
	assert.ErrorIs(t, err, domain.ErrUnknownType)
}

func TestParseValue(t *testing.T) {
	t.Run("Float", func(t *testing.T) {
		v, err := domain.ParseValue("FLOAT", "2.50")
		require.NoError(t, err)
		assert.Equal(t, domain.Float(2.5), v)
		assert.Equal(t, "2.5", v.String())
	})

	t.Run("WholeFloatHasNoFraction", func(t *testing.T) {
		assert.Equal(t, "6", domain.Float(6).String())
		assert.Equal(t, "-0.125", domain.Float(-0.125).String())
	})

	t.Run("Bool", func(t *testing.T) {
		v, err := domain.ParseValue("BOOL", "True")
		require.NoError(t, err)
		assert.Equal(t, domain.Bool(true), v)
		assert.Equal(t, "true", v.String())
	})

	t.Run("DateTime", func(t *testing.T) {
		v, err := domain.ParseValue("DATETIME", "2024-03-01")
		require.NoError(t, err)
		assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.Time(v.(domain.DateTime)))
	})

	t.Run("Table", func(t *testing.T) {
		v, err := domain.ParseValue("DATATABLE", `{"name":"rates","namespace":"Global","columns":[{"name":"rate","type":"FLOAT"}],"rows":[{"cells":[{"name":"r","namespace":"Global","key":"rate","value":"1"}]}]}`)
		require.NoError(t, err)
		table := v.(domain.Table)
		assert.Equal(t, "rates", table.Name)
		require.Len(t, table.Rows, 1)
		assert.Equal(t, "1", table.Rows[0].Cells[0].Value)
	})

	t.Run("UnknownType", func(t *testing.T) {
		_, err := domain.ParseValue("MONEY", "1")
		assert.ErrorIs(t, err, domain.ErrUnknownType)
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := domain.ParseValue("FLOAT", "abc")
		assert.ErrorIs(t, err, domain.ErrInvalidArgument)
	})
}

func TestDataTable_SetCells(t *testing.T) {
	table := domain.DataTable{
		Rows: []domain.DataTableRow{
			{Cells: []domain.DataTableCell{
				{Name: "a", Namespace: "N", Key: "x", Value: "1"},
				{Name: "b", Namespace: "N", Key: "y", Value: "2"},
			}},
			{Cells: []domain.DataTableCell{
				{Name: "a", Namespace: "M", Key: "x", Value: "3"},
				{Name: "a", Namespace: "N", Key: "y", Value: "4"},
			}},
		},
	}

	n := table.SetCells("a", "N", "9")

	assert.Equal(t, 2, n)
	assert.Equal(t, "9", table.Rows[0].Cells[0].Value)
	assert.Equal(t, "2", table.Rows[0].Cells[1].Value)
	assert.Equal(t, "3", table.Rows[1].Cells[0].Value)
	assert.Equal(t, "9", table.Rows[1].Cells[1].Value)
}

func TestDataTable_EncodeDecode(t *testing.T) {
	table := domain.DataTable{Name: "t", Namespace: "N", Columns: []domain.DataTableColumn{{Name: "c", Type: "STRING"}}}
	raw, err := table.Encode()
	require.NoError(t, err)

	back, err := domain.DecodeDataTable(raw)
	require.NoError(t, err)
	assert.Equal(t, table.Name, back.Name)
	assert.Equal(t, table.Columns, back.Columns)

	empty, err := domain.DecodeDataTable("")
	require.NoError(t, err)
	assert.Empty(t, empty.Rows)
}
