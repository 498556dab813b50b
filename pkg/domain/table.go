package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// DataTable is the tabular value carried by DATATABLE variables. On the wire
// it is a JSON document embedded in the variable's string value.
type DataTable struct {
	Name        string            `json:"name" yaml:"name"`
	Namespace   string            `json:"namespace" yaml:"namespace"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Columns     []DataTableColumn `json:"columns" yaml:"columns"`
	Rows        []DataTableRow    `json:"rows" yaml:"rows"`
}

// DataTableColumn describes one column.
type DataTableColumn struct {
	Name string       `json:"name" yaml:"name"`
	Type VariableType `json:"type" yaml:"type"`
}

// DataTableRow is an ordered list of cells.
type DataTableRow struct {
	Cells []DataTableCell `json:"cells" yaml:"cells"`
}

// DataTableCell is addressed by the (Name, Namespace) of the variable that feeds it.
// Key names the column the cell belongs to.
type DataTableCell struct {
	Name      string `json:"name" yaml:"name"`
	Namespace string `json:"namespace" yaml:"namespace"`
	Key       string `json:"key" yaml:"key"`
	Value     string `json:"value" yaml:"value"`
}

// DecodeDataTable parses the JSON wire form of a table. An empty payload
// decodes to an empty table.
func DecodeDataTable(raw string) (DataTable, error) {
	var table DataTable
	if strings.TrimSpace(raw) == "" {
		return table, nil
	}
	if err := json.Unmarshal([]byte(raw), &table); err != nil {
		return DataTable{}, fmt.Errorf("%w: decode data table: %v", ErrInvalidArgument, err)
	}
	return table, nil
}

// Encode returns the JSON wire form of the table.
func (t DataTable) Encode() (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", fmt.Errorf("encode data table %q: %w", t.Name, err)
	}
	return string(b), nil
}

// SetCells overwrites the value of every cell matching (name, namespace) and
// returns how many cells changed. Rows and columns are never added or removed.
func (t *DataTable) SetCells(name, namespace, value string) int {
	n := 0
	for r := range t.Rows {
		cells := t.Rows[r].Cells
		for c := range cells {
			if cells[c].Name == name && cells[c].Namespace == namespace {
				cells[c].Value = value
				n++
			}
		}
	}
	return n
}

// Clone returns a deep copy of the table.
func (t DataTable) Clone() DataTable {
	out := t
	out.Columns = append([]DataTableColumn(nil), t.Columns...)
	if t.Rows != nil {
		out.Rows = make([]DataTableRow, len(t.Rows))
		for i, row := range t.Rows {
			out.Rows[i].Cells = append([]DataTableCell(nil), row.Cells...)
		}
	}
	return out
}

// Records returns one map per row keyed by cell key. Cells without a key
// fall back to their name.
func (t DataTable) Records() []map[string]string {
	records := make([]map[string]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]string, len(row.Cells))
		for _, cell := range row.Cells {
			key := cell.Key
			if key == "" {
				key = cell.Name
			}
			rec[key] = cell.Value
		}
		records = append(records, rec)
	}
	return records
}
