package loam

// WorkbookMetadata is the document shape of a workbook stored in Loam.
// Keys follow the JSON wire names of domain.Workbook. Scalar defaults and
// cell values accept any YAML or JSON scalar.
//
// Each blueprint entry is either an inline definition or the ID of another
// workbook document whose blueprints are imported in its place.
type WorkbookMetadata struct {
	ID          string `json:"id" mapstructure:"id"`
	Name        string `json:"name" mapstructure:"name"`
	Description string `json:"description" mapstructure:"description"`
	Blueprints  []any  `json:"blueprints" mapstructure:"blueprints"`
}

type BlueprintMetadata struct {
	Name          string               `json:"name" mapstructure:"name"`
	Description   string               `json:"description" mapstructure:"description"`
	DataVariables []VariableMetadata   `json:"dataVariables" mapstructure:"dataVariables"`
	Expressions   []ExpressionMetadata `json:"expressions" mapstructure:"expressions"`
	DataTables    []TableMetadata      `json:"dataTables" mapstructure:"dataTables"`
	Triggers      []TriggerMetadata    `json:"triggers" mapstructure:"triggers"`
}

type VariableMetadata struct {
	Name         string `json:"name" mapstructure:"name"`
	Namespace    string `json:"namespace" mapstructure:"namespace"`
	Type         string `json:"type" mapstructure:"type"`
	DefaultValue any    `json:"defaultValue" mapstructure:"defaultValue"`
	Description  string `json:"description" mapstructure:"description"`
}

type RefMetadata struct {
	Name      string `json:"name" mapstructure:"name"`
	Namespace string `json:"namespace" mapstructure:"namespace"`
	Type      string `json:"type" mapstructure:"type"`
}

type ExpressionMetadata struct {
	Expression  string        `json:"expression" mapstructure:"expression"`
	Objective   string        `json:"objective" mapstructure:"objective"`
	Inputs      []RefMetadata `json:"inputDataVariables" mapstructure:"inputDataVariables"`
	InputTables []RefMetadata `json:"inputDataTables" mapstructure:"inputDataTables"`
	Output      *RefMetadata  `json:"outputDataVariable" mapstructure:"outputDataVariable"`
}

type ColumnMetadata struct {
	Name string `json:"name" mapstructure:"name"`
	Type string `json:"type" mapstructure:"type"`
}

type CellMetadata struct {
	Name      string `json:"name" mapstructure:"name"`
	Namespace string `json:"namespace" mapstructure:"namespace"`
	Key       string `json:"key" mapstructure:"key"`
	Value     any    `json:"value" mapstructure:"value"`
}

type RowMetadata struct {
	Cells []CellMetadata `json:"cells" mapstructure:"cells"`
}

type TableMetadata struct {
	Name        string           `json:"name" mapstructure:"name"`
	Namespace   string           `json:"namespace" mapstructure:"namespace"`
	Description string           `json:"description" mapstructure:"description"`
	Columns     []ColumnMetadata `json:"columns" mapstructure:"columns"`
	Rows        []RowMetadata    `json:"rows" mapstructure:"rows"`
	Inputs      []RefMetadata    `json:"inputDataVariables" mapstructure:"inputDataVariables"`
}

type TriggerConditionMetadata struct {
	Expression string      `json:"expression" mapstructure:"expression"`
	Objective  string      `json:"objective" mapstructure:"objective"`
	Input      RefMetadata `json:"inputDataVariable" mapstructure:"inputDataVariable"`
}

type TriggerMetadata struct {
	Name        string                     `json:"name" mapstructure:"name"`
	Description string                     `json:"description" mapstructure:"description"`
	Expressions []TriggerConditionMetadata `json:"expressions" mapstructure:"expressions"`
	Output      *RefMetadata               `json:"outputDataVariable" mapstructure:"outputDataVariable"`
}
