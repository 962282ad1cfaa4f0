package sql

import (
	soep "github.com/ttsim-dev/soep-preparation-sub000"
)

// SQLType returns a portable SQL type for the element type of a column. Categorical columns use the type of their
// values.
func SQLType(c *soep.Column) string {
	switch c.ElemType() {
	case "bool":
		return "BOOLEAN"
	case "int8", "int16", "uint8":
		return "SMALLINT"
	case "int32", "uint16":
		return "INTEGER"
	case "int64", "uint32":
		return "BIGINT"
	case "uint64":
		return "NUMERIC(20)"
	case "float32":
		return "REAL"
	case "float64":
		return "DOUBLE PRECISION"
	default:
		return "TEXT"
	}
}

// ColumnDefs returns the column definitions of a table. Key columns without missing values are NOT NULL.
func ColumnDefs(table *soep.Table) []ColumnDef {
	ret := make([]ColumnDef, 0, table.NumColumns())
	for _, c := range table.Columns() {
		ret = append(ret, ColumnDef{
			Name:    c.Name,
			SQLType: SQLType(c),
			NotNull: soep.IsKeyColumn(c.Name) && c.CountMissing() == 0,
		})
	}
	return ret
}

// rowArgs returns the values of a row, with nil for missing values.
func rowArgs(columns []*soep.Column, row int) []any {
	ret := make([]any, len(columns))
	for i, c := range columns {
		ret[i] = c.Value(row)
	}
	return ret
}
