package soep

import (
	"errors"
	"maps"
	"testing"

	"gotest.tools/v3/assert"
)

// AssertValuesDeepEqual asserts that a map is deep-equal to a Values.
func AssertValuesDeepEqual(t *testing.T, x map[string]any, y Values) {
	t.Helper()
	assert.DeepEqual(t, x, maps.Collect(y.All))
}

// AssertRowsDeepEqual asserts that a slice of maps is deep-equal to the rows of a table, missing values being nil.
func AssertRowsDeepEqual(t *testing.T, x []map[string]any, table *Table) {
	t.Helper()
	var ym []map[string]any
	for _, row := range table.Rows() {
		ym = append(ym, maps.Collect(row.All))
	}
	assert.DeepEqual(t, x, ym)
}

// AssertColumnValues asserts the values of a table column, missing values being nil.
func AssertColumnValues(t *testing.T, x []any, table *Table, columnName string) {
	t.Helper()
	c, ok := table.Column(columnName)
	assert.Assert(t, ok, "column '%s' not found in table '%s'", columnName, table.Name)
	assert.DeepEqual(t, x, c.Values())
}

// AssertIsInvalidVariableError asserts that the error is an InvalidVariableError, and returns it.
func AssertIsInvalidVariableError(t *testing.T, err error) *InvalidVariableError {
	t.Helper()
	var ive *InvalidVariableError
	ok := errors.As(err, &ive)
	assert.Assert(t, ok, "expected InvalidVariableError, got %T", err)
	return ive
}
