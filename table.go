package soep

import (
	"cmp"
	"fmt"
	"iter"
	"slices"
)

// Table is a named, rectangular list of columns of the same length.
// Tables are immutable: every operation returns a new Table, sharing columns where possible.
type Table struct {
	Name string

	columns []*Column
	index   map[string]int
	nrows   int
}

// NewTable creates a table. All columns must have the same length and distinct names.
func NewTable(name string, columns ...*Column) (*Table, error) {
	ret := &Table{
		Name:  name,
		index: make(map[string]int, len(columns)),
	}
	for i, c := range columns {
		if i == 0 {
			ret.nrows = c.Len()
		} else if c.Len() != ret.nrows {
			return nil, fmt.Errorf("table '%s': column '%s' has %d rows, expected %d", name, c.Name, c.Len(), ret.nrows)
		}
		if _, ok := ret.index[c.Name]; ok {
			return nil, fmt.Errorf("table '%s': duplicate column '%s'", name, c.Name)
		}
		ret.index[c.Name] = i
		ret.columns = append(ret.columns, c)
	}
	return ret, nil
}

// MustTable is NewTable that panics on error.
func MustTable(name string, columns ...*Column) *Table {
	t, err := NewTable(name, columns...)
	if err != nil {
		panic(err)
	}
	return t
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return t.nrows
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int {
	return len(t.columns)
}

// Has returns whether the table has a column with this name.
func (t *Table) Has(name string) bool {
	_, ok := t.index[name]
	return ok
}

// Column returns a column by name.
func (t *Table) Column(name string) (*Column, bool) {
	i, ok := t.index[name]
	if !ok {
		return nil, false
	}
	return t.columns[i], true
}

// Columns returns the columns in order.
func (t *Table) Columns() []*Column {
	return slices.Clone(t.columns)
}

// ColumnNames returns the column names in order.
func (t *Table) ColumnNames() []string {
	ret := make([]string, len(t.columns))
	for i, c := range t.columns {
		ret[i] = c.Name
	}
	return ret
}

// KeyColumns returns the reserved key columns present in the table, in canonical order.
func (t *Table) KeyColumns() []string {
	var ret []string
	for _, k := range KeyColumns {
		if t.Has(k) {
			ret = append(ret, k)
		}
	}
	return ret
}

// ValueColumns returns the names of the columns that are not key columns, in order.
func (t *Table) ValueColumns() []string {
	var ret []string
	for _, c := range t.columns {
		if !IsKeyColumn(c.Name) {
			ret = append(ret, c.Name)
		}
	}
	return ret
}

// Rename returns the same table with another name.
func (t *Table) Rename(name string) *Table {
	ret := *t
	ret.Name = name
	return &ret
}

// Select returns a table with only the named columns, in the passed order.
func (t *Table) Select(names ...string) (*Table, error) {
	columns := make([]*Column, 0, len(names))
	for _, name := range names {
		c, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("table '%s': %w: '%s'", t.Name, ErrColumnNotFound, name)
		}
		columns = append(columns, c)
	}
	return NewTable(t.Name, columns...)
}

// WithColumn returns a table with the column added, or replaced if a column with the same name exists.
func (t *Table) WithColumn(c *Column) (*Table, error) {
	columns := slices.Clone(t.columns)
	if i, ok := t.index[c.Name]; ok {
		columns[i] = c
	} else {
		columns = append(columns, c)
	}
	return NewTable(t.Name, columns...)
}

// Take returns a table with the rows at the given indexes. An index of -1 produces a row of missing values.
func (t *Table) Take(idx []int) *Table {
	ret := &Table{
		Name:    t.Name,
		columns: make([]*Column, len(t.columns)),
		index:   t.index,
		nrows:   len(idx),
	}
	for i, c := range t.columns {
		ret.columns[i] = c.Take(idx)
	}
	return ret
}

// FilterRows returns a table with the rows for which keep returns true.
func (t *Table) FilterRows(keep func(row int) bool) *Table {
	var idx []int
	for i := 0; i < t.nrows; i++ {
		if keep(i) {
			idx = append(idx, i)
		}
	}
	if len(idx) == t.nrows {
		return t
	}
	return t.Take(idx)
}

// FilterYears returns a table with the rows whose survey year is one of years. Rows with a missing survey year
// are dropped. Tables without a survey year column are returned unchanged.
func (t *Table) FilterYears(years []int) *Table {
	yc, ok := t.Column(ColSurveyYear)
	if !ok {
		return t
	}
	return t.FilterRows(func(row int) bool {
		y, ok := yc.int64At(row)
		return ok && slices.Contains(years, int(y))
	})
}

// SurveyYears returns the distinct survey years of the table, ascending. It returns nil if the table has no
// survey year column.
func (t *Table) SurveyYears() []int {
	yc, ok := t.Column(ColSurveyYear)
	if !ok {
		return nil
	}
	return presentYears(yc, nil)
}

// SortByKeys returns the table sorted by its key columns in canonical order. Missing keys sort last, and rows with
// equal keys keep their relative order.
func (t *Table) SortByKeys() *Table {
	var keys []*Column
	for _, k := range t.KeyColumns() {
		c, _ := t.Column(k)
		keys = append(keys, c)
	}
	idx := make([]int, t.nrows)
	for i := range idx {
		idx[i] = i
	}
	slices.SortStableFunc(idx, func(a, b int) int {
		for _, c := range keys {
			if r := compareCells(c, a, b); r != 0 {
				return r
			}
		}
		return 0
	})
	return t.Take(idx)
}

// Row returns the values of row i, with nil for missing values.
func (t *Table) Row(i int) MapValues {
	ret := make(MapValues, len(t.columns))
	for _, c := range t.columns {
		ret[c.Name] = c.Value(i)
	}
	return ret
}

// Rows iterates over all rows.
func (t *Table) Rows() iter.Seq2[int, MapValues] {
	return func(yield func(int, MapValues) bool) {
		for i := 0; i < t.nrows; i++ {
			if !yield(i, t.Row(i)) {
				return
			}
		}
	}
}

// Equal returns whether both tables have the same name and equal columns in the same order.
func (t *Table) Equal(other *Table) bool {
	if t.Name != other.Name || t.nrows != other.nrows || len(t.columns) != len(other.columns) {
		return false
	}
	for i, c := range t.columns {
		if !c.Equal(other.columns[i]) {
			return false
		}
	}
	return true
}

// presentYears returns the sorted distinct survey years of the rows where c is present. If c is nil, all rows
// count.
func presentYears(years *Column, c *Column) []int {
	seen := map[int]bool{}
	ret := []int{}
	for i := 0; i < years.Len(); i++ {
		if c != nil && c.IsMissing(i) {
			continue
		}
		y, ok := years.int64At(i)
		if !ok || seen[int(y)] {
			continue
		}
		seen[int(y)] = true
		ret = append(ret, int(y))
	}
	slices.Sort(ret)
	return ret
}

// compareCells compares rows a and b of a column, with missing values last.
func compareCells(c *Column, a, b int) int {
	ma, mb := c.IsMissing(a), c.IsMissing(b)
	switch {
	case ma && mb:
		return 0
	case ma:
		return 1
	case mb:
		return -1
	}
	return compareValues(c.Value(a), c.Value(b))
}

// compareValues orders numbers numerically, strings lexicographically and false before true. Values of different
// kinds are ordered by their formatted text.
func compareValues(a, b any) int {
	if ia, ok := toInt64(a); ok {
		if ib, ok := toInt64(b); ok {
			return cmp.Compare(ia, ib)
		}
	}
	if fa, ok := toFloat64(a); ok {
		if fb, ok := toFloat64(b); ok {
			return cmp.Compare(fa, fb)
		}
	}
	switch va := a.(type) {
	case string:
		if vb, ok := b.(string); ok {
			return cmp.Compare(va, vb)
		}
	case bool:
		if vb, ok := b.(bool); ok {
			return cmp.Compare(boolRank(vb), boolRank(va))
		}
	}
	return cmp.Compare(fmt.Sprint(a), fmt.Sprint(b))
}
