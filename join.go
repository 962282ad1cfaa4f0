package soep

import (
	"fmt"
	"slices"
)

// joinKey is the composite value of up to four key columns.
type joinKey [4]any

// outerJoin joins two tables on the on columns, keeping unmatched rows of both sides. Rows are ordered by left row,
// each followed by its matches in right order, then the unmatched right rows. Rows with a missing key never match.
// Key columns are coalesced, other columns must not exist on both sides.
func outerJoin(left, right *Table, on []string) (*Table, error) {
	if len(on) == 0 || len(on) > len(joinKey{}) {
		return nil, fmt.Errorf("cannot join '%s' with '%s' on %d columns", left.Name, right.Name, len(on))
	}

	leftKeys, err := keyColumns(left, on)
	if err != nil {
		return nil, err
	}
	rightKeys, err := keyColumns(right, on)
	if err != nil {
		return nil, err
	}

	rightIndex := map[joinKey][]int{}
	for j := 0; j < right.Len(); j++ {
		if k, ok := rowKey(rightKeys, j); ok {
			rightIndex[k] = append(rightIndex[k], j)
		}
	}

	var li, ri []int
	matched := make([]bool, right.Len())
	for i := 0; i < left.Len(); i++ {
		if k, ok := rowKey(leftKeys, i); ok {
			if js := rightIndex[k]; len(js) > 0 {
				for _, j := range js {
					li = append(li, i)
					ri = append(ri, j)
					matched[j] = true
				}
				continue
			}
		}
		li = append(li, i)
		ri = append(ri, -1)
	}
	for j, m := range matched {
		if !m {
			li = append(li, -1)
			ri = append(ri, j)
		}
	}

	columns := make([]*Column, 0, left.NumColumns()+right.NumColumns())
	for _, lc := range left.Columns() {
		c := lc.Take(li)
		if slices.Contains(on, lc.Name) {
			rc, _ := right.Column(lc.Name)
			c = coalesceColumns(c, rc.Take(ri))
		}
		columns = append(columns, c)
	}
	for _, rc := range right.Columns() {
		if slices.Contains(on, rc.Name) {
			continue
		}
		if left.Has(rc.Name) {
			return nil, fmt.Errorf("cannot join '%s' with '%s': column '%s' exists on both sides", left.Name,
				right.Name, rc.Name)
		}
		columns = append(columns, rc.Take(ri))
	}

	return NewTable(left.Name+"+"+right.Name, columns...)
}

func keyColumns(t *Table, on []string) ([]*Column, error) {
	ret := make([]*Column, 0, len(on))
	for _, name := range on {
		c, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("table '%s': %w: key '%s'", t.Name, ErrColumnNotFound, name)
		}
		ret = append(ret, c)
	}
	return ret, nil
}

func rowKey(keys []*Column, row int) (joinKey, bool) {
	var ret joinKey
	for i, c := range keys {
		if c.IsMissing(row) {
			return ret, false
		}
		v := c.Value(row)
		if n, ok := toInt64(v); ok {
			ret[i] = n
		} else {
			ret[i] = normalizeValue(v)
		}
	}
	return ret, true
}

// sharedKeys returns the key columns present in both tables, in canonical order. It returns nil unless an entity
// id is shared: the survey year alone does not identify rows across persons and households.
func sharedKeys(a, b *Table) []string {
	var ret []string
	hasEntity := false
	for _, k := range KeyColumns {
		if a.Has(k) && b.Has(k) {
			ret = append(ret, k)
			hasEntity = hasEntity || k != ColSurveyYear
		}
	}
	if !hasEntity {
		return nil
	}
	return ret
}

// coalesceColumns takes each row from a if present, else from b. If both columns have the same element type it is
// kept, otherwise the type is inferred from the values.
func coalesceColumns(a, b *Column) *Column {
	if a.CountMissing() == 0 {
		return a
	}
	values := make([]any, a.Len())
	for i := range values {
		if !a.IsMissing(i) {
			values[i] = a.Value(i)
		} else {
			values[i] = b.Value(i)
		}
	}
	if a.ElemType() == b.ElemType() {
		if c, ok := typedColumn(a.Name, a.Data(), values); ok {
			return c.withCategories(a.Categories())
		}
	}
	return inferColumn(a.Name, values)
}

// typedColumn builds a column with the same element type as like from boxed values, nil being missing.
func typedColumn(name string, like any, values []any) (*Column, bool) {
	missing := missingMask(values)
	var data any
	switch like.(type) {
	case []bool:
		data = fillSlice[bool](values)
	case []int8:
		data = fillSlice[int8](values)
	case []int16:
		data = fillSlice[int16](values)
	case []int32:
		data = fillSlice[int32](values)
	case []int64:
		data = fillSlice[int64](values)
	case []uint8:
		data = fillSlice[uint8](values)
	case []uint16:
		data = fillSlice[uint16](values)
	case []uint32:
		data = fillSlice[uint32](values)
	case []uint64:
		data = fillSlice[uint64](values)
	case []float32:
		data = fillSlice[float32](values)
	case []float64:
		data = fillSlice[float64](values)
	case []string:
		data = fillSlice[string](values)
	case []any:
		data = fillSlice[any](values)
	default:
		return nil, false
	}
	return &Column{Name: name, data: data, missing: missing, length: len(values)}, true
}

// inferColumn builds a column from boxed values, nil being missing. Integers use the narrowest integer type, other
// numbers float64, and mixed values are kept boxed.
func inferColumn(name string, values []any) *Column {
	missing := missingMask(values)
	allInt, allFloat, allString, allBool := true, true, true, true
	for _, v := range values {
		if v == nil {
			continue
		}
		_, isInt := toInt64(v)
		_, isFloat := toFloat64(v)
		_, isString := v.(string)
		_, isBool := v.(bool)
		allInt = allInt && isInt
		allFloat = allFloat && isFloat
		allString = allString && isString
		allBool = allBool && isBool
	}

	switch {
	case allInt:
		ints := make([]int64, len(values))
		for i, v := range values {
			if v != nil {
				ints[i], _ = toInt64(v)
			}
		}
		return narrowInts(name, ints, missing)
	case allFloat:
		floats := make([]float64, len(values))
		for i, v := range values {
			if v != nil {
				floats[i], _ = toFloat64(v)
			}
		}
		return &Column{Name: name, data: floats, missing: missing, length: len(values)}
	case allString:
		return &Column{Name: name, data: fillSlice[string](values), missing: missing, length: len(values)}
	case allBool:
		return &Column{Name: name, data: fillSlice[bool](values), missing: missing, length: len(values)}
	default:
		return &Column{Name: name, data: fillSlice[any](values), missing: missing, length: len(values)}
	}
}

func missingMask(values []any) []bool {
	var missing []bool
	for i, v := range values {
		if v == nil {
			if missing == nil {
				missing = make([]bool, len(values))
			}
			missing[i] = true
		}
	}
	return missing
}

func fillSlice[T any](values []any) []T {
	ret := make([]T, len(values))
	for i, v := range values {
		if tv, ok := v.(T); ok {
			ret[i] = tv
		}
	}
	return ret
}
