package soep

import (
	"fmt"
	"math"
	"reflect"
	"slices"

	"github.com/google/go-cmp/cmp"
)

// Column is a named, fixed-type sequence of values with a mask of missing values.
// Columns are immutable: every operation returns a new Column, sharing data slices where possible.
type Column struct {
	// Name of the column, usually the variable name.
	Name string

	// data must be a slice of one of the supported element types, see NewColumn.
	data any

	// missing flags missing values. If nil, no value is missing.
	missing []bool

	// categories is set for categorical columns.
	categories *CategorySet

	length int
}

// NewColumn returns a column with the given data and missing mask. The data must be one of []bool, []int8,
// []int16, []int32, []int64, []uint8, []uint16, []uint32, []uint64, []float32, []float64, []string or []any.
// The slices are not copied.
func NewColumn(name string, data any, missing []bool) (*Column, error) {
	length, err := dataLen(data)
	if err != nil {
		return nil, fmt.Errorf("column '%s': %w", name, err)
	}
	if missing != nil && len(missing) != length {
		return nil, fmt.Errorf("column '%s': missing mask has length %d, data has length %d", name, len(missing), length)
	}
	return &Column{
		Name:    name,
		data:    data,
		missing: missing,
		length:  length,
	}, nil
}

// MustColumn is NewColumn that panics on error.
func MustColumn(name string, data any, missing []bool) *Column {
	c, err := NewColumn(name, data, missing)
	if err != nil {
		panic(err)
	}
	return c
}

// RawColumn returns an untyped column of raw coded values, as read from a survey file. nil values are missing.
func RawColumn(name string, values ...any) *Column {
	data := make([]any, len(values))
	var missing []bool
	for i, v := range values {
		if v == nil {
			if missing == nil {
				missing = make([]bool, len(values))
			}
			missing[i] = true
			continue
		}
		data[i] = v
	}
	return &Column{
		Name:    name,
		data:    data,
		missing: missing,
		length:  len(values),
	}
}

// NewCategoricalColumn returns a column with a category set. Every non-missing value must be a category.
func NewCategoricalColumn(name string, data any, missing []bool, categories *CategorySet) (*Column, error) {
	c, err := NewColumn(name, data, missing)
	if err != nil {
		return nil, err
	}
	if categories == nil {
		return nil, fmt.Errorf("column '%s': nil category set", name)
	}
	for i := 0; i < c.length; i++ {
		if c.IsMissing(i) {
			continue
		}
		v := c.Value(i)
		if !categories.Contains(v) {
			return nil, &ValueKindError{Column: name, Value: v, Message: "value is not a category"}
		}
	}
	c.categories = categories
	return c, nil
}

// Len returns the number of values in the column.
func (c *Column) Len() int {
	return c.length
}

// Data returns the underlying typed slice.
func (c *Column) Data() any {
	return c.data
}

// Missing returns the missing value mask, which may be nil.
func (c *Column) Missing() []bool {
	return c.missing
}

// IsMissing returns whether the value at row i is missing.
func (c *Column) IsMissing(i int) bool {
	return c.missing != nil && c.missing[i]
}

// CountMissing returns the number of missing values.
func (c *Column) CountMissing() int {
	n := 0
	for _, m := range c.missing {
		if m {
			n++
		}
	}
	return n
}

// AllMissing returns whether no value of the column is present. Empty columns are all missing.
func (c *Column) AllMissing() bool {
	return c.CountMissing() == c.length
}

// Categories returns the category set, or nil if the column is not categorical.
func (c *Column) Categories() *CategorySet {
	return c.categories
}

// IsCategorical returns whether the column has a category set.
func (c *Column) IsCategorical() bool {
	return c.categories != nil
}

// DType returns the name of the element type ("int8", "float64", "string", ...), or "category" for categorical
// columns.
func (c *Column) DType() string {
	if c.categories != nil {
		return "category"
	}
	return c.ElemType()
}

// ElemType returns the name of the element type of the data slice.
func (c *Column) ElemType() string {
	switch c.data.(type) {
	case []any:
		return "object"
	default:
		return reflect.TypeOf(c.data).Elem().Kind().String()
	}
}

// Value returns the value at row i, or nil if it is missing.
func (c *Column) Value(i int) any {
	if c.IsMissing(i) {
		return nil
	}
	switch d := c.data.(type) {
	case []bool:
		return d[i]
	case []int8:
		return d[i]
	case []int16:
		return d[i]
	case []int32:
		return d[i]
	case []int64:
		return d[i]
	case []uint8:
		return d[i]
	case []uint16:
		return d[i]
	case []uint32:
		return d[i]
	case []uint64:
		return d[i]
	case []float32:
		return d[i]
	case []float64:
		return d[i]
	case []string:
		return d[i]
	case []any:
		return d[i]
	default:
		panic(fmt.Sprintf("unknown column data type %T", c.data))
	}
}

// Values returns all values boxed, with nil for missing values.
func (c *Column) Values() []any {
	ret := make([]any, c.length)
	for i := range ret {
		ret[i] = c.Value(i)
	}
	return ret
}

// Rename returns the same column with another name.
func (c *Column) Rename(name string) *Column {
	ret := *c
	ret.Name = name
	return &ret
}

// Take returns a column with the rows at the given indexes. An index of -1 produces a missing value.
func (c *Column) Take(idx []int) *Column {
	var missing []bool
	for i, ix := range idx {
		if ix < 0 || c.IsMissing(ix) {
			if missing == nil {
				missing = make([]bool, len(idx))
			}
			missing[i] = true
		}
	}
	return &Column{
		Name:       c.Name,
		data:       takeData(c.data, idx),
		missing:    missing,
		categories: c.categories,
		length:     len(idx),
	}
}

// Equal returns whether both columns have the same name, type, categories and values. Data under missing values
// is ignored.
func (c *Column) Equal(other *Column) bool {
	if c.Name != other.Name || c.length != other.length || c.ElemType() != other.ElemType() {
		return false
	}
	if !c.categories.Equal(other.categories) {
		return false
	}
	for i := 0; i < c.length; i++ {
		if c.IsMissing(i) != other.IsMissing(i) {
			return false
		}
		if !cmp.Equal(c.Value(i), other.Value(i)) {
			return false
		}
	}
	return true
}

// withMissing returns the same column with a new missing mask. An all-false mask is stored as nil.
func (c *Column) withMissing(missing []bool) *Column {
	if missing != nil && !slices.Contains(missing, true) {
		missing = nil
	}
	ret := *c
	ret.missing = missing
	return &ret
}

func (c *Column) withCategories(categories *CategorySet) *Column {
	ret := *c
	ret.categories = categories
	return &ret
}

// int64At returns the value at row i as an int64, if it is an integer value.
func (c *Column) int64At(i int) (int64, bool) {
	if c.IsMissing(i) {
		return 0, false
	}
	return toInt64(c.Value(i))
}

func dataLen(data any) (int, error) {
	switch d := data.(type) {
	case []bool:
		return len(d), nil
	case []int8:
		return len(d), nil
	case []int16:
		return len(d), nil
	case []int32:
		return len(d), nil
	case []int64:
		return len(d), nil
	case []uint8:
		return len(d), nil
	case []uint16:
		return len(d), nil
	case []uint32:
		return len(d), nil
	case []uint64:
		return len(d), nil
	case []float32:
		return len(d), nil
	case []float64:
		return len(d), nil
	case []string:
		return len(d), nil
	case []any:
		return len(d), nil
	default:
		return 0, fmt.Errorf("unknown data type %T", data)
	}
}

func takeData(data any, idx []int) any {
	switch d := data.(type) {
	case []bool:
		return takeSlice(d, idx)
	case []int8:
		return takeSlice(d, idx)
	case []int16:
		return takeSlice(d, idx)
	case []int32:
		return takeSlice(d, idx)
	case []int64:
		return takeSlice(d, idx)
	case []uint8:
		return takeSlice(d, idx)
	case []uint16:
		return takeSlice(d, idx)
	case []uint32:
		return takeSlice(d, idx)
	case []uint64:
		return takeSlice(d, idx)
	case []float32:
		return takeSlice(d, idx)
	case []float64:
		return takeSlice(d, idx)
	case []string:
		return takeSlice(d, idx)
	case []any:
		return takeSlice(d, idx)
	default:
		panic(fmt.Sprintf("unknown column data type %T", data))
	}
}

func takeSlice[T any](s []T, idx []int) []T {
	ret := make([]T, len(idx))
	for i, ix := range idx {
		if ix >= 0 {
			ret[i] = s[ix]
		}
	}
	return ret
}

// toInt64 converts integer values, and floats without a fractional part, to int64.
func toInt64(v any) (int64, bool) {
	switch vv := v.(type) {
	case int:
		return int64(vv), true
	case int8:
		return int64(vv), true
	case int16:
		return int64(vv), true
	case int32:
		return int64(vv), true
	case int64:
		return vv, true
	case uint:
		return int64(vv), vv <= math.MaxInt64
	case uint8:
		return int64(vv), true
	case uint16:
		return int64(vv), true
	case uint32:
		return int64(vv), true
	case uint64:
		return int64(vv), vv <= math.MaxInt64
	case float32:
		f := float64(vv)
		return int64(f), f == math.Trunc(f) && !math.IsInf(f, 0)
	case float64:
		return int64(vv), vv == math.Trunc(vv) && !math.IsInf(vv, 0)
	default:
		return 0, false
	}
}

// toFloat64 converts any numeric value to float64.
func toFloat64(v any) (float64, bool) {
	switch vv := v.(type) {
	case float32:
		return float64(vv), true
	case float64:
		return vv, true
	case uint64:
		return float64(vv), true
	case uint:
		return float64(vv), true
	default:
		i, ok := toInt64(v)
		return float64(i), ok
	}
}

// normalizeValue maps integer values of any width to int64 and float32 to float64, so that values can be compared
// and used as map keys.
func normalizeValue(v any) any {
	switch vv := v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
		i, _ := toInt64(vv)
		return i
	case uint64:
		if i, ok := toInt64(vv); ok {
			return i
		}
		return vv
	case float32:
		return float64(vv)
	default:
		return v
	}
}
