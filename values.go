package soep

import (
	"iter"
	"maps"
	"slices"
)

// Values represents the values of one table row, similar to a map[string]any. Missing values are nil.
type Values interface {
	Get(columnName string) (val any, exists bool) // gets the value of a column, returning whether the column exists.
	GetOrNil(columnName string) any               // gets the value of a column, or nil if the column don't exist.
	GetDefault(columnName string, def any) any    // gets the value of a column, or a default value if the column don't exist or the value is missing.
	All(yield func(string, any) bool)             // iterator of all the column values, sorted by column name.
	Len() int                                     // returns the amount of column values.
}

// ValuesGet gets a value from values casting to the T type. isType is false for missing values.
func ValuesGet[T any](values Values, columnName string) (val T, exists bool, isType bool) {
	v, ok := values.Get(columnName)
	if !ok {
		var ret T
		return ret, ok, false
	}
	vt, ok := v.(T)
	return vt, true, ok
}

// ValuesInt64 gets an integer value of any width as int64. ok is false if the column don't exist, the value is
// missing or it is not an integer.
func ValuesInt64(values Values, columnName string) (val int64, ok bool) {
	v, exists := values.Get(columnName)
	if !exists || v == nil {
		return 0, false
	}
	return toInt64(v)
}

// MapValues is a Values implementation using a map[string]any
type MapValues map[string]any

var _ Values = MapValues{}

func (v MapValues) Get(columnName string) (val any, exists bool) {
	val, exists = v[columnName]
	return
}

func (v MapValues) GetDefault(columnName string, def any) any {
	if val, ok := v[columnName]; ok && val != nil {
		return val
	}
	return def
}

func (v MapValues) GetOrNil(columnName string) any {
	return v[columnName]
}

func (v MapValues) Len() int {
	return len(v)
}

func (v MapValues) All(yield func(string, any) bool) {
	for _, k := range slices.Sorted(maps.Keys(v)) {
		if !yield(k, v[k]) {
			return
		}
	}
}

// Seq returns All as an iterator.
func (v MapValues) Seq() iter.Seq2[string, any] {
	return v.All
}
