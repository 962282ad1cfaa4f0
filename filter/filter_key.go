package filter

import (
	"fmt"
	"strings"

	soep "github.com/ttsim-dev/soep-preparation-sub000"
)

type FilterDataKeyedItem[T any] struct {
	Index int
	Data  T
}

type FilterDataKeyedResult[T any] struct {
	Data        []T
	DataKey     map[string]FilterDataKeyedItem[T]
	MissingKeys []int
}

// FilterDataKeyed uses [FilterDataRows] to filter rows and in addition to returning the data, returns a map
// indexed by the row key columns, like "person_id=1,survey_year=2020". Items with a missing key value are listed
// in MissingKeys by their index in Data.
func FilterDataKeyed[T any](table *soep.Table, f func(row soep.Values) (T, error),
	sortCompare func(a, b T) int, options ...FilterDataOption) (FilterDataKeyedResult[T], error) {
	var rowsSortCompare func(a, b FilterItem[T]) int
	if sortCompare != nil {
		rowsSortCompare = func(a, b FilterItem[T]) int {
			return sortCompare(a.Item, b.Item)
		}
	}

	items, err := FilterDataRows[T](table, f, rowsSortCompare, options...)
	if err != nil {
		return FilterDataKeyedResult[T]{}, err
	}

	keys := table.KeyColumns()

	ret := FilterDataKeyedResult[T]{
		DataKey: map[string]FilterDataKeyedItem[T]{},
	}
	for idx, item := range items {
		ret.Data = append(ret.Data, item.Item)
		key, ok := RowKey(item.Row, keys)
		if !ok {
			ret.MissingKeys = append(ret.MissingKeys, idx)
			continue
		}
		if _, exists := ret.DataKey[key]; exists {
			return FilterDataKeyedResult[T]{}, fmt.Errorf("duplicate row key '%s' in '%s'", key, table.Name)
		}
		ret.DataKey[key] = FilterDataKeyedItem[T]{
			Index: idx,
			Data:  item.Item,
		}
	}

	return ret, nil
}

// RowKey formats the key columns of a row as "name=value" pairs joined by commas. It returns false if any key
// value is missing.
func RowKey(row soep.Values, keys []string) (string, bool) {
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := row.GetOrNil(k)
		if v == nil {
			return "", false
		}
		if i, ok := soep.ValuesInt64(row, k); ok {
			v = i
		}
		parts = append(parts, fmt.Sprintf("%s=%v", k, v))
	}
	return strings.Join(parts, ","), true
}
