package filter

import (
	"cmp"
	"fmt"
	"math"
	"slices"

	gocmp "github.com/google/go-cmp/cmp"
	soep "github.com/ttsim-dev/soep-preparation-sub000"
)

// FilterItem is a selected row with its converted value.
type FilterItem[T any] struct {
	Index int             // row index in the table.
	Row   soep.MapValues // row values.
	Item  T
}

// FilterData returns a filtered set of the rows of a [soep.Table], converting each row to a concrete type using
// generics.
func FilterData[T any](table *soep.Table, f func(row soep.Values) (T, error), options ...FilterDataOption) ([]T, error) {
	items, err := FilterDataRows(table, f, nil, options...)
	if err != nil {
		return nil, err
	}
	ret := make([]T, 0, len(items))
	for _, item := range items {
		ret = append(ret, item.Item)
	}
	return ret, nil
}

// FilterDataRows is like [FilterData], but returns the row index and values with each item. If sortCompare is not
// nil the items are sorted with it, otherwise they are in table order.
func FilterDataRows[T any](table *soep.Table, f func(row soep.Values) (T, error),
	sortCompare func(a, b FilterItem[T]) int, options ...FilterDataOption) ([]FilterItem[T], error) {
	var optns filterDataOptions
	for _, op := range options {
		op(&optns)
	}

	for filterField := range optns.filterFields {
		if !table.Has(filterField) {
			return nil, fmt.Errorf("error loading data for '%s': field '%s' does not exists", table.Name, filterField)
		}
	}

	hasFilter := len(optns.filterYears) > 0 || len(optns.filterFields) > 0 || optns.filterRow != nil

	var ret []FilterItem[T]
	for idx, row := range table.Rows() {
		include := optns.filterAll || hasFilter

		// filter years
		if include && len(optns.filterYears) > 0 {
			year, ok := soep.ValuesInt64(row, soep.ColSurveyYear)
			include = ok && slices.Contains(optns.filterYears, int(year))
		}

		// filter fields
		if include && len(optns.filterFields) > 0 {
			for filterField, filterValue := range optns.filterFields {
				if !gocmp.Equal(filterValue, row.GetOrNil(filterField), numericComparer) {
					include = false
					break
				}
			}
		}

		// filter func
		if include && optns.filterRow != nil {
			isRow, err := optns.filterRow(row)
			if err != nil {
				return nil, fmt.Errorf("error loading data for '%s': error filtering row %d: %w", table.Name, idx, err)
			}
			include = isRow
		}

		if include {
			data, err := f(row)
			if err != nil {
				return nil, fmt.Errorf("error loading data for '%s': row %d: %w", table.Name, idx, err)
			}
			ret = append(ret, FilterItem[T]{
				Index: idx,
				Row:   row,
				Item:  data,
			})
		}
	}

	if sortCompare != nil {
		slices.SortStableFunc(ret, sortCompare)
	}

	return ret, nil
}

type filterDataOptions struct {
	filterAll    bool
	filterYears  []int
	filterFields map[string]any
	filterRow    func(row soep.Values) (bool, error)
}

type FilterDataOption func(*filterDataOptions)

// WithFilterAll include all records by default, depending on other filters if they exist.
// By default, if no filters were set, no record would be returned. Use this to return all rows in this case.
// All requested filters must return true to select the row.
func WithFilterAll(filterAll bool) FilterDataOption {
	return func(o *filterDataOptions) {
		o.filterAll = filterAll
	}
}

// WithFilterYears filters by survey year. Rows without survey year are not selected.
// All requested filters must return true to select the row.
func WithFilterYears(years ...int) FilterDataOption {
	return func(o *filterDataOptions) {
		o.filterYears = years
	}
}

// WithFilterFields filters fields values. Numbers of any type compare by value, so int(1) matches a uint8 column.
// A nil value matches missing values.
// All requested filters must return true to select the row.
func WithFilterFields(fields map[string]any) FilterDataOption {
	return func(o *filterDataOptions) {
		o.filterFields = fields
	}
}

// WithFilterRow filters using a callback.
// All requested filters must return true to select the row.
func WithFilterRow(filterRow func(row soep.Values) (bool, error)) FilterDataOption {
	return func(o *filterDataOptions) {
		o.filterRow = filterRow
	}
}

// numericComparer compares numbers of different types by value.
var numericComparer = gocmp.FilterValues(func(x, y any) bool {
	_, okx := toFloat64(x)
	_, oky := toFloat64(y)
	return okx && oky
}, gocmp.Comparer(func(x, y any) bool {
	fx, _ := toFloat64(x)
	fy, _ := toFloat64(y)
	if fx == fy {
		return true
	}
	return math.Abs(fx-fy) <= 1e-6*max(math.Abs(fx), math.Abs(fy))
}))

func toFloat64(v any) (float64, bool) {
	switch vv := v.(type) {
	case int:
		return float64(vv), true
	case int8:
		return float64(vv), true
	case int16:
		return float64(vv), true
	case int32:
		return float64(vv), true
	case int64:
		return float64(vv), true
	case uint:
		return float64(vv), true
	case uint8:
		return float64(vv), true
	case uint16:
		return float64(vv), true
	case uint32:
		return float64(vv), true
	case uint64:
		return float64(vv), true
	case float32:
		return float64(vv), true
	case float64:
		return vv, true
	default:
		return 0, false
	}
}

// SortByColumns returns a compare function for [FilterDataRows] ordering items by integer columns, with missing
// values last.
func SortByColumns[T any](columns ...string) func(a, b FilterItem[T]) int {
	return func(a, b FilterItem[T]) int {
		for _, column := range columns {
			va, oka := soep.ValuesInt64(a.Row, column)
			vb, okb := soep.ValuesInt64(b.Row, column)
			switch {
			case !oka && !okb:
				continue
			case !oka:
				return 1
			case !okb:
				return -1
			}
			if r := cmp.Compare(va, vb); r != 0 {
				return r
			}
		}
		return 0
	}
}
