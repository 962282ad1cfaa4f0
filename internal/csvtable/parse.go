package csvtable

import (
	"fmt"
	"strconv"

	soep "github.com/ttsim-dev/soep-preparation-sub000"
)

func parseColumn(name string, cells []string, variable *soep.Variable) (*soep.Column, error) {
	missing := make([]bool, len(cells))
	for i, cell := range cells {
		missing[i] = cell == ""
	}

	if soep.IsKeyColumn(name) {
		data, err := parseCells(name, cells, missing, parseInt)
		if err != nil {
			return nil, err
		}
		return soep.NewColumn(name, data, missing)
	}

	if variable == nil {
		return inferColumn(name, cells, missing)
	}

	switch variable.Kind {
	case soep.BoolCategorical:
		data, err := parseCells(name, cells, missing, strconv.ParseBool)
		if err != nil {
			return nil, err
		}
		return newColumn(name, data, missing, variable.Categories)
	case soep.IntCategorical:
		data, err := parseCells(name, cells, missing, parseInt)
		if err != nil {
			return nil, err
		}
		return newColumn(name, data, missing, variable.Categories)
	case soep.StringCategorical:
		return newColumn(name, cells, missing, variable.Categories)
	default:
		return parseNumeric(name, cells, missing, variable.DType)
	}
}

// parseNumeric parses a numeric column with the element type of its metadata. Unknown types are int64.
func parseNumeric(name string, cells []string, missing []bool, dtype string) (*soep.Column, error) {
	switch dtype {
	case "float32":
		return numericColumn(name, cells, missing, func(s string) (float32, error) {
			v, err := strconv.ParseFloat(s, 32)
			return float32(v), err
		})
	case "float64":
		return numericColumn(name, cells, missing, parseFloat)
	case "int8":
		return numericColumn(name, cells, missing, signed[int8](8))
	case "int16":
		return numericColumn(name, cells, missing, signed[int16](16))
	case "int32":
		return numericColumn(name, cells, missing, signed[int32](32))
	case "uint8":
		return numericColumn(name, cells, missing, unsigned[uint8](8))
	case "uint16":
		return numericColumn(name, cells, missing, unsigned[uint16](16))
	case "uint32":
		return numericColumn(name, cells, missing, unsigned[uint32](32))
	case "uint64":
		return numericColumn(name, cells, missing, unsigned[uint64](64))
	default:
		return numericColumn(name, cells, missing, parseInt)
	}
}

func numericColumn[T any](name string, cells []string, missing []bool,
	parse func(string) (T, error)) (*soep.Column, error) {
	data, err := parseCells(name, cells, missing, parse)
	if err != nil {
		return nil, err
	}
	return soep.NewColumn(name, data, missing)
}

func signed[T int8 | int16 | int32](bits int) func(string) (T, error) {
	return func(s string) (T, error) {
		v, err := strconv.ParseInt(s, 10, bits)
		return T(v), err
	}
}

func unsigned[T uint8 | uint16 | uint32 | uint64](bits int) func(string) (T, error) {
	return func(s string) (T, error) {
		v, err := strconv.ParseUint(s, 10, bits)
		return T(v), err
	}
}

// inferColumn picks the first of int64, float64 and bool that parses every present cell, or string.
func inferColumn(name string, cells []string, missing []bool) (*soep.Column, error) {
	if data, err := parseCells(name, cells, missing, parseInt); err == nil {
		return soep.NewColumn(name, data, missing)
	}
	if data, err := parseCells(name, cells, missing, parseFloat); err == nil {
		return soep.NewColumn(name, data, missing)
	}
	if data, err := parseCells(name, cells, missing, strconv.ParseBool); err == nil {
		return soep.NewColumn(name, data, missing)
	}
	return soep.NewColumn(name, cells, missing)
}

func newColumn(name string, data any, missing []bool, categories *soep.CategorySet) (*soep.Column, error) {
	if categories == nil {
		return soep.NewColumn(name, data, missing)
	}
	return soep.NewCategoricalColumn(name, data, missing, categories)
}

func parseCells[T any](name string, cells []string, missing []bool, parse func(string) (T, error)) ([]T, error) {
	ret := make([]T, len(cells))
	for i, cell := range cells {
		if missing[i] {
			continue
		}
		v, err := parse(cell)
		if err != nil {
			return nil, fmt.Errorf("column '%s' row %d: %w", name, i+1, err)
		}
		ret[i] = v
	}
	return ret, nil
}

func parseInt(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

func parseFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}
