// Package csvtable reads and writes cleaned tables as CSV files, one file per table with a header row.
// Empty cells are missing values.
package csvtable

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	soep "github.com/ttsim-dev/soep-preparation-sub000"
)

// FileSuffix is the extension of table files.
const FileSuffix = ".csv"

// Read reads a table. Columns described by the registry get its kind, element type and categories; other columns
// are inferred as int64, float64, bool or string, in that order. Key columns are always int64. registry may be nil.
func Read(name string, r io.Reader, registry *soep.Registry) (*soep.Table, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = false

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("table '%s': empty file", name)
		}
		return nil, fmt.Errorf("table '%s': %w", name, err)
	}

	cells := make([][]string, len(header))
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("table '%s': %w", name, err)
		}
		for i, cell := range record {
			cells[i] = append(cells[i], cell)
		}
	}

	columns := make([]*soep.Column, len(header))
	for i, colName := range header {
		var variable *soep.Variable
		if registry != nil && registry.Has(colName) {
			v, err := registry.Lookup(colName)
			if err != nil {
				return nil, err
			}
			variable = &v
		}
		c, err := parseColumn(colName, cells[i], variable)
		if err != nil {
			return nil, fmt.Errorf("table '%s': %w", name, err)
		}
		columns[i] = c
	}
	return soep.NewTable(name, columns...)
}

// LoadTables reads every CSV file of the provider. Tables are named after their file name without extension.
func LoadTables(fileProvider soep.FileProvider, registry *soep.Registry) (map[string]*soep.Table, error) {
	ret := map[string]*soep.Table{}
	err := fileProvider.Load(func(info soep.FileInfo) error {
		name := strings.TrimSuffix(path.Base(info.Name), FileSuffix)
		if _, ok := ret[name]; ok {
			return fmt.Errorf("table '%s' defined more than once (file '%s')", name, info.Name)
		}
		t, err := Read(name, info.File, registry)
		if err != nil {
			return err
		}
		ret[name] = t
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ret, nil
}

// Write writes the table with a header row. Missing values are written as empty cells.
func Write(w io.Writer, t *soep.Table) error {
	writer := csv.NewWriter(w)
	if err := writer.Write(t.ColumnNames()); err != nil {
		return err
	}

	columns := t.Columns()
	record := make([]string, len(columns))
	for i := range t.Len() {
		for ci, c := range columns {
			record[ci] = formatValue(c.Value(i))
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func formatValue(v any) string {
	switch vv := v.(type) {
	case nil:
		return ""
	case string:
		return vv
	case bool:
		return strconv.FormatBool(vv)
	case float32:
		return strconv.FormatFloat(float64(vv), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(vv, 'g', -1, 64)
	default:
		return fmt.Sprint(vv)
	}
}
