package sql

import (
	"fmt"
	"slices"
	"strings"
)

// defaultSQLPlaceholderProvider returns placeholders using ?
type defaultSQLPlaceholderProvider struct {
}

func (d defaultSQLPlaceholderProvider) Next() (placeholder string, argName string) {
	return "?", ""
}

// DefaultSQLBuilder is the default customizable SQL builder, using placeholders for values.
type DefaultSQLBuilder struct {
	PlaceholderProviderFactory func() PlaceholderProvider // uses defaultSQLPlaceholderProvider if not set
	QuoteTable                 func(t string) string      // don't quote if not set
	QuoteField                 func(f string) string      // don't quote if not set
}

var _ QueryBuilder = DefaultSQLBuilder{}

func (d DefaultSQLBuilder) CreatePlaceholderProvider() PlaceholderProvider {
	if d.PlaceholderProviderFactory == nil {
		return &defaultSQLPlaceholderProvider{}
	}
	return d.PlaceholderProviderFactory()
}

func (d DefaultSQLBuilder) BuildCreateTableSQL(tableName string, columns []ColumnDef, primaryKey []string) string {
	defs := make([]string, 0, len(columns)+1)
	for _, c := range columns {
		def := d.quoteField(c.Name) + " " + c.SQLType
		if c.NotNull {
			def += " NOT NULL"
		}
		defs = append(defs, def)
	}
	if len(primaryKey) > 0 {
		defs = append(defs, fmt.Sprintf("PRIMARY KEY (%s)", strings.Join(d.quoteFields(primaryKey), ", ")))
	}

	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (%s)", d.quoteTable(tableName), strings.Join(defs, ", "))
}

func (d DefaultSQLBuilder) BuildInsertSQL(tableName string, fieldNames []string, rowsPlaceholders [][]string) string {
	values := make([]string, 0, len(rowsPlaceholders))
	for _, placeholders := range rowsPlaceholders {
		values = append(values, "("+strings.Join(placeholders, ", ")+")")
	}

	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		d.quoteTable(tableName),
		strings.Join(d.quoteFields(fieldNames), ", "),
		strings.Join(values, ", "),
	)
}

func (d DefaultSQLBuilder) quoteTable(tableName string) string {
	if d.QuoteTable != nil {
		return d.QuoteTable(tableName)
	}
	return tableName
}

func (d DefaultSQLBuilder) quoteField(fieldName string) string {
	if d.QuoteField != nil {
		return d.QuoteField(fieldName)
	}
	return fieldName
}

func (d DefaultSQLBuilder) quoteFields(fieldNames []string) []string {
	if d.QuoteField == nil {
		return fieldNames
	}
	ret := slices.Clone(fieldNames)
	for fi := range ret {
		ret[fi] = d.QuoteField(ret[fi])
	}
	return ret
}
