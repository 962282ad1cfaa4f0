package postgres

import (
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/ttsim-dev/soep-preparation-sub000/db/sql"
)

// PlaceholderProvider generates postgres-compatible placeholders ($1, $2).
type PlaceholderProvider struct {
	c int
}

var _ sql.PlaceholderProvider = (*PlaceholderProvider)(nil)

func (p *PlaceholderProvider) Next() (placeholder string, argName string) {
	p.c++
	return fmt.Sprintf("$%d", p.c), ""
}

// SQLBuilder returns a postgres-compatible sql.QueryBuilder
func SQLBuilder() sql.QueryBuilder {
	return sql.DefaultSQLBuilder{
		PlaceholderProviderFactory: func() sql.PlaceholderProvider {
			return &PlaceholderProvider{}
		},
		QuoteTable: func(t string) string {
			return Identifier(t).Sanitize()
		},
		QuoteField: func(f string) string {
			return pgx.Identifier{f}.Sanitize()
		},
	}
}

// Identifier splits a "schema.table" name into a pgx.Identifier.
func Identifier(tableName string) pgx.Identifier {
	return pgx.Identifier(strings.Split(tableName, "."))
}
