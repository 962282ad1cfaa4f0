package sql

import (
	"context"
	"database/sql"
)

// QueryInterface abstracts executing a statement on a database.
type QueryInterface interface {
	Exec(ctx context.Context, query string, args ...any) error
}

// QueryInterfaceFunc is a func adapter for QueryInterface
type QueryInterfaceFunc func(ctx context.Context, query string, args ...any) error

func (f QueryInterfaceFunc) Exec(ctx context.Context, query string, args ...any) error {
	return f(ctx, query, args...)
}

// sqlQueryInterface is a QueryInterface wrapper for *sql.DB.
type sqlQueryInterface struct {
	DB *sql.DB
}

var _ QueryInterface = (*sqlQueryInterface)(nil)

// NewSQLQueryInterface wraps a *sql.DB on the QueryInterface interface.
func NewSQLQueryInterface(db *sql.DB) QueryInterface {
	return &sqlQueryInterface{db}
}

func (q sqlQueryInterface) Exec(ctx context.Context, query string, args ...any) error {
	_, err := q.DB.ExecContext(ctx, query, args...)
	return err
}

// PlaceholderProvider generates database-specific placeholders, like ? for MySQL, $1 for postgres, or :param1 for MSSQL.
// If the database uses named parameters, its name should be returned in argName, otherwise this should be blank.
type PlaceholderProvider interface {
	Next() (placeholder string, argName string)
}

// ColumnDef is a column of a CREATE TABLE statement.
type ColumnDef struct {
	Name    string
	SQLType string
	NotNull bool
}

// QueryBuilder is an abstraction for building CREATE TABLE and INSERT queries.
type QueryBuilder interface {
	CreatePlaceholderProvider() PlaceholderProvider
	BuildCreateTableSQL(tableName string, columns []ColumnDef, primaryKey []string) string
	BuildInsertSQL(tableName string, fieldNames []string, rowsPlaceholders [][]string) string
}
