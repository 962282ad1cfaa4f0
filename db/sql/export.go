package sql

import (
	"context"
	"database/sql"
	"fmt"

	soep "github.com/ttsim-dev/soep-preparation-sub000"
)

type exportOptions struct {
	batchSize   int
	createTable bool
}

type ExportOption func(*exportOptions)

// WithBatchSize sets the number of rows per INSERT statement (default: 500).
func WithBatchSize(batchSize int) ExportOption {
	return func(o *exportOptions) {
		o.batchSize = batchSize
	}
}

// WithCreateTable issues a CREATE TABLE IF NOT EXISTS statement before inserting (default: true), see CreateTable.
func WithCreateTable(createTable bool) ExportOption {
	return func(o *exportOptions) {
		o.createTable = createTable
	}
}

// Export inserts all rows of the table into the database table tableID, in table order. Missing values are
// inserted as NULL.
func Export(ctx context.Context, table *soep.Table, tableID soep.TableID, db QueryInterface, sqlBuilder QueryBuilder,
	options ...ExportOption) error {
	optns := exportOptions{
		batchSize:   500,
		createTable: true,
	}
	for _, opt := range options {
		opt(&optns)
	}
	if optns.batchSize <= 0 {
		optns.batchSize = 1
	}

	if optns.createTable {
		if err := CreateTable(ctx, table, tableID, db, sqlBuilder); err != nil {
			return err
		}
	}

	tableName := tableID.TableID()
	fieldNames := table.ColumnNames()
	columns := table.Columns()

	for start := 0; start < table.Len(); start += optns.batchSize {
		if err := ctx.Err(); err != nil {
			return err
		}

		end := min(start+optns.batchSize, table.Len())

		placeholderProvider := sqlBuilder.CreatePlaceholderProvider()
		var rowsPlaceholders [][]string
		var args []any
		for row := start; row < end; row++ {
			placeholders := make([]string, 0, len(columns))
			for _, v := range rowArgs(columns, row) {
				placeholder, argName := placeholderProvider.Next()
				placeholders = append(placeholders, placeholder)
				if argName != "" {
					args = append(args, sql.Named(argName, v))
				} else {
					args = append(args, v)
				}
			}
			rowsPlaceholders = append(rowsPlaceholders, placeholders)
		}

		query := sqlBuilder.BuildInsertSQL(tableName, fieldNames, rowsPlaceholders)
		if err := db.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("error executing query `%s`: %w", query, err)
		}
	}

	return nil
}

// CreateTable issues a CREATE TABLE IF NOT EXISTS statement for the table. The primary key is the key columns of
// the table when none of them has missing values.
func CreateTable(ctx context.Context, table *soep.Table, tableID soep.TableID, db QueryInterface,
	sqlBuilder QueryBuilder) error {
	defs := ColumnDefs(table)
	var primaryKey []string
	for _, def := range defs {
		if soep.IsKeyColumn(def.Name) && def.NotNull {
			primaryKey = append(primaryKey, def.Name)
		}
	}
	if len(primaryKey) != len(table.KeyColumns()) {
		primaryKey = nil
	}

	query := sqlBuilder.BuildCreateTableSQL(tableID.TableID(), defs, primaryKey)
	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("error executing query `%s`: %w", query, err)
	}
	return nil
}
