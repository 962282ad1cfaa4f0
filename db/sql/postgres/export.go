package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	soep "github.com/ttsim-dev/soep-preparation-sub000"
	"github.com/ttsim-dev/soep-preparation-sub000/db/sql"
)

// Export runs CREATE TABLE and INSERT queries on db.
func Export(ctx context.Context, table *soep.Table, tableID soep.TableID, db sql.QueryInterface,
	options ...sql.ExportOption) error {
	return sql.Export(ctx, table, tableID, db, SQLBuilder(), options...)
}

// CopyTable creates the destination table and loads all rows with the COPY protocol, which is much faster than
// INSERT for large tables. It returns the number of copied rows.
func CopyTable(ctx context.Context, conn interface {
	Execer
	CopyFromer
}, table *soep.Table, tableID soep.TableID) (int64, error) {
	err := sql.CreateTable(ctx, table, tableID, NewPgxQueryInterface(conn), SQLBuilder())
	if err != nil {
		return 0, err
	}

	columns := table.Columns()
	n, err := conn.CopyFrom(ctx, Identifier(tableID.TableID()), table.ColumnNames(),
		pgx.CopyFromSlice(table.Len(), func(i int) ([]any, error) {
			row := make([]any, len(columns))
			for ci, c := range columns {
				row[ci] = c.Value(i)
			}
			return row, nil
		}))
	if err != nil {
		return 0, fmt.Errorf("error copying rows to '%s': %w", tableID.TableID(), err)
	}
	return n, nil
}
