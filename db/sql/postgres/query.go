package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/ttsim-dev/soep-preparation-sub000/db/sql"
)

// Execer is the pgx Exec method, implemented by *pgx.Conn, pgx.Tx and connection pools.
type Execer interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
}

// CopyFromer is the pgx CopyFrom method, implemented by *pgx.Conn, pgx.Tx and connection pools.
type CopyFromer interface {
	CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error)
}

// pgxQueryInterface is a sql.QueryInterface wrapper for pgx connections.
type pgxQueryInterface struct {
	conn Execer
}

var _ sql.QueryInterface = (*pgxQueryInterface)(nil)

// NewPgxQueryInterface wraps a pgx connection on the sql.QueryInterface interface.
func NewPgxQueryInterface(conn Execer) sql.QueryInterface {
	return &pgxQueryInterface{conn: conn}
}

func (q pgxQueryInterface) Exec(ctx context.Context, query string, args ...any) error {
	_, err := q.conn.Exec(ctx, query, args...)
	return err
}
