package core

import (
	"context"
	"database/sql"
)

type (
	// DBExecutor is satisfied by *sql.DB, *sql.Tx, *sqlx.DB and *sqlx.Tx.
	DBExecutor interface {
		Exec(query string, args ...interface{}) (sql.Result, error)
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
		Query(query string, args ...interface{}) (*sql.Rows, error)
		QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
		QueryRow(query string, args ...interface{}) *sql.Row
		QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
	}

	DB interface {
		DBExecutor

		PingContext(ctx context.Context) error
		Close() error
	}
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// OrderBy renders the orderings whose field is a key of allowed, using the mapped column.
// It falls back to def when nothing usable was requested.
func OrderBy(orderings []DBOrdering, allowed map[string]string, def string) string {
	clause := ""
	for _, ord := range orderings {
		col, ok := allowed[ord.Field]
		if !ok {
			continue
		}
		if clause != "" {
			clause += ", "
		}
		clause += DBOrdering{Field: col, Ascending: ord.Ascending}.String()
	}
	if clause == "" {
		return def
	}
	return clause
}
