package repository

import (
    "context"
    "database/sql"
    "strings"

    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/model"
)

// querier is satisfied by both *sql.DB and *sql.Tx so a single query
// implementation serves the plain and the ...Tx method of a repository.
type querier interface {
    ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
    QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
    QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
    Scan(dest ...interface{}) error
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
    if n <= 0 {
        return ""
    }
    return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

// holdingIn renders the canonical "holds the seat" predicate for the
// bookings table.  Every seat check, free-seat listing and occupancy count
// goes through it.
func holdingIn(column string) (string, []interface{}) {
    args := make([]interface{}, len(model.HoldingStatuses))
    for i, s := range model.HoldingStatuses {
        args[i] = string(s)
    }
    return column + " IN (" + placeholders(len(args)) + ")", args
}

func lockClause(lock bool) string {
    if lock {
        return " FOR UPDATE"
    }
    return ""
}
