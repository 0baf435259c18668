package repository

import (
    "errors"
    "strings"

    "github.com/go-sql-driver/mysql"
)

// MySQL server error numbers the booking core reacts to.
const (
    ErrNumDuplicateEntry  = 1062
    ErrNumLockWaitTimeout = 1205
    ErrNumDeadlock        = 1213
)

func mysqlError(err error) (*mysql.MySQLError, bool) {
    var me *mysql.MySQLError
    if errors.As(err, &me) {
        return me, true
    }
    return nil, false
}

// IsDuplicateKey reports whether err is a unique constraint violation.
func IsDuplicateKey(err error) bool {
    me, ok := mysqlError(err)
    return ok && me.Number == ErrNumDuplicateEntry
}

// DuplicateKeyOn reports whether err is a unique constraint violation on
// the named index.  MySQL only carries the key name in the message text
// ("Duplicate entry '7-2025-06-01' for key 'trips.uq_trips_schedule_date'").
func DuplicateKeyOn(err error, index string) bool {
    me, ok := mysqlError(err)
    return ok && me.Number == ErrNumDuplicateEntry && strings.Contains(me.Message, index)
}

// IsRetryable reports whether the whole transaction may be re-run: InnoDB
// rolled it back on a deadlock, or a lock wait timed out.
func IsRetryable(err error) bool {
    me, ok := mysqlError(err)
    return ok && (me.Number == ErrNumDeadlock || me.Number == ErrNumLockWaitTimeout)
}
