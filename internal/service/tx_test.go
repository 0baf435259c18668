package service

import (
    "database/sql"
    "errors"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func TestTxRunnerCommits(t *testing.T) {
    f := newFixture(t, 3)
    f.mock.ExpectBegin()
    f.mock.ExpectCommit()

    calls := 0
    err := f.engine.tx.Run(ctx, "noop", func(*sql.Tx) error { calls++; return nil })
    require.NoError(t, err)
    assert.Equal(t, 1, calls)
    f.done()
}

func TestTxRunnerPassesDomainErrorsThrough(t *testing.T) {
    f := newFixture(t, 3)
    f.mock.ExpectBegin()
    f.mock.ExpectRollback()

    calls := 0
    err := f.engine.tx.Run(ctx, "noop", func(*sql.Tx) error { calls++; return ErrSeatUnavailable })
    assert.Equal(t, ErrSeatUnavailable, err)
    assert.Equal(t, 1, calls)
    f.done()
}

func TestTxRunnerRetriesDeadlocks(t *testing.T) {
    f := newFixture(t, 3)
    for i := 0; i < 2; i++ {
        f.mock.ExpectBegin()
        f.mock.ExpectRollback()
    }
    f.mock.ExpectBegin()
    f.mock.ExpectCommit()

    calls := 0
    err := f.engine.tx.Run(ctx, "noop", func(*sql.Tx) error {
        calls++
        if calls < 3 {
            return deadlock()
        }
        return nil
    })
    require.NoError(t, err)
    assert.Equal(t, 3, calls)
    f.done()
}

func TestTxRunnerBeginFailure(t *testing.T) {
    f := newFixture(t, 3)
    f.mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

    err := f.engine.tx.Run(ctx, "noop", func(*sql.Tx) error { t.Fatal("fn must not run"); return nil })
    assert.ErrorIs(t, err, ErrTransactionFailed)
    f.done()
}

func TestTxRunnerCommitFailure(t *testing.T) {
    f := newFixture(t, 3)
    f.mock.ExpectBegin()
    f.mock.ExpectCommit().WillReturnError(errors.New("connection reset"))

    err := f.engine.tx.Run(ctx, "noop", func(*sql.Tx) error { return nil })
    assert.ErrorIs(t, err, ErrTransactionFailed)
    f.done()
}
