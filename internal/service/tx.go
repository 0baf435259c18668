package service

import (
    "context"
    "database/sql"
    "fmt"

    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/logger"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/metrics"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/repository"
)

// TxRunner runs a unit of work in one database transaction, re-running it
// from scratch when InnoDB aborts it with a deadlock or lock wait timeout.
type TxRunner struct {
    db       *sql.DB
    attempts int
    log      logger.Logger
    metrics  *metrics.Metrics
}

// NewTxRunner returns a runner making at most attempts tries per unit.
func NewTxRunner(db *sql.DB, attempts int, log logger.Logger, m *metrics.Metrics) *TxRunner {
    if attempts < 1 {
        attempts = 1
    }
    return &TxRunner{db: db, attempts: attempts, log: log, metrics: m}
}

// Run executes fn inside a transaction named op.  fn must not keep state
// between calls since it may run more than once.  Errors returned by fn are
// passed through untouched unless they are retryable, in which case the
// last one is wrapped in ErrTransactionFailed once attempts run out.
func (r *TxRunner) Run(ctx context.Context, op string, fn func(tx *sql.Tx) error) error {
    for attempt := 1; ; attempt++ {
        err := r.runOnce(ctx, fn)
        if err == nil || !repository.IsRetryable(err) {
            return err
        }
        if attempt >= r.attempts {
            r.metrics.TxFailure(op)
            r.log.Error("transaction abandoned", "op", op, "attempts", attempt, "error", err)
            return fmt.Errorf("%w: %s: %v", ErrTransactionFailed, op, err)
        }
        r.metrics.TxRetry(op)
        r.log.Warn("transaction retry", "op", op, "attempt", attempt, "error", err)
    }
}

func (r *TxRunner) runOnce(ctx context.Context, fn func(tx *sql.Tx) error) error {
    tx, err := r.db.BeginTx(ctx, nil)
    if err != nil {
        return fmt.Errorf("%w: begin: %v", ErrTransactionFailed, err)
    }
    committed := false
    defer func() {
        if !committed {
            _ = tx.Rollback()
        }
    }()

    if err := fn(tx); err != nil {
        return err
    }
    if err := tx.Commit(); err != nil {
        if repository.IsRetryable(err) {
            return err
        }
        return fmt.Errorf("%w: commit: %v", ErrTransactionFailed, err)
    }
    committed = true
    return nil
}
