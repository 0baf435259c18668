package repository

import (
    "context"
    "database/sql"
    "errors"
    "time"

    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/model"
)

// TripRepo persists trips, the per-date materialization of a schedule.
// Trips are never deleted here.  Callers that change a trip's bookings
// must hold the trip row lock (lock=true reads) for the rest of their
// transaction.
type TripRepo struct {
    db *sql.DB
}

// NewTripRepo returns a TripRepo bound to the given database.
func NewTripRepo(db *sql.DB) *TripRepo { return &TripRepo{db: db} }

// UniqueScheduleDate is the name of the (schedule_id, trip_date) unique key.
const UniqueScheduleDate = "uq_trips_schedule_date"

const tripSelect = `SELECT id, schedule_id, trip_date, departure_time, arrival_time,
                           total_seats, booked_seats, status, created_at, updated_at
                    FROM trips`

func scanTrip(row rowScanner) (*model.Trip, error) {
    var t model.Trip
    err := row.Scan(
        &t.ID, &t.ScheduleID, &t.TripDate, &t.DepartureTime, &t.ArrivalTime,
        &t.TotalSeats, &t.BookedSeats, &t.Status, &t.CreatedAt, &t.UpdatedAt,
    )
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrTripNotFound
    }
    if err != nil {
        return nil, err
    }
    return &t, nil
}

// GetByScheduleDateTx returns the trip of (scheduleID, date).  With lock
// set the row is read FOR UPDATE.  Returns ErrTripNotFound when absent.
func (r *TripRepo) GetByScheduleDateTx(ctx context.Context, tx *sql.Tx, scheduleID uint64, date time.Time, lock bool) (*model.Trip, error) {
    q := tripSelect + ` WHERE schedule_id = ? AND trip_date = ?` + lockClause(lock)
    return scanTrip(tx.QueryRowContext(ctx, q, scheduleID, model.FormatDate(date)))
}

// GetByScheduleDate is the non-locking read used by seat maps.
func (r *TripRepo) GetByScheduleDate(ctx context.Context, scheduleID uint64, date time.Time) (*model.Trip, error) {
    q := tripSelect + ` WHERE schedule_id = ? AND trip_date = ?`
    return scanTrip(r.db.QueryRowContext(ctx, q, scheduleID, model.FormatDate(date)))
}

// GetByIDTx returns a trip by id, optionally locking it.
func (r *TripRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64, lock bool) (*model.Trip, error) {
    return scanTrip(tx.QueryRowContext(ctx, tripSelect+` WHERE id = ?`+lockClause(lock), id))
}

// GetByID returns a trip by id outside any transaction.
func (r *TripRepo) GetByID(ctx context.Context, id uint64) (*model.Trip, error) {
    return scanTrip(r.db.QueryRowContext(ctx, tripSelect+` WHERE id = ?`, id))
}

// CreateTx inserts t and fills in its generated ID.  A concurrent creator
// of the same (schedule, date) makes this fail with a duplicate key on
// UniqueScheduleDate; the caller decides whether to re-read.
func (r *TripRepo) CreateTx(ctx context.Context, tx *sql.Tx, t *model.Trip) error {
    const q = `INSERT INTO trips (schedule_id, trip_date, departure_time, arrival_time, total_seats, booked_seats, status)
               VALUES (?, ?, ?, ?, ?, ?, ?)`
    res, err := tx.ExecContext(ctx, q,
        t.ScheduleID, model.FormatDate(t.TripDate), t.DepartureTime, t.ArrivalTime,
        t.TotalSeats, t.BookedSeats, string(t.Status))
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    t.ID = uint64(id)
    return nil
}

// SetBookedSeatsTx overwrites the cached occupancy counter.
func (r *TripRepo) SetBookedSeatsTx(ctx context.Context, tx *sql.Tx, id uint64, n int) error {
    return r.exec(ctx, tx, `UPDATE trips SET booked_seats = ? WHERE id = ?`, n, id)
}

// UpdateStatusTx sets the operational status of a trip.
func (r *TripRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, id uint64, status model.TripStatus) error {
    return r.exec(ctx, tx, `UPDATE trips SET status = ? WHERE id = ?`, string(status), id)
}

// exec runs an update.  MySQL reports zero affected rows for an unchanged
// value, so existence is left to the caller's locking read.
func (r *TripRepo) exec(ctx context.Context, tx *sql.Tx, q string, args ...interface{}) error {
    _, err := tx.ExecContext(ctx, q, args...)
    return err
}
