package service

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "time"

    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/logger"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/metrics"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/model"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/repository"
)

// TripLedger owns the per-date materialization of schedules into trips
// and keeps trips.booked_seats equal to the number of seat-holding
// bookings.  The ...Tx methods compose into a caller's transaction; the
// others run their own.
type TripLedger struct {
    tx             *TxRunner
    schedules      *repository.ScheduleRepo
    trips          *repository.TripRepo
    bookings       *repository.BookingRepo
    createAttempts int
    log            logger.Logger
    metrics        *metrics.Metrics
    now            func() time.Time
}

func NewTripLedger(tx *TxRunner, schedules *repository.ScheduleRepo, trips *repository.TripRepo,
    bookings *repository.BookingRepo, createAttempts int, log logger.Logger, m *metrics.Metrics) *TripLedger {
    if createAttempts < 1 {
        createAttempts = 1
    }
    return &TripLedger{
        tx: tx, schedules: schedules, trips: trips, bookings: bookings,
        createAttempts: createAttempts, log: log, metrics: m, now: time.Now,
    }
}

// ResolveOrCreateTrip returns the trip of (scheduleID, date), creating it
// when this is the first time the pair is asked for.
func (l *TripLedger) ResolveOrCreateTrip(ctx context.Context, scheduleID uint64, date time.Time) (trip *model.Trip, err error) {
    defer func(start time.Time) { l.metrics.Observe("resolve_trip", start, err) }(time.Now())

    date = model.CivilDate(date)
    err = l.tx.Run(ctx, "resolve_trip", func(tx *sql.Tx) error {
        sched, err := l.schedules.GetByIDTx(ctx, tx, scheduleID)
        if err != nil {
            return notFound(err)
        }
        trip, err = l.ResolveOrCreateTripTx(ctx, tx, sched, date, false)
        return err
    })
    if err != nil {
        return nil, err
    }
    return trip, nil
}

// ResolveOrCreateTripTx looks the trip up and inserts it when absent, with
// departure/arrival times copied from sched and capacity from its bus.
// With lock set the trip row stays locked for the rest of tx.
//
// Two transactions creating the same trip race on uq_trips_schedule_date;
// the loser re-reads the winner's row with a locking read (a plain read
// would still see the pre-insert snapshot).  After createAttempts
// collisions the race surfaces as ErrTransactionFailed.
func (l *TripLedger) ResolveOrCreateTripTx(ctx context.Context, tx *sql.Tx, sched *model.Schedule, date time.Time, lock bool) (*model.Trip, error) {
    date = model.CivilDate(date)
    for attempt := 1; ; attempt++ {
        trip, err := l.trips.GetByScheduleDateTx(ctx, tx, sched.ID, date, lock)
        if err == nil {
            return trip, nil
        }
        if !errors.Is(err, repository.ErrTripNotFound) {
            return nil, err
        }

        now := l.now().UTC()
        trip = &model.Trip{
            ScheduleID:    sched.ID,
            TripDate:      date,
            DepartureTime: sched.DepartureTime,
            ArrivalTime:   sched.ArrivalTime,
            TotalSeats:    sched.Bus.TotalSeats,
            BookedSeats:   0,
            Status:        model.TripScheduled,
            CreatedAt:     now,
            UpdatedAt:     now,
        }
        err = l.trips.CreateTx(ctx, tx, trip)
        if err == nil {
            l.log.Info("trip created", "trip_id", trip.ID, "schedule_id", sched.ID, "date", model.FormatDate(date))
            return trip, nil
        }
        if !repository.DuplicateKeyOn(err, repository.UniqueScheduleDate) {
            return nil, err
        }
        if attempt >= l.createAttempts {
            return nil, fmt.Errorf("%w: trip for schedule %d on %s: %v", ErrTransactionFailed, sched.ID, model.FormatDate(date), err)
        }
        l.log.Warn("trip creation raced, re-reading", "schedule_id", sched.ID, "date", model.FormatDate(date), "attempt", attempt)
        lock = true
    }
}

// RecomputeOccupancy rewrites booked_seats of a trip from its bookings.
func (l *TripLedger) RecomputeOccupancy(ctx context.Context, tripID uint64) (trip *model.Trip, err error) {
    defer func(start time.Time) { l.metrics.Observe("recompute_occupancy", start, err) }(time.Now())

    err = l.tx.Run(ctx, "recompute_occupancy", func(tx *sql.Tx) error {
        t, err := l.trips.GetByIDTx(ctx, tx, tripID, true)
        if err != nil {
            return notFound(err)
        }
        n, err := l.RecomputeOccupancyTx(ctx, tx, tripID)
        if err != nil {
            return err
        }
        t.BookedSeats = n
        trip = t
        return nil
    })
    if err != nil {
        return nil, err
    }
    return trip, nil
}

// RecomputeOccupancyTx counts the trip's seat-holding bookings and writes
// the count.  The caller must hold the trip row lock and must already have
// applied its own booking changes in tx.
func (l *TripLedger) RecomputeOccupancyTx(ctx context.Context, tx *sql.Tx, tripID uint64) (int, error) {
    n, err := l.bookings.CountHoldingByTripTx(ctx, tx, tripID)
    if err != nil {
        return 0, err
    }
    if err := l.trips.SetBookedSeatsTx(ctx, tx, tripID, n); err != nil {
        return 0, err
    }
    return n, nil
}

// UpdateTripStatus moves a trip along scheduled → in-progress → completed,
// or to cancelled before it completes.  Setting the current status again
// is a no-op.  Bookings are left alone: only new sales are blocked.
func (l *TripLedger) UpdateTripStatus(ctx context.Context, tripID uint64, status model.TripStatus) (trip *model.Trip, err error) {
    defer func(start time.Time) { l.metrics.Observe("update_trip_status", start, err) }(time.Now())

    if !status.Valid() {
        return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
    }
    err = l.tx.Run(ctx, "update_trip_status", func(tx *sql.Tx) error {
        t, err := l.trips.GetByIDTx(ctx, tx, tripID, true)
        if err != nil {
            return notFound(err)
        }
        if t.Status == status {
            trip = t
            return nil
        }
        if !t.Status.CanTransitionTo(status) {
            return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, t.Status, status)
        }
        if err := l.trips.UpdateStatusTx(ctx, tx, tripID, status); err != nil {
            return err
        }
        t.Status = status
        trip = t
        return nil
    })
    if err != nil {
        return nil, err
    }
    l.log.Info("trip status changed", "trip_id", tripID, "status", string(status))
    return trip, nil
}

// notFound maps repository absence sentinels onto ErrNotFound and passes
// every other error through.
func notFound(err error) error {
    switch {
    case errors.Is(err, repository.ErrScheduleNotFound):
        return fmt.Errorf("%w: schedule", ErrNotFound)
    case errors.Is(err, repository.ErrTripNotFound):
        return fmt.Errorf("%w: trip", ErrNotFound)
    case errors.Is(err, repository.ErrBookingNotFound):
        return fmt.Errorf("%w: booking", ErrNotFound)
    }
    return err
}
