package service

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "time"

    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/logger"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/model"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/repository"
)

// SeatOracle answers which seats of a schedule/date are free.  A seat is
// taken when a booking in one of model.HoldingStatuses sits on it.  Only
// IsSeatFreeTx is authoritative; the other answers are snapshots for
// display.
type SeatOracle struct {
    schedules *repository.ScheduleRepo
    trips     *repository.TripRepo
    bookings  *repository.BookingRepo
    cache     *SeatMapCache
    log       logger.Logger
}

func NewSeatOracle(schedules *repository.ScheduleRepo, trips *repository.TripRepo, bookings *repository.BookingRepo,
    cache *SeatMapCache, log logger.Logger) *SeatOracle {
    return &SeatOracle{schedules: schedules, trips: trips, bookings: bookings, cache: cache, log: log}
}

// IsSeatFreeTx checks the seat inside tx and locks it against concurrent
// inserts until tx ends.
func (o *SeatOracle) IsSeatFreeTx(ctx context.Context, tx *sql.Tx, scheduleID uint64, date time.Time, seat int) (bool, error) {
    held, err := o.bookings.SeatHeldTx(ctx, tx, scheduleID, model.CivilDate(date), seat)
    return !held, err
}

// IsSeatFree is a non-locking hint for clients.
func (o *SeatOracle) IsSeatFree(ctx context.Context, scheduleID uint64, date time.Time, seat int) (bool, error) {
    held, err := o.bookings.SeatHeld(ctx, scheduleID, model.CivilDate(date), seat)
    return !held, err
}

// ListFreeSeats returns {1..totalSeats} minus the held seats, ascending.
func (o *SeatOracle) ListFreeSeats(ctx context.Context, scheduleID uint64, date time.Time, totalSeats int) ([]int, error) {
    held, err := o.bookings.HeldSeats(ctx, scheduleID, model.CivilDate(date))
    if err != nil {
        return nil, err
    }
    return freeSeats(totalSeats, held), nil
}

func freeSeats(total int, held []int) []int {
    taken := make(map[int]bool, len(held))
    for _, s := range held {
        taken[s] = true
    }
    free := make([]int, 0, total)
    for s := 1; s <= total; s++ {
        if !taken[s] {
            free = append(free, s)
        }
    }
    return free
}

// SeatMap describes the seats of a schedule on a date.  Capacity comes
// from the trip when one exists (it was frozen at trip creation) and from
// the bus otherwise.
func (o *SeatOracle) SeatMap(ctx context.Context, scheduleID uint64, date time.Time) (*model.SeatMap, error) {
    date = model.CivilDate(date)
    key := SeatKey{ScheduleID: scheduleID, Date: date}
    if m, ok := o.cache.Get(ctx, key); ok {
        return m, nil
    }

    sched, err := o.schedules.GetByID(ctx, scheduleID)
    if err != nil {
        return nil, notFound(err)
    }
    total := sched.Bus.TotalSeats
    trip, err := o.trips.GetByScheduleDate(ctx, scheduleID, date)
    switch {
    case err == nil:
        total = trip.TotalSeats
    case !errors.Is(err, repository.ErrTripNotFound):
        return nil, err
    }

    free, err := o.ListFreeSeats(ctx, scheduleID, date, total)
    if err != nil {
        return nil, err
    }
    m := &model.SeatMap{
        ScheduleID:     scheduleID,
        TravelDate:     model.FormatDate(date),
        TotalSeats:     total,
        BookedSeats:    total - len(free),
        AvailableSeats: len(free),
        FreeSeats:      free,
    }
    o.cache.Set(ctx, key, m)
    return m, nil
}

// CheckAvailability returns seat counts for many schedules on one date, in
// request order.  Unknown schedules are left out.
func (o *SeatOracle) CheckAvailability(ctx context.Context, date time.Time, scheduleIDs []uint64) ([]model.Availability, error) {
    date = model.CivilDate(date)
    ids := dedupe(scheduleIDs)
    schedules, err := o.schedules.GetMany(ctx, ids)
    if err != nil {
        return nil, fmt.Errorf("load schedules: %w", err)
    }
    counts, err := o.bookings.HeldCounts(ctx, ids, date)
    if err != nil {
        return nil, fmt.Errorf("count held seats: %w", err)
    }
    out := make([]model.Availability, 0, len(ids))
    for _, id := range ids {
        s, ok := schedules[id]
        if !ok {
            continue
        }
        booked := counts[id]
        avail := s.Bus.TotalSeats - booked
        if avail < 0 {
            avail = 0
        }
        out = append(out, model.Availability{
            ScheduleID:     id,
            TotalSeats:     s.Bus.TotalSeats,
            BookedSeats:    booked,
            AvailableSeats: avail,
        })
    }
    return out, nil
}

func dedupe(ids []uint64) []uint64 {
    seen := make(map[uint64]bool, len(ids))
    out := make([]uint64, 0, len(ids))
    for _, id := range ids {
        if !seen[id] {
            seen[id] = true
            out = append(out, id)
        }
    }
    return out
}
