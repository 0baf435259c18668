package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"

    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/model"
)

// ScheduleRepo reads schedules together with their bus and route.  The
// catalog is maintained elsewhere; this repository never writes it.
type ScheduleRepo struct {
    db *sql.DB
}

// NewScheduleRepo returns a ScheduleRepo bound to the given database.
func NewScheduleRepo(db *sql.DB) *ScheduleRepo { return &ScheduleRepo{db: db} }

const scheduleSelect = `SELECT s.id, s.bus_id, s.route_id, s.departure_time, s.arrival_time,
                               s.price, s.is_active, s.days_of_week,
                               b.id, b.plate_number, b.company_name, b.total_seats,
                               r.id, r.origin, r.destination
                        FROM schedules s
                        JOIN buses b ON b.id = s.bus_id
                        JOIN routes r ON r.id = s.route_id`

func scanSchedule(row rowScanner) (model.Schedule, error) {
    var s model.Schedule
    err := row.Scan(
        &s.ID, &s.BusID, &s.RouteID, &s.DepartureTime, &s.ArrivalTime,
        &s.Price, &s.IsActive, &s.DaysOfWeek,
        &s.Bus.ID, &s.Bus.PlateNumber, &s.Bus.CompanyName, &s.Bus.TotalSeats,
        &s.Route.ID, &s.Route.Origin, &s.Route.Destination,
    )
    return s, err
}

// GetByID loads one schedule with its bus and route.  Returns
// ErrScheduleNotFound when the schedule, its bus or its route is missing.
func (r *ScheduleRepo) GetByID(ctx context.Context, id uint64) (*model.Schedule, error) {
    return r.getByID(ctx, r.db, id)
}

// GetByIDTx is GetByID inside the caller's transaction, so the schedule
// data used for capacity checks and notifications is read from the same
// snapshot as the booking rows.
func (r *ScheduleRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64) (*model.Schedule, error) {
    return r.getByID(ctx, tx, id)
}

func (r *ScheduleRepo) getByID(ctx context.Context, q querier, id uint64) (*model.Schedule, error) {
    s, err := scanSchedule(q.QueryRowContext(ctx, scheduleSelect+` WHERE s.id = ?`, id))
    if errors.Is(err, sql.ErrNoRows) {
        return nil, ErrScheduleNotFound
    }
    if err != nil {
        return nil, err
    }
    return &s, nil
}

// GetMany loads the given schedules keyed by id.  Unknown ids are simply
// absent from the result.
func (r *ScheduleRepo) GetMany(ctx context.Context, ids []uint64) (map[uint64]model.Schedule, error) {
    out := make(map[uint64]model.Schedule, len(ids))
    if len(ids) == 0 {
        return out, nil
    }
    args := make([]interface{}, len(ids))
    for i, id := range ids {
        args[i] = id
    }
    q := fmt.Sprintf("%s WHERE s.id IN (%s)", scheduleSelect, placeholders(len(ids)))
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    for rows.Next() {
        s, err := scanSchedule(rows)
        if err != nil {
            return nil, err
        }
        out[s.ID] = s
    }
    return out, rows.Err()
}
