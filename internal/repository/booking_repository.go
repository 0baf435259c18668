package repository

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "time"

    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/model"
)

// BookingRepo persists bookings.  Rows are never deleted; cancellation is
// a status flip.  Which statuses hold a seat is decided once, by
// model.HoldingStatuses, and every query below uses that definition.
type BookingRepo struct {
    db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to the given database.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

// UniqueSeat is the name of the unique key over (schedule_id, travel_date,
// seat_number, seat_hold) that backs seat uniqueness.
const UniqueSeat = "uq_bookings_seat"

const bookingColumns = `b.id, b.user_id, b.trip_id, b.schedule_id, b.travel_date, b.seat_number,
                        b.status, b.booking_type, b.booking_code, b.parent_booking_id,
                        b.leg_sequence, b.return_travel_date, b.created_at, b.updated_at`

const bookingSelect = `SELECT ` + bookingColumns + ` FROM bookings b`

const detailSelect = `SELECT ` + bookingColumns + `,
                             r.origin, r.destination, s.departure_time, s.arrival_time,
                             s.price, bs.plate_number, bs.company_name
                      FROM bookings b
                      JOIN schedules s ON s.id = b.schedule_id
                      JOIN buses bs ON bs.id = s.bus_id
                      JOIN routes r ON r.id = s.route_id`

// bookingScan collects the nullable columns of a bookings row.
type bookingScan struct {
    b          model.Booking
    tripID     sql.NullInt64
    parentID   sql.NullInt64
    legSeq     sql.NullInt64
    returnDate sql.NullTime
}

func (s *bookingScan) dest() []interface{} {
    return []interface{}{
        &s.b.ID, &s.b.UserID, &s.tripID, &s.b.ScheduleID, &s.b.TravelDate, &s.b.SeatNumber,
        &s.b.Status, &s.b.Type, &s.b.Code, &s.parentID,
        &s.legSeq, &s.returnDate, &s.b.CreatedAt, &s.b.UpdatedAt,
    }
}

func (s *bookingScan) booking() model.Booking {
    b := s.b
    if s.tripID.Valid {
        id := uint64(s.tripID.Int64)
        b.TripID = &id
    }
    if s.parentID.Valid {
        b.Root = &model.RootRef{BookingID: uint64(s.parentID.Int64)}
    }
    if s.legSeq.Valid {
        n := int(s.legSeq.Int64)
        b.LegSequence = &n
    }
    if s.returnDate.Valid {
        d := s.returnDate.Time
        b.ReturnTravelDate = &d
    }
    return b
}

func scanBooking(row rowScanner) (*model.Booking, error) {
    var s bookingScan
    if err := row.Scan(s.dest()...); err != nil {
        if errors.Is(err, sql.ErrNoRows) {
            return nil, ErrBookingNotFound
        }
        return nil, err
    }
    b := s.booking()
    return &b, nil
}

func scanDetail(row rowScanner) (model.BookingDetail, error) {
    var s bookingScan
    var d model.BookingDetail
    dest := append(s.dest(),
        &d.Origin, &d.Destination, &d.DepartureTime, &d.ArrivalTime,
        &d.Price, &d.BusPlate, &d.CompanyName)
    if err := row.Scan(dest...); err != nil {
        return d, err
    }
    d.Booking = s.booking()
    return d, nil
}

func collectBookings(rows *sql.Rows) ([]model.Booking, error) {
    defer rows.Close()
    var out []model.Booking
    for rows.Next() {
        b, err := scanBooking(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, *b)
    }
    return out, rows.Err()
}

func collectDetails(rows *sql.Rows) ([]model.BookingDetail, error) {
    defer rows.Close()
    var out []model.BookingDetail
    for rows.Next() {
        d, err := scanDetail(rows)
        if err != nil {
            return nil, err
        }
        out = append(out, d)
    }
    return out, rows.Err()
}

// SeatHeldTx reports whether a seat-holding booking exists for the seat
// triple.  The matching row, or the index gap where it would be, is locked
// FOR UPDATE until the transaction ends.
func (r *BookingRepo) SeatHeldTx(ctx context.Context, tx *sql.Tx, scheduleID uint64, date time.Time, seat int) (bool, error) {
    return r.seatHeld(ctx, tx, scheduleID, date, seat, true)
}

// SeatHeld is the non-locking variant of SeatHeldTx, good only as a hint.
func (r *BookingRepo) SeatHeld(ctx context.Context, scheduleID uint64, date time.Time, seat int) (bool, error) {
    return r.seatHeld(ctx, r.db, scheduleID, date, seat, false)
}

func (r *BookingRepo) seatHeld(ctx context.Context, q querier, scheduleID uint64, date time.Time, seat int, lock bool) (bool, error) {
    hold, hargs := holdingIn("status")
    query := `SELECT id FROM bookings WHERE schedule_id = ? AND travel_date = ? AND seat_number = ? AND ` +
        hold + ` LIMIT 1` + lockClause(lock)
    args := append([]interface{}{scheduleID, model.FormatDate(date), seat}, hargs...)
    var id uint64
    err := q.QueryRowContext(ctx, query, args...).Scan(&id)
    if errors.Is(err, sql.ErrNoRows) {
        return false, nil
    }
    if err != nil {
        return false, err
    }
    return true, nil
}

// HeldSeats returns the seat numbers held on (scheduleID, date) in
// ascending order.
func (r *BookingRepo) HeldSeats(ctx context.Context, scheduleID uint64, date time.Time) ([]int, error) {
    hold, hargs := holdingIn("status")
    q := `SELECT seat_number FROM bookings WHERE schedule_id = ? AND travel_date = ? AND ` +
        hold + ` ORDER BY seat_number`
    args := append([]interface{}{scheduleID, model.FormatDate(date)}, hargs...)
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    var seats []int
    for rows.Next() {
        var n int
        if err := rows.Scan(&n); err != nil {
            return nil, err
        }
        seats = append(seats, n)
    }
    return seats, rows.Err()
}

// HeldCounts returns the number of held seats per schedule on one date.
// Schedules with no held seat are absent from the map.
func (r *BookingRepo) HeldCounts(ctx context.Context, scheduleIDs []uint64, date time.Time) (map[uint64]int, error) {
    out := make(map[uint64]int, len(scheduleIDs))
    if len(scheduleIDs) == 0 {
        return out, nil
    }
    hold, hargs := holdingIn("status")
    q := fmt.Sprintf(`SELECT schedule_id, COUNT(*) FROM bookings
                      WHERE travel_date = ? AND schedule_id IN (%s) AND %s
                      GROUP BY schedule_id`, placeholders(len(scheduleIDs)), hold)
    args := []interface{}{model.FormatDate(date)}
    for _, id := range scheduleIDs {
        args = append(args, id)
    }
    args = append(args, hargs...)
    rows, err := r.db.QueryContext(ctx, q, args...)
    if err != nil {
        return nil, err
    }
    defer rows.Close()
    for rows.Next() {
        var id uint64
        var n int
        if err := rows.Scan(&id, &n); err != nil {
            return nil, err
        }
        out[id] = n
    }
    return out, rows.Err()
}

// CountHoldingByTripTx counts the seat-holding bookings of a trip with a
// locking read, so the count cannot go stale before the transaction
// writes it to trips.booked_seats.
func (r *BookingRepo) CountHoldingByTripTx(ctx context.Context, tx *sql.Tx, tripID uint64) (int, error) {
    hold, hargs := holdingIn("status")
    q := `SELECT COUNT(*) FROM bookings WHERE trip_id = ? AND ` + hold + ` LOCK IN SHARE MODE`
    var n int
    err := tx.QueryRowContext(ctx, q, append([]interface{}{tripID}, hargs...)...).Scan(&n)
    return n, err
}

// CreateTx inserts b and fills in its generated ID.  b.Code must already
// be unique; the engine inserts a temporary code and replaces it with
// SetCodeTx once the id is known.  A duplicate key on UniqueSeat means the
// seat was taken concurrently.
func (r *BookingRepo) CreateTx(ctx context.Context, tx *sql.Tx, b *model.Booking) error {
    const q = `INSERT INTO bookings (user_id, trip_id, schedule_id, travel_date, seat_number, status,
                                     booking_type, booking_code, parent_booking_id, leg_sequence, return_travel_date)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
    var returnDate interface{}
    if b.ReturnTravelDate != nil {
        returnDate = model.FormatDate(*b.ReturnTravelDate)
    }
    var legSeq interface{}
    if b.LegSequence != nil {
        legSeq = *b.LegSequence
    }
    var tripID interface{}
    if b.TripID != nil {
        tripID = *b.TripID
    }
    var parentID interface{}
    if p := b.ParentID(); p != nil {
        parentID = *p
    }
    res, err := tx.ExecContext(ctx, q,
        b.UserID, tripID, b.ScheduleID, model.FormatDate(b.TravelDate), b.SeatNumber, string(b.Status),
        string(b.Type), b.Code, parentID, legSeq, returnDate)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    b.ID = uint64(id)
    return nil
}

// SetCodeTx replaces the booking code of one row.
func (r *BookingRepo) SetCodeTx(ctx context.Context, tx *sql.Tx, id uint64, code string) error {
    _, err := tx.ExecContext(ctx, `UPDATE bookings SET booking_code = ? WHERE id = ?`, code, id)
    return err
}

// UpdateStatusTx flips the status of the given bookings.
func (r *BookingRepo) UpdateStatusTx(ctx context.Context, tx *sql.Tx, status model.BookingStatus, ids ...uint64) error {
    if len(ids) == 0 {
        return nil
    }
    args := []interface{}{string(status)}
    for _, id := range ids {
        args = append(args, id)
    }
    q := fmt.Sprintf(`UPDATE bookings SET status = ? WHERE id IN (%s)`, placeholders(len(ids)))
    _, err := tx.ExecContext(ctx, q, args...)
    return err
}

// FindByCodeTx returns the booking with the given code.
func (r *BookingRepo) FindByCodeTx(ctx context.Context, tx *sql.Tx, code string, lock bool) (*model.Booking, error) {
    return scanBooking(tx.QueryRowContext(ctx, bookingSelect+` WHERE b.booking_code = ?`+lockClause(lock), code))
}

// FindByCode is FindByCodeTx outside a transaction.
func (r *BookingRepo) FindByCode(ctx context.Context, code string) (*model.Booking, error) {
    return scanBooking(r.db.QueryRowContext(ctx, bookingSelect+` WHERE b.booking_code = ?`, code))
}

// GetByIDTx returns the booking with the given id.
func (r *BookingRepo) GetByIDTx(ctx context.Context, tx *sql.Tx, id uint64, lock bool) (*model.Booking, error) {
    return scanBooking(tx.QueryRowContext(ctx, bookingSelect+` WHERE b.id = ?`+lockClause(lock), id))
}

// LegsTx returns the legs of a root booking that are in the given status,
// ordered by leg sequence.
func (r *BookingRepo) LegsTx(ctx context.Context, tx *sql.Tx, rootID uint64, status model.BookingStatus, lock bool) ([]model.Booking, error) {
    q := bookingSelect + ` WHERE b.parent_booking_id = ? AND b.status = ? ORDER BY b.leg_sequence, b.id` + lockClause(lock)
    rows, err := tx.QueryContext(ctx, q, rootID, string(status))
    if err != nil {
        return nil, err
    }
    return collectBookings(rows)
}

// ListByUser returns a user's bookings, newest first, joined with
// schedule, bus and route.
func (r *BookingRepo) ListByUser(ctx context.Context, userID uint64, limit, offset int) ([]model.BookingDetail, error) {
    q := detailSelect + ` WHERE b.user_id = ? ORDER BY b.created_at DESC, b.id DESC LIMIT ? OFFSET ?`
    rows, err := r.db.QueryContext(ctx, q, userID, limit, offset)
    if err != nil {
        return nil, err
    }
    return collectDetails(rows)
}

// FamilyDetails returns a root booking and all its legs, root first then
// legs by sequence, joined with schedule, bus and route.
func (r *BookingRepo) FamilyDetails(ctx context.Context, rootID uint64) ([]model.BookingDetail, error) {
    q := detailSelect + ` WHERE b.id = ? OR b.parent_booking_id = ?
                          ORDER BY b.parent_booking_id IS NOT NULL, b.leg_sequence, b.id`
    rows, err := r.db.QueryContext(ctx, q, rootID, rootID)
    if err != nil {
        return nil, err
    }
    return collectDetails(rows)
}
