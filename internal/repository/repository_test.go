package repository

import (
    "context"
    "database/sql"
    "regexp"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/shopspring/decimal"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/model"
)

var (
    tripCols    = []string{"id", "schedule_id", "trip_date", "departure_time", "arrival_time", "total_seats", "booked_seats", "status", "created_at", "updated_at"}
    bookingCols = []string{"id", "user_id", "trip_id", "schedule_id", "travel_date", "seat_number", "status", "booking_type", "booking_code", "parent_booking_id", "leg_sequence", "return_travel_date", "created_at", "updated_at"}
    day         = time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
)

func newMockTx(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *sql.Tx) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { db.Close() })
    mock.ExpectBegin()
    tx, err := db.Begin()
    require.NoError(t, err)
    return db, mock, tx
}

func TestScheduleGetByIDNotFound(t *testing.T) {
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    defer db.Close()

    mock.ExpectQuery(regexp.QuoteMeta("WHERE s.id = ?")).WithArgs(9).WillReturnError(sql.ErrNoRows)

    _, err = NewScheduleRepo(db).GetByID(context.Background(), 9)
    assert.ErrorIs(t, err, ErrScheduleNotFound)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleGetMany(t *testing.T) {
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    defer db.Close()

    rows := sqlmock.NewRows([]string{"id", "bus_id", "route_id", "departure_time", "arrival_time", "price", "is_active", "days_of_week",
        "b.id", "plate_number", "company_name", "total_seats", "r.id", "origin", "destination"}).
        AddRow(1, 10, 20, "08:00:00", "12:30:00", "15.50", 1, "", 10, "RAC 123A", "Volcano", 40, 20, "Kigali", "Huye")
    mock.ExpectQuery(regexp.QuoteMeta("WHERE s.id IN (?, ?)")).WithArgs(1, 2).WillReturnRows(rows)

    got, err := NewScheduleRepo(db).GetMany(context.Background(), []uint64{1, 2})
    require.NoError(t, err)
    require.Len(t, got, 1)
    s := got[1]
    assert.True(t, s.IsActive)
    assert.Equal(t, 40, s.Bus.TotalSeats)
    assert.Equal(t, "Huye", s.Route.Destination)
    assert.True(t, decimal.RequireFromString("15.5").Equal(s.Price))
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTripGetByScheduleDateLocks(t *testing.T) {
    _, mock, tx := newMockTx(t)
    repo := NewTripRepo(nil)

    mock.ExpectQuery(regexp.QuoteMeta("WHERE schedule_id = ? AND trip_date = ? FOR UPDATE")).
        WithArgs(7, "2025-06-01").
        WillReturnRows(sqlmock.NewRows(tripCols).
            AddRow(3, 7, day, "08:00:00", "12:30:00", 40, 1, "scheduled", day, day))
    mock.ExpectQuery(regexp.QuoteMeta("WHERE schedule_id = ? AND trip_date = ?")).
        WithArgs(7, "2025-06-02").
        WillReturnRows(sqlmock.NewRows(tripCols))

    trip, err := repo.GetByScheduleDateTx(context.Background(), tx, 7, day, true)
    require.NoError(t, err)
    assert.Equal(t, uint64(3), trip.ID)
    assert.Equal(t, model.TripScheduled, trip.Status)
    assert.Equal(t, 39, trip.AvailableSeats())

    _, err = repo.GetByScheduleDateTx(context.Background(), tx, 7, day.AddDate(0, 0, 1), false)
    assert.ErrorIs(t, err, ErrTripNotFound)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTripCreateSetsID(t *testing.T) {
    _, mock, tx := newMockTx(t)

    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO trips")).
        WithArgs(7, "2025-06-01", "08:00:00", "12:30:00", 40, 0, "scheduled").
        WillReturnResult(sqlmock.NewResult(11, 1))

    trip := &model.Trip{ScheduleID: 7, TripDate: day, DepartureTime: "08:00:00", ArrivalTime: "12:30:00", TotalSeats: 40, Status: model.TripScheduled}
    require.NoError(t, NewTripRepo(nil).CreateTx(context.Background(), tx, trip))
    assert.Equal(t, uint64(11), trip.ID)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeatHeldUsesHoldingStatuses(t *testing.T) {
    _, mock, tx := newMockTx(t)
    repo := NewBookingRepo(nil)
    q := regexp.QuoteMeta("AND seat_number = ? AND status IN (?, ?) LIMIT 1 FOR UPDATE")

    mock.ExpectQuery(q).WithArgs(7, "2025-06-01", 12, "confirmed", "completed").
        WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
    mock.ExpectQuery(q).WithArgs(7, "2025-06-01", 13, "confirmed", "completed").
        WillReturnRows(sqlmock.NewRows([]string{"id"}))

    held, err := repo.SeatHeldTx(context.Background(), tx, 7, day, 12)
    require.NoError(t, err)
    assert.True(t, held)

    held, err = repo.SeatHeldTx(context.Background(), tx, 7, day, 13)
    require.NoError(t, err)
    assert.False(t, held)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCountHoldingByTripLocksShared(t *testing.T) {
    _, mock, tx := newMockTx(t)

    mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bookings WHERE trip_id = ? AND status IN (?, ?) LOCK IN SHARE MODE")).
        WithArgs(3, "confirmed", "completed").
        WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))

    n, err := NewBookingRepo(nil).CountHoldingByTripTx(context.Background(), tx, 3)
    require.NoError(t, err)
    assert.Equal(t, 2, n)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHeldCountsAndSeats(t *testing.T) {
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    defer db.Close()
    repo := NewBookingRepo(db)

    mock.ExpectQuery(regexp.QuoteMeta("schedule_id IN (?, ?)")).
        WithArgs("2025-06-01", 1, 2, "confirmed", "completed").
        WillReturnRows(sqlmock.NewRows([]string{"schedule_id", "count"}).AddRow(2, 5))
    mock.ExpectQuery(regexp.QuoteMeta("ORDER BY seat_number")).
        WithArgs(2, "2025-06-01", "confirmed", "completed").
        WillReturnRows(sqlmock.NewRows([]string{"seat_number"}).AddRow(3).AddRow(9))

    counts, err := repo.HeldCounts(context.Background(), []uint64{1, 2}, day)
    require.NoError(t, err)
    assert.Equal(t, map[uint64]int{2: 5}, counts)

    seats, err := repo.HeldSeats(context.Background(), 2, day)
    require.NoError(t, err)
    assert.Equal(t, []int{3, 9}, seats)
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBookingMapsLegColumns(t *testing.T) {
    _, mock, tx := newMockTx(t)

    mock.ExpectQuery(regexp.QuoteMeta("WHERE b.id = ? FOR UPDATE")).WithArgs(6).
        WillReturnRows(sqlmock.NewRows(bookingCols).
            AddRow(6, 42, 3, 7, day, 5, "confirmed", "round-trip", "BK2506010800ABCD000005-RTN", 5, 2, nil, day, day))
    mock.ExpectQuery(regexp.QuoteMeta("WHERE b.id = ?")).WithArgs(5).
        WillReturnRows(sqlmock.NewRows(bookingCols).
            AddRow(5, 42, nil, 7, day, 5, "cancelled", "one-way", "BK2506010800ABCD000005", nil, nil, nil, day, day))

    repo := NewBookingRepo(nil)
    leg, err := repo.GetByIDTx(context.Background(), tx, 6, true)
    require.NoError(t, err)
    assert.False(t, leg.IsRoot())
    assert.Equal(t, uint64(5), *leg.ParentID())
    assert.Equal(t, 2, *leg.LegSequence)
    assert.Equal(t, uint64(3), *leg.TripID)

    legacy, err := repo.GetByIDTx(context.Background(), tx, 5, false)
    require.NoError(t, err)
    assert.True(t, legacy.IsRoot())
    assert.Nil(t, legacy.TripID)
    assert.False(t, legacy.Status.HoldsSeat())
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateBookingAndFlipStatus(t *testing.T) {
    _, mock, tx := newMockTx(t)
    repo := NewBookingRepo(nil)

    mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
        WithArgs(42, 3, 7, "2025-06-01", 12, "confirmed", "one-way", "tmp", nil, nil, nil).
        WillReturnResult(sqlmock.NewResult(21, 1))
    mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET status = ? WHERE id IN (?, ?)")).
        WithArgs("cancelled", 21, 22).
        WillReturnResult(sqlmock.NewResult(0, 2))

    b := model.NewRoot(42, 3, 7, day, 12, model.BookingOneWay)
    b.Code = "tmp"
    require.NoError(t, repo.CreateTx(context.Background(), tx, &b))
    assert.Equal(t, uint64(21), b.ID)

    require.NoError(t, repo.UpdateStatusTx(context.Background(), tx, model.BookingCancelled, 21, 22))
    require.NoError(t, repo.UpdateStatusTx(context.Background(), tx, model.BookingCancelled))
    assert.NoError(t, mock.ExpectationsWereMet())
}
