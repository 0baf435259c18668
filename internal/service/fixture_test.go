package service

import (
    "context"
    "regexp"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/go-sql-driver/mysql"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/stretchr/testify/require"

    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/logger"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/metrics"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/model"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/repository"
)

const (
    customer   = uint64(99)
    codePrefix = "BK2505200930AAAA"
)

var (
    clock = func() time.Time { return time.Date(2025, 5, 20, 9, 30, 0, 0, time.UTC) }

    scheduleCols = []string{"id", "bus_id", "route_id", "departure_time", "arrival_time", "price", "is_active", "days_of_week",
        "bus.id", "plate_number", "company_name", "total_seats", "route.id", "origin", "destination"}
    tripCols    = []string{"id", "schedule_id", "trip_date", "departure_time", "arrival_time", "total_seats", "booked_seats", "status", "created_at", "updated_at"}
    bookingCols = []string{"id", "user_id", "trip_id", "schedule_id", "travel_date", "seat_number", "status", "booking_type", "booking_code", "parent_booking_id", "leg_sequence", "return_travel_date", "created_at", "updated_at"}
)

// zeroReader makes every random code segment "AAAA".
type zeroReader struct{}

func (zeroReader) Read(p []byte) (int, error) {
    for i := range p {
        p[i] = 0
    }
    return len(p), nil
}

type fakeNotifier struct {
    confirmed []model.Family
    cancelled [][]model.BookingDetail
    err       error
}

func (n *fakeNotifier) BookingConfirmed(_ context.Context, f model.Family) error {
    n.confirmed = append(n.confirmed, f)
    return n.err
}

func (n *fakeNotifier) BookingCancelled(_ context.Context, c []model.BookingDetail) error {
    n.cancelled = append(n.cancelled, c)
    return n.err
}

type fixture struct {
    t        *testing.T
    mock     sqlmock.Sqlmock
    engine   *Engine
    ledger   *TripLedger
    oracle   *SeatOracle
    notifier *fakeNotifier
    metrics  *metrics.Metrics
}

func newFixture(t *testing.T, txAttempts int) *fixture {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { db.Close() })

    log := logger.NewNop()
    m := metrics.New("test", prometheus.NewRegistry())
    runner := NewTxRunner(db, txAttempts, log, m)
    schedules := repository.NewScheduleRepo(db)
    trips := repository.NewTripRepo(db)
    bookings := repository.NewBookingRepo(db)
    ledger := NewTripLedger(runner, schedules, trips, bookings, 2, log, m)
    ledger.now = clock
    oracle := NewSeatOracle(schedules, trips, bookings, nil, log)
    n := &fakeNotifier{}
    e := NewEngine(EngineDeps{
        Tx: runner, Schedules: schedules, Trips: trips, Bookings: bookings,
        Ledger: ledger, Oracle: oracle, Codes: NewCodeGenerator(clock, zeroReader{}),
        Notifier: n, Log: log, Metrics: m, MaxLegs: 4,
    })
    e.now = clock
    return &fixture{t: t, mock: mock, engine: e, ledger: ledger, oracle: oracle, notifier: n, metrics: m}
}

func date(s string) time.Time {
    d, err := model.ParseDate(s)
    if err != nil {
        panic(err)
    }
    return d
}

func (f *fixture) done() {
    f.t.Helper()
    require.NoError(f.t, f.mock.ExpectationsWereMet())
}

type schedRow struct {
    id       uint64
    seats    int
    price    string
    inactive bool
    days     string
}

func (f *fixture) expectSchedule(s schedRow) {
    if s.seats == 0 {
        s.seats = 40
    }
    if s.price == "" {
        s.price = "15.50"
    }
    active := 1
    if s.inactive {
        active = 0
    }
    f.mock.ExpectQuery(regexp.QuoteMeta("WHERE s.id = ?")).WithArgs(s.id).
        WillReturnRows(sqlmock.NewRows(scheduleCols).AddRow(
            s.id, 10, 20, "08:00:00", "12:30:00", s.price, active, s.days,
            10, "RAC 123A", "Volcano Express", s.seats, 20, "Kigali", "Huye"))
}

func tripRows(id, scheduleID uint64, day string, booked int, status string) *sqlmock.Rows {
    d := date(day)
    return sqlmock.NewRows(tripCols).AddRow(id, scheduleID, d, "08:00:00", "12:30:00", 40, booked, status, d, d)
}

// expectTripFound scripts the locking (schedule, date) lookup hitting an
// existing trip.
func (f *fixture) expectTripFound(id, scheduleID uint64, day string, status string) {
    f.mock.ExpectQuery(regexp.QuoteMeta("WHERE schedule_id = ? AND trip_date = ? FOR UPDATE")).
        WithArgs(scheduleID, day).WillReturnRows(tripRows(id, scheduleID, day, 0, status))
}

// expectTripCreated scripts a missing trip followed by its insert.
func (f *fixture) expectTripCreated(id, scheduleID uint64, day string) {
    f.mock.ExpectQuery(regexp.QuoteMeta("WHERE schedule_id = ? AND trip_date = ? FOR UPDATE")).
        WithArgs(scheduleID, day).WillReturnRows(sqlmock.NewRows(tripCols))
    f.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO trips")).
        WithArgs(scheduleID, day, "08:00:00", "12:30:00", 40, 0, "scheduled").
        WillReturnResult(sqlmock.NewResult(int64(id), 1))
}

func (f *fixture) expectSeat(scheduleID uint64, day string, seat int, held bool) {
    rows := sqlmock.NewRows([]string{"id"})
    if held {
        rows.AddRow(1)
    }
    f.mock.ExpectQuery(regexp.QuoteMeta("AND seat_number = ? AND status IN (?, ?) LIMIT 1 FOR UPDATE")).
        WithArgs(scheduleID, day, seat, "confirmed", "completed").WillReturnRows(rows)
}

type insertRow struct {
    id         uint64
    trip       uint64
    schedule   uint64
    day        string
    seat       int
    typ        string
    parent     interface{}
    legSeq     interface{}
    returnDate interface{}
}

func (f *fixture) expectInsert(r insertRow, code string) {
    f.mock.ExpectExec(regexp.QuoteMeta("INSERT INTO bookings")).
        WithArgs(customer, r.trip, r.schedule, r.day, r.seat, "confirmed", r.typ, sqlmock.AnyArg(), r.parent, r.legSeq, r.returnDate).
        WillReturnResult(sqlmock.NewResult(int64(r.id), 1))
    f.mock.ExpectExec(regexp.QuoteMeta("UPDATE bookings SET booking_code = ? WHERE id = ?")).
        WithArgs(code, r.id).WillReturnResult(sqlmock.NewResult(0, 1))
}

func (f *fixture) expectRecompute(tripID uint64, count int) {
    f.mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM bookings WHERE trip_id = ?")).
        WithArgs(tripID, "confirmed", "completed").
        WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(count))
    f.mock.ExpectExec(regexp.QuoteMeta("UPDATE trips SET booked_seats = ? WHERE id = ?")).
        WithArgs(count, tripID).WillReturnResult(sqlmock.NewResult(0, 1))
}

func (f *fixture) expectTripLock(id, scheduleID uint64, day string) {
    f.mock.ExpectQuery(regexp.QuoteMeta("FROM trips WHERE id = ? FOR UPDATE")).
        WithArgs(id).WillReturnRows(tripRows(id, scheduleID, day, 1, "scheduled"))
}

type bookingRow struct {
    id       uint64
    user     uint64
    trip     interface{}
    schedule uint64
    day      string
    seat     int
    status   string
    typ      string
    code     string
    parent   interface{}
    legSeq   interface{}
}

func (b bookingRow) rows() *sqlmock.Rows {
    d := date(b.day)
    return sqlmock.NewRows(bookingCols).AddRow(b.id, b.user, b.trip, b.schedule, d, b.seat, b.status, b.typ, b.code, b.parent, b.legSeq, nil, d, d)
}

func legRows(legs ...bookingRow) *sqlmock.Rows {
    rows := sqlmock.NewRows(bookingCols)
    for _, b := range legs {
        d := date(b.day)
        rows.AddRow(b.id, b.user, b.trip, b.schedule, d, b.seat, b.status, b.typ, b.code, b.parent, b.legSeq, nil, d, d)
    }
    return rows
}

func (f *fixture) expectByCode(b bookingRow) {
    f.mock.ExpectQuery(regexp.QuoteMeta("WHERE b.booking_code = ?")).WithArgs(b.code).WillReturnRows(b.rows())
}

func (f *fixture) expectByID(b bookingRow, lock bool) {
    q := "WHERE b.id = ?"
    if lock {
        q += " FOR UPDATE"
    }
    f.mock.ExpectQuery(regexp.QuoteMeta(q)).WithArgs(b.id).WillReturnRows(b.rows())
}

func deadlock() error {
    return &mysql.MySQLError{Number: repository.ErrNumDeadlock, Message: "Deadlock found when trying to get lock; try restarting transaction"}
}

func duplicateOn(index string) error {
    return &mysql.MySQLError{Number: repository.ErrNumDuplicateEntry, Message: "Duplicate entry 'x' for key '" + index + "'"}
}
