package service

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "sort"
    "time"

    "github.com/shopspring/decimal"

    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/logger"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/metrics"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/model"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/repository"
)

// Notifier receives committed booking changes.  Calls happen after commit
// and their errors never reach the caller of the engine.
type Notifier interface {
    BookingConfirmed(ctx context.Context, f model.Family) error
    BookingCancelled(ctx context.Context, cancelled []model.BookingDetail) error
}

// LegRequest asks for one seat on one schedule/date.  Sequence orders the
// legs of a multi-city request and is ignored elsewhere.
type LegRequest struct {
    ScheduleID uint64
    TravelDate time.Time
    SeatNumber int
    Sequence   int
}

// EngineDeps wires an Engine.  Notifier, Cache and Metrics may be nil.
type EngineDeps struct {
    Tx        *TxRunner
    Schedules *repository.ScheduleRepo
    Trips     *repository.TripRepo
    Bookings  *repository.BookingRepo
    Ledger    *TripLedger
    Oracle    *SeatOracle
    Codes     *CodeGenerator
    Notifier  Notifier
    Cache     *SeatMapCache
    Log       logger.Logger
    Metrics   *metrics.Metrics
    MaxLegs   int
}

// Engine creates and cancels bookings.  Every operation is one database
// transaction that locks the affected trip rows first, changes bookings,
// then rewrites the occupancy of every trip it touched.  Nothing is
// committed unless every leg succeeds.
type Engine struct {
    tx        *TxRunner
    schedules *repository.ScheduleRepo
    trips     *repository.TripRepo
    bookings  *repository.BookingRepo
    ledger    *TripLedger
    oracle    *SeatOracle
    codes     *CodeGenerator
    notifier  Notifier
    cache     *SeatMapCache
    log       logger.Logger
    metrics   *metrics.Metrics
    maxLegs   int
    now       func() time.Time
}

func NewEngine(d EngineDeps) *Engine {
    if d.MaxLegs < 2 {
        d.MaxLegs = 2
    }
    return &Engine{
        tx: d.Tx, schedules: d.Schedules, trips: d.Trips, bookings: d.Bookings,
        ledger: d.Ledger, oracle: d.Oracle, codes: d.Codes, notifier: d.Notifier,
        cache: d.Cache, log: d.Log, metrics: d.Metrics, maxLegs: d.MaxLegs, now: time.Now,
    }
}

// CreateSingleBooking books one seat as a one-way booking.
func (e *Engine) CreateSingleBooking(ctx context.Context, userID, scheduleID uint64, date time.Time, seat int) (_ *model.BookingDetail, err error) {
    const op = "create_single"
    defer e.observe(op, time.Now(), &err)

    req := LegRequest{ScheduleID: scheduleID, TravelDate: model.CivilDate(date), SeatNumber: seat, Sequence: 1}
    fam, err := e.createFamily(ctx, op, userID, model.BookingOneWay, []LegRequest{req})
    if err != nil {
        return nil, err
    }
    return &fam.Root, nil
}

// CreateRoundTripBooking books an outbound seat and a return seat as one
// family: the outbound leg is the root and the return leg gets the -RTN
// code.  The return date must be strictly after the outbound date.
func (e *Engine) CreateRoundTripBooking(ctx context.Context, userID uint64, outbound, ret LegRequest) (_ *model.Family, err error) {
    const op = "create_round_trip"
    defer e.observe(op, time.Now(), &err)

    outbound.TravelDate = model.CivilDate(outbound.TravelDate)
    ret.TravelDate = model.CivilDate(ret.TravelDate)
    if !ret.TravelDate.After(outbound.TravelDate) {
        return nil, fmt.Errorf("%w: outbound %s, return %s", ErrInvalidDateOrder,
            model.FormatDate(outbound.TravelDate), model.FormatDate(ret.TravelDate))
    }
    outbound.Sequence, ret.Sequence = 1, 2
    return e.createFamily(ctx, op, userID, model.BookingRoundTrip, []LegRequest{outbound, ret})
}

// CreateMultiCityBooking books two or more legs ordered by Sequence.
// Travel dates must not decrease along that order; legs are numbered
// 1..N by their position and legs 2..N get -L<n> codes.
func (e *Engine) CreateMultiCityBooking(ctx context.Context, userID uint64, legs []LegRequest) (_ *model.Family, err error) {
    const op = "create_multi_city"
    defer e.observe(op, time.Now(), &err)

    ordered, err := e.orderLegs(legs)
    if err != nil {
        return nil, err
    }
    return e.createFamily(ctx, op, userID, model.BookingMultiCity, ordered)
}

// orderLegs validates a multi-city request and returns its legs in travel
// order.  Nothing here touches the database.
func (e *Engine) orderLegs(legs []LegRequest) ([]LegRequest, error) {
    if len(legs) < 2 {
        return nil, fmt.Errorf("%w: need at least 2 legs, got %d", ErrInvalidLegs, len(legs))
    }
    if len(legs) > e.maxLegs {
        return nil, fmt.Errorf("%w: at most %d legs, got %d", ErrInvalidLegs, e.maxLegs, len(legs))
    }
    ordered := make([]LegRequest, len(legs))
    copy(ordered, legs)
    sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Sequence < ordered[j].Sequence })

    type seatRef struct {
        schedule uint64
        date     string
        seat     int
    }
    seats := make(map[seatRef]int, len(ordered))
    for i := range ordered {
        ordered[i].TravelDate = model.CivilDate(ordered[i].TravelDate)
        if i > 0 && ordered[i].Sequence == ordered[i-1].Sequence {
            return nil, fmt.Errorf("%w: sequence %d used twice", ErrInvalidLegs, ordered[i].Sequence)
        }
        if i > 0 && ordered[i].TravelDate.Before(ordered[i-1].TravelDate) {
            return nil, legErr(i+1, fmt.Errorf("%w: %s is before %s", ErrChronologyViolation,
                model.FormatDate(ordered[i].TravelDate), model.FormatDate(ordered[i-1].TravelDate)))
        }
        ref := seatRef{ordered[i].ScheduleID, model.FormatDate(ordered[i].TravelDate), ordered[i].SeatNumber}
        if prev, dup := seats[ref]; dup {
            return nil, legErr(i+1, fmt.Errorf("%w: same seat as leg %d", ErrSeatUnavailable, prev))
        }
        seats[ref] = i + 1
    }
    return ordered, nil
}

// plannedLeg is a leg whose schedule, trip and seat have been checked and
// whose trip row is locked.
type plannedLeg struct {
    req   LegRequest
    sched *model.Schedule
    trip  *model.Trip
}

// createFamily runs the whole booking of reqs (already in travel order) in
// one transaction.  Every leg is checked before anything is inserted.
func (e *Engine) createFamily(ctx context.Context, op string, userID uint64, typ model.BookingType, reqs []LegRequest) (*model.Family, error) {
    wrap := func(leg int, err error) error {
        if len(reqs) == 1 {
            return err
        }
        return legErr(leg, err)
    }

    var fam model.Family
    err := e.tx.Run(ctx, op, func(tx *sql.Tx) error {
        planned := make([]plannedLeg, len(reqs))
        for i, req := range reqs {
            p, err := e.planLegTx(ctx, tx, req)
            if err != nil {
                return wrap(i+1, err)
            }
            planned[i] = *p
        }

        now := e.now().UTC()
        first := planned[0]
        root := model.NewRoot(userID, first.trip.ID, first.sched.ID, first.req.TravelDate, first.req.SeatNumber, typ)
        if typ == model.BookingRoundTrip {
            rd := planned[1].req.TravelDate
            root.ReturnTravelDate = &rd
        }
        root.CreatedAt, root.UpdatedAt = now, now
        if err := e.persistTx(ctx, tx, &root, e.codes.Generate); err != nil {
            return wrap(1, err)
        }

        fam = model.Family{Root: model.DetailFrom(root, *first.sched), TotalPrice: first.sched.Price}
        touched := []model.Booking{root}
        for i, p := range planned[1:] {
            pos := i + 2
            leg, err := model.NewLeg(root, p.trip.ID, p.sched.ID, p.req.TravelDate, p.req.SeatNumber, pos)
            if err != nil {
                return err
            }
            leg.CreatedAt, leg.UpdatedAt = now, now
            code := LegCode(root.Code, pos)
            if typ == model.BookingRoundTrip {
                code = ReturnLegCode(root.Code)
            }
            if err := e.persistTx(ctx, tx, &leg, func(uint64) (string, error) { return code, nil }); err != nil {
                return wrap(pos, err)
            }
            fam.Legs = append(fam.Legs, model.DetailFrom(leg, *p.sched))
            fam.TotalPrice = fam.TotalPrice.Add(p.sched.Price)
            touched = append(touched, leg)
        }
        return e.recomputeTx(ctx, tx, touched)
    })
    if err != nil {
        return nil, e.failed(err)
    }

    e.metrics.BookingCreated(string(typ))
    e.invalidate(ctx, fam.All())
    e.log.Info("booking created", "op", op, "user_id", userID, "code", fam.Root.Code, "legs", 1+len(fam.Legs))
    if e.notifier != nil {
        if nerr := e.notifier.BookingConfirmed(ctx, fam); nerr != nil {
            e.metrics.NotificationFailure("confirmed")
            e.log.Error("booking confirmation notification failed", "code", fam.Root.Code, "error", nerr)
        }
    }
    return &fam, nil
}

// planLegTx validates one leg against its schedule, resolves and locks its
// trip, and checks the seat under that lock.
func (e *Engine) planLegTx(ctx context.Context, tx *sql.Tx, req LegRequest) (*plannedLeg, error) {
    sched, err := e.schedules.GetByIDTx(ctx, tx, req.ScheduleID)
    if err != nil {
        return nil, notFound(err)
    }
    if !sched.IsActive {
        return nil, fmt.Errorf("%w: schedule %d is not active", ErrNotFound, sched.ID)
    }
    if !sched.OperatesOn(req.TravelDate) {
        return nil, fmt.Errorf("%w: schedule %d on %s", ErrScheduleNotOperating, sched.ID, req.TravelDate.Weekday())
    }
    if req.SeatNumber < 1 || req.SeatNumber > sched.Bus.TotalSeats {
        return nil, fmt.Errorf("%w: seat %d, bus has %d", ErrInvalidSeat, req.SeatNumber, sched.Bus.TotalSeats)
    }

    trip, err := e.ledger.ResolveOrCreateTripTx(ctx, tx, sched, req.TravelDate, true)
    if err != nil {
        return nil, err
    }
    if !trip.Bookable() {
        return nil, fmt.Errorf("%w: trip %d is %s", ErrTripNotBookable, trip.ID, trip.Status)
    }

    free, err := e.oracle.IsSeatFreeTx(ctx, tx, sched.ID, req.TravelDate, req.SeatNumber)
    if err != nil {
        return nil, err
    }
    if !free {
        return nil, fmt.Errorf("%w: seat %d on %s", ErrSeatUnavailable, req.SeatNumber, model.FormatDate(req.TravelDate))
    }
    return &plannedLeg{req: req, sched: sched, trip: trip}, nil
}

// persistTx inserts b under a temporary code, then replaces the code with
// codeFor(id).  A duplicate on the seat index means another transaction
// took the seat first.
func (e *Engine) persistTx(ctx context.Context, tx *sql.Tx, b *model.Booking, codeFor func(id uint64) (string, error)) error {
    b.Code = temporaryCode()
    if err := e.bookings.CreateTx(ctx, tx, b); err != nil {
        if repository.DuplicateKeyOn(err, repository.UniqueSeat) {
            return fmt.Errorf("%w: seat %d on %s", ErrSeatUnavailable, b.SeatNumber, model.FormatDate(b.TravelDate))
        }
        return err
    }
    code, err := codeFor(b.ID)
    if err != nil {
        return err
    }
    if err := e.bookings.SetCodeTx(ctx, tx, b.ID, code); err != nil {
        return err
    }
    b.Code = code
    return nil
}

// CancelBooking cancels the caller's booking with the given code.  When it
// is the root of a family its confirmed legs are cancelled with it.  The
// returned detail is the booking named by code.
func (e *Engine) CancelBooking(ctx context.Context, userID uint64, code string) (_ *model.BookingDetail, err error) {
    const op = "cancel_booking"
    defer e.observe(op, time.Now(), &err)

    var cancelled []model.BookingDetail
    err = e.tx.Run(ctx, op, func(tx *sql.Tx) error {
        b, err := e.ownedByCodeTx(ctx, tx, userID, code)
        if err != nil {
            return err
        }
        cancelled, err = e.cancelTx(ctx, tx, b)
        return err
    })
    if err != nil {
        return nil, err
    }
    e.afterCancel(ctx, cancelled)
    return &cancelled[0], nil
}

// CancelComplexBooking cancels a whole round-trip or multi-city family.
// code may name the root or any leg; the root and all its confirmed legs
// are cancelled.
func (e *Engine) CancelComplexBooking(ctx context.Context, userID uint64, code string) (_ []model.BookingDetail, err error) {
    const op = "cancel_family"
    defer e.observe(op, time.Now(), &err)

    var cancelled []model.BookingDetail
    err = e.tx.Run(ctx, op, func(tx *sql.Tx) error {
        b, err := e.ownedByCodeTx(ctx, tx, userID, code)
        if err != nil {
            return err
        }
        if !b.IsRoot() {
            if b, err = e.bookings.GetByIDTx(ctx, tx, b.Root.BookingID, false); err != nil {
                return notFound(err)
            }
        }
        cancelled, err = e.cancelTx(ctx, tx, b)
        return err
    })
    if err != nil {
        return nil, err
    }
    e.afterCancel(ctx, cancelled)
    return cancelled, nil
}

// UpdateBookingStatus is the operational status change.  confirmed →
// completed keeps the seat held; confirmed → cancelled frees it and, on a
// root, cancels the confirmed legs too.  Bookings already cancelled or
// completed cannot change.
func (e *Engine) UpdateBookingStatus(ctx context.Context, id uint64, status model.BookingStatus) (_ *model.BookingDetail, err error) {
    const op = "update_booking_status"
    defer e.observe(op, time.Now(), &err)

    if !status.Valid() {
        return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
    }
    var (
        detail    model.BookingDetail
        cancelled []model.BookingDetail
    )
    err = e.tx.Run(ctx, op, func(tx *sql.Tx) error {
        cancelled = nil
        b, err := e.bookings.GetByIDTx(ctx, tx, id, false)
        if err != nil {
            return notFound(err)
        }
        if err := openStatus(b.Status); err != nil {
            return err
        }
        switch status {
        case model.BookingCancelled:
            cancelled, err = e.cancelTx(ctx, tx, b)
            if err != nil {
                return err
            }
            detail = cancelled[0]
            return nil
        case model.BookingCompleted:
            if err := e.lockTrips(ctx, tx, []model.Booking{*b}); err != nil {
                return err
            }
            if b, err = e.bookings.GetByIDTx(ctx, tx, id, true); err != nil {
                return notFound(err)
            }
            if err := openStatus(b.Status); err != nil {
                return err
            }
            if err := e.bookings.UpdateStatusTx(ctx, tx, model.BookingCompleted, b.ID); err != nil {
                return err
            }
            b.Status = model.BookingCompleted
        }
        sched, err := e.schedules.GetByIDTx(ctx, tx, b.ScheduleID)
        if err != nil {
            return notFound(err)
        }
        detail = model.DetailFrom(*b, *sched)
        return nil
    })
    if err != nil {
        return nil, err
    }
    e.log.Info("booking status updated", "booking_id", id, "status", string(status))
    e.afterCancel(ctx, cancelled)
    return &detail, nil
}

// ownedByCodeTx finds a booking by code and hides other users' bookings.
func (e *Engine) ownedByCodeTx(ctx context.Context, tx *sql.Tx, userID uint64, code string) (*model.Booking, error) {
    b, err := e.bookings.FindByCodeTx(ctx, tx, code, false)
    if err != nil {
        return nil, notFound(err)
    }
    if b.UserID != userID {
        return nil, fmt.Errorf("%w: booking", ErrNotFound)
    }
    return b, nil
}

// openStatus rejects changes to bookings that already left confirmed.
func openStatus(s model.BookingStatus) error {
    switch s {
    case model.BookingCancelled:
        return ErrAlreadyCancelled
    case model.BookingCompleted:
        return ErrAlreadyCompleted
    }
    return nil
}

// cancelTx cancels b and, when b is a family root, its confirmed legs.
// Trips are locked first (ascending id), then the bookings are re-read
// under the lock, flipped, and the occupancy of each trip rewritten.
// The first returned detail is b.
func (e *Engine) cancelTx(ctx context.Context, tx *sql.Tx, b *model.Booking) ([]model.BookingDetail, error) {
    if err := openStatus(b.Status); err != nil {
        return nil, err
    }
    family := b.IsRoot() && b.Type != model.BookingOneWay

    affected := []model.Booking{*b}
    if family {
        legs, err := e.bookings.LegsTx(ctx, tx, b.ID, model.BookingConfirmed, false)
        if err != nil {
            return nil, err
        }
        affected = append(affected, legs...)
    }
    if err := e.lockTrips(ctx, tx, affected); err != nil {
        return nil, err
    }

    cur, err := e.bookings.GetByIDTx(ctx, tx, b.ID, true)
    if err != nil {
        return nil, notFound(err)
    }
    if err := openStatus(cur.Status); err != nil {
        return nil, err
    }
    targets := []model.Booking{*cur}
    if family {
        legs, err := e.bookings.LegsTx(ctx, tx, cur.ID, model.BookingConfirmed, true)
        if err != nil {
            return nil, err
        }
        targets = append(targets, legs...)
    }

    ids := make([]uint64, len(targets))
    for i := range targets {
        ids[i] = targets[i].ID
        targets[i].Status = model.BookingCancelled
    }
    if err := e.bookings.UpdateStatusTx(ctx, tx, model.BookingCancelled, ids...); err != nil {
        return nil, err
    }
    if err := e.recomputeTx(ctx, tx, targets); err != nil {
        return nil, err
    }

    schedules := make(map[uint64]*model.Schedule)
    out := make([]model.BookingDetail, 0, len(targets))
    for _, t := range targets {
        s, ok := schedules[t.ScheduleID]
        if !ok {
            if s, err = e.schedules.GetByIDTx(ctx, tx, t.ScheduleID); err != nil {
                return nil, notFound(err)
            }
            schedules[t.ScheduleID] = s
        }
        out = append(out, model.DetailFrom(t, *s))
    }
    return out, nil
}

// tripIDs returns the distinct trips of bs in ascending order.  Legacy
// bookings without a trip are skipped.
func tripIDs(bs []model.Booking) []uint64 {
    seen := make(map[uint64]bool)
    var ids []uint64
    for _, b := range bs {
        if b.TripID != nil && !seen[*b.TripID] {
            seen[*b.TripID] = true
            ids = append(ids, *b.TripID)
        }
    }
    sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
    return ids
}

func (e *Engine) lockTrips(ctx context.Context, tx *sql.Tx, bs []model.Booking) error {
    for _, id := range tripIDs(bs) {
        if _, err := e.trips.GetByIDTx(ctx, tx, id, true); err != nil && !errors.Is(err, repository.ErrTripNotFound) {
            return err
        }
    }
    return nil
}

func (e *Engine) recomputeTx(ctx context.Context, tx *sql.Tx, bs []model.Booking) error {
    for _, id := range tripIDs(bs) {
        if _, err := e.ledger.RecomputeOccupancyTx(ctx, tx, id); err != nil {
            return err
        }
    }
    return nil
}

// ListBookings returns the caller's bookings, newest first.
func (e *Engine) ListBookings(ctx context.Context, userID uint64, limit, offset int) ([]model.BookingDetail, error) {
    if limit <= 0 || limit > 100 {
        limit = 20
    }
    if offset < 0 {
        offset = 0
    }
    out, err := e.bookings.ListByUser(ctx, userID, limit, offset)
    if err != nil {
        return nil, err
    }
    if out == nil {
        out = []model.BookingDetail{}
    }
    return out, nil
}

// GetFamily returns the family of the caller's booking with the given
// code, which may name the root or any leg.
func (e *Engine) GetFamily(ctx context.Context, userID uint64, code string) (*model.Family, error) {
    b, err := e.bookings.FindByCode(ctx, code)
    if err != nil {
        return nil, notFound(err)
    }
    if b.UserID != userID {
        return nil, fmt.Errorf("%w: booking", ErrNotFound)
    }
    rootID := b.ID
    if p := b.ParentID(); p != nil {
        rootID = *p
    }
    details, err := e.bookings.FamilyDetails(ctx, rootID)
    if err != nil {
        return nil, err
    }
    if len(details) == 0 {
        return nil, fmt.Errorf("%w: booking", ErrNotFound)
    }
    fam := &model.Family{Root: details[0], Legs: details[1:], TotalPrice: decimal.Zero}
    for _, d := range details {
        fam.TotalPrice = fam.TotalPrice.Add(d.Price)
    }
    if fam.Legs == nil {
        fam.Legs = []model.BookingDetail{}
    }
    return fam, nil
}

func (e *Engine) afterCancel(ctx context.Context, cancelled []model.BookingDetail) {
    if len(cancelled) == 0 {
        return
    }
    e.metrics.LegsCancelledAdd(len(cancelled))
    e.invalidate(ctx, cancelled)
    e.log.Info("booking cancelled", "code", cancelled[0].Code, "legs", len(cancelled))
    if e.notifier != nil {
        if err := e.notifier.BookingCancelled(ctx, cancelled); err != nil {
            e.metrics.NotificationFailure("cancelled")
            e.log.Error("booking cancellation notification failed", "code", cancelled[0].Code, "error", err)
        }
    }
}

func (e *Engine) invalidate(ctx context.Context, details []model.BookingDetail) {
    keys := make([]SeatKey, 0, len(details))
    for _, d := range details {
        keys = append(keys, SeatKey{ScheduleID: d.ScheduleID, Date: d.TravelDate})
    }
    e.cache.Invalidate(ctx, keys...)
}

func (e *Engine) failed(err error) error {
    if errors.Is(err, ErrSeatUnavailable) {
        e.metrics.SeatConflict()
    }
    return err
}

func (e *Engine) observe(op string, start time.Time, err *error) {
    e.metrics.Observe(op, start, *err)
}
