package model

import (
    "errors"
    "time"

    "github.com/shopspring/decimal"
)

// BookingStatus is the lifecycle state of one booked seat.
type BookingStatus string

const (
    BookingConfirmed BookingStatus = "confirmed"
    BookingCancelled BookingStatus = "cancelled"
    BookingCompleted BookingStatus = "completed"
)

// HoldingStatuses are the statuses under which a booking occupies its
// seat.  Completed bookings keep their seat so historical occupancy of a
// finished trip stays intact.
var HoldingStatuses = []BookingStatus{BookingConfirmed, BookingCompleted}

func (s BookingStatus) Valid() bool {
    switch s {
    case BookingConfirmed, BookingCancelled, BookingCompleted:
        return true
    }
    return false
}

// HoldsSeat reports whether a booking in this status occupies its seat.
func (s BookingStatus) HoldsSeat() bool {
    for _, h := range HoldingStatuses {
        if s == h {
            return true
        }
    }
    return false
}

// BookingType tells how many legs the booking family has.
type BookingType string

const (
    BookingOneWay    BookingType = "one-way"
    BookingRoundTrip BookingType = "round-trip"
    BookingMultiCity BookingType = "multi-city"
)

// RootRef marks a booking as a leg and points at the root of its family.
type RootRef struct {
    BookingID uint64 `json:"booking_id"`
}

// Booking is one seat on one trip for one passenger.  A booking is either
// a root (Root == nil: a one-way booking or the first leg of a family) or
// a leg (Root != nil) hanging directly off a root.  Families are never
// deeper than one level; NewLeg enforces that.
type Booking struct {
    ID               uint64        `json:"id"`
    UserID           uint64        `json:"user_id"`
    TripID           *uint64       `json:"trip_id,omitempty"` // nil for legacy rows
    ScheduleID       uint64        `json:"schedule_id"`
    TravelDate       time.Time     `json:"travel_date"`
    SeatNumber       int           `json:"seat_number"`
    Status           BookingStatus `json:"status"`
    Type             BookingType   `json:"booking_type"`
    Code             string        `json:"booking_code"`
    Root             *RootRef      `json:"root,omitempty"`
    LegSequence      *int          `json:"leg_sequence,omitempty"`
    ReturnTravelDate *time.Time    `json:"return_travel_date,omitempty"`
    CreatedAt        time.Time     `json:"created_at"`
    UpdatedAt        time.Time     `json:"updated_at"`
}

// ErrNestedLeg is returned when a leg is attached to something other than
// a persisted root booking.
var ErrNestedLeg = errors.New("legs can only be attached to a persisted root booking")

func (b Booking) IsRoot() bool { return b.Root == nil }

// ParentID returns the parent_booking_id column value.
func (b Booking) ParentID() *uint64 {
    if b.Root == nil {
        return nil
    }
    id := b.Root.BookingID
    return &id
}

// NewRoot builds an unsaved confirmed root booking.
func NewRoot(userID uint64, tripID uint64, scheduleID uint64, travelDate time.Time, seat int, typ BookingType) Booking {
    b := Booking{
        UserID:     userID,
        TripID:     &tripID,
        ScheduleID: scheduleID,
        TravelDate: CivilDate(travelDate),
        SeatNumber: seat,
        Status:     BookingConfirmed,
        Type:       typ,
    }
    if typ != BookingOneWay {
        one := 1
        b.LegSequence = &one
    }
    return b
}

// NewLeg builds an unsaved confirmed leg of root at position seq.
func NewLeg(root Booking, tripID uint64, scheduleID uint64, travelDate time.Time, seat int, seq int) (Booking, error) {
    if !root.IsRoot() || root.ID == 0 {
        return Booking{}, ErrNestedLeg
    }
    return Booking{
        UserID:      root.UserID,
        TripID:      &tripID,
        ScheduleID:  scheduleID,
        TravelDate:  CivilDate(travelDate),
        SeatNumber:  seat,
        Status:      BookingConfirmed,
        Type:        root.Type,
        Root:        &RootRef{BookingID: root.ID},
        LegSequence: &seq,
    }, nil
}

// BookingDetail is a booking joined with its schedule, bus and route, the
// shape handed to clients and to the notification collaborator.
type BookingDetail struct {
    Booking
    Origin        string          `json:"origin"`
    Destination   string          `json:"destination"`
    DepartureTime string          `json:"departure_time"`
    ArrivalTime   string          `json:"arrival_time"`
    Price         decimal.Decimal `json:"price"`
    BusPlate      string          `json:"bus_plate"`
    CompanyName   string          `json:"company_name"`
}

// DetailFrom joins b with an already loaded schedule.
func DetailFrom(b Booking, s Schedule) BookingDetail {
    return BookingDetail{
        Booking:       b,
        Origin:        s.Route.Origin,
        Destination:   s.Route.Destination,
        DepartureTime: s.DepartureTime,
        ArrivalTime:   s.ArrivalTime,
        Price:         s.Price,
        BusPlate:      s.Bus.PlateNumber,
        CompanyName:   s.Bus.CompanyName,
    }
}

// Family is a root booking and its legs, ordered by leg sequence.
type Family struct {
    Root       BookingDetail   `json:"root"`
    Legs       []BookingDetail `json:"legs"`
    TotalPrice decimal.Decimal `json:"total_price"`
}

// All returns root followed by legs.
func (f Family) All() []BookingDetail {
    out := make([]BookingDetail, 0, 1+len(f.Legs))
    out = append(out, f.Root)
    return append(out, f.Legs...)
}
