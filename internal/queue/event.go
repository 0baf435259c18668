// Package queue carries booking notifications over RabbitMQ.  The booking
// core publishes after commit; a consumer hands each event to a Mailer.
package queue

import (
    "time"

    "github.com/google/uuid"
    "github.com/shopspring/decimal"

    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/model"
)

// Queue names double as event kinds.
const (
    QueueBookingConfirmed = "booking.confirmed"
    QueueBookingCancelled = "booking.cancelled"
)

// LegInfo describes one booked seat in an event.
type LegInfo struct {
    BookingID     uint64          `json:"booking_id"`
    BookingCode   string          `json:"booking_code"`
    LegSequence   int             `json:"leg_sequence"`
    ScheduleID    uint64          `json:"schedule_id"`
    TravelDate    string          `json:"travel_date"`
    SeatNumber    int             `json:"seat_number"`
    Origin        string          `json:"origin"`
    Destination   string          `json:"destination"`
    DepartureTime string          `json:"departure_time"`
    ArrivalTime   string          `json:"arrival_time"`
    BusPlate      string          `json:"bus_plate"`
    CompanyName   string          `json:"company_name"`
    Price         decimal.Decimal `json:"price"`
}

// BookingEvent is published when a booking family is confirmed or when one
// or more of its legs are cancelled.  It carries enough for an email
// without querying the primary database.
type BookingEvent struct {
    EventID     string          `json:"event_id"`
    Kind        string          `json:"kind"`
    UserID      uint64          `json:"user_id"`
    BookingType string          `json:"booking_type"`
    FamilyCode  string          `json:"family_code"`
    Legs        []LegInfo       `json:"legs"`
    TotalPrice  decimal.Decimal `json:"total_price"`
    OccurredAt  string          `json:"occurred_at"`
}

func legInfo(d model.BookingDetail, seq int) LegInfo {
    if d.LegSequence != nil {
        seq = *d.LegSequence
    }
    return LegInfo{
        BookingID:     d.ID,
        BookingCode:   d.Code,
        LegSequence:   seq,
        ScheduleID:    d.ScheduleID,
        TravelDate:    model.FormatDate(d.TravelDate),
        SeatNumber:    d.SeatNumber,
        Origin:        d.Origin,
        Destination:   d.Destination,
        DepartureTime: d.DepartureTime,
        ArrivalTime:   d.ArrivalTime,
        BusPlate:      d.BusPlate,
        CompanyName:   d.CompanyName,
        Price:         d.Price,
    }
}

func newEvent(kind string, details []model.BookingDetail, at time.Time) BookingEvent {
    ev := BookingEvent{
        EventID:    uuid.NewString(),
        Kind:       kind,
        TotalPrice: decimal.Zero,
        OccurredAt: at.UTC().Format(time.RFC3339),
    }
    for i, d := range details {
        if i == 0 {
            ev.UserID = d.UserID
            ev.BookingType = string(d.Type)
            ev.FamilyCode = d.Code
        }
        ev.Legs = append(ev.Legs, legInfo(d, i+1))
        ev.TotalPrice = ev.TotalPrice.Add(d.Price)
    }
    return ev
}

// NewConfirmedEvent describes a freshly committed booking family.
func NewConfirmedEvent(f model.Family, at time.Time) BookingEvent {
    ev := newEvent(QueueBookingConfirmed, f.All(), at)
    ev.TotalPrice = f.TotalPrice
    return ev
}

// NewCancelledEvent describes the legs flipped to cancelled by one
// operation.  The first detail names the family.
func NewCancelledEvent(cancelled []model.BookingDetail, at time.Time) BookingEvent {
    return newEvent(QueueBookingCancelled, cancelled, at)
}
