package model

import "time"

// TripStatus is the operational state of a trip.
type TripStatus string

const (
    TripScheduled  TripStatus = "scheduled"
    TripInProgress TripStatus = "in-progress"
    TripCompleted  TripStatus = "completed"
    TripCancelled  TripStatus = "cancelled"
)

// Valid reports whether s is one of the known trip states.
func (s TripStatus) Valid() bool {
    switch s {
    case TripScheduled, TripInProgress, TripCompleted, TripCancelled:
        return true
    }
    return false
}

// CanTransitionTo encodes scheduled → in-progress → completed, with
// cancellation allowed until the trip completes.
func (s TripStatus) CanTransitionTo(next TripStatus) bool {
    switch s {
    case TripScheduled:
        return next == TripInProgress || next == TripCancelled
    case TripInProgress:
        return next == TripCompleted || next == TripCancelled
    }
    return false
}

// Trip materializes one (schedule, calendar date) pair into a bookable
// unit.  Exactly one trip exists per pair.  Clock times and capacity are
// copied from the schedule and its bus when the trip is created, so later
// catalog edits do not alter trips already on sale.
//
// Fields:
//  BookedSeats – cached count of bookings on this trip that hold a seat;
//                rewritten from the bookings table after every change.
type Trip struct {
    ID            uint64     `json:"id"`             // trips.id
    ScheduleID    uint64     `json:"schedule_id"`    // trips.schedule_id
    TripDate      time.Time  `json:"trip_date"`      // trips.trip_date (DATE)
    DepartureTime string     `json:"departure_time"` // trips.departure_time
    ArrivalTime   string     `json:"arrival_time"`   // trips.arrival_time
    TotalSeats    int        `json:"total_seats"`    // trips.total_seats
    BookedSeats   int        `json:"booked_seats"`   // trips.booked_seats
    Status        TripStatus `json:"status"`         // trips.status
    CreatedAt     time.Time  `json:"created_at"`
    UpdatedAt     time.Time  `json:"updated_at"`
}

// AvailableSeats never goes negative even if capacity was lowered after
// seats were sold.
func (t Trip) AvailableSeats() int {
    if n := t.TotalSeats - t.BookedSeats; n > 0 {
        return n
    }
    return 0
}

// Bookable reports whether new seats may be sold on the trip.
func (t Trip) Bookable() bool { return t.Status == TripScheduled }
