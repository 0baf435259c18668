package model

// SeatMap is the seat-level availability of one schedule on one date.
type SeatMap struct {
    ScheduleID     uint64 `json:"schedule_id"`
    TravelDate     string `json:"travel_date"`
    TotalSeats     int    `json:"total_seats"`
    BookedSeats    int    `json:"booked_seats"`
    AvailableSeats int    `json:"available_seats"`
    FreeSeats      []int  `json:"free_seats"`
}

// Availability is the seat count summary of one schedule on one date.
type Availability struct {
    ScheduleID     uint64 `json:"schedule_id"`
    TotalSeats     int    `json:"total_seats"`
    BookedSeats    int    `json:"booked_seats"`
    AvailableSeats int    `json:"available_seats"`
}
