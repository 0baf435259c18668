package model

import (
    "strconv"
    "strings"
    "time"

    "github.com/shopspring/decimal"
)

// Bus is a physical vehicle.  TotalSeats bounds the seat numbers that can
// be sold on any trip it serves.
type Bus struct {
    ID          uint64 `json:"id"`           // buses.id
    PlateNumber string `json:"plate_number"` // buses.plate_number
    CompanyName string `json:"company_name"` // buses.company_name
    TotalSeats  int    `json:"total_seats"`  // buses.total_seats
}

// Route is an origin/destination pair.
type Route struct {
    ID          uint64 `json:"id"`          // routes.id
    Origin      string `json:"origin"`      // routes.origin
    Destination string `json:"destination"` // routes.destination
}

// Schedule is a recurring departure template: a bus on a route at a clock
// time for a price.  The booking core reads schedules but never writes them.
//
// Fields:
//  DepartureTime / ArrivalTime – clock times ("15:04:05"), no date part.
//  DaysOfWeek – comma separated weekdays the schedule runs ("mon,wed,fri"
//               or "1,3,5" with Sunday as 0).  Empty means every day.
type Schedule struct {
    ID            uint64          `json:"id"`
    BusID         uint64          `json:"bus_id"`
    RouteID       uint64          `json:"route_id"`
    DepartureTime string          `json:"departure_time"`
    ArrivalTime   string          `json:"arrival_time"`
    Price         decimal.Decimal `json:"price"`
    IsActive      bool            `json:"is_active"`
    DaysOfWeek    string          `json:"days_of_week"`
    Bus           Bus             `json:"bus"`
    Route         Route           `json:"route"`
}

var weekdayNames = map[string]time.Weekday{
    "sun": time.Sunday, "mon": time.Monday, "tue": time.Tuesday, "wed": time.Wednesday,
    "thu": time.Thursday, "fri": time.Friday, "sat": time.Saturday,
}

// OperatesOn reports whether the schedule runs on the weekday of d.
// Unparseable entries are ignored.
func (s Schedule) OperatesOn(d time.Time) bool {
    days := strings.TrimSpace(s.DaysOfWeek)
    if days == "" {
        return true
    }
    want := d.Weekday()
    for _, part := range strings.Split(days, ",") {
        part = strings.ToLower(strings.TrimSpace(part))
        if len(part) >= 3 {
            if wd, ok := weekdayNames[part[:3]]; ok && wd == want {
                return true
            }
            continue
        }
        if n, err := strconv.Atoi(part); err == nil && time.Weekday(n%7) == want {
            return true
        }
    }
    return false
}

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD calendar date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
    return time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
}

// CivilDate drops the clock part of t, keeping its calendar date in UTC.
func CivilDate(t time.Time) time.Time {
    y, m, d := t.Date()
    return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// FormatDate renders a calendar date as YYYY-MM-DD.
func FormatDate(t time.Time) string {
    return t.Format(DateLayout)
}
