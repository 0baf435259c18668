package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/logger"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/model"
)

// StatusService changes booking status on behalf of operators.
type StatusService interface {
    UpdateBookingStatus(ctx context.Context, id uint64, status model.BookingStatus) (*model.BookingDetail, error)
}

// TripService is the part of service.TripLedger exposed to operators.
type TripService interface {
    ResolveOrCreateTrip(ctx context.Context, scheduleID uint64, date time.Time) (*model.Trip, error)
    RecomputeOccupancy(ctx context.Context, tripID uint64) (*model.Trip, error)
    UpdateTripStatus(ctx context.Context, tripID uint64, status model.TripStatus) (*model.Trip, error)
}

// AdminHandler serves /v1/admin.  Every route requires the ADMIN role.
type AdminHandler struct {
    bookings StatusService
    trips    TripService
    log      logger.Logger
}

func NewAdminHandler(bookings StatusService, trips TripService, log logger.Logger) *AdminHandler {
    if bookings == nil || trips == nil {
        panic("nil service passed to NewAdminHandler")
    }
    return &AdminHandler{bookings: bookings, trips: trips, log: log}
}

type statusBody struct {
    Status string `json:"status"`
}

// UpdateBookingStatus handles PATCH /v1/admin/bookings/:id/status.
func (h *AdminHandler) UpdateBookingStatus(c echo.Context) error {
    id, ok := parseID(c.Param("id"))
    if !ok {
        return badRequest(c, "invalid booking id")
    }
    var body statusBody
    if err := c.Bind(&body); err != nil || body.Status == "" {
        return badRequest(c, "status is required")
    }
    d, err := h.bookings.UpdateBookingStatus(c.Request().Context(), id, model.BookingStatus(body.Status))
    if err != nil {
        return writeError(c, h.log, err)
    }
    return c.JSON(http.StatusOK, d)
}

// ResolveTrip handles POST /v1/admin/trips with {schedule_id, trip_date}.
func (h *AdminHandler) ResolveTrip(c echo.Context) error {
    var body struct {
        ScheduleID uint64 `json:"schedule_id"`
        TripDate   string `json:"trip_date"`
    }
    if err := c.Bind(&body); err != nil || body.ScheduleID == 0 {
        return badRequest(c, "schedule_id is required")
    }
    date, ok := parseDate(body.TripDate)
    if !ok {
        return badRequest(c, "trip_date must be YYYY-MM-DD")
    }
    trip, err := h.trips.ResolveOrCreateTrip(c.Request().Context(), body.ScheduleID, date)
    if err != nil {
        return writeError(c, h.log, err)
    }
    return c.JSON(http.StatusOK, trip)
}

// RecomputeTrip handles POST /v1/admin/trips/:id/recompute.
func (h *AdminHandler) RecomputeTrip(c echo.Context) error {
    id, ok := parseID(c.Param("id"))
    if !ok {
        return badRequest(c, "invalid trip id")
    }
    trip, err := h.trips.RecomputeOccupancy(c.Request().Context(), id)
    if err != nil {
        return writeError(c, h.log, err)
    }
    return c.JSON(http.StatusOK, trip)
}

// UpdateTripStatus handles PATCH /v1/admin/trips/:id/status.
func (h *AdminHandler) UpdateTripStatus(c echo.Context) error {
    id, ok := parseID(c.Param("id"))
    if !ok {
        return badRequest(c, "invalid trip id")
    }
    var body statusBody
    if err := c.Bind(&body); err != nil || body.Status == "" {
        return badRequest(c, "status is required")
    }
    trip, err := h.trips.UpdateTripStatus(c.Request().Context(), id, model.TripStatus(body.Status))
    if err != nil {
        return writeError(c, h.log, err)
    }
    return c.JSON(http.StatusOK, trip)
}
