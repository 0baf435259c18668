package handler

import (
    "context"
    "net/http"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/logger"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/model"
)

// SeatService is the part of service.SeatOracle exposed publicly.
type SeatService interface {
    SeatMap(ctx context.Context, scheduleID uint64, date time.Time) (*model.SeatMap, error)
    CheckAvailability(ctx context.Context, date time.Time, scheduleIDs []uint64) ([]model.Availability, error)
}

// AvailabilityHandler serves the unauthenticated seat endpoints.  Answers
// are snapshots; booking re-checks the seat.
type AvailabilityHandler struct {
    svc SeatService
    log logger.Logger
}

func NewAvailabilityHandler(svc SeatService, log logger.Logger) *AvailabilityHandler {
    return &AvailabilityHandler{svc: svc, log: log}
}

// SeatMap handles GET /v1/schedules/:id/seats?date=YYYY-MM-DD.
func (h *AvailabilityHandler) SeatMap(c echo.Context) error {
    id, ok := parseID(c.Param("id"))
    if !ok {
        return badRequest(c, "invalid schedule id")
    }
    date, ok := parseDate(c.QueryParam("date"))
    if !ok {
        return badRequest(c, "date must be YYYY-MM-DD")
    }
    m, err := h.svc.SeatMap(c.Request().Context(), id, date)
    if err != nil {
        return writeError(c, h.log, err)
    }
    return c.JSON(http.StatusOK, m)
}

// maxAvailabilityIDs bounds the IN list of one availability query.
const maxAvailabilityIDs = 100

// Availability handles GET /v1/availability?date=&schedule_ids=1,2,3.
func (h *AvailabilityHandler) Availability(c echo.Context) error {
    date, ok := parseDate(c.QueryParam("date"))
    if !ok {
        return badRequest(c, "date must be YYYY-MM-DD")
    }
    ids, ok := parseIDList(c.QueryParam("schedule_ids"))
    if !ok {
        return badRequest(c, "schedule_ids must be a comma separated list of ids")
    }
    if len(ids) > maxAvailabilityIDs {
        return badRequest(c, "too many schedule_ids")
    }
    items, err := h.svc.CheckAvailability(c.Request().Context(), date, ids)
    if err != nil {
        return writeError(c, h.log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"travel_date": model.FormatDate(date), "items": items})
}
