package handler

import (
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/logger"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/middleware"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/model"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/service"
)

// errorMapping pairs a service failure with its HTTP status and the
// stable code clients switch on.
type errorMapping struct {
    err    error
    status int
    code   string
}

var errorMappings = []errorMapping{
    {service.ErrNotFound, http.StatusNotFound, "not_found"},
    {service.ErrInvalidSeat, http.StatusUnprocessableEntity, "invalid_seat"},
    {service.ErrInvalidLegs, http.StatusUnprocessableEntity, "invalid_legs"},
    {service.ErrInvalidStatus, http.StatusUnprocessableEntity, "invalid_status"},
    {service.ErrInvalidDateOrder, http.StatusUnprocessableEntity, "invalid_date_order"},
    {service.ErrChronologyViolation, http.StatusUnprocessableEntity, "chronology_violation"},
    {service.ErrScheduleNotOperating, http.StatusUnprocessableEntity, "schedule_not_operating"},
    {service.ErrSeatUnavailable, http.StatusConflict, "seat_unavailable"},
    {service.ErrAlreadyCancelled, http.StatusConflict, "already_cancelled"},
    {service.ErrAlreadyCompleted, http.StatusConflict, "already_completed"},
    {service.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
    {service.ErrTripNotBookable, http.StatusConflict, "trip_not_bookable"},
    {service.ErrTransactionFailed, http.StatusServiceUnavailable, "transaction_failed"},
}

// writeError renders err as {"error", "message"} plus "leg" when the
// failure belongs to one leg of a multi-leg request.  Unknown errors are
// logged and reported as 500 without their text.
func writeError(c echo.Context, log logger.Logger, err error) error {
    for _, m := range errorMappings {
        if errors.Is(err, m.err) {
            body := echo.Map{"error": m.code, "message": err.Error()}
            var le *service.LegError
            if errors.As(err, &le) {
                body["leg"] = le.Leg
            }
            return c.JSON(m.status, body)
        }
    }
    log.Error("request failed", "method", c.Request().Method, "path", c.Path(), "error", err)
    return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal_error", "message": "internal server error"})
}

func badRequest(c echo.Context, msg string) error {
    return c.JSON(http.StatusBadRequest, echo.Map{"error": "bad_request", "message": msg})
}

// getUserID returns the caller set by the JWT middleware.
func getUserID(c echo.Context) (uint64, error) {
    id, ok := middleware.UserID(c)
    if !ok {
        return 0, errors.New("invalid user_id in context")
    }
    return id, nil
}

func unauthorized(c echo.Context) error {
    return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized", "message": "authentication required"})
}

func parseID(raw string) (uint64, bool) {
    id, err := strconv.ParseUint(raw, 10, 64)
    return id, err == nil && id > 0
}

func parseDate(raw string) (time.Time, bool) {
    d, err := model.ParseDate(strings.TrimSpace(raw))
    return d, err == nil
}

// parseIDList splits "1,2, 3" into ids.
func parseIDList(raw string) ([]uint64, bool) {
    var ids []uint64
    for _, p := range strings.Split(raw, ",") {
        p = strings.TrimSpace(p)
        if p == "" {
            continue
        }
        id, ok := parseID(p)
        if !ok {
            return nil, false
        }
        ids = append(ids, id)
    }
    return ids, len(ids) > 0
}
