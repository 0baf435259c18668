package handler

import (
    "context"
    "fmt"
    "net/http"
    "strconv"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/logger"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/model"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/service"
)

// BookingService is the part of service.Engine the customer endpoints use.
type BookingService interface {
    CreateSingleBooking(ctx context.Context, userID, scheduleID uint64, date time.Time, seat int) (*model.BookingDetail, error)
    CreateRoundTripBooking(ctx context.Context, userID uint64, outbound, ret service.LegRequest) (*model.Family, error)
    CreateMultiCityBooking(ctx context.Context, userID uint64, legs []service.LegRequest) (*model.Family, error)
    CancelBooking(ctx context.Context, userID uint64, code string) (*model.BookingDetail, error)
    CancelComplexBooking(ctx context.Context, userID uint64, code string) ([]model.BookingDetail, error)
    ListBookings(ctx context.Context, userID uint64, limit, offset int) ([]model.BookingDetail, error)
    GetFamily(ctx context.Context, userID uint64, code string) (*model.Family, error)
}

// BookingHandler serves the customer booking endpoints.  JWT and role
// checks are done by middleware; the caller id comes from the token.
type BookingHandler struct {
    svc BookingService
    log logger.Logger
}

func NewBookingHandler(svc BookingService, log logger.Logger) *BookingHandler {
    if svc == nil {
        panic("nil booking service passed to NewBookingHandler")
    }
    return &BookingHandler{svc: svc, log: log}
}

// legBody is one requested seat.  Sequence is only read for multi-city.
type legBody struct {
    ScheduleID uint64 `json:"schedule_id"`
    TravelDate string `json:"travel_date"`
    SeatNumber int    `json:"seat_number"`
    Sequence   int    `json:"sequence"`
}

func (b legBody) request(name string) (service.LegRequest, error) {
    if b.ScheduleID == 0 {
        return service.LegRequest{}, fmt.Errorf("%s: schedule_id is required", name)
    }
    d, ok := parseDate(b.TravelDate)
    if !ok {
        return service.LegRequest{}, fmt.Errorf("%s: travel_date must be YYYY-MM-DD", name)
    }
    return service.LegRequest{ScheduleID: b.ScheduleID, TravelDate: d, SeatNumber: b.SeatNumber, Sequence: b.Sequence}, nil
}

// Create handles POST /v1/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return unauthorized(c)
    }
    var body legBody
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid request body")
    }
    req, err := body.request("booking")
    if err != nil {
        return badRequest(c, err.Error())
    }
    d, err := h.svc.CreateSingleBooking(c.Request().Context(), userID, req.ScheduleID, req.TravelDate, req.SeatNumber)
    if err != nil {
        return writeError(c, h.log, err)
    }
    return c.JSON(http.StatusCreated, d)
}

// CreateRoundTrip handles POST /v1/bookings/round-trip.
func (h *BookingHandler) CreateRoundTrip(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return unauthorized(c)
    }
    var body struct {
        Outbound legBody `json:"outbound"`
        Return   legBody `json:"return"`
    }
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid request body")
    }
    out, err := body.Outbound.request("outbound")
    if err != nil {
        return badRequest(c, err.Error())
    }
    ret, err := body.Return.request("return")
    if err != nil {
        return badRequest(c, err.Error())
    }
    fam, err := h.svc.CreateRoundTripBooking(c.Request().Context(), userID, out, ret)
    if err != nil {
        return writeError(c, h.log, err)
    }
    return c.JSON(http.StatusCreated, fam)
}

// CreateMultiCity handles POST /v1/bookings/multi-city.
func (h *BookingHandler) CreateMultiCity(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return unauthorized(c)
    }
    var body struct {
        Legs []legBody `json:"legs"`
    }
    if err := c.Bind(&body); err != nil {
        return badRequest(c, "invalid request body")
    }
    legs := make([]service.LegRequest, 0, len(body.Legs))
    for i, l := range body.Legs {
        req, err := l.request(fmt.Sprintf("legs[%d]", i))
        if err != nil {
            return badRequest(c, err.Error())
        }
        legs = append(legs, req)
    }
    fam, err := h.svc.CreateMultiCityBooking(c.Request().Context(), userID, legs)
    if err != nil {
        return writeError(c, h.log, err)
    }
    return c.JSON(http.StatusCreated, fam)
}

// List handles GET /v1/my-bookings?limit=&offset=.
func (h *BookingHandler) List(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return unauthorized(c)
    }
    limit, _ := strconv.Atoi(c.QueryParam("limit"))
    offset, _ := strconv.Atoi(c.QueryParam("offset"))
    items, err := h.svc.ListBookings(c.Request().Context(), userID, limit, offset)
    if err != nil {
        return writeError(c, h.log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// Get handles GET /v1/bookings/:code.  Any code of a family returns the
// whole family.
func (h *BookingHandler) Get(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return unauthorized(c)
    }
    fam, err := h.svc.GetFamily(c.Request().Context(), userID, c.Param("code"))
    if err != nil {
        return writeError(c, h.log, err)
    }
    return c.JSON(http.StatusOK, fam)
}

// Cancel handles DELETE /v1/bookings/:code.
func (h *BookingHandler) Cancel(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return unauthorized(c)
    }
    d, err := h.svc.CancelBooking(c.Request().Context(), userID, c.Param("code"))
    if err != nil {
        return writeError(c, h.log, err)
    }
    return c.JSON(http.StatusOK, d)
}

// CancelFamily handles DELETE /v1/bookings/:code/family.
func (h *BookingHandler) CancelFamily(c echo.Context) error {
    userID, err := getUserID(c)
    if err != nil {
        return unauthorized(c)
    }
    cancelled, err := h.svc.CancelComplexBooking(c.Request().Context(), userID, c.Param("code"))
    if err != nil {
        return writeError(c, h.log, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"cancelled": cancelled})
}
