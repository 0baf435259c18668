package router

import (
    "net/http"
    "net/http/httptest"
    "sort"
    "testing"

    "github.com/labstack/echo/v4"
    "github.com/prometheus/client_golang/prometheus"
    "github.com/stretchr/testify/assert"

    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/handler"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/logger"
)

func TestRegisterExposesBookingSurface(t *testing.T) {
    e := echo.New()
    Register(e, Deps{
        JWTSecret:    "s",
        Gatherer:     prometheus.NewRegistry(),
        Log:          logger.NewNop(),
        Bookings:     &handler.BookingHandler{},
        Availability: &handler.AvailabilityHandler{},
        Admin:        &handler.AdminHandler{},
    })

    var got []string
    for _, r := range e.Routes() {
        got = append(got, r.Method+" "+r.Path)
    }
    sort.Strings(got)
    for _, want := range []string{
        "GET /healthz",
        "GET /metrics",
        "GET /v1/schedules/:id/seats",
        "GET /v1/availability",
        "POST /v1/bookings",
        "POST /v1/bookings/round-trip",
        "POST /v1/bookings/multi-city",
        "GET /v1/my-bookings",
        "GET /v1/bookings/:code",
        "DELETE /v1/bookings/:code",
        "DELETE /v1/bookings/:code/family",
        "PATCH /v1/admin/bookings/:id/status",
        "POST /v1/admin/trips",
        "POST /v1/admin/trips/:id/recompute",
        "PATCH /v1/admin/trips/:id/status",
    } {
        assert.Contains(t, got, want)
    }

    rec := httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
    assert.Equal(t, http.StatusOK, rec.Code)

    rec = httptest.NewRecorder()
    e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/bookings", nil))
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
