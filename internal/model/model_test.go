package model

import (
    "testing"
    "time"

    "github.com/shopspring/decimal"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func day(s string) time.Time {
    d, err := ParseDate(s)
    if err != nil {
        panic(err)
    }
    return d
}

func TestOperatesOn(t *testing.T) {
    sunday := day("2025-06-01")
    monday := day("2025-06-02")

    assert.True(t, Schedule{}.OperatesOn(sunday))
    assert.True(t, Schedule{DaysOfWeek: "Mon, Wed"}.OperatesOn(monday))
    assert.False(t, Schedule{DaysOfWeek: "mon,wed"}.OperatesOn(sunday))
    assert.True(t, Schedule{DaysOfWeek: "0,6"}.OperatesOn(sunday))
    assert.True(t, Schedule{DaysOfWeek: "monday"}.OperatesOn(monday))
    assert.False(t, Schedule{DaysOfWeek: "x"}.OperatesOn(monday))
}

func TestCivilDateDropsClock(t *testing.T) {
    kigali := time.FixedZone("CAT", 2*3600)
    got := CivilDate(time.Date(2025, 6, 1, 23, 30, 0, 0, kigali))
    assert.Equal(t, "2025-06-01", FormatDate(got))
    assert.Equal(t, time.UTC, got.Location())

    _, err := ParseDate("2025-13-01")
    assert.Error(t, err)
}

func TestHoldingStatuses(t *testing.T) {
    assert.True(t, BookingConfirmed.HoldsSeat())
    assert.True(t, BookingCompleted.HoldsSeat())
    assert.False(t, BookingCancelled.HoldsSeat())
    assert.False(t, BookingStatus("pending").Valid())
}

func TestFamilyTree(t *testing.T) {
    root := NewRoot(9, 3, 7, day("2025-06-01"), 5, BookingRoundTrip)
    assert.True(t, root.IsRoot())
    assert.Nil(t, root.ParentID())
    require.NotNil(t, root.LegSequence)
    assert.Equal(t, 1, *root.LegSequence)

    _, err := NewLeg(root, 4, 8, day("2025-06-03"), 5, 2)
    assert.ErrorIs(t, err, ErrNestedLeg, "unsaved root")

    root.ID = 50
    leg, err := NewLeg(root, 4, 8, day("2025-06-03"), 5, 2)
    require.NoError(t, err)
    assert.Equal(t, uint64(50), *leg.ParentID())
    assert.Equal(t, BookingRoundTrip, leg.Type)
    assert.Equal(t, BookingConfirmed, leg.Status)

    leg.ID = 51
    _, err = NewLeg(leg, 5, 9, day("2025-06-04"), 5, 3)
    assert.ErrorIs(t, err, ErrNestedLeg)

    one := NewRoot(9, 3, 7, day("2025-06-01"), 5, BookingOneWay)
    assert.Nil(t, one.LegSequence)
}

func TestFamilyAllAndDetail(t *testing.T) {
    s := Schedule{ID: 7, DepartureTime: "08:00:00", Price: decimal.RequireFromString("12.00"),
        Bus: Bus{PlateNumber: "RAC 123A", CompanyName: "Volcano Express"}, Route: Route{Origin: "Kigali", Destination: "Huye"}}
    d := DetailFrom(Booking{ID: 1, ScheduleID: 7}, s)
    assert.Equal(t, "Kigali", d.Origin)
    assert.Equal(t, "RAC 123A", d.BusPlate)

    f := Family{Root: d, Legs: []BookingDetail{{Booking: Booking{ID: 2}}}}
    all := f.All()
    require.Len(t, all, 2)
    assert.Equal(t, uint64(1), all[0].ID)
    assert.Equal(t, uint64(2), all[1].ID)
}

func TestTripStatus(t *testing.T) {
    assert.True(t, TripScheduled.CanTransitionTo(TripInProgress))
    assert.True(t, TripInProgress.CanTransitionTo(TripCancelled))
    assert.False(t, TripCompleted.CanTransitionTo(TripCancelled))
    assert.False(t, TripCancelled.CanTransitionTo(TripScheduled))
    assert.False(t, TripStatus("boarding").Valid())

    assert.Equal(t, 0, Trip{TotalSeats: 30, BookedSeats: 32}.AvailableSeats())
    assert.True(t, Trip{Status: TripScheduled}.Bookable())
    assert.False(t, Trip{Status: TripInProgress}.Bookable())
}
