package queue

import (
    "context"
    "encoding/json"
    "errors"
    "os"
    "path/filepath"
    "testing"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"
    "github.com/shopspring/decimal"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/logger"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/model"
)

type recordingMailer struct {
    confirmed []BookingEvent
    cancelled []BookingEvent
    err       error
}

func (m *recordingMailer) SendBookingConfirmation(_ context.Context, ev BookingEvent) error {
    m.confirmed = append(m.confirmed, ev)
    return m.err
}

func (m *recordingMailer) SendBookingCancellation(_ context.Context, ev BookingEvent) error {
    m.cancelled = append(m.cancelled, ev)
    return m.err
}

func roundTripFamily() model.Family {
    out := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
    one, two := 1, 2
    root := model.BookingDetail{
        Booking: model.Booking{ID: 5, UserID: 42, ScheduleID: 7, TravelDate: out, SeatNumber: 5,
            Type: model.BookingRoundTrip, Code: "BK2506010800ABCD000005", LegSequence: &one},
        Origin: "Kigali", Destination: "Huye", Price: decimal.RequireFromString("15.50"),
    }
    leg := model.BookingDetail{
        Booking: model.Booking{ID: 6, UserID: 42, ScheduleID: 8, TravelDate: out.AddDate(0, 0, 2), SeatNumber: 5,
            Type: model.BookingRoundTrip, Code: "BK2506010800ABCD000005-RTN", LegSequence: &two,
            Root: &model.RootRef{BookingID: 5}},
        Origin: "Huye", Destination: "Kigali", Price: decimal.RequireFromString("14.50"),
    }
    return model.Family{Root: root, Legs: []model.BookingDetail{leg}, TotalPrice: decimal.RequireFromString("30")}
}

func TestNewConfirmedEvent(t *testing.T) {
    at := time.Date(2025, 5, 20, 9, 0, 0, 0, time.UTC)
    ev := NewConfirmedEvent(roundTripFamily(), at)

    assert.Equal(t, QueueBookingConfirmed, ev.Kind)
    assert.NotEmpty(t, ev.EventID)
    assert.Equal(t, uint64(42), ev.UserID)
    assert.Equal(t, "round-trip", ev.BookingType)
    assert.Equal(t, "BK2506010800ABCD000005", ev.FamilyCode)
    require.Len(t, ev.Legs, 2)
    assert.Equal(t, "2025-06-03", ev.Legs[1].TravelDate)
    assert.Equal(t, 2, ev.Legs[1].LegSequence)
    assert.True(t, decimal.RequireFromString("30").Equal(ev.TotalPrice))
    assert.Equal(t, "2025-05-20T09:00:00Z", ev.OccurredAt)
}

func TestBuildPublishingCarriesEventID(t *testing.T) {
    ev := NewCancelledEvent(roundTripFamily().All()[1:], time.Now())
    pub, err := buildPublishing(ev)
    require.NoError(t, err)

    assert.Equal(t, ev.EventID, pub.MessageId)
    assert.Equal(t, QueueBookingCancelled, pub.Type)
    assert.Equal(t, amqp.Persistent, pub.DeliveryMode)

    var back BookingEvent
    require.NoError(t, json.Unmarshal(pub.Body, &back))
    assert.Equal(t, "BK2506010800ABCD000005-RTN", back.FamilyCode)
    assert.True(t, decimal.RequireFromString("14.5").Equal(back.TotalPrice))
}

func TestHandleMessageDispatchesByKind(t *testing.T) {
    m := &recordingMailer{}
    c := NewConsumer("amqp://unused", m, logger.NewNop())
    ctx := context.Background()

    confirmed, _ := json.Marshal(NewConfirmedEvent(roundTripFamily(), time.Now()))
    cancelled, _ := json.Marshal(NewCancelledEvent(roundTripFamily().All(), time.Now()))

    require.NoError(t, c.handleMessage(ctx, confirmed))
    require.NoError(t, c.handleMessage(ctx, cancelled))
    assert.Len(t, m.confirmed, 1)
    assert.Len(t, m.cancelled, 1)

    assert.Error(t, c.handleMessage(ctx, []byte("{")))
    assert.Error(t, c.handleMessage(ctx, []byte(`{"kind":"booking.refunded"}`)))

    m.err = errors.New("smtp down")
    assert.Error(t, c.handleMessage(ctx, confirmed))
}

func TestLogMailerAppendsLines(t *testing.T) {
    dir := filepath.Join(t.TempDir(), "logs")
    m := NewLogMailer(dir, logger.NewNop())
    ev := NewConfirmedEvent(roundTripFamily(), time.Now())

    require.NoError(t, m.SendBookingConfirmation(context.Background(), ev))
    require.NoError(t, m.SendBookingCancellation(context.Background(), NewCancelledEvent(roundTripFamily().All(), time.Now())))

    data, err := os.ReadFile(filepath.Join(dir, "booking.log"))
    require.NoError(t, err)
    assert.Contains(t, string(data), "Booking confirmed")
    assert.Contains(t, string(data), "Booking cancelled")
    assert.Contains(t, string(data), "BK2506010800ABCD000005-RTN Huye->Kigali 2025-06-03 seat 5")
    assert.Contains(t, string(data), "total=30.00")
}
