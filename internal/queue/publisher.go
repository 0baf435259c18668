package queue

import (
    "context"
    "encoding/json"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/logger"
    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/model"
)

// Publisher sends booking events to RabbitMQ.  Each publish dials, declares
// the durable queue and sends one persistent message; failures are logged
// and returned so the caller can ignore them without interrupting the
// request.
type Publisher struct {
    url string
    log logger.Logger
    now func() time.Time
}

// NewPublisher returns a publisher for the broker at url.
func NewPublisher(url string, log logger.Logger) *Publisher {
    return &Publisher{url: url, log: log, now: time.Now}
}

// BookingConfirmed publishes a booking.confirmed event for the family.
func (p *Publisher) BookingConfirmed(ctx context.Context, f model.Family) error {
    return p.Publish(ctx, NewConfirmedEvent(f, p.now()))
}

// BookingCancelled publishes a booking.cancelled event for the legs.
func (p *Publisher) BookingCancelled(ctx context.Context, cancelled []model.BookingDetail) error {
    if len(cancelled) == 0 {
        return nil
    }
    return p.Publish(ctx, NewCancelledEvent(cancelled, p.now()))
}

// Publish sends ev to the queue named by its kind.
func (p *Publisher) Publish(ctx context.Context, ev BookingEvent) error {
    pub, err := buildPublishing(ev)
    if err != nil {
        p.log.Error("rabbitmq: marshal event failed", "kind", ev.Kind, "error", err)
        return err
    }

    conn, err := amqp.Dial(p.url)
    if err != nil {
        p.log.Error("rabbitmq: dial failed", "error", err)
        return err
    }
    defer func() { _ = conn.Close() }()

    ch, err := conn.Channel()
    if err != nil {
        p.log.Error("rabbitmq: channel open failed", "error", err)
        return err
    }
    defer func() { _ = ch.Close() }()

    // durable, not auto-deleted, not exclusive
    if _, err := ch.QueueDeclare(ev.Kind, true, false, false, false, nil); err != nil {
        p.log.Error("rabbitmq: queue declare failed", "queue", ev.Kind, "error", err)
        return err
    }

    // default exchange, routing key = queue name
    if err := ch.PublishWithContext(ctx, "", ev.Kind, false, false, pub); err != nil {
        p.log.Error("rabbitmq: publish failed", "queue", ev.Kind, "event_id", ev.EventID, "error", err)
        return err
    }
    p.log.Debug("rabbitmq: published", "queue", ev.Kind, "event_id", ev.EventID, "family", ev.FamilyCode)
    return nil
}

func buildPublishing(ev BookingEvent) (amqp.Publishing, error) {
    body, err := json.Marshal(ev)
    if err != nil {
        return amqp.Publishing{}, err
    }
    return amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: amqp.Persistent,
        MessageId:    ev.EventID,
        Type:         ev.Kind,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    }, nil
}
