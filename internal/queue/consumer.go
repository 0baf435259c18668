package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "os"
    "path/filepath"
    "strings"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/Frankish0014/EXPRESSGO-PROJECT-sub000/internal/logger"
)

// Mailer delivers booking notifications to the passenger.
type Mailer interface {
    SendBookingConfirmation(ctx context.Context, ev BookingEvent) error
    SendBookingCancellation(ctx context.Context, ev BookingEvent) error
}

// Consumer reads booking.confirmed and booking.cancelled and hands every
// event to a Mailer.  Messages the mailer rejects are dropped (nack without
// requeue) so a poison message cannot spin the loop.
type Consumer struct {
    url    string
    mailer Mailer
    log    logger.Logger
}

func NewConsumer(url string, mailer Mailer, log logger.Logger) *Consumer {
    return &Consumer{url: url, mailer: mailer, log: log}
}

// Run keeps a broker connection open, reconnecting with backoff, until ctx
// is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(c.url)
        if err != nil {
            c.log.Warn("booking-consumer: dial failed", "error", err, "retry_in", backoff.String())
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consume(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        c.log.Warn("booking-consumer: consume loop ended, reconnecting", "error", err)
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func sleep(ctx context.Context, d time.Duration) bool {
    t := time.NewTimer(d)
    defer t.Stop()
    select {
    case <-ctx.Done():
        return false
    case <-t.C:
        return true
    }
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(50, 0, false); err != nil {
        c.log.Warn("booking-consumer: set QoS failed", "error", err)
    }

    var wg sync.WaitGroup
    done := make(chan error, 2)
    for _, queue := range []string{QueueBookingConfirmed, QueueBookingCancelled} {
        if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
            return fmt.Errorf("queue declare %s: %w", queue, err)
        }
        msgs, err := ch.ConsumeWithContext(ctx, queue, "", false, false, false, false, nil)
        if err != nil {
            return fmt.Errorf("queue consume %s: %w", queue, err)
        }
        wg.Add(1)
        go func(msgs <-chan amqp.Delivery) {
            defer wg.Done()
            for d := range msgs {
                if err := c.handleMessage(ctx, d.Body); err != nil {
                    c.log.Error("booking-consumer: handle message failed", "message_id", d.MessageId, "error", err)
                    _ = d.Nack(false, false)
                    continue
                }
                _ = d.Ack(false)
            }
            done <- errors.New("deliveries channel closed")
        }(msgs)
    }
    err = <-done
    _ = ch.Close()
    wg.Wait()
    return err
}

func (c *Consumer) handleMessage(ctx context.Context, body []byte) error {
    var ev BookingEvent
    if err := json.Unmarshal(body, &ev); err != nil {
        return fmt.Errorf("unmarshal: %w", err)
    }
    switch ev.Kind {
    case QueueBookingConfirmed:
        return c.mailer.SendBookingConfirmation(ctx, ev)
    case QueueBookingCancelled:
        return c.mailer.SendBookingCancellation(ctx, ev)
    }
    return fmt.Errorf("unknown event kind %q", ev.Kind)
}

// LogMailer stands in for email delivery: it logs each notification and
// appends one line per event to <dir>/booking.log.
type LogMailer struct {
    dir string
    log logger.Logger
    mu  sync.Mutex
}

func NewLogMailer(dir string, log logger.Logger) *LogMailer {
    return &LogMailer{dir: dir, log: log}
}

func (m *LogMailer) SendBookingConfirmation(_ context.Context, ev BookingEvent) error {
    m.log.Info("booking confirmation", "user_id", ev.UserID, "family", ev.FamilyCode, "legs", len(ev.Legs), "total", ev.TotalPrice.StringFixed(2))
    return m.append("Booking confirmed", ev)
}

func (m *LogMailer) SendBookingCancellation(_ context.Context, ev BookingEvent) error {
    m.log.Info("booking cancellation", "user_id", ev.UserID, "family", ev.FamilyCode, "legs", len(ev.Legs))
    return m.append("Booking cancelled", ev)
}

func (m *LogMailer) append(title string, ev BookingEvent) error {
    m.mu.Lock()
    defer m.mu.Unlock()

    if err := os.MkdirAll(m.dir, 0o755); err != nil {
        return fmt.Errorf("mkdir logs: %w", err)
    }
    f, err := os.OpenFile(filepath.Join(m.dir, "booking.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
    if err != nil {
        return fmt.Errorf("open log file: %w", err)
    }
    defer f.Close()

    legs := make([]string, 0, len(ev.Legs))
    for _, l := range ev.Legs {
        legs = append(legs, fmt.Sprintf("%s %s->%s %s seat %d", l.BookingCode, l.Origin, l.Destination, l.TravelDate, l.SeatNumber))
    }
    line := fmt.Sprintf("[%s] %s | event_id=%s | user_id=%d | type=%s | family=%s | total=%s | legs=[%s]\n",
        ev.OccurredAt, title, ev.EventID, ev.UserID, ev.BookingType, ev.FamilyCode, ev.TotalPrice.StringFixed(2), strings.Join(legs, "; "))
    if _, err := f.WriteString(line); err != nil {
        return fmt.Errorf("write log: %w", err)
    }
    return nil
}
