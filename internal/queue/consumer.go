package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/circulink/internal/logging"
    "github.com/iliyamo/circulink/internal/metrics"
    "github.com/iliyamo/circulink/internal/model"
    "github.com/iliyamo/circulink/internal/realtime"
)

// HandlerFunc processes one delivery body.  A non-nil error rejects the
// message without requeueing it.
type HandlerFunc func(ctx context.Context, body []byte) error

// setupFunc declares whatever the consumer needs and returns the queue to
// consume from.
type setupFunc func(ch *amqp.Channel) (string, error)

// Consumer is a supervised RabbitMQ consumer.  Serve dials, declares and
// consumes until ctx is cancelled, reconnecting with exponential backoff
// when the broker goes away.
type Consumer struct {
    name     string
    url      string
    prefetch int
    setup    setupFunc
    handle   HandlerFunc
}

// String names the consumer for the supervisor's logs.
func (c *Consumer) String() string { return c.name }

// Serve implements suture.Service.
func (c *Consumer) Serve(ctx context.Context) error {
    log := logging.WithComponent(c.name)
    backoff := time.Second
    for {
        if ctx.Err() != nil {
            return ctx.Err()
        }
        conn, err := amqp.Dial(c.url)
        if err != nil {
            log.Warn().Err(err).Dur("retry_in", backoff).Msg("failed to dial broker")
            if !sleep(ctx, backoff) {
                return ctx.Err()
            }
            if backoff < 30*time.Second {
                backoff *= 2
            }
            continue
        }
        backoff = time.Second

        err = c.consumeLoop(ctx, conn)
        _ = conn.Close()
        if ctx.Err() != nil {
            return ctx.Err()
        }
        log.Warn().Err(err).Msg("consume loop ended, reconnecting")
        if !sleep(ctx, 2*time.Second) {
            return ctx.Err()
        }
    }
}

func (c *Consumer) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
    ch, err := conn.Channel()
    if err != nil {
        return fmt.Errorf("channel open: %w", err)
    }
    defer func() { _ = ch.Close() }()

    if err := ch.Qos(c.prefetch, 0, false); err != nil {
        return fmt.Errorf("qos: %w", err)
    }
    queueName, err := c.setup(ch)
    if err != nil {
        return err
    }
    msgs, err := ch.Consume(queueName, "", false, false, false, false, nil)
    if err != nil {
        return fmt.Errorf("queue consume: %w", err)
    }

    for {
        select {
        case <-ctx.Done():
            return ctx.Err()
        case d, ok := <-msgs:
            if !ok {
                return errors.New("deliveries channel closed")
            }
            if err := c.handle(ctx, d.Body); err != nil {
                logging.Warn().Err(err).Str("consumer", c.name).Msg("handle message failed")
                _ = d.Nack(false, false) // reject, do not requeue to avoid tight loops
                continue
            }
            _ = d.Ack(false)
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

// AuditSink stores audit entries.
type AuditSink interface {
    Insert(ctx context.Context, e model.AuditEntry) error
}

// NewAuditConsumer drains the audit queue into sink.
func NewAuditConsumer(url, queue string, sink AuditSink) *Consumer {
    return &Consumer{
        name:     "audit-consumer",
        url:      url,
        prefetch: 50,
        setup: func(ch *amqp.Channel) (string, error) {
            if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
                return "", fmt.Errorf("queue declare: %w", err)
            }
            return queue, nil
        },
        handle: AuditHandler(sink),
    }
}

// AuditHandler decodes an audit event and stores it.
func AuditHandler(sink AuditSink) HandlerFunc {
    return func(ctx context.Context, body []byte) error {
        var e AuditEvent
        if err := json.Unmarshal(body, &e); err != nil {
            return fmt.Errorf("unmarshal: %w", err)
        }
        if err := sink.Insert(ctx, e); err != nil {
            metrics.AuditEvents.WithLabelValues("failed").Inc()
            return err
        }
        metrics.AuditEvents.WithLabelValues("stored").Inc()
        return nil
    }
}

// NewFanoutConsumer binds a private, auto-deleted queue to the
// notification exchange and hands every event to local.
func NewFanoutConsumer(url, exchange string, local realtime.Emitter) *Consumer {
    return &Consumer{
        name:     "notification-fanout",
        url:      url,
        prefetch: 100,
        setup: func(ch *amqp.Channel) (string, error) {
            if err := ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
                return "", fmt.Errorf("exchange declare: %w", err)
            }
            q, err := ch.QueueDeclare("", false, true, true, false, nil)
            if err != nil {
                return "", fmt.Errorf("queue declare: %w", err)
            }
            if err := ch.QueueBind(q.Name, "", exchange, false, nil); err != nil {
                return "", fmt.Errorf("queue bind: %w", err)
            }
            return q.Name, nil
        },
        handle: FanoutHandler(local),
    }
}

// FanoutHandler decodes a notification event and emits it locally.
func FanoutHandler(local realtime.Emitter) HandlerFunc {
    return func(ctx context.Context, body []byte) error {
        var ev NotificationEvent
        if err := json.Unmarshal(body, &ev); err != nil {
            return fmt.Errorf("unmarshal: %w", err)
        }
        if ev.Channel == "" {
            return errors.New("notification event without channel")
        }
        return local.Emit(ctx, ev.Channel, ev.Message)
    }
}
