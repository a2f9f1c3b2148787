package queue

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "sync"
    "time"

    amqp "github.com/rabbitmq/amqp091-go"

    "github.com/iliyamo/circulink/internal/logging"
    "github.com/iliyamo/circulink/internal/metrics"
    "github.com/iliyamo/circulink/internal/realtime"
)

// ErrNotConnected is returned by publishes made while the broker
// connection is down.  Serve restores the connection in the background.
var ErrNotConnected = errors.New("rabbitmq: publisher not connected")

const dialTimeout = 5 * time.Second

// Publisher keeps one broker connection open.  Publishing never dials:
// when the connection is down it fails at once, and Serve redials with
// backoff.  It is safe for concurrent use.
type Publisher struct {
    url        string
    auditQueue string
    exchange   string
    origin     string
    local      realtime.Emitter

    mu   sync.Mutex
    conn *amqp.Connection
    ch   *amqp.Channel
}

func newPublisher(url, auditQueue, exchange, origin string, local realtime.Emitter) *Publisher {
    return &Publisher{url: url, auditQueue: auditQueue, exchange: exchange, origin: origin, local: local}
}

// NewPublisher dials url and declares the audit queue and the
// notification exchange.  origin tags fanout events with this instance.
// Notifications that cannot be published are handed to local, which may
// be nil.
func NewPublisher(url, auditQueue, exchange, origin string, local realtime.Emitter) (*Publisher, error) {
    p := newPublisher(url, auditQueue, exchange, origin, local)
    if err := p.connect(); err != nil {
        return nil, err
    }
    return p, nil
}

func (p *Publisher) connect() error {
    conn, err := amqp.DialConfig(p.url, amqp.Config{
        Heartbeat: 10 * time.Second,
        Dial:      amqp.DefaultDial(dialTimeout),
    })
    if err != nil {
        return fmt.Errorf("dial: %w", err)
    }
    ch, err := conn.Channel()
    if err != nil {
        _ = conn.Close()
        return fmt.Errorf("channel open: %w", err)
    }
    if err := declareTopology(ch, p.auditQueue, p.exchange); err != nil {
        _ = ch.Close()
        _ = conn.Close()
        return err
    }
    p.mu.Lock()
    p.conn, p.ch = conn, ch
    p.mu.Unlock()
    return nil
}

// declareTopology declares the durable audit queue and the fanout
// exchange.  Both declarations are idempotent.
func declareTopology(ch *amqp.Channel, auditQueue, exchange string) error {
    if _, err := ch.QueueDeclare(auditQueue, true, false, false, false, nil); err != nil {
        return fmt.Errorf("queue declare: %w", err)
    }
    if err := ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, true, false, false, false, nil); err != nil {
        return fmt.Errorf("exchange declare: %w", err)
    }
    return nil
}

// String names the publisher for the supervisor's logs.
func (p *Publisher) String() string { return "amqp-publisher" }

// Serve implements suture.Service.  It watches the connection and its
// channel and redials with exponential backoff once either closes.
func (p *Publisher) Serve(ctx context.Context) error {
    log := logging.WithComponent("amqp-publisher")
    backoff := time.Second
    for {
        p.mu.Lock()
        conn, ch := p.conn, p.ch
        p.mu.Unlock()

        if conn == nil || conn.IsClosed() || ch == nil || ch.IsClosed() {
            p.drop(conn)
            if err := p.connect(); err != nil {
                log.Warn().Err(err).Dur("retry_in", backoff).Msg("failed to reconnect publisher")
                if !sleep(ctx, backoff) {
                    return ctx.Err()
                }
                if backoff < 30*time.Second {
                    backoff *= 2
                }
                continue
            }
            backoff = time.Second
            log.Info().Msg("publisher connected")
            continue
        }

        connClosed := conn.NotifyClose(make(chan *amqp.Error, 1))
        chClosed := ch.NotifyClose(make(chan *amqp.Error, 1))
        select {
        case <-ctx.Done():
            return ctx.Err()
        case err := <-connClosed:
            log.Warn().Err(closeErr(err)).Msg("broker connection closed")
        case err := <-chClosed:
            log.Warn().Err(closeErr(err)).Msg("publisher channel closed")
        }
        p.drop(conn)
    }
}

// drop forgets conn if it is still the current connection.
func (p *Publisher) drop(conn *amqp.Connection) {
    p.mu.Lock()
    defer p.mu.Unlock()
    if conn == nil || p.conn != conn {
        return
    }
    _ = conn.Close()
    p.conn, p.ch = nil, nil
}

func closeErr(err *amqp.Error) error {
    if err == nil {
        return nil
    }
    return err
}

func (p *Publisher) publish(ctx context.Context, exchange, key string, mode uint8, body []byte) error {
    p.mu.Lock()
    ch := p.ch
    p.mu.Unlock()
    if ch == nil || ch.IsClosed() {
        return ErrNotConnected
    }
    return ch.PublishWithContext(ctx, exchange, key, false, false, amqp.Publishing{
        ContentType:  "application/json",
        DeliveryMode: mode,
        Timestamp:    time.Now().UTC(),
        Body:         body,
    })
}

// PublishAudit sends an audit event to the durable audit queue.
func (p *Publisher) PublishAudit(ctx context.Context, e AuditEvent) error {
    body, err := json.Marshal(e)
    if err != nil {
        return err
    }
    if err := p.publish(ctx, "", p.auditQueue, amqp.Persistent, body); err != nil {
        metrics.AuditEvents.WithLabelValues("failed").Inc()
        return err
    }
    metrics.AuditEvents.WithLabelValues("published").Inc()
    return nil
}

// Emit implements realtime.Emitter by publishing to the fanout exchange.
// Notifications are transient: an instance that is down misses them and
// its users read the stored copy from the inbox.  When the broker is
// unreachable the notification still reaches this instance's sockets.
func (p *Publisher) Emit(ctx context.Context, ch realtime.Channel, msg realtime.Message) error {
    body, err := json.Marshal(NotificationEvent{Channel: ch, Message: msg, Origin: p.origin})
    if err != nil {
        return err
    }
    err = p.publish(ctx, p.exchange, "", amqp.Transient, body)
    if err == nil || p.local == nil {
        return err
    }
    logging.Ctx(ctx).Warn().Err(err).Str("channel", string(ch)).Msg("fanout publish failed, delivering locally")
    return p.local.Emit(ctx, ch, msg)
}

// Close shuts the channel and connection.
func (p *Publisher) Close() error {
    p.mu.Lock()
    defer p.mu.Unlock()
    var errs []error
    if p.ch != nil {
        errs = append(errs, p.ch.Close())
    }
    if p.conn != nil {
        errs = append(errs, p.conn.Close())
    }
    p.conn, p.ch = nil, nil
    if err := errors.Join(errs...); err != nil {
        logging.Debug().Err(err).Msg("rabbitmq: close publisher")
        return err
    }
    return nil
}
