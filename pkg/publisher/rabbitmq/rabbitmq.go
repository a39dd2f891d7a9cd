// Package rabbitmq publishes integration events to a durable RabbitMQ queue
// using publisher confirms.
package rabbitmq

import (
	"bills/pkg/domain"
	"bills/pkg/logger"
	"bills/pkg/publisher"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const defaultConfirmTimeout = 5 * time.Second

// ErrNacked is returned when the broker negatively acknowledges a message.
var ErrNacked = errors.New("message nacked by broker")

// Options configures the RabbitMQ publisher.
type Options struct {
	// URL is the AMQP connection URI, see URL.
	URL string
	// Queue is the durable queue events are routed to through the default
	// exchange.
	Queue string
	// ConfirmTimeout bounds the wait for a broker confirm.
	ConfirmTimeout time.Duration
}

// URL builds an AMQP URI from its parts.
func URL(host string, port int, username, password, vhost string) string {
	return amqp.URI{
		Scheme:   "amqp",
		Host:     host,
		Port:     port,
		Username: username,
		Password: password,
		Vhost:    vhost,
	}.String()
}

// Publisher keeps one connection and one confirm-mode channel open for its
// whole lifetime. Publishes are serialized on the channel.
type Publisher struct {
	opts Options

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	closed  bool
}

// New dials the broker, declares the queue and puts the channel in confirm
// mode.
func New(ctx context.Context, opts Options) (*Publisher, error) {
	if opts.ConfirmTimeout <= 0 {
		opts.ConfirmTimeout = defaultConfirmTimeout
	}

	p := &Publisher{opts: opts}
	if err := p.ensureChannel(ctx); err != nil {
		return nil, err
	}

	return p, nil
}

func (p *Publisher) PublishBillCreated(ctx context.Context, event domain.BillCreatedEvent) error {
	body := publisher.EncodeEnvelope(event)

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return publisher.ErrClosed
	}
	if err := p.ensureChannel(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.opts.ConfirmTimeout)
	defer cancel()

	dc, err := p.channel.PublishWithDeferredConfirmWithContext(ctx,
		"",
		p.opts.Queue,
		false,
		false,
		amqp.Publishing{
			ContentType:  publisher.ContentType,
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    event.OccurredAt,
			Type:         domain.BillCreatedEventName,
			AppId:        event.Source,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("could not publish to %s: %w", p.opts.Queue, err)
	}

	acked, err := dc.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("could not confirm publish to %s: %w", p.opts.Queue, err)
	}
	if !acked {
		return fmt.Errorf("could not confirm publish to %s: %w", p.opts.Queue, ErrNacked)
	}

	logger.Debug(ctx, "bill created event confirmed",
		zap.Int64("bill_id", event.BillID),
		zap.String("queue", p.opts.Queue))

	return nil
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closed = true
	if p.channel != nil {
		_ = p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		conn := p.conn
		p.conn = nil
		if err := conn.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			return fmt.Errorf("could not close amqp connection: %w", err)
		}
	}

	return nil
}

// ensureChannel re-dials only when the connection or channel was closed.
// Callers hold p.mu.
func (p *Publisher) ensureChannel(ctx context.Context) error {
	if p.conn != nil && !p.conn.IsClosed() && p.channel != nil && !p.channel.IsClosed() {
		return nil
	}

	if p.channel != nil {
		_ = p.channel.Close()
		p.channel = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}

	conn, err := amqp.DialConfig(p.opts.URL, amqp.Config{
		Heartbeat:  10 * time.Second,
		Locale:     "en_US",
		Properties: amqp.Table{"connection_name": "bills-api"},
	})
	if err != nil {
		return fmt.Errorf("could not connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()

		return fmt.Errorf("could not open amqp channel: %w", err)
	}

	if _, err := ch.QueueDeclare(p.opts.Queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()

		return fmt.Errorf("could not declare queue %s: %w", p.opts.Queue, err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = ch.Close()
		_ = conn.Close()

		return fmt.Errorf("could not enable publisher confirms: %w", err)
	}

	p.conn = conn
	p.channel = ch
	logger.Info(ctx, "connected to rabbitmq", zap.String("queue", p.opts.Queue))

	return nil
}

var _ publisher.Publisher = (*Publisher)(nil)
