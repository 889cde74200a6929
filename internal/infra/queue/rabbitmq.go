package mq

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/ohfdesk/ohfdesk/internal/config"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// DialFunc opens a new broker connection. Used for the first dial and for reconnects.
type DialFunc func() (*amqp.Connection, error)

// tableCarrier adapts amqp.Table to TextMapCarrier for OpenTelemetry propagation
type tableCarrier struct {
	table amqp.Table
}

func (c tableCarrier) Get(key string) string {
	if val, ok := c.table[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
		return fmt.Sprintf("%v", val)
	}
	return ""
}

func (c tableCarrier) Set(key, value string) {
	c.table[key] = value
}

func (c tableCarrier) Keys() []string {
	keys := make([]string, 0, len(c.table))
	for k := range c.table {
		keys = append(keys, k)
	}
	return keys
}

// DeclareTopology declares the notify exchange and the durable job queue bound to it.
func DeclareTopology(ch *amqp.Channel, cfg *config.Config) error {
	if err := ch.ExchangeDeclare(cfg.RabbitMQ.ExchangeName.Notify, "direct", true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}
	q, err := ch.QueueDeclare(cfg.RabbitMQ.Queue, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}
	if err := ch.QueueBind(q.Name, cfg.RabbitMQ.RoutingKey.Notify, cfg.RabbitMQ.ExchangeName.Notify, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

type Publisher struct {
	mu     sync.Mutex
	conn   *amqp.Connection
	ch     *amqp.Channel
	dial   DialFunc
	log    *zap.Logger
	cfg    *config.Config
	closed bool
}

func NewPublisher(conn *amqp.Connection, log *zap.Logger, cfg *config.Config, dial DialFunc) (*Publisher, error) {
	p := &Publisher{conn: conn, dial: dial, log: log, cfg: cfg}
	if err := p.openChannel(); err != nil {
		return nil, err
	}
	return p, nil
}

func (p *Publisher) openChannel() error {
	ch, err := p.conn.Channel()
	if err != nil {
		return err
	}
	if err := DeclareTopology(ch, p.cfg); err != nil {
		_ = ch.Close()
		return err
	}
	p.ch = ch
	return nil
}

// reconnect must be called with p.mu held.
func (p *Publisher) reconnect() error {
	if p.dial == nil {
		return amqp.ErrClosed
	}
	if p.conn == nil || p.conn.IsClosed() {
		conn, err := p.dial()
		if err != nil {
			return fmt.Errorf("redial rabbitmq: %w", err)
		}
		p.conn = conn
	}
	return p.openChannel()
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	if p.ch != nil {
		return p.ch.Close()
	}
	return nil
}

func (p *Publisher) PublishJSON(ctx context.Context, exchangeName string, routingKey string, body any) error {
	b, err := sonic.Marshal(body)
	if err != nil {
		return err
	}

	tracer := otel.Tracer(p.cfg.App.Name)
	ctx, span := tracer.Start(ctx, "rabbitmq.publish",
		trace.WithAttributes(
			attribute.String("messaging.system", "rabbitmq"),
			attribute.String("messaging.destination", exchangeName),
			attribute.String("messaging.destination_kind", "exchange"),
			attribute.String("messaging.rabbitmq.routing_key", routingKey),
		))
	defer span.End()

	headers := make(amqp.Table)
	otel.GetTextMapPropagator().Inject(ctx, tableCarrier{table: headers})

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now(),
		Body:         b,
		Headers:      headers,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return amqp.ErrClosed
	}

	err = p.ch.PublishWithContext(ctx, exchangeName, routingKey, false, false, publishing)
	if errors.Is(err, amqp.ErrClosed) || (err == nil && p.ch.IsClosed()) {
		p.log.Warn("rabbitmq channel closed, reconnecting", zap.Error(err))
		if rerr := p.reconnect(); rerr != nil {
			span.RecordError(rerr)
			return rerr
		}
		err = p.ch.PublishWithContext(ctx, exchangeName, routingKey, false, false, publishing)
	}
	if err != nil {
		span.RecordError(err)
		return err
	}

	span.SetAttributes(attribute.Int("messaging.message.body.size", len(b)))
	return nil
}

type Consumer struct {
	ch  *amqp.Channel
	q   amqp.Queue
	log *zap.Logger
	cfg *config.Config
}

func NewConsumer(conn *amqp.Connection, queueName string, prefetch int, log *zap.Logger, cfg *config.Config) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, err
	}
	if prefetch <= 0 {
		prefetch = 10
	}
	if err := ch.Qos(prefetch, 0, false); err != nil {
		return nil, err
	}
	if err := DeclareTopology(ch, cfg); err != nil {
		return nil, err
	}
	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return nil, err
	}
	return &Consumer{ch: ch, q: q, log: log, cfg: cfg}, nil
}

func (c *Consumer) Close() error { return c.ch.Close() }

// Handle consumes until ctx is done. A handler error Nacks and requeues the delivery.
func (c *Consumer) Handle(ctx context.Context, handler func(context.Context, []byte) error) error {
	msgs, err := c.ch.Consume(c.q.Name, "", false, false, false, false, nil)
	if err != nil {
		return err
	}

	tracer := otel.Tracer(c.cfg.App.Name)
	propagator := otel.GetTextMapPropagator()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-msgs:
			if !ok {
				return errors.New("consumer channel closed")
			}

			msgCtx := ctx
			if m.Headers != nil {
				msgCtx = propagator.Extract(ctx, tableCarrier{table: m.Headers})
			}

			msgCtx, span := tracer.Start(msgCtx, "rabbitmq.consume",
				trace.WithAttributes(
					attribute.String("messaging.system", "rabbitmq"),
					attribute.String("messaging.destination", c.q.Name),
					attribute.String("messaging.destination_kind", "queue"),
					attribute.String("messaging.operation", "receive"),
					attribute.Int("messaging.message.body.size", len(m.Body)),
				))

			if err := handler(msgCtx, m.Body); err != nil {
				span.RecordError(err)
				span.End()
				_ = m.Nack(false, !m.Redelivered)
				c.log.Error("consume error", zap.Error(err), zap.Bool("redelivered", m.Redelivered))
				continue
			}

			_ = m.Ack(false)
			span.End()
		}
	}
}
