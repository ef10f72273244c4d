package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"event-ticketing/pkg/apperror"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// AMQPBroker owns one connection and one publishing channel. Publishing is
// serialized because amqp channels are not safe for concurrent use.
type AMQPBroker struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	mu   sync.Mutex
	log  *zap.Logger
}

func NewAMQPBroker(url string, log *zap.Logger) (*AMQPBroker, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	for _, name := range []string{PaymentConfirmedQueue, TicketsIssuedQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("declare queue %s: %w", name, err)
		}
	}

	return &AMQPBroker{
		conn: conn,
		ch:   ch,
		log:  log.With(zap.String("queue", "amqp")),
	}, nil
}

func (b *AMQPBroker) publish(ctx context.Context, queue string, msg any) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", queue, err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	err = b.ch.PublishWithContext(ctx, "", queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	})
	if err != nil {
		b.log.Error("Publish failed", zap.Error(err), zap.String("queue", queue))
		return fmt.Errorf("publish to %s: %w", queue, err)
	}
	return nil
}

func (b *AMQPBroker) PublishPaymentConfirmed(ctx context.Context, msg PaymentConfirmed) error {
	return b.publish(ctx, PaymentConfirmedQueue, msg)
}

func (b *AMQPBroker) PublishTicketsIssued(ctx context.Context, msg TicketsIssued) error {
	return b.publish(ctx, TicketsIssuedQueue, msg)
}

// ConsumeConfirmations feeds payment.confirmed deliveries to h until ctx is
// done or the channel closes. Messages are acked once handled, including
// domain failures the bridge already recorded on the payment. Internal
// failures are requeued once and then dropped for manual reconciliation.
func (b *AMQPBroker) ConsumeConfirmations(ctx context.Context, h ConfirmHandler) error {
	ch, err := b.conn.Channel()
	if err != nil {
		return fmt.Errorf("open consumer channel: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(10, 0, false); err != nil {
		b.log.Warn("Set QoS failed", zap.Error(err))
	}

	deliveries, err := ch.ConsumeWithContext(ctx, PaymentConfirmedQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", PaymentConfirmedQueue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-deliveries:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			b.handle(ctx, d, h)
		}
	}
}

func (b *AMQPBroker) handle(ctx context.Context, d amqp.Delivery, h ConfirmHandler) {
	var msg PaymentConfirmed
	if err := json.Unmarshal(d.Body, &msg); err != nil {
		b.log.Error("Malformed confirmation dropped", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	err := h(ctx, msg.PaymentID)
	if err == nil || !apperror.IsKind(apperror.From(err), apperror.KindInternal) {
		_ = d.Ack(false)
		return
	}

	b.log.Error("Confirmation handling failed",
		zap.Error(err),
		zap.String("payment_id", msg.PaymentID.String()),
		zap.Bool("redelivered", d.Redelivered),
	)
	_ = d.Nack(false, !d.Redelivered)
}

func (b *AMQPBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ch.Close(); err != nil && !errors.Is(err, amqp.ErrClosed) {
		b.log.Warn("Close channel failed", zap.Error(err))
	}
	return b.conn.Close()
}
