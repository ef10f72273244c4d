// Package queue delivers payment confirmations to the issuing bridge and
// publishes ticket events. RabbitMQ is used when configured; otherwise
// messages are handled in process.
package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

const (
	PaymentConfirmedQueue = "payment.confirmed"
	TicketsIssuedQueue    = "tickets.issued"
)

// PaymentConfirmed carries the payment id, which doubles as the idempotency
// key on the consumer side.
type PaymentConfirmed struct {
	PaymentID  uuid.UUID `json:"payment_id"`
	Provider   string    `json:"provider"`
	ReceivedAt time.Time `json:"received_at"`
}

type TicketsIssued struct {
	EventID   uuid.UUID   `json:"event_id"`
	UserID    uuid.UUID   `json:"user_id"`
	PaymentID *uuid.UUID  `json:"payment_id,omitempty"`
	TicketIDs []uuid.UUID `json:"ticket_ids"`
	Codes     []string    `json:"codes"`
	IssuedAt  time.Time   `json:"issued_at"`
}

// ConfirmHandler processes one confirmation. A non-internal error means the
// message was handled and must not be redelivered.
type ConfirmHandler func(ctx context.Context, paymentID uuid.UUID) error

type Publisher interface {
	PublishPaymentConfirmed(ctx context.Context, msg PaymentConfirmed) error
	PublishTicketsIssued(ctx context.Context, msg TicketsIssued) error
}
