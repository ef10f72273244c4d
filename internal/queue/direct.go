package queue

import (
	"context"

	"go.uber.org/zap"
)

// DirectDispatcher runs the confirmation handler inline. Ticket events are
// only logged.
type DirectDispatcher struct {
	handler ConfirmHandler
	log     *zap.Logger
}

func NewDirectDispatcher(log *zap.Logger) *DirectDispatcher {
	return &DirectDispatcher{log: log.With(zap.String("queue", "direct"))}
}

// OnConfirmed registers the handler. It must be set before the first publish.
func (d *DirectDispatcher) OnConfirmed(h ConfirmHandler) {
	d.handler = h
}

func (d *DirectDispatcher) PublishPaymentConfirmed(ctx context.Context, msg PaymentConfirmed) error {
	if d.handler == nil {
		d.log.Warn("No confirmation handler registered", zap.String("payment_id", msg.PaymentID.String()))
		return nil
	}
	return d.handler(ctx, msg.PaymentID)
}

func (d *DirectDispatcher) PublishTicketsIssued(ctx context.Context, msg TicketsIssued) error {
	d.log.Debug("Tickets issued",
		zap.String("event_id", msg.EventID.String()),
		zap.Strings("codes", msg.Codes),
	)
	return nil
}
