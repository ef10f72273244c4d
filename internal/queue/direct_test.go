package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDirectDispatcher_CallsHandler(t *testing.T) {
	d := NewDirectDispatcher(zap.NewNop())

	var got uuid.UUID
	d.OnConfirmed(func(ctx context.Context, id uuid.UUID) error {
		got = id
		return nil
	})

	id := uuid.New()
	require.NoError(t, d.PublishPaymentConfirmed(context.Background(), PaymentConfirmed{PaymentID: id}))
	assert.Equal(t, id, got)
}

func TestDirectDispatcher_ReturnsHandlerError(t *testing.T) {
	d := NewDirectDispatcher(zap.NewNop())
	boom := errors.New("boom")
	d.OnConfirmed(func(ctx context.Context, id uuid.UUID) error { return boom })

	err := d.PublishPaymentConfirmed(context.Background(), PaymentConfirmed{PaymentID: uuid.New()})
	assert.ErrorIs(t, err, boom)
}

func TestDirectDispatcher_NoHandlerIsNoop(t *testing.T) {
	d := NewDirectDispatcher(zap.NewNop())
	assert.NoError(t, d.PublishPaymentConfirmed(context.Background(), PaymentConfirmed{PaymentID: uuid.New()}))
	assert.NoError(t, d.PublishTicketsIssued(context.Background(), TicketsIssued{EventID: uuid.New()}))
}
