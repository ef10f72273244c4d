package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/data/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func (f *fixture) pendingPayment(t *testing.T, ev *entity.Event, qty int, spec entity.PurchaseSpec) *entity.Payment {
	t.Helper()
	now := time.Now()
	p := &entity.Payment{
		BaseNoDelete: entity.BaseNoDelete{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		EventID:      ev.ID,
		UserID:       uuid.New(),
		Quantity:     qty,
		Amount:       decimal.NewFromInt(int64(500 * qty)),
		Currency:     "RUB",
		Status:       entity.PaymentPending,
		Method:       entity.MethodMock,
		Purchase:     spec,
		Metadata:     map[string]any{},
	}
	require.NoError(t, f.repo.Payment.Create(context.Background(), p))
	return p
}

func TestBridge_ConfirmIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ev := f.freeEvent(t, 10)
	p := f.pendingPayment(t, ev, 3, entity.PurchaseSpec{})
	bridge := NewPaymentBridge(f.repo, f.issuer, nil, zap.NewNop())
	ctx := context.Background()

	first, err := bridge.OnPaymentConfirmed(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, first.NoOp)
	assert.Len(t, first.Tickets, 3)

	second, err := bridge.OnPaymentConfirmed(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, second.NoOp)
	assert.Empty(t, second.Tickets)

	stored, err := f.repo.Payment.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentSucceeded, stored.Status)
	assert.NotNil(t, stored.ConfirmedAt)
	assert.Len(t, stored.TicketIDs, 3)
	assert.Equal(t, 3, f.held(t, ev.ID))
}

func TestBridge_ConcurrentDeliveriesIssueOnce(t *testing.T) {
	f := newFixture(t)
	ev := f.freeEvent(t, 10)
	p := f.pendingPayment(t, ev, 2, entity.PurchaseSpec{})
	bridge := NewPaymentBridge(f.repo, f.issuer, nil, zap.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := bridge.OnPaymentConfirmed(context.Background(), p.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, f.held(t, ev.ID))
}

// rendezvousPayments holds the first n FindByID callers until all of them
// have read, so every delivery starts from the same pending snapshot.
type rendezvousPayments struct {
	repository.PaymentRepository
	waiting sync.WaitGroup
	calls   atomic.Int32
	n       int32
}

func newRendezvousPayments(inner repository.PaymentRepository, n int) *rendezvousPayments {
	r := &rendezvousPayments{PaymentRepository: inner, n: int32(n)}
	r.waiting.Add(n)
	return r
}

func (r *rendezvousPayments) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	p, err := r.PaymentRepository.FindByID(ctx, id)
	if r.calls.Add(1) <= r.n {
		r.waiting.Done()
		r.waiting.Wait()
	}
	return p, err
}

func TestBridge_OverlappingDeliveriesOfSeatedPayment(t *testing.T) {
	f := newFixture(t)
	ev := f.zonedEvent(t)
	p := f.pendingPayment(t, ev, 1, entity.PurchaseSpec{
		Seats: []entity.SeatAssignment{{Zone: "Floor", Row: 1, Number: 1}},
	})

	repo := *f.repo
	repo.Payment = newRendezvousPayments(f.repo.Payment, 2)
	bridge := NewPaymentBridge(&repo, f.issuer, nil, zap.NewNop())

	results := make([]*ConfirmResult, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = bridge.OnPaymentConfirmed(context.Background(), p.ID)
		}(i)
	}
	wg.Wait()

	issued, noops := 0, 0
	for i := range results {
		require.NoError(t, errs[i])
		require.NotNil(t, results[i])
		if results[i].NoOp {
			noops++
		} else {
			issued++
			assert.Len(t, results[i].Tickets, 1)
		}
	}
	assert.Equal(t, 1, issued)
	assert.Equal(t, 1, noops)

	stored, err := f.repo.Payment.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentSucceeded, stored.Status)
	assert.Nil(t, stored.FailureReason)
	assert.Equal(t, 1, f.held(t, ev.ID))
}

func TestBridge_OverlappingDeliveriesOfSoldOutEvent(t *testing.T) {
	f := newFixture(t)
	ev := f.freeEvent(t, 2)
	p := f.pendingPayment(t, ev, 2, entity.PurchaseSpec{})

	repo := *f.repo
	repo.Payment = newRendezvousPayments(f.repo.Payment, 2)
	bridge := NewPaymentBridge(&repo, f.issuer, nil, zap.NewNop())

	var wg sync.WaitGroup
	var noops atomic.Int32
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := bridge.OnPaymentConfirmed(context.Background(), p.ID)
			if assert.NoError(t, err) && res.NoOp {
				noops.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), noops.Load())
	assert.Equal(t, 2, f.held(t, ev.ID))
}

func TestBridge_IssuanceFailureMarksPaymentFailed(t *testing.T) {
	f := newFixture(t)
	ev := f.freeEvent(t, 1)
	p := f.pendingPayment(t, ev, 2, entity.PurchaseSpec{})
	bridge := NewPaymentBridge(f.repo, f.issuer, nil, zap.NewNop())
	ctx := context.Background()

	_, err := bridge.OnPaymentConfirmed(ctx, p.ID)
	require.ErrorIs(t, err, ErrInsufficientCapacity)

	stored, err := f.repo.Payment.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.PaymentFailed, stored.Status)
	require.NotNil(t, stored.FailureReason)
	assert.Contains(t, *stored.FailureReason, "INSUFFICIENT_CAPACITY")
	assert.Empty(t, stored.TicketIDs)

	// a redelivery is reported, not retried
	_, err = bridge.OnPaymentConfirmed(ctx, p.ID)
	assert.ErrorIs(t, err, ErrPaymentClosed)
	assert.Equal(t, 0, f.held(t, ev.ID))
}

func TestBridge_ReplaysStoredSeatSelection(t *testing.T) {
	f := newFixture(t)
	ev := f.zonedEvent(t)
	p := f.pendingPayment(t, ev, 1, entity.PurchaseSpec{
		Seats: []entity.SeatAssignment{{Zone: "Balcony", Row: 2, Number: 1}},
	})
	bridge := NewPaymentBridge(f.repo, f.issuer, nil, zap.NewNop())

	res, err := bridge.OnPaymentConfirmed(context.Background(), p.ID)
	require.NoError(t, err)
	require.Len(t, res.Tickets, 1)
	assert.Equal(t, "Balcony, row 2, seat 1", res.Tickets[0].SeatLabel)
	assert.Equal(t, p.ID, *res.Tickets[0].PaymentID)
}

func TestBridge_UnknownPayment(t *testing.T) {
	f := newFixture(t)
	bridge := NewPaymentBridge(f.repo, f.issuer, nil, zap.NewNop())

	_, err := bridge.OnPaymentConfirmed(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrPaymentNotFound)
}
