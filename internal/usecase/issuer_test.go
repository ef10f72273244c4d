package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"event-ticketing/internal/data/entity"
	"event-ticketing/pkg/apperror"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPurchase_SingleSeatThenSoldOut(t *testing.T) {
	f := newFixture(t)
	ev := f.freeEvent(t, 1)
	ctx := context.Background()

	tickets, err := f.issuer.Purchase(ctx, PurchaseInput{EventID: ev.ID, UserID: uuid.New(), Quantity: 1})
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, entity.TicketActive, tickets[0].Status)
	assert.Equal(t, "500", tickets[0].Price.String())
	assert.Equal(t, entity.GeneralAdmission, tickets[0].SeatLabel)

	_, err = f.issuer.Purchase(ctx, PurchaseInput{EventID: ev.ID, UserID: uuid.New(), Quantity: 1})
	require.ErrorIs(t, err, ErrInsufficientCapacity)
	assert.Equal(t, 0, apperror.From(err).Details["remaining"])
}

func TestPurchase_ConcurrentNeverOversells(t *testing.T) {
	f := newFixture(t)
	const capacity, buyers = 5, 20
	ev := f.freeEvent(t, capacity)

	var ok, soldOut atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.issuer.Purchase(context.Background(), PurchaseInput{EventID: ev.ID, UserID: uuid.New(), Quantity: 1})
			switch {
			case err == nil:
				ok.Add(1)
			case apperror.From(err).Code == ErrInsufficientCapacity.Code:
				soldOut.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, capacity, ok.Load())
	assert.EqualValues(t, buyers-capacity, soldOut.Load())
	assert.Equal(t, capacity, f.held(t, ev.ID))
}

func TestPurchase_ConcurrentSameSeat(t *testing.T) {
	f := newFixture(t)
	ev := f.zonedEvent(t)

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.issuer.Purchase(context.Background(), PurchaseInput{
				EventID: ev.ID, UserID: uuid.New(), Quantity: 1,
				Seats: []SeatRequest{{Zone: "Floor", Row: 1, Number: 1}},
			})
		}(i)
	}
	wg.Wait()

	var succeeded, taken int
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else if assert.ErrorIs(t, err, ErrSeatTaken) {
			taken++
		}
	}
	assert.Equal(t, 1, succeeded)
	assert.Equal(t, 1, taken)
}

func TestPurchase_AllOrNothing(t *testing.T) {
	f := newFixture(t)
	ev := f.freeEvent(t, 5)
	ctx := context.Background()

	_, err := f.issuer.Purchase(ctx, PurchaseInput{EventID: ev.ID, UserID: uuid.New(), Quantity: 2})
	require.NoError(t, err)

	_, err = f.issuer.Purchase(ctx, PurchaseInput{EventID: ev.ID, UserID: uuid.New(), Quantity: 5})
	require.ErrorIs(t, err, ErrInsufficientCapacity)
	assert.Equal(t, 3, apperror.From(err).Details["remaining"])
	assert.Equal(t, 2, f.held(t, ev.ID))
}

func TestPurchase_SeatFailureAbortsBatch(t *testing.T) {
	f := newFixture(t)
	ev := f.zonedEvent(t)
	ctx := context.Background()

	_, err := f.issuer.Purchase(ctx, PurchaseInput{
		EventID: ev.ID, UserID: uuid.New(), Quantity: 1,
		Seats: []SeatRequest{{Zone: "Balcony", Row: 1, Number: 3}},
	})
	require.NoError(t, err)

	_, err = f.issuer.Purchase(ctx, PurchaseInput{
		EventID: ev.ID, UserID: uuid.New(), Quantity: 2, Zone: "Balcony",
		Seats: []SeatRequest{{Row: 1, Number: 2}, {Row: 1, Number: 3}},
	})
	require.ErrorIs(t, err, ErrSeatTaken)
	assert.Equal(t, "Balcony, row 1, seat 3", apperror.From(err).Details["seat"])
	assert.Equal(t, 1, f.held(t, ev.ID))
}

func TestPurchase_ZonePriceSnapshot(t *testing.T) {
	f := newFixture(t)
	ev := f.zonedEvent(t)

	tickets, err := f.issuer.Purchase(context.Background(), PurchaseInput{
		EventID: ev.ID, UserID: uuid.New(), Quantity: 2, Zone: "Floor",
	})
	require.NoError(t, err)
	for _, tk := range tickets {
		assert.Equal(t, "1000", tk.Price.String())
		require.NotNil(t, tk.Seat)
		assert.Equal(t, "Floor", tk.Seat.Zone)
	}
	assert.NotEqual(t, tickets[0].Code, tickets[1].Code)
}

func TestPurchase_Rejections(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	past := f.createEventAt(t, entity.FreeSeating{}, 10, time.Now().Add(-time.Hour))
	free := f.freeEvent(t, 10)

	tests := []struct {
		name string
		in   PurchaseInput
		want error
	}{
		{"zero quantity", PurchaseInput{EventID: free.ID, Quantity: 0}, ErrInvalidQuantity},
		{"unknown event", PurchaseInput{EventID: uuid.New(), Quantity: 1}, ErrEventNotFound},
		{"past event", PurchaseInput{EventID: past.ID, Quantity: 1}, ErrEventExpired},
		{"seat on free event", PurchaseInput{EventID: free.ID, Quantity: 1, Zone: "Floor"}, ErrInvalidSeat},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.in.UserID = uuid.New()
			_, err := f.issuer.Purchase(ctx, tt.in)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPurchase_QRFailureIsNotFatal(t *testing.T) {
	f := newFixture(t)
	f.artifacts.err = errBoom
	ev := f.freeEvent(t, 3)

	tickets, err := f.issuer.Purchase(context.Background(), PurchaseInput{EventID: ev.ID, UserID: uuid.New(), Quantity: 2})
	require.NoError(t, err)
	require.Len(t, tickets, 2)
	assert.Nil(t, tickets[0].QRCodeURL)
	assert.Equal(t, 2, f.held(t, ev.ID))
}

func TestPurchase_AttachesQR(t *testing.T) {
	f := newFixture(t)
	ev := f.freeEvent(t, 3)

	tickets, err := f.issuer.Purchase(context.Background(), PurchaseInput{EventID: ev.ID, UserID: uuid.New(), Quantity: 2})
	require.NoError(t, err)
	assert.Equal(t, 2, f.artifacts.count())

	stored, err := f.repo.Ticket.FindByCode(context.Background(), tickets[0].Code)
	require.NoError(t, err)
	require.NotNil(t, stored.QRCodeURL)
	require.NotNil(t, stored.QRPayload)

	payload, err := f.qr.Parse(*stored.QRPayload)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, payload.TicketID)
	assert.Equal(t, "Active", payload.Status)
}

func TestIssueWith_HookErrorRollsBack(t *testing.T) {
	f := newFixture(t)
	ev := f.freeEvent(t, 3)

	_, err := f.issuer.IssueWith(context.Background(),
		PurchaseInput{EventID: ev.ID, UserID: uuid.New(), Quantity: 2},
		IssueHooks{Issued: func(ctx context.Context, tickets []*entity.Ticket) error { return errBoom }},
	)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindInternal))
	assert.Equal(t, 0, f.held(t, ev.ID))
}

func TestIssueWith_BeforeHookRunsAheadOfCapacityCheck(t *testing.T) {
	f := newFixture(t)
	ev := f.freeEvent(t, 1)

	_, err := f.issuer.IssueWith(context.Background(),
		PurchaseInput{EventID: ev.ID, UserID: uuid.New(), Quantity: 5},
		IssueHooks{Before: func(ctx context.Context) error { return errBoom }},
	)
	require.Error(t, err)
	assert.True(t, apperror.IsKind(err, apperror.KindInternal))
	assert.Equal(t, 0, f.held(t, ev.ID))
}
