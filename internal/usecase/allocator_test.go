package usecase

import (
	"context"
	"testing"

	"event-ticketing/internal/data/entity"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllocator_ExplicitSeats(t *testing.T) {
	f := newFixture(t)
	ev := f.zonedEvent(t)
	a := NewSeatAllocator(f.repo.Ticket)
	ctx := context.Background()

	got, err := a.Allocate(ctx, ev, "", 2, []SeatRequest{
		{Zone: "floor", Row: 1, Number: 2},
		{Zone: "Balcony", Row: 2, Number: 3},
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, entity.SeatAssignment{Zone: "Floor", Row: 1, Number: 2}, got[0].Seat)
	assert.Equal(t, entity.SeatAssignment{Zone: "Balcony", Row: 2, Number: 3}, got[1].Seat)
	assert.Equal(t, "400", got[1].Zone.Price.String())
}

func TestAllocator_ExplicitSeatErrors(t *testing.T) {
	f := newFixture(t)
	ev := f.zonedEvent(t)
	a := NewSeatAllocator(f.repo.Ticket)
	ctx := context.Background()

	_, err := f.issuer.Purchase(ctx, PurchaseInput{
		EventID: ev.ID, UserID: ev.OrganizerID, Quantity: 1,
		Seats: []SeatRequest{{Zone: "Floor", Row: 1, Number: 1}},
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		zone  string
		qty   int
		seats []SeatRequest
		want  error
	}{
		{"taken", "", 1, []SeatRequest{{Zone: "Floor", Row: 1, Number: 1}}, ErrSeatTaken},
		{"out of range", "", 1, []SeatRequest{{Zone: "Floor", Row: 2, Number: 1}}, ErrInvalidSeat},
		{"number past capacity", "", 1, []SeatRequest{{Zone: "Balcony", Row: 2, Number: 4}}, ErrInvalidSeat},
		{"twice in batch", "Balcony", 2, []SeatRequest{{Row: 1, Number: 1}, {Row: 1, Number: 1}}, ErrInvalidSeat},
		{"unknown zone", "", 1, []SeatRequest{{Zone: "Pit", Row: 1, Number: 1}}, ErrUnknownZone},
		{"no zone", "", 1, []SeatRequest{{Row: 1, Number: 1}}, ErrZoneRequired},
		{"count mismatch", "Balcony", 3, []SeatRequest{{Row: 1, Number: 1}}, ErrSeatingMismatch},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.Allocate(ctx, ev, tt.zone, tt.qty, tt.seats)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAllocator_RandomSkipsTakenSeats(t *testing.T) {
	f := newFixture(t)
	ev := f.zonedEvent(t)
	a := NewSeatAllocator(f.repo.Ticket)
	ctx := context.Background()

	_, err := f.issuer.Purchase(ctx, PurchaseInput{
		EventID: ev.ID, UserID: ev.OrganizerID, Quantity: 1,
		Seats: []SeatRequest{{Zone: "Floor", Row: 1, Number: 1}},
	})
	require.NoError(t, err)

	got, err := a.Allocate(ctx, ev, "Floor", 1, nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, entity.SeatAssignment{Zone: "Floor", Row: 1, Number: 2}, got[0].Seat)

	_, err = a.Allocate(ctx, ev, "Floor", 2, nil)
	assert.ErrorIs(t, err, ErrZoneFull)
}

func TestAllocator_RandomBatchHasNoDuplicates(t *testing.T) {
	f := newFixture(t)
	ev := f.zonedEvent(t)
	a := NewSeatAllocator(f.repo.Ticket)

	got, err := a.Allocate(context.Background(), ev, "Balcony", 6, nil)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, g := range got {
		assert.False(t, seen[g.Seat.Key()], "duplicate seat %s", g.Seat.Label())
		seen[g.Seat.Key()] = true
	}
	assert.Len(t, seen, 6)
}

func TestAllocator_RandomNeedsZone(t *testing.T) {
	f := newFixture(t)
	ev := f.zonedEvent(t)

	_, err := NewSeatAllocator(f.repo.Ticket).Allocate(context.Background(), ev, "", 1, nil)
	assert.ErrorIs(t, err, ErrZoneRequired)
}
