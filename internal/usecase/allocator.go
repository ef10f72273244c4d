package usecase

import (
	"context"
	"math/rand/v2"
	"sort"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/data/repository"
)

// SeatRequest is an explicit seat pick. Zone may be empty when the purchase
// names a default zone.
type SeatRequest struct {
	Zone   string
	Row    int
	Number int
}

type Allocation struct {
	Zone entity.Zone
	Seat entity.SeatAssignment
}

// SeatAllocator maps a purchase on a zoned event to concrete seats that no
// held ticket occupies. It only reads; the issuer persists the result inside
// the same transaction.
type SeatAllocator struct {
	tickets repository.TicketRepository
	shuffle func(n int, swap func(i, j int))
}

func NewSeatAllocator(tickets repository.TicketRepository) *SeatAllocator {
	return &SeatAllocator{
		tickets: tickets,
		shuffle: rand.Shuffle,
	}
}

func (a *SeatAllocator) Allocate(ctx context.Context, ev *entity.Event, zoneRef string, quantity int, seats []SeatRequest) ([]Allocation, error) {
	var defaultZone *entity.Zone
	if zoneRef != "" {
		z, ok := ev.FindZone(zoneRef)
		if !ok {
			return nil, ErrUnknownZone.With("zone", zoneRef)
		}
		defaultZone = &z
	}

	held, err := a.tickets.FindHeldSeats(ctx, ev.ID)
	if err != nil {
		return nil, err
	}
	taken := make(map[string]struct{}, len(held))
	for _, s := range held {
		taken[s.Key()] = struct{}{}
	}

	if len(seats) > 0 {
		return a.explicit(ev, defaultZone, quantity, seats, taken)
	}
	if defaultZone == nil {
		return nil, ErrZoneRequired
	}
	return a.random(*defaultZone, quantity, taken)
}

func (a *SeatAllocator) explicit(ev *entity.Event, defaultZone *entity.Zone, quantity int, seats []SeatRequest, taken map[string]struct{}) ([]Allocation, error) {
	if len(seats) != quantity {
		return nil, ErrSeatingMismatch.With("quantity", quantity).With("seats", len(seats))
	}

	out := make([]Allocation, 0, len(seats))
	batch := make(map[string]struct{}, len(seats))
	for _, req := range seats {
		var zone entity.Zone
		switch {
		case req.Zone != "":
			z, ok := ev.FindZone(req.Zone)
			if !ok {
				return nil, ErrUnknownZone.With("zone", req.Zone)
			}
			zone = z
		case defaultZone != nil:
			zone = *defaultZone
		default:
			return nil, ErrZoneRequired
		}

		seat := entity.SeatAssignment{Zone: zone.Name, Row: req.Row, Number: req.Number}
		if zone.SeatIndex(req.Row, req.Number) < 0 {
			return nil, ErrInvalidSeat.With("seat", seat.Label())
		}
		if _, dup := batch[seat.Key()]; dup {
			return nil, ErrInvalidSeat.With("seat", seat.Label()).With("reason", "selected twice")
		}
		if _, ok := taken[seat.Key()]; ok {
			return nil, ErrSeatTaken.With("seat", seat.Label())
		}

		batch[seat.Key()] = struct{}{}
		out = append(out, Allocation{Zone: zone, Seat: seat})
	}
	return out, nil
}

func (a *SeatAllocator) random(zone entity.Zone, quantity int, taken map[string]struct{}) ([]Allocation, error) {
	free := make([]int, 0, zone.Capacity)
	for idx := 0; idx < zone.Capacity; idx++ {
		row, number := zone.SeatAt(idx)
		seat := entity.SeatAssignment{Zone: zone.Name, Row: row, Number: number}
		if _, ok := taken[seat.Key()]; !ok {
			free = append(free, idx)
		}
	}

	if len(free) < quantity {
		return nil, ErrZoneFull.With("zone", zone.Name).With("remaining", len(free))
	}

	a.shuffle(len(free), func(i, j int) { free[i], free[j] = free[j], free[i] })
	picked := free[:quantity]
	sort.Ints(picked)

	out := make([]Allocation, 0, quantity)
	for _, idx := range picked {
		row, number := zone.SeatAt(idx)
		out = append(out, Allocation{
			Zone: zone,
			Seat: entity.SeatAssignment{Zone: zone.Name, Row: row, Number: number},
		})
	}
	return out, nil
}
