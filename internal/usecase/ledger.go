package usecase

import (
	"context"
	"strings"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/data/repository"
)

// CapacityLedger derives remaining inventory from the ticket store. Nothing
// is cached: every call counts held tickets again.
type CapacityLedger struct {
	tickets repository.TicketRepository
}

func NewCapacityLedger(tickets repository.TicketRepository) *CapacityLedger {
	return &CapacityLedger{tickets: tickets}
}

func (l *CapacityLedger) Remaining(ctx context.Context, ev *entity.Event) (int, error) {
	held, err := l.tickets.CountHeld(ctx, ev.ID)
	if err != nil {
		return 0, err
	}
	return clampZero(ev.Capacity - held), nil
}

func (l *CapacityLedger) RemainingInZone(ctx context.Context, ev *entity.Event, zone entity.Zone) (int, error) {
	byZone, err := l.tickets.CountHeldByZone(ctx, ev.ID)
	if err != nil {
		return 0, err
	}
	return clampZero(zone.Capacity - heldInZone(byZone, zone.Name)), nil
}

// ZoneAvailability returns remaining seats keyed by zone name.
func (l *CapacityLedger) ZoneAvailability(ctx context.Context, ev *entity.Event) (map[string]int, error) {
	zones := ev.Zones()
	if len(zones) == 0 {
		return nil, nil
	}

	byZone, err := l.tickets.CountHeldByZone(ctx, ev.ID)
	if err != nil {
		return nil, err
	}

	out := make(map[string]int, len(zones))
	for _, z := range zones {
		out[z.Name] = clampZero(z.Capacity - heldInZone(byZone, z.Name))
	}
	return out, nil
}

func heldInZone(byZone map[string]int, name string) int {
	if n, ok := byZone[name]; ok {
		return n
	}
	for k, n := range byZone {
		if strings.EqualFold(k, name) {
			return n
		}
	}
	return 0
}

func clampZero(n int) int {
	if n < 0 {
		return 0
	}
	return n
}
