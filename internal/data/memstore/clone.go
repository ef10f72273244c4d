package memstore

import (
	"maps"
	"slices"

	"event-ticketing/internal/data/entity"
)

func cloneUser(u *entity.User) *entity.User {
	cp := *u
	return &cp
}

func cloneSession(s *entity.Session) *entity.Session {
	cp := *s
	return &cp
}

func cloneEvent(e *entity.Event) *entity.Event {
	cp := *e
	if zoned, ok := e.Seating.(entity.ZonedSeating); ok {
		cp.Seating = entity.ZonedSeating{Zones: slices.Clone(zoned.Zones)}
	}
	return &cp
}

func cloneTicket(t *entity.Ticket) *entity.Ticket {
	cp := *t
	if t.Seat != nil {
		seat := *t.Seat
		cp.Seat = &seat
	}
	return &cp
}

func clonePayment(p *entity.Payment) *entity.Payment {
	cp := *p
	cp.Purchase.Seats = slices.Clone(p.Purchase.Seats)
	cp.Metadata = maps.Clone(p.Metadata)
	cp.TicketIDs = slices.Clone(p.TicketIDs)
	return &cp
}
