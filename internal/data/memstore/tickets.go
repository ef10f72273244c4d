package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/data/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type ticketRepo struct{ s *Store }

// CreateBatch enforces the same unique code and held-seat rules as the
// Postgres indexes. The batch is checked as a whole before anything is
// written.
func (r *ticketRepo) CreateBatch(ctx context.Context, tickets []*entity.Ticket) error {
	defer r.s.lock(ctx)()

	codes := make(map[string]bool)
	seats := make(map[string]bool)
	for _, t := range r.s.tickets {
		codes[t.Code] = true
		if t.Seat != nil && t.Status.HoldsInventory() {
			seats[t.EventID.String()+"|"+t.Seat.Key()] = true
		}
	}

	for _, t := range tickets {
		if codes[t.Code] {
			return fmt.Errorf("create ticket %s: %w", t.Code, repository.ErrDuplicateCode)
		}
		codes[t.Code] = true
		if t.Seat != nil && t.Status.HoldsInventory() {
			key := t.EventID.String() + "|" + t.Seat.Key()
			if seats[key] {
				return fmt.Errorf("create ticket %s: %w", t.SeatLabel, repository.ErrSeatHeld)
			}
			seats[key] = true
		}
	}

	for _, t := range tickets {
		r.s.tickets[t.ID] = cloneTicket(t)
	}
	return nil
}

func (r *ticketRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Ticket, error) {
	defer r.s.lock(ctx)()

	if t, ok := r.s.tickets[id]; ok {
		return cloneTicket(t), nil
	}
	return nil, nil
}

func (r *ticketRepo) FindByCode(ctx context.Context, code string) (*entity.Ticket, error) {
	defer r.s.lock(ctx)()

	code = strings.ToUpper(code)
	for _, t := range r.s.tickets {
		if t.Code == code {
			return cloneTicket(t), nil
		}
	}
	return nil, nil
}

func (r *ticketRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	defer r.s.lock(ctx)()

	for _, t := range r.s.tickets {
		if t.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *ticketRepo) CountHeld(ctx context.Context, eventID uuid.UUID) (int, error) {
	defer r.s.lock(ctx)()

	held := 0
	for _, t := range r.s.tickets {
		if t.EventID == eventID && t.Status.HoldsInventory() {
			held++
		}
	}
	return held, nil
}

func (r *ticketRepo) CountHeldByZone(ctx context.Context, eventID uuid.UUID) (map[string]int, error) {
	defer r.s.lock(ctx)()

	held := make(map[string]int)
	for _, t := range r.s.tickets {
		if t.EventID == eventID && t.Seat != nil && t.Status.HoldsInventory() {
			held[t.Seat.Zone]++
		}
	}
	return held, nil
}

func (r *ticketRepo) FindHeldSeats(ctx context.Context, eventID uuid.UUID) ([]entity.SeatAssignment, error) {
	defer r.s.lock(ctx)()

	var seats []entity.SeatAssignment
	for _, t := range r.s.tickets {
		if t.EventID == eventID && t.Seat != nil && t.Status.HoldsInventory() {
			seats = append(seats, *t.Seat)
		}
	}
	sort.Slice(seats, func(i, j int) bool {
		a, b := seats[i], seats[j]
		if a.Zone != b.Zone {
			return a.Zone < b.Zone
		}
		if a.Row != b.Row {
			return a.Row < b.Row
		}
		return a.Number < b.Number
	})
	return seats, nil
}

func (r *ticketRepo) filter(keep func(*entity.Ticket) bool) []*entity.Ticket {
	var out []*entity.Ticket
	for _, t := range r.s.tickets {
		if keep(t) {
			out = append(out, cloneTicket(t))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PurchasedAt.Equal(out[j].PurchasedAt) {
			return out[i].Code < out[j].Code
		}
		return out[i].PurchasedAt.After(out[j].PurchasedAt)
	})
	return out
}

func (r *ticketRepo) FindByUser(ctx context.Context, userID uuid.UUID, status entity.TicketStatus) ([]*entity.Ticket, error) {
	defer r.s.lock(ctx)()

	return r.filter(func(t *entity.Ticket) bool {
		return t.UserID == userID && (status == "" || t.Status == status)
	}), nil
}

func (r *ticketRepo) FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]*entity.Ticket, error) {
	defer r.s.lock(ctx)()

	return r.filter(func(t *entity.Ticket) bool {
		return t.PaymentID != nil && *t.PaymentID == paymentID
	}), nil
}

func (r *ticketRepo) FindAll(ctx context.Context, status entity.TicketStatus, limit, offset int) ([]*entity.Ticket, error) {
	defer r.s.lock(ctx)()

	all := r.filter(func(t *entity.Ticket) bool { return status == "" || t.Status == status })
	return page(all, limit, offset), nil
}

func (r *ticketRepo) CountAll(ctx context.Context, status entity.TicketStatus) (int64, error) {
	defer r.s.lock(ctx)()

	var n int64
	for _, t := range r.s.tickets {
		if status == "" || t.Status == status {
			n++
		}
	}
	return n, nil
}

func (r *ticketRepo) Search(ctx context.Context, query string, limit int) ([]*entity.Ticket, error) {
	defer r.s.lock(ctx)()

	q := strings.ToLower(query)
	found := r.filter(func(t *entity.Ticket) bool {
		if strings.Contains(strings.ToLower(t.Code), q) {
			return true
		}
		u, ok := r.s.users[t.UserID]
		return ok && strings.Contains(strings.ToLower(u.Email), q)
	})
	return page(found, limit, 0), nil
}

func (r *ticketRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.TicketStatus) (bool, error) {
	defer r.s.lock(ctx)()

	t, ok := r.s.tickets[id]
	if !ok || t.Status != from {
		return false, nil
	}
	t.Status = to
	t.UpdatedAt = r.s.now()
	return true, nil
}

func (r *ticketRepo) UpdateQR(ctx context.Context, id uuid.UUID, url, payload string) error {
	defer r.s.lock(ctx)()

	t, ok := r.s.tickets[id]
	if !ok {
		return fmt.Errorf("ticket %s not found", id)
	}
	t.QRCodeURL = &url
	t.QRPayload = &payload
	t.UpdatedAt = r.s.now()
	return nil
}

func (r *ticketRepo) InvalidateByEvent(ctx context.Context, eventID uuid.UUID) (int64, error) {
	defer r.s.lock(ctx)()

	var n int64
	for _, t := range r.s.tickets {
		if t.EventID == eventID && t.Status != entity.TicketInvalid {
			t.Status = entity.TicketInvalid
			t.UpdatedAt = r.s.now()
			n++
		}
	}
	return n, nil
}

func (r *ticketRepo) Stats(ctx context.Context, since time.Time) (*entity.TicketStats, error) {
	defer r.s.lock(ctx)()

	stats := &entity.TicketStats{ByStatus: make(map[entity.TicketStatus]int64)}
	monthly := make(map[string]*entity.MonthlyRevenue)
	for _, t := range r.s.tickets {
		stats.Total++
		stats.ByStatus[t.Status]++
		if !t.Status.HoldsInventory() {
			continue
		}
		stats.Revenue = stats.Revenue.Add(t.Price)
		if t.PurchasedAt.Before(since) {
			continue
		}
		month := t.PurchasedAt.UTC().Format("2006-01")
		m, ok := monthly[month]
		if !ok {
			m = &entity.MonthlyRevenue{Month: month, Revenue: decimal.Zero}
			monthly[month] = m
		}
		m.Tickets++
		m.Revenue = m.Revenue.Add(t.Price)
	}

	for _, m := range monthly {
		stats.MonthlyRevenue = append(stats.MonthlyRevenue, *m)
	}
	sort.Slice(stats.MonthlyRevenue, func(i, j int) bool {
		return stats.MonthlyRevenue[i].Month < stats.MonthlyRevenue[j].Month
	})
	return stats, nil
}
