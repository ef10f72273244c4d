package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"event-ticketing/internal/data/entity"

	"github.com/google/uuid"
)

type paymentRepo struct{ s *Store }

func (r *paymentRepo) Create(ctx context.Context, payment *entity.Payment) error {
	defer r.s.lock(ctx)()

	if _, ok := r.s.payments[payment.ID]; ok {
		return fmt.Errorf("create payment %s: duplicate id", payment.ID)
	}
	r.s.payments[payment.ID] = clonePayment(payment)
	return nil
}

// withTickets fills TicketIDs the way the Postgres query derives them.
func (r *paymentRepo) withTickets(p *entity.Payment) *entity.Payment {
	cp := clonePayment(p)
	cp.TicketIDs = nil

	var tickets []*entity.Ticket
	for _, t := range r.s.tickets {
		if t.PaymentID != nil && *t.PaymentID == p.ID {
			tickets = append(tickets, t)
		}
	}
	sort.Slice(tickets, func(i, j int) bool { return tickets[i].CreatedAt.Before(tickets[j].CreatedAt) })
	for _, t := range tickets {
		cp.TicketIDs = append(cp.TicketIDs, t.ID)
	}
	return cp
}

func (r *paymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	defer r.s.lock(ctx)()

	p, ok := r.s.payments[id]
	if !ok {
		return nil, nil
	}
	return r.withTickets(p), nil
}

func (r *paymentRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	return r.FindByID(ctx, id)
}

func (r *paymentRepo) FindByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.Payment, error) {
	defer r.s.lock(ctx)()

	var out []*entity.Payment
	for _, p := range r.s.payments {
		if p.UserID == userID {
			out = append(out, r.withTickets(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, limit, 0), nil
}

func (r *paymentRepo) UpdateGateway(ctx context.Context, id uuid.UUID, providerRef, paymentURL string, metadata map[string]any) error {
	defer r.s.lock(ctx)()

	p, ok := r.s.payments[id]
	if !ok {
		return fmt.Errorf("payment %s not found", id)
	}
	p.ProviderRef = &providerRef
	p.PaymentURL = &paymentURL
	p.Metadata = metadata
	p.UpdatedAt = r.s.now()
	return nil
}

func (r *paymentRepo) MarkSucceeded(ctx context.Context, id uuid.UUID, confirmedAt time.Time) error {
	defer r.s.lock(ctx)()

	p, ok := r.s.payments[id]
	if !ok || p.Status == entity.PaymentSucceeded {
		return fmt.Errorf("payment %s not found or already succeeded", id)
	}
	p.Status = entity.PaymentSucceeded
	p.ConfirmedAt = &confirmedAt
	p.UpdatedAt = r.s.now()
	return nil
}

func (r *paymentRepo) MarkClosed(ctx context.Context, id uuid.UUID, status entity.PaymentStatus, reason string) (bool, error) {
	defer r.s.lock(ctx)()

	p, ok := r.s.payments[id]
	if !ok || p.Status != entity.PaymentPending {
		return false, nil
	}
	p.Status = status
	p.FailureReason = &reason
	p.UpdatedAt = r.s.now()
	return true, nil
}
