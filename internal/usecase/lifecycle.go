package usecase

import (
	"context"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/data/repository"
	"event-ticketing/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Actor struct {
	UserID uuid.UUID
	Role   entity.UserRole
}

func (a Actor) IsAdmin() bool { return a.Role == entity.RoleAdmin }

// Staff reports whether the actor runs the event: an admin or its organizer.
func (a Actor) Staff(ev *entity.Event) bool {
	return a.IsAdmin() || (ev != nil && ev.OrganizerID == a.UserID)
}

// CanView reports whether the actor may see the ticket at all.
func (a Actor) CanView(t *entity.Ticket, ev *entity.Event) bool {
	return a.Staff(ev) || t.UserID == a.UserID
}

// TicketLifecycle owns status changes. Statuses only move forward:
//
//	active -> used -> invalid
//	active -> invalid
type TicketLifecycle struct {
	tickets repository.TicketRepository
	log     *zap.Logger
}

func NewTicketLifecycle(tickets repository.TicketRepository, log *zap.Logger) *TicketLifecycle {
	return &TicketLifecycle{
		tickets: tickets,
		log:     log.With(zap.String("service", "lifecycle")),
	}
}

func validTransition(from, to entity.TicketStatus) bool {
	switch from {
	case entity.TicketActive:
		return to == entity.TicketUsed || to == entity.TicketInvalid
	case entity.TicketUsed:
		return to == entity.TicketInvalid
	}
	return false
}

// Authorize checks actor against the transition matrix. ev is the ticket's
// event and may be soft-deleted.
func (l *TicketLifecycle) Authorize(actor Actor, t *entity.Ticket, ev *entity.Event, to entity.TicketStatus) error {
	if !actor.CanView(t, ev) {
		return ErrForbiddenTransition
	}
	if !validTransition(t.Status, to) {
		return ErrInvalidTransition.
			With("from", t.Status.Display()).
			With("to", to.Display())
	}
	if actor.Staff(ev) {
		return nil
	}
	// owners may only cancel their own unused tickets
	if t.Status == entity.TicketActive && to == entity.TicketInvalid {
		return nil
	}
	return ErrForbiddenTransition
}

// Transition moves t to status to. t is updated in place on success.
func (l *TicketLifecycle) Transition(ctx context.Context, actor Actor, t *entity.Ticket, ev *entity.Event, to entity.TicketStatus) error {
	if err := l.Authorize(actor, t, ev, to); err != nil {
		return err
	}

	from := t.Status
	ok, err := l.tickets.UpdateStatus(ctx, t.ID, from, to)
	if err != nil {
		return err
	}
	if !ok {
		// somebody else moved it first
		current, err := l.tickets.FindByID(ctx, t.ID)
		if err != nil {
			return err
		}
		if current == nil {
			return ErrTicketNotFound
		}
		*t = *current
		return ErrInvalidTransition.With("status", current.Status.Display())
	}

	t.Status = to
	metrics.TicketTransitions.WithLabelValues(string(to)).Inc()
	l.log.Info("Ticket status changed",
		zap.String("ticket_id", t.ID.String()),
		zap.String("code", t.Code),
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("actor_id", actor.UserID.String()),
	)
	return nil
}
