package repository

import (
	"context"
	"errors"

	"event-ticketing/pkg/database"

	"go.uber.org/zap"
)

var (
	// ErrSeatHeld means an insert hit the unique seat index.
	ErrSeatHeld = errors.New("seat already held by another ticket")
	// ErrDuplicateCode means an insert hit the unique ticket code.
	ErrDuplicateCode = errors.New("ticket code already exists")
	// ErrReferenced means a delete was blocked by rows that still point at
	// the target.
	ErrReferenced = errors.New("row is still referenced")
)

// Transactor runs fn atomically. Repository calls made with the ctx passed
// to fn join the same unit of work.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type Repository struct {
	Tx      Transactor
	User    UserRepository
	Session SessionRepository
	Event   EventRepository
	Ticket  TicketRepository
	Payment PaymentRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		Tx:      database.NewTxManager(db),
		User:    NewUserRepository(db, log),
		Session: NewSessionRepository(db, log),
		Event:   NewEventRepository(db, log),
		Ticket:  NewTicketRepository(db, log),
		Payment: NewPaymentRepository(db, log),
	}
}
