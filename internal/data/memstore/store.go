// Package memstore keeps every repository in process memory. Transactions
// are serialized on one mutex and rolled back by restoring a snapshot, which
// gives the same all-or-nothing behaviour as the Postgres store.
package memstore

import (
	"context"
	"sync"
	"time"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/data/repository"

	"github.com/google/uuid"
)

type txKey struct{}

type Store struct {
	mu       sync.Mutex
	users    map[uuid.UUID]*entity.User
	sessions map[uuid.UUID]*entity.Session
	events   map[uuid.UUID]*entity.Event
	tickets  map[uuid.UUID]*entity.Ticket
	payments map[uuid.UUID]*entity.Payment
	now      func() time.Time
}

func New() *Store {
	return &Store{
		users:    make(map[uuid.UUID]*entity.User),
		sessions: make(map[uuid.UUID]*entity.Session),
		events:   make(map[uuid.UUID]*entity.Event),
		tickets:  make(map[uuid.UUID]*entity.Ticket),
		payments: make(map[uuid.UUID]*entity.Payment),
		now:      time.Now,
	}
}

// NewRepository wires a fresh store behind the repository interfaces.
func NewRepository() *repository.Repository {
	return New().Repository()
}

func (s *Store) Repository() *repository.Repository {
	return &repository.Repository{
		Tx:      s,
		User:    &userRepo{s},
		Session: &sessionRepo{s},
		Event:   &eventRepo{s},
		Ticket:  &ticketRepo{s},
		Payment: &paymentRepo{s},
	}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.inTx(ctx) {
		return fn(ctx)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, s)); err != nil {
		s.restore(snap)
		return err
	}
	return nil
}

func (s *Store) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*Store)
	return owner == s
}

// lock takes the store mutex unless ctx already runs inside a transaction
// that holds it.
func (s *Store) lock(ctx context.Context) func() {
	if s.inTx(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// organizes mirrors the RESTRICT foreign key from events to users. Callers
// hold the mutex.
func (s *Store) organizes(userID uuid.UUID) bool {
	for _, e := range s.events {
		if e.OrganizerID == userID {
			return true
		}
	}
	return false
}

type snapshot struct {
	users    map[uuid.UUID]*entity.User
	sessions map[uuid.UUID]*entity.Session
	events   map[uuid.UUID]*entity.Event
	tickets  map[uuid.UUID]*entity.Ticket
	payments map[uuid.UUID]*entity.Payment
}

func (s *Store) snapshot() snapshot {
	return snapshot{
		users:    cloneMap(s.users, cloneUser),
		sessions: cloneMap(s.sessions, cloneSession),
		events:   cloneMap(s.events, cloneEvent),
		tickets:  cloneMap(s.tickets, cloneTicket),
		payments: cloneMap(s.payments, clonePayment),
	}
}

func (s *Store) restore(snap snapshot) {
	s.users = snap.users
	s.sessions = snap.sessions
	s.events = snap.events
	s.tickets = snap.tickets
	s.payments = snap.payments
}

func cloneMap[T any](src map[uuid.UUID]*T, clone func(*T) *T) map[uuid.UUID]*T {
	dst := make(map[uuid.UUID]*T, len(src))
	for k, v := range src {
		dst[k] = clone(v)
	}
	return dst
}
