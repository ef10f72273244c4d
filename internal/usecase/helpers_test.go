package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/data/memstore"
	"event-ticketing/internal/data/repository"
	"event-ticketing/pkg/apperror"
	"event-ticketing/pkg/lock"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// memArtifacts is a storage.Store kept in memory.
type memArtifacts struct {
	mu    sync.Mutex
	files map[string][]byte
	err   error
}

func newMemArtifacts() *memArtifacts {
	return &memArtifacts{files: make(map[string][]byte)}
}

func (m *memArtifacts) Put(ctx context.Context, name string, data []byte) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return "", m.err
	}
	m.files[name] = data
	return "/qr-codes/" + name, nil
}

func (m *memArtifacts) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

type fixture struct {
	repo      *repository.Repository
	artifacts *memArtifacts
	qr        QRIssuer
	issuer    *TicketIssuer
	lifecycle *TicketLifecycle
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	repo := memstore.NewRepository()
	artifacts := newMemArtifacts()
	qr := NewQRIssuer(repo.Ticket, artifacts, 128, "test-signing-key", zap.NewNop())
	issuer := NewTicketIssuer(repo, NewCodeGenerator(TicketCodeLength, 20), qr, lock.NewKeyedMutex(),
		IssuerConfig{QRTimeout: time.Second}, zap.NewNop())

	return &fixture{
		repo:      repo,
		artifacts: artifacts,
		qr:        qr,
		issuer:    issuer,
		lifecycle: NewTicketLifecycle(repo.Ticket, zap.NewNop()),
	}
}

var errBoom = errors.New("boom")

func (f *fixture) createEvent(t *testing.T, seating entity.Seating, capacity int) *entity.Event {
	return f.createEventAt(t, seating, capacity, time.Now().Add(48*time.Hour))
}

func (f *fixture) createEventAt(t *testing.T, seating entity.Seating, capacity int, startsAt time.Time) *entity.Event {
	t.Helper()
	return f.createEventFor(t, uuid.New(), seating, capacity, startsAt)
}

func (f *fixture) createEventFor(t *testing.T, organizerID uuid.UUID, seating entity.Seating, capacity int, startsAt time.Time) *entity.Event {
	t.Helper()

	now := time.Now()
	id := uuid.New()
	if zoned, ok := seating.(entity.ZonedSeating); ok {
		for i := range zoned.Zones {
			zoned.Zones[i].ID = uuid.New()
			zoned.Zones[i].EventID = id
			zoned.Zones[i].Position = i
		}
		capacity = zoned.Capacity()
	}

	ev := &entity.Event{
		Base:        entity.Base{ID: id, CreatedAt: now, UpdatedAt: now},
		Code:        "EV" + id.String()[:6],
		Title:       "Test Event",
		Category:    entity.CategoryConcert,
		StartsAt:    startsAt,
		StartTime:   "19:00",
		Venue:       "Hall",
		City:        "Moscow",
		Capacity:    capacity,
		Seating:     seating,
		OrganizerID: organizerID,
	}
	require.NoError(t, f.repo.Event.Create(context.Background(), ev))
	return ev
}

func (f *fixture) freeEvent(t *testing.T, capacity int) *entity.Event {
	return f.createEvent(t, entity.FreeSeating{Price: decimal.NewFromInt(500)}, capacity)
}

func (f *fixture) createUser(t *testing.T, username string, role entity.UserRole) *entity.User {
	t.Helper()

	now := time.Now()
	u := &entity.User{
		BaseNoDelete: entity.BaseNoDelete{ID: uuid.New(), CreatedAt: now, UpdatedAt: now},
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: "x",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, f.repo.User.Create(context.Background(), u))
	return u
}

func asAppError(t *testing.T, err error) *apperror.Error {
	t.Helper()
	var appErr *apperror.Error
	require.ErrorAs(t, err, &appErr)
	return appErr
}

func intPtr(n int) *int { return &n }

// zonedEvent has Floor (2 seats, one row) and Balcony (6 seats, two rows).
func (f *fixture) zonedEvent(t *testing.T) *entity.Event {
	return f.createEvent(t, entity.ZonedSeating{Zones: []entity.Zone{
		{Name: "Floor", Price: decimal.NewFromInt(1000), Capacity: 2, Rows: intPtr(1)},
		{Name: "Balcony", Price: decimal.NewFromInt(400), Capacity: 6, Rows: intPtr(2)},
	}}, 0)
}

func (f *fixture) held(t *testing.T, eventID uuid.UUID) int {
	t.Helper()
	n, err := f.repo.Ticket.CountHeld(context.Background(), eventID)
	require.NoError(t, err)
	return n
}
