package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"event-ticketing/internal/data/entity"

	"github.com/google/uuid"
)

type eventRepo struct{ s *Store }

func (r *eventRepo) Create(ctx context.Context, event *entity.Event) error {
	defer r.s.lock(ctx)()

	for _, e := range r.s.events {
		if e.Code == event.Code {
			return fmt.Errorf("create event %s: duplicate code", event.Code)
		}
	}
	r.s.events[event.ID] = cloneEvent(event)
	return nil
}

func (r *eventRepo) live(id uuid.UUID) *entity.Event {
	e, ok := r.s.events[id]
	if !ok || e.IsDeleted() {
		return nil
	}
	return cloneEvent(e)
}

func (r *eventRepo) FindByID(ctx context.Context, id uuid.UUID) (*entity.Event, error) {
	defer r.s.lock(ctx)()
	return r.live(id), nil
}

// FindByIDForUpdate relies on the transaction holding the store mutex.
func (r *eventRepo) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Event, error) {
	return r.FindByID(ctx, id)
}

func (r *eventRepo) FindByCode(ctx context.Context, code string) (*entity.Event, error) {
	defer r.s.lock(ctx)()

	code = strings.ToUpper(code)
	for _, e := range r.s.events {
		if e.Code == code && !e.IsDeleted() {
			return cloneEvent(e), nil
		}
	}
	return nil, nil
}

func (r *eventRepo) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.Event, error) {
	defer r.s.lock(ctx)()

	found := make(map[uuid.UUID]*entity.Event, len(ids))
	for _, id := range ids {
		if e, ok := r.s.events[id]; ok {
			found[id] = cloneEvent(e)
		}
	}
	return found, nil
}

func (r *eventRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	defer r.s.lock(ctx)()

	for _, e := range r.s.events {
		if e.Code == code {
			return true, nil
		}
	}
	return false, nil
}

func (r *eventRepo) upcoming(category string, now time.Time) []*entity.Event {
	var events []*entity.Event
	for _, e := range r.s.events {
		if e.IsDeleted() || !e.StartsAt.After(now) {
			continue
		}
		if category != "" && string(e.Category) != category {
			continue
		}
		events = append(events, cloneEvent(e))
	}
	sort.Slice(events, func(i, j int) bool { return events[i].StartsAt.Before(events[j].StartsAt) })
	return events
}

func (r *eventRepo) ListUpcoming(ctx context.Context, category string, now time.Time, limit, offset int) ([]*entity.Event, error) {
	defer r.s.lock(ctx)()
	return page(r.upcoming(category, now), limit, offset), nil
}

func (r *eventRepo) CountUpcoming(ctx context.Context, category string, now time.Time) (int64, error) {
	defer r.s.lock(ctx)()
	return int64(len(r.upcoming(category, now))), nil
}

func (r *eventRepo) ListByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]*entity.Event, error) {
	defer r.s.lock(ctx)()

	var events []*entity.Event
	for _, e := range r.s.events {
		if e.OrganizerID == organizerID && !e.IsDeleted() {
			events = append(events, cloneEvent(e))
		}
	}
	sort.Slice(events, func(i, j int) bool { return events[i].StartsAt.After(events[j].StartsAt) })
	return events, nil
}

func (r *eventRepo) HasOrganized(ctx context.Context, organizerID uuid.UUID) (bool, error) {
	defer r.s.lock(ctx)()
	return r.s.organizes(organizerID), nil
}

func (r *eventRepo) SoftDelete(ctx context.Context, id uuid.UUID) error {
	defer r.s.lock(ctx)()

	e, ok := r.s.events[id]
	if !ok || e.IsDeleted() {
		return fmt.Errorf("event %s not found", id)
	}
	now := r.s.now()
	e.DeletedAt = &now
	e.UpdatedAt = now
	return nil
}
