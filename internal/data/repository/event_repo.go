package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-ticketing/internal/data/entity"
	"event-ticketing/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type EventRepository interface {
	Create(ctx context.Context, event *entity.Event) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Event, error)
	// FindByIDForUpdate locks the event row until the surrounding
	// transaction ends. It is the per-event serialization point for issuance.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Event, error)
	FindByCode(ctx context.Context, code string) (*entity.Event, error)
	// FindByIDs includes soft-deleted events so old tickets still render.
	FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.Event, error)
	CodeExists(ctx context.Context, code string) (bool, error)
	ListUpcoming(ctx context.Context, category string, now time.Time, limit, offset int) ([]*entity.Event, error)
	CountUpcoming(ctx context.Context, category string, now time.Time) (int64, error)
	// ListByOrganizer returns the organizer's live events, newest first.
	ListByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]*entity.Event, error)
	// HasOrganized counts soft-deleted events too, since their rows still
	// reference the user.
	HasOrganized(ctx context.Context, organizerID uuid.UUID) (bool, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
}

type eventRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewEventRepository(db database.PgxIface, log *zap.Logger) EventRepository {
	return &eventRepository{
		db:  db,
		log: log.With(zap.String("repository", "event")),
	}
}

const eventColumns = `id, code, title, description, category, starts_at, start_time, end_time,
	venue, address, city, country, image, capacity, seating_type, price, organizer_id,
	created_at, updated_at, deleted_at`

func scanEvent(row pgx.Row) (*entity.Event, error) {
	var (
		ev      entity.Event
		seating entity.SeatingType
		price   decimal.NullDecimal
	)
	err := row.Scan(
		&ev.ID, &ev.Code, &ev.Title, &ev.Description, &ev.Category, &ev.StartsAt,
		&ev.StartTime, &ev.EndTime, &ev.Venue, &ev.Address, &ev.City, &ev.Country,
		&ev.Image, &ev.Capacity, &seating, &price, &ev.OrganizerID,
		&ev.CreatedAt, &ev.UpdatedAt, &ev.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	if seating == entity.SeatingFree {
		ev.Seating = entity.FreeSeating{Price: price.Decimal}
	} else {
		ev.Seating = entity.ZonedSeating{}
	}
	return &ev, nil
}

func (r *eventRepository) Create(ctx context.Context, ev *entity.Event) error {
	var price decimal.NullDecimal
	if free, ok := ev.Seating.(entity.FreeSeating); ok {
		price = decimal.NullDecimal{Decimal: free.Price, Valid: true}
	}

	query := `
		INSERT INTO events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`
	conn := database.Conn(ctx, r.db)
	_, err := conn.Exec(ctx, query,
		ev.ID, ev.Code, ev.Title, ev.Description, ev.Category, ev.StartsAt,
		ev.StartTime, ev.EndTime, ev.Venue, ev.Address, ev.City, ev.Country,
		ev.Image, ev.Capacity, ev.Seating.Type(), price, ev.OrganizerID,
		ev.CreatedAt, ev.UpdatedAt, ev.DeletedAt,
	)
	if err != nil {
		r.log.Error("Failed to create event", zap.Error(err), zap.String("code", ev.Code))
		return fmt.Errorf("create event %s: %w", ev.Code, err)
	}

	for _, z := range ev.Zones() {
		_, err := conn.Exec(ctx, `
			INSERT INTO event_zones (id, event_id, name, price, capacity, rows, position)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, z.ID, ev.ID, z.Name, z.Price, z.Capacity, z.Rows, z.Position)
		if err != nil {
			r.log.Error("Failed to create zone", zap.Error(err), zap.String("zone", z.Name))
			return fmt.Errorf("create zone %s for event %s: %w", z.Name, ev.Code, err)
		}
	}

	return nil
}

func (r *eventRepository) findOne(ctx context.Context, where string, arg any) (*entity.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE ` + where

	ev, err := scanEvent(database.Conn(ctx, r.db).QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find event", zap.Error(err), zap.Any("key", arg))
		return nil, fmt.Errorf("find event %v: %w", arg, err)
	}

	if err := r.loadZones(ctx, []*entity.Event{ev}); err != nil {
		return nil, err
	}
	return ev, nil
}

func (r *eventRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Event, error) {
	return r.findOne(ctx, "id = $1 AND deleted_at IS NULL", id)
}

func (r *eventRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Event, error) {
	return r.findOne(ctx, "id = $1 AND deleted_at IS NULL FOR UPDATE", id)
}

func (r *eventRepository) FindByCode(ctx context.Context, code string) (*entity.Event, error) {
	return r.findOne(ctx, "code = UPPER($1) AND deleted_at IS NULL", code)
}

func (r *eventRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*entity.Event, error) {
	events, err := r.list(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*entity.Event, len(events))
	for _, ev := range events {
		byID[ev.ID] = ev
	}
	return byID, nil
}

func (r *eventRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := database.Conn(ctx, r.db).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM events WHERE code = $1)`, code).Scan(&exists)
	if err != nil {
		r.log.Error("Failed to check event code", zap.Error(err), zap.String("code", code))
		return false, fmt.Errorf("check event code %s: %w", code, err)
	}
	return exists, nil
}

func (r *eventRepository) ListUpcoming(ctx context.Context, category string, now time.Time, limit, offset int) ([]*entity.Event, error) {
	query := `
		SELECT ` + eventColumns + ` FROM events
		WHERE deleted_at IS NULL AND starts_at > $1 AND ($2 = '' OR category = $2)
		ORDER BY starts_at ASC
		LIMIT $3 OFFSET $4
	`
	return r.list(ctx, query, now, category, limit, offset)
}

func (r *eventRepository) CountUpcoming(ctx context.Context, category string, now time.Time) (int64, error) {
	query := `
		SELECT COUNT(*) FROM events
		WHERE deleted_at IS NULL AND starts_at > $1 AND ($2 = '' OR category = $2)
	`
	var total int64
	if err := database.Conn(ctx, r.db).QueryRow(ctx, query, now, category).Scan(&total); err != nil {
		r.log.Error("Failed to count events", zap.Error(err))
		return 0, fmt.Errorf("count events: %w", err)
	}
	return total, nil
}

func (r *eventRepository) ListByOrganizer(ctx context.Context, organizerID uuid.UUID) ([]*entity.Event, error) {
	query := `
		SELECT ` + eventColumns + ` FROM events
		WHERE deleted_at IS NULL AND organizer_id = $1
		ORDER BY starts_at DESC
	`
	return r.list(ctx, query, organizerID)
}

func (r *eventRepository) HasOrganized(ctx context.Context, organizerID uuid.UUID) (bool, error) {
	var exists bool
	err := database.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM events WHERE organizer_id = $1)`, organizerID).Scan(&exists)
	if err != nil {
		r.log.Error("Failed to check organizer events", zap.Error(err), zap.String("organizer_id", organizerID.String()))
		return false, fmt.Errorf("check organizer %s events: %w", organizerID, err)
	}
	return exists, nil
}

func (r *eventRepository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	result, err := database.Conn(ctx, r.db).Exec(ctx,
		`UPDATE events SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`, id)
	if err != nil {
		r.log.Error("Failed to delete event", zap.Error(err), zap.String("event_id", id.String()))
		return fmt.Errorf("delete event %s: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("event %s not found", id)
	}
	return nil
}

func (r *eventRepository) list(ctx context.Context, query string, args ...any) ([]*entity.Event, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to list events", zap.Error(err))
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	var events []*entity.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	if err := r.loadZones(ctx, events); err != nil {
		return nil, err
	}
	return events, nil
}

func (r *eventRepository) loadZones(ctx context.Context, events []*entity.Event) error {
	var ids []uuid.UUID
	byID := make(map[uuid.UUID]*entity.Event)
	for _, ev := range events {
		if ev.IsZoned() {
			ids = append(ids, ev.ID)
			byID[ev.ID] = ev
		}
	}
	if len(ids) == 0 {
		return nil
	}

	rows, err := database.Conn(ctx, r.db).Query(ctx, `
		SELECT id, event_id, name, price, capacity, rows, position
		FROM event_zones
		WHERE event_id = ANY($1)
		ORDER BY event_id, position
	`, ids)
	if err != nil {
		r.log.Error("Failed to load zones", zap.Error(err))
		return fmt.Errorf("load zones: %w", err)
	}
	defer rows.Close()

	zones := make(map[uuid.UUID][]entity.Zone)
	for rows.Next() {
		var z entity.Zone
		if err := rows.Scan(&z.ID, &z.EventID, &z.Name, &z.Price, &z.Capacity, &z.Rows, &z.Position); err != nil {
			return fmt.Errorf("scan zone: %w", err)
		}
		zones[z.EventID] = append(zones[z.EventID], z)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate zones: %w", err)
	}

	for id, ev := range byID {
		ev.Seating = entity.ZonedSeating{Zones: zones[id]}
	}
	return nil
}
