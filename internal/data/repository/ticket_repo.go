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

type TicketRepository interface {
	CreateBatch(ctx context.Context, tickets []*entity.Ticket) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Ticket, error)
	FindByCode(ctx context.Context, code string) (*entity.Ticket, error)
	CodeExists(ctx context.Context, code string) (bool, error)

	// Held means active or used: the tickets that consume inventory.
	CountHeld(ctx context.Context, eventID uuid.UUID) (int, error)
	CountHeldByZone(ctx context.Context, eventID uuid.UUID) (map[string]int, error)
	FindHeldSeats(ctx context.Context, eventID uuid.UUID) ([]entity.SeatAssignment, error)

	FindByUser(ctx context.Context, userID uuid.UUID, status entity.TicketStatus) ([]*entity.Ticket, error)
	FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]*entity.Ticket, error)
	FindAll(ctx context.Context, status entity.TicketStatus, limit, offset int) ([]*entity.Ticket, error)
	CountAll(ctx context.Context, status entity.TicketStatus) (int64, error)
	// Search matches a code fragment or the purchaser's email.
	Search(ctx context.Context, query string, limit int) ([]*entity.Ticket, error)

	// UpdateStatus moves a ticket from one status to another and reports
	// false when the ticket was no longer in from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.TicketStatus) (bool, error)
	UpdateQR(ctx context.Context, id uuid.UUID, url, payload string) error
	InvalidateByEvent(ctx context.Context, eventID uuid.UUID) (int64, error)
	Stats(ctx context.Context, since time.Time) (*entity.TicketStats, error)
}

type ticketRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewTicketRepository(db database.PgxIface, log *zap.Logger) TicketRepository {
	return &ticketRepository{
		db:  db,
		log: log.With(zap.String("repository", "ticket")),
	}
}

const ticketColumns = `t.id, t.code, t.event_id, t.user_id, t.payment_id, t.price, t.seat_label,
	t.zone_name, t.seat_row, t.seat_number, t.status, t.purchased_at, t.qr_code_url, t.qr_payload,
	t.created_at, t.updated_at`

func scanTicket(row pgx.Row) (*entity.Ticket, error) {
	var (
		t       entity.Ticket
		zone    *string
		seatRow *int
		number  *int
	)
	err := row.Scan(
		&t.ID, &t.Code, &t.EventID, &t.UserID, &t.PaymentID, &t.Price, &t.SeatLabel,
		&zone, &seatRow, &number, &t.Status, &t.PurchasedAt, &t.QRCodeURL, &t.QRPayload,
		&t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if zone != nil && seatRow != nil && number != nil {
		t.Seat = &entity.SeatAssignment{Zone: *zone, Row: *seatRow, Number: *number}
	}
	return &t, nil
}

func (r *ticketRepository) CreateBatch(ctx context.Context, tickets []*entity.Ticket) error {
	query := `
		INSERT INTO tickets (id, code, event_id, user_id, payment_id, price, seat_label,
		                     zone_name, seat_row, seat_number, status, purchased_at,
		                     qr_code_url, qr_payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	conn := database.Conn(ctx, r.db)
	for _, t := range tickets {
		var zone *string
		var row, number *int
		if t.Seat != nil {
			zone, row, number = &t.Seat.Zone, &t.Seat.Row, &t.Seat.Number
		}

		_, err := conn.Exec(ctx, query,
			t.ID, t.Code, t.EventID, t.UserID, t.PaymentID, t.Price, t.SeatLabel,
			zone, row, number, t.Status, t.PurchasedAt,
			t.QRCodeURL, t.QRPayload, t.CreatedAt, t.UpdatedAt,
		)
		if constraint, ok := database.UniqueViolation(err); ok {
			if constraint == "tickets_code_key" {
				return fmt.Errorf("create ticket %s: %w", t.Code, ErrDuplicateCode)
			}
			return fmt.Errorf("create ticket %s: %w", t.SeatLabel, ErrSeatHeld)
		}
		if err != nil {
			r.log.Error("Failed to create ticket",
				zap.Error(err),
				zap.String("code", t.Code),
				zap.String("event_id", t.EventID.String()),
			)
			return fmt.Errorf("create ticket %s: %w", t.Code, err)
		}
	}

	return nil
}

func (r *ticketRepository) findOne(ctx context.Context, where string, arg any) (*entity.Ticket, error) {
	query := `SELECT ` + ticketColumns + ` FROM tickets t WHERE ` + where

	t, err := scanTicket(database.Conn(ctx, r.db).QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find ticket", zap.Error(err), zap.Any("key", arg))
		return nil, fmt.Errorf("find ticket %v: %w", arg, err)
	}
	return t, nil
}

func (r *ticketRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Ticket, error) {
	return r.findOne(ctx, "t.id = $1", id)
}

func (r *ticketRepository) FindByCode(ctx context.Context, code string) (*entity.Ticket, error) {
	return r.findOne(ctx, "t.code = UPPER($1)", code)
}

func (r *ticketRepository) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := database.Conn(ctx, r.db).QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM tickets WHERE code = $1)`, code).Scan(&exists)
	if err != nil {
		r.log.Error("Failed to check ticket code", zap.Error(err), zap.String("code", code))
		return false, fmt.Errorf("check ticket code %s: %w", code, err)
	}
	return exists, nil
}

func (r *ticketRepository) CountHeld(ctx context.Context, eventID uuid.UUID) (int, error) {
	var held int
	err := database.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT COUNT(*) FROM tickets WHERE event_id = $1 AND status <> 'invalid'`, eventID).Scan(&held)
	if err != nil {
		r.log.Error("Failed to count held tickets", zap.Error(err), zap.String("event_id", eventID.String()))
		return 0, fmt.Errorf("count tickets for event %s: %w", eventID, err)
	}
	return held, nil
}

func (r *ticketRepository) CountHeldByZone(ctx context.Context, eventID uuid.UUID) (map[string]int, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx, `
		SELECT zone_name, COUNT(*) FROM tickets
		WHERE event_id = $1 AND status <> 'invalid' AND zone_name IS NOT NULL
		GROUP BY zone_name
	`, eventID)
	if err != nil {
		r.log.Error("Failed to count zone tickets", zap.Error(err), zap.String("event_id", eventID.String()))
		return nil, fmt.Errorf("count zone tickets for event %s: %w", eventID, err)
	}
	defer rows.Close()

	held := make(map[string]int)
	for rows.Next() {
		var zone string
		var n int
		if err := rows.Scan(&zone, &n); err != nil {
			return nil, fmt.Errorf("scan zone count: %w", err)
		}
		held[zone] = n
	}
	return held, rows.Err()
}

func (r *ticketRepository) FindHeldSeats(ctx context.Context, eventID uuid.UUID) ([]entity.SeatAssignment, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx, `
		SELECT zone_name, seat_row, seat_number FROM tickets
		WHERE event_id = $1 AND status <> 'invalid' AND zone_name IS NOT NULL
		ORDER BY zone_name, seat_row, seat_number
	`, eventID)
	if err != nil {
		r.log.Error("Failed to find held seats", zap.Error(err), zap.String("event_id", eventID.String()))
		return nil, fmt.Errorf("find held seats for event %s: %w", eventID, err)
	}
	defer rows.Close()

	var seats []entity.SeatAssignment
	for rows.Next() {
		var s entity.SeatAssignment
		if err := rows.Scan(&s.Zone, &s.Row, &s.Number); err != nil {
			return nil, fmt.Errorf("scan seat: %w", err)
		}
		seats = append(seats, s)
	}
	return seats, rows.Err()
}

func (r *ticketRepository) FindByUser(ctx context.Context, userID uuid.UUID, status entity.TicketStatus) ([]*entity.Ticket, error) {
	return r.list(ctx, `
		SELECT `+ticketColumns+` FROM tickets t
		WHERE t.user_id = $1 AND ($2 = '' OR t.status = $2)
		ORDER BY t.purchased_at DESC
	`, userID, string(status))
}

func (r *ticketRepository) FindByPayment(ctx context.Context, paymentID uuid.UUID) ([]*entity.Ticket, error) {
	return r.list(ctx, `
		SELECT `+ticketColumns+` FROM tickets t
		WHERE t.payment_id = $1
		ORDER BY t.created_at
	`, paymentID)
}

func (r *ticketRepository) FindAll(ctx context.Context, status entity.TicketStatus, limit, offset int) ([]*entity.Ticket, error) {
	return r.list(ctx, `
		SELECT `+ticketColumns+` FROM tickets t
		WHERE ($1 = '' OR t.status = $1)
		ORDER BY t.purchased_at DESC
		LIMIT $2 OFFSET $3
	`, string(status), limit, offset)
}

func (r *ticketRepository) CountAll(ctx context.Context, status entity.TicketStatus) (int64, error) {
	var total int64
	err := database.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT COUNT(*) FROM tickets WHERE ($1 = '' OR status = $1)`, string(status)).Scan(&total)
	if err != nil {
		r.log.Error("Failed to count tickets", zap.Error(err))
		return 0, fmt.Errorf("count tickets: %w", err)
	}
	return total, nil
}

func (r *ticketRepository) Search(ctx context.Context, query string, limit int) ([]*entity.Ticket, error) {
	return r.list(ctx, `
		SELECT `+ticketColumns+` FROM tickets t
		JOIN users u ON u.id = t.user_id
		WHERE t.code ILIKE '%' || $1 || '%' OR u.email ILIKE '%' || $1 || '%'
		ORDER BY t.purchased_at DESC
		LIMIT $2
	`, query, limit)
}

func (r *ticketRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.TicketStatus) (bool, error) {
	result, err := database.Conn(ctx, r.db).Exec(ctx,
		`UPDATE tickets SET status = $3, updated_at = NOW() WHERE id = $1 AND status = $2`, id, from, to)
	if err != nil {
		r.log.Error("Failed to update ticket status",
			zap.Error(err),
			zap.String("ticket_id", id.String()),
			zap.String("to", string(to)),
		)
		return false, fmt.Errorf("update ticket %s status: %w", id, err)
	}
	return result.RowsAffected() == 1, nil
}

func (r *ticketRepository) UpdateQR(ctx context.Context, id uuid.UUID, url, payload string) error {
	result, err := database.Conn(ctx, r.db).Exec(ctx,
		`UPDATE tickets SET qr_code_url = $2, qr_payload = $3, updated_at = NOW() WHERE id = $1`, id, url, payload)
	if err != nil {
		r.log.Error("Failed to store QR locator", zap.Error(err), zap.String("ticket_id", id.String()))
		return fmt.Errorf("update ticket %s qr: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("ticket %s not found", id)
	}
	return nil
}

func (r *ticketRepository) InvalidateByEvent(ctx context.Context, eventID uuid.UUID) (int64, error) {
	result, err := database.Conn(ctx, r.db).Exec(ctx,
		`UPDATE tickets SET status = 'invalid', updated_at = NOW() WHERE event_id = $1 AND status <> 'invalid'`, eventID)
	if err != nil {
		r.log.Error("Failed to invalidate event tickets", zap.Error(err), zap.String("event_id", eventID.String()))
		return 0, fmt.Errorf("invalidate tickets for event %s: %w", eventID, err)
	}
	return result.RowsAffected(), nil
}

func (r *ticketRepository) Stats(ctx context.Context, since time.Time) (*entity.TicketStats, error) {
	conn := database.Conn(ctx, r.db)
	stats := &entity.TicketStats{ByStatus: make(map[entity.TicketStatus]int64)}

	rows, err := conn.Query(ctx, `SELECT status, COUNT(*), COALESCE(SUM(price), 0) FROM tickets GROUP BY status`)
	if err != nil {
		r.log.Error("Failed to aggregate tickets", zap.Error(err))
		return nil, fmt.Errorf("ticket stats: %w", err)
	}
	for rows.Next() {
		var status entity.TicketStatus
		var n int64
		var sum decimal.Decimal
		if err := rows.Scan(&status, &n, &sum); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan ticket stats: %w", err)
		}
		stats.ByStatus[status] = n
		stats.Total += n
		if status.HoldsInventory() {
			stats.Revenue = stats.Revenue.Add(sum)
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ticket stats: %w", err)
	}

	rows, err = conn.Query(ctx, `
		SELECT TO_CHAR(DATE_TRUNC('month', purchased_at), 'YYYY-MM') AS month,
		       COUNT(*), COALESCE(SUM(price), 0)
		FROM tickets
		WHERE status <> 'invalid' AND purchased_at >= $1
		GROUP BY month
		ORDER BY month
	`, since)
	if err != nil {
		r.log.Error("Failed to aggregate monthly revenue", zap.Error(err))
		return nil, fmt.Errorf("monthly revenue: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var m entity.MonthlyRevenue
		if err := rows.Scan(&m.Month, &m.Tickets, &m.Revenue); err != nil {
			return nil, fmt.Errorf("scan monthly revenue: %w", err)
		}
		stats.MonthlyRevenue = append(stats.MonthlyRevenue, m)
	}
	return stats, rows.Err()
}

func (r *ticketRepository) list(ctx context.Context, query string, args ...any) ([]*entity.Ticket, error) {
	rows, err := database.Conn(ctx, r.db).Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to list tickets", zap.Error(err))
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	var tickets []*entity.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, t)
	}
	return tickets, rows.Err()
}
