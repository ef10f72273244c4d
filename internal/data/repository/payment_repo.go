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
	"go.uber.org/zap"
)

type PaymentRepository interface {
	Create(ctx context.Context, payment *entity.Payment) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error)
	// FindByIDForUpdate locks the payment row for the rest of the transaction.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Payment, error)
	FindByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.Payment, error)
	UpdateGateway(ctx context.Context, id uuid.UUID, providerRef, paymentURL string, metadata map[string]any) error
	MarkSucceeded(ctx context.Context, id uuid.UUID, confirmedAt time.Time) error
	// MarkClosed moves a pending payment to canceled or failed. It reports
	// false when the payment was not pending anymore.
	MarkClosed(ctx context.Context, id uuid.UUID, status entity.PaymentStatus, reason string) (bool, error)
}

type paymentRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPaymentRepository(db database.PgxIface, log *zap.Logger) PaymentRepository {
	return &paymentRepository{
		db:  db,
		log: log.With(zap.String("repository", "payment")),
	}
}

const paymentColumns = `p.id, p.event_id, p.user_id, p.quantity, p.amount, p.currency, p.status, p.method,
	p.description, p.purchase, p.provider_ref, p.payment_url, p.metadata, p.failure_reason,
	p.confirmed_at, p.created_at, p.updated_at,
	ARRAY(SELECT t.id FROM tickets t WHERE t.payment_id = p.id ORDER BY t.created_at)`

func scanPayment(row pgx.Row) (*entity.Payment, error) {
	var p entity.Payment
	err := row.Scan(
		&p.ID, &p.EventID, &p.UserID, &p.Quantity, &p.Amount, &p.Currency, &p.Status, &p.Method,
		&p.Description, &p.Purchase, &p.ProviderRef, &p.PaymentURL, &p.Metadata, &p.FailureReason,
		&p.ConfirmedAt, &p.CreatedAt, &p.UpdatedAt,
		&p.TicketIDs,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) Create(ctx context.Context, p *entity.Payment) error {
	query := `
		INSERT INTO payments (id, event_id, user_id, quantity, amount, currency, status, method,
		                      description, purchase, provider_ref, payment_url, metadata,
		                      failure_reason, confirmed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
	`

	_, err := database.Conn(ctx, r.db).Exec(ctx, query,
		p.ID, p.EventID, p.UserID, p.Quantity, p.Amount, p.Currency, p.Status, p.Method,
		p.Description, p.Purchase, p.ProviderRef, p.PaymentURL, p.Metadata,
		p.FailureReason, p.ConfirmedAt, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create payment",
			zap.Error(err),
			zap.String("payment_id", p.ID.String()),
			zap.String("user_id", p.UserID.String()),
		)
		return fmt.Errorf("create payment %s: %w", p.ID, err)
	}

	return nil
}

func (r *paymentRepository) findOne(ctx context.Context, suffix string, id uuid.UUID) (*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments p WHERE p.id = $1` + suffix

	p, err := scanPayment(database.Conn(ctx, r.db).QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find payment", zap.Error(err), zap.String("payment_id", id.String()))
		return nil, fmt.Errorf("find payment %s: %w", id, err)
	}
	return p, nil
}

func (r *paymentRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	return r.findOne(ctx, "", id)
}

func (r *paymentRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*entity.Payment, error) {
	return r.findOne(ctx, " FOR UPDATE OF p", id)
}

func (r *paymentRepository) FindByUser(ctx context.Context, userID uuid.UUID, limit int) ([]*entity.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments p WHERE p.user_id = $1 ORDER BY p.created_at DESC LIMIT $2`

	rows, err := database.Conn(ctx, r.db).Query(ctx, query, userID, limit)
	if err != nil {
		r.log.Error("Failed to list payments", zap.Error(err), zap.String("user_id", userID.String()))
		return nil, fmt.Errorf("list payments for user %s: %w", userID, err)
	}
	defer rows.Close()

	var payments []*entity.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (r *paymentRepository) UpdateGateway(ctx context.Context, id uuid.UUID, providerRef, paymentURL string, metadata map[string]any) error {
	result, err := database.Conn(ctx, r.db).Exec(ctx, `
		UPDATE payments SET provider_ref = $2, payment_url = $3, metadata = $4, updated_at = NOW()
		WHERE id = $1
	`, id, providerRef, paymentURL, metadata)
	if err != nil {
		r.log.Error("Failed to store gateway session", zap.Error(err), zap.String("payment_id", id.String()))
		return fmt.Errorf("update payment %s gateway: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("payment %s not found", id)
	}
	return nil
}

func (r *paymentRepository) MarkSucceeded(ctx context.Context, id uuid.UUID, confirmedAt time.Time) error {
	result, err := database.Conn(ctx, r.db).Exec(ctx, `
		UPDATE payments SET status = 'succeeded', confirmed_at = $2, updated_at = NOW()
		WHERE id = $1 AND status <> 'succeeded'
	`, id, confirmedAt)
	if err != nil {
		r.log.Error("Failed to mark payment succeeded", zap.Error(err), zap.String("payment_id", id.String()))
		return fmt.Errorf("mark payment %s succeeded: %w", id, err)
	}
	if result.RowsAffected() == 0 {
		return fmt.Errorf("payment %s not found or already succeeded", id)
	}
	return nil
}

func (r *paymentRepository) MarkClosed(ctx context.Context, id uuid.UUID, status entity.PaymentStatus, reason string) (bool, error) {
	result, err := database.Conn(ctx, r.db).Exec(ctx, `
		UPDATE payments SET status = $2, failure_reason = $3, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'
	`, id, status, reason)
	if err != nil {
		r.log.Error("Failed to close payment",
			zap.Error(err),
			zap.String("payment_id", id.String()),
			zap.String("status", string(status)),
		)
		return false, fmt.Errorf("close payment %s: %w", id, err)
	}
	return result.RowsAffected() == 1, nil
}
