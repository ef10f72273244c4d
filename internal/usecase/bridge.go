package usecase

import (
	"context"
	"errors"
	"time"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/data/repository"
	"event-ticketing/internal/queue"
	"event-ticketing/pkg/apperror"
	"event-ticketing/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type ConfirmResult struct {
	Tickets []*entity.Ticket
	// NoOp is set when the payment had already been confirmed.
	NoOp bool
}

// PaymentBridge turns a confirmed payment into tickets exactly once. The
// payment row is re-read under lock inside the issuing transaction, so two
// deliveries of the same confirmation cannot both issue.
type PaymentBridge struct {
	repo      *repository.Repository
	issuer    *TicketIssuer
	publisher queue.Publisher
	now       func() time.Time
	log       *zap.Logger
}

func NewPaymentBridge(repo *repository.Repository, issuer *TicketIssuer, publisher queue.Publisher, log *zap.Logger) *PaymentBridge {
	return &PaymentBridge{
		repo:      repo,
		issuer:    issuer,
		publisher: publisher,
		now:       time.Now,
		log:       log.With(zap.String("service", "payment_bridge")),
	}
}

// Handle adapts OnPaymentConfirmed to queue.ConfirmHandler.
func (b *PaymentBridge) Handle(ctx context.Context, paymentID uuid.UUID) error {
	_, err := b.OnPaymentConfirmed(ctx, paymentID)
	return err
}

func (b *PaymentBridge) OnPaymentConfirmed(ctx context.Context, paymentID uuid.UUID) (*ConfirmResult, error) {
	p, err := b.repo.Payment.FindByID(ctx, paymentID)
	if err != nil {
		return nil, apperror.From(err)
	}
	if p == nil {
		return nil, ErrPaymentNotFound.With("payment_id", paymentID.String())
	}

	switch p.Status {
	case entity.PaymentSucceeded:
		return b.noop(paymentID), nil
	case entity.PaymentCanceled, entity.PaymentFailed:
		b.log.Warn("Confirmation for closed payment needs manual reconciliation",
			zap.String("payment_id", paymentID.String()),
			zap.String("status", string(p.Status)),
		)
		metrics.PaymentConfirmations.WithLabelValues("rejected").Inc()
		return nil, ErrPaymentClosed.With("status", string(p.Status))
	}

	// the pre-lock read above can be stale when deliveries overlap, so the
	// status is checked again under lock before any seat or capacity check
	guard := func(ctx context.Context) error {
		locked, err := b.repo.Payment.FindByIDForUpdate(ctx, paymentID)
		if err != nil {
			return err
		}
		if locked == nil {
			return ErrPaymentNotFound
		}
		switch locked.Status {
		case entity.PaymentSucceeded:
			return errPaymentConfirmed
		case entity.PaymentPending:
			return nil
		default:
			return ErrPaymentClosed.With("status", string(locked.Status))
		}
	}
	markPaid := func(ctx context.Context, _ []*entity.Ticket) error {
		return b.repo.Payment.MarkSucceeded(ctx, paymentID, b.now())
	}

	tickets, err := b.issuer.IssueWith(ctx, PurchaseInput{
		EventID:   p.EventID,
		UserID:    p.UserID,
		Quantity:  p.Quantity,
		Zone:      p.Purchase.Zone,
		Seats:     specSeats(p.Purchase),
		PaymentID: &p.ID,
	}, IssueHooks{Before: guard, Issued: markPaid})

	switch {
	case err == nil:
	case errors.Is(err, errPaymentConfirmed):
		return b.noop(paymentID), nil
	case errors.Is(err, ErrPaymentClosed):
		metrics.PaymentConfirmations.WithLabelValues("rejected").Inc()
		return nil, err
	default:
		return b.fail(ctx, p, err)
	}

	metrics.PaymentConfirmations.WithLabelValues("issued").Inc()
	b.log.Info("Payment confirmed",
		zap.String("payment_id", paymentID.String()),
		zap.Int("tickets", len(tickets)),
	)
	publishIssued(ctx, b.publisher, b.log, tickets)

	return &ConfirmResult{Tickets: tickets}, nil
}

func (b *PaymentBridge) noop(paymentID uuid.UUID) *ConfirmResult {
	metrics.PaymentConfirmations.WithLabelValues("noop").Inc()
	b.log.Info("Duplicate payment confirmation ignored", zap.String("payment_id", paymentID.String()))
	return &ConfirmResult{NoOp: true}
}

// fail records a payment whose money arrived but whose tickets could not be
// issued. Internal errors leave it pending so a redelivery can try again;
// domain failures close it for manual reconciliation. A payment another
// delivery already fulfilled is reported as a duplicate instead.
func (b *PaymentBridge) fail(ctx context.Context, p *entity.Payment, cause error) (*ConfirmResult, error) {
	appErr := apperror.From(cause)

	current, err := b.repo.Payment.FindByID(context.WithoutCancel(ctx), p.ID)
	if err == nil && current != nil && current.Status == entity.PaymentSucceeded {
		return b.noop(p.ID), nil
	}

	metrics.PaymentConfirmations.WithLabelValues("failed").Inc()

	if appErr.Kind == apperror.KindInternal {
		b.log.Error("Issuance for paid payment failed, left pending",
			zap.Error(cause),
			zap.String("payment_id", p.ID.String()),
		)
		return nil, appErr
	}

	reason := appErr.Code + ": " + appErr.Message
	if _, err := b.repo.Payment.MarkClosed(context.WithoutCancel(ctx), p.ID, entity.PaymentFailed, reason); err != nil {
		b.log.Error("Failed to mark payment failed", zap.Error(err), zap.String("payment_id", p.ID.String()))
	}

	b.log.Error("Paid payment could not be fulfilled, needs refund",
		zap.String("payment_id", p.ID.String()),
		zap.String("user_id", p.UserID.String()),
		zap.String("amount", p.Amount.String()),
		zap.String("reason", reason),
	)
	return nil, appErr
}

func specSeats(spec entity.PurchaseSpec) []SeatRequest {
	if len(spec.Seats) == 0 {
		return nil
	}
	out := make([]SeatRequest, len(spec.Seats))
	for i, s := range spec.Seats {
		out[i] = SeatRequest{Zone: s.Zone, Row: s.Row, Number: s.Number}
	}
	return out
}
