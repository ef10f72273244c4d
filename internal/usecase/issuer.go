package usecase

import (
	"context"
	"errors"
	"time"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/data/repository"
	"event-ticketing/pkg/apperror"
	"event-ticketing/pkg/lock"
	"event-ticketing/pkg/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// duplicate codes only show up when two batches race on the same fresh
// code; a couple of retries is plenty
const issueAttempts = 3

type PurchaseInput struct {
	EventID   uuid.UUID
	UserID    uuid.UUID
	Quantity  int
	Zone      string
	Seats     []SeatRequest
	PaymentID *uuid.UUID
}

// IssueHooks run inside the issuing transaction. Before runs under the event
// lock ahead of any capacity or seat check; Issued runs after the batch is
// written. An error from either rolls the whole batch back.
type IssueHooks struct {
	Before func(ctx context.Context) error
	Issued func(ctx context.Context, tickets []*entity.Ticket) error
}

type TicketIssuer struct {
	repo           *repository.Repository
	ledger         *CapacityLedger
	allocator      *SeatAllocator
	codes          *CodeGenerator
	qr             QRIssuer
	locker         lock.Locker
	qrTimeout      time.Duration
	maxPerPurchase int
	now            func() time.Time
	log            *zap.Logger
}

type IssuerConfig struct {
	QRTimeout      time.Duration
	MaxPerPurchase int
}

func NewTicketIssuer(
	repo *repository.Repository,
	codes *CodeGenerator,
	qr QRIssuer,
	locker lock.Locker,
	cfg IssuerConfig,
	log *zap.Logger,
) *TicketIssuer {
	if cfg.QRTimeout <= 0 {
		cfg.QRTimeout = 5 * time.Second
	}
	return &TicketIssuer{
		repo:           repo,
		ledger:         NewCapacityLedger(repo.Ticket),
		allocator:      NewSeatAllocator(repo.Ticket),
		codes:          codes,
		qr:             qr,
		locker:         locker,
		qrTimeout:      cfg.QRTimeout,
		maxPerPurchase: cfg.MaxPerPurchase,
		now:            time.Now,
		log:            log.With(zap.String("service", "issuer")),
	}
}

func (is *TicketIssuer) Ledger() *CapacityLedger { return is.ledger }

// Purchase issues in.Quantity tickets or none at all.
func (is *TicketIssuer) Purchase(ctx context.Context, in PurchaseInput) ([]*entity.Ticket, error) {
	return is.IssueWith(ctx, in, IssueHooks{})
}

// IssueWith is Purchase with hooks that commit or abort together with the
// batch.
func (is *TicketIssuer) IssueWith(ctx context.Context, in PurchaseInput, hooks IssueHooks) ([]*entity.Ticket, error) {
	start := time.Now()
	defer func() { metrics.PurchaseDuration.Observe(time.Since(start).Seconds()) }()

	tickets, err := is.issue(ctx, in, hooks)
	if err != nil {
		appErr := apperror.From(err)
		metrics.PurchaseFailures.WithLabelValues(appErr.Code).Inc()

		fields := []zap.Field{
			zap.Error(err),
			zap.String("event_id", in.EventID.String()),
			zap.String("user_id", in.UserID.String()),
			zap.Int("quantity", in.Quantity),
			zap.String("code", appErr.Code),
		}
		if appErr.Kind == apperror.KindInternal {
			is.log.Error("Ticket issuance failed", fields...)
		} else {
			is.log.Warn("Ticket purchase rejected", fields...)
		}
		return nil, appErr
	}

	metrics.TicketsIssued.Add(float64(len(tickets)))
	is.log.Info("Tickets issued",
		zap.String("event_id", in.EventID.String()),
		zap.String("user_id", in.UserID.String()),
		zap.Int("quantity", len(tickets)),
	)

	is.attachQR(ctx, tickets)
	return tickets, nil
}

func (is *TicketIssuer) issue(ctx context.Context, in PurchaseInput, hooks IssueHooks) ([]*entity.Ticket, error) {
	// 1. Validate quantity before touching anything
	if in.Quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if is.maxPerPurchase > 0 && in.Quantity > is.maxPerPurchase {
		return nil, ErrTooManyTickets.With("max", is.maxPerPurchase)
	}

	// 2. Serialize purchases for this event
	release, err := is.locker.Lock(ctx, "event:"+in.EventID.String())
	if err != nil {
		return nil, err
	}
	defer release()

	var tickets []*entity.Ticket
	for attempt := 1; attempt <= issueAttempts; attempt++ {
		err = is.repo.Tx.WithTx(ctx, func(ctx context.Context) error {
			var txErr error
			tickets, txErr = is.issueInTx(ctx, in, hooks)
			return txErr
		})
		if !errors.Is(err, repository.ErrDuplicateCode) {
			break
		}
		is.log.Warn("Ticket code collided on insert, retrying",
			zap.String("event_id", in.EventID.String()),
			zap.Int("attempt", attempt),
		)
	}

	switch {
	case errors.Is(err, repository.ErrSeatHeld):
		return nil, ErrSeatTaken.Wrap(err)
	case errors.Is(err, repository.ErrDuplicateCode):
		return nil, ErrGenerationExhausted.Wrap(err)
	case err != nil:
		return nil, err
	}
	return tickets, nil
}

func (is *TicketIssuer) issueInTx(ctx context.Context, in PurchaseInput, hooks IssueHooks) ([]*entity.Ticket, error) {
	if hooks.Before != nil {
		if err := hooks.Before(ctx); err != nil {
			return nil, err
		}
	}

	ev, err := is.repo.Event.FindByIDForUpdate(ctx, in.EventID)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		return nil, ErrEventNotFound
	}

	now := is.now()
	if ev.HasStarted(now) {
		return nil, ErrEventExpired.With("starts_at", ev.StartsAt)
	}

	remaining, err := is.ledger.Remaining(ctx, ev)
	if err != nil {
		return nil, err
	}
	if in.Quantity > remaining {
		return nil, ErrInsufficientCapacity.With("remaining", remaining)
	}

	var allocations []Allocation
	if ev.IsZoned() {
		allocations, err = is.allocator.Allocate(ctx, ev, in.Zone, in.Quantity, in.Seats)
		if err != nil {
			return nil, err
		}
	} else if len(in.Seats) > 0 || in.Zone != "" {
		return nil, ErrInvalidSeat.With("reason", "event has free seating")
	}

	codes, err := is.codes.GenerateBatch(ctx, in.Quantity, is.repo.Ticket.CodeExists)
	if err != nil {
		return nil, err
	}

	tickets := make([]*entity.Ticket, in.Quantity)
	for i := range tickets {
		t := &entity.Ticket{
			BaseNoDelete: entity.BaseNoDelete{
				ID:        uuid.New(),
				CreatedAt: now,
				UpdatedAt: now,
			},
			Code:        codes[i],
			EventID:     ev.ID,
			UserID:      in.UserID,
			PaymentID:   in.PaymentID,
			Status:      entity.TicketActive,
			PurchasedAt: now,
		}

		if allocations != nil {
			seat := allocations[i].Seat
			t.Seat = &seat
			t.SeatLabel = seat.Label()
			t.Price = allocations[i].Zone.Price
		} else {
			t.SeatLabel = entity.GeneralAdmission
			if free, ok := ev.Seating.(entity.FreeSeating); ok {
				t.Price = free.Price
			}
		}
		tickets[i] = t
	}

	if err := is.repo.Ticket.CreateBatch(ctx, tickets); err != nil {
		return nil, err
	}

	if hooks.Issued != nil {
		if err := hooks.Issued(ctx, tickets); err != nil {
			return nil, err
		}
	}
	return tickets, nil
}

// attachQR renders QR images after commit. Failures leave the ticket valid
// without an artifact; RegenerateQR retries later.
func (is *TicketIssuer) attachQR(ctx context.Context, tickets []*entity.Ticket) {
	if is.qr == nil {
		return
	}

	qrCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), is.qrTimeout)
	defer cancel()

	for _, t := range tickets {
		if _, err := is.qr.Issue(qrCtx, t); err != nil {
			metrics.QRFailures.Inc()
			is.log.Warn("QR issuance failed",
				zap.Error(err),
				zap.String("ticket_id", t.ID.String()),
				zap.String("code", t.Code),
			)
		}
	}
}
