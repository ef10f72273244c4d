package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"event-ticketing/internal/data/entity"
	"event-ticketing/internal/data/repository"
	"event-ticketing/internal/dto/request"
	"event-ticketing/internal/dto/response"
	"event-ticketing/internal/payment"
	"event-ticketing/internal/queue"
	"event-ticketing/pkg/apperror"
	"event-ticketing/pkg/utils"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const myPaymentsLimit = 20

type PaymentService interface {
	Create(ctx context.Context, actor Actor, req *request.CreatePaymentRequest) (*response.PaymentResponse, error)
	Get(ctx context.Context, actor Actor, id string) (*response.PaymentResponse, error)
	ListMine(ctx context.Context, actor Actor) ([]response.PaymentResponse, error)
	// ConfirmMock completes a mock checkout from the success redirect.
	ConfirmMock(ctx context.Context, id string) (*response.PaymentResponse, error)
	HandleStripeWebhook(ctx context.Context, payload []byte, signature string) error
	HandleMidtransWebhook(ctx context.Context, body []byte) error
}

type paymentService struct {
	repo      *repository.Repository
	ledger    *CapacityLedger
	providers *payment.Registry
	stripe    *payment.StripeProvider
	midtrans  *payment.MidtransProvider
	publisher queue.Publisher
	currency  string
	timeout   time.Duration
	log       *zap.Logger
}

type PaymentDeps struct {
	Providers *payment.Registry
	Stripe    *payment.StripeProvider
	Midtrans  *payment.MidtransProvider
	Publisher queue.Publisher
}

func NewPaymentService(repo *repository.Repository, ledger *CapacityLedger, deps PaymentDeps, config *utils.Config, log *zap.Logger) PaymentService {
	timeout := config.Payment.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &paymentService{
		repo:      repo,
		ledger:    ledger,
		providers: deps.Providers,
		stripe:    deps.Stripe,
		midtrans:  deps.Midtrans,
		publisher: deps.Publisher,
		currency:  config.Payment.Currency,
		timeout:   timeout,
		log:       log.With(zap.String("service", "payment")),
	}
}

// quote prices a purchase the way the issuer will snapshot it and checks
// availability. The check is advisory; the bridge re-checks under lock.
func (s *paymentService) quote(ctx context.Context, ev *entity.Event, req *request.PurchaseRequest) (decimal.Decimal, error) {
	remaining, err := s.ledger.Remaining(ctx, ev)
	if err != nil {
		return decimal.Zero, err
	}
	if req.Quantity > remaining {
		return decimal.Zero, ErrInsufficientCapacity.With("remaining", remaining)
	}

	qty := decimal.NewFromInt(int64(req.Quantity))
	if free, ok := ev.Seating.(entity.FreeSeating); ok {
		if req.ZoneID != "" || len(req.SeatSelections) > 0 {
			return decimal.Zero, ErrInvalidSeat.With("reason", "event has free seating")
		}
		return free.Price.Mul(qty), nil
	}

	if len(req.SeatSelections) > 0 {
		if len(req.SeatSelections) != req.Quantity {
			return decimal.Zero, ErrSeatingMismatch.With("quantity", req.Quantity).With("seats", len(req.SeatSelections))
		}
		total := decimal.Zero
		for _, sel := range req.SeatSelections {
			ref := sel.Zone
			if ref == "" {
				ref = req.ZoneID
			}
			z, ok := ev.FindZone(ref)
			if !ok {
				return decimal.Zero, ErrUnknownZone.With("zone", ref)
			}
			total = total.Add(z.Price)
		}
		return total, nil
	}

	if req.ZoneID == "" {
		return decimal.Zero, ErrZoneRequired
	}
	z, ok := ev.FindZone(req.ZoneID)
	if !ok {
		return decimal.Zero, ErrUnknownZone.With("zone", req.ZoneID)
	}
	left, err := s.ledger.RemainingInZone(ctx, ev, z)
	if err != nil {
		return decimal.Zero, err
	}
	if req.Quantity > left {
		return decimal.Zero, ErrZoneFull.With("zone", z.Name).With("remaining", left)
	}
	return z.Price.Mul(qty), nil
}

func (s *paymentService) Create(ctx context.Context, actor Actor, req *request.CreatePaymentRequest) (*response.PaymentResponse, error) {
	// 1. Validate input
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Create payment validation failed", zap.Any("errors", errs))
		return nil, validationError(errs)
	}

	provider, err := s.providers.Get(req.Method)
	if err != nil {
		return nil, ErrUnknownProvider.With("method", req.Method)
	}

	// 2. Event + price
	ev, err := findEvent(ctx, s.repo.Event, req.EventID)
	if err != nil {
		return nil, err
	}
	if ev.HasStarted(time.Now()) {
		return nil, ErrEventExpired
	}
	amount, err := s.quote(ctx, ev, &req.PurchaseRequest)
	if err != nil {
		return nil, apperror.From(err)
	}

	user, err := s.repo.User.FindByID(ctx, actor.UserID)
	if err != nil {
		return nil, apperror.From(err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	// 3. Persist pending payment with the purchase to replay on confirmation
	spec := entity.PurchaseSpec{Zone: req.ZoneID}
	for _, sel := range req.SeatSelections {
		spec.Seats = append(spec.Seats, entity.SeatAssignment{Zone: sel.Zone, Row: sel.Row, Number: sel.Number})
	}

	now := time.Now()
	p := &entity.Payment{
		BaseNoDelete: entity.BaseNoDelete{
			ID:        uuid.New(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		EventID:     ev.ID,
		UserID:      actor.UserID,
		Quantity:    req.Quantity,
		Amount:      amount,
		Currency:    s.currency,
		Status:      entity.PaymentPending,
		Method:      entity.PaymentMethod(provider.Name()),
		Description: fmt.Sprintf("%d ticket(s) for %s", req.Quantity, ev.Title),
		Purchase:    spec,
		Metadata:    map[string]any{},
	}
	if err := s.repo.Payment.Create(ctx, p); err != nil {
		s.log.Error("Failed to create payment", zap.Error(err), zap.String("user_id", actor.UserID.String()))
		return nil, apperror.From(err)
	}

	// 4. Open checkout with the provider, bounded by the payment timeout
	pctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	checkout, err := provider.CreateCheckout(pctx, payment.CheckoutRequest{
		PaymentID:   p.ID,
		Amount:      amount,
		Currency:    s.currency,
		Quantity:    req.Quantity,
		Description: p.Description,
		Email:       user.Email,
		Name:        user.FullName,
	})
	if err != nil {
		s.log.Error("Payment provider failed",
			zap.Error(err),
			zap.String("payment_id", p.ID.String()),
			zap.String("provider", provider.Name()),
		)
		if _, closeErr := s.repo.Payment.MarkClosed(context.WithoutCancel(ctx), p.ID, entity.PaymentFailed, err.Error()); closeErr != nil {
			s.log.Error("Failed to mark payment failed", zap.Error(closeErr), zap.String("payment_id", p.ID.String()))
		}
		return nil, ErrProviderFailed.Wrap(err)
	}

	if err := s.repo.Payment.UpdateGateway(ctx, p.ID, checkout.ProviderRef, checkout.PaymentURL, checkout.Metadata); err != nil {
		s.log.Error("Failed to store gateway data", zap.Error(err), zap.String("payment_id", p.ID.String()))
		return nil, apperror.From(err)
	}
	p.ProviderRef = &checkout.ProviderRef
	p.PaymentURL = &checkout.PaymentURL
	p.Metadata = checkout.Metadata

	s.log.Info("Payment created",
		zap.String("payment_id", p.ID.String()),
		zap.String("provider", provider.Name()),
		zap.String("amount", amount.String()),
	)

	resp := response.PaymentToResponse(p)
	return &resp, nil
}

func (s *paymentService) find(ctx context.Context, id string) (*entity.Payment, error) {
	paymentID, err := uuid.Parse(id)
	if err != nil {
		return nil, ErrInvalidID.With("id", id)
	}
	p, err := s.repo.Payment.FindByID(ctx, paymentID)
	if err != nil {
		return nil, apperror.From(err)
	}
	if p == nil {
		return nil, ErrPaymentNotFound.With("payment_id", id)
	}
	return p, nil
}

func (s *paymentService) Get(ctx context.Context, actor Actor, id string) (*response.PaymentResponse, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.UserID != actor.UserID && !actor.IsAdmin() {
		return nil, ErrPaymentNotFound.With("payment_id", id)
	}
	return s.withTickets(ctx, p)
}

func (s *paymentService) withTickets(ctx context.Context, p *entity.Payment) (*response.PaymentResponse, error) {
	resp := response.PaymentToResponse(p)
	if len(p.TicketIDs) == 0 {
		return &resp, nil
	}

	tickets, err := s.repo.Ticket.FindByPayment(ctx, p.ID)
	if err != nil {
		return nil, apperror.From(err)
	}
	events, err := s.repo.Event.FindByIDs(ctx, []uuid.UUID{p.EventID})
	if err != nil {
		return nil, apperror.From(err)
	}
	resp.Tickets = response.TicketsToViews(tickets, events)
	return &resp, nil
}

func (s *paymentService) ListMine(ctx context.Context, actor Actor) ([]response.PaymentResponse, error) {
	payments, err := s.repo.Payment.FindByUser(ctx, actor.UserID, myPaymentsLimit)
	if err != nil {
		s.log.Error("Failed to list payments", zap.Error(err), zap.String("user_id", actor.UserID.String()))
		return nil, apperror.From(err)
	}

	out := make([]response.PaymentResponse, 0, len(payments))
	for _, p := range payments {
		out = append(out, response.PaymentToResponse(p))
	}
	return out, nil
}

func (s *paymentService) ConfirmMock(ctx context.Context, id string) (*response.PaymentResponse, error) {
	p, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Method != entity.MethodMock {
		return nil, apperror.Forbidden("NOT_MOCK_PAYMENT", "Only mock payments can be confirmed here")
	}

	if err := s.dispatch(ctx, &payment.Notification{PaymentID: p.ID, Outcome: payment.OutcomeSucceeded}, "mock"); err != nil {
		return nil, err
	}

	// re-read: with a broker the confirmation may still be in flight
	p, err = s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.withTickets(ctx, p)
}

func (s *paymentService) HandleStripeWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.stripe == nil {
		return ErrUnknownProvider.With("method", "stripe")
	}
	n, err := s.stripe.ParseWebhook(payload, signature)
	if err != nil {
		s.log.Warn("Rejected stripe webhook", zap.Error(err))
		return ErrInvalidWebhook.Wrap(err)
	}
	return s.dispatch(ctx, n, "stripe")
}

func (s *paymentService) HandleMidtransWebhook(ctx context.Context, body []byte) error {
	if s.midtrans == nil {
		return ErrUnknownProvider.With("method", "midtrans")
	}
	n, err := s.midtrans.ParseNotification(body)
	if err != nil {
		s.log.Warn("Rejected midtrans notification", zap.Error(err))
		return ErrInvalidWebhook.Wrap(err)
	}
	return s.dispatch(ctx, n, "midtrans")
}

// dispatch routes a verified notification. Successes go through the queue to
// the bridge; cancellations and failures close the pending payment here.
func (s *paymentService) dispatch(ctx context.Context, n *payment.Notification, provider string) error {
	switch n.Outcome {
	case payment.OutcomeSucceeded:
		err := s.publisher.PublishPaymentConfirmed(ctx, queue.PaymentConfirmed{
			PaymentID:  n.PaymentID,
			Provider:   provider,
			ReceivedAt: time.Now(),
		})
		if err != nil && !errors.Is(err, ErrPaymentClosed) {
			return apperror.From(err)
		}
		return nil

	case payment.OutcomeCanceled, payment.OutcomeFailed:
		status := entity.PaymentCanceled
		if n.Outcome == payment.OutcomeFailed {
			status = entity.PaymentFailed
		}
		closed, err := s.repo.Payment.MarkClosed(ctx, n.PaymentID, status, n.Reason)
		if err != nil {
			return apperror.From(err)
		}
		s.log.Info("Payment closed by provider",
			zap.String("payment_id", n.PaymentID.String()),
			zap.String("status", string(status)),
			zap.Bool("changed", closed),
		)
		return nil
	}

	s.log.Debug("Ignored provider notification", zap.String("provider", provider), zap.String("reason", n.Reason))
	return nil
}
