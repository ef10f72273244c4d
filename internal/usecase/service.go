package usecase

import (
	"event-ticketing/internal/data/repository"
	"event-ticketing/internal/payment"
	"event-ticketing/internal/queue"
	"event-ticketing/pkg/lock"
	"event-ticketing/pkg/storage"
	"event-ticketing/pkg/utils"

	"go.uber.org/zap"
)

// Deps are the infrastructure pieces the services run on.
type Deps struct {
	Locker    lock.Locker
	Store     storage.Store
	Providers *payment.Registry
	Stripe    *payment.StripeProvider
	Midtrans  *payment.MidtransProvider
	Publisher queue.Publisher
}

type Service struct {
	Auth    AuthService
	User    UserService
	Event   EventService
	Ticket  TicketService
	Payment PaymentService
	Bridge  *PaymentBridge
}

func NewService(repo *repository.Repository, config *utils.Config, deps Deps, log *zap.Logger) *Service {
	qr := NewQRIssuer(repo.Ticket, deps.Store, config.QR.Size, config.QR.SigningKey, log)
	issuer := NewTicketIssuer(
		repo,
		NewCodeGenerator(TicketCodeLength, config.Tickets.CodeMaxAttempts),
		qr,
		deps.Locker,
		IssuerConfig{
			QRTimeout:      config.QR.Timeout,
			MaxPerPurchase: config.Tickets.MaxPerPurchase,
		},
		log,
	)
	lifecycle := NewTicketLifecycle(repo.Ticket, log)
	eventCodes := NewCodeGenerator(EventCodeLength, config.Tickets.CodeMaxAttempts)

	return &Service{
		Auth:   NewAuthService(repo, config, log),
		User:   NewUserService(repo.User, repo.Event, log),
		Event:  NewEventService(repo, issuer.Ledger(), eventCodes, log),
		Ticket: NewTicketService(repo, issuer, lifecycle, qr, deps.Publisher, config, log),
		Payment: NewPaymentService(repo, issuer.Ledger(), PaymentDeps{
			Providers: deps.Providers,
			Stripe:    deps.Stripe,
			Midtrans:  deps.Midtrans,
			Publisher: deps.Publisher,
		}, config, log),
		Bridge: NewPaymentBridge(repo, issuer, deps.Publisher, log),
	}
}
