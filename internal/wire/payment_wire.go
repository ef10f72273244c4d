package wire

import (
	"event-ticketing/internal/adaptor"
	"event-ticketing/internal/data/repository"
	"event-ticketing/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wirePayment(
	r chi.Router,
	paymentHandler *adaptor.PaymentHandler,
	repo *repository.Repository,
	log *zap.Logger,
) {
	// ==================== PROVIDER CALLBACKS ====================
	// Authenticated by provider signatures, not sessions
	r.Post("/api/payments/stripe-webhook", paymentHandler.StripeWebhook)
	r.Post("/api/payments/midtrans-webhook", paymentHandler.MidtransWebhook)
	r.Get("/payment/success", paymentHandler.MockSuccess)

	// ==================== PROTECTED ROUTES ====================
	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, repo.User, log))

		r.Post("/api/payments", paymentHandler.CreatePayment)
		r.Get("/api/payments/my", paymentHandler.GetMyPayments)
		r.Get("/api/payments/{id}", paymentHandler.GetPayment)
	})
}
