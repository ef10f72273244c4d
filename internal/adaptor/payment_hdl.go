package adaptor

import (
	"encoding/json"
	"io"
	"net/http"

	"event-ticketing/internal/dto/request"
	"event-ticketing/internal/usecase"
	"event-ticketing/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const maxWebhookBody = 65536

type PaymentHandler struct {
	service usecase.PaymentService
	log     *zap.Logger
}

func NewPaymentHandler(service usecase.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log.With(zap.String("handler", "payment")),
	}
}

// CreatePayment handles POST /api/payments (protected). It answers with the
// pending payment and the provider checkout URL.
func (h *PaymentHandler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.CreatePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	payment, err := h.service.Create(r.Context(), actor, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create payment")
		return
	}

	utils.ResponseCreated(w, "Payment created", payment)
}

// GetMyPayments handles GET /api/payments/my (protected)
func (h *PaymentHandler) GetMyPayments(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	payments, err := h.service.ListMine(r.Context(), actor)
	if err != nil {
		handleServiceError(w, h.log, err, "list my payments")
		return
	}

	utils.ResponseSuccess(w, "success", payments)
}

// GetPayment handles GET /api/payments/{id} (owner or admin)
func (h *PaymentHandler) GetPayment(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	payment, err := h.service.Get(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "get payment")
		return
	}

	utils.ResponseSuccess(w, "success", payment)
}

// MockSuccess handles GET /payment/success?paymentId= which the mock
// checkout redirects to.
func (h *PaymentHandler) MockSuccess(w http.ResponseWriter, r *http.Request) {
	id := r.URL.Query().Get("paymentId")
	if id == "" {
		utils.ResponseBadRequest(w, "paymentId is required", nil)
		return
	}

	payment, err := h.service.ConfirmMock(r.Context(), id)
	if err != nil {
		handleServiceError(w, h.log, err, "confirm mock payment")
		return
	}

	utils.ResponseSuccess(w, "Payment confirmed", payment)
}

// StripeWebhook handles POST /api/payments/stripe-webhook
func (h *PaymentHandler) StripeWebhook(w http.ResponseWriter, r *http.Request) {
	payload, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := h.service.HandleStripeWebhook(r.Context(), payload, r.Header.Get("Stripe-Signature")); err != nil {
		handleServiceError(w, h.log, err, "handle stripe webhook")
		return
	}

	utils.ResponseSuccess(w, "received", nil)
}

// MidtransWebhook handles POST /api/payments/midtrans-webhook
func (h *PaymentHandler) MidtransWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := h.service.HandleMidtransWebhook(r.Context(), body); err != nil {
		handleServiceError(w, h.log, err, "handle midtrans webhook")
		return
	}

	utils.ResponseSuccess(w, "received", nil)
}
