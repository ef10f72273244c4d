package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/checkout/session"
	"github.com/stripe/stripe-go/v82/webhook"
)

type StripeProvider struct {
	sessions      *session.Client
	webhookSecret string
	successURL    string
	cancelURL     string
}

func NewStripeProvider(secretKey, webhookSecret, baseURL string) *StripeProvider {
	baseURL = strings.TrimRight(baseURL, "/")
	return &StripeProvider{
		sessions:      &session.Client{B: stripe.GetBackend(stripe.APIBackend), Key: secretKey},
		webhookSecret: webhookSecret,
		successURL:    baseURL + "/payment/return?status=success",
		cancelURL:     baseURL + "/payment/return?status=cancel",
	}
}

func (s *StripeProvider) Name() string { return "stripe" }

func (s *StripeProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	// stripe wants the amount in minor units
	qty := int64(max(req.Quantity, 1))
	unit := req.Amount.Div(decimal.NewFromInt(qty)).Shift(2).Round(0).IntPart()

	params := &stripe.CheckoutSessionParams{
		Mode: stripe.String(string(stripe.CheckoutSessionModePayment)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(strings.ToLower(req.Currency)),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
					UnitAmount: stripe.Int64(unit),
				},
				Quantity: stripe.Int64(qty),
			},
		},
		SuccessURL:        stripe.String(s.successURL + "&paymentId=" + req.PaymentID.String()),
		CancelURL:         stripe.String(s.cancelURL + "&paymentId=" + req.PaymentID.String()),
		ClientReferenceID: stripe.String(req.PaymentID.String()),
	}
	if req.Email != "" {
		params.CustomerEmail = stripe.String(req.Email)
	}
	params.Context = ctx
	params.AddMetadata("payment_id", req.PaymentID.String())

	cs, err := s.sessions.New(params)
	if err != nil {
		return nil, fmt.Errorf("stripe checkout for %s: %w", req.PaymentID, err)
	}

	return &CheckoutSession{
		ProviderRef: cs.ID,
		PaymentURL:  cs.URL,
		Metadata: map[string]any{
			"stripe_session_id": cs.ID,
		},
	}, nil
}

// ParseWebhook verifies the Stripe-Signature header and maps checkout events
// to a Notification. Other event types come back as OutcomeIgnored.
func (s *StripeProvider) ParseWebhook(payload []byte, signature string) (*Notification, error) {
	event, err := webhook.ConstructEventWithOptions(payload, signature, s.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}

	var outcome Outcome
	switch event.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		outcome = OutcomeSucceeded
	case "checkout.session.expired":
		outcome = OutcomeCanceled
	case "checkout.session.async_payment_failed":
		outcome = OutcomeFailed
	default:
		return &Notification{Outcome: OutcomeIgnored}, nil
	}

	var cs stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &cs); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	id, err := uuid.Parse(cs.ClientReferenceID)
	if err != nil {
		return nil, fmt.Errorf("checkout session %s has no payment reference: %w", cs.ID, err)
	}

	return &Notification{PaymentID: id, Outcome: outcome, Reason: string(event.Type)}, nil
}
