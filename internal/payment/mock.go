package payment

import (
	"context"
	"strings"
)

// MockProvider completes every checkout through the local
// /payment/success redirect. Used in development and tests.
type MockProvider struct {
	baseURL string
}

func NewMockProvider(baseURL string) *MockProvider {
	return &MockProvider{baseURL: strings.TrimRight(baseURL, "/")}
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	ref := "mock_" + req.PaymentID.String()
	return &CheckoutSession{
		ProviderRef: ref,
		PaymentURL:  m.baseURL + "/payment/success?paymentId=" + req.PaymentID.String(),
		Metadata: map[string]any{
			"mock":   true,
			"amount": req.Amount.StringFixed(2),
		},
	}, nil
}
