package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82/webhook"
)

func TestRegistry_GetFallsBackToDefault(t *testing.T) {
	reg := NewRegistry("mock", NewMockProvider("http://localhost:8080"))

	p, err := reg.Get("")
	require.NoError(t, err)
	assert.Equal(t, "mock", p.Name())

	_, err = reg.Get("paypal")
	assert.Error(t, err)
	assert.Equal(t, []string{"mock"}, reg.Names())
}

func TestMockProvider_RedirectsToSuccessPage(t *testing.T) {
	id := uuid.New()
	cs, err := NewMockProvider("http://localhost:8080/").CreateCheckout(context.Background(), CheckoutRequest{
		PaymentID: id,
		Amount:    decimal.NewFromInt(1500),
		Quantity:  2,
	})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:8080/payment/success?paymentId="+id.String(), cs.PaymentURL)
	assert.Equal(t, "mock_"+id.String(), cs.ProviderRef)
}

func midtransBody(t *testing.T, orderID, status, sig string) []byte {
	t.Helper()
	body, err := json.Marshal(MidtransNotification{
		OrderID:           orderID,
		StatusCode:        "200",
		GrossAmount:       "150000.00",
		SignatureKey:      sig,
		TransactionStatus: status,
	})
	require.NoError(t, err)
	return body
}

func TestMidtrans_ParseNotification(t *testing.T) {
	const key = "SB-Mid-server-test"
	p := NewMidtransProvider(key, false)
	id := uuid.New()

	tests := []struct {
		status string
		want   Outcome
	}{
		{"settlement", OutcomeSucceeded},
		{"capture", OutcomeSucceeded},
		{"deny", OutcomeFailed},
		{"cancel", OutcomeCanceled},
		{"expire", OutcomeCanceled},
		{"pending", OutcomeIgnored},
	}
	for _, tt := range tests {
		t.Run(tt.status, func(t *testing.T) {
			sig := MidtransSignature(id.String(), "200", "150000.00", key)
			n, err := p.ParseNotification(midtransBody(t, id.String(), tt.status, sig))
			require.NoError(t, err)
			assert.Equal(t, id, n.PaymentID)
			assert.Equal(t, tt.want, n.Outcome)
		})
	}
}

func TestMidtrans_RejectsBadSignature(t *testing.T) {
	p := NewMidtransProvider("server-key", false)
	id := uuid.New()

	forged := MidtransSignature(id.String(), "200", "150000.00", "other-key")
	_, err := p.ParseNotification(midtransBody(t, id.String(), "settlement", forged))
	assert.ErrorIs(t, err, ErrInvalidSignature)
}

func TestStripe_ParseWebhook(t *testing.T) {
	const secret = "whsec_test"
	p := NewStripeProvider("sk_test", secret, "http://localhost:8080")
	id := uuid.New()

	payload := []byte(fmt.Sprintf(`{
		"id": "evt_1",
		"object": "event",
		"type": "checkout.session.completed",
		"data": {"object": {"id": "cs_1", "object": "checkout.session", "client_reference_id": %q}}
	}`, id.String()))

	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})

	n, err := p.ParseWebhook(signed.Payload, signed.Header)
	require.NoError(t, err)
	assert.Equal(t, id, n.PaymentID)
	assert.Equal(t, OutcomeSucceeded, n.Outcome)

	_, err = p.ParseWebhook(payload, "t=1,v1=deadbeef")
	assert.ErrorIs(t, err, ErrInvalidSignature)
}
