package payment

import (
	"context"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/midtrans/midtrans-go"
	"github.com/midtrans/midtrans-go/snap"
)

type MidtransProvider struct {
	client    snap.Client
	serverKey string
}

func NewMidtransProvider(serverKey string, production bool) *MidtransProvider {
	env := midtrans.Sandbox
	if production {
		env = midtrans.Production
	}

	p := &MidtransProvider{serverKey: serverKey}
	p.client.New(serverKey, env)
	return p
}

func (m *MidtransProvider) Name() string { return "midtrans" }

func (m *MidtransProvider) CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error) {
	gross := req.Amount.Round(0).IntPart()
	snapReq := &snap.Request{
		TransactionDetails: midtrans.TransactionDetails{
			OrderID:  req.PaymentID.String(),
			GrossAmt: gross,
		},
		CustomerDetail: &midtrans.CustomerDetails{
			FName: req.Name,
			Email: req.Email,
		},
		Items: &[]midtrans.ItemDetails{{
			ID:       req.PaymentID.String(),
			Name:     truncate(fmt.Sprintf("%dx %s", req.Quantity, req.Description), 50),
			Price:    gross,
			Qty:      1,
			Category: "Event Ticket",
		}},
	}

	type result struct {
		resp *snap.Response
		err  *midtrans.Error
	}
	done := make(chan result, 1)
	// snap.Client has no context support
	go func() {
		resp, err := m.client.CreateTransaction(snapReq)
		done <- result{resp, err}
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("midtrans checkout for %s: %w", req.PaymentID, ctx.Err())
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("midtrans checkout for %s: %s", req.PaymentID, r.err.Error())
		}
		return &CheckoutSession{
			ProviderRef: r.resp.Token,
			PaymentURL:  r.resp.RedirectURL,
			Metadata: map[string]any{
				"snap_token":   r.resp.Token,
				"gross_amount": gross,
			},
		}, nil
	}
}

// MidtransNotification is the subset of the HTTP notification body we read.
type MidtransNotification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
}

// ParseNotification checks signature_key, which midtrans computes as
// sha512(order_id + status_code + gross_amount + server_key).
func (m *MidtransProvider) ParseNotification(body []byte) (*Notification, error) {
	var n MidtransNotification
	if err := json.Unmarshal(body, &n); err != nil {
		return nil, fmt.Errorf("decode midtrans notification: %w", err)
	}

	want := MidtransSignature(n.OrderID, n.StatusCode, n.GrossAmount, m.serverKey)
	if subtle.ConstantTimeCompare([]byte(want), []byte(n.SignatureKey)) != 1 {
		return nil, ErrInvalidSignature
	}

	id, err := uuid.Parse(n.OrderID)
	if err != nil {
		return nil, fmt.Errorf("midtrans order id %q: %w", n.OrderID, err)
	}

	notif := &Notification{PaymentID: id, Reason: n.TransactionStatus}
	switch n.TransactionStatus {
	case "settlement":
		notif.Outcome = OutcomeSucceeded
	case "capture":
		notif.Outcome = OutcomeSucceeded
		if n.FraudStatus == "challenge" {
			notif.Outcome = OutcomeIgnored
		}
	case "deny":
		notif.Outcome = OutcomeFailed
	case "cancel", "expire":
		notif.Outcome = OutcomeCanceled
	default:
		notif.Outcome = OutcomeIgnored
	}
	return notif, nil
}

func MidtransSignature(orderID, statusCode, grossAmount, serverKey string) string {
	sum := sha512.Sum512([]byte(orderID + statusCode + grossAmount + serverKey))
	return hex.EncodeToString(sum[:])
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
