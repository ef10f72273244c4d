package entity

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentSucceeded PaymentStatus = "succeeded"
	PaymentCanceled  PaymentStatus = "canceled"
	PaymentFailed    PaymentStatus = "failed"
)

type PaymentMethod string

const (
	MethodMock     PaymentMethod = "mock"
	MethodStripe   PaymentMethod = "stripe"
	MethodMidtrans PaymentMethod = "midtrans"
)

// PurchaseSpec is the purchase request stored with a payment and replayed
// when the gateway confirms it.
type PurchaseSpec struct {
	Zone  string           `json:"zone,omitempty"`
	Seats []SeatAssignment `json:"seats,omitempty"`
}

type Payment struct {
	BaseNoDelete
	EventID       uuid.UUID       `db:"event_id"`
	UserID        uuid.UUID       `db:"user_id"`
	Quantity      int             `db:"quantity"`
	Amount        decimal.Decimal `db:"amount"`
	Currency      string          `db:"currency"`
	Status        PaymentStatus   `db:"status"`
	Method        PaymentMethod   `db:"method"`
	Description   string          `db:"description"`
	Purchase      PurchaseSpec    `db:"purchase"`
	ProviderRef   *string         `db:"provider_ref"`
	PaymentURL    *string         `db:"payment_url"`
	Metadata      map[string]any  `db:"metadata"`
	FailureReason *string         `db:"failure_reason"`
	ConfirmedAt   *time.Time      `db:"confirmed_at"`
	TicketIDs     []uuid.UUID
}
