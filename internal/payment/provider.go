// Package payment talks to the checkout providers. Providers only open
// checkouts and decode callbacks; ticket issuance happens in usecase once a
// confirmation reaches the payment bridge.
package payment

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrInvalidSignature = errors.New("payment: callback signature mismatch")

type CheckoutRequest struct {
	PaymentID   uuid.UUID
	Amount      decimal.Decimal
	Currency    string
	Quantity    int
	Description string
	Email       string
	Name        string
}

type CheckoutSession struct {
	ProviderRef string
	PaymentURL  string
	Metadata    map[string]any
}

type Provider interface {
	Name() string
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*CheckoutSession, error)
}

type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeCanceled  Outcome = "canceled"
	OutcomeFailed    Outcome = "failed"
	// OutcomeIgnored covers notifications that do not settle the payment,
	// e.g. midtrans "pending".
	OutcomeIgnored Outcome = "ignored"
)

// Notification is a verified provider callback reduced to what the bridge
// needs: which payment and what happened.
type Notification struct {
	PaymentID uuid.UUID
	Outcome   Outcome
	Reason    string
}

type Registry struct {
	providers map[string]Provider
	fallback  string
}

func NewRegistry(fallback string, providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers)), fallback: fallback}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Get returns the named provider, or the default one when name is empty.
func (r *Registry) Get(name string) (Provider, error) {
	if name == "" {
		name = r.fallback
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("payment provider %q not configured", name)
	}
	return p, nil
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
