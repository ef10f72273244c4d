package response

import (
	"time"

	"event-ticketing/internal/data/entity"

	"github.com/shopspring/decimal"
)

type PaymentResponse struct {
	ID          string               `json:"id"`
	EventID     string               `json:"event_id"`
	Quantity    int                  `json:"quantity"`
	Amount      decimal.Decimal      `json:"amount"`
	Currency    string               `json:"currency"`
	Status      entity.PaymentStatus `json:"status"`
	Method      entity.PaymentMethod `json:"method"`
	Description string               `json:"description"`
	PaymentURL  *string              `json:"paymentUrl,omitempty"`
	Failure     *string              `json:"failure_reason,omitempty"`
	TicketIDs   []string             `json:"ticket_ids"`
	Tickets     []TicketView         `json:"tickets,omitempty"`
	ConfirmedAt *time.Time           `json:"confirmed_at,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
}

func PaymentToResponse(p *entity.Payment) PaymentResponse {
	resp := PaymentResponse{
		ID:          p.ID.String(),
		EventID:     p.EventID.String(),
		Quantity:    p.Quantity,
		Amount:      p.Amount,
		Currency:    p.Currency,
		Status:      p.Status,
		Method:      p.Method,
		Description: p.Description,
		PaymentURL:  p.PaymentURL,
		Failure:     p.FailureReason,
		TicketIDs:   make([]string, 0, len(p.TicketIDs)),
		ConfirmedAt: p.ConfirmedAt,
		CreatedAt:   p.CreatedAt,
	}
	for _, id := range p.TicketIDs {
		resp.TicketIDs = append(resp.TicketIDs, id.String())
	}
	return resp
}
