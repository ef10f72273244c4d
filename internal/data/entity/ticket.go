package entity

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TicketStatus string

const (
	TicketActive  TicketStatus = "active"
	TicketUsed    TicketStatus = "used"
	TicketInvalid TicketStatus = "invalid"
)

// ParseTicketStatus accepts any casing, e.g. "Used" or "used".
func ParseTicketStatus(s string) (TicketStatus, bool) {
	switch TicketStatus(strings.ToLower(strings.TrimSpace(s))) {
	case TicketActive:
		return TicketActive, true
	case TicketUsed:
		return TicketUsed, true
	case TicketInvalid:
		return TicketInvalid, true
	}
	return "", false
}

// Display is the capitalised form shown to clients.
func (s TicketStatus) Display() string {
	if s == "" {
		return ""
	}
	return strings.ToUpper(string(s[:1])) + string(s[1:])
}

// HoldsInventory reports whether a ticket in this status counts against
// capacity and blocks its seat.
func (s TicketStatus) HoldsInventory() bool {
	return s == TicketActive || s == TicketUsed
}

type SeatAssignment struct {
	Zone   string `json:"zone"`
	Row    int    `json:"row"`
	Number int    `json:"number"`
}

func (s SeatAssignment) Label() string {
	return fmt.Sprintf("%s, row %d, seat %d", s.Zone, s.Row, s.Number)
}

func (s SeatAssignment) Key() string {
	return fmt.Sprintf("%s|%d|%d", strings.ToLower(s.Zone), s.Row, s.Number)
}

const GeneralAdmission = "General admission"

type Ticket struct {
	BaseNoDelete
	Code        string          `db:"code"`
	EventID     uuid.UUID       `db:"event_id"`
	UserID      uuid.UUID       `db:"user_id"`
	PaymentID   *uuid.UUID      `db:"payment_id"`
	Price       decimal.Decimal `db:"price"`
	SeatLabel   string          `db:"seat_label"`
	Seat        *SeatAssignment
	Status      TicketStatus `db:"status"`
	PurchasedAt time.Time    `db:"purchased_at"`
	QRCodeURL   *string      `db:"qr_code_url"`
	QRPayload   *string      `db:"qr_payload"`
}

type TicketStats struct {
	Total          int64
	ByStatus       map[TicketStatus]int64
	Revenue        decimal.Decimal
	MonthlyRevenue []MonthlyRevenue
}

type MonthlyRevenue struct {
	Month   string
	Tickets int64
	Revenue decimal.Decimal
}
