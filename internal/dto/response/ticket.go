package response

import (
	"time"

	"event-ticketing/internal/data/entity"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	QRReady      = "ready"
	QRGenerating = "generating"
)

type TicketEventView struct {
	ID    string `json:"id"`
	Code  string `json:"code"`
	Title string `json:"title"`
	Date  string `json:"date"`
	Time  string `json:"time"`
	Venue string `json:"venue"`
	City  string `json:"city"`
}

type TicketView struct {
	ID           string                 `json:"id"`
	Code         string                 `json:"code"`
	Status       string                 `json:"status"`
	Event        TicketEventView        `json:"event"`
	Seat         string                 `json:"seat"`
	SeatDetail   *entity.SeatAssignment `json:"seatDetail,omitempty"`
	Price        decimal.Decimal        `json:"price"`
	PurchaseDate time.Time              `json:"purchaseDate"`
	QRCodeURL    *string                `json:"qrCodeUrl"`
	QRStatus     string                 `json:"qrStatus"`
	OwnerID      string                 `json:"ownerId"`
}

func TicketToView(t *entity.Ticket, ev *entity.Event) TicketView {
	view := TicketView{
		ID:           t.ID.String(),
		Code:         t.Code,
		Status:       t.Status.Display(),
		Seat:         t.SeatLabel,
		SeatDetail:   t.Seat,
		Price:        t.Price,
		PurchaseDate: t.PurchasedAt,
		QRCodeURL:    t.QRCodeURL,
		QRStatus:     QRGenerating,
		OwnerID:      t.UserID.String(),
	}
	if t.QRCodeURL != nil {
		view.QRStatus = QRReady
	}
	if ev != nil {
		view.Event = TicketEventView{
			ID:    ev.ID.String(),
			Code:  ev.Code,
			Title: ev.Title,
			Date:  ev.StartsAt.Format("2006-01-02"),
			Time:  ev.StartTime,
			Venue: ev.Venue,
			City:  ev.City,
		}
	}
	return view
}

// TicketsToViews renders tickets using events looked up by id.
func TicketsToViews(tickets []*entity.Ticket, events map[uuid.UUID]*entity.Event) []TicketView {
	views := make([]TicketView, 0, len(tickets))
	for _, t := range tickets {
		views = append(views, TicketToView(t, events[t.EventID]))
	}
	return views
}

type PurchaseResponse struct {
	Tickets []TicketView    `json:"tickets"`
	Total   decimal.Decimal `json:"total"`
}

type ScanResponse struct {
	Ticket   TicketView `json:"ticket"`
	IsValid  bool       `json:"isValid"`
	Redeemed bool       `json:"redeemed"`
	Message  string     `json:"message"`
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type MonthlyRevenueResponse struct {
	Month   string          `json:"month"`
	Tickets int64           `json:"tickets"`
	Revenue decimal.Decimal `json:"revenue"`
}

type TicketStatsResponse struct {
	Total          int64                    `json:"total"`
	ByStatus       []StatusCount            `json:"by_status"`
	Revenue        decimal.Decimal          `json:"revenue"`
	MonthlyRevenue []MonthlyRevenueResponse `json:"monthly_revenue"`
}

type UserStatsResponse struct {
	TicketsCount int64           `json:"ticketsCount"`
	Active       int64           `json:"active"`
	Used         int64           `json:"used"`
	Invalid      int64           `json:"invalid"`
	EventsCount  int64           `json:"eventsCount"`
	TotalSpent   decimal.Decimal `json:"totalSpent"`
}

func StatsToResponse(stats *entity.TicketStats) TicketStatsResponse {
	resp := TicketStatsResponse{
		Total:          stats.Total,
		Revenue:        stats.Revenue,
		ByStatus:       []StatusCount{},
		MonthlyRevenue: []MonthlyRevenueResponse{},
	}
	for _, s := range []entity.TicketStatus{entity.TicketActive, entity.TicketUsed, entity.TicketInvalid} {
		resp.ByStatus = append(resp.ByStatus, StatusCount{Status: s.Display(), Count: stats.ByStatus[s]})
	}
	for _, m := range stats.MonthlyRevenue {
		resp.MonthlyRevenue = append(resp.MonthlyRevenue, MonthlyRevenueResponse(m))
	}
	return resp
}
