package response

import (
	"time"

	"event-ticketing/internal/data/entity"

	"github.com/shopspring/decimal"
)

type ZoneResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Capacity  int             `json:"capacity"`
	Rows      int             `json:"rows"`
	PerRow    int             `json:"seats_per_row"`
	Available *int            `json:"available,omitempty"`
}

type SeatingResponse struct {
	Type  entity.SeatingType `json:"type"`
	Price *decimal.Decimal   `json:"price,omitempty"`
	Zones []ZoneResponse     `json:"zones,omitempty"`
}

type EventResponse struct {
	ID               string               `json:"id"`
	Code             string               `json:"code"`
	Title            string               `json:"title"`
	Description      string               `json:"description"`
	Category         entity.EventCategory `json:"category"`
	Date             string               `json:"date"`
	Time             string               `json:"time"`
	EndTime          *string              `json:"end_time,omitempty"`
	StartsAt         time.Time            `json:"starts_at"`
	Venue            string               `json:"venue"`
	Address          string               `json:"address,omitempty"`
	City             string               `json:"city"`
	Country          string               `json:"country,omitempty"`
	Image            *string              `json:"image,omitempty"`
	Capacity         int                  `json:"capacity"`
	TicketsAvailable *int                 `json:"tickets_available,omitempty"`
	Seating          SeatingResponse      `json:"seating"`
	OrganizerID      string               `json:"organizer_id"`
	CreatedAt        time.Time            `json:"created_at"`
}

// EventToResponse renders an event. available and zoneAvailable are optional
// ledger figures and may be nil.
func EventToResponse(ev *entity.Event, available *int, zoneAvailable map[string]int) EventResponse {
	resp := EventResponse{
		ID:               ev.ID.String(),
		Code:             ev.Code,
		Title:            ev.Title,
		Description:      ev.Description,
		Category:         ev.Category,
		Date:             ev.StartsAt.Format("2006-01-02"),
		Time:             ev.StartTime,
		EndTime:          ev.EndTime,
		StartsAt:         ev.StartsAt,
		Venue:            ev.Venue,
		Address:          ev.Address,
		City:             ev.City,
		Country:          ev.Country,
		Image:            ev.Image,
		Capacity:         ev.Capacity,
		TicketsAvailable: available,
		OrganizerID:      ev.OrganizerID.String(),
		CreatedAt:        ev.CreatedAt,
	}

	switch seating := ev.Seating.(type) {
	case entity.FreeSeating:
		price := seating.Price
		resp.Seating = SeatingResponse{Type: entity.SeatingFree, Price: &price}
	case entity.ZonedSeating:
		resp.Seating = SeatingResponse{Type: entity.SeatingZones}
		for _, z := range seating.Zones {
			rows, perRow := z.Layout()
			zr := ZoneResponse{
				ID:       z.ID.String(),
				Name:     z.Name,
				Price:    z.Price,
				Capacity: z.Capacity,
				Rows:     rows,
				PerRow:   perRow,
			}
			if zoneAvailable != nil {
				n := zoneAvailable[z.Name]
				zr.Available = &n
			}
			resp.Seating.Zones = append(resp.Seating.Zones, zr)
		}
	}

	return resp
}

type TakenSeatsResponse struct {
	EventID string                  `json:"event_id"`
	Seats   []entity.SeatAssignment `json:"seats"`
}
