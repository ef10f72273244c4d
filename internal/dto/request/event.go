package request

import "github.com/shopspring/decimal"

type CreateEventRequest struct {
	Title       string         `json:"title" validate:"required,max=200"`
	Description string         `json:"description" validate:"max=5000"`
	Category    string         `json:"category" validate:"required,oneof=concert theater sport exhibition conference festival other"`
	Date        string         `json:"date" validate:"required,datetime=2006-01-02"`
	Time        string         `json:"time" validate:"required,datetime=15:04"`
	EndTime     *string        `json:"end_time,omitempty" validate:"omitempty,datetime=15:04"`
	Venue       string         `json:"venue" validate:"required,max=200"`
	Address     string         `json:"address" validate:"max=300"`
	City        string         `json:"city" validate:"required,max=100"`
	Country     string         `json:"country" validate:"max=100"`
	Image       *string        `json:"image,omitempty" validate:"omitempty,url"`
	Capacity    int            `json:"capacity" validate:"omitempty,min=1"`
	Seating     SeatingRequest `json:"seating"`
}

// SeatingRequest carries one of two shapes selected by Type: free seating
// needs Price, zoned seating needs Zones.
type SeatingRequest struct {
	Type  string              `json:"type" validate:"required,oneof=free zones"`
	Price *decimal.Decimal    `json:"price,omitempty"`
	Zones []CreateZoneRequest `json:"zones,omitempty" validate:"omitempty,max=50,dive"`
}

type CreateZoneRequest struct {
	Name     string          `json:"name" validate:"required,max=100"`
	Price    decimal.Decimal `json:"price"`
	Capacity int             `json:"capacity" validate:"required,min=1"`
	Rows     *int            `json:"rows,omitempty" validate:"omitempty,min=1"`
}

type ListEventsRequest struct {
	PaginatedRequest
	Category string `json:"category" validate:"omitempty,oneof=concert theater sport exhibition conference festival other"`
}
