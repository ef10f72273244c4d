package entity

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type EventCategory string

const (
	CategoryConcert    EventCategory = "concert"
	CategoryTheater    EventCategory = "theater"
	CategorySport      EventCategory = "sport"
	CategoryExhibition EventCategory = "exhibition"
	CategoryConference EventCategory = "conference"
	CategoryFestival   EventCategory = "festival"
	CategoryOther      EventCategory = "other"
)

type SeatingType string

const (
	SeatingFree  SeatingType = "free"
	SeatingZones SeatingType = "zones"
)

// Seating is either FreeSeating or ZonedSeating.
type Seating interface {
	Type() SeatingType
	isSeating()
}

type FreeSeating struct {
	Price decimal.Decimal
}

func (FreeSeating) Type() SeatingType { return SeatingFree }
func (FreeSeating) isSeating()        {}

type ZonedSeating struct {
	Zones []Zone
}

func (ZonedSeating) Type() SeatingType { return SeatingZones }
func (ZonedSeating) isSeating()        {}

// Capacity is the sum of zone capacities.
func (z ZonedSeating) Capacity() int {
	total := 0
	for _, zone := range z.Zones {
		total += zone.Capacity
	}
	return total
}

type Zone struct {
	ID       uuid.UUID       `db:"id"`
	EventID  uuid.UUID       `db:"event_id"`
	Name     string          `db:"name"`
	Price    decimal.Decimal `db:"price"`
	Capacity int             `db:"capacity"`
	Rows     *int            `db:"rows"`
	Position int             `db:"position"`
}

// Layout returns the row count and seats per row. Seats are numbered row
// by row; the last row may be short when capacity is not a multiple.
func (z Zone) Layout() (rows, perRow int) {
	rows = 1
	if z.Rows != nil && *z.Rows > 0 {
		rows = *z.Rows
	}
	if rows > z.Capacity {
		rows = z.Capacity
	}
	perRow = (z.Capacity + rows - 1) / rows
	return rows, perRow
}

// SeatIndex maps (row, number) to a 0-based index, or -1 when the seat does
// not exist in this zone.
func (z Zone) SeatIndex(row, number int) int {
	rows, perRow := z.Layout()
	if row < 1 || row > rows || number < 1 || number > perRow {
		return -1
	}
	idx := (row-1)*perRow + (number - 1)
	if idx >= z.Capacity {
		return -1
	}
	return idx
}

// SeatAt is the inverse of SeatIndex.
func (z Zone) SeatAt(idx int) (row, number int) {
	_, perRow := z.Layout()
	return idx/perRow + 1, idx%perRow + 1
}

type Event struct {
	Base
	Code        string        `db:"code"`
	Title       string        `db:"title"`
	Description string        `db:"description"`
	Category    EventCategory `db:"category"`
	StartsAt    time.Time     `db:"starts_at"`
	StartTime   string        `db:"start_time"`
	EndTime     *string       `db:"end_time"`
	Venue       string        `db:"venue"`
	Address     string        `db:"address"`
	City        string        `db:"city"`
	Country     string        `db:"country"`
	Image       *string       `db:"image"`
	Capacity    int           `db:"capacity"`
	Seating     Seating
	OrganizerID uuid.UUID `db:"organizer_id"`
}

func (e *Event) IsZoned() bool {
	return e.Seating != nil && e.Seating.Type() == SeatingZones
}

func (e *Event) Zones() []Zone {
	if zoned, ok := e.Seating.(ZonedSeating); ok {
		return zoned.Zones
	}
	return nil
}

// FindZone resolves a zone by id or by case-insensitive name.
func (e *Event) FindZone(ref string) (Zone, bool) {
	ref = strings.TrimSpace(ref)
	for _, z := range e.Zones() {
		if z.ID.String() == ref || strings.EqualFold(z.Name, ref) {
			return z, true
		}
	}
	return Zone{}, false
}

func (e *Event) HasStarted(now time.Time) bool {
	return !e.StartsAt.After(now)
}

func (e *Event) IsDeleted() bool {
	return e.DeletedAt != nil
}
