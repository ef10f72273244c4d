package request

type SeatSelection struct {
	Zone   string `json:"zone"`
	Row    int    `json:"row" validate:"required,min=1"`
	Number int    `json:"number" validate:"required,min=1"`
}

// PurchaseRequest identifies the event by id or public code.
type PurchaseRequest struct {
	EventID        string          `json:"eventId" validate:"required"`
	Quantity       int             `json:"quantity" validate:"required,min=1,max=50"`
	ZoneID         string          `json:"zoneId,omitempty"`
	SeatSelections []SeatSelection `json:"seatSelections,omitempty" validate:"omitempty,max=50,dive"`
}

type ChangeStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=Used Invalid used invalid"`
}

type ValidateTicketRequest struct {
	Code   string `json:"code" validate:"required,len=6"`
	Redeem bool   `json:"redeem"`
}

type ScanTicketRequest struct {
	QRData string `json:"qrData" validate:"required"`
	Redeem bool   `json:"redeem"`
}
