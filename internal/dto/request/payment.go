package request

type CreatePaymentRequest struct {
	PurchaseRequest
	Method string `json:"method" validate:"omitempty,oneof=mock stripe midtrans"`
}
