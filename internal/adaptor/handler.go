package adaptor

import (
	"event-ticketing/internal/usecase"

	"go.uber.org/zap"
)

type Handler struct {
	Auth    *AuthHandler
	User    *UserHandler
	Event   *EventHandler
	Ticket  *TicketHandler
	Payment *PaymentHandler
}

func NewHandler(service *usecase.Service, log *zap.Logger) *Handler {
	return &Handler{
		Auth:    NewAuthHandler(service.Auth, log),
		User:    NewUserHandler(service.User, log),
		Event:   NewEventHandler(service.Event, log),
		Ticket:  NewTicketHandler(service.Ticket, log),
		Payment: NewPaymentHandler(service.Payment, log),
	}
}
