package usecase

import (
	"errors"

	"event-ticketing/pkg/apperror"
)

// Sentinels returned by services. Handlers render them through apperror, so
// Code and Message are part of the public API.
var (
	ErrEventNotFound        = apperror.NotFound("EVENT_NOT_FOUND", "Event not found")
	ErrEventExpired         = apperror.New(apperror.KindValidation, "EVENT_EXPIRED", "Event has already started")
	ErrInsufficientCapacity = apperror.Conflict("INSUFFICIENT_CAPACITY", "Not enough tickets left")
	ErrSeatTaken            = apperror.Conflict("SEAT_TAKEN", "Seat is already taken")
	ErrZoneFull             = apperror.Conflict("ZONE_FULL", "Not enough seats left in zone")
	ErrUnknownZone          = apperror.New(apperror.KindValidation, "UNKNOWN_ZONE", "Zone does not exist for this event")
	ErrZoneRequired         = apperror.New(apperror.KindValidation, "ZONE_REQUIRED", "Zone is required for zoned events")
	ErrInvalidSeat          = apperror.New(apperror.KindValidation, "INVALID_SEAT", "Seat does not exist")
	ErrSeatingMismatch      = apperror.New(apperror.KindValidation, "SEATING_MISMATCH", "Seat selection does not match quantity")
	ErrInvalidQuantity      = apperror.New(apperror.KindValidation, "INVALID_QUANTITY", "Quantity must be at least 1")
	ErrTooManyTickets       = apperror.New(apperror.KindValidation, "TOO_MANY_TICKETS", "Too many tickets in one purchase")
	ErrInvalidSeating       = apperror.New(apperror.KindValidation, "INVALID_SEATING", "Seating configuration is invalid")
	ErrGenerationExhausted  = apperror.New(apperror.KindInternal, "GENERATION_EXHAUSTED", "Could not generate a unique code")

	ErrTicketNotFound      = apperror.NotFound("TICKET_NOT_FOUND", "Ticket not found")
	ErrTicketAccessDenied  = apperror.Forbidden("TICKET_ACCESS_DENIED", "You do not have access to this ticket")
	ErrForbiddenTransition = apperror.Forbidden("FORBIDDEN_TRANSITION", "You are not allowed to make this status change")
	ErrInvalidTransition   = apperror.Conflict("INVALID_TRANSITION", "Ticket cannot move to this status")
	ErrNotOrganizer        = apperror.Forbidden("NOT_ORGANIZER", "Only the organizer can do this")
	ErrInvalidQR           = apperror.New(apperror.KindValidation, "INVALID_QR", "QR data is not a valid ticket")
	ErrQRUnavailable       = apperror.New(apperror.KindInternal, "QR_FAILED", "QR code could not be generated, try again later")
	ErrInvalidStatus       = apperror.New(apperror.KindValidation, "INVALID_STATUS", "Unknown ticket status")

	ErrPaymentNotFound  = apperror.NotFound("PAYMENT_NOT_FOUND", "Payment not found")
	ErrPaymentClosed    = apperror.Conflict("PAYMENT_CLOSED", "Payment is no longer pending")
	ErrUnknownProvider  = apperror.New(apperror.KindValidation, "UNKNOWN_PROVIDER", "Payment method is not available")
	ErrProviderFailed   = apperror.New(apperror.KindInternal, "PROVIDER_FAILED", "Payment provider is unavailable")
	ErrInvalidWebhook   = apperror.New(apperror.KindValidation, "INVALID_WEBHOOK", "Webhook could not be verified")
	errPaymentConfirmed = apperror.Conflict("PAYMENT_ALREADY_CONFIRMED", "Payment already confirmed")

	ErrUserNotFound       = apperror.NotFound("USER_NOT_FOUND", "User not found")
	ErrOrganizerHasEvents = apperror.Conflict("ORGANIZER_HAS_EVENTS", "User organizes events and cannot be deleted")
	ErrEmailTaken         = apperror.Conflict("EMAIL_TAKEN", "Email already registered")
	ErrUsernameTaken      = apperror.Conflict("USERNAME_TAKEN", "Username already taken")
	ErrInvalidCredentials = apperror.Unauthorized("Invalid credentials")
	ErrAccountDisabled    = apperror.Forbidden("ACCOUNT_DISABLED", "Account is deactivated")
	ErrInvalidID          = apperror.New(apperror.KindValidation, "INVALID_ID", "Invalid ID")
)

func fieldError(field, msg string) *apperror.Error {
	return apperror.Validation("Validation failed").With(field, msg)
}

// isCode reports whether err carries the same code as target.
func isCode(err error, target *apperror.Error) bool {
	return errors.Is(err, target)
}

func validationError(errs map[string]string) *apperror.Error {
	e := apperror.Validation("Validation failed")
	for field, msg := range errs {
		e = e.With(field, msg)
	}
	return e
}
