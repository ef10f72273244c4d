package adaptor

import (
	"encoding/json"
	"net/http"

	"event-ticketing/internal/dto/request"
	"event-ticketing/internal/usecase"
	"event-ticketing/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type TicketHandler struct {
	service usecase.TicketService
	log     *zap.Logger
}

func NewTicketHandler(service usecase.TicketService, log *zap.Logger) *TicketHandler {
	return &TicketHandler{
		service: service,
		log:     log.With(zap.String("handler", "ticket")),
	}
}

// Purchase handles POST /api/tickets/purchase (protected)
func (h *TicketHandler) Purchase(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.PurchaseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.service.Purchase(r.Context(), actor, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "purchase tickets")
		return
	}

	utils.ResponseCreated(w, "Tickets purchased successfully", result)
}

// GetMyTickets handles GET /api/tickets/my?status= (protected)
func (h *TicketHandler) GetMyTickets(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	tickets, err := h.service.ListMine(r.Context(), actor, r.URL.Query().Get("status"))
	if err != nil {
		handleServiceError(w, h.log, err, "list my tickets")
		return
	}

	utils.ResponseSuccess(w, "success", tickets)
}

// GetUserStats handles GET /api/user/stats
func (h *TicketHandler) GetUserStats(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	stats, err := h.service.UserStats(r.Context(), actor)
	if err != nil {
		handleServiceError(w, h.log, err, "get user stats")
		return
	}

	utils.ResponseSuccess(w, "success", stats)
}

// GetTicket handles GET /api/tickets/{code} (owner or event staff)
func (h *TicketHandler) GetTicket(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	ticket, err := h.service.Get(r.Context(), actor, chi.URLParam(r, "code"))
	if err != nil {
		handleServiceError(w, h.log, err, "get ticket")
		return
	}

	utils.ResponseSuccess(w, "success", ticket)
}

// ChangeStatus handles PATCH /api/tickets/{code}/status
func (h *TicketHandler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.ChangeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	ticket, err := h.service.ChangeStatus(r.Context(), actor, chi.URLParam(r, "code"), &req)
	if err != nil {
		handleServiceError(w, h.log, err, "change ticket status")
		return
	}

	utils.ResponseSuccess(w, "Ticket status updated", ticket)
}

// RegenerateQR handles POST /api/tickets/{code}/qr
func (h *TicketHandler) RegenerateQR(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	ticket, err := h.service.RegenerateQR(r.Context(), actor, chi.URLParam(r, "code"))
	if err != nil {
		handleServiceError(w, h.log, err, "regenerate QR")
		return
	}

	utils.ResponseSuccess(w, "QR code regenerated", ticket)
}

// ValidateTicket handles POST /api/tickets/validate (event staff)
func (h *TicketHandler) ValidateTicket(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.ValidateTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.service.Validate(r.Context(), actor, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "validate ticket")
		return
	}

	utils.ResponseSuccess(w, result.Message, result)
}

// ScanTicket handles POST /api/tickets/scan (event staff)
func (h *TicketHandler) ScanTicket(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.ScanTicketRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	result, err := h.service.Scan(r.Context(), actor, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "scan ticket")
		return
	}

	utils.ResponseSuccess(w, result.Message, result)
}

// CheckTicket handles GET /api/tickets/check/{code} (public, read-only)
func (h *TicketHandler) CheckTicket(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Check(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		handleServiceError(w, h.log, err, "check ticket")
		return
	}

	utils.ResponseSuccess(w, result.Message, result)
}

// ==================== ADMIN METHODS ====================

// GetAllTickets handles GET /api/admin/tickets?status=&page=&per_page=
func (h *TicketHandler) GetAllTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.service.List(r.Context(), r.URL.Query().Get("status"), parsePage(r))
	if err != nil {
		handleServiceError(w, h.log, err, "list tickets")
		return
	}

	utils.ResponseSuccess(w, "success", tickets)
}

// SearchTickets handles GET /api/admin/tickets/search?q=
func (h *TicketHandler) SearchTickets(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.service.Search(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		handleServiceError(w, h.log, err, "search tickets")
		return
	}

	utils.ResponseSuccess(w, "success", tickets)
}

// GetStats handles GET /api/admin/tickets/stats
func (h *TicketHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Stats(r.Context())
	if err != nil {
		handleServiceError(w, h.log, err, "ticket stats")
		return
	}

	utils.ResponseSuccess(w, "success", stats)
}
