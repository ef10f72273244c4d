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

type EventHandler struct {
	service usecase.EventService
	log     *zap.Logger
}

func NewEventHandler(service usecase.EventService, log *zap.Logger) *EventHandler {
	return &EventHandler{
		service: service,
		log:     log.With(zap.String("handler", "event")),
	}
}

// CreateEvent handles POST /api/events (protected). The caller becomes the
// organizer.
func (h *EventHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.CreateEventRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	event, err := h.service.Create(r.Context(), actor, &req)
	if err != nil {
		handleServiceError(w, h.log, err, "create event")
		return
	}

	utils.ResponseCreated(w, "Event created successfully", event)
}

// GetEvents handles GET /api/events?category=&page=&per_page= (public)
func (h *EventHandler) GetEvents(w http.ResponseWriter, r *http.Request) {
	req := &request.ListEventsRequest{
		PaginatedRequest: parsePage(r),
		Category:         r.URL.Query().Get("category"),
	}

	events, err := h.service.List(r.Context(), req)
	if err != nil {
		handleServiceError(w, h.log, err, "list events")
		return
	}

	utils.ResponseSuccess(w, "success", events)
}

// GetEvent handles GET /api/events/{ref} where ref is an id or public code
func (h *EventHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	event, err := h.service.Get(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		handleServiceError(w, h.log, err, "get event")
		return
	}

	utils.ResponseSuccess(w, "success", event)
}

// GetTakenSeats handles GET /api/events/{ref}/seats (public)
func (h *EventHandler) GetTakenSeats(w http.ResponseWriter, r *http.Request) {
	seats, err := h.service.TakenSeats(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		handleServiceError(w, h.log, err, "get taken seats")
		return
	}

	utils.ResponseSuccess(w, "success", seats)
}

// GetOrganizerEvents handles GET /api/events/user/{userId} (owner or admin)
func (h *EventHandler) GetOrganizerEvents(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	events, err := h.service.ListByOrganizer(r.Context(), actor, chi.URLParam(r, "userId"))
	if err != nil {
		handleServiceError(w, h.log, err, "list organizer events")
		return
	}

	utils.ResponseSuccess(w, "success", events)
}

// DeleteEvent handles DELETE /api/admin/events/{id} (admin only)
func (h *EventHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	actor, ok := actorFrom(r)
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	if err := h.service.Delete(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, h.log, err, "delete event")
		return
	}

	utils.ResponseSuccess(w, "Event deleted successfully", nil)
}
