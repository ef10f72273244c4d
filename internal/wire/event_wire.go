package wire

import (
	"event-ticketing/internal/adaptor"
	"event-ticketing/internal/data/repository"
	"event-ticketing/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireEvent(
	r chi.Router,
	eventHandler *adaptor.EventHandler,
	repo *repository.Repository,
	log *zap.Logger,
) {
	// ==================== PUBLIC ROUTES ====================
	r.Get("/api/events", eventHandler.GetEvents)
	r.Get("/api/events/{ref}", eventHandler.GetEvent) // id or public code
	r.Get("/api/events/{ref}/seats", eventHandler.GetTakenSeats)

	// ==================== PROTECTED ROUTES ====================
	// Any signed-in user can organize an event
	r.With(middleware.AuthSession(repo.Session, repo.User, log)).Post("/api/events", eventHandler.CreateEvent)
	// An organizer's own events, past ones included
	r.With(middleware.AuthSession(repo.Session, repo.User, log)).Get("/api/events/user/{userId}", eventHandler.GetOrganizerEvents)

	// ==================== ADMIN ROUTES ====================
	r.Route("/api/admin/events", func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, repo.User, log))
		r.Use(middleware.Admin(log))

		r.Delete("/{id}", eventHandler.DeleteEvent) // soft delete + invalidate tickets
	})
}
