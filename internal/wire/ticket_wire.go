package wire

import (
	"event-ticketing/internal/adaptor"
	"event-ticketing/internal/data/repository"
	"event-ticketing/pkg/middleware"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

func wireTicket(
	r chi.Router,
	ticketHandler *adaptor.TicketHandler,
	repo *repository.Repository,
	log *zap.Logger,
) {
	r.Route("/api/tickets", func(r chi.Router) {
		// ==================== PUBLIC ROUTES ====================
		// Read-only check, never redeems
		r.Get("/check/{code}", ticketHandler.CheckTicket)

		// ==================== PROTECTED ROUTES ====================
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthSession(repo.Session, repo.User, log))

			r.Post("/purchase", ticketHandler.Purchase)
			r.Get("/my", ticketHandler.GetMyTickets)

			// Staff of the event (organizer or admin), checked in the service
			r.Post("/validate", ticketHandler.ValidateTicket)
			r.Post("/scan", ticketHandler.ScanTicket)

			r.Get("/{code}", ticketHandler.GetTicket)
			r.Patch("/{code}/status", ticketHandler.ChangeStatus)
			r.Post("/{code}/qr", ticketHandler.RegenerateQR)
		})
	})

	// Per-user purchase summary
	r.With(middleware.AuthSession(repo.Session, repo.User, log)).Get("/api/user/stats", ticketHandler.GetUserStats)

	// ==================== ADMIN ROUTES ====================
	r.Route("/api/admin/tickets", func(r chi.Router) {
		r.Use(middleware.AuthSession(repo.Session, repo.User, log))
		r.Use(middleware.Admin(log))

		r.Get("/", ticketHandler.GetAllTickets)
		r.Get("/search", ticketHandler.SearchTickets)
		r.Get("/stats", ticketHandler.GetStats)
	})
}
