package wire

import (
	"context"
	"net/http"
	"strings"

	"event-ticketing/internal/adaptor"
	"event-ticketing/internal/data/repository"
	"event-ticketing/internal/queue"
	"event-ticketing/internal/usecase"
	"event-ticketing/pkg/middleware"
	"event-ticketing/pkg/storage"
	"event-ticketing/pkg/utils"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// App menyimpan semua dependencies
type App struct {
	Router *chi.Mux
	// Close stops the confirmation consumer and releases broker and redis
	// connections.
	Close func()
}

// Wiring menginisialisasi semua dependencies
func Wiring(repo *repository.Repository, config *utils.Config, logger *zap.Logger) (*App, error) {
	var closers []func()
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	// 1. Infrastructure
	locker, closeLocker, err := newLocker(config, logger)
	if err != nil {
		return nil, err
	}
	closers = append(closers, closeLocker)

	store, local, err := newStore(config, logger)
	if err != nil {
		closeAll()
		return nil, err
	}

	providers, stripeProvider, midtransProvider := newProviders(config, logger)

	// 2. Confirmation transport
	var (
		publisher queue.Publisher
		broker    *queue.AMQPBroker
		direct    *queue.DirectDispatcher
	)
	if config.RabbitMQ.URL != "" {
		broker, err = queue.NewAMQPBroker(config.RabbitMQ.URL, logger)
		if err != nil {
			closeAll()
			return nil, err
		}
		closers = append(closers, func() { _ = broker.Close() })
		publisher = broker
	} else {
		direct = queue.NewDirectDispatcher(logger)
		publisher = direct
	}

	// 3. Services dan handlers
	service := usecase.NewService(repo, config, usecase.Deps{
		Locker:    locker,
		Store:     store,
		Providers: providers,
		Stripe:    stripeProvider,
		Midtrans:  midtransProvider,
		Publisher: publisher,
	}, logger)
	handler := adaptor.NewHandler(service, logger)

	// 4. Payment confirmations flow into the bridge
	if broker != nil {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan struct{})
		go func() {
			defer close(done)
			if err := broker.ConsumeConfirmations(ctx, service.Bridge.Handle); err != nil {
				logger.Error("Confirmation consumer stopped", zap.Error(err))
			}
		}()
		closers = append(closers, func() {
			cancel()
			<-done
		})
	} else {
		direct.OnConfirmed(service.Bridge.Handle)
	}

	// Setup router
	router := setupRouter(handler, repo, local, config, logger)

	return &App{
		Router: router,
		Close:  closeAll,
	}, nil
}

// setupRouter konfigurasi Chi router
func setupRouter(
	handler *adaptor.Handler,
	repo *repository.Repository,
	local *storage.LocalStore,
	config *utils.Config,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Apply global middleware
	r.Use(chimw.RequestID)
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS())
	if config.App.MetricsEnabled {
		r.Use(middleware.Metrics())
		r.Handle("/metrics", promhttp.Handler())
	}

	// Apply routes
	wireAuth(r, handler.Auth, repo, logger)
	wireUser(r, handler.User, repo, logger)
	wireEvent(r, handler.Event, repo, logger)
	wireTicket(r, handler.Ticket, repo, logger)
	wirePayment(r, handler.Payment, repo, logger)

	// QR images written by the local store
	if local != nil {
		prefix := "/" + strings.Trim(config.QR.URLPrefix, "/") + "/"
		r.Handle(prefix+"*", http.StripPrefix(prefix, http.FileServer(http.Dir(local.Dir()))))
	}

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
