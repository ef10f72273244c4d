package wire

import (
	"context"
	"fmt"

	"event-ticketing/internal/payment"
	"event-ticketing/pkg/lock"
	"event-ticketing/pkg/storage"
	"event-ticketing/pkg/utils"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// newLocker uses Redis when REDIS_ADDR is set so several API nodes share the
// per-event locks. A single node runs fine on the in-process lock.
func newLocker(config *utils.Config, logger *zap.Logger) (lock.Locker, func(), error) {
	if config.Redis.Addr == "" {
		logger.Info("Using in-process event locks")
		return lock.NewKeyedMutex(), func() {}, nil
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     config.Redis.Addr,
		Password: config.Redis.Password,
		DB:       config.Redis.DB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("connect redis %s: %w", config.Redis.Addr, err)
	}

	logger.Info("Using redis event locks", zap.String("addr", config.Redis.Addr))
	return lock.NewRedisLocker(rdb, config.Redis.LockTTL, logger), func() { _ = rdb.Close() }, nil
}

// newStore returns where QR images go. The local store is also returned so
// the router can serve its directory.
func newStore(config *utils.Config, logger *zap.Logger) (storage.Store, *storage.LocalStore, error) {
	if config.QR.Storage == "cloudinary" {
		c := config.QR.Cloudinary
		store, err := storage.NewCloudinaryStore(c.CloudName, c.APIKey, c.APISecret, c.Folder)
		if err != nil {
			return nil, nil, fmt.Errorf("init cloudinary: %w", err)
		}
		logger.Info("Storing QR codes on cloudinary", zap.String("folder", c.Folder))
		return store, nil, nil
	}

	local, err := storage.NewLocalStore(config.QR.Dir, config.QR.URLPrefix)
	if err != nil {
		return nil, nil, err
	}
	logger.Info("Storing QR codes locally", zap.String("dir", config.QR.Dir))
	return local, local, nil
}

// newProviders always registers the mock provider; real gateways join when
// their keys are configured.
func newProviders(config *utils.Config, logger *zap.Logger) (*payment.Registry, *payment.StripeProvider, *payment.MidtransProvider) {
	providers := []payment.Provider{payment.NewMockProvider(config.App.BaseURL)}

	var stripeProvider *payment.StripeProvider
	if config.Payment.StripeSecretKey != "" {
		stripeProvider = payment.NewStripeProvider(
			config.Payment.StripeSecretKey,
			config.Payment.StripeWebhookSecret,
			config.App.BaseURL,
		)
		providers = append(providers, stripeProvider)
	}

	var midtransProvider *payment.MidtransProvider
	if config.Payment.MidtransServerKey != "" {
		midtransProvider = payment.NewMidtransProvider(config.Payment.MidtransServerKey, config.Payment.MidtransProduction)
		providers = append(providers, midtransProvider)
	}

	registry := payment.NewRegistry(config.Payment.DefaultProvider, providers...)
	logger.Info("Payment providers ready", zap.Strings("providers", registry.Names()))
	return registry, stripeProvider, midtransProvider
}
