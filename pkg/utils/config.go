package utils

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	App      AppConfig
	Database DatabaseConfig
	Session  SessionConfig
	Redis    RedisConfig
	RabbitMQ RabbitMQConfig
	QR       QRConfig
	Payment  PaymentConfig
	Tickets  TicketConfig
}

type AppConfig struct {
	Name           string
	Port           string
	Debug          bool
	LogPath        string
	BaseURL        string
	StoreDriver    string
	MetricsEnabled bool
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	MaxConns int32
}

type SessionConfig struct {
	ExpiryHours int
	BcryptCost  int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

type RabbitMQConfig struct {
	URL string
}

type QRConfig struct {
	Dir        string
	URLPrefix  string
	Size       int
	Timeout    time.Duration
	SigningKey string
	Storage    string
	Cloudinary CloudinaryConfig
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

type PaymentConfig struct {
	DefaultProvider     string
	Timeout             time.Duration
	Currency            string
	StripeSecretKey     string
	StripeWebhookSecret string
	MidtransServerKey   string
	MidtransProduction  bool
}

type TicketConfig struct {
	CodeMaxAttempts int
	MaxPerPurchase  int
}

func LoadConfig() (*Config, error) {
	// .env is optional; real deployments pass plain environment variables
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(".env"); err != nil {
			return nil, err
		}
		viper.SetConfigFile(".env")
		viper.SetConfigType("env")
		if err := viper.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	setDefaults()
	viper.AutomaticEnv()

	config := &Config{
		App: AppConfig{
			Name:           viper.GetString("APP_NAME"),
			Port:           viper.GetString("PORT"),
			Debug:          viper.GetBool("DEBUG"),
			LogPath:        viper.GetString("LOG_PATH"),
			BaseURL:        viper.GetString("BASE_URL"),
			StoreDriver:    viper.GetString("STORE_DRIVER"),
			MetricsEnabled: viper.GetBool("METRICS_ENABLED"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASS"),
			MaxConns: viper.GetInt32("DB_MAX_CONNS"),
		},
		Session: SessionConfig{
			ExpiryHours: viper.GetInt("SESSION_EXPIRY_HOURS"),
			BcryptCost:  viper.GetInt("BCRYPT_COST"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			LockTTL:  viper.GetDuration("LOCK_TTL"),
		},
		RabbitMQ: RabbitMQConfig{
			URL: viper.GetString("RABBITMQ_URL"),
		},
		QR: QRConfig{
			Dir:        viper.GetString("QR_DIR"),
			URLPrefix:  viper.GetString("QR_URL_PREFIX"),
			Size:       viper.GetInt("QR_SIZE"),
			Timeout:    viper.GetDuration("QR_TIMEOUT"),
			SigningKey: viper.GetString("QR_SIGNING_KEY"),
			Storage:    viper.GetString("QR_STORAGE"),
			Cloudinary: CloudinaryConfig{
				CloudName: viper.GetString("CLOUDINARY_CLOUD_NAME"),
				APIKey:    viper.GetString("CLOUDINARY_API_KEY"),
				APISecret: viper.GetString("CLOUDINARY_API_SECRET"),
				Folder:    viper.GetString("CLOUDINARY_FOLDER"),
			},
		},
		Payment: PaymentConfig{
			DefaultProvider:     viper.GetString("PAYMENT_DEFAULT_PROVIDER"),
			Timeout:             viper.GetDuration("PAYMENT_TIMEOUT"),
			Currency:            viper.GetString("PAYMENT_CURRENCY"),
			StripeSecretKey:     viper.GetString("STRIPE_SECRET_KEY"),
			StripeWebhookSecret: viper.GetString("STRIPE_WEBHOOK_SECRET"),
			MidtransServerKey:   viper.GetString("MIDTRANS_SERVER_KEY"),
			MidtransProduction:  viper.GetBool("MIDTRANS_PRODUCTION"),
		},
		Tickets: TicketConfig{
			CodeMaxAttempts: viper.GetInt("CODE_MAX_ATTEMPTS"),
			MaxPerPurchase:  viper.GetInt("MAX_TICKETS_PER_PURCHASE"),
		},
	}

	return config, nil
}

func setDefaults() {
	viper.SetDefault("APP_NAME", "event-ticketing")
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("DEBUG", false)
	viper.SetDefault("LOG_PATH", "logs/")
	viper.SetDefault("BASE_URL", "http://localhost:8080")
	viper.SetDefault("STORE_DRIVER", "postgres")
	viper.SetDefault("METRICS_ENABLED", true)
	viper.SetDefault("DB_MAX_CONNS", 10)
	viper.SetDefault("SESSION_EXPIRY_HOURS", 24)
	viper.SetDefault("BCRYPT_COST", 10)
	viper.SetDefault("LOCK_TTL", "10s")
	viper.SetDefault("QR_DIR", "qr-codes/")
	viper.SetDefault("QR_URL_PREFIX", "/qr-codes/")
	viper.SetDefault("QR_SIZE", 300)
	viper.SetDefault("QR_TIMEOUT", "5s")
	viper.SetDefault("QR_STORAGE", "local")
	viper.SetDefault("CLOUDINARY_FOLDER", "qr-codes")
	viper.SetDefault("PAYMENT_DEFAULT_PROVIDER", "mock")
	viper.SetDefault("PAYMENT_TIMEOUT", "15s")
	viper.SetDefault("PAYMENT_CURRENCY", "RUB")
	viper.SetDefault("CODE_MAX_ATTEMPTS", 20)
	viper.SetDefault("MAX_TICKETS_PER_PURCHASE", 10)
}
