package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"restaurant-reservations/database"
)

const (
	DriverPostgres = "postgres"
	DriverMongo    = "mongo"
	DriverMemory   = "memory"
)

type Config struct {
	Port string `envconfig:"PORT" default:"8080"`

	// Store
	StoreDriver      string        `envconfig:"STORE_DRIVER" default:"postgres"`
	PostgresDSN      string        `envconfig:"POSTGRES_DSN"`
	MongoURI         string        `envconfig:"MONGODB_URI"`
	MongoDatabase    string        `envconfig:"MONGODB_DATABASE" default:"restaurant-bookings"`
	ConnectTimeout   time.Duration `envconfig:"STORE_CONNECT_TIMEOUT" default:"5s"`
	OpTimeout        time.Duration `envconfig:"STORE_OP_TIMEOUT" default:"5s"`
	ValidateInterval time.Duration `envconfig:"STORE_VALIDATE_INTERVAL" default:"30s"`
	MaxPoolSize      int           `envconfig:"STORE_MAX_POOL_SIZE" default:"10"`

	// Bookings
	Timezone      string        `envconfig:"RESTAURANT_TIMEZONE" default:"UTC"`
	PurgeInterval time.Duration `envconfig:"EXPIRY_PURGE_INTERVAL" default:"10m"`

	// Admin auth
	AdminUsername     string        `envconfig:"ADMIN_USERNAME" default:"admin"`
	AdminPasswordHash string        `envconfig:"ADMIN_PASSWORD_HASH"`
	JWTSecret         string        `envconfig:"ADMIN_JWT_SECRET"`
	TokenTTL          time.Duration `envconfig:"ADMIN_TOKEN_TTL" default:"12h"`

	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`

	// Events
	RabbitURL       string `envconfig:"RABBIT_URL"`
	BookingExchange string `envconfig:"BOOKING_EXCHANGE" default:"booking.exchange"`

	// Tracing
	ServiceName  string `envconfig:"OTEL_SERVICE_NAME" default:"restaurant-reservations"`
	OTLPEndpoint string `envconfig:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `envconfig:"OTEL_EXPORTER_OTLP_INSECURE" default:"false"`
}

// Load reads an optional .env file, then the process environment.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	var c Config
	if err := envconfig.Process("", &c); err != nil {
		return Config{}, fmt.Errorf("process env: %w", err)
	}
	return c, nil
}

// Validate fails when the selected store driver has no connection target.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("%w: POSTGRES_DSN is required for the %s driver", database.ErrNotConfigured, c.StoreDriver)
		}
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("%w: MONGODB_URI is required for the %s driver", database.ErrNotConfigured, c.StoreDriver)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load RESTAURANT_TIMEZONE: %w", err)
	}
	return loc, nil
}

func (c Config) DatabaseOptions() database.Options {
	return database.Options{
		ConnectTimeout:   c.ConnectTimeout,
		ValidateInterval: c.ValidateInterval,
	}
}
