package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"restaurant-reservations/api"
	"restaurant-reservations/auth"
	"restaurant-reservations/booking"
	"restaurant-reservations/booking/memory"
	"restaurant-reservations/booking/mongostore"
	"restaurant-reservations/booking/postgres"
	"restaurant-reservations/config"
	"restaurant-reservations/database"
	"restaurant-reservations/notify"
	"restaurant-reservations/telemetry"
)

type publisher interface {
	booking.Publisher
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("config:", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal("config:", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		log.Fatal("config:", err)
	}

	shutdownTracing := telemetry.Setup(telemetry.Config{
		ServiceName: cfg.ServiceName,
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
	})

	store, closeStore := openStore(cfg)
	log.Printf("using %s booking store", cfg.StoreDriver)

	pub := openPublisher(cfg)

	accessor := booking.NewAccessor(store, booking.Options{
		Location:  loc,
		Timeout:   cfg.OpTimeout,
		Publisher: pub,
	})

	// The connection is lazy; an unreachable store at boot is reported but not fatal.
	log.Printf("attempting to connect to booking store...")
	if err := accessor.Ping(context.Background()); err != nil {
		log.Printf("booking store not reachable yet: %v", err)
	} else {
		log.Println("successfully connected to booking store")
	}

	issuer := auth.NewIssuer(auth.Config{
		Username:     cfg.AdminUsername,
		PasswordHash: cfg.AdminPasswordHash,
		Secret:       cfg.JWTSecret,
		TTL:          cfg.TokenTTL,
	})
	if cfg.JWTSecret == "" || cfg.AdminPasswordHash == "" {
		log.Println("ADMIN_JWT_SECRET or ADMIN_PASSWORD_HASH not set, admin endpoints will reject every request")
	}

	service := api.NewAPI(accessor, issuer, api.Options{AllowedOrigins: cfg.AllowedOrigins})
	service.RegisterRoutes()

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      otelhttp.NewHandler(service.Handler(), cfg.ServiceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	stopPurge := make(chan struct{})
	go purgeExpired(accessor, cfg.PurgeInterval, stopPurge)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop
	close(stopPurge)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	if err := closeStore(ctx); err != nil {
		log.Printf("close store: %v", err)
	}
	if err := pub.Close(); err != nil {
		log.Printf("close publisher: %v", err)
	}
	if err := shutdownTracing(ctx); err != nil {
		log.Printf("shutdown tracing: %v", err)
	}
}

func openStore(cfg config.Config) (booking.Store, func(context.Context) error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		gw := database.NewGateway[*mongo.Collection](cfg.MongoURI, database.Mongo{
			Database:               cfg.MongoDatabase,
			MaxPoolSize:            uint64(max(cfg.MaxPoolSize, 0)),
			ServerSelectionTimeout: cfg.ConnectTimeout,
		}, cfg.DatabaseOptions())
		return mongostore.NewStore(gw), gw.Close
	case config.DriverMemory:
		return memory.NewStore(), func(context.Context) error { return nil }
	default:
		gw := database.NewGateway[*sql.DB](cfg.PostgresDSN, database.Postgres{
			MaxOpenConns: cfg.MaxPoolSize,
		}, cfg.DatabaseOptions())
		return postgres.NewStore(gw), gw.Close
	}
}

func openPublisher(cfg config.Config) publisher {
	if cfg.RabbitURL == "" {
		return notify.Nop{}
	}
	p, err := notify.NewAMQP(cfg.RabbitURL, cfg.BookingExchange)
	if err != nil {
		log.Printf("booking events disabled: %v", err)
		return notify.Nop{}
	}
	log.Printf("publishing booking events to exchange %s", cfg.BookingExchange)
	return p
}

func purgeExpired(accessor *booking.Accessor, interval time.Duration, stop <-chan struct{}) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			n, err := accessor.PurgeExpired(ctx)
			cancel()
			if err != nil {
				log.Printf("purge expired bookings: %v", err)
				continue
			}
			if n > 0 {
				log.Printf("purged %d expired bookings", n)
			}
		}
	}
}
