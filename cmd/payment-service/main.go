package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"ms-payments/internal/auth"
	"ms-payments/internal/config"
	"ms-payments/internal/kafka"
	"ms-payments/internal/logger"
	"ms-payments/internal/payment"
	"ms-payments/internal/payment/api"
	"ms-payments/internal/payment/db"
	"ms-payments/internal/payment/gateway"
	paymentkafka "ms-payments/internal/payment/kafka"
	"ms-payments/internal/payment/qr"
	rediswrap "ms-payments/internal/payment/redis"
)

// Local development entrypoint: no OIDC in front, schema created directly via
// bun. The deployable service lives in main.go at the repository root.
func main() {
	ctx := context.Background()
	cfg := config.Load()
	appLogger := logger.NewLogger()
	defer appLogger.Close()

	// --- PostgreSQL Setup ---
	connector := pgdriver.NewConnector(pgdriver.WithDSN(cfg.Database.DSN))
	sqldb := sql.OpenDB(connector)
	defer sqldb.Close()

	if err := sqldb.Ping(); err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	// Create the payments table directly; no versioned migrations in dev.
	db.Migrate(bunDB)

	// --- Redis Setup ---
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	log.Println("Connecting to Redis...")

	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	// --- Initialize Dependencies ---
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()
	publisher := paymentkafka.NewPublisher(producer, cfg.Kafka.Topics.PaymentCreated, cfg.Kafka.Topics.PaymentStatus)

	log.Println("Initializing Payment Service...")
	service := payment.NewPaymentService(
		&db.DB{Bun: bunDB},
		gateway.NewClient(cfg.Gateway, appLogger),
		rediswrap.NewLock(redisClient, cfg.Reconcile.LockTTL),
		publisher,
		qr.NewGenerator(),
		appLogger,
		cfg.Reconcile.StaleAfter,
	)
	handler := api.NewHandler(service, appLogger, cfg.Auth.AdminRole)

	// --- Setup Router ---
	r := chi.NewRouter()
	// Unverified-token auth: no OIDC issuer needed locally.
	r.Use(auth.DevMiddleware())
	r.Route("/api", func(r chi.Router) {
		handler.RegisterRoutes(r)
	})

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:    cfg.Server.Port,
		Handler: r,
	}

	go func() {
		log.Printf("Payment Service running on %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received. Cleaning up...")

	ctxShutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited gracefully")
}
