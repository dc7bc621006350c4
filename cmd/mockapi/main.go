package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/auth"
	"github.com/example/storefront/internal/catalog"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/infrastructure/kafka"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/metrics"
	"github.com/example/storefront/internal/order"
)

func main() {
	cfg, err := config.LoadAPI()
	if err != nil {
		log.Fatalf("[API] %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	policy := cfg.Pricing.Policy()

	log.Println("[API] ========================================")
	log.Println("[API] Storefront - Mock Backend")
	log.Println("[API] ========================================")
	log.Printf("[API] Delivery: %s, free over %s", policy.DeliveryFee, policy.FreeDeliveryThreshold)
	log.Printf("[API] Tax: %s", policy.TaxRate)

	// Read store: Postgres when configured, otherwise process memory
	var readStore store.ReadStoreInterface
	if cfg.DatabaseURL != "" {
		db, err := store.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("[API] Failed to connect to PostgreSQL: %v", err)
		}
		defer db.Close()

		pg := store.NewPostgresReadStore(db, api.DefaultModels())
		if err := pg.EnsureSchema(); err != nil {
			log.Fatalf("[API] Failed to prepare schema: %v", err)
		}
		readStore = pg
		log.Println("[API] Data: PostgreSQL")
	} else {
		readStore = store.NewReadStore()
		log.Println("[API] Data: in memory")
	}

	// Order events go to Kafka when brokers are configured
	var publisher order.Publisher
	if cfg.Kafka.Enabled() {
		producer := kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()
		publisher = producer
		log.Printf("[API] Kafka: %v, topic %s", cfg.Kafka.Brokers, cfg.Kafka.Topic)
	} else {
		log.Println("[API] Kafka: disabled, order events are not published")
	}

	collector := metrics.NewCollector("storefront")
	orders := order.NewService(readStore, publisher, policy).WithMetrics(collector)
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.TokenExpiry)
	handlers := api.NewHandlers(catalog.Default(), readStore, orders, jwtService)

	if cfg.DemoEmail != "" {
		seedDemoUser(handlers, cfg.DemoEmail, cfg.DemoPassword)
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		handlers.RunSessionSweeper(ctx, cfg.SessionSweepInterval)
	}()

	root := http.NewServeMux()
	root.Handle("/metrics", collector.Handler())
	root.Handle("/", api.NewRouter(handlers, collector.InstrumentHandler))

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           root,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("[API] Server started on %s", cfg.Addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("[API] Server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Println("[API] Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[API] Shutdown error: %v", err)
	}

	wg.Wait()
}

// seedDemoUser creates the demo account unless it already exists
func seedDemoUser(handlers *api.Handlers, email, password string) {
	_, err := handlers.CreateUser(api.RegisterRequest{
		Name:     "Demo Shopper",
		Email:    email,
		Password: password,
	})
	switch {
	case errors.Is(err, api.ErrEmailTaken):
		log.Printf("[API] Demo user %s already exists", email)
	case err != nil:
		log.Fatalf("[API] Failed to create demo user: %v", err)
	default:
		log.Printf("[API] Created demo user %s", email)
	}
}
