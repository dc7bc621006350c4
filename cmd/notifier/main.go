package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/example/storefront/internal/api"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/email"
	"github.com/example/storefront/internal/infrastructure/kafka"
	"github.com/example/storefront/internal/infrastructure/store"
	"github.com/example/storefront/internal/metrics"
	"github.com/example/storefront/internal/notification"
)

func main() {
	cfg, err := config.LoadNotifier()
	if err != nil {
		log.Fatalf("[Notifier] %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	log.Println("[Notifier] ========================================")
	log.Println("[Notifier] Storefront - Order Email Service")
	log.Println("[Notifier] ========================================")
	log.Printf("[Notifier] Kafka: %v", cfg.Kafka.Brokers)
	log.Printf("[Notifier] Topic: %s", cfg.Kafka.Topic)
	log.Printf("[Notifier] Group: %s", cfg.GroupID)
	log.Printf("[Notifier] SMTP: %s:%d (TLS %s)", cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.TLS)
	log.Printf("[Notifier] From: %s", cfg.SMTP.From)

	// Customer profiles are read from the backend's database when it is
	// shared; otherwise the address on the event is used.
	var readStore store.ReadStoreInterface
	if cfg.DatabaseURL != "" {
		db, err := store.ConnectPostgres(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("[Notifier] Failed to connect to PostgreSQL: %v", err)
		}
		defer db.Close()
		readStore = store.NewPostgresReadStore(db, api.DefaultModels())
		log.Println("[Notifier] Connected to PostgreSQL (user profiles)")
	}

	emailSvc, err := email.NewService(cfg.SMTP.EmailConfig())
	if err != nil {
		log.Fatalf("[Notifier] %v", err)
	}

	collector := metrics.NewCollector("storefront")
	handler := notification.NewHandler(emailSvc, readStore).WithMetrics(collector).WithLanguage(cfg.Language())

	metricsServer := &http.Server{
		Addr:              cfg.MetricsAddr,
		Handler:           collector.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		log.Printf("[Notifier] Metrics on %s", cfg.MetricsAddr)
		if err := metricsServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[Notifier] Metrics server error: %v", err)
		}
	}()

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.GroupID)
	defer consumer.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		log.Println("[Notifier] Starting event consumer...")
		if err := consumer.Consume(ctx, handler.HandleEvent); err != nil && ctx.Err() == nil {
			log.Printf("[Notifier] Consumer error: %v", err)
		}
	}()

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case <-done:
	}

	log.Println("[Notifier] Shutting down...")
	cancel()
	<-done

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Notifier] Metrics shutdown error: %v", err)
	}
}
