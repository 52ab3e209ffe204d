// The orchestrator is the client-facing entry point of the reservation
// saga. It serves the booking API, consumes settlement and ticket events
// and pushes status updates to clients over server-sent events.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cruise-reservation/internal/broker"
	"github.com/iliyamo/cruise-reservation/internal/config"
	"github.com/iliyamo/cruise-reservation/internal/middleware"
	"github.com/iliyamo/cruise-reservation/internal/orchestrator"
	"github.com/iliyamo/cruise-reservation/internal/signing"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logrus.WithField("service", "orchestrator")

	pubKey, err := signing.LoadPublicKey(cfg.PublicKeyFile)
	if err != nil {
		log.WithError(err).Fatal("failed to load payment verification key")
	}

	pub, err := broker.NewPublisher(cfg.AMQPURL, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to the broker")
	}
	defer pub.Close()

	httpClient := &http.Client{Timeout: cfg.ExternalTimeout}
	store := orchestrator.NewStore()
	hub := orchestrator.NewHub()
	subs := orchestrator.NewSubscriberSet()
	svc := orchestrator.NewService(
		orchestrator.NewHTTPInventory(cfg.InventoryURL, httpClient),
		orchestrator.NewHTTPPayment(cfg.PaymentURL, httpClient),
		pub, store, hub, subs, cfg.Currency, log,
	)
	consumer := orchestrator.NewConsumer(pubKey, svc, store, hub, subs, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := broker.Consume(ctx, cfg.AMQPURL, "orchestrator", consumer.Bindings(), log); err != nil {
			log.WithError(err).Error("consumption loop terminated")
		}
	}()

	secret := cfg.ChannelSecret
	if secret == "" {
		secret = "dev-channel-secret"
		log.Warn("CHANNEL_TOKEN_SECRET unset, using the development secret")
	}
	tokens := middleware.NewTokenIssuer(secret, time.Duration(cfg.ChannelTTLMin)*time.Minute)

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable, search cache and rate limiting disabled")
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.NewRateLimiter(config.LoadRateLimitConfig(), rdb))
	handler := orchestrator.NewHandler(svc, hub, tokens)
	handler.Register(e, middleware.NewResponseCache(config.LoadCacheConfig(), rdb))

	go func() {
		if err := e.Start(":" + cfg.OrchestratorPort); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("http server failed")
		}
	}()
	log.WithField("port", cfg.OrchestratorPort).Info("orchestrator listening")

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
}
