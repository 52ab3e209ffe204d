// The payment gateway issues payment links through the external payment
// system, receives its settlement webhook and publishes RSA-signed outcome
// events to the payments exchange.
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
	"github.com/iliyamo/cruise-reservation/internal/payment"
	"github.com/iliyamo/cruise-reservation/internal/signing"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logrus.WithField("service", "payment")

	key, err := signing.LoadPrivateKey(cfg.PrivateKeyFile)
	if err != nil {
		log.WithError(err).Fatal("failed to load the signing key, run keygen first")
	}

	pub, err := broker.NewPublisher(cfg.AMQPURL, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to the broker")
	}
	defer pub.Close()

	gw := payment.NewGateway(key, pub, &http.Client{Timeout: cfg.ExternalTimeout}, cfg.ExtPayURL, log)

	e := echo.New()
	e.HideBanner = true
	payment.NewHandler(gw).Register(e)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := e.Start(":" + cfg.PaymentPort); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("http server failed")
		}
	}()
	log.WithField("port", cfg.PaymentPort).Info("payment gateway listening")

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
}
