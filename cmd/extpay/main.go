// The external payment simulator stands in for the third-party payment
// collaborator during development: it accepts charge requests, hands back a
// payment link and posts the settlement outcome to the gateway's webhook
// after a short delay.
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

	"github.com/iliyamo/cruise-reservation/internal/config"
	"github.com/iliyamo/cruise-reservation/internal/extpay"
	"github.com/iliyamo/cruise-reservation/internal/model"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logrus.WithField("service", "extpay")

	var decider extpay.Decider = extpay.RandomDecider{}
	switch os.Getenv("EXTPAY_DECISION") {
	case "approve":
		decider = extpay.FixedDecider(model.TransactionApproved)
	case "decline":
		decider = extpay.FixedDecider(model.TransactionDeclined)
	}

	sim := extpay.NewSimulator(decider, &http.Client{Timeout: cfg.ExternalTimeout},
		cfg.WebhookURL, cfg.ExtPayURL, log)

	e := echo.New()
	e.HideBanner = true
	sim.Register(e)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := e.Start(":" + cfg.ExtPayPort); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("http server failed")
		}
	}()
	log.WithField("port", cfg.ExtPayPort).Info("external payment simulator listening")

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
}
