// The ticket issuer consumes verified approved-payment events and publishes
// ticket-issued events. Its HTTP surface is health and metrics only.
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
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cruise-reservation/internal/broker"
	"github.com/iliyamo/cruise-reservation/internal/config"
	"github.com/iliyamo/cruise-reservation/internal/signing"
	"github.com/iliyamo/cruise-reservation/internal/ticket"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logrus.WithField("service", "ticket")

	pubKey, err := signing.LoadPublicKey(cfg.PublicKeyFile)
	if err != nil {
		log.WithError(err).Fatal("failed to load payment verification key")
	}

	pub, err := broker.NewPublisher(cfg.AMQPURL, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to the broker")
	}
	defer pub.Close()

	issuer := ticket.NewIssuer(pubKey, pub, log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := broker.Consume(ctx, cfg.AMQPURL, "ticket", issuer.Bindings(), log); err != nil {
			log.WithError(err).Error("consumption loop terminated")
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.GET("/healthz", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	go func() {
		if err := e.Start(":" + cfg.TicketPort); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("http server failed")
		}
	}()
	log.WithField("port", cfg.TicketPort).Info("ticket issuer listening")

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
}
