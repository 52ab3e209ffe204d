// The inventory service owns the itinerary catalog and the authoritative
// cabin counts. It serves the catalog over HTTP and applies reservation
// lifecycle events consumed from the broker.
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
	"github.com/iliyamo/cruise-reservation/internal/inventory"
)

func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	log := logrus.WithField("service", "inventory")

	catalog, err := inventory.LoadCatalog(cfg.CatalogFile)
	if err != nil {
		log.WithError(err).Fatal("failed to load the itinerary catalog")
	}
	store := inventory.NewStore(catalog)
	log.WithField("itineraries", len(catalog)).Info("catalog loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	consumer := inventory.NewConsumer(store, log)
	go func() {
		if err := broker.Consume(ctx, cfg.AMQPURL, "inventory", consumer.Bindings(), log); err != nil {
			log.WithError(err).Error("consumption loop terminated")
		}
	}()

	e := echo.New()
	e.HideBanner = true
	inventory.NewHandler(store).Register(e)

	go func() {
		if err := e.Start(":" + cfg.InventoryPort); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("http server failed")
		}
	}()
	log.WithField("port", cfg.InventoryPort).Info("inventory listening")

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
}
