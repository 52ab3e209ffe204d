// promoter publishes one promotional broadcast to the marketing exchange
// and exits. The orchestrator fans it out to subscribed clients.
package main

import (
	"context"
	"flag"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/cruise-reservation/internal/broker"
	"github.com/iliyamo/cruise-reservation/internal/config"
	"github.com/iliyamo/cruise-reservation/internal/event"
)

func main() {
	message := flag.String("message", "", "promotion text to broadcast")
	destination := flag.String("destination", "", "optional destination the promotion applies to")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	log := logrus.WithField("service", "promoter")

	if *message == "" {
		log.Fatal("-message is required")
	}

	pub, err := broker.NewPublisher(cfg.AMQPURL, log)
	if err != nil {
		log.WithError(err).Fatal("failed to connect to the broker")
	}
	defer pub.Close()

	promo := event.Promotion{
		Version:     event.SchemaVersion,
		Destination: *destination,
		Message:     *message,
		PublishedAt: time.Now().UTC(),
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := pub.Publish(ctx, event.ExchangeMarketing, event.KeyPromotions, promo); err != nil {
		log.WithError(err).Fatal("failed to publish the promotion")
	}
	log.WithField("destination", *destination).Info("promotion published")
}
