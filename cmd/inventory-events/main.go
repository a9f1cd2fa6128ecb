// inventory-events consumes the inventory event queue and logs every event.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"sweetshop/internal/config"
	"sweetshop/internal/events"
	"sweetshop/pkg/logger"
	"sweetshop/pkg/rabbitmq"

	amqp "github.com/streadway/amqp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("load configuration: " + err.Error())
	}
	log := logger.New(logger.Config{Env: cfg.App.Env, Level: cfg.App.LogLevel})

	if !cfg.RabbitMQ.Enabled() {
		log.Fatal().Msg("RABBITMQ_URL is not set")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := rabbitmq.NewClient(ctx, rabbitmq.Config{
		URL:          cfg.RabbitMQ.URL,
		Queue:        cfg.RabbitMQ.Queue,
		DialAttempts: 10,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("connect to rabbitmq")
	}
	defer client.Close()

	if err := client.Consume(ctx, handleDelivery(log)); err != nil {
		log.Error().Err(err).Msg("consumer stopped")
		return
	}
	log.Info().Msg("consumer stopped")
}

// handleDelivery logs each inventory event. Undecodable messages are rejected.
func handleDelivery(log *logger.Logger) func(amqp.Delivery) error {
	return func(msg amqp.Delivery) error {
		e, err := events.Decode(msg.Body)
		if err != nil {
			return err
		}
		log.Info().
			Str("event_id", e.ID.String()).
			Str("type", string(e.Type)).
			Uint("sweet_id", e.SweetID).
			Int("quantity", e.Quantity).
			Uint("actor_id", e.ActorID).
			Time("occurred_at", e.OccurredAt).
			Msg("inventory event")
		return nil
	}
}
