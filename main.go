package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"sweetshop/internal/cache"
	"sweetshop/internal/config"
	"sweetshop/internal/database"
	"sweetshop/internal/events"
	"sweetshop/internal/server"
	"sweetshop/pkg/logger"
	"sweetshop/pkg/rabbitmq"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("load configuration: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("db_driver", cfg.DB.Driver).
		Msg("starting application")

	ctx := context.Background()

	store, err := database.NewStore(cfg.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	defer store.Close()

	deps := server.Deps{Store: store, AccessLog: true}

	if cfg.Redis.Enabled() {
		rdb, err := cache.Connect(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			log.Warn().Err(err).Msg("redis unavailable, list cache disabled")
		} else {
			defer rdb.Close()
			deps.Cache = cache.NewRedisCache(rdb, cfg.Redis.TTL)
			log.Info().Str("addr", cfg.Redis.Addr).Msg("list cache enabled")
		}
	}

	if cfg.RabbitMQ.Enabled() {
		mqClient, err := rabbitmq.NewClient(ctx, rabbitmq.Config{
			URL:          cfg.RabbitMQ.URL,
			Queue:        cfg.RabbitMQ.Queue,
			DialAttempts: 5,
		})
		if err != nil {
			log.Warn().Err(err).Msg("rabbitmq unavailable, inventory events disabled")
		} else {
			defer mqClient.Close()
			deps.Publisher = events.NewBrokerPublisher(mqClient)
		}
	}

	app, err := server.NewApp(cfg, deps)
	if err != nil {
		log.Fatal().Err(err).Msg("build HTTP app")
	}

	go func() {
		if err := app.Listen(cfg.HTTP.Addr); err != nil {
			log.Error().Err(err).Msg("HTTP server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutdown signal received, stopping server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server shutdown")
	}

	log.Info().Msg("server gracefully stopped")
}
