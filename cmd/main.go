package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"livebets/line_tracker/cmd/config"
	"livebets/line_tracker/internal/api"
	"livebets/line_tracker/internal/entity"
	"livebets/line_tracker/internal/sender"
	"livebets/line_tracker/internal/server"
	"livebets/line_tracker/internal/service"
	"livebets/line_tracker/internal/storage"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

func main() {
	ctx, cancelFunc := context.WithCancel(context.Background())

	// Init config
	logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
	logger.Info().Msg(">> Starting line_tracker")
	appConfig, err := config.ProvideAppConfig()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load app configuration")
	}

	configErr := appConfig.Validate()
	if configErr != nil {
		logger.Error().Err(configErr).Msg("configuration issues")
	} else {
		logger.Info().Msg("configuration validation successful")
	}

	docs, closeDocs, err := openDocumentStore(ctx, appConfig.StorageConfig, &logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open storage")
	}
	defer closeDocs()

	history := storage.NewHistoryStore(docs, appConfig.StorageConfig.HistoryKey, &logger)
	opportunities := storage.NewOpportunityStore(docs, appConfig.StorageConfig.OpportunitiesKey, &logger)

	sendChan := make(chan entity.Batch, 16)

	api := api.New(appConfig.APIConfig, &logger)
	sender := sender.New(sendChan, &logger)
	service := service.New(api, history, opportunities, sendChan, &logger)

	wg := &sync.WaitGroup{}

	wg.Add(1)
	go sender.SendingToClients(ctx, wg)

	if appConfig.PollConfig.Interval > 0 {
		logger.Info().Dur("interval", appConfig.PollConfig.Interval).Msg("start background polling")
		wg.Add(1)
		go service.Run(ctx, appConfig.PollConfig.Interval, wg)
	}

	server := &http.Server{
		Addr:              ":" + appConfig.Port,
		Handler:           server.New(service, sender, configErr, &logger).Routes(),
		ReadHeaderTimeout: 15 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", server.Addr).Msg("listening")
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	cancelFunc()
	wg.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = server.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("failed to stop server")
	}

	logger.Info().Msg(">> Stopping line_tracker")
}

// openDocumentStore picks the single per-deployment backend.
func openDocumentStore(ctx context.Context, cfg config.StorageConfig, logger *zerolog.Logger) (storage.DocumentStore, func(), error) {
	if cfg.Driver != config.DriverRedis {
		logger.Info().Str("dir", cfg.Dir).Msg("using file storage")
		return storage.NewFileStore(cfg.Dir), func() {}, nil
	}

	opts, err := redis.ParseURL(cfg.RedisUrl)
	if err != nil {
		return nil, nil, err
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		// Stores degrade open, so a cold Redis is not fatal.
		logger.Warn().Err(err).Msg("redis not reachable yet")
	}

	logger.Info().Str("addr", opts.Addr).Msg("using redis storage")
	return storage.NewRedisStore(client, cfg.RedisPrefix), func() { client.Close() }, nil
}
