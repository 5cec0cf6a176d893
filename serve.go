package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/prappser/gallery_server/internal"
	"github.com/prappser/gallery_server/internal/archive"
	"github.com/prappser/gallery_server/internal/asset"
	"github.com/prappser/gallery_server/internal/health"
	"github.com/prappser/gallery_server/internal/middleware"
	"github.com/prappser/gallery_server/internal/status"
	"github.com/prappser/gallery_server/internal/transcode"
	"github.com/prappser/gallery_server/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/valyala/fasthttp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address, e.g. :8080")
	bindFlag(serveCmd.Flags(), "http.address", "addr")
}

func runServe(cmd *cobra.Command, args []string) error {
	config, err := loadConfig()
	if err != nil {
		return err
	}

	if config.Auth.APIKey == "" {
		log.Warn().Msg("auth.api_key is not set; every route except /health will answer 401")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := asset.NewStore(config.Storage.Root)
	if err != nil {
		return err
	}

	hub := websocket.NewHub()
	go hub.Run()
	defer hub.Stop()

	manager := asset.NewManager(store, hub)
	listing := asset.NewListing(store)

	cache, closeCache := deliveryCache(ctx, config.Cache)
	defer closeCache()

	encoder, err := transcode.NewEncoder(config.Transcode.Format)
	if err != nil {
		return err
	}
	transcoder := transcode.NewTranscoder(store, encoder, config.Transcode, cache)

	exporter, err := newExporter(store, config.Export, hub)
	if err != nil {
		return err
	}
	scheduler := archive.NewScheduler(exporter, config.Export.Schedule)
	if err := scheduler.Start(); err != nil {
		return fmt.Errorf("invalid export schedule %q: %w", config.Export.Schedule, err)
	}
	defer scheduler.Stop()

	cors := middleware.NewCORSMiddleware(config.CORS.AllowedOrigins)
	requestHandler := internal.NewRequestHandler(config, &internal.Endpoints{
		Assets:   asset.NewEndpoints(manager, listing),
		Images:   transcode.NewEndpoints(transcoder),
		Archive:  archive.NewEndpoints(exporter),
		Status:   status.NewEndpoints(version, listing, hub),
		Health:   health.NewEndpoints(version),
		Realtime: websocket.NewHandler(hub, cors.IsOriginAllowed),
	}, cors)

	server := &fasthttp.Server{
		Handler:            requestHandler,
		Name:               "gallery",
		ReadTimeout:        config.HTTP.ReadTimeout,
		WriteTimeout:       config.HTTP.WriteTimeout,
		MaxRequestBodySize: config.HTTP.MaxBodySize,
	}

	errs := make(chan error, 1)
	go func() {
		log.Info().
			Str("address", config.HTTP.Address).
			Str("storageRoot", store.Root()).
			Str("format", encoder.MediaType()).
			Msg("Gallery server listening")
		errs <- server.ListenAndServe(config.HTTP.Address)
	}()

	select {
	case err := <-errs:
		return fmt.Errorf("error starting server: %w", err)
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return server.ShutdownWithContext(shutdownCtx)
}

// deliveryCache connects to Redis when caching is enabled. An unreachable
// Redis disables caching instead of failing startup.
func deliveryCache(ctx context.Context, config transcode.CacheConfig) (transcode.Cache, func()) {
	if !config.Enabled {
		return nil, func() {}
	}

	cache, err := transcode.NewRedisCache(ctx, config)
	if err != nil {
		log.Warn().
			Err(err).
			Str("addr", config.Addr).
			Msg("Delivery cache unavailable, continuing without it")
		return nil, func() {}
	}

	log.Info().Str("addr", config.Addr).Msg("Delivery cache enabled")
	return cache, func() {
		if err := cache.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close delivery cache")
		}
	}
}

func newExporter(store *asset.Store, config archive.Config, events asset.EventPublisher) (*archive.Exporter, error) {
	backend, err := archive.NewBackend(&config.Backend)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize artifact backend: %w", err)
	}
	return archive.NewExporter(store, backend, config, events), nil
}
