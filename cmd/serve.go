package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"emotion-backend/pkg/api"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP and WebSocket API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe()
		},
	}
}

func runServe() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cache, err := openCache(cfg)
	if err != nil {
		return err
	}
	defer cache.Close()

	chatSvc := buildChat(ctx, cfg)
	scraper, err := buildPipeline(cfg, cache)
	if err != nil {
		return err
	}
	voicePredictor, err := buildVoice(cfg)
	if err != nil {
		return err
	}
	riskPredictor := buildRisk(cfg)

	limiter := api.NewRateLimiter(cfg.RateLimit.RequestsPerMinute, cfg.RateLimit.Burst)
	if err := limiter.TrustProxies(cfg.RateLimit.TrustedProxies); err != nil {
		return err
	}
	if limiter.Enabled() {
		go limiter.Run(ctx, 5*time.Minute, 10*time.Minute)
	}

	handlers := api.NewHandlers(chatSvc, scraper, voicePredictor, riskPredictor, cfg.Server.MaxUploadBytes)

	srv := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      api.NewRouter(handlers, limiter),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Server.Address).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-errCh:
		return err
	}

	log.Info().Msg("shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}

	log.Info().Msg("server exited")
	return nil
}
