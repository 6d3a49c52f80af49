// Command carpd serves the solver over HTTP: submit instances as runs,
// follow progress over websockets or webhooks, fetch solutions.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MatheusssGM/Grafos/internal/api"
	"github.com/MatheusssGM/Grafos/internal/buildinfo"
	"github.com/MatheusssGM/Grafos/internal/config"
	"github.com/MatheusssGM/Grafos/internal/logging"
	"github.com/MatheusssGM/Grafos/internal/metrics"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		l := logging.L()
		l.Fatal().Err(err).Msg("load config")
	}
	logging.Init(cfg.LogLevel, cfg.LogFormat)
	log := logging.L()
	metrics.RegisterDefault()

	srv, err := api.NewServer(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("init server")
	}

	if cfg.WebhookURL != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := srv.EnsureSubscription(ctx, cfg.WebhookURL, cfg.WebhookSecret); err != nil {
			log.Warn().Err(err).Msg("seed webhook subscription")
		}
		cancel()
	}

	worker := srv.NewNotifyWorker()
	worker.Start()

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Info().Str("addr", httpSrv.Addr).Str("version", buildinfo.String()).Msg("carpd listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	close(worker.Stop)
	srv.Close()
	log.Info().Msg("bye")
}
