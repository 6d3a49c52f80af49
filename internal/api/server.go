package api

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/MatheusssGM/Grafos/internal/config"
	"github.com/MatheusssGM/Grafos/internal/metrics"
	"github.com/MatheusssGM/Grafos/internal/model"
	"github.com/MatheusssGM/Grafos/internal/notify"
	"github.com/MatheusssGM/Grafos/internal/runner"
	"github.com/MatheusssGM/Grafos/internal/store"
)

// Server wires the store, event broker, and worker pool behind the HTTP
// handlers.
type Server struct {
	Store  store.Store
	Broker EventBroker
	Pool   *runner.Pool

	cfg     config.Config
	log     zerolog.Logger
	events  eventFan
	limiter *hostLimiter
}

// eventFan forwards run events to websocket subscribers and queues webhook
// deliveries for matching subscriptions.
type eventFan struct {
	broker EventBroker
	pub    *notify.Publisher
}

func (f eventFan) Publish(ev model.RunEvent) {
	f.broker.Publish(ev)
	if f.pub != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		f.pub.Emit(ctx, ev)
	}
}

// NewServer builds a Server from the configuration. Without DATABASE_URL it
// keeps runs in memory; without REDIS_URL events fan out in-process only.
func NewServer(cfg config.Config, log zerolog.Logger) (*Server, error) {
	var st store.Store
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		st = store.NewMemory()
	} else {
		pg, err := store.NewPostgres(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if os.Getenv("DB_BOOTSTRAP") != "false" {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := pg.Bootstrap(ctx)
			cancel()
			if err != nil {
				return nil, err
			}
		}
		st = pg
	}

	var broker EventBroker
	if cfg.RedisURL != "" {
		rb, err := NewRedisBroker(cfg.RedisURL)
		if err != nil {
			log.Warn().Err(err).Msg("redis broker unavailable, using in-process broker")
			broker = NewBroker()
		} else {
			broker = rb
		}
	} else {
		broker = NewBroker()
	}

	fan := eventFan{broker: broker, pub: notify.NewPublisher(st)}
	opts := runner.Options{Trials: cfg.Trials, PoolSize: cfg.PoolSize, SeedBase: cfg.SeedBase}
	pool := runner.NewPool(st, fan, cfg.Workers, opts, log)

	return &Server{
		Store:   st,
		Broker:  broker,
		Pool:    pool,
		cfg:     cfg,
		log:     log,
		events:  fan,
		limiter: newHostLimiter(cfg.RateRPS, cfg.RateBurst),
	}, nil
}

// Routes returns the full handler chain: mux, then auth, then rate
// limiting, then logging/metrics outermost.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/runs", s.RunsHandler)
	mux.HandleFunc("/v1/runs/", s.RunByIDHandler)
	mux.HandleFunc("/v1/ws", s.EventsWSHandler)

	mux.HandleFunc("/v1/subscriptions", s.SubscriptionsHandler)
	mux.HandleFunc("/v1/subscriptions/", s.SubscriptionByIDHandler)
	mux.HandleFunc("/v1/admin/webhook-deliveries", s.WebhookDeliveriesHandler)

	mux.HandleFunc("/healthz", s.HealthHandler)
	mux.HandleFunc("/readyz", s.ReadyHandler)
	mux.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/debug/env", s.DebugEnvHandler)

	mux.HandleFunc("/openapi.yaml", s.OpenAPIYAMLHandler)
	mux.HandleFunc("/openapi.json", s.OpenAPIJSONHandler)
	mux.HandleFunc("/docs", s.DocsHandler)

	return s.instrument(s.limit(s.withAuth(mux)))
}

// NewNotifyWorker creates the background webhook delivery worker.
func (s *Server) NewNotifyWorker() *notify.Worker {
	return notify.NewWorker(s.Store, s.cfg.WebhookMaxAttempts, s.log)
}

// EnsureSubscription registers a catch-all webhook endpoint unless one with
// the same URL exists. Seeds WEBHOOK_URL from the configuration.
func (s *Server) EnsureSubscription(ctx context.Context, url, secret string) error {
	subs, _, err := s.Store.ListSubscriptions(ctx, "", 1000)
	if err != nil {
		return err
	}
	for _, sub := range subs {
		if sub.URL == url {
			return nil
		}
	}
	_, err = s.Store.CreateSubscription(ctx, model.SubscriptionRequest{URL: url, Events: []string{"*"}, Secret: secret})
	return err
}

// Close drains the worker pool and releases the store.
func (s *Server) Close() {
	s.Pool.Close()
	if pg, ok := s.Store.(*store.Postgres); ok {
		_ = pg.Close()
	}
}
