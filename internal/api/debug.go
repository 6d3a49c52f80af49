package api

import (
	"net/http"
	"time"

	"github.com/MatheusssGM/Grafos/internal/buildinfo"
)

// DebugEnvHandler reports the effective configuration. Secrets are reduced
// to presence flags.
func (s *Server) DebugEnvHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"port":               s.cfg.Port,
			"authMode":           s.cfg.AuthMode,
			"rateRps":            s.cfg.RateRPS,
			"rateBurst":          s.cfg.RateBurst,
			"webhookMaxAttempts": s.cfg.WebhookMaxAttempts,
			"workers":            s.cfg.Workers,
			"trials":             s.cfg.Trials,
			"k":                  s.cfg.PoolSize,
			"seed":               s.cfg.SeedBase,
			"hasDatabaseUrl":     s.cfg.DatabaseURL != "",
			"hasRedisUrl":        s.cfg.RedisURL != "",
			"hasAuthToken":       s.cfg.AuthToken != "",
			"hasWebhookUrl":      s.cfg.WebhookURL != "",
		},
	})
}
