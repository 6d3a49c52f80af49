//go:build postgres_integration

package store

import (
	"os"
	"testing"

	"github.com/MatheusssGM/Grafos/internal/model"
)

func TestPostgresConnectivityAndBootstrap(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" { t.Skip("DATABASE_URL not set; skipping integration test") }
	p, err := NewPostgres(dsn)
	if err != nil { t.Fatalf("NewPostgres: %v", err) }
	if err := p.Ping(t.Context()); err != nil { t.Fatalf("Ping: %v", err) }
	if err := p.Bootstrap(t.Context()); err != nil { t.Fatalf("Bootstrap: %v", err) }

	run, err := p.CreateRun(t.Context(), "gdb1.dat", model.RunParams{Trials: 1, PoolSize: 1, SeedBase: 1})
	if err != nil { t.Fatalf("CreateRun: %v", err) }
	defer func() { _ = p.DeleteRun(t.Context(), run.ID) }()
	if _, _, err := p.ListRuns(t.Context(), "", "", 1); err != nil { t.Fatalf("ListRuns: %v", err) }
}
