package store

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/MatheusssGM/Grafos/internal/model"
)

type Postgres struct {
	db *sql.DB
}

func NewPostgres(dsn string) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &Postgres{db: db}, nil
}

func (p *Postgres) Ping(ctx context.Context) error { return p.db.PingContext(ctx) }

func (p *Postgres) Close() error { return p.db.Close() }

// Bootstrap creates the schema. Statements run one at a time; pgx prepares
// each Exec, so multi-command strings are not an option here.
func (p *Postgres) Bootstrap(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id UUID PRIMARY KEY,
			instance TEXT NOT NULL,
			status TEXT NOT NULL,
			params JSONB NOT NULL,
			error TEXT,
			result JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			started_at TIMESTAMPTZ,
			finished_at TIMESTAMPTZ
		)`,
		`CREATE INDEX IF NOT EXISTS runs_status_idx ON runs (status)`,
		`CREATE TABLE IF NOT EXISTS run_solutions (
			run_id UUID PRIMARY KEY REFERENCES runs(id) ON DELETE CASCADE,
			body TEXT NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS subscriptions (
			id UUID PRIMARY KEY,
			url TEXT NOT NULL,
			events JSONB NOT NULL,
			secret TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE TABLE IF NOT EXISTS webhook_deliveries (
			id UUID PRIMARY KEY,
			subscription_id UUID,
			event_type TEXT NOT NULL,
			url TEXT NOT NULL,
			secret TEXT,
			payload JSONB NOT NULL,
			status TEXT NOT NULL DEFAULT 'pending',
			attempts INT NOT NULL DEFAULT 0,
			next_attempt_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_error TEXT,
			response_code INT,
			latency_ms INT,
			dedup_key TEXT,
			delivered_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS webhook_deliveries_dedup_idx ON webhook_deliveries (event_type, url, dedup_key)`,
		`CREATE INDEX IF NOT EXISTS webhook_deliveries_due_idx ON webhook_deliveries (status, next_attempt_at)`,
	}
	for _, q := range stmts {
		if _, err := p.db.ExecContext(ctx, q); err != nil { return err }
	}
	return nil
}

func (p *Postgres) CreateRun(ctx context.Context, instance string, params model.RunParams) (model.Run, error) {
	// RFC 3339 drops sub-second precision, so store the truncated moment to
	// keep the row and the returned struct in agreement.
	now := time.Now().UTC().Truncate(time.Second)
	run := model.Run{
		ID:        uuid.New().String(),
		Instance:  instance,
		Status:    model.StatusQueued,
		Params:    params,
		CreatedAt: now.Format(time.RFC3339),
	}
	_, err := p.db.ExecContext(ctx, `INSERT INTO runs (id, instance, status, params, created_at) VALUES ($1,$2,$3,$4,$5)`,
		run.ID, run.Instance, run.Status, toJSON(run.Params), now)
	if err != nil { return model.Run{}, err }
	return run, nil
}

const runCols = `id::text, instance, status, params, error, result, created_at, started_at, finished_at`

func (p *Postgres) GetRun(ctx context.Context, id string) (model.Run, error) {
	row := p.db.QueryRowContext(ctx, `SELECT `+runCols+` FROM runs WHERE id::text=$1`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) { return model.Run{}, ErrNotFound }
	return r, err
}

func (p *Postgres) ListRuns(ctx context.Context, status, cursor string, limit int) ([]model.Run, string, error) {
	if limit <= 0 || limit > 500 { limit = 100 }
	var rows *sql.Rows
	var err error
	if status != "" {
		if cursor != "" {
			rows, err = p.db.QueryContext(ctx, `SELECT `+runCols+` FROM runs WHERE status=$1 AND id::text > $2 ORDER BY id LIMIT $3`, status, cursor, limit)
		} else {
			rows, err = p.db.QueryContext(ctx, `SELECT `+runCols+` FROM runs WHERE status=$1 ORDER BY id LIMIT $2`, status, limit)
		}
	} else {
		if cursor != "" {
			rows, err = p.db.QueryContext(ctx, `SELECT `+runCols+` FROM runs WHERE id::text > $1 ORDER BY id LIMIT $2`, cursor, limit)
		} else {
			rows, err = p.db.QueryContext(ctx, `SELECT `+runCols+` FROM runs ORDER BY id LIMIT $1`, limit)
		}
	}
	if err != nil { return nil, "", err }
	defer rows.Close()
	out := []model.Run{}
	var last string
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil { return nil, "", err }
		out = append(out, r)
		last = r.ID
	}
	var next string
	if len(out) == limit { next = last }
	return out, next, nil
}

func (p *Postgres) UpdateRun(ctx context.Context, run model.Run) error {
	var result any
	if run.Result != nil { result = toJSON(run.Result) }
	res, err := p.db.ExecContext(ctx, `UPDATE runs SET status=$2, params=$3, error=$4, result=$5, started_at=$6, finished_at=$7 WHERE id::text=$1`,
		run.ID, run.Status, toJSON(run.Params), nullIfEmpty(run.Error), result, nullTime(run.StartedAt), nullTime(run.FinishedAt))
	if err != nil { return err }
	if n, _ := res.RowsAffected(); n == 0 { return ErrNotFound }
	return nil
}

func (p *Postgres) DeleteRun(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM runs WHERE id::text=$1`, id)
	if err != nil { return err }
	if n, _ := res.RowsAffected(); n == 0 { return ErrNotFound }
	return nil
}

func (p *Postgres) SaveSolution(ctx context.Context, runID, body string) error {
	_, err := p.db.ExecContext(ctx, `INSERT INTO run_solutions (run_id, body) VALUES ($1,$2)
		ON CONFLICT (run_id) DO UPDATE SET body=$2, created_at=now()`, runID, body)
	return err
}

func (p *Postgres) GetSolution(ctx context.Context, runID string) (string, error) {
	var body string
	err := p.db.QueryRowContext(ctx, `SELECT body FROM run_solutions WHERE run_id::text=$1`, runID).Scan(&body)
	if errors.Is(err, sql.ErrNoRows) { return "", ErrNotFound }
	return body, err
}

func (p *Postgres) CreateSubscription(ctx context.Context, req model.SubscriptionRequest) (model.Subscription, error) {
	id := uuid.New().String()
	ev, _ := json.Marshal(req.Events)
	_, err := p.db.ExecContext(ctx, `INSERT INTO subscriptions (id, url, events, secret) VALUES ($1,$2,$3,$4)`, id, req.URL, ev, req.Secret)
	if err != nil { return model.Subscription{}, err }
	return model.Subscription{ID: id, URL: req.URL, Events: req.Events, Secret: req.Secret}, nil
}

func (p *Postgres) ListSubscriptions(ctx context.Context, cursor string, limit int) ([]model.Subscription, string, error) {
	if limit <= 0 || limit > 500 { limit = 100 }
	var rows *sql.Rows
	var err error
	if cursor != "" {
		rows, err = p.db.QueryContext(ctx, `SELECT id::text, url, secret, events FROM subscriptions WHERE id::text > $1 ORDER BY id LIMIT $2`, cursor, limit)
	} else {
		rows, err = p.db.QueryContext(ctx, `SELECT id::text, url, secret, events FROM subscriptions ORDER BY id LIMIT $1`, limit)
	}
	if err != nil { return nil, "", err }
	defer rows.Close()
	var out []model.Subscription
	var last string
	for rows.Next() {
		var s model.Subscription
		var ev []byte
		if err := rows.Scan(&s.ID, &s.URL, &s.Secret, &ev); err != nil { return nil, "", err }
		_ = json.Unmarshal(ev, &s.Events)
		out = append(out, s)
		last = s.ID
	}
	next := ""
	if len(out) == limit { next = last }
	return out, next, nil
}

func (p *Postgres) DeleteSubscription(ctx context.Context, id string) error {
	res, err := p.db.ExecContext(ctx, `DELETE FROM subscriptions WHERE id::text=$1`, id)
	if err != nil { return err }
	if n, _ := res.RowsAffected(); n == 0 { return ErrNotFound }
	return nil
}

// GetSubscriptionsForEvent matches exact event types plus "*" catch-alls.
func (p *Postgres) GetSubscriptionsForEvent(ctx context.Context, eventType string) ([]model.Subscription, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, url, secret, events FROM subscriptions WHERE events @> $1::jsonb OR events @> '["*"]'::jsonb`,
		fmt.Sprintf("[%q]", eventType))
	if err != nil { return nil, err }
	defer rows.Close()
	out := []model.Subscription{}
	for rows.Next() {
		var s model.Subscription
		var ev []byte
		if err := rows.Scan(&s.ID, &s.URL, &s.Secret, &ev); err != nil { return nil, err }
		_ = json.Unmarshal(ev, &s.Events)
		out = append(out, s)
	}
	return out, nil
}

func (p *Postgres) EnqueueWebhook(ctx context.Context, subscriptionID, eventType, url, secret string, payload []byte) (string, error) {
	id := uuid.New().String()
	dk := computeDedupKey(payload)
	_, err := p.db.ExecContext(ctx, `INSERT INTO webhook_deliveries (id, subscription_id, event_type, url, secret, payload, status, attempts, next_attempt_at, dedup_key)
		VALUES ($1,$2,$3,$4,$5,$6,'pending',0,now(),$7)
		ON CONFLICT (event_type, url, dedup_key) DO NOTHING`, id, nullIfEmpty(subscriptionID), eventType, url, nullIfEmpty(secret), payload, dk)
	if err != nil { return "", err }
	return id, nil
}

func (p *Postgres) FetchDueWebhookDeliveries(ctx context.Context, limit int) ([]WebhookDelivery, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id::text, COALESCE(subscription_id::text,''), event_type, url, COALESCE(secret,''), payload, status, attempts
		FROM webhook_deliveries WHERE status IN ('pending','retry') AND next_attempt_at <= now() ORDER BY next_attempt_at ASC LIMIT $1`, limit)
	if err != nil { return nil, err }
	defer rows.Close()
	out := []WebhookDelivery{}
	for rows.Next() {
		var d WebhookDelivery
		var payload []byte
		if err := rows.Scan(&d.ID, &d.SubscriptionID, &d.EventType, &d.URL, &d.Secret, &payload, &d.Status, &d.Attempts); err != nil { return nil, err }
		d.Payload = payload
		out = append(out, d)
	}
	return out, nil
}

func (p *Postgres) MarkWebhookDelivery(ctx context.Context, id string, success bool, nextAttemptAt *time.Time, lastError string, responseCode int, latencyMs int) error {
	if !success {
		if nextAttemptAt == nil { t := time.Now().Add(1 * time.Minute); nextAttemptAt = &t }
		_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='retry', last_error=$2, next_attempt_at=$3, updated_at=now(), response_code=$4, latency_ms=$5 WHERE id=$1`,
			id, nullIfEmpty(lastError), *nextAttemptAt, responseCode, latencyMs)
		return err
	}
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET attempts=attempts+1, status='delivered', delivered_at=now(), updated_at=now(), response_code=$2, latency_ms=$3 WHERE id=$1`,
		id, responseCode, latencyMs)
	return err
}

func (p *Postgres) FailWebhookDelivery(ctx context.Context, id string, lastError string, responseCode int, latencyMs int) error {
	_, err := p.db.ExecContext(ctx, `UPDATE webhook_deliveries SET status='failed', last_error=$2, updated_at=now(), response_code=$3, latency_ms=$4 WHERE id=$1`,
		id, nullIfEmpty(lastError), responseCode, latencyMs)
	return err
}

func (p *Postgres) ListWebhookDeliveries(ctx context.Context, status, cursor string, limit int) ([]map[string]any, string, error) {
	if limit <= 0 || limit > 500 { limit = 100 }
	const cols = `id::text, event_type, status, attempts, next_attempt_at, last_error, url`
	var rows *sql.Rows
	var err error
	if status != "" {
		if cursor != "" {
			rows, err = p.db.QueryContext(ctx, `SELECT `+cols+` FROM webhook_deliveries WHERE status=$1 AND id::text > $2 ORDER BY id LIMIT $3`, status, cursor, limit)
		} else {
			rows, err = p.db.QueryContext(ctx, `SELECT `+cols+` FROM webhook_deliveries WHERE status=$1 ORDER BY id LIMIT $2`, status, limit)
		}
	} else {
		if cursor != "" {
			rows, err = p.db.QueryContext(ctx, `SELECT `+cols+` FROM webhook_deliveries WHERE id::text > $1 ORDER BY id LIMIT $2`, cursor, limit)
		} else {
			rows, err = p.db.QueryContext(ctx, `SELECT `+cols+` FROM webhook_deliveries ORDER BY id LIMIT $1`, limit)
		}
	}
	if err != nil { return nil, "", err }
	defer rows.Close()
	out := []map[string]any{}
	var last string
	for rows.Next() {
		var id, typ, st, url string
		var attempts int
		var nextAt sql.NullTime
		var lastErr sql.NullString
		if err := rows.Scan(&id, &typ, &st, &attempts, &nextAt, &lastErr, &url); err != nil { return nil, "", err }
		m := map[string]any{"id": id, "eventType": typ, "status": st, "attempts": attempts, "url": url}
		if nextAt.Valid { m["nextAttemptAt"] = nextAt.Time }
		if lastErr.String != "" { m["lastError"] = lastErr.String }
		out = append(out, m)
		last = id
	}
	next := ""
	if len(out) == limit { next = last }
	return out, next, nil
}

type rowScanner interface{ Scan(dest ...any) error }

func scanRun(sc rowScanner) (model.Run, error) {
	var r model.Run
	var params, result []byte
	var errMsg sql.NullString
	var created time.Time
	var started, finished sql.NullTime
	if err := sc.Scan(&r.ID, &r.Instance, &r.Status, &params, &errMsg, &result, &created, &started, &finished); err != nil {
		return model.Run{}, err
	}
	_ = json.Unmarshal(params, &r.Params)
	if len(result) > 0 {
		var res model.RunResult
		if json.Unmarshal(result, &res) == nil { r.Result = &res }
	}
	r.Error = errMsg.String
	r.CreatedAt = created.UTC().Format(time.RFC3339)
	r.StartedAt = fmtTime(started)
	r.FinishedAt = fmtTime(finished)
	return r, nil
}

// computeDedupKey keys a payload by its event id when present, else by a
// short content hash, so retried Emit calls collapse into one delivery row.
func computeDedupKey(payload []byte) string {
	var m map[string]any
	if json.Unmarshal(payload, &m) == nil {
		if v, ok := m["id"].(string); ok && v != "" {
			return v
		}
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:8])
}

// Helpers
func nullIfEmpty(s string) any { if s == "" { return nil }; return s }

func toJSON(v any) []byte { b, _ := json.Marshal(v); return b }

func nullTime(s string) any {
	if s == "" { return nil }
	t, err := time.Parse(time.RFC3339, s)
	if err != nil { return nil }
	return t
}

func fmtTime(t sql.NullTime) string {
	if !t.Valid { return "" }
	return t.Time.UTC().Format(time.RFC3339)
}
