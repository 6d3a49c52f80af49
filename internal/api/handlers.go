package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MatheusssGM/Grafos/internal/model"
	"github.com/MatheusssGM/Grafos/internal/store"
)

// maxInstanceBytes caps uploaded instance files.
const maxInstanceBytes = 16 << 20

// RunsHandler handles POST/GET /v1/runs.
func (s *Server) RunsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		name, data, err := readInstanceBody(r)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid instance upload", err.Error(), r.URL.Path)
			return
		}
		params, err := runParamsFromQuery(r)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid run params", err.Error(), r.URL.Path)
			return
		}
		run, err := s.Store.CreateRun(r.Context(), name, params)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create run failed", err.Error(), r.URL.Path)
			return
		}
		s.events.Publish(model.RunEvent{RunID: run.ID, Type: model.EventQueued, TS: run.CreatedAt, Data: map[string]any{"instance": name}})
		if !s.Pool.Submit(run.ID, name, data) {
			run.Status = model.StatusFailed
			run.Error = "worker queue full"
			run.FinishedAt = time.Now().UTC().Format(time.RFC3339)
			_ = s.Store.UpdateRun(r.Context(), run)
			s.events.Publish(model.RunEvent{RunID: run.ID, Type: model.EventFailed, TS: run.FinishedAt, Data: map[string]any{"status": run.Status, "error": run.Error}})
			writeProblem(w, http.StatusServiceUnavailable, "Queue full", "worker queue is full, retry later", r.URL.Path)
			return
		}
		writeJSON(w, http.StatusAccepted, run)
	case http.MethodGet:
		status := r.URL.Query().Get("status")
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" { fmt.Sscanf(v, "%d", &limit) }
		items, next, err := s.Store.ListRuns(r.Context(), status, cursor, limit)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "List runs failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// readInstanceBody accepts a raw .dat body or a multipart upload with a
// "file" field. The name comes from the multipart filename or the
// X-Instance-Name header, defaulting to instance.dat.
func readInstanceBody(r *http.Request) (string, []byte, error) {
	name := r.Header.Get("X-Instance-Name")
	var data []byte
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "multipart/form-data" {
		if err := r.ParseMultipartForm(maxInstanceBytes); err != nil { return "", nil, err }
		f, hdr, err := r.FormFile("file")
		if err != nil { return "", nil, fmt.Errorf("missing file field: %w", err) }
		defer func() { _ = f.Close() }()
		b, err := io.ReadAll(io.LimitReader(f, maxInstanceBytes+1))
		if err != nil { return "", nil, err }
		data = b
		if name == "" { name = hdr.Filename }
	} else {
		b, err := io.ReadAll(io.LimitReader(r.Body, maxInstanceBytes+1))
		if err != nil { return "", nil, err }
		data = b
	}
	if len(data) > maxInstanceBytes { return "", nil, fmt.Errorf("instance exceeds %d bytes", maxInstanceBytes) }
	if len(strings.TrimSpace(string(data))) == 0 { return "", nil, fmt.Errorf("empty instance body") }
	if name == "" { name = "instance.dat" }
	return name, data, nil
}

func runParamsFromQuery(r *http.Request) (model.RunParams, error) {
	var p model.RunParams
	q := r.URL.Query()
	if v := q.Get("trials"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil { return p, fmt.Errorf("trials: %v", err) }
		p.Trials = n
	}
	if v := q.Get("k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil { return p, fmt.Errorf("k: %v", err) }
		p.PoolSize = n
	}
	if v := q.Get("seed"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil { return p, fmt.Errorf("seed: %v", err) }
		p.SeedBase = n
	}
	if err := validateRunParams(p); err != nil { return p, err }
	return p, nil
}

// RunByIDHandler handles GET/DELETE /v1/runs/{id} and GET /v1/runs/{id}/solution.
func (s *Server) RunByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/v1/runs/")
	if rest == r.URL.Path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing run id", r.URL.Path)
		return
	}
	parts := strings.Split(rest, "/")
	id := parts[0]
	if len(parts) > 1 && parts[1] == "solution" {
		if r.Method != http.MethodGet { w.WriteHeader(http.StatusMethodNotAllowed); return }
		body, err := s.Store.GetSolution(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeProblem(w, http.StatusNotFound, "Solution not available", "no stored solution for run "+id, r.URL.Path)
				return
			}
			writeProblem(w, http.StatusInternalServerError, "Get solution failed", err.Error(), r.URL.Path)
			return
		}
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, body)
		return
	}
	switch r.Method {
	case http.MethodGet:
		run, err := s.Store.GetRun(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) { writeProblem(w, http.StatusNotFound, "Run not found", "", r.URL.Path); return }
			writeProblem(w, http.StatusInternalServerError, "Get run failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusOK, run)
	case http.MethodDelete:
		run, err := s.Store.GetRun(r.Context(), id)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) { writeProblem(w, http.StatusNotFound, "Run not found", "", r.URL.Path); return }
			writeProblem(w, http.StatusInternalServerError, "Get run failed", err.Error(), r.URL.Path)
			return
		}
		if run.Status == model.StatusQueued || run.Status == model.StatusRunning {
			writeProblem(w, http.StatusConflict, "Run is active", "wait for the run to finish before deleting", r.URL.Path)
			return
		}
		if err := s.Store.DeleteRun(r.Context(), id); err != nil {
			writeProblem(w, http.StatusInternalServerError, "Delete run failed", err.Error(), r.URL.Path)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionsHandler handles POST/GET /v1/subscriptions.
func (s *Server) SubscriptionsHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		var req model.SubscriptionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
			return
		}
		if err := validateSubscription(req); err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid subscription", err.Error(), r.URL.Path)
			return
		}
		sub, err := s.Store.CreateSubscription(r.Context(), req)
		if err != nil {
			writeProblem(w, http.StatusInternalServerError, "Create subscription failed", err.Error(), r.URL.Path)
			return
		}
		writeJSON(w, http.StatusCreated, sub)
	case http.MethodGet:
		cursor := r.URL.Query().Get("cursor")
		limit := 100
		if v := r.URL.Query().Get("limit"); v != "" { fmt.Sscanf(v, "%d", &limit) }
		items, next, err := s.Store.ListSubscriptions(r.Context(), cursor, limit)
		if err != nil { writeProblem(w, 500, "List subscriptions failed", err.Error(), r.URL.Path); return }
		writeJSON(w, 200, map[string]any{"items": items, "nextCursor": next})
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// SubscriptionByIDHandler handles DELETE /v1/subscriptions/{id}.
func (s *Server) SubscriptionByIDHandler(w http.ResponseWriter, r *http.Request) {
	if !strings.HasPrefix(r.URL.Path, "/v1/subscriptions/") { writeProblem(w, 404, "Not Found", "", r.URL.Path); return }
	if r.Method != http.MethodDelete { w.WriteHeader(405); return }
	id := strings.TrimPrefix(r.URL.Path, "/v1/subscriptions/")
	if err := s.Store.DeleteSubscription(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) { writeProblem(w, 404, "Subscription not found", "", r.URL.Path); return }
		writeProblem(w, 500, "Delete subscription failed", err.Error(), r.URL.Path)
		return
	}
	w.WriteHeader(204)
}

// WebhookDeliveriesHandler lists webhook delivery attempts for debugging
// subscriber endpoints.
func (s *Server) WebhookDeliveriesHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet { w.WriteHeader(405); return }
	status := r.URL.Query().Get("status")
	cursor := r.URL.Query().Get("cursor")
	limit := 100
	if v := r.URL.Query().Get("limit"); v != "" { fmt.Sscanf(v, "%d", &limit) }
	items, next, err := s.Store.ListWebhookDeliveries(r.Context(), status, cursor, limit)
	if err != nil { writeProblem(w, 500, "List deliveries failed", err.Error(), r.URL.Path); return }
	writeJSON(w, 200, map[string]any{"items": items, "nextCursor": next})
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, 200, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	// Check DB connectivity when using the Postgres store
	type pinger interface{ Ping(ctx context.Context) error }
	if pg, ok := s.Store.(pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 500*time.Millisecond)
		defer cancel()
		if err := pg.Ping(ctx); err != nil { writeProblem(w, 503, "Not Ready", err.Error(), r.URL.Path); return }
	}
	writeJSON(w, 200, map[string]string{"status": "ready"})
}
