package api

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/MatheusssGM/Grafos/internal/metrics"
)

// statusWriter records the response code for logging and metrics. It keeps
// Flush and Hijack working so SSE-style writes and websocket upgrades pass
// through untouched.
type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(c int) {
	w.code = c
	w.ResponseWriter.WriteHeader(c)
}

func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok { f.Flush() }
}

func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok { return nil, nil, errors.New("hijack not supported") }
	return h.Hijack()
}

// instrument logs each request and records it on the Prometheus registry.
func (s *Server) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)
		dur := time.Since(start)
		path := normalizePath(r.URL.Path)
		status := strconv.Itoa(sw.code)
		metrics.HTTPRequests.WithLabelValues(r.Method, path, status).Inc()
		metrics.HTTPDuration.WithLabelValues(r.Method, path, status).Observe(dur.Seconds())
		s.log.Debug().Str("method", r.Method).Str("path", r.URL.Path).Int("status", sw.code).Dur("dur", dur).Str("remote", r.RemoteAddr).Msg("http")
	})
}

// normalizePath replaces run and subscription ids so metric label
// cardinality stays bounded.
func normalizePath(p string) string {
	switch {
	case strings.HasPrefix(p, "/v1/runs/"):
		rest := strings.TrimPrefix(p, "/v1/runs/")
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			return "/v1/runs/{id}" + rest[i:]
		}
		return "/v1/runs/{id}"
	case strings.HasPrefix(p, "/v1/subscriptions/"):
		return "/v1/subscriptions/{id}"
	}
	return p
}

// hostLimiter keeps one token bucket per remote host.
type hostLimiter struct {
	mu    sync.Mutex
	lims  map[string]*rate.Limiter
	rps   rate.Limit
	burst int
}

func newHostLimiter(rps float64, burst int) *hostLimiter {
	if rps <= 0 { return nil }
	if burst < 1 { burst = 1 }
	return &hostLimiter{lims: map[string]*rate.Limiter{}, rps: rate.Limit(rps), burst: burst}
}

func (h *hostLimiter) get(host string) *rate.Limiter {
	h.mu.Lock()
	defer h.mu.Unlock()
	l := h.lims[host]
	if l == nil {
		l = rate.NewLimiter(h.rps, h.burst)
		h.lims[host] = l
	}
	return l
}

// limit rate-limits mutating methods per remote host. Reads stay unmetered
// so dashboards polling run status are never throttled.
func (s *Server) limit(next http.Handler) http.Handler {
	if s.limiter == nil { return next }
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			host, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil { host = r.RemoteAddr }
			if !s.limiter.get(host).Allow() {
				writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "rate limit exceeded, retry later", r.URL.Path)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}
