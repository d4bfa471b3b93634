package httpapi

import (
	"context"
	_ "embed"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"portmonitor/internal/metrics"
	"portmonitor/internal/ports"
	"portmonitor/internal/status"
)

//go:embed static/index.html
var indexHTML []byte

// DeviceSource is the upstream the handler polls. *provisioner.Client satisfies it.
type DeviceSource interface {
	Fetch(ctx context.Context) (json.RawMessage, error)
}

type Handler struct {
	log        zerolog.Logger
	source     DeviceSource
	aggregator *ports.Aggregator
	palette    status.Palette
	metrics    *metrics.Metrics
	now        func() time.Time
}

func NewHandler(log zerolog.Logger, source DeviceSource, aggregator *ports.Aggregator, palette status.Palette, m *metrics.Metrics) *Handler {
	return &Handler{
		log:        log,
		source:     source,
		aggregator: aggregator,
		palette:    palette,
		metrics:    m,
		now:        time.Now,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(15 * time.Second))
	r.Use(h.accessLog)

	// UI
	r.Get("/", h.handleIndex)

	// Health
	r.Get("/healthz", h.handleHealthz)
	r.Get("/readyz", h.handleReadyZ)
	r.Method(http.MethodGet, "/metrics", h.metrics.Handler())

	// API
	r.Route("/api", func(r chi.Router) {
		r.Get("/devices", h.handleDevices)
		r.Get("/colors", h.handleColors)
	})

	return r
}

func (h *Handler) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		if id := middleware.GetReqID(r.Context()); id != "" {
			ww.Header().Set(middleware.RequestIDHeader, id)
		}

		next.ServeHTTP(ww, r)

		route := r.URL.Path
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		h.metrics.ObserveHTTPRequest(r.Method, route, ww.Status(), time.Since(start))

		h.log.Info().
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Int64("duration_ms", time.Since(start).Milliseconds()).
			Msg("http_request")
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, code, msg string, details map[string]any) {
	resp := map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
	}
	if details != nil {
		resp["error"].(map[string]any)["details"] = details
	}
	h.writeJSON(w, status, resp)
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(indexHTML)
}

func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) handleReadyZ(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		h.writeError(w, http.StatusServiceUnavailable, "provisioner_unavailable", "provisioner not configured", nil)
		return
	}

	if _, err := h.source.Fetch(r.Context()); err != nil {
		h.writeError(w, http.StatusServiceUnavailable, "provisioner_unavailable", "provisioner not ready", map[string]any{"error": err.Error()})
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"ready": true})
}

func (h *Handler) handleDevices(w http.ResponseWriter, r *http.Request) {
	if h.source == nil {
		h.recordPortCounts(nil)
		h.writeJSON(w, http.StatusInternalServerError, ports.Failure(h.now()))
		return
	}

	raw, err := h.source.Fetch(r.Context())
	if err != nil {
		// The source has already logged the cause.
		h.recordPortCounts(nil)
		h.writeJSON(w, http.StatusInternalServerError, ports.Failure(h.now()))
		return
	}

	res := h.aggregator.Aggregate(raw, h.now())
	h.recordPortCounts(res.Ports)
	h.writeJSON(w, http.StatusOK, res)
}

// recordPortCounts publishes the per-category gauge. Every known category is
// written on each call, so an empty or failed response zeroes the gauge.
func (h *Handler) recordPortCounts(views []ports.PortView) {
	categories := status.Categories()
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, string(c))
	}
	counts := make(map[string]int, len(categories))
	for _, p := range views {
		counts[string(p.Category())]++
	}
	h.metrics.SetPortCounts(names, counts)
}

func (h *Handler) handleColors(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.palette.Map())
}
