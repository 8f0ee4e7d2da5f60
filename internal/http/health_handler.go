package http

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"
)

type healthChecker interface {
	Check(ctx context.Context) map[string]error
}

// HealthHandler reports the reachability of the durable store and the cache.
type HealthHandler struct {
	checker   healthChecker
	timeout   time.Duration
	responder responder
	logger    *slog.Logger
}

func NewHealthHandler(checker healthChecker, logger *slog.Logger) *HealthHandler {
	base := defaultLogger(logger)
	return &HealthHandler{checker: checker, timeout: 2 * time.Second, responder: newResponder(base), logger: base}
}

func (h *HealthHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.checker == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	results := h.checker.Check(ctx)
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(results))}
	status := http.StatusOK
	for _, name := range names {
		if err := results[name]; err != nil {
			handlerLogger(r.Context(), h.logger, "HealthHandler", "Healthz", "component", name).WarnContext(r.Context(), "health check failed", "error", err)
			resp.Checks[name] = "unavailable"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[name] = "ok"
	}
	h.responder.writeJSON(r.Context(), w, status, resp)
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
