package observability

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/render"
)

// readinessReport is the body of the readiness probe.
type readinessReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// liveness answers 200 while the process can serve HTTP.
func (s *Server) liveness(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// readiness runs every checker in parallel within the configured timeout.
// It answers 200 only if all of them pass, 503 otherwise.
func (s *Server) readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.Timeout)
	defer cancel()

	report := readinessReport{Status: "ready", Checks: make(map[string]string, len(s.checkers))}

	var (
		wg sync.WaitGroup
		mu sync.Mutex
	)
	for _, checker := range s.checkers {
		wg.Add(1)
		go func(c Checker) {
			defer wg.Done()
			err := c.Check(ctx)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				// Warn only: the orchestrator retries the probe.
				s.logger.Warn("health probe failed",
					slog.String("component", c.Name()),
					slog.Any("error", err),
				)
				report.Checks[c.Name()] = "down: " + err.Error()
				report.Status = "not_ready"
				return
			}
			report.Checks[c.Name()] = "up"
		}(checker)
	}
	wg.Wait()

	if report.Status != "ready" {
		render.Status(r, http.StatusServiceUnavailable)
	}
	render.JSON(w, r, report)
}
