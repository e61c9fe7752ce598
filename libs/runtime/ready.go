package runtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

// ReadyCheck is a named dependency check for /readyz. Optional dependencies are
// reported but do not fail readiness: bookings keep working without the slot
// cache or the broker because events stay in the outbox.
type ReadyCheck struct {
	Name     string
	Check    func(context.Context) error
	Optional bool
}

type readyReport struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

const checkTimeout = 2 * time.Second

func NewBaseMuxWithReady(checks ...ReadyCheck) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		report, ok := runChecks(r.Context(), checks)
		code := http.StatusOK
		if !ok {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(report)
	})
	return mux
}

// runChecks runs every check concurrently, each under its own timeout.
func runChecks(ctx context.Context, checks []ReadyCheck) (readyReport, bool) {
	report := readyReport{Status: "ready", Checks: map[string]string{}}
	var (
		mu       sync.Mutex
		wg       sync.WaitGroup
		failed   bool
		degraded bool
	)
	for _, check := range checks {
		if check.Check == nil {
			continue
		}
		name := check.Name
		if name == "" {
			name = "dependency"
		}
		wg.Add(1)
		go func(c ReadyCheck, name string) {
			defer wg.Done()
			cctx, cancel := context.WithTimeout(ctx, checkTimeout)
			err := c.Check(cctx)
			cancel()

			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				report.Checks[name] = "ok"
				return
			}
			report.Checks[name] = err.Error()
			if c.Optional {
				degraded = true
			} else {
				failed = true
			}
		}(check, name)
	}
	wg.Wait()

	switch {
	case failed:
		report.Status = "not_ready"
	case degraded:
		report.Status = "degraded"
	}
	return report, !failed
}
