package host

import (
	"context"
	"net/http"
	"slices"
	"sync"
	"time"

	gohttp "github.com/km-arc/go-bedrock/framework/http"
)

// HealthCheck is a probe the admin endpoint runs on demand. A nil error means
// healthy.
type HealthCheck interface {
	Check(ctx context.Context) error
}

// HealthCheckFunc adapts a function to HealthCheck.
type HealthCheckFunc func(ctx context.Context) error

func (f HealthCheckFunc) Check(ctx context.Context) error { return f(ctx) }

// HealthResult is the outcome of one check.
type HealthResult struct {
	Healthy bool   `json:"healthy"`
	Message string `json:"message,omitempty"`
}

// HealthRegistry holds the named health checks of a service.
type HealthRegistry struct {
	mu      sync.RWMutex
	checks  map[string]HealthCheck
	timeout time.Duration
}

// NewHealthRegistry returns an empty registry whose checks each get timeout.
func NewHealthRegistry(timeout time.Duration) *HealthRegistry {
	return &HealthRegistry{checks: make(map[string]HealthCheck), timeout: timeout}
}

// Register adds or replaces the check under name.
func (h *HealthRegistry) Register(name string, check HealthCheck) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// Unregister removes the named check.
func (h *HealthRegistry) Unregister(name string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.checks, name)
}

// Names lists registered checks, sorted.
func (h *HealthRegistry) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// RunAll runs every check sequentially and collects the results.
func (h *HealthRegistry) RunAll(ctx context.Context) map[string]HealthResult {
	h.mu.RLock()
	checks := make(map[string]HealthCheck, len(h.checks))
	for name, c := range h.checks {
		checks[name] = c
	}
	h.mu.RUnlock()

	results := make(map[string]HealthResult, len(checks))
	for name, check := range checks {
		results[name] = h.run(ctx, check)
	}
	return results
}

func (h *HealthRegistry) run(ctx context.Context, check HealthCheck) (res HealthResult) {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}
	defer func() {
		if rec := recover(); rec != nil {
			res = HealthResult{Message: "panic during check"}
		}
	}()
	if err := check.Check(ctx); err != nil {
		return HealthResult{Message: err.Error()}
	}
	return HealthResult{Healthy: true}
}

// ServeHTTP renders every result; the status is 500 if any check fails and
// 501 if no checks are registered.
func (h *HealthRegistry) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res := gohttp.NewResponse(w)
	results := h.RunAll(r.Context())
	if len(results) == 0 {
		res.Error(http.StatusNotImplemented, "No health checks registered.")
		return
	}
	status := http.StatusOK
	for _, result := range results {
		if !result.Healthy {
			status = http.StatusInternalServerError
			break
		}
	}
	res.JSON(status, results)
}
