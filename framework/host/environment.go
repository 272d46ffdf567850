package host

import (
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Options tunes a host Environment.
type Options struct {
	// HealthTimeout bounds each health check. Zero means no bound.
	HealthTimeout time.Duration
	// LogRequests adds chi's request logger to the application router.
	LogRequests bool
	Logger      *zap.Logger
}

// Environment is the host runtime a service's components are registered
// into: health checks, resources, admin tasks, managed lifecycle objects and
// the request filter chain.
type Environment struct {
	name      string
	logger    *zap.Logger
	health    *HealthRegistry
	resources *Resources
	admin     *Admin
	lifecycle *Lifecycle
	servlets  *Servlets
}

// NewEnvironment builds an empty runtime. The admin scheduler is managed by
// the runtime's own lifecycle.
func NewEnvironment(name string, opts Options) *Environment {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("service", name))

	health := NewHealthRegistry(opts.HealthTimeout)
	env := &Environment{
		name:      name,
		logger:    logger,
		health:    health,
		resources: NewResources(opts.LogRequests, logger),
		admin:     NewAdmin(health, logger),
		lifecycle: NewLifecycle(logger),
		servlets:  NewServlets(),
	}
	env.lifecycle.Manage(env.admin)
	return env
}

func (e *Environment) Name() string                  { return e.name }
func (e *Environment) Logger() *zap.Logger           { return e.logger }
func (e *Environment) HealthChecks() *HealthRegistry { return e.health }
func (e *Environment) Resources() *Resources         { return e.resources }
func (e *Environment) Admin() *Admin                 { return e.admin }
func (e *Environment) Lifecycle() *Lifecycle         { return e.lifecycle }
func (e *Environment) Servlets() *Servlets           { return e.servlets }

// Handler is the application handler: the filter chain in front of the
// resource router.
func (e *Environment) Handler() http.Handler {
	return e.servlets.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		e.resources.Handler().ServeHTTP(w, r)
	}))
}

// AdminHandler serves the admin endpoints.
func (e *Environment) AdminHandler() http.Handler {
	return e.admin.Handler()
}
