package bootstrap

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/km-arc/go-bedrock/framework/capability"
	"github.com/km-arc/go-bedrock/framework/container"
	"github.com/km-arc/go-bedrock/framework/host"
)

// DefaultSecurityFilterName is the component RegisterSecurityFilterChain
// looks up.
const DefaultSecurityFilterName = "securityFilterChain"

// Host is the runtime the registrar forwards components to. *host.Environment
// implements it.
type Host interface {
	HealthChecks() *host.HealthRegistry
	Resources() *host.Resources
	Admin() *host.Admin
	Lifecycle() *host.Lifecycle
	Servlets() *host.Servlets
}

// Capability is a role a container component can play in the host.
type Capability int

const (
	HealthProbe Capability = iota
	ResourceProvider
	ContextProvider
	InjectableProvider
	BackgroundTask
	ManagedLifecycle
	GenericLifecycle
	SecurityFilterChain
)

func (c Capability) String() string {
	switch c {
	case HealthProbe:
		return "health check"
	case ResourceProvider:
		return "resource"
	case ContextProvider:
		return "provider"
	case InjectableProvider:
		return "injectable provider"
	case BackgroundTask:
		return "task"
	case ManagedLifecycle:
		return "managed object"
	case GenericLifecycle:
		return "lifecycle"
	case SecurityFilterChain:
		return "security filter chain"
	}
	return fmt.Sprintf("capability(%d)", int(c))
}

// ── Capability table ──────────────────────────────────────────────────────────

type discoverFunc func(c *container.Container) ([]container.Entry[any], error)

type sinkFunc func(h Host, name string, component any) error

type capabilityBinding struct {
	discover discoverFunc
	sink     sinkFunc
}

// capabilityBindings maps each discoverable capability to how its components
// are found and where they go. SecurityFilterChain is a named lookup and is
// handled separately.
var capabilityBindings = map[Capability]capabilityBinding{
	HealthProbe: {
		discover: byType[host.HealthCheck],
		sink: func(h Host, name string, component any) error {
			h.HealthChecks().Register(name, component.(host.HealthCheck))
			return nil
		},
	},
	ResourceProvider: {
		discover: byMarker(capability.Resource),
		sink:     registerResource,
	},
	ContextProvider: {
		discover: byMarker(capability.Provider),
		sink:     registerResource,
	},
	InjectableProvider: {
		discover: byType[host.InjectableProvider],
		sink:     registerResource,
	},
	BackgroundTask: {
		discover: byType[host.Task],
		sink: func(h Host, _ string, component any) error {
			return h.Admin().AddTask(component.(host.Task))
		},
	},
	ManagedLifecycle: {
		discover: byType[host.Managed],
		sink: func(h Host, _ string, component any) error {
			h.Lifecycle().Manage(component.(host.Managed))
			return nil
		},
	},
	GenericLifecycle: {
		discover: byType[host.LifeCycle],
		sink: func(h Host, _ string, component any) error {
			h.Lifecycle().ManageLifeCycle(component.(host.LifeCycle))
			return nil
		},
	},
}

// registrationOrder is the order RegisterAll walks the table in.
var registrationOrder = []Capability{
	HealthProbe,
	ResourceProvider,
	ContextProvider,
	InjectableProvider,
	BackgroundTask,
	ManagedLifecycle,
	GenericLifecycle,
}

func byType[T any](c *container.Container) ([]container.Entry[any], error) {
	found, err := container.FindByType[T](c)
	if err != nil {
		return nil, err
	}
	out := make([]container.Entry[any], len(found))
	for i, e := range found {
		out[i] = container.Entry[any]{Name: e.Name, Component: e.Component}
	}
	return out, nil
}

func byMarker(marker string) discoverFunc {
	return func(c *container.Container) ([]container.Entry[any], error) {
		return c.FindByMarker(marker)
	}
}

func registerResource(h Host, _ string, component any) error {
	return h.Resources().Register(component)
}

// ── Registrar ─────────────────────────────────────────────────────────────────

// Registrar forwards the components of a builder's container to the host.
// The first registration refreshes the container (its parent first); later
// ones reuse the refreshed container.
//
//	r := bootstrap.NewRegistrar(b, env, logger)
//	if err := r.RegisterAll(); err != nil { ... }
//	if err := r.RegisterSecurityFilterChain("/*"); err != nil { ... }
//
// A Registrar is driven from one goroutine during startup.
type Registrar struct {
	builder *Builder
	host    Host
	logger  *zap.Logger
}

// NewRegistrar returns a registrar over b's container. A nil logger is
// treated as zap.NewNop.
func NewRegistrar(b *Builder, h Host, logger *zap.Logger) *Registrar {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registrar{builder: b, host: h, logger: logger}
}

func (r *Registrar) RegisterHealthProbes() error        { return r.register(HealthProbe) }
func (r *Registrar) RegisterResources() error           { return r.register(ResourceProvider) }
func (r *Registrar) RegisterContextProviders() error    { return r.register(ContextProvider) }
func (r *Registrar) RegisterInjectableProviders() error { return r.register(InjectableProvider) }
func (r *Registrar) RegisterTasks() error               { return r.register(BackgroundTask) }
func (r *Registrar) RegisterManaged() error             { return r.register(ManagedLifecycle) }
func (r *Registrar) RegisterLifecycles() error          { return r.register(GenericLifecycle) }

// RegisterAll registers every discoverable capability, stopping at the first
// error.
func (r *Registrar) RegisterAll() error {
	for _, kind := range registrationOrder {
		if err := r.register(kind); err != nil {
			return err
		}
	}
	return nil
}

func (r *Registrar) register(kind Capability) error {
	c, err := r.refreshed()
	if err != nil {
		return err
	}
	binding := capabilityBindings[kind]
	entries, err := binding.discover(c)
	if err != nil {
		return fmt.Errorf("bootstrap: discovering %s components: %w", kind, err)
	}
	for _, e := range entries {
		r.logger.Info("registering "+kind.String(),
			zap.String("name", e.Name),
			zap.String("type", fmt.Sprintf("%T", e.Component)),
		)
		if err := binding.sink(r.host, e.Name, e.Component); err != nil {
			return fmt.Errorf("bootstrap: registering %s [%s]: %w", kind, e.Name, err)
		}
	}
	return nil
}

// RegisterSecurityFilterChain installs the DefaultSecurityFilterName
// component in front of urlPattern.
func (r *Registrar) RegisterSecurityFilterChain(urlPattern string) error {
	return r.RegisterSecurityFilterChainNamed(urlPattern, DefaultSecurityFilterName)
}

// RegisterSecurityFilterChainNamed looks up name as a host.Filter, wraps it
// in a delegating filter and maps it to urlPattern for request dispatch,
// after the filters already mapped.
func (r *Registrar) RegisterSecurityFilterChainNamed(urlPattern, name string) error {
	c, err := r.refreshed()
	if err != nil {
		return err
	}
	filter, err := container.Get[host.Filter](c, name)
	if err != nil {
		return fmt.Errorf("bootstrap: %s: %w", SecurityFilterChain, err)
	}
	r.logger.Info("registering "+SecurityFilterChain.String(),
		zap.String("name", name),
		zap.String("pattern", urlPattern),
	)
	r.host.Servlets().
		AddFilter(name, host.NewDelegatingFilter(name, filter)).
		AddMappingForURLPatterns(host.DispatchRequest, true, urlPattern)
	return nil
}

// refreshed returns the container, refreshing the parent and then the
// container itself the first time through.
func (r *Registrar) refreshed() (*container.Container, error) {
	c, ok := r.builder.Container()
	if !ok {
		return nil, ErrNoContainer
	}
	if c.IsActive() {
		return c, nil
	}
	if parent := c.Parent(); parent != nil && !parent.IsActive() {
		if err := parent.Refresh(); err != nil {
			return nil, fmt.Errorf("bootstrap: refresh parent: %w", err)
		}
	}
	if err := c.Refresh(); err != nil {
		return nil, fmt.Errorf("bootstrap: refresh: %w", err)
	}
	return c, nil
}
