package container

import (
	"fmt"
	"reflect"
	"slices"
	"sync"

	"github.com/km-arc/go-bedrock/framework/environment"
)

// ── Binding types ─────────────────────────────────────────────────────────────

// Factory is a function that builds a concrete value from the container.
type Factory func(c *Container) any

// binding holds a registered factory and whether it is a singleton.
type binding struct {
	factory   Factory
	singleton bool
}

// extender wraps an already-resolved instance with decorator logic.
type extender func(instance any, c *Container) any

// ── State ─────────────────────────────────────────────────────────────────────

// State is the lifecycle position of a container. It only moves forward.
type State int

const (
	// Unconfigured is a freshly constructed container.
	Unconfigured State = iota
	// Configured has received bindings, providers, locations or settings.
	Configured
	// Refreshed has run its providers and instantiated its singletons.
	Refreshed
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case Configured:
		return "configured"
	case Refreshed:
		return "refreshed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ── Container ─────────────────────────────────────────────────────────────────

// Container is the IoC container holding a service's components.
//
// It supports:
//   - Bind / Singleton / Instance / Alias
//   - Make / Resolve / Get (generic)
//   - Tags, used as capability markers (see FindByMarker)
//   - Extend (decorate / wrap resolved instances)
//   - Contextual binding (when A needs B, give it C)
//   - A parent container consulted for names this one does not bind
//   - A one-shot Refresh that runs providers and location definitions
//
// Factories receive a view of the container: it shares all state with the
// container but carries its own stack of abstracts being built.
type Container struct {
	*shared

	// abstracts being resolved by this view, innermost last
	buildStack []string
}

// shared is the state a container and its factory views have in common.
type shared struct {
	mu sync.RWMutex

	// abstract → binding
	bindings map[string]*binding

	// abstract → resolved singleton instance
	instances map[string]any

	// alias → abstract (canonical key)
	aliases map[string]string

	// abstract → extender funcs
	extenders map[string][]extender

	// tag → []abstract
	tags map[string][]string

	// contextual: when[concrete][abstract] = factory
	contextual map[string]map[string]Factory

	// rebound callbacks: abstract → []func(any)
	reboundCallbacks map[string][]func(any)

	// resolved callbacks: []func(abstract, instance)
	afterResolving []func(string, any)

	state     State
	parent    *Container
	env       *environment.Environment
	catalog   *Catalog
	locations []string

	// providers queued before Refresh, and the registry that runs them
	pending   []ServiceProvider
	providers *ProviderRegistry
}

// New creates an empty, unconfigured container.
func New() *Container {
	c := &Container{shared: &shared{
		bindings:         make(map[string]*binding),
		instances:        make(map[string]any),
		aliases:          make(map[string]string),
		extenders:        make(map[string][]extender),
		tags:             make(map[string][]string),
		contextual:       make(map[string]map[string]Factory),
		reboundCallbacks: make(map[string][]func(any)),
		env:              environment.New(),
		catalog:          NewCatalog(),
	}}
	c.providers = NewProviderRegistry(c)
	// The container is bound to itself; that alone does not configure it.
	c.instances["container"] = c
	return c
}

// ── Lifecycle ─────────────────────────────────────────────────────────────────

// State returns the container's lifecycle state.
func (c *Container) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// IsActive reports whether the container has been refreshed.
func (c *Container) IsActive() bool { return c.State() == Refreshed }

// markConfigured must hold mu.Lock.
func (c *Container) markConfigured() {
	if c.state == Unconfigured {
		c.state = Configured
	}
}

// Parent returns the parent container, or nil.
func (c *Container) Parent() *Container {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.parent
}

// SetParent links a parent container. A container's parent can be set once.
func (c *Container) SetParent(parent *Container) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.parent != nil {
		return ErrParentAlreadySet
	}
	if parent != nil && parent.shared == c.shared {
		return fmt.Errorf("container: a container cannot be its own parent")
	}
	c.parent = parent
	return nil
}

// Environment returns the property sources and profiles used during Refresh.
func (c *Container) Environment() *environment.Environment { return c.env }

// SetActiveProfiles activates profiles on the container's environment.
func (c *Container) SetActiveProfiles(profiles ...string) {
	c.mu.Lock()
	c.markConfigured()
	c.mu.Unlock()
	c.env.SetActiveProfiles(profiles...)
}

// AddPropertySource inserts src ahead of every source already present.
func (c *Container) AddPropertySource(src environment.PropertySource) {
	c.mu.Lock()
	c.markConfigured()
	c.mu.Unlock()
	c.env.PropertySources().InsertFirst(src)
}

// SetCatalog replaces the catalog used to resolve definition kinds.
func (c *Container) SetCatalog(cat *Catalog) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.catalog = cat
}

// Register queues a provider. Before Refresh the provider only runs when the
// container is refreshed; afterwards it is registered and booted at once.
func (c *Container) Register(provider ServiceProvider) {
	c.mu.Lock()
	if c.state != Refreshed {
		c.markConfigured()
		c.pending = append(c.pending, provider)
		c.mu.Unlock()
		return
	}
	c.mu.Unlock()
	c.providers.Register(provider)
}

// Providers returns the eager providers that have run.
func (c *Container) Providers() []ServiceProvider { return c.providers.Providers() }

// ── Registration ──────────────────────────────────────────────────────────────

// Bind registers a transient (new instance each Make) factory.
//
//	c.Bind("orders.repository", func(c *container.Container) any {
//	    return &orders.Repository{DB: container.Resolve[*sql.DB](c, "db")}
//	})
func (c *Container) Bind(abstract string, factory Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bind(abstract, factory, false)
}

// Singleton registers a factory whose result is cached after first resolution.
//
//	c.Singleton("orders.health", func(c *container.Container) any {
//	    return sqlcheck.New(container.Resolve[*sql.DB](c, "db"))
//	})
func (c *Container) Singleton(abstract string, factory Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.bind(abstract, factory, true)
}

// Instance registers a pre-built value as a singleton. It is allowed after
// Refresh, which is how host singletons reach a refreshed parent.
//
//	c.Instance("config", cfg)
func (c *Container) Instance(abstract string, instance any) {
	c.mu.Lock()
	key := c.canonical(abstract)
	delete(c.bindings, key)
	c.instances[key] = instance
	c.markConfigured()
	c.mu.Unlock()
	c.fireRebound(abstract, instance)
}

// bind is the internal registration helper (must hold mu.Lock).
func (c *Container) bind(abstract string, factory Factory, singleton bool) {
	key := c.canonical(abstract)
	c.markConfigured()

	// Drop existing singleton instance so it's rebuilt with the new factory
	wasBound := c.instances[key] != nil
	delete(c.instances, key)

	c.bindings[key] = &binding{factory: factory, singleton: singleton}

	if wasBound {
		c.mu.Unlock()
		c.fireRebound(abstract, c.make(abstract))
		c.mu.Lock()
	}
}

// Alias registers an alternative name for an abstract.
//
//	c.Alias("config", "configuration")
func (c *Container) Alias(abstract, alias string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if abstract == alias {
		panic(fmt.Sprintf("container: [%s] is aliased to itself", abstract))
	}
	c.aliases[alias] = c.canonical(abstract)
}

// ── Contextual Binding ────────────────────────────────────────────────────────

// When starts a contextual binding chain.
//
//	c.When("orders.resource").Needs("clock").Give(func(c *container.Container) any {
//	    return fixedClock{}
//	})
func (c *Container) When(concrete string) *ContextualBuilder {
	return &ContextualBuilder{container: c, concrete: concrete}
}

// getContextual returns the contextual factory for (concrete, abstract), or nil.
func (c *Container) getContextual(concrete, abstract string) Factory {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if m, ok := c.contextual[concrete]; ok {
		if f, ok := m[abstract]; ok {
			return f
		}
	}
	return nil
}

// ── Extend ────────────────────────────────────────────────────────────────────

// Extend decorates the resolved instance of an abstract.
//
//	c.Extend("orders.repository", func(instance any, c *container.Container) any {
//	    return &cachingRepository{inner: instance.(*orders.Repository)}
//	})
func (c *Container) Extend(abstract string, fn extender) {
	c.mu.Lock()
	key := c.canonical(abstract)
	c.extenders[key] = append(c.extenders[key], fn)
	inst, resolved := c.instances[key]
	c.mu.Unlock()

	// An already-resolved singleton is decorated in place.
	if resolved {
		extended := fn(inst, c)
		c.mu.Lock()
		c.instances[key] = extended
		c.mu.Unlock()
		c.fireRebound(abstract, extended)
	}
}

// ── Tags ──────────────────────────────────────────────────────────────────────

// Tag associates multiple abstracts under a named group. Capability markers
// are tags:
//
//	c.Tag([]string{"orders.resource"}, capability.Resource)
func (c *Container) Tag(abstracts []string, tag string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.markConfigured()
	for _, abs := range abstracts {
		if !slices.Contains(c.tags[tag], abs) {
			c.tags[tag] = append(c.tags[tag], abs)
		}
	}
}

// ── Resolution ────────────────────────────────────────────────────────────────

// Make resolves an abstract from the container, falling back to the parent.
// It panics if nothing binds the abstract; use Get for an error instead.
func (c *Container) Make(abstract string) any {
	return c.make(abstract)
}

// make is the internal resolver (no outer lock: individual ops lock as needed).
func (c *Container) make(abstract string) any {
	c.mu.RLock()
	key := c.canonical(abstract)
	if inst, ok := c.instances[key]; ok {
		c.mu.RUnlock()
		return inst
	}
	c.mu.RUnlock()

	// Check contextual binding (look at current build stack top)
	if len(c.buildStack) > 0 {
		caller := c.buildStack[len(c.buildStack)-1]
		if f := c.getContextual(caller, abstract); f != nil {
			return c.runFactory(key, f, false)
		}
	}

	c.mu.RLock()
	b, ok := c.bindings[key]
	parent := c.parent
	c.mu.RUnlock()

	if !ok {
		if parent != nil && parent.Has(abstract) {
			return parent.make(abstract)
		}
		panic(fmt.Errorf("%w: [%s]", ErrNotFound, abstract))
	}

	return c.runFactory(key, b.factory, b.singleton)
}

// runFactory executes a factory, optionally caching the result.
func (c *Container) runFactory(key string, f Factory, singleton bool) any {
	view := &Container{shared: c.shared, buildStack: append(slices.Clone(c.buildStack), key)}
	instance := f(view)

	c.mu.RLock()
	exts := slices.Clone(c.extenders[key])
	c.mu.RUnlock()
	instance = applyExtenders(exts, instance, c)

	if singleton {
		c.mu.Lock()
		c.instances[key] = instance
		c.mu.Unlock()
	}

	c.fireAfterResolving(key, instance)
	return instance
}

func applyExtenders(exts []extender, instance any, c *Container) any {
	for _, ext := range exts {
		instance = ext(instance, c)
	}
	return instance
}

// safeMake resolves abstract and turns a panic into an error.
func (c *Container) safeMake(abstract string) (instance any, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			instance = nil
			if e, ok := rec.(error); ok {
				err = e
			} else {
				err = fmt.Errorf("container: panic resolving [%s]: %v", abstract, rec)
			}
		}
	}()
	return c.make(abstract), nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// Bound returns true if an abstract has been registered on this container.
func (c *Container) Bound(abstract string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key := c.canonical(abstract)
	_, hasBinding := c.bindings[key]
	_, hasInstance := c.instances[key]
	return hasBinding || hasInstance
}

// Has is like Bound but also consults the parent chain.
func (c *Container) Has(abstract string) bool {
	if c.Bound(abstract) {
		return true
	}
	if p := c.Parent(); p != nil {
		return p.Has(abstract)
	}
	return false
}

// Resolved returns true if the abstract has been resolved at least once.
func (c *Container) Resolved(abstract string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	key := c.canonical(abstract)
	_, ok := c.instances[key]
	return ok
}

// Bindings returns all registered abstract keys, sorted.
func (c *Container) Bindings() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.bindings)+len(c.instances))
	for k := range c.bindings {
		out = append(out, k)
	}
	for k := range c.instances {
		if _, already := c.bindings[k]; !already {
			out = append(out, k)
		}
	}
	slices.Sort(out)
	return out
}

// canonical resolves an alias to its canonical key.
func (c *Container) canonical(abstract string) string {
	if target, ok := c.aliases[abstract]; ok {
		return target
	}
	return abstract
}

// ── Callbacks ─────────────────────────────────────────────────────────────────

// Rebinding registers a callback to be called whenever an abstract is re-bound.
func (c *Container) Rebinding(abstract string, cb func(any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reboundCallbacks[abstract] = append(c.reboundCallbacks[abstract], cb)
}

// AfterResolving registers a callback fired after any abstract is resolved
// through a factory.
func (c *Container) AfterResolving(cb func(abstract string, instance any)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.afterResolving = append(c.afterResolving, cb)
}

func (c *Container) fireRebound(abstract string, instance any) {
	c.mu.RLock()
	cbs := c.reboundCallbacks[abstract]
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(instance)
	}
}

func (c *Container) fireAfterResolving(abstract string, instance any) {
	c.mu.RLock()
	cbs := c.afterResolving
	c.mu.RUnlock()
	for _, cb := range cbs {
		cb(abstract, instance)
	}
}

// ── Generics helpers ──────────────────────────────────────────────────────────

// Resolve calls Make and type-asserts the result, panicking on mismatch.
//
//	db := container.Resolve[*sql.DB](c, "db")
func Resolve[T any](c *Container, abstract string) T {
	instance := c.Make(abstract)
	typed, ok := instance.(T)
	if !ok {
		panic(fmt.Errorf("%w: Resolve[%T]: [%s] resolved to %T", ErrTypeMismatch, *new(T), abstract, instance))
	}
	return typed
}

// Get resolves abstract as T without panicking. It returns ErrNotFound when
// neither the container nor its parents bind the name, and ErrTypeMismatch
// when the component does not satisfy T.
func Get[T any](c *Container, abstract string) (T, error) {
	var zero T
	if !c.Has(abstract) {
		return zero, fmt.Errorf("%w: [%s]", ErrNotFound, abstract)
	}
	instance, err := c.safeMake(abstract)
	if err != nil {
		return zero, err
	}
	typed, ok := instance.(T)
	if !ok {
		return zero, fmt.Errorf("%w: [%s] is %T, want %s", ErrTypeMismatch, abstract, instance, reflect.TypeFor[T]())
	}
	return typed, nil
}
