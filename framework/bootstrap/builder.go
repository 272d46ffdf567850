package bootstrap

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/km-arc/go-bedrock/framework/container"
	"github.com/km-arc/go-bedrock/framework/environment"
)

// PropertySourceName names the source added by RegisterPropertySource.
const PropertySourceName = "service-config"

// Builder owns the service's container. It either adopts one (SetContainer)
// or builds one (BuildContainer, BuildFromDescriptor); a builder holds at
// most one container for its whole life.
//
// Built containers get the builder's own parent container. Host singletons
// registered through the builder live in that parent, so they are visible to
// the child while it refreshes.
//
//	b := bootstrap.NewBuilder(catalog, logger)
//	if err := b.BuildFromDescriptor(desc); err != nil { ... }
//	if err := b.RegisterPropertySource("dw.", cfg.Accessor()); err != nil { ... }
//	if err := b.RegisterConfiguration("config", cfg); err != nil { ... }
type Builder struct {
	catalog *container.Catalog
	parent  *container.Container
	ctr     *container.Container
	logger  *zap.Logger
}

// NewBuilder returns a builder resolving class-based identifiers against
// catalog. A nil catalog is treated as empty and a nil logger as zap.NewNop.
func NewBuilder(catalog *container.Catalog, logger *zap.Logger) *Builder {
	if catalog == nil {
		catalog = container.NewCatalog()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Builder{
		catalog: catalog,
		parent:  container.New(),
		logger:  logger,
	}
}

// SetContainer adopts c. It fails with ErrAlreadyConfigured if the builder
// already has a container, whatever its identity.
func (b *Builder) SetContainer(c *container.Container) error {
	if b.ctr != nil {
		return ErrAlreadyConfigured
	}
	b.ctr = c
	return nil
}

// Container returns the builder's container, if one has been set.
func (b *Builder) Container() (*container.Container, bool) {
	return b.ctr, b.ctr != nil
}

// Parent is the builder-owned parent container.
func (b *Builder) Parent() *container.Container { return b.parent }

// BuildContainer constructs a container with strategy and adopts it.
// Location-based: locations are definition file patterns. Class-based:
// locations are catalog names, each of which must exist.
func (b *Builder) BuildContainer(strategy Strategy, locations ...string) error {
	if b.ctr != nil {
		return ErrAlreadyConfigured
	}
	c, err := b.construct(strategy, locations)
	if err != nil {
		return err
	}
	if strategy == ClassBased {
		for _, name := range locations {
			p, ok := b.catalog.Lookup(name)
			if !ok {
				return &ContainerConstructionError{Strategy: strategy, Err: fmt.Errorf("%w: configuration [%s]", container.ErrNotFound, name)}
			}
			c.Register(p)
		}
	}
	return b.SetContainer(c)
}

// BuildFromDescriptor constructs a container from d, activates d.Profiles and
// inserts d.PropertySources ahead of the built-in sources.
//
// For a class-based descriptor each location is first looked up as a single
// configuration provider; a name the catalog does not know is scanned as a
// namespace instead, registering every provider below it.
func (b *Builder) BuildFromDescriptor(d Descriptor) error {
	if b.ctr != nil {
		return ErrAlreadyConfigured
	}

	var (
		c   *container.Container
		err error
	)
	switch d.Strategy {
	case LocationBased:
		c, err = b.construct(d.Strategy, d.Locations)
	case ClassBased:
		c, err = b.construct(d.Strategy, nil)
		if err == nil {
			b.registerClasses(c, d.Locations)
		}
	default:
		return &UnknownStrategyError{Strategy: string(d.Strategy)}
	}
	if err != nil {
		return err
	}

	if len(d.Profiles) > 0 {
		c.SetActiveProfiles(d.Profiles...)
	}
	for _, src := range d.PropertySources {
		c.AddPropertySource(src)
	}
	return b.SetContainer(c)
}

func (b *Builder) registerClasses(c *container.Container, locations []string) {
	for _, name := range locations {
		if p, ok := b.catalog.Lookup(name); ok {
			b.logger.Debug("registering configuration", zap.String("name", name))
			c.Register(p)
			continue
		}
		found := b.catalog.Scan(name)
		b.logger.Debug("scanning configuration namespace", zap.String("namespace", name), zap.Int("found", len(found)))
		for _, p := range found {
			c.Register(p)
		}
	}
}

// construct builds an empty container for strategy, parented to the
// builder's own parent.
func (b *Builder) construct(strategy Strategy, locations []string) (*container.Container, error) {
	var (
		c   *container.Container
		err error
	)
	switch strategy {
	case LocationBased:
		c, err = container.NewFromLocations(b.catalog, locations...)
	case ClassBased:
		c = container.New()
		c.SetCatalog(b.catalog)
	default:
		return nil, &UnknownStrategyError{Strategy: string(strategy)}
	}
	if err != nil {
		return nil, &ContainerConstructionError{Strategy: strategy, Err: err}
	}
	if err := c.SetParent(b.parent); err != nil {
		return nil, &ContainerConstructionError{Strategy: strategy, Err: err}
	}
	return c, nil
}

// ── Property sources ──────────────────────────────────────────────────────────

// RegisterPropertySource exposes accessor under prefix as the highest
// priority property source. With prefix "dw." and an accessor that reads
// "server.port", definitions can reference ${dw.server.port}.
func (b *Builder) RegisterPropertySource(prefix string, accessor environment.Accessor) error {
	c, ok := b.Container()
	if !ok {
		return ErrNoContainer
	}
	if c.IsActive() {
		return ErrPropertySourceAfterRefresh
	}
	src, err := environment.NewPrefixedSource(PropertySourceName, prefix, accessor)
	if err != nil {
		return err
	}
	c.AddPropertySource(src)
	return nil
}

// ── Host singletons ───────────────────────────────────────────────────────────

// RegisterHostSingleton makes value available under name to the container
// during its refresh. The value goes into the builder-owned parent, which is
// refreshed first if needed; adopted containers whose parent the builder did
// not create fail with ErrForeignParent.
func (b *Builder) RegisterHostSingleton(name string, value any) error {
	c, ok := b.Container()
	if !ok {
		return ErrNoContainer
	}
	if c.Parent() != b.parent {
		return ErrForeignParent
	}
	if !b.parent.IsActive() {
		if err := b.parent.Refresh(); err != nil {
			return fmt.Errorf("bootstrap: refresh parent: %w", err)
		}
	}
	b.parent.Instance(name, value)
	return nil
}

// RegisterEnvironment registers the host runtime under name.
func (b *Builder) RegisterEnvironment(name string, env Host) error {
	return b.RegisterHostSingleton(name, env)
}

// RegisterConfiguration registers the loaded service configuration under
// name.
func (b *Builder) RegisterConfiguration(name string, cfg any) error {
	return b.RegisterHostSingleton(name, cfg)
}
