// Package container provides the IoC container a bedrock service keeps its
// components in, and the ServiceProvider system used to fill it.
//
// # Overview
//
// The container manages the instantiation and lifecycle of a service's
// components. It supports transient bindings, singletons, pre-built instances,
// aliases, tags, contextual bindings, and extension (decoration). Go has no
// runtime constructor reflection, so every component is built by an explicit
// factory function.
//
// # Container Lifecycle
//
//  1. Create: container.New() or container.NewFromLocations(catalog, "conf/*.yaml")
//  2. Configure: bindings, providers, property sources, profiles
//  3. Refresh: providers run, definition files load, singletons are built
//  4. Discover: FindByMarker / FindByType / Get
//
// State() reports Unconfigured, Configured or Refreshed and never moves
// backwards.
//
// # Bindings
//
//	c.Bind("Foo", func(c *container.Container) any { return &Foo{} })
//
//	c.Singleton("cache", func(c *container.Container) any {
//	    cfg := container.Resolve[*config.Config](c, "config")
//	    return cache.New(cfg)
//	})
//
//	c.Instance("config", cfg)
//	c.Alias("config", "configuration")
//
// # Resolving
//
//	raw := c.Make("cache")                               // panics if unbound
//	cache := container.Resolve[*Cache](c, "cache")       // panics on mismatch
//	cache, err := container.Get[*Cache](c, "cache")      // ErrNotFound / ErrTypeMismatch
//
// Names a container does not bind are looked up in its parent, so values
// placed in a parent are visible while the child refreshes.
//
// # Capabilities
//
// A capability is a tag. FindByMarker returns the components carrying a tag;
// FindByType returns the singletons whose value satisfies a Go type. Both
// order their results by component name.
//
//	c.Tag([]string{"orders.resource"}, "resource")
//	entries, err := c.FindByMarker("resource")
//	probes, err := container.FindByType[host.HealthCheck](c)
//
// # Definition files
//
// A location-based container reads YAML definition files on Refresh. Each
// definition names a kind from the Catalog; properties may use ${key} and
// ${key:default} placeholders resolved against the container's Environment.
//
//	components:
//	  - name: db.health
//	    kind: sql.ping
//	    capabilities: [health]
//	    properties:
//	      timeout: ${dw.database.pingTimeout:2s}
//
// # Service Providers
//
//	type AppServiceProvider struct{ container.BaseProvider }
//
//	func (p *AppServiceProvider) Register(app *container.Container) {
//	    app.Singleton("mailer", func(c *container.Container) any { ... })
//	}
//
//	catalog := container.NewCatalog().Add("app.Services", &AppServiceProvider{})
package container
