package container

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// KindFactory builds a component declared in a definition file. props holds
// the definition's properties with placeholders already resolved.
type KindFactory func(c *Container, props Properties) (any, error)

// Catalog names the configuration providers and definition kinds a container
// can be assembled from. Provider names are dotted, Go-package style
// ("orders.Config"); a namespace is every name below a dotted prefix.
type Catalog struct {
	providers map[string]ServiceProvider
	kinds     map[string]KindFactory
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{
		providers: make(map[string]ServiceProvider),
		kinds:     make(map[string]KindFactory),
	}
}

// Add names a configuration provider. It returns the catalog for chaining.
//
//	catalog.Add("orders.Config", &orders.Config{}).
//	    Add("orders.handlers.Routes", &handlers.Routes{})
func (cat *Catalog) Add(name string, provider ServiceProvider) *Catalog {
	if name == "" || provider == nil {
		panic("container: catalog entries need a name and a provider")
	}
	cat.providers[name] = provider
	return cat
}

// Kind names a factory usable from definition files.
func (cat *Catalog) Kind(name string, factory KindFactory) *Catalog {
	if name == "" || factory == nil {
		panic("container: catalog kinds need a name and a factory")
	}
	cat.kinds[name] = factory
	return cat
}

// Lookup returns the provider registered under exactly name.
func (cat *Catalog) Lookup(name string) (ServiceProvider, bool) {
	p, ok := cat.providers[name]
	return p, ok
}

// Scan returns every provider inside namespace, ordered by name.
func (cat *Catalog) Scan(namespace string) []ServiceProvider {
	prefix := strings.TrimSuffix(namespace, ".") + "."
	names := make([]string, 0)
	for name := range cat.providers {
		if strings.HasPrefix(name, prefix) {
			names = append(names, name)
		}
	}
	slices.Sort(names)

	out := make([]ServiceProvider, len(names))
	for i, name := range names {
		out[i] = cat.providers[name]
	}
	return out
}

func (cat *Catalog) kind(name string) (KindFactory, bool) {
	f, ok := cat.kinds[name]
	return f, ok
}

// ── Properties ────────────────────────────────────────────────────────────────

// Properties are the resolved string properties of a definition.
type Properties map[string]string

// String returns the property or fallback.
func (p Properties) String(key, fallback string) string {
	if v, ok := p[key]; ok {
		return v
	}
	return fallback
}

// Int parses the property as an int.
func (p Properties) Int(key string, fallback int) (int, error) {
	v, ok := p[key]
	if !ok {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("property %q: %w", key, err)
	}
	return i, nil
}

// Bool parses the property as a bool.
func (p Properties) Bool(key string, fallback bool) (bool, error) {
	v, ok := p[key]
	if !ok {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("property %q: %w", key, err)
	}
	return b, nil
}

// Duration parses the property with time.ParseDuration.
func (p Properties) Duration(key string, fallback time.Duration) (time.Duration, error) {
	v, ok := p[key]
	if !ok {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("property %q: %w", key, err)
	}
	return d, nil
}
