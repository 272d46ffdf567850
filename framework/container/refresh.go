package container

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Initializer may be implemented by components that need work done after the
// container has built them. Refresh calls Initialize on every singleton.
type Initializer interface {
	Initialize() error
}

// ── Location definitions ──────────────────────────────────────────────────────

// definitionFile is one YAML file named by a configuration location.
//
//	components:
//	  - name: orders.health
//	    kind: sql.ping
//	    capabilities: [health]
//	    profiles: [production]
//	    properties:
//	      timeout: ${dw.database.timeout:2s}
type definitionFile struct {
	Components []definition `yaml:"components"`
}

type definition struct {
	Name         string            `yaml:"name"`
	Kind         string            `yaml:"kind"`
	Capabilities []string          `yaml:"capabilities"`
	Profiles     []string          `yaml:"profiles"`
	Aliases      []string          `yaml:"aliases"`
	Properties   map[string]string `yaml:"properties"`
}

// NewFromLocations returns a container that loads component definitions from
// the files matching patterns when it is refreshed. Patterns use
// filepath.Match syntax; a malformed pattern fails construction.
func NewFromLocations(catalog *Catalog, patterns ...string) (*Container, error) {
	for _, p := range patterns {
		if _, err := filepath.Match(p, ""); err != nil {
			return nil, fmt.Errorf("location %q: %w", p, err)
		}
	}
	c := New()
	if catalog != nil {
		c.catalog = catalog
	}
	c.locations = slices.Clone(patterns)
	if len(patterns) > 0 {
		c.state = Configured
	}
	return c, nil
}

// Locations returns the configured definition file patterns.
func (c *Container) Locations() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.locations)
}

func (c *Container) loadLocations() error {
	for _, pattern := range c.Locations() {
		files, err := filepath.Glob(pattern)
		if err != nil {
			return fmt.Errorf("location %q: %w", pattern, err)
		}
		if len(files) == 0 && !hasMeta(pattern) {
			return fmt.Errorf("location %q: %w", pattern, os.ErrNotExist)
		}
		slices.Sort(files)
		for _, file := range files {
			if err := c.loadDefinitionFile(file); err != nil {
				return err
			}
		}
	}
	return nil
}

func (c *Container) loadDefinitionFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var file definitionFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	for i, def := range file.Components {
		if def.Name == "" || def.Kind == "" {
			return fmt.Errorf("%w: %s component #%d needs a name and a kind", ErrBadDefinition, path, i)
		}
		if len(def.Profiles) > 0 && !c.env.AcceptsProfiles(def.Profiles...) {
			continue
		}
		factory, ok := c.catalog.kind(def.Kind)
		if !ok {
			return fmt.Errorf("%w: %s component [%s] has kind %q", ErrUnknownKind, path, def.Name, def.Kind)
		}
		props := make(Properties, len(def.Properties))
		for k, v := range def.Properties {
			resolved, err := c.env.Resolve(v)
			if err != nil {
				return fmt.Errorf("%s component [%s] property %q: %w", path, def.Name, k, err)
			}
			props[k] = resolved
		}

		name := def.Name
		c.Singleton(name, func(c *Container) any {
			inst, err := factory(c, props)
			if err != nil {
				panic(&RefreshError{Component: name, Err: err})
			}
			return inst
		})
		for _, alias := range def.Aliases {
			c.Alias(name, alias)
		}
		for _, capability := range def.Capabilities {
			c.Tag([]string{name}, capability)
		}
	}
	return nil
}

func hasMeta(pattern string) bool {
	return strings.ContainsAny(pattern, `*?[\`)
}

// ── Refresh ───────────────────────────────────────────────────────────────────

// Refresh finalizes the container: definition files are loaded, queued
// providers are registered and booted, every singleton is built, and
// Initializer components are initialized. A container refreshes once;
// calling Refresh again returns ErrAlreadyRefreshed.
//
// The parent is not refreshed here; callers that own a parent refresh it
// first.
func (c *Container) Refresh() error {
	c.mu.Lock()
	if c.state == Refreshed {
		c.mu.Unlock()
		return ErrAlreadyRefreshed
	}
	pending := c.pending
	c.pending = nil
	c.mu.Unlock()

	if err := c.loadLocations(); err != nil {
		return &RefreshError{Err: err}
	}

	if err := c.runProviders(pending); err != nil {
		return err
	}

	for _, name := range c.singletonNames() {
		if _, err := c.safeMake(name); err != nil {
			return asRefreshError(name, err)
		}
	}

	if err := c.initializeAll(); err != nil {
		return err
	}

	c.mu.Lock()
	c.state = Refreshed
	c.mu.Unlock()
	return nil
}

func (c *Container) runProviders(pending []ServiceProvider) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			if e, ok := rec.(error); ok {
				err = asRefreshError("", e)
				return
			}
			err = &RefreshError{Err: fmt.Errorf("provider panic: %v", rec)}
		}
	}()
	for _, p := range pending {
		c.providers.Register(p)
	}
	c.providers.Boot()
	return nil
}

func (c *Container) singletonNames() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	names := make([]string, 0, len(c.bindings))
	for name, b := range c.bindings {
		if b.singleton {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

func (c *Container) initializeAll() error {
	c.mu.RLock()
	names := make([]string, 0, len(c.instances))
	for name := range c.instances {
		names = append(names, name)
	}
	c.mu.RUnlock()
	slices.Sort(names)

	for _, name := range names {
		c.mu.RLock()
		inst := c.instances[name]
		c.mu.RUnlock()
		if init, ok := inst.(Initializer); ok {
			if err := init.Initialize(); err != nil {
				return &RefreshError{Component: name, Err: err}
			}
		}
	}
	return nil
}

func asRefreshError(name string, err error) error {
	var re *RefreshError
	if errors.As(err, &re) {
		return re
	}
	return &RefreshError{Component: name, Err: err}
}
