package container

import "slices"

// Entry is a discovered component and the name it is registered under.
type Entry[T any] struct {
	Name      string
	Component T
}

// FindByMarker resolves every component tagged with marker, ordered by name.
// Only this container is searched, not its parent.
//
//	for _, e := range c.FindByMarker(capability.Resource) { ... }
func (c *Container) FindByMarker(marker string) ([]Entry[any], error) {
	c.mu.RLock()
	names := slices.Clone(c.tags[marker])
	c.mu.RUnlock()
	slices.Sort(names)

	out := make([]Entry[any], 0, len(names))
	for _, name := range names {
		inst, err := c.safeMake(name)
		if err != nil {
			return nil, err
		}
		out = append(out, Entry[any]{Name: name, Component: inst})
	}
	return out, nil
}

// FindByType resolves every singleton of this container whose value
// satisfies T, ordered by name. Transient bindings are skipped so discovery
// never builds throwaway instances.
//
//	checks, err := container.FindByType[host.HealthCheck](c)
func FindByType[T any](c *Container) ([]Entry[T], error) {
	c.mu.RLock()
	names := make([]string, 0, len(c.instances)+len(c.bindings))
	for name := range c.instances {
		names = append(names, name)
	}
	for name, b := range c.bindings {
		if _, done := c.instances[name]; b.singleton && !done {
			names = append(names, name)
		}
	}
	c.mu.RUnlock()
	slices.Sort(names)

	out := make([]Entry[T], 0)
	for _, name := range names {
		inst, err := c.safeMake(name)
		if err != nil {
			return nil, err
		}
		if self, ok := inst.(*Container); ok && self.shared == c.shared {
			continue
		}
		if typed, ok := inst.(T); ok {
			out = append(out, Entry[T]{Name: name, Component: typed})
		}
	}
	return out, nil
}
