package environment

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrUnresolvablePlaceholder is returned by Resolve for a ${key} with no value
// and no default.
var ErrUnresolvablePlaceholder = errors.New("environment: unresolvable placeholder")

// ── Sources ──────────────────────────────────────────────────────────────────

// Sources is an ordered chain of property sources. Lookups walk the chain
// front to back, so the first source holding a key wins.
type Sources struct {
	chain []PropertySource
}

// InsertFirst puts src at the front of the chain, replacing any source with
// the same name.
func (s *Sources) InsertFirst(src PropertySource) {
	s.Remove(src.Name())
	s.chain = append([]PropertySource{src}, s.chain...)
}

// InsertLast appends src to the end of the chain, replacing any source with
// the same name.
func (s *Sources) InsertLast(src PropertySource) {
	s.Remove(src.Name())
	s.chain = append(s.chain, src)
}

// Remove drops the named source if present.
func (s *Sources) Remove(name string) {
	s.chain = slices.DeleteFunc(s.chain, func(p PropertySource) bool {
		return p.Name() == name
	})
}

// Get returns the first value found for key along the chain.
func (s *Sources) Get(key string) (any, bool) {
	for _, src := range s.chain {
		if v, ok := src.Get(key); ok {
			return v, true
		}
	}
	return nil, false
}

// Names lists the source names in priority order.
func (s *Sources) Names() []string {
	out := make([]string, len(s.chain))
	for i, src := range s.chain {
		out[i] = src.Name()
	}
	return out
}

func (s *Sources) Len() int { return len(s.chain) }

// ── Environment ──────────────────────────────────────────────────────────────

// Environment is the container's view of configuration: a chain of property
// sources plus the set of active profiles.
type Environment struct {
	sources  Sources
	profiles []string
}

// New returns an Environment whose only built-in source is the OS
// environment.
func New() *Environment {
	e := &Environment{}
	e.sources.InsertLast(SystemEnvironmentSource{})
	return e
}

// PropertySources exposes the mutable source chain.
func (e *Environment) PropertySources() *Sources { return &e.sources }

// SetActiveProfiles replaces the active profile set.
func (e *Environment) SetActiveProfiles(profiles ...string) {
	e.profiles = slices.Clone(profiles)
}

// ActiveProfiles returns a copy of the active profiles.
func (e *Environment) ActiveProfiles() []string { return slices.Clone(e.profiles) }

// AcceptsProfiles reports whether any of the given profiles is active.
// A profile written as "!name" matches when name is not active.
func (e *Environment) AcceptsProfiles(profiles ...string) bool {
	for _, p := range profiles {
		if neg, ok := strings.CutPrefix(p, "!"); ok {
			if !slices.Contains(e.profiles, neg) {
				return true
			}
			continue
		}
		if slices.Contains(e.profiles, p) {
			return true
		}
	}
	return false
}

// Property looks key up along the source chain.
func (e *Environment) Property(key string) (any, bool) {
	return e.sources.Get(key)
}

// String returns the property formatted as a string, or fallback.
func (e *Environment) String(key, fallback string) string {
	v, ok := e.sources.Get(key)
	if !ok || v == nil {
		return fallback
	}
	return fmt.Sprint(v)
}

// Resolve replaces every ${key} or ${key:default} in text. Placeholders are
// not resolved recursively.
//
//	env.Resolve("http://${app.host:localhost}:${app.port}")
func (e *Environment) Resolve(text string) (string, error) {
	var b strings.Builder
	rest := text
	for {
		start := strings.Index(rest, "${")
		if start < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end := strings.Index(rest[start:], "}")
		if end < 0 {
			b.WriteString(rest)
			return b.String(), nil
		}
		end += start

		b.WriteString(rest[:start])
		key, def, hasDefault := strings.Cut(rest[start+2:end], ":")
		switch v, ok := e.sources.Get(key); {
		case ok:
			b.WriteString(fmt.Sprint(v))
		case hasDefault:
			b.WriteString(def)
		default:
			return "", fmt.Errorf("%w: ${%s}", ErrUnresolvablePlaceholder, key)
		}
		rest = rest[end+1:]
	}
}
