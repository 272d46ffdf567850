package environment

import (
	"errors"
	"os"
	"strings"
)

// ErrInvalidArgument is returned when a property source is constructed with a
// missing name, prefix or accessor.
var ErrInvalidArgument = errors.New("environment: invalid argument")

// ── PropertySource ───────────────────────────────────────────────────────────

// PropertySource is a named set of key → value pairs.
//
// Get returns (nil, false) for keys the source does not hold; that is never
// an error.
type PropertySource interface {
	Name() string
	Get(key string) (any, bool)
}

// MapSource is a PropertySource backed by a plain map.
type MapSource struct {
	name   string
	values map[string]any
}

// NewMapSource wraps values under name. The map is not copied.
func NewMapSource(name string, values map[string]any) *MapSource {
	if values == nil {
		values = map[string]any{}
	}
	return &MapSource{name: name, values: values}
}

func (s *MapSource) Name() string { return s.name }

func (s *MapSource) Get(key string) (any, bool) {
	v, ok := s.values[key]
	return v, ok
}

// SystemEnvironmentSource exposes the process environment. Lookups try the key
// as given and then its upper-snake form, so "app.port" also finds APP_PORT.
type SystemEnvironmentSource struct{}

// SystemEnvironmentSourceName is the name of the built-in OS environment source.
const SystemEnvironmentSourceName = "systemEnvironment"

func (SystemEnvironmentSource) Name() string { return SystemEnvironmentSourceName }

func (SystemEnvironmentSource) Get(key string) (any, bool) {
	if v, ok := os.LookupEnv(key); ok {
		return v, true
	}
	upper := strings.ToUpper(strings.NewReplacer(".", "_", "-", "_").Replace(key))
	if v, ok := os.LookupEnv(upper); ok {
		return v, true
	}
	return nil, false
}

// ── Prefixed accessor bridge ─────────────────────────────────────────────────

// Accessor reads named properties from some structured value, typically the
// service's parsed configuration.
type Accessor interface {
	IsReadable(name string) bool
	Read(name string) any
}

// PrefixedSource exposes an Accessor under a namespace prefix. With prefix
// "dw." and an accessor that can read "foo", the source answers "dw.foo".
type PrefixedSource struct {
	name     string
	prefix   string
	accessor Accessor
}

// NewPrefixedSource validates its arguments and returns the bridge.
func NewPrefixedSource(name, prefix string, accessor Accessor) (*PrefixedSource, error) {
	switch {
	case name == "":
		return nil, errors.Join(ErrInvalidArgument, errors.New("name may not be empty"))
	case prefix == "":
		return nil, errors.Join(ErrInvalidArgument, errors.New("prefix may not be empty"))
	case accessor == nil:
		return nil, errors.Join(ErrInvalidArgument, errors.New("accessor may not be nil"))
	}
	return &PrefixedSource{name: name, prefix: prefix, accessor: accessor}, nil
}

func (s *PrefixedSource) Name() string   { return s.name }
func (s *PrefixedSource) Prefix() string { return s.prefix }

// Get strips the prefix and asks the accessor. Keys outside the prefix and
// keys the accessor cannot currently read both report absent.
func (s *PrefixedSource) Get(key string) (any, bool) {
	property, ok := strings.CutPrefix(key, s.prefix)
	if !ok {
		return nil, false
	}
	if !s.accessor.IsReadable(property) {
		return nil, false
	}
	return s.accessor.Read(property), true
}
