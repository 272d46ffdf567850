package bootstrap

import (
	"slices"

	"github.com/km-arc/go-bedrock/framework/config"
	"github.com/km-arc/go-bedrock/framework/environment"
)

// Strategy selects how a container is assembled.
type Strategy string

const (
	// LocationBased containers load component definitions from YAML files
	// matching glob patterns.
	LocationBased Strategy = "location"
	// ClassBased containers register configuration providers from the
	// builder's catalog, by exact name or by namespace scan.
	ClassBased Strategy = "class"
)

// DefaultLocation is the definition file pattern used when a descriptor names
// none.
const DefaultLocation = "META-INF/bedrock/*.yaml"

// ParseStrategy accepts "location" and "class" as well as the long forms
// "location-based" and "class-based".
func ParseStrategy(s string) (Strategy, error) {
	switch s {
	case "location", "location-based":
		return LocationBased, nil
	case "class", "class-based":
		return ClassBased, nil
	}
	return "", &UnknownStrategyError{Strategy: s}
}

// UnmarshalText lets a Strategy be decoded straight from YAML.
func (s *Strategy) UnmarshalText(text []byte) error {
	parsed, err := ParseStrategy(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

func (s Strategy) String() string { return string(s) + "-based" }

// Descriptor declares how to build and prepare a container.
//
//	context:
//	  strategy: class
//	  locations: [orders.Config, orders.handlers]
//	  profiles: [production]
type Descriptor struct {
	Strategy  Strategy `yaml:"strategy"`
	Locations []string `yaml:"locations"`
	Profiles  []string `yaml:"profiles"`

	// PropertySources are inserted first, in order, so later entries win.
	PropertySources []environment.PropertySource `yaml:"-"`
}

// DefaultDescriptor is location based over DefaultLocation with no profiles
// and no extra property sources.
func DefaultDescriptor() Descriptor {
	return Descriptor{
		Strategy:        LocationBased,
		Locations:       []string{DefaultLocation},
		Profiles:        []string{},
		PropertySources: []environment.PropertySource{},
	}
}

// DescriptorFromConfig starts from DefaultDescriptor and applies whatever the
// "context" section sets.
func DescriptorFromConfig(cfg config.ContextConfig) (Descriptor, error) {
	d := DefaultDescriptor()
	if cfg.Strategy != "" {
		s, err := ParseStrategy(cfg.Strategy)
		if err != nil {
			return Descriptor{}, err
		}
		d.Strategy = s
	}
	// the default location only makes sense for location-based containers
	if len(cfg.Locations) > 0 || d.Strategy == ClassBased {
		d.Locations = slices.Clone(cfg.Locations)
	}
	if len(cfg.Profiles) > 0 {
		d.Profiles = slices.Clone(cfg.Profiles)
	}
	return d, nil
}
