// Package environment holds the configuration view a container is refreshed
// against: an ordered chain of property sources and a set of active profiles.
//
// The most important source is PrefixedSource, which exposes a structured
// configuration value under a namespace:
//
//	src, err := environment.NewPrefixedSource("service-config", "dw.", cfg.Accessor())
//	env.PropertySources().InsertFirst(src)
//	env.Resolve("${dw.server.port}")
//
// Sources inserted with InsertFirst take priority over everything already in
// the chain. The OS environment is always present as the lowest-priority
// built-in source.
package environment
