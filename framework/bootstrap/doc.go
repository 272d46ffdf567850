// Package bootstrap connects a service's container to its host runtime.
//
// A Builder creates (or adopts) the container and prepares it: property
// sources, active profiles and host singletons all go in before refresh. A
// Registrar then refreshes the container once and hands every component
// that plays a host role to the matching sink:
//
//	HealthProbe          host.HealthCheck (by type)       → HealthChecks().Register
//	ResourceProvider     capability.Resource (by marker)  → Resources().Register
//	ContextProvider      capability.Provider (by marker)  → Resources().Register
//	InjectableProvider   host.InjectableProvider (type)   → Resources().Register
//	BackgroundTask       host.Task (by type)              → Admin().AddTask
//	ManagedLifecycle     host.Managed (by type)           → Lifecycle().Manage
//	GenericLifecycle     host.LifeCycle (by type)         → Lifecycle().ManageLifeCycle
//	SecurityFilterChain  named host.Filter                → Servlets().AddFilter
//
// Components are forwarded in name order. Every error is fatal to startup.
package bootstrap
