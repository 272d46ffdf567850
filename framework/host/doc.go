// Package host is the service runtime components are registered into.
//
// An Environment exposes one sink per kind of component:
//
//	env := host.NewEnvironment("orders", host.Options{Logger: logger})
//
//	env.HealthChecks().Register("db", sqlcheck.New(db))
//	env.Resources().Register(&OrdersResource{})        // Resource, Provider or InjectableProvider
//	env.Admin().AddTask(&ReindexTask{})                // POST /tasks/reindex
//	env.Lifecycle().Manage(queueConsumer)              // Start before serving, Stop after
//	env.Servlets().AddFilter("auth", authFilter).
//	    AddMappingForURLPatterns(host.DispatchRequest, true, "/*")
//
// Handler serves the application (filters, then resources); AdminHandler
// serves /healthcheck, /ping and /tasks.
package host
