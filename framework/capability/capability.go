// Package capability names the markers components are tagged with so the
// bootstrap registrar can find them.
//
// Components that satisfy a host interface (health checks, tasks, managed
// objects) are discovered by type and need no marker. Resources and context
// providers are plain values with routes or middleware, so they are tagged:
//
//	app.Singleton("orders.resource", newOrdersResource)
//	app.Tag([]string{"orders.resource"}, capability.Resource)
//
// or, in a definition file:
//
//	components:
//	  - name: orders.resource
//	    kind: orders.resource
//	    capabilities: [resource]
package capability

const (
	// Resource marks a component registered as a request resource.
	Resource = "resource"
	// Provider marks a component registered as a context provider.
	Provider = "provider"
)
