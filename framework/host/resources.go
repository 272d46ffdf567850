package host

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	gohttp "github.com/km-arc/go-bedrock/framework/http"
	"github.com/km-arc/go-bedrock/framework/routing"
)

// ErrUnsupportedComponent is returned by Resources.Register for a value that
// is neither a Resource, a Provider nor an InjectableProvider.
var ErrUnsupportedComponent = errors.New("host: component is not a resource or provider")

// ErrPatternTaken is returned by Resources.Register when another resource
// already owns the pattern.
var ErrPatternTaken = errors.New("host: resource pattern already mounted")

// Resource owns a URL subtree.
//
//	func (r *OrdersResource) Pattern() string { return "/orders" }
//	func (r *OrdersResource) Routes(rt *routing.Router) {
//	    rt.Get("/", r.list)
//	    rt.Get("/{id}", r.show)
//	}
type Resource interface {
	Pattern() string
	Routes(r *routing.Router)
}

// Provider contributes request-processing behaviour to every resource, for
// example error mapping or content negotiation.
type Provider interface {
	Middleware(next http.Handler) http.Handler
}

// InjectableProvider computes a per-request value that resources read with
// Injected. Provide errors end the request with 500.
type InjectableProvider interface {
	Key() any
	Provide(r *http.Request) (any, error)
}

type injectedKey struct{ key any }

// Injected returns the value an InjectableProvider stored for key.
func Injected[T any](ctx context.Context, key any) (T, bool) {
	v, ok := ctx.Value(injectedKey{key}).(T)
	return v, ok
}

// Resources collects resources and providers and builds the application
// router from them.
type Resources struct {
	mu          sync.Mutex
	components  []any
	resources   []Resource
	middleware  []func(http.Handler) http.Handler
	handler     http.Handler
	logRequests bool
	logger      *zap.Logger
}

// NewResources returns an empty registry.
func NewResources(logRequests bool, logger *zap.Logger) *Resources {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resources{logRequests: logRequests, logger: logger}
}

// Register adds component under every role it satisfies. Components form a
// set: registering one that is already present changes nothing.
func (rs *Resources) Register(component any) error {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if slices.ContainsFunc(rs.components, func(c any) bool { return sameComponent(c, component) }) {
		return nil
	}

	injectable, isInjectable := component.(InjectableProvider)
	provider, isProvider := component.(Provider)
	resource, isResource := component.(Resource)
	if !isInjectable && !isProvider && !isResource {
		return fmt.Errorf("%w: %T", ErrUnsupportedComponent, component)
	}
	if isResource {
		pattern := mountPattern(resource.Pattern())
		for _, other := range rs.resources {
			if mountPattern(other.Pattern()) == pattern {
				return fmt.Errorf("%w: %q by %T", ErrPatternTaken, pattern, other)
			}
		}
	}

	if isInjectable {
		rs.middleware = append(rs.middleware, injectionMiddleware(injectable))
	}
	if isProvider {
		rs.middleware = append(rs.middleware, provider.Middleware)
	}
	if isResource {
		rs.resources = append(rs.resources, resource)
	}
	rs.components = append(rs.components, component)
	rs.handler = nil
	return nil
}

// Len returns the number of mounted resources.
func (rs *Resources) Len() int {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return len(rs.resources)
}

// Handler builds (once per change) the chi router with providers applied
// ahead of every resource.
func (rs *Resources) Handler() http.Handler {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	if rs.handler != nil {
		return rs.handler
	}

	r := routing.New()
	if rs.logRequests {
		r = routing.NewWithLogger()
	}
	r.Middleware(rs.middleware...)
	for _, res := range rs.resources {
		rs.logger.Debug("mounting resource", zap.String("pattern", res.Pattern()), zap.String("type", fmt.Sprintf("%T", res)))
		r.Prefix(res.Pattern(), res.Routes)
	}
	rs.handler = r
	return r
}

// mountPattern normalises a resource pattern the way chi mounts it.
func mountPattern(p string) string { return "/" + strings.Trim(p, "/") }

// sameComponent reports whether a and b are the same component: equal
// values, or the same reference for types that cannot be compared.
func sameComponent(a, b any) bool {
	va, vb := reflect.ValueOf(a), reflect.ValueOf(b)
	if !va.IsValid() || !vb.IsValid() || va.Type() != vb.Type() {
		return false
	}
	if va.Comparable() && vb.Comparable() {
		return va.Equal(vb)
	}
	switch va.Kind() {
	case reflect.Map, reflect.Slice, reflect.Func, reflect.Pointer, reflect.Chan, reflect.UnsafePointer:
		return va.Pointer() == vb.Pointer()
	}
	return false
}

func injectionMiddleware(p InjectableProvider) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			v, err := p.Provide(r)
			if err != nil {
				gohttp.NewResponse(w).ServerError(err.Error())
				return
			}
			ctx := context.WithValue(r.Context(), injectedKey{p.Key()}, v)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
