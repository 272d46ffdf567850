package host

import (
	"context"
	"net/http"
	"path"
	"slices"
	"strings"
	"sync"
)

// DispatchType says how a request reached the filter chain. Values combine as
// a bit set.
type DispatchType uint8

const (
	DispatchRequest DispatchType = 1 << iota
	DispatchForward
	DispatchInclude
	DispatchError
	DispatchAsync
)

type dispatchKey struct{}

// WithDispatch marks ctx with the dispatch type; unmarked requests are
// DispatchRequest.
func WithDispatch(ctx context.Context, d DispatchType) context.Context {
	return context.WithValue(ctx, dispatchKey{}, d)
}

func dispatchOf(ctx context.Context) DispatchType {
	if d, ok := ctx.Value(dispatchKey{}).(DispatchType); ok {
		return d
	}
	return DispatchRequest
}

// Filter intercepts requests before they reach resources. It calls next to
// continue the chain, or writes a response itself to stop it.
type Filter interface {
	DoFilter(w http.ResponseWriter, r *http.Request, next http.Handler)
}

// FilterFunc adapts a function to Filter.
type FilterFunc func(w http.ResponseWriter, r *http.Request, next http.Handler)

func (f FilterFunc) DoFilter(w http.ResponseWriter, r *http.Request, next http.Handler) {
	f(w, r, next)
}

// DelegatingFilter forwards to a filter owned by the container, so the
// host's chain holds an adapter rather than the component itself.
type DelegatingFilter struct {
	target   string
	delegate Filter
}

// NewDelegatingFilter wraps delegate, remembering the component name.
func NewDelegatingFilter(target string, delegate Filter) *DelegatingFilter {
	return &DelegatingFilter{target: target, delegate: delegate}
}

func (d *DelegatingFilter) DoFilter(w http.ResponseWriter, r *http.Request, next http.Handler) {
	d.delegate.DoFilter(w, r, next)
}

// TargetName is the container name of the delegate.
func (d *DelegatingFilter) TargetName() string { return d.target }

// ── Servlets ─────────────────────────────────────────────────────────────────

// Servlets is the host's request filter chain.
type Servlets struct {
	mu       sync.RWMutex
	filters  map[string]*FilterRegistration
	mappings []*filterMapping
}

type filterMapping struct {
	reg      *FilterRegistration
	dispatch DispatchType
	patterns []string
}

// FilterRegistration is the handle returned by AddFilter.
type FilterRegistration struct {
	name     string
	filter   Filter
	servlets *Servlets
}

// NewServlets returns an empty filter chain.
func NewServlets() *Servlets {
	return &Servlets{filters: make(map[string]*FilterRegistration)}
}

// AddFilter registers filter under name. A filter is inert until it has a
// URL mapping. Re-adding a name replaces the earlier filter and drops its
// mappings.
func (s *Servlets) AddFilter(name string, filter Filter) *FilterRegistration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if old, ok := s.filters[name]; ok {
		s.mappings = slices.DeleteFunc(s.mappings, func(m *filterMapping) bool { return m.reg == old })
	}
	reg := &FilterRegistration{name: name, filter: filter, servlets: s}
	s.filters[name] = reg
	return reg
}

// Filter returns the registration for name.
func (s *Servlets) Filter(name string) (*FilterRegistration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	reg, ok := s.filters[name]
	return reg, ok
}

func (f *FilterRegistration) Name() string   { return f.name }
func (f *FilterRegistration) Filter() Filter { return f.filter }

// AddMappingForURLPatterns maps the filter to patterns for the given
// dispatch types. With isMatchAfter the mapping is placed after every
// existing mapping, otherwise before them.
//
// Patterns follow servlet rules: "/*" and "/api/*" match by prefix,
// "*.json" by extension, anything else exactly.
func (f *FilterRegistration) AddMappingForURLPatterns(dispatch DispatchType, isMatchAfter bool, patterns ...string) {
	s := f.servlets
	s.mu.Lock()
	defer s.mu.Unlock()
	m := &filterMapping{reg: f, dispatch: dispatch, patterns: patterns}
	if isMatchAfter {
		s.mappings = append(s.mappings, m)
		return
	}
	s.mappings = append([]*filterMapping{m}, s.mappings...)
}

// Wrap returns next behind every filter whose mapping matches the request.
func (s *Servlets) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		chain := make([]Filter, 0, len(s.mappings))
		for _, m := range s.mappings {
			if m.matches(r) {
				chain = append(chain, m.reg.filter)
			}
		}
		s.mu.RUnlock()

		h := next
		for i := len(chain) - 1; i >= 0; i-- {
			f, inner := chain[i], h
			h = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				f.DoFilter(w, r, inner)
			})
		}
		h.ServeHTTP(w, r)
	})
}

func (m *filterMapping) matches(r *http.Request) bool {
	if m.dispatch&dispatchOf(r.Context()) == 0 {
		return false
	}
	for _, p := range m.patterns {
		if matchURLPattern(p, r.URL.Path) {
			return true
		}
	}
	return false
}

func matchURLPattern(pattern, urlPath string) bool {
	switch {
	case pattern == "/*" || pattern == "/":
		return true
	case strings.HasSuffix(pattern, "/*"):
		base := strings.TrimSuffix(pattern, "/*")
		return urlPath == base || strings.HasPrefix(urlPath, base+"/")
	case strings.HasPrefix(pattern, "*."):
		return path.Ext(urlPath) == pattern[1:]
	default:
		return urlPath == pattern
	}
}
