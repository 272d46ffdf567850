package http

import (
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
)

// Request wraps *http.Request with helpers for reading task and resource
// parameters.
type Request struct {
	raw *http.Request
}

// NewRequest wraps a standard *http.Request.
func NewRequest(r *http.Request) *Request {
	return &Request{raw: r}
}

// Raw returns the underlying *http.Request.
func (req *Request) Raw() *http.Request { return req.raw }

// RouteParam returns a URL route parameter (chi).
func (req *Request) RouteParam(key string) string {
	return chi.URLParam(req.raw, key)
}

// Query returns a query-string value.
func (req *Request) Query(key string, fallback ...string) string {
	v := req.raw.URL.Query().Get(key)
	if v == "" && len(fallback) > 0 {
		return fallback[0]
	}
	return v
}

// Params returns query and form values merged, all values per key.
func (req *Request) Params() url.Values {
	_ = req.raw.ParseForm()
	out := make(url.Values, len(req.raw.Form))
	for k, v := range req.raw.Form {
		out[k] = append([]string(nil), v...)
	}
	return out
}

// Method returns the HTTP method.
func (req *Request) Method() string { return req.raw.Method }

// Path returns the URL path.
func (req *Request) Path() string { return req.raw.URL.Path }
