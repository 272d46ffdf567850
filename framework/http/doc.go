// Package http provides the small request and response helpers the host
// runtime's admin endpoints and resources share.
//
//	res := gohttp.NewResponse(w)
//	res.Success(map[string]any{"healthy": true})
//	res.NotFound("no such task")
//
//	req := gohttp.NewRequest(r)
//	name := req.RouteParam("name")
//	params := req.Params()      // url.Values, query + form
package http
