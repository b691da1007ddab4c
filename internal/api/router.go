// Package api serves the local HTTP surface UI clients use to talk to the
// daemon, and the client for it.
package api

import (
	"net/http"
	"strings"
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// router is a thin method-checking layer over http.ServeMux.
type router struct {
	mux         *http.ServeMux
	middlewares []Middleware
}

func newRouter() *router {
	return &router{mux: http.NewServeMux()}
}

// Use adds middleware, applied in the order it's added.
func (r *router) Use(middleware ...Middleware) {
	r.middlewares = append(r.middlewares, middleware...)
}

// Handle registers handler for method and path.
func (r *router) Handle(method, path string, handler http.Handler) {
	r.mux.Handle(path, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if !strings.EqualFold(req.Method, method) {
			w.Header().Set("Allow", method)
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		handler.ServeHTTP(w, req)
	}))
}

// ServeHTTP runs the middleware stack around the mux.
func (r *router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	var h http.Handler = r.mux
	for i := len(r.middlewares) - 1; i >= 0; i-- {
		h = r.middlewares[i](h)
	}
	h.ServeHTTP(w, req)
}
