// Package router wraps chi with route introspection and plain text error
// handlers.
package router

import (
	"net/http"
	"sort"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"

	"github.com/conduit-lang/sparqld/internal/web/middleware"
	"github.com/conduit-lang/sparqld/internal/web/response"
)

// Router manages HTTP routing using chi framework
type Router struct {
	mux chi.Router

	mu     sync.RWMutex
	routes []RouteInfo
}

// RouteInfo describes a registered route for introspection.
type RouteInfo struct {
	Method  string
	Pattern string
}

// NewRouter creates a router whose 404 and 405 responses are plain text.
func NewRouter() *Router {
	mux := chi.NewRouter()
	mux.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.RenderNotFound(w, "")
	})
	mux.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.RenderMethodNotAllowed(w, nil)
	})
	return &Router{mux: mux}
}

// ServeHTTP implements http.Handler interface
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// Use adds middleware. It must be called before any route is registered.
func (r *Router) Use(middlewares ...middleware.Middleware) {
	for _, m := range middlewares {
		r.mux.Use(m)
	}
}

// Method registers h for method and pattern.
func (r *Router) Method(method, pattern string, h http.Handler) {
	method = strings.ToUpper(method)
	r.mux.Method(method, pattern, h)

	r.mu.Lock()
	r.routes = append(r.routes, RouteInfo{Method: method, Pattern: pattern})
	r.mu.Unlock()
}

// Get registers a GET route
func (r *Router) Get(pattern string, handler http.HandlerFunc) {
	r.Method(http.MethodGet, pattern, handler)
}

// Post registers a POST route
func (r *Router) Post(pattern string, handler http.HandlerFunc) {
	r.Method(http.MethodPost, pattern, handler)
}

// Routes returns the registered routes ordered by pattern, then method.
func (r *Router) Routes() []RouteInfo {
	r.mu.RLock()
	out := make([]RouteInfo, len(r.routes))
	copy(out, r.routes)
	r.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Pattern != out[j].Pattern {
			return out[i].Pattern < out[j].Pattern
		}
		return out[i].Method < out[j].Method
	})
	return out
}

// HasRoute reports whether method and pattern are already registered.
func (r *Router) HasRoute(method, pattern string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, route := range r.routes {
		if route.Method == method && route.Pattern == pattern {
			return true
		}
	}
	return false
}
