package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RouteRegistrar attaches a set of routes to the versioned API group
type RouteRegistrar interface {
	RegisterRoutes(rg *gin.RouterGroup)
}

// Router collects route groups and mounts them under /api/<version>
type Router struct {
	engine     *gin.Engine
	apiVersion string
	registrars []RouteRegistrar
	middleware []gin.HandlerFunc
}

// RouterOption configures a Router
type RouterOption func(*Router)

// WithAPIVersion sets the version segment of the API prefix
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// NewRouter creates a Router mounting routes under /api/v1 by default
func NewRouter(engine *gin.Engine, opts ...RouterOption) *Router {
	r := &Router{engine: engine, apiVersion: "v1"}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register queues a registrar for Setup
func (r *Router) Register(registrar RouteRegistrar) *Router {
	r.registrars = append(r.registrars, registrar)
	return r
}

// Use adds middleware applied to every versioned API route
func (r *Router) Use(middleware ...gin.HandlerFunc) *Router {
	r.middleware = append(r.middleware, middleware...)
	return r
}

// Prefix returns the versioned API path prefix
func (r *Router) Prefix() string {
	return "/api/" + r.apiVersion
}

// Setup mounts every registered group on the engine
func (r *Router) Setup() {
	api := r.engine.Group(r.Prefix())
	if len(r.middleware) > 0 {
		api.Use(r.middleware...)
	}
	for _, registrar := range r.registrars {
		registrar.RegisterRoutes(api)
	}
}

// Route is one method and path of a resource group
type Route struct {
	Method   string
	Path     string
	handlers []gin.HandlerFunc
}

// ResourceGroup declares the routes of one resource under a shared prefix
type ResourceGroup struct {
	name       string
	prefix     string
	routes     []Route
	middleware []gin.HandlerFunc
}

// NewResourceGroup creates an empty group mounted at prefix
func NewResourceGroup(name, prefix string) *ResourceGroup {
	return &ResourceGroup{name: name, prefix: prefix}
}

// Name returns the group name
func (g *ResourceGroup) Name() string { return g.name }

// Prefix returns the path prefix relative to the API root
func (g *ResourceGroup) Prefix() string { return g.prefix }

// Routes returns the declared routes in declaration order
func (g *ResourceGroup) Routes() []Route {
	out := make([]Route, len(g.routes))
	copy(out, g.routes)
	return out
}

// Use adds middleware applied to this group only
func (g *ResourceGroup) Use(middleware ...gin.HandlerFunc) *ResourceGroup {
	g.middleware = append(g.middleware, middleware...)
	return g
}

// Handle declares a route
func (g *ResourceGroup) Handle(method, path string, handlers ...gin.HandlerFunc) *ResourceGroup {
	g.routes = append(g.routes, Route{Method: method, Path: path, handlers: handlers})
	return g
}

func (g *ResourceGroup) GET(path string, handlers ...gin.HandlerFunc) *ResourceGroup {
	return g.Handle(http.MethodGet, path, handlers...)
}

func (g *ResourceGroup) POST(path string, handlers ...gin.HandlerFunc) *ResourceGroup {
	return g.Handle(http.MethodPost, path, handlers...)
}

func (g *ResourceGroup) PUT(path string, handlers ...gin.HandlerFunc) *ResourceGroup {
	return g.Handle(http.MethodPut, path, handlers...)
}

func (g *ResourceGroup) PATCH(path string, handlers ...gin.HandlerFunc) *ResourceGroup {
	return g.Handle(http.MethodPatch, path, handlers...)
}

func (g *ResourceGroup) DELETE(path string, handlers ...gin.HandlerFunc) *ResourceGroup {
	return g.Handle(http.MethodDelete, path, handlers...)
}

// RegisterRoutes implements RouteRegistrar
func (g *ResourceGroup) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group(g.prefix, g.middleware...)
	for _, route := range g.routes {
		group.Handle(route.Method, route.Path, route.handlers...)
	}
}
