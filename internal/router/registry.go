package router

import "github.com/gin-gonic/gin"

// Module is a feature that registers its routes on the group it is given.
type Module interface {
	Register(rg *gin.RouterGroup)
}

// Registry collects feature modules. API modules mount under /api, root modules at /.
type Registry struct {
	Engine      *gin.Engine
	API         *gin.RouterGroup
	modules     []Module
	rootModules []Module
}

func NewRegistry(engine *gin.Engine) *Registry {
	api := engine.Group("/api")
	return &Registry{Engine: engine, API: api}
}

func (r *Registry) Add(mod Module) {
	r.modules = append(r.modules, mod)
}

func (r *Registry) AddRoot(mod Module) {
	r.rootModules = append(r.rootModules, mod)
}

func (r *Registry) RegisterAll() {
	for _, m := range r.rootModules {
		m.Register(&r.Engine.RouterGroup)
	}
	for _, m := range r.modules {
		m.Register(r.API)
	}
}
