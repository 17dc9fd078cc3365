package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/Aciila/go-ddd-boilerplate/internal/interface/http"
)

// UserModule wires the user directory routes.
// Reads: GET /users, GET /users/search, GET /users/:id
// Writes (behind Guard): POST /users, PATCH|DELETE /users/:id, POST /users/:id/activate|deactivate
type UserModule struct {
	Handler *handlers.UserHandler
	Guard   gin.HandlerFunc // bearer auth for writes; nil means open
	Limiter gin.HandlerFunc // applied to every route, after Guard on writes; nil means none
}

func NewUserModule(h *handlers.UserHandler, guard, limiter gin.HandlerFunc) *UserModule {
	return &UserModule{Handler: h, Guard: guard, Limiter: limiter}
}

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")

	reads := users.Group("")
	if m.Limiter != nil {
		reads.Use(m.Limiter)
	}
	reads.GET("", m.Handler.List)
	reads.GET("/search", m.Handler.Search)
	reads.GET("/:id", m.Handler.Get)

	writes := users.Group("")
	if m.Guard != nil {
		writes.Use(m.Guard)
	}
	if m.Limiter != nil {
		writes.Use(m.Limiter)
	}
	{
		writes.POST("", m.Handler.Create)
		writes.PATCH("/:id", m.Handler.Update)
		writes.DELETE("/:id", m.Handler.Delete)
		writes.POST("/:id/activate", m.Handler.Activate)
		writes.POST("/:id/deactivate", m.Handler.Deactivate)
	}
}
