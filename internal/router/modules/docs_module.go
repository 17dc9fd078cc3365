package modules

import (
	"github.com/gin-gonic/gin"

	handlers "github.com/Aciila/go-ddd-boilerplate/internal/interface/http"
)

type DocsModule struct {
	Handler *handlers.DocsHandler
}

func NewDocsModule(h *handlers.DocsHandler) *DocsModule { return &DocsModule{Handler: h} }

func (m *DocsModule) Register(rg *gin.RouterGroup) {
	rg.GET("/docs", m.Handler.UI)
	rg.GET("/docs/openapi.yaml", m.Handler.YAML)
	rg.GET("/docs/openapi.json", m.Handler.JSON)
}
