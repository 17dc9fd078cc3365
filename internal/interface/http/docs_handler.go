package handlers

import (
	_ "embed"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"gopkg.in/yaml.v3"
)

//go:embed openapi.yaml
var openAPISpec []byte

const swaggerPage = `<!DOCTYPE html>
<html>
<head>
  <title>%s - API docs</title>
  <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5/swagger-ui.css">
</head>
<body>
  <div id="swagger-ui"></div>
  <script src="https://unpkg.com/swagger-ui-dist@5/swagger-ui-bundle.js"></script>
  <script>window.ui = SwaggerUIBundle({url: "/docs/openapi.json", dom_id: "#swagger-ui"});</script>
</body>
</html>`

type DocsHandler struct {
	AppName string

	once    sync.Once
	asJSON  map[string]any
	convErr error
}

func NewDocsHandler(appName string) *DocsHandler {
	return &DocsHandler{AppName: appName}
}

func (h *DocsHandler) UI(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(fmt.Sprintf(swaggerPage, h.AppName)))
}

func (h *DocsHandler) YAML(c *gin.Context) {
	c.Data(http.StatusOK, "application/yaml", openAPISpec)
}

// JSON serves the same document converted from the embedded YAML.
func (h *DocsHandler) JSON(c *gin.Context) {
	h.once.Do(func() {
		h.convErr = yaml.Unmarshal(openAPISpec, &h.asJSON)
	})
	if h.convErr != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "openapi document is invalid"})
		return
	}
	c.JSON(http.StatusOK, h.asJSON)
}
