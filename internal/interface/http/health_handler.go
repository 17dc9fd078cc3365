package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Aciila/go-ddd-boilerplate/pkg/response"
)

// Pinger is anything the health check can probe.
type Pinger interface {
	Ping(ctx context.Context) error
}

type HealthHandler struct {
	AppName string
	Version string
	Checks  map[string]Pinger
	started time.Time
}

func NewHealthHandler(appName, version string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{AppName: appName, Version: version, Checks: checks, started: time.Now()}
}

func (h *HealthHandler) Root(c *gin.Context) {
	response.Success(c, http.StatusOK, gin.H{
		"name":    h.AppName,
		"version": h.Version,
		"docs":    "/docs",
	}, "ok", nil)
}

// Health reports 503 when any dependency fails its ping.
func (h *HealthHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	status := http.StatusOK
	checks := make(map[string]string, len(h.Checks))
	for name, p := range h.Checks {
		if err := p.Ping(ctx); err != nil {
			checks[name] = "down"
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "up"
	}

	data := gin.H{"checks": checks, "uptime": time.Since(h.started).Round(time.Second).String()}
	if status != http.StatusOK {
		response.Error[any](c, status, "unhealthy", data)
		return
	}
	response.Success(c, status, data, "healthy", nil)
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }
