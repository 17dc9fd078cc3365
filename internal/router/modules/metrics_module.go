package modules

import (
	"github.com/gin-gonic/gin"

	"github.com/Aciila/go-ddd-boilerplate/internal/interface/middleware"
)

// MetricsModule exposes Prometheus metrics at /metrics.
type MetricsModule struct {
	Metrics *middleware.Metrics
	Limiter gin.HandlerFunc
}

func NewMetricsModule(m *middleware.Metrics, limiter gin.HandlerFunc) *MetricsModule {
	return &MetricsModule{Metrics: m, Limiter: limiter}
}

func (m *MetricsModule) Register(rg *gin.RouterGroup) {
	handlers := []gin.HandlerFunc{gin.WrapH(m.Metrics.Handler())}
	if m.Limiter != nil {
		handlers = append([]gin.HandlerFunc{m.Limiter}, handlers...)
	}
	rg.GET("/metrics", handlers...)
}
