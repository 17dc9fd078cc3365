package middleware

import (
	"net"

	"github.com/gin-gonic/gin"
)

// AllowPrivateIP lets loopback and RFC 1918 callers bypass a limiter,
// e.g. an in-cluster Prometheus scraping /metrics.
func AllowPrivateIP() AllowFunc {
	return func(c *gin.Context) bool {
		ip := net.ParseIP(ipFromCtx(c))
		if ip == nil {
			return false
		}
		return ip.IsLoopback() || ip.IsPrivate()
	}
}

// AllowMethods bypasses the limiter for the given HTTP methods.
func AllowMethods(methods ...string) AllowFunc {
	set := make(map[string]struct{}, len(methods))
	for _, m := range methods {
		set[m] = struct{}{}
	}
	return func(c *gin.Context) bool {
		_, ok := set[c.Request.Method]
		return ok
	}
}
