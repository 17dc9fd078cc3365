package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"github.com/Aciila/go-ddd-boilerplate/pkg/response"
)

// ipFromCtx extracts the client IP from Gin context, falling back to "unknown"
func ipFromCtx(c *gin.Context) string {
	if ip := c.GetString("real_ip"); ip != "" {
		return ip
	}
	if ip := c.ClientIP(); ip != "" {
		return ip
	}
	return "unknown"
}

func normalizePath(c *gin.Context) string {
	if fp := c.FullPath(); fp != "" {
		return fp
	}
	return c.Request.URL.Path
}

// KeyFunc builds a rate-limit key from the request
// Example: combine client IP and route path for more granular limiting
type KeyFunc func(c *gin.Context) string

// KeyByIP returns a key function that limits by client IP only
func KeyByIP() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:ip:" + ipFromCtx(c)
	}
}

// KeyByIPAndPath returns a key function that limits by client IP and request path
func KeyByIPAndPath() KeyFunc {
	return func(c *gin.Context) string {
		return "rl:path:" + normalizePath(c) + ":ip:" + ipFromCtx(c)
	}
}

// KeyBySubject limits authenticated callers by token subject, anonymous ones by IP
func KeyBySubject() KeyFunc {
	return func(c *gin.Context) string {
		sub := c.GetString(CtxSubjectKey)
		if sub == "" {
			return "rl:sub:anon:ip:" + ipFromCtx(c)
		}
		return "rl:sub:" + sub
	}
}

// INCR the window counter, PEXPIRE on its first hit, and return {count, pttl}.
var incrExpireScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return {current, redis.call("PTTL", KEYS[1])}
`)

type AllowFunc func(*gin.Context) bool // return true for bypass limit

// RateLimit counts requests per key in fixed windows stored in Redis.
// It sets X-RateLimit-* headers, answers 429 over max, and fails open when Redis errors.
func RateLimit(rdb *redis.Client, max int, window time.Duration, keyFn KeyFunc, allow AllowFunc) gin.HandlerFunc {
	if rdb == nil || max <= 0 || window <= 0 || keyFn == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		if allow != nil && allow(c) {
			c.Next()
			return
		}
		if strings.EqualFold(c.Request.Method, http.MethodOptions) {
			c.Next()
			return
		}

		res, err := incrExpireScript.Run(c.Request.Context(), rdb, []string{keyFn(c)}, window.Milliseconds()).Result()
		if err != nil {
			c.Next()
			return
		}
		count, reset := windowState(res, window)
		resetSec := strconv.Itoa(int(reset.Round(time.Second) / time.Second))

		c.Header("X-RateLimit-Limit", strconv.Itoa(max))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining(max, count)))
		c.Header("X-RateLimit-Reset", resetSec)

		if count > max {
			c.Header("Retry-After", resetSec)
			response.Error[any](c, http.StatusTooManyRequests, "rate limit exceeded", response.APIError{Code: response.CodeRateLimited})
			return
		}
		c.Next()
	}
}

// windowState decodes the script reply. A key without a TTL reports the full window.
func windowState(res any, window time.Duration) (count int, reset time.Duration) {
	vals, ok := res.([]interface{})
	if !ok || len(vals) == 0 {
		return 0, window
	}
	count = toInt(vals[0])
	reset = window
	if len(vals) > 1 {
		if ms := toInt(vals[1]); ms > 0 {
			reset = time.Duration(ms) * time.Millisecond
		}
	}
	return count, reset
}

func remaining(max, count int) int {
	if count >= max {
		return 0
	}
	return max - count
}

func toInt(v interface{}) int {
	switch x := v.(type) {
	case int64:
		return int(x)
	case int:
		return x
	case string:
		i, _ := strconv.Atoi(x)
		return i
	}
	return 0
}
