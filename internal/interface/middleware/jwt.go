package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Aciila/go-ddd-boilerplate/pkg/helpers"
	"github.com/Aciila/go-ddd-boilerplate/pkg/response"
)

const CtxSubjectKey = "subject"

// BearerAuth validates "Authorization: Bearer <token>" and puts the token subject
// into the context. A nil manager disables the check.
func BearerAuth(jwt *helpers.JWTManager) gin.HandlerFunc {
	if jwt == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			response.Error[any](c, http.StatusUnauthorized, "missing bearer token", response.APIError{Code: response.CodeUnauthorized})
			return
		}
		claims, err := jwt.ParseAccessToken(strings.TrimSpace(token))
		if err != nil {
			response.Error[any](c, http.StatusUnauthorized, "invalid access token", response.APIError{Code: response.CodeUnauthorized})
			return
		}
		c.Set(CtxSubjectKey, claims.Subject)
		c.Next()
	}
}
