package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"

	"github.com/d60-Lab/social-timeline/pkg/response"
)

// Auth 校验 Bearer token 并把用户 ID 写入 context（key: user_id）
func Auth(secret string) gin.HandlerFunc {
	key := []byte(secret)
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			response.Unauthorized(c, "missing bearer token")
			c.Abort()
			return
		}
		token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), &jwt.RegisteredClaims{},
			func(t *jwt.Token) (interface{}, error) { return key, nil },
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid {
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}
		claims := token.Claims.(*jwt.RegisteredClaims)
		if claims.Subject == "" {
			response.Unauthorized(c, "invalid token")
			c.Abort()
			return
		}
		c.Set("user_id", claims.Subject)
		c.Next()
	}
}
