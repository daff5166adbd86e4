package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"sudooom.im.roomgate/internal/jwt"
	appErrors "sudooom.im.roomgate/pkg/errors"
	"sudooom.im.roomgate/pkg/response"
)

const contextKeyUserID = "user_id"

// OptionalAuth JWT 认证中间件，允许匿名访问
// 没有 Authorization 头时按匿名处理；携带了无效 token 时直接拒绝
func OptionalAuth(jwtService *jwt.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.Next()
			return
		}

		token := extractToken(header)
		if token == "" {
			response.Unauthorized(c, appErrors.ErrTokenInvalid)
			c.Abort()
			return
		}

		claims, err := jwtService.ValidateAccessToken(token)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				response.Unauthorized(c, appErrors.ErrTokenExpired)
			} else {
				response.Unauthorized(c, appErrors.ErrTokenInvalid)
			}
			c.Abort()
			return
		}

		c.Set(contextKeyUserID, claims.UserID)
		c.Next()
	}
}

// extractToken 从 Authorization header 提取 token
func extractToken(authHeader string) string {
	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// GetUserID 从 context 获取 user_id，匿名请求返回空串
func GetUserID(c *gin.Context) string {
	return c.GetString(contextKeyUserID)
}
