// Package middleware 提供 HTTP 中间件
package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/jwt"
	"github.com/chensakkolmlbb2025/royal-elegance/internal/common/response"
)

// 上下文键
const (
	ContextKeyUserID = "user_id"
	ContextKeyRole   = "role"
	ContextKeyClaims = "claims"
)

// Auth 认证中间件，roles 为空时任何已登录角色均可访问
func Auth(manager *jwt.Manager, roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" {
			response.Unauthorized(c, "请先登录")
			c.Abort()
			return
		}

		claims, err := manager.ParseToken(token)
		if err != nil {
			if errors.Is(err, jwt.ErrTokenExpired) {
				response.Unauthorized(c, "登录已过期，请重新登录")
			} else {
				response.Unauthorized(c, "无效的令牌")
			}
			c.Abort()
			return
		}

		if len(roles) > 0 && !claims.HasRole(roles...) {
			response.Forbidden(c, "权限不足")
			c.Abort()
			return
		}

		c.Set(ContextKeyUserID, claims.UserID)
		c.Set(ContextKeyRole, claims.Role)
		c.Set(ContextKeyClaims, claims)

		c.Next()
	}
}

// OptionalAuth 可选认证中间件（不强制要求登录）
func OptionalAuth(manager *jwt.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token := extractToken(c); token != "" {
			if claims, err := manager.ParseToken(token); err == nil {
				c.Set(ContextKeyUserID, claims.UserID)
				c.Set(ContextKeyRole, claims.Role)
				c.Set(ContextKeyClaims, claims)
			}
		}
		c.Next()
	}
}

// StaffAuth 前台及管理员认证
func StaffAuth(manager *jwt.Manager) gin.HandlerFunc {
	return Auth(manager, jwt.RoleStaff, jwt.RoleAdmin)
}

// AdminAuth 管理员认证
func AdminAuth(manager *jwt.Manager) gin.HandlerFunc {
	return Auth(manager, jwt.RoleAdmin)
}

// extractToken 依次从 Authorization 头、查询参数、Cookie 中提取令牌
func extractToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	if token := c.Query("token"); token != "" {
		return token
	}

	token, _ := c.Cookie("token")
	return token
}

// GetUserID 从上下文获取用户 ID，未登录时返回空串
func GetUserID(c *gin.Context) string {
	return c.GetString(ContextKeyUserID)
}

// GetRole 从上下文获取角色
func GetRole(c *gin.Context) string {
	return c.GetString(ContextKeyRole)
}

// GetClaims 从上下文获取完整的 Claims
func GetClaims(c *gin.Context) *jwt.Claims {
	claims, exists := c.Get(ContextKeyClaims)
	if !exists {
		return nil
	}
	return claims.(*jwt.Claims)
}

// IsLoggedIn 判断是否已登录
func IsLoggedIn(c *gin.Context) bool {
	return GetUserID(c) != ""
}
