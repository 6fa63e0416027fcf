package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"resv-system/backend/internal/model"
	"resv-system/backend/pkg/jwt"
	"resv-system/backend/pkg/redis"
	"resv-system/backend/pkg/response"
)

// 注入 gin.Context 的认证信息键
const (
	CtxUsername = "username"
	CtxRole     = "role"
	CtxClaims   = "claims"
)

// JWTAuth JWT 认证中间件
// 从 Authorization: Bearer <token> 中提取并验证 Access Token
// rdb 为 nil 时跳过黑名单检查
func JWTAuth(jwtMgr *jwt.Manager, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, 10002, "缺少认证头")
			c.Abort()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, 10002, "认证头格式无效")
			c.Abort()
			return
		}

		claims, err := jwtMgr.ParseToken(parts[1])
		if err != nil {
			response.Unauthorized(c, 10002, "Token 无效或已过期")
			c.Abort()
			return
		}

		if claims.TokenType != jwt.TokenTypeAccess {
			response.Unauthorized(c, 10002, "Token 类型无效")
			c.Abort()
			return
		}

		// 已注销的 Token；Redis 出错时降级放行
		if revoked, err := rdb.IsBlacklisted(c.Request.Context(), claims.ID); err == nil && revoked {
			response.Unauthorized(c, 10002, "Token 已注销")
			c.Abort()
			return
		}

		// 将用户信息注入上下文
		c.Set(CtxUsername, claims.Username())
		c.Set(CtxRole, model.Role(claims.Role))
		c.Set(CtxClaims, claims)

		c.Next()
	}
}

// MinRole 角色下限中间件，角色有序比较
func MinRole(min model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, exists := c.Get(CtxRole)
		if !exists {
			response.Unauthorized(c, 10002, "未认证")
			c.Abort()
			return
		}

		role, ok := v.(model.Role)
		if !ok || !role.AtLeast(min) {
			response.Forbidden(c, 10003, "无权限访问")
			c.Abort()
			return
		}

		c.Next()
	}
}
