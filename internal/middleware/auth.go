package middleware

import (
	"focusmath_backend/internal/config"
	"focusmath_backend/internal/model"
	"focusmath_backend/internal/util"
	"focusmath_backend/pkg/logger"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func AuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			tokenString = strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
		}

		if tokenString == "" {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		claims, err := util.ParseJWT(tokenString, cfg.JWT.Secret)
		if err != nil {
			logger.Log.Debug("jwt rejected",
				zap.String("path", c.FullPath()),
				zap.String("requestId", c.GetString(RequestIDKey)),
				zap.Error(err),
			)
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set(util.ContextUserKey, claims)
		c.Next()
	}
}

func RoleMiddleware(roles ...model.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := util.GetUserFromContext(c)
		if user == nil {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		hasRole := false
		for _, role := range roles {
			// 管理员拥有全部权限
			if user.Role == model.Admin || user.Role == role {
				hasRole = true
				break
			}
		}

		if !hasRole {
			util.Forbidden(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
