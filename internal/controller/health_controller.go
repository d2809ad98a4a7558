package controller

import (
	"context"
	"focusmath_backend/internal/util"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

type HealthController struct {
	DB    *gorm.DB
	Redis *redis.Client
}

func NewHealthController(db *gorm.DB, rdb *redis.Client) *HealthController {
	return &HealthController{DB: db, Redis: rdb}
}

// @Summary 健康检查
// @Description 检查服务状态
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	// 检查数据库连接
	sqlDB, err := c.DB.DB()
	if err != nil {
		util.InternalServerError(ctx)
		return
	}
	if err := sqlDB.PingContext(pingCtx); err != nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	components := gin.H{"database": "up"}
	if c.Redis != nil {
		// 排行榜降级不影响主流程
		if err := c.Redis.Ping(pingCtx).Err(); err != nil {
			components["redis"] = "down"
		} else {
			components["redis"] = "up"
		}
	}

	util.Success(ctx, gin.H{
		"status":     "ok",
		"components": components,
	})
}
