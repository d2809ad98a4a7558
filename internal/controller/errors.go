package controller

import (
	"errors"
	"focusmath_backend/internal/service"
	"focusmath_backend/internal/util"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// respondError 将业务错误映射为 HTTP 状态码，其余按存储错误原样返回
func respondError(ctx *gin.Context, err error) {
	switch {
	case errors.Is(err, util.ErrInvalidSubject):
		util.BadRequest(ctx, err.Error())
	case errors.Is(err, util.ErrGameNotFound),
		errors.Is(err, util.ErrPerformanceNotFound),
		errors.Is(err, util.ErrUserNotFound):
		util.Error(ctx, http.StatusNotFound, err.Error())
	case errors.Is(err, util.ErrConcurrentUpdate):
		util.Conflict(ctx, err.Error())
	case errors.Is(err, util.ErrAIUnavailable):
		util.Error(ctx, http.StatusServiceUnavailable, err.Error())
	case errors.Is(err, service.ErrAIRateLimited):
		util.Error(ctx, http.StatusTooManyRequests, err.Error())
	case errors.Is(err, util.ErrQuestionGeneration):
		util.Error(ctx, http.StatusBadGateway, err.Error())
	default:
		util.PersistenceError(ctx, err)
	}
}

func currentUserID(ctx *gin.Context) (uint, bool) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return 0, false
	}
	return claims.UserID, true
}

func queryInt(ctx *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(ctx.Query(key))
	if err != nil {
		return def
	}
	return v
}
