package controller

import (
	"focusmath_backend/internal/service"
	"focusmath_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type GameController struct {
	ProgressService *service.ProgressService
}

func NewGameController(progressService *service.ProgressService) *GameController {
	return &GameController{ProgressService: progressService}
}

// UpdateGameProgress godoc
// @Summary 更新关卡进度
// @Description 记录一次关卡尝试，保留最佳成绩并发放首次通关、满分、三星、章节完成奖励
// @Tags 游戏
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.GameProgressRequest true "关卡结果"
// @Success 200 {object} util.Response{data=service.GameProgressResponse} "成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 401 {object} util.Response "未授权"
// @Failure 404 {object} util.Response "游戏不存在"
// @Failure 500 {object} util.Response "存储错误"
// @Router /api/update-game-progress [post]
func (c *GameController) UpdateGameProgress(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req service.GameProgressRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	resp, err := c.ProgressService.UpdateGameProgress(ctx.Request.Context(), userID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, resp)
}

// ListGames godoc
// @Summary 游戏列表
// @Tags 游戏
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Game} "成功"
// @Router /api/games [get]
func (c *GameController) ListGames(ctx *gin.Context) {
	games, err := c.ProgressService.ListGames(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, games)
}
