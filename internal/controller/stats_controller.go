package controller

import (
	"focusmath_backend/internal/service"
	"focusmath_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type StatsController struct {
	StatsService *service.StatsService
}

func NewStatsController(statsService *service.StatsService) *StatsController {
	return &StatsController{StatsService: statsService}
}

// GetStats godoc
// @Summary 学习统计
// @Description 当前用户各学科统计、奖励代币、关卡进度
// @Tags 统计
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=service.UserStats} "成功"
// @Router /api/stats [get]
func (c *StatsController) GetStats(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	stats, err := c.StatsService.GetUserStats(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}

// GetSubjectStats godoc
// @Summary 单学科统计
// @Tags 统计
// @Produce  json
// @Security ApiKeyAuth
// @Param   subject path string true "学科"
// @Success 200 {object} util.Response{data=service.SubjectStats} "成功"
// @Failure 400 {object} util.Response "学科无效"
// @Failure 404 {object} util.Response "暂无记录"
// @Router /api/stats/{subject} [get]
func (c *StatsController) GetSubjectStats(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	stats, err := c.StatsService.GetSubjectStats(ctx.Request.Context(), userID, ctx.Param("subject"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, stats)
}

// Leaderboard godoc
// @Summary 代币排行榜
// @Tags 统计
// @Produce  json
// @Security ApiKeyAuth
// @Param   limit query int false "条数，默认 10"
// @Success 200 {object} util.Response{data=[]repository.LeaderboardEntry} "成功"
// @Router /api/leaderboard [get]
func (c *StatsController) Leaderboard(ctx *gin.Context) {
	entries, err := c.StatsService.TopUsers(ctx.Request.Context(), queryInt(ctx, "limit", 10))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, entries)
}

// ListRewards godoc
// @Summary 奖励记录
// @Tags 统计
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.Reward} "成功"
// @Router /api/rewards [get]
func (c *StatsController) ListRewards(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	rewards, err := c.StatsService.ListRewards(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, rewards)
}
