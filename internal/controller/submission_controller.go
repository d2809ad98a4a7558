package controller

import (
	"focusmath_backend/internal/service"
	"focusmath_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type SubmissionController struct {
	SubmissionService *service.SubmissionService
}

func NewSubmissionController(submissionService *service.SubmissionService) *SubmissionController {
	return &SubmissionController{SubmissionService: submissionService}
}

// SubmitResult godoc
// @Summary 提交答题结果
// @Description 记录一次作答，更新该学科的正确率、响应时间、提示次数滑动平均以及难度、连续天数和代币
// @Tags 答题
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.SubmitResultRequest true "作答结果"
// @Success 200 {object} util.Response{data=service.SubmitResultResponse} "成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 401 {object} util.Response "未授权"
// @Failure 409 {object} util.Response "并发更新冲突，请重试"
// @Failure 500 {object} util.Response "存储错误"
// @Router /api/submit-result [post]
func (c *SubmissionController) SubmitResult(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	var req service.SubmitResultRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	resp, err := c.SubmissionService.Submit(ctx.Request.Context(), userID, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, resp)
}

// History godoc
// @Summary 答题记录
// @Description 按时间倒序返回当前用户的作答记录，可按学科或会话过滤，total 为符合条件的总数
// @Tags 答题
// @Produce  json
// @Security ApiKeyAuth
// @Param   subject query string false "学科"
// @Param   sessionId query string false "会话 ID"
// @Param   limit query int false "条数，默认 50"
// @Success 200 {object} util.Response{data=service.HistoryResponse} "成功"
// @Failure 400 {object} util.Response "学科无效"
// @Failure 401 {object} util.Response "未授权"
// @Router /api/history [get]
func (c *SubmissionController) History(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	history, err := c.SubmissionService.History(ctx.Request.Context(), userID, ctx.Query("subject"), ctx.Query("sessionId"), queryInt(ctx, "limit", 50))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, history)
}
