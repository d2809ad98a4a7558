package controller

import (
	"focusmath_backend/internal/service"
	"focusmath_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type QuestionController struct {
	QuestionService *service.QuestionService
}

func NewQuestionController(questionService *service.QuestionService) *QuestionController {
	return &QuestionController{QuestionService: questionService}
}

// SeedQuestions godoc
// @Summary 生成题目
// @Description 调用文本生成模型按学科、主题和难度生成选择题并入库（管理员）
// @Tags 题库
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   body body service.SeedQuestionsRequest true "生成参数"
// @Success 201 {object} util.Response{data=[]model.Question} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 403 {object} util.Response "无权限"
// @Failure 502 {object} util.Response "模型输出无效"
// @Failure 503 {object} util.Response "未配置模型"
// @Router /api/questions/seed [post]
func (c *QuestionController) SeedQuestions(ctx *gin.Context) {
	var req service.SeedQuestionsRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	questions, err := c.QuestionService.SeedQuestions(ctx.Request.Context(), req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, questions)
}

// NextQuestions godoc
// @Summary 按当前难度取题
// @Tags 题库
// @Produce  json
// @Security ApiKeyAuth
// @Param   subject query string true "学科"
// @Param   limit query int false "条数，默认 10"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 400 {object} util.Response "学科无效"
// @Router /api/questions [get]
func (c *QuestionController) NextQuestions(ctx *gin.Context) {
	userID, ok := currentUserID(ctx)
	if !ok {
		return
	}

	questions, difficulty, err := c.QuestionService.NextQuestions(ctx.Request.Context(), userID, ctx.Query("subject"), queryInt(ctx, "limit", 10))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, gin.H{
		"difficulty": difficulty,
		"questions":  questions,
	})
}
