package controller

import (
	"errors"
	"focusmath_backend/internal/service"
	"focusmath_backend/internal/util"
	"net/http"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	AuthService *service.AuthService
}

func NewAuthController(authService *service.AuthService) *AuthController {
	return &AuthController{AuthService: authService}
}

// Register godoc
// @Summary 注册新用户
// @Description 注册学生账号
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body service.RegisterRequest true "用户注册信息"
// @Success 201 {object} util.Response{data=object} "创建成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 409 {object} util.Response "邮箱已被注册"
// @Failure 500 {object} util.Response "服务器内部错误"
// @Router /api/register [post]
func (c *AuthController) Register(ctx *gin.Context) {
	var req service.RegisterRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	user, err := c.AuthService.Register(ctx.Request.Context(), req)
	if err != nil {
		if errors.Is(err, util.ErrEmailRegistered) {
			util.Conflict(ctx, err.Error())
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Created(ctx, gin.H{"id": user.ID})
}

// Login godoc
// @Summary 用户登录
// @Description 验证用户身份并返回JWT令牌
// @Tags 认证
// @Accept  json
// @Produce  json
// @Param   body body service.LoginRequest true "用户登录凭据"
// @Success 200 {object} util.Response{data=object} "成功"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 401 {object} util.Response "未授权"
// @Router /api/login [post]
func (c *AuthController) Login(ctx *gin.Context) {
	var req service.LoginRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	token, user, err := c.AuthService.Login(ctx.Request.Context(), req)
	if err != nil {
		if errors.Is(err, util.ErrInvalidCredentials) {
			util.Error(ctx, http.StatusUnauthorized, err.Error())
		} else {
			util.LogInternalError(ctx, err)
		}
		return
	}

	util.Success(ctx, gin.H{"token": token, "user": user})
}

// GetProfile godoc
// @Summary 获取当前用户资料
// @Tags 认证
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=model.User} "Success"
// @Failure 401 {object} util.Response "Unauthorized"
// @Router /api/profile [get]
func (c *AuthController) GetProfile(ctx *gin.Context) {
	claims := util.GetUserFromContext(ctx)
	if claims == nil {
		util.Unauthorized(ctx)
		return
	}

	user, err := c.AuthService.Profile(ctx.Request.Context(), claims.UserID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, user)
}
