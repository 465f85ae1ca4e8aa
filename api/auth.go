package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"shrimpy/middleware"
	"shrimpy/models"
	"shrimpy/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// MsgSignUpSuccess 注册成功提示
const MsgSignUpSuccess = "Account created! Check your email to confirm the account."

// Authenticator 认证服务
type Authenticator interface {
	SignUp(ctx context.Context, email, password, redirectTo string) (*models.User, error)
	Confirm(ctx context.Context, token string) (string, error)
	SignIn(ctx context.Context, email, password string) (*service.Session, error)
	SignOut(ctx context.Context, sessionID string) error
	IsAdmin(ctx context.Context, userID uint) (bool, error)
}

// AuthHandler 认证处理器
type AuthHandler struct {
	auth Authenticator
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(auth Authenticator) *AuthHandler {
	return &AuthHandler{auth: auth}
}

// SignUpRequest 注册请求
type SignUpRequest struct {
	Email      string `json:"email" binding:"required" example:"chef@example.com"`
	Password   string `json:"password" binding:"required" example:"secret123"`
	RedirectTo string `json:"redirect_to" example:"/admin"`
}

// SignInRequest 登录请求
type SignInRequest struct {
	Email    string `json:"email" binding:"required" example:"chef@example.com"`
	Password string `json:"password" binding:"required" example:"secret123"`
}

// SignInResponse 登录响应
type SignInResponse struct {
	Token     string    `json:"token"`
	UserID    uint      `json:"user_id"`
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionResponse 当前会话
type SessionResponse struct {
	UserID    uint      `json:"user_id"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"is_admin"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SignUp 注册
// @Summary 注册账号
// @Description 创建待确认账号并发送确认邮件，确认后方可登录
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body SignUpRequest true "注册信息"
// @Success 200 {object} Response "注册成功"
// @Failure 400 {object} Response "参数错误或邮箱已注册"
// @Failure 500 {object} Response "服务器错误"
// @Router /api/v1/auth/sign-up [post]
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req SignUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Please enter your email and password.")
		return
	}

	_, err := h.auth.SignUp(c.Request.Context(), req.Email, req.Password, req.RedirectTo)
	if err != nil {
		var ve *service.ValidationError
		switch {
		case errors.As(err, &ve):
			BadRequest(c, ve.Message)
		case errors.Is(err, service.ErrEmailTaken):
			BadRequest(c, "An account with this email already exists.")
		default:
			log.Error().Err(err).Str("email", req.Email).Msg("注册失败")
			InternalError(c, SafeErrorMessage(err, "Sign up failed, please try again later."))
		}
		return
	}

	SuccessWithMessage(c, MsgSignUpSuccess, nil)
}

// SignIn 登录
// @Summary 登录
// @Description 邮箱密码登录，成功后写入 HttpOnly 会话 Cookie 并返回令牌
// @Tags 认证
// @Accept json
// @Produce json
// @Param request body SignInRequest true "登录信息"
// @Success 200 {object} Response{data=SignInResponse} "登录成功"
// @Failure 400 {object} Response "参数错误"
// @Failure 401 {object} Response "邮箱或密码错误"
// @Failure 403 {object} Response "邮箱未确认"
// @Failure 429 {object} map[string]interface{} "尝试次数过多"
// @Router /api/v1/auth/sign-in [post]
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req SignInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Please enter your email and password.")
		return
	}

	session, err := h.auth.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			Unauthorized(c, "Invalid email or password.")
		case errors.Is(err, service.ErrEmailNotConfirmed):
			Forbidden(c, "Email not confirmed.")
		default:
			log.Error().Err(err).Msg("登录失败")
			InternalError(c, SafeErrorMessage(err, "Sign in failed, please try again later."))
		}
		return
	}

	expire := time.Until(session.ExpiresAt)
	token, err := middleware.GenerateToken(session.ID, session.UserID, session.Email, expire)
	if err != nil {
		_ = h.auth.SignOut(c.Request.Context(), session.ID)
		InternalError(c, SafeErrorMessage(err, "Sign in failed, please try again later."))
		return
	}
	middleware.SetSessionCookie(c, token, expire)

	Success(c, SignInResponse{
		Token:     token,
		UserID:    session.UserID,
		Email:     session.Email,
		ExpiresAt: session.ExpiresAt,
	})
}

// SignOut 登出
// @Summary 登出
// @Description 删除当前会话并清除 Cookie，未登录时同样返回成功
// @Tags 认证
// @Produce json
// @Success 200 {object} Response "已登出"
// @Router /api/v1/auth/sign-out [post]
func (h *AuthHandler) SignOut(c *gin.Context) {
	if token := middleware.TokenFromRequest(c); token != "" {
		if claims, err := middleware.ParseToken(token); err == nil {
			if err := h.auth.SignOut(c.Request.Context(), claims.ID); err != nil {
				log.Warn().Err(err).Msg("删除会话失败")
			}
		}
	}
	middleware.ClearSessionCookie(c)
	SuccessWithMessage(c, "Signed out.", nil)
}

// Session 当前会话，路由需挂载 RequireSession
// @Summary 当前会话
// @Tags 认证
// @Produce json
// @Security BearerAuth
// @Success 200 {object} Response{data=SessionResponse} "获取成功"
// @Failure 401 {object} Response "未登录"
// @Router /api/v1/auth/session [get]
func (h *AuthHandler) Session(c *gin.Context) {
	session := middleware.CurrentSession(c)
	isAdmin, err := h.auth.IsAdmin(c.Request.Context(), session.UserID)
	if err != nil {
		log.Error().Err(err).Uint("user_id", session.UserID).Msg("查询管理员角色失败")
		InternalError(c, SafeErrorMessage(err, "Failed to verify access."))
		return
	}

	Success(c, SessionResponse{
		UserID:    session.UserID,
		Email:     session.Email,
		IsAdmin:   isAdmin,
		ExpiresAt: session.ExpiresAt,
	})
}

// Confirm 邮箱确认
// @Summary 确认邮箱
// @Description 激活账号并跳转到注册时指定的地址
// @Tags 认证
// @Param token query string true "确认令牌"
// @Success 302 "跳转"
// @Failure 400 {object} Response "令牌无效或已过期"
// @Router /api/v1/auth/confirm [get]
func (h *AuthHandler) Confirm(c *gin.Context) {
	redirect, err := h.auth.Confirm(c.Request.Context(), c.Query("token"))
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			BadRequest(c, "This confirmation link is invalid or has expired.")
			return
		}
		log.Error().Err(err).Msg("邮箱确认失败")
		InternalError(c, SafeErrorMessage(err, "Failed to confirm the account."))
		return
	}
	c.Redirect(http.StatusFound, redirect)
}
