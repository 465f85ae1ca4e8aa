package middleware

import (
	"context"
	"errors"
	"net/http"

	"shrimpy/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

const sessionContextKey = "session"

// Mode 未通过校验时的响应方式
type Mode int

const (
	// JSONMode 返回 JSON 错误
	JSONMode Mode = iota
	// PageMode 重定向到登录页
	PageMode
	// APIMode 返回 /api/v1 的 code/message 结构
	APIMode
)

// LoginPath 后台登录页
const LoginPath = "/admin/login"

// SessionResolver 会话查询
type SessionResolver interface {
	Resolve(ctx context.Context, sessionID string) (*service.Session, error)
}

// LoadSession 解析请求中的会话并放入上下文，无会话时不拦截
func LoadSession(resolver SessionResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := TokenFromRequest(c)
		if token == "" {
			c.Next()
			return
		}

		claims, err := ParseToken(token)
		if err != nil {
			ClearSessionCookie(c)
			c.Next()
			return
		}

		session, err := resolver.Resolve(c.Request.Context(), claims.ID)
		if err != nil {
			if !errors.Is(err, service.ErrInvalidSession) {
				log.Error().Err(err).Msg("加载会话失败")
			}
			ClearSessionCookie(c)
			c.Next()
			return
		}

		c.Set(sessionContextKey, session)
		c.Next()
	}
}

// CurrentSession 当前请求的会话，未登录返回 nil
func CurrentSession(c *gin.Context) *service.Session {
	v, ok := c.Get(sessionContextKey)
	if !ok {
		return nil
	}
	s, _ := v.(*service.Session)
	return s
}

// RequireSession 要求已登录，需在 LoadSession 之后使用
func RequireSession(mode Mode) gin.HandlerFunc {
	return func(c *gin.Context) {
		if CurrentSession(c) != nil {
			c.Next()
			return
		}
		deny(c, mode, http.StatusUnauthorized, "Please sign in first.", "")
	}
}

func deny(c *gin.Context, mode Mode, status int, message, notice string) {
	if mode == PageMode {
		target := LoginPath
		if notice != "" {
			target += "?notice=" + notice
		}
		c.Redirect(http.StatusFound, target)
		c.Abort()
		return
	}
	if mode == APIMode {
		c.AbortWithStatusJSON(status, gin.H{"code": status, "message": message})
		return
	}
	c.JSON(status, gin.H{"success": false, "message": message})
	c.Abort()
}
