package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// MsgNoAdminAccess 无管理员角色时的提示
const MsgNoAdminAccess = "You don't have admin access."

// AdminChecker 管理员角色查询与强制登出
type AdminChecker interface {
	IsAdmin(ctx context.Context, userID uint) (bool, error)
	SignOut(ctx context.Context, sessionID string) error
}

// AdminOnly 后台权限校验，需在 LoadSession 之后使用
// 已登录但没有 admin 角色的会话会被强制登出
func AdminOnly(checker AdminChecker, mode Mode) gin.HandlerFunc {
	return func(c *gin.Context) {
		session := CurrentSession(c)
		if session == nil {
			deny(c, mode, http.StatusUnauthorized, "Please sign in first.", "")
			return
		}

		ok, err := checker.IsAdmin(c.Request.Context(), session.UserID)
		if err != nil {
			log.Error().Err(err).Uint("user_id", session.UserID).Msg("查询管理员角色失败")
			if mode == PageMode {
				c.String(http.StatusInternalServerError, "Failed to verify access.")
				c.Abort()
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": "Failed to verify access."})
			c.Abort()
			return
		}

		if !ok {
			if err := checker.SignOut(c.Request.Context(), session.ID); err != nil {
				log.Warn().Err(err).Str("session", session.ID).Msg("强制登出失败")
			}
			ClearSessionCookie(c)
			log.Info().Uint("user_id", session.UserID).Msg("非管理员访问后台，已强制登出")
			deny(c, mode, http.StatusForbidden, MsgNoAdminAccess, "no-admin")
			return
		}

		c.Next()
	}
}
