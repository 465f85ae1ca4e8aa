package middleware

import (
	"net/http"
	"time"

	"shrimpy/config"

	"github.com/gin-gonic/gin"
)

// SessionCookie 会话 Cookie 名
const SessionCookie = "menu_session"

// cookieOptions 根据运行模式返回 Cookie 的安全选项
// release 模式下启用 Secure（仅 HTTPS 传输），SameSite=Lax 防止跨站 POST 携带 Cookie
func cookieOptions() (secure bool, sameSite http.SameSite) {
	if cfg := config.GlobalConfig; cfg != nil && cfg.IsRelease() {
		secure = true
	}
	return secure, http.SameSiteLaxMode
}

// SetSessionCookie 写入会话 Cookie
func SetSessionCookie(c *gin.Context, token string, expire time.Duration) {
	secure, sameSite := cookieOptions()
	c.SetSameSite(sameSite)
	c.SetCookie(SessionCookie, token, int(expire.Seconds()), "/", "", secure, true)
}

// ClearSessionCookie 清除会话 Cookie
func ClearSessionCookie(c *gin.Context) {
	secure, sameSite := cookieOptions()
	c.SetSameSite(sameSite)
	c.SetCookie(SessionCookie, "", -1, "/", "", secure, true)
}
