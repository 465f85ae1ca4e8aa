package api

import (
	"net/http"

	"shrimpy/config"
	"shrimpy/menu"
	"shrimpy/middleware"
	"shrimpy/models"

	"github.com/gin-gonic/gin"
)

// loginNotices 登录页提示，键为 ?notice= 参数
var loginNotices = map[string]string{
	"no-admin":  middleware.MsgNoAdminAccess,
	"confirmed": "Email confirmed, please sign in.",
}

// PageHandler 服务端渲染页面
type PageHandler struct {
	query       *menu.Query
	restaurant  config.RestaurantConfig
	minPassword int
}

// NewPageHandler 创建页面处理器
func NewPageHandler(query *menu.Query, cfg *config.Config) *PageHandler {
	return &PageHandler{
		query:       query,
		restaurant:  cfg.Restaurant,
		minPassword: cfg.Auth.MinPasswordLength,
	}
}

// IndexPage 公开菜单页数据
type IndexPage struct {
	Restaurant config.RestaurantConfig
	Categories []string
	Selection  menu.Selection
	Items      []models.MenuItem
	Failed     bool
}

// Index 公开菜单页
func (h *PageHandler) Index(c *gin.Context) {
	r := h.query.Get(c.Request.Context())
	page := IndexPage{
		Restaurant: h.restaurant,
		Selection:  menu.ParseSelection(c.Query("category")),
	}

	status := http.StatusOK
	if r.State != menu.Success {
		page.Failed = true
		status = http.StatusServiceUnavailable
	} else {
		page.Categories = menu.DeriveCategories(r.Items)
		page.Items = menu.Filter(r.Items, page.Selection)
	}
	c.HTML(status, "index.html", page)
}

// Login 登录/注册页，已登录时直接进入后台
func (h *PageHandler) Login(c *gin.Context) {
	if middleware.CurrentSession(c) != nil && c.Query("notice") == "" {
		c.Redirect(http.StatusFound, "/admin")
		return
	}
	c.HTML(http.StatusOK, "login.html", gin.H{
		"Restaurant":        h.restaurant,
		"Notice":            loginNotices[c.Query("notice")],
		"MinPasswordLength": h.minPassword,
	})
}

// Admin 后台页，需在 AdminOnly 之后使用
func (h *PageHandler) Admin(c *gin.Context) {
	r := h.query.Get(c.Request.Context())
	data := gin.H{
		"Restaurant": h.restaurant,
		"Email":      "",
		"Items":      r.Items,
		"Categories": menu.DeriveCategories(r.Items),
		"Failed":     r.State != menu.Success,
	}
	if s := middleware.CurrentSession(c); s != nil {
		data["Email"] = s.Email
	}
	c.HTML(http.StatusOK, "admin.html", data)
}
