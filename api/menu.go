package api

import (
	"net/http"

	"shrimpy/menu"
	"shrimpy/models"

	"github.com/gin-gonic/gin"
)

// MenuHandler 公开菜单接口
type MenuHandler struct {
	query *menu.Query
}

// NewMenuHandler 创建公开菜单处理器
func NewMenuHandler(query *menu.Query) *MenuHandler {
	return &MenuHandler{query: query}
}

// MenuListResponse 菜单列表
type MenuListResponse struct {
	Category   string            `json:"category,omitempty"`
	Categories []string          `json:"categories"`
	Items      []models.MenuItem `json:"items"`
}

// List 获取菜单
// @Summary 获取菜单
// @Description 按创建时间升序返回全部菜品，可按分类精确筛选
// @Tags 菜单
// @Produce json
// @Param category query string false "分类（区分大小写），为空表示全部"
// @Success 200 {object} Response{data=MenuListResponse} "获取成功"
// @Failure 503 {object} Response "菜单加载失败"
// @Router /api/v1/menu-items [get]
func (h *MenuHandler) List(c *gin.Context) {
	r := h.query.Get(c.Request.Context())
	if r.State != menu.Success {
		Error(c, http.StatusServiceUnavailable, SafeErrorMessage(r.Err, "Failed to load the menu."))
		return
	}

	sel := menu.ParseSelection(c.Query("category"))
	Success(c, MenuListResponse{
		Category:   sel.Name(),
		Categories: menu.DeriveCategories(r.Items),
		Items:      menu.Filter(r.Items, sel),
	})
}

// Categories 获取分类
// @Summary 获取分类
// @Description 按首次出现顺序返回去重后的分类
// @Tags 菜单
// @Produce json
// @Success 200 {object} Response{data=[]string} "获取成功"
// @Failure 503 {object} Response "菜单加载失败"
// @Router /api/v1/categories [get]
func (h *MenuHandler) Categories(c *gin.Context) {
	r := h.query.Get(c.Request.Context())
	if r.State != menu.Success {
		Error(c, http.StatusServiceUnavailable, SafeErrorMessage(r.Err, "Failed to load the menu."))
		return
	}
	Success(c, menu.DeriveCategories(r.Items))
}
