package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"shrimpy/menu"
	"shrimpy/models"
	"shrimpy/service"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// MenuManager 后台菜品管理
type MenuManager interface {
	List(ctx context.Context) menu.Result
	Create(ctx context.Context, in service.MenuItemInput, img *service.ImageUpload) (*models.MenuItem, error)
	Update(ctx context.Context, id string, in service.MenuItemInput, img *service.ImageUpload) (*models.MenuItem, error)
	Delete(ctx context.Context, id string) error
}

// AdminMenuHandler 后台菜品处理器
type AdminMenuHandler struct {
	menu MenuManager
	now  func() time.Time
}

// NewAdminMenuHandler 创建后台菜品处理器
func NewAdminMenuHandler(m MenuManager) *AdminMenuHandler {
	return &AdminMenuHandler{menu: m, now: time.Now}
}

// List 获取全部菜品
// @Summary 获取全部菜品
// @Tags 后台管理
// @Produce json
// @Success 200 {object} map[string]interface{} "获取成功"
// @Failure 401 {object} map[string]interface{} "未登录"
// @Failure 403 {object} map[string]interface{} "无管理员权限"
// @Failure 503 {object} map[string]interface{} "菜单加载失败"
// @Router /admin/api/menu-items [get]
func (h *AdminMenuHandler) List(c *gin.Context) {
	r := h.menu.List(c.Request.Context())
	if r.State != menu.Success {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": SafeErrorMessage(r.Err, "Failed to load the menu.")})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    r.Items,
		"total":   len(r.Items),
	})
}

// Create 新增菜品
// @Summary 新增菜品
// @Description 支持 multipart 表单（可附带 image 文件）或 JSON
// @Tags 后台管理
// @Accept multipart/form-data
// @Accept json
// @Produce json
// @Param name formData string true "名称"
// @Param description formData string false "描述"
// @Param price formData string true "价格"
// @Param category formData string true "分类"
// @Param image formData file false "图片"
// @Success 200 {object} map[string]interface{} "创建成功"
// @Failure 400 {object} map[string]interface{} "参数错误"
// @Failure 500 {object} map[string]interface{} "保存失败"
// @Router /admin/api/menu-items [post]
func (h *AdminMenuHandler) Create(c *gin.Context) {
	in, img, cleanup, ok := h.bindInput(c)
	if !ok {
		return
	}
	defer cleanup()

	item, err := h.menu.Create(c.Request.Context(), in, img)
	if err != nil {
		h.writeError(c, err, "Failed to save the item.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Item added.", "data": item})
}

// Update 编辑菜品
// @Summary 编辑菜品
// @Description 未上传新图片时保留原图
// @Tags 后台管理
// @Accept multipart/form-data
// @Accept json
// @Produce json
// @Param id path string true "菜品ID"
// @Param name formData string true "名称"
// @Param description formData string false "描述"
// @Param price formData string true "价格"
// @Param category formData string true "分类"
// @Param image formData file false "图片"
// @Success 200 {object} map[string]interface{} "更新成功"
// @Failure 400 {object} map[string]interface{} "参数错误"
// @Failure 404 {object} map[string]interface{} "菜品不存在"
// @Router /admin/api/menu-items/{id} [put]
func (h *AdminMenuHandler) Update(c *gin.Context) {
	in, img, cleanup, ok := h.bindInput(c)
	if !ok {
		return
	}
	defer cleanup()

	item, err := h.menu.Update(c.Request.Context(), c.Param("id"), in, img)
	if err != nil {
		h.writeError(c, err, "Failed to update the item.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Item updated.", "data": item})
}

// Delete 删除菜品
// @Summary 删除菜品
// @Tags 后台管理
// @Produce json
// @Param id path string true "菜品ID"
// @Success 200 {object} map[string]interface{} "删除成功"
// @Failure 404 {object} map[string]interface{} "菜品不存在"
// @Router /admin/api/menu-items/{id} [delete]
func (h *AdminMenuHandler) Delete(c *gin.Context) {
	if err := h.menu.Delete(c.Request.Context(), c.Param("id")); err != nil {
		h.writeError(c, err, "Failed to delete the item.")
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "message": "Item deleted."})
}

// Export 导出菜单
// @Summary 导出菜单 Excel
// @Tags 后台管理
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} file "Excel 文件"
// @Failure 503 {object} map[string]interface{} "菜单加载失败"
// @Router /admin/api/menu-items/export [get]
func (h *AdminMenuHandler) Export(c *gin.Context) {
	r := h.menu.List(c.Request.Context())
	if r.State != menu.Success {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": SafeErrorMessage(r.Err, "Failed to load the menu.")})
		return
	}

	filename := fmt.Sprintf("menu_%s.xlsx", h.now().Format("20060102_150405"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename="+filename)
	if err := service.WriteMenuWorkbook(c.Writer, r.Items); err != nil {
		log.Error().Err(err).Msg("导出菜单失败")
		c.Status(http.StatusInternalServerError)
	}
}

// bindInput 解析表单或 JSON，以及可选的图片文件
func (h *AdminMenuHandler) bindInput(c *gin.Context) (service.MenuItemInput, *service.ImageUpload, func(), bool) {
	var in service.MenuItemInput
	noop := func() {}

	if !strings.HasPrefix(c.ContentType(), "multipart/") {
		if err := c.ShouldBind(&in); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid request body."})
			return in, nil, noop, false
		}
		return in, nil, noop, true
	}

	in = service.MenuItemInput{
		Name:        c.PostForm("name"),
		Description: c.PostForm("description"),
		Price:       c.PostForm("price"),
		Category:    c.PostForm("category"),
	}

	fh, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return in, nil, noop, true
		}
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid upload."})
		return in, nil, noop, false
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "Invalid upload."})
		return in, nil, noop, false
	}
	return in, &service.ImageUpload{Filename: fh.Filename, Reader: f}, func() { _ = f.Close() }, true
}

func (h *AdminMenuHandler) writeError(c *gin.Context, err error, fallback string) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": ve.Message})
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Item not found."})
	default:
		log.Error().Err(err).Msg(fallback)
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "message": SafeErrorMessage(err, fallback)})
	}
}
