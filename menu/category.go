// Package menu 负责菜单的读取路径：分类推导、分类筛选以及带缓存的菜单查询。
package menu

import (
	"shrimpy/models"
)

// DeriveCategories 按首次出现顺序返回去重后的分类
// 分类名精确匹配，不做大小写或空白归一化
func DeriveCategories(items []models.MenuItem) []string {
	seen := make(map[string]struct{}, len(items))
	categories := make([]string, 0)
	for _, item := range items {
		if _, ok := seen[item.Category]; ok {
			continue
		}
		seen[item.Category] = struct{}{}
		categories = append(categories, item.Category)
	}
	return categories
}

// Selection 分类筛选状态，零值为 All
type Selection struct {
	category string
	set      bool
}

// All 不筛选
var All = Selection{}

// Category 选中某一分类
func Category(name string) Selection {
	return Selection{category: name, set: true}
}

// ParseSelection 从查询参数解析，空值视为 All
func ParseSelection(v string) Selection {
	if v == "" {
		return All
	}
	return Category(v)
}

// IsAll 是否未选择分类
func (s Selection) IsAll() bool {
	return !s.set
}

// Name 选中的分类名，All 时为空
func (s Selection) Name() string {
	return s.category
}

// Matches 选项按钮是否处于激活状态
func (s Selection) Matches(category string) bool {
	return s.set && s.category == category
}

// Filter 返回匹配所选分类的菜品，保持原有顺序，不修改入参
func Filter(items []models.MenuItem, sel Selection) []models.MenuItem {
	if sel.IsAll() {
		return items
	}
	out := make([]models.MenuItem, 0, len(items))
	for _, item := range items {
		if item.Category == sel.category {
			out = append(out, item)
		}
	}
	return out
}
