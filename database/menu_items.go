package database

import (
	"context"
	"errors"

	"shrimpy/models"

	"gorm.io/gorm"
)

// ErrRecordNotFound 记录不存在
var ErrRecordNotFound = gorm.ErrRecordNotFound

// MenuItemStore menu_items 表读写
type MenuItemStore struct {
	db *gorm.DB
}

// NewMenuItemStore 创建菜品存储
func NewMenuItemStore(db *gorm.DB) *MenuItemStore {
	return &MenuItemStore{db: db}
}

// ListMenuItems 全部菜品，按 created_at 升序，不分页
func (s *MenuItemStore) ListMenuItems(ctx context.Context) ([]models.MenuItem, error) {
	var items []models.MenuItem
	if err := s.db.WithContext(ctx).Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Get 按 ID 查询
func (s *MenuItemStore) Get(ctx context.Context, id string) (*models.MenuItem, error) {
	var item models.MenuItem
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// Create 插入菜品，ID 由模型钩子分配
func (s *MenuItemStore) Create(ctx context.Context, item *models.MenuItem) error {
	return s.db.WithContext(ctx).Create(item).Error
}

// Update 覆盖可编辑字段，记录不存在返回 ErrRecordNotFound
// MySQL 在值未变化时 RowsAffected 为 0，因此先查询存在性
func (s *MenuItemStore) Update(ctx context.Context, item *models.MenuItem) error {
	existing, err := s.Get(ctx, item.ID)
	if err != nil {
		return err
	}
	err = s.db.WithContext(ctx).Model(existing).
		Updates(map[string]interface{}{
			"name":        item.Name,
			"description": item.Description,
			"price":       item.Price,
			"category":    item.Category,
			"image_url":   item.ImageURL,
		}).Error
	if err != nil {
		return err
	}
	item.CreatedAt = existing.CreatedAt
	item.UpdatedAt = existing.UpdatedAt
	return nil
}

// Delete 永久删除
func (s *MenuItemStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.MenuItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// IsNotFound 判断是否为记录不存在
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
