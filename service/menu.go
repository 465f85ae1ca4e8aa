package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"shrimpy/menu"
	"shrimpy/metrics"
	"shrimpy/models"
	"shrimpy/storage"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// MsgRequiredFields 名称、价格、分类为必填
const MsgRequiredFields = "Please fill in name, price, and category."

// MenuStore 菜品持久化
type MenuStore interface {
	menu.Fetcher
	Get(ctx context.Context, id string) (*models.MenuItem, error)
	Create(ctx context.Context, item *models.MenuItem) error
	Update(ctx context.Context, item *models.MenuItem) error
	Delete(ctx context.Context, id string) error
}

// MenuItemInput 表单字段，价格保持文本以便区分空值
type MenuItemInput struct {
	Name        string `json:"name" form:"name"`
	Description string `json:"description" form:"description"`
	Price       string `json:"price" form:"price"`
	Category    string `json:"category" form:"category"`
}

// ImageUpload 随表单上传的图片
type ImageUpload struct {
	Filename string
	Reader   io.Reader
}

// MenuService 后台菜品增删改，写成功后刷新菜单查询
type MenuService struct {
	store     MenuStore
	bucket    storage.Bucket
	query     *menu.Query
	maxUpload int64
	now       func() time.Time
}

// NewMenuService 创建菜品服务
func NewMenuService(store MenuStore, bucket storage.Bucket, query *menu.Query, maxUploadBytes int64) *MenuService {
	return &MenuService{
		store:     store,
		bucket:    bucket,
		query:     query,
		maxUpload: maxUploadBytes,
		now:       time.Now,
	}
}

// Query 菜单查询
func (s *MenuService) Query() *menu.Query {
	return s.query
}

// List 当前菜单，复用查询缓存
func (s *MenuService) List(ctx context.Context) menu.Result {
	return s.query.Get(ctx)
}

// Create 新增菜品：先上传图片，再写入记录
// 图片上传成功但写入失败时图片会残留在桶中
func (s *MenuService) Create(ctx context.Context, in MenuItemInput, img *ImageUpload) (*models.MenuItem, error) {
	item, err := validateInput(in)
	if err != nil {
		return nil, err
	}

	if img != nil {
		url, err := s.uploadImage(ctx, img)
		if err != nil {
			return nil, err
		}
		item.ImageURL = url
	}

	err = s.store.Create(ctx, item)
	metrics.MenuWrites.WithLabelValues("create", metrics.Result(err)).Inc()
	if err != nil {
		return nil, fmt.Errorf("保存菜品失败: %w", err)
	}

	log.Info().Str("id", item.ID).Str("name", item.Name).Msg("菜品已新增")
	s.query.Invalidate(ctx)
	return item, nil
}

// Update 编辑菜品；未上传新图片时保留原图
func (s *MenuService) Update(ctx context.Context, id string, in MenuItemInput, img *ImageUpload) (*models.MenuItem, error) {
	item, err := validateInput(in)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("查询菜品失败: %w", err)
	}

	item.ID = existing.ID
	item.ImageURL = existing.ImageURL
	if img != nil {
		url, err := s.uploadImage(ctx, img)
		if err != nil {
			return nil, err
		}
		item.ImageURL = url
	}

	err = s.store.Update(ctx, item)
	metrics.MenuWrites.WithLabelValues("update", metrics.Result(err)).Inc()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("更新菜品失败: %w", err)
	}

	log.Info().Str("id", item.ID).Msg("菜品已更新")
	s.query.Invalidate(ctx)
	return item, nil
}

// Delete 永久删除菜品
func (s *MenuService) Delete(ctx context.Context, id string) error {
	err := s.store.Delete(ctx, id)
	metrics.MenuWrites.WithLabelValues("delete", metrics.Result(err)).Inc()
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("删除菜品失败: %w", err)
	}

	log.Info().Str("id", id).Msg("菜品已删除")
	s.query.Invalidate(ctx)
	return nil
}

func (s *MenuService) uploadImage(ctx context.Context, img *ImageUpload) (string, error) {
	r, contentType, err := storage.SniffImage(img.Reader, s.maxUpload)
	if err != nil {
		if errors.Is(err, storage.ErrNotImage) {
			return "", &ValidationError{Message: "Please choose an image file."}
		}
		return "", fmt.Errorf("读取图片失败: %w", err)
	}

	name := storage.ObjectName(s.now(), img.Filename, contentType)
	if err := s.bucket.Upload(ctx, name, r, contentType); err != nil {
		if errors.Is(err, storage.ErrTooLarge) {
			return "", &ValidationError{Message: fmt.Sprintf("Image must be smaller than %d MB.", s.maxUpload>>20)}
		}
		return "", fmt.Errorf("上传图片失败: %w", err)
	}
	metrics.ImageUploads.Inc()
	return s.bucket.PublicURL(name), nil
}

// validateInput 校验必填项，任何网络写操作之前执行
func validateInput(in MenuItemInput) (*models.MenuItem, error) {
	if strings.TrimSpace(in.Name) == "" || strings.TrimSpace(in.Price) == "" || strings.TrimSpace(in.Category) == "" {
		return nil, &ValidationError{Message: MsgRequiredFields}
	}
	price, err := models.ParsePrice(in.Price)
	if errors.Is(err, models.ErrPriceOutOfRange) {
		return nil, &ValidationError{Message: "Price must be below 100,000,000 with at most two decimal places."}
	}
	if err != nil {
		return nil, &ValidationError{Message: "Price must be a non-negative number."}
	}
	return &models.MenuItem{
		Name:        in.Name,
		Description: in.Description,
		Price:       price,
		Category:    in.Category,
	}, nil
}
