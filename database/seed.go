package database

import (
	"context"
	_ "embed"
	"fmt"
	"time"

	"shrimpy/models"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
	"gorm.io/gorm"
)

//go:embed seed_menu.yaml
var defaultSeedYAML []byte

// SeedItem 种子文件中的一道菜
type SeedItem struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Price       string `yaml:"price"`
	Category    string `yaml:"category"`
	ImageURL    string `yaml:"image_url"`
}

// SeedFile 种子文件结构
type SeedFile struct {
	Items []SeedItem `yaml:"items"`
}

// ParseSeed 解析种子 YAML，data 为空时使用内置菜单
func ParseSeed(data []byte) ([]models.MenuItem, error) {
	if len(data) == 0 {
		data = defaultSeedYAML
	}
	var f SeedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("解析种子文件失败: %w", err)
	}

	items := make([]models.MenuItem, 0, len(f.Items))
	for i, s := range f.Items {
		if s.Name == "" || s.Category == "" || s.Price == "" {
			return nil, fmt.Errorf("第 %d 项缺少 name/price/category", i+1)
		}
		price, err := decimal.NewFromString(s.Price)
		if err != nil || price.IsNegative() {
			return nil, fmt.Errorf("第 %d 项价格无效: %q", i+1, s.Price)
		}
		items = append(items, models.MenuItem{
			Name:        s.Name,
			Description: s.Description,
			Price:       price,
			Category:    s.Category,
			ImageURL:    s.ImageURL,
		})
	}
	return items, nil
}

// SeedMenu 仅当 menu_items 为空（或 force）时写入种子菜品，返回写入数量
func SeedMenu(ctx context.Context, db *gorm.DB, items []models.MenuItem, force bool) (int, error) {
	if !force {
		var count int64
		if err := db.WithContext(ctx).Model(&models.MenuItem{}).Count(&count).Error; err != nil {
			return 0, err
		}
		if count > 0 {
			log.Info().Int64("existing", count).Msg("菜单已有数据，跳过种子写入")
			return 0, nil
		}
	}

	store := NewMenuItemStore(db)
	// 同一毫秒内插入的行 created_at 相同，排序不确定，因此按文件顺序显式递增
	base := time.Now().Truncate(time.Second).Add(-time.Duration(len(items)) * time.Second)
	for i := range items {
		items[i].CreatedAt = base.Add(time.Duration(i) * time.Second)
		items[i].UpdatedAt = items[i].CreatedAt
		if err := store.Create(ctx, &items[i]); err != nil {
			return i, fmt.Errorf("写入 %s 失败: %w", items[i].Name, err)
		}
	}
	return len(items), nil
}
