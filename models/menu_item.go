package models

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

func init() {
	// 价格在 JSON 中输出为数字而非字符串
	decimal.MarshalJSONWithoutQuotes = true
}

// ErrInvalidPrice 价格不是合法的非负数
var ErrInvalidPrice = errors.New("price must be a non-negative number")

// ErrPriceOutOfRange 超出 DECIMAL(10,2) 可表示的范围
var ErrPriceOutOfRange = errors.New("price must be below 100000000 with at most two decimal places")

// maxPrice 价格上限（不含）
var maxPrice = decimal.New(1, 8)

// MenuItem 菜品
type MenuItem struct {
	ID          string          `json:"id" gorm:"primaryKey;size:36"`
	Name        string          `json:"name" gorm:"size:120;not null"`
	Description string          `json:"description" gorm:"type:text"`
	Price       decimal.Decimal `json:"price" gorm:"type:decimal(10,2);not null" swaggertype:"number" example:"24.9"`
	Category    string          `json:"category" gorm:"size:80;not null;index"`
	ImageURL    string          `json:"image_url" gorm:"size:512"` // 空字符串表示无图片
	CreatedAt   time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// TableName 设置表名
func (MenuItem) TableName() string {
	return "menu_items"
}

// BeforeCreate 创建时分配 UUID，之后不再变更
func (m *MenuItem) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// DisplayPrice 展示价格，固定两位小数，如 $24.90
func (m MenuItem) DisplayPrice() string {
	return "$" + m.Price.StringFixed(2)
}

// HasImage 是否有图片
func (m MenuItem) HasImage() bool {
	return m.ImageURL != ""
}

// ParsePrice 解析表单中的价格文本
func ParsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, ErrInvalidPrice
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidPrice
	}
	if !d.Equal(d.Round(2)) || d.GreaterThanOrEqual(maxPrice) {
		return decimal.Zero, ErrPriceOutOfRange
	}
	return d, nil
}
