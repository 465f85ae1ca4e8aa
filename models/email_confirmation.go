package models

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// EmailConfirmation 注册邮箱确认令牌
type EmailConfirmation struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	UserID     uint      `json:"user_id" gorm:"index;not null"`
	Email      string    `json:"email" gorm:"size:191;not null"`
	Token      string    `json:"-" gorm:"uniqueIndex;size:64;not null"`
	RedirectTo string    `json:"redirect_to" gorm:"size:512"` // 确认后跳转地址
	ExpiresAt  time.Time `json:"expires_at" gorm:"not null"`
	Used       bool      `json:"used" gorm:"default:false"`
	CreatedAt  time.Time `json:"created_at"`
}

// TableName 设置表名
func (EmailConfirmation) TableName() string {
	return "email_confirmations"
}

// GenerateToken 生成随机令牌
func GenerateToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}

// IsExpired 检查令牌是否过期
func (e *EmailConfirmation) IsExpired() bool {
	return time.Now().After(e.ExpiresAt)
}

// IsValid 检查令牌是否有效
func (e *EmailConfirmation) IsValid() bool {
	return !e.Used && !e.IsExpired()
}
