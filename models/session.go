package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Session 登录会话，ID 作为 JWT 的 jti 下发给客户端
type Session struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	UserID    uint      `json:"user_id" gorm:"index;not null"`
	ExpiresAt time.Time `json:"expires_at" gorm:"not null;index"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 设置表名
func (Session) TableName() string {
	return "sessions"
}

// BeforeCreate 分配会话 ID
func (s *Session) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// IsExpired 会话是否过期
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}
