package models

import (
	"time"
)

const (
	// UserStatusPending 待确认邮箱：不可登录
	UserStatusPending = "pending"
	// UserStatusActive 正常：可登录
	UserStatusActive = "active"
)

// User 用户模型
type User struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Email     string    `json:"email" gorm:"uniqueIndex;size:191;not null"`
	Password  string    `json:"-" gorm:"size:255;not null"`
	Status    string    `json:"status" gorm:"size:20;default:pending;index"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName 设置表名
func (User) TableName() string {
	return "users"
}

// IsConfirmed 邮箱是否已确认
func (u *User) IsConfirmed() bool {
	return u.Status == UserStatusActive
}
