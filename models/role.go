package models

import (
	"time"
)

// RoleAdmin 后台管理员角色
const RoleAdmin = "admin"

// UserRole 用户角色授予记录，存在即代表拥有该角色
type UserRole struct {
	UserID    uint      `json:"user_id" gorm:"primaryKey"`
	Role      string    `json:"role" gorm:"primaryKey;size:32"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName 设置表名
func (UserRole) TableName() string {
	return "user_roles"
}
