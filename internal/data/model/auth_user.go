package model

import (
	"time"
)

// AuthUser 认证侧用户表（只读，新用户同步来源）
type AuthUser struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)"`
	Email     string    `gorm:"type:varchar(255)"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// TableName 指定表名
func (AuthUser) TableName() string {
	return "auth_user"
}
