package model

import (
	"time"
)

// UserLevel 用户订阅状态表
// email_hash 与渠道客户 ID 均为唯一索引：同一指纹/同一渠道客户
// 只能属于一个账号，并发绑定由数据库约束裁决。
// 三列可空，未绑定时存 NULL 而不是空串，避免空值互相冲突
type UserLevel struct {
	UserLevelID        string    `gorm:"primaryKey;type:varchar(36)"`
	UserID             string    `gorm:"uniqueIndex;type:varchar(36);not null"`
	Email              string    `gorm:"type:varchar(255)"`
	EmailHash          *string   `gorm:"uniqueIndex;type:varchar(64)"`
	SubscriptionStatus string    `gorm:"type:varchar(16);default:Free"`
	StripeCustomerID   *string   `gorm:"uniqueIndex;type:varchar(64)"`
	AppleCustomerID    *string   `gorm:"uniqueIndex;type:varchar(64)"`
	VirtualBox         string    `gorm:"type:varchar(255)"`
	CreatedAt          time.Time `gorm:"autoCreateTime"`
	UpdatedAt          time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (UserLevel) TableName() string {
	return "user_level"
}
