package model

import (
	"time"
)

// ReferralCode 邀请码表
type ReferralCode struct {
	ReferralCodeID string     `gorm:"primaryKey;type:varchar(36)"`
	UserID         string     `gorm:"uniqueIndex;type:varchar(36);not null"`
	Code           string     `gorm:"uniqueIndex;type:varchar(16);not null"`
	IsActive       bool       `gorm:"default:true"`
	ExpiresAt      *time.Time `gorm:"index"`
	CreatedAt      time.Time  `gorm:"autoCreateTime"`
	UpdatedAt      time.Time  `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (ReferralCode) TableName() string {
	return "referral_code"
}
