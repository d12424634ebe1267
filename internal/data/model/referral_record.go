package model

import (
	"time"
)

// ReferralRecord 推荐记录表
// referee_user_id 唯一索引保证一个被邀请人只能绑定一次
type ReferralRecord struct {
	ReferralRecordID string     `gorm:"primaryKey;type:varchar(36)"`
	ReferrerUserID   string     `gorm:"index;type:varchar(36);not null"`
	RefereeUserID    string     `gorm:"uniqueIndex;type:varchar(36);not null"`
	Code             string     `gorm:"type:varchar(16);not null"`
	Status           string     `gorm:"type:varchar(16);default:pending"`
	RewardAmount     float64    `gorm:"type:decimal(10,2);default:0.00"`
	CompletedAt      *time.Time `gorm:""`
	CreatedAt        time.Time  `gorm:"autoCreateTime"`
	UpdatedAt        time.Time  `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (ReferralRecord) TableName() string {
	return "referral_record"
}
