package model

import (
	"time"
)

// RequestUsageQuota 请求配额表
type RequestUsageQuota struct {
	RequestUsageQuotaID string    `gorm:"primaryKey;type:varchar(36)"`
	UserID              string    `gorm:"uniqueIndex;type:varchar(36);not null"`
	MonthLimit          int       `gorm:"default:0"`
	UsedMonth           int       `gorm:"default:0"`
	CreatedAt           time.Time `gorm:"autoCreateTime"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (RequestUsageQuota) TableName() string {
	return "request_usage_quota"
}

// ReceiptUsageQuota 小票识别配额表
type ReceiptUsageQuota struct {
	ReceiptUsageQuotaID string    `gorm:"primaryKey;type:varchar(36)"`
	UserID              string    `gorm:"uniqueIndex;type:varchar(36);not null"`
	MonthLimit          int       `gorm:"default:0"`
	UsedMonth           int       `gorm:"default:0"`
	CreatedAt           time.Time `gorm:"autoCreateTime"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (ReceiptUsageQuota) TableName() string {
	return "receipt_usage_quota"
}
