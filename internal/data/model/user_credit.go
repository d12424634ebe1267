package model

import (
	"time"
)

// UserCredit 返利账本表
// 守恒约束: total_earned = used_credits + available_credits
type UserCredit struct {
	UserCreditID     string    `gorm:"primaryKey;type:varchar(36)"`
	UserID           string    `gorm:"uniqueIndex;type:varchar(36);not null"`
	TotalEarned      float64   `gorm:"type:decimal(10,2);default:0.00"`
	UsedCredits      float64   `gorm:"type:decimal(10,2);default:0.00"`
	AvailableCredits float64   `gorm:"type:decimal(10,2);default:0.00"`
	CreatedAt        time.Time `gorm:"autoCreateTime"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime"`
}

// TableName 指定表名
func (UserCredit) TableName() string {
	return "user_credit"
}
