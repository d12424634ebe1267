package model

import (
	"time"
)

// CreditTransaction 返利流水表（追加写，不更新）
// balance_before/balance_after 构成同一用户的余额链，
// reference_id 指向触发流水的推荐记录或账单
type CreditTransaction struct {
	CreditTransactionID string    `gorm:"primaryKey;type:varchar(36)"`
	UserID              string    `gorm:"index;type:varchar(36);not null"`
	Type                string    `gorm:"type:varchar(16);not null"` // earned/used/expired
	Amount              float64   `gorm:"type:decimal(10,2);not null"`
	BalanceBefore       float64   `gorm:"type:decimal(10,2);not null"`
	BalanceAfter        float64   `gorm:"type:decimal(10,2);not null"`
	ReferenceID         string    `gorm:"index;type:varchar(64)"`
	Description         string    `gorm:"type:varchar(255)"`
	CreatedAt           time.Time `gorm:"autoCreateTime"`
}

// TableName 指定表名
func (CreditTransaction) TableName() string {
	return "credit_transaction"
}
