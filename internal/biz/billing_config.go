package biz

import (
	"subscription-service/internal/conf"
	"subscription-service/internal/constants"
)

// BillingConfig 订阅/返利业务配置
type BillingConfig struct {
	EmailSalt            string
	ProMonthLimit        int     // Pro 用户每月配额上限
	FreeMonthLimit       int     // 非 Pro 用户每月配额上限
	ReferralRewardAmount float64 // 推荐返利金额（欧元）
	CodeExpiryDays       int     // 邀请码有效期（天），0 表示永不过期
	CodeLength           int     // 邀请码长度
	CodeAlphabet         string  // 邀请码字符集
	// DowngradeOnRenewalStatusChange 收到续订状态变更通知时是否立即降级。
	// 默认 false：订阅在有效期内保持 Pro，等待真正的过期通知
	DowngradeOnRenewalStatusChange bool
	VirtualBoxDomain               string // 新用户虚拟收件箱域名
}

// NewBillingConfig 从配置创建 BillingConfig
func NewBillingConfig(c *conf.Bootstrap) *BillingConfig {
	config := &BillingConfig{
		ProMonthLimit:        100, // 默认值
		FreeMonthLimit:       0,
		ReferralRewardAmount: 1.00, // 默认值：1欧元返利
		CodeExpiryDays:       365,
		CodeLength:           constants.ReferralCodeLength,
		CodeAlphabet:         constants.ReferralCodeAlphabet,
	}
	if c.Billing != nil {
		config.EmailSalt = c.Billing.EmailSalt
		config.VirtualBoxDomain = c.Billing.VirtualBoxDomain
		config.DowngradeOnRenewalStatusChange = c.Billing.DowngradeOnRenewalStatusChange
		if c.Billing.ProMonthLimit > 0 {
			config.ProMonthLimit = c.Billing.ProMonthLimit
		}
		if c.Billing.ReferralRewardAmount > 0 {
			config.ReferralRewardAmount = c.Billing.ReferralRewardAmount
		}
		if c.Billing.CodeExpiryDays > 0 {
			config.CodeExpiryDays = c.Billing.CodeExpiryDays
		}
	}
	return config
}
