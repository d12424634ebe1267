package biz

import (
	"context"
)

// AppleReceiptInfo Apple 收据中的单笔交易
type AppleReceiptInfo struct {
	OriginalTransactionID string `json:"original_transaction_id"`
	ProductID             string `json:"product_id"`
	ExpiresDateMs         string `json:"expires_date_ms"`
}

// AppleReceiptResponse Apple verifyReceipt 接口响应
type AppleReceiptResponse struct {
	Status            int                `json:"status"`
	Environment       string             `json:"environment"`
	LatestReceiptInfo []AppleReceiptInfo `json:"latest_receipt_info"`
}

// StripeGateway Stripe 渠道网关接口
// 实现在 data 层，biz 层只依赖接口便于测试
type StripeGateway interface {
	// VerifyWebhookSignature 校验 webhook 签名并返回原始事件负载
	VerifyWebhookSignature(payload []byte, signature string) ([]byte, error)
	// CreateCreditInvoiceItem 为客户创建负数账单项（返利抵扣下期账单）
	CreateCreditInvoiceItem(ctx context.Context, customerID string, amountCents int64, description string) error
	// CreatePortalSession 创建客户自助管理门户会话，返回跳转 URL
	CreatePortalSession(ctx context.Context, customerID string) (string, error)
}

// AppleVerifier Apple 收据校验接口
// 实现负责生产环境优先、沙盒收据 (21007) 自动重试
type AppleVerifier interface {
	VerifyReceipt(ctx context.Context, receiptData string) (*AppleReceiptResponse, error)
}
