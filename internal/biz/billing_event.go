package biz

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"subscription-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
)

// EventKind 归一化后的计费事件类型
type EventKind string

const (
	EventKindPaymentSucceeded      EventKind = "payment_succeeded"
	EventKindRenewed               EventKind = "renewed"
	EventKindSubscriptionCancelled EventKind = "subscription_cancelled"
	EventKindExpired               EventKind = "expired"
	EventKindRefunded              EventKind = "refunded"
	EventKindRenewalStatusChanged  EventKind = "renewal_status_changed"
	EventKindUnknown               EventKind = "unknown"
)

// BillingEvent 渠道无关的计费事件
// 三种用户标识互斥携带：直接 user_id / 邮箱指纹 / 渠道客户ID，
// 由对账编排器按实际携带的标识选择查找策略
type BillingEvent struct {
	Provider           string    `json:"provider"` // stripe / apple
	Kind               EventKind `json:"kind"`
	Subtype            string    `json:"subtype,omitempty"`
	UserID             string    `json:"user_id,omitempty"`
	EmailHash          string    `json:"email_hash,omitempty"`
	ProviderCustomerID string    `json:"provider_customer_id,omitempty"`
}

// stripeWebhookPayload Stripe webhook 原始负载
type stripeWebhookPayload struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			Customer      string `json:"customer"`
			CustomerEmail string `json:"customer_email"`
			Metadata      struct {
				UserID string `json:"user_id"`
			} `json:"metadata"`
		} `json:"object"`
	} `json:"data"`
}

// appleNotificationPayload Apple 通知解码后的负载
type appleNotificationPayload struct {
	NotificationType string `json:"notificationType"`
	Subtype          string `json:"subtype"`
	Data             struct {
		SignedTransactionInfo string `json:"signedTransactionInfo"`
	} `json:"data"`
}

// appleTransaction Apple 交易信息
type appleTransaction struct {
	OriginalTransactionID string `json:"originalTransactionId"`
}

// EventNormalizer 事件归一化器
// 将渠道特定的负载（Stripe JSON 事件、Apple JWS 通知）转换为 BillingEvent
type EventNormalizer struct {
	conf *BillingConfig
	log  *log.Helper
}

// NewEventNormalizer 创建事件归一化器
func NewEventNormalizer(conf *BillingConfig, logger log.Logger) *EventNormalizer {
	return &EventNormalizer{
		conf: conf,
		log:  log.NewHelper(logger),
	}
}

// EmailFingerprint 计算邮箱指纹（加盐的确定性哈希，不落明文邮箱）
func (n *EventNormalizer) EmailFingerprint(email string) string {
	return EmailFingerprint(email, n.conf.EmailSalt)
}

// EmailFingerprint 计算邮箱指纹：sha256(lower(email) + "::" + salt)
func EmailFingerprint(email, salt string) string {
	value := fmt.Sprintf("%s::%s", strings.ToLower(email), salt)
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// NormalizeStripeEvent 归一化 Stripe webhook 事件
// 未识别的事件类型归一化为 Unknown，不视为错误
func (n *EventNormalizer) NormalizeStripeEvent(raw []byte) (*BillingEvent, error) {
	var payload stripeWebhookPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, ErrMalformedToken
	}

	event := &BillingEvent{
		Provider:           constants.ProviderStripe,
		ProviderCustomerID: payload.Data.Object.Customer,
	}

	switch payload.Type {
	case constants.StripeEventPaymentSucceeded:
		event.Kind = EventKindPaymentSucceeded
	case constants.StripeEventSubscriptionDeleted:
		event.Kind = EventKindSubscriptionCancelled
	default:
		n.log.Infof("Unhandled stripe event type: %s", payload.Type)
		event.Kind = EventKindUnknown
		return event, nil
	}

	// 优先使用 metadata 中的直接 user_id，否则用邮箱指纹查找
	if payload.Data.Object.Metadata.UserID != "" {
		event.UserID = payload.Data.Object.Metadata.UserID
	} else if payload.Data.Object.CustomerEmail != "" {
		event.EmailHash = n.EmailFingerprint(payload.Data.Object.CustomerEmail)
	} else {
		n.log.Warn("Missing email in stripe event data")
		return nil, ErrMissingIdentifier
	}

	return event, nil
}

// NormalizeAppleNotification 归一化 Apple App Store Server Notification (V2)
// signedPayload 为 JWS 格式，负载中嵌套 signedTransactionInfo（同为 JWS）
func (n *EventNormalizer) NormalizeAppleNotification(signedPayload string) (*BillingEvent, error) {
	var payload appleNotificationPayload
	if err := DecodeJWSPayload(signedPayload, &payload); err != nil {
		return nil, err
	}

	if payload.Data.SignedTransactionInfo == "" {
		return nil, ErrMissingIdentifier
	}

	var transaction appleTransaction
	if err := DecodeJWSPayload(payload.Data.SignedTransactionInfo, &transaction); err != nil {
		return nil, err
	}
	if transaction.OriginalTransactionID == "" {
		return nil, ErrMissingIdentifier
	}

	event := &BillingEvent{
		Provider:           constants.ProviderApple,
		Subtype:            payload.Subtype,
		ProviderCustomerID: transaction.OriginalTransactionID,
	}

	switch payload.NotificationType {
	case constants.AppleNotificationDidRenew:
		event.Kind = EventKindRenewed
	case constants.AppleNotificationSubscribed:
		event.Kind = EventKindPaymentSucceeded
	case constants.AppleNotificationExpired:
		event.Kind = EventKindExpired
	case constants.AppleNotificationRefund:
		event.Kind = EventKindRefunded
	case constants.AppleNotificationRenewalStatusChanged:
		event.Kind = EventKindRenewalStatusChanged
	default:
		n.log.Warnf("Unknown apple notification type: %s", payload.NotificationType)
		event.Kind = EventKindUnknown
	}

	return event, nil
}

// DecodeJWSPayload 解码 JWS token 的 payload 段
// JWS 格式: header.payload.signature，payload 为 base64url（可能缺省 padding）
// 段数不为 3 或 payload 无法解码为合法 JSON 时返回 ErrMalformedToken
func DecodeJWSPayload(token string, out interface{}) error {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return ErrMalformedToken
	}

	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(parts[1], "="))
	if err != nil {
		return ErrMalformedToken
	}

	if err := json.Unmarshal(decoded, out); err != nil {
		return ErrMalformedToken
	}
	return nil
}
