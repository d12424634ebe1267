package service

import (
	"context"

	"subscription-service/internal/biz"
	"subscription-service/internal/conf"
	"subscription-service/internal/constants"
	"subscription-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
)

// WebhookReply webhook 处理结果
type WebhookReply struct {
	Status string `json:"status"` // success / ignored
	Reason string `json:"reason,omitempty"`
}

// AppleNotificationRequest Apple 服务端通知请求体
type AppleNotificationRequest struct {
	SignedPayload string `json:"signedPayload"`
}

// VerifyReceiptRequest 收据校验请求
type VerifyReceiptRequest struct {
	UserID      string `json:"user_id"`
	ReceiptData string `json:"receipt_data"`
}

// VerifyReceiptReply 收据校验结果
type VerifyReceiptReply struct {
	Status             string `json:"status"`
	SubscriptionStatus string `json:"subscription_status,omitempty"`
}

// PaidManagerRequest 手动同步付费状态请求（运营后台）
type PaidManagerRequest struct {
	UserID             string `json:"user_id"`
	Provider           string `json:"provider"`
	ProviderCustomerID string `json:"provider_customer_id,omitempty"`
}

// BillingEventService 计费事件入口服务
// 两类入口（Stripe webhook、Apple 通知）归一化后走同一条对账路径；
// 开启 MQ 时入口只做归一化与投递，对账由消费侧完成
type BillingEventService struct {
	normalizer  *biz.EventNormalizer
	reconcileUC *biz.ReconcileUseCase
	receiptUC   *biz.ReceiptUseCase
	stripe      biz.StripeGateway
	publisher   biz.EventPublisher
	mqEnabled   bool
	log         *log.Helper
}

// NewBillingEventService 创建计费事件服务
func NewBillingEventService(
	c *conf.Bootstrap,
	normalizer *biz.EventNormalizer,
	reconcileUC *biz.ReconcileUseCase,
	receiptUC *biz.ReceiptUseCase,
	stripe biz.StripeGateway,
	publisher biz.EventPublisher,
	logger log.Logger,
) *BillingEventService {
	mqEnabled := c.Data != nil && c.Data.Rocketmq != nil && c.Data.Rocketmq.Enabled
	return &BillingEventService{
		normalizer:  normalizer,
		reconcileUC: reconcileUC,
		receiptUC:   receiptUC,
		stripe:      stripe,
		publisher:   publisher,
		mqEnabled:   mqEnabled,
		log:         log.NewHelper(logger),
	}
}

// StripeWebhook 处理 Stripe webhook
// 签名校验失败直接拒绝；归一化失败返回错误让 Stripe 重发
func (s *BillingEventService) StripeWebhook(ctx context.Context, payload []byte, signature string) (*WebhookReply, error) {
	verified, err := s.stripe.VerifyWebhookSignature(payload, signature)
	if err != nil {
		metrics.GetMetrics().WebhookEventTotal.WithLabelValues(constants.ProviderStripe, "unverified", constants.ReconcileResultError).Inc()
		return nil, err
	}

	event, err := s.normalizer.NormalizeStripeEvent(verified)
	if err != nil {
		metrics.GetMetrics().WebhookEventTotal.WithLabelValues(constants.ProviderStripe, "malformed", constants.ReconcileResultError).Inc()
		return nil, err
	}

	return s.dispatch(ctx, event)
}

// AppleNotification 处理 Apple App Store Server Notification (V2)
func (s *BillingEventService) AppleNotification(ctx context.Context, req *AppleNotificationRequest) (*WebhookReply, error) {
	event, err := s.normalizer.NormalizeAppleNotification(req.SignedPayload)
	if err != nil {
		metrics.GetMetrics().WebhookEventTotal.WithLabelValues(constants.ProviderApple, "malformed", constants.ReconcileResultError).Inc()
		return nil, err
	}

	return s.dispatch(ctx, event)
}

// dispatch 投递或内联对账
func (s *BillingEventService) dispatch(ctx context.Context, event *biz.BillingEvent) (*WebhookReply, error) {
	if event.Kind == biz.EventKindUnknown {
		metrics.GetMetrics().WebhookEventTotal.WithLabelValues(event.Provider, string(event.Kind), constants.ReconcileResultIgnored).Inc()
		return &WebhookReply{Status: constants.ReplyStatusIgnored, Reason: constants.ReasonUnhandledEvent}, nil
	}

	if s.mqEnabled {
		if err := s.publisher.Publish(ctx, event); err != nil {
			// 投递失败降级为内联对账，避免丢事件
			s.log.Warnf("publish failed, falling back to inline reconcile: %v", err)
		} else {
			metrics.GetMetrics().WebhookEventTotal.WithLabelValues(event.Provider, string(event.Kind), constants.ReconcileResultApplied).Inc()
			return &WebhookReply{Status: constants.ReplyStatusSuccess}, nil
		}
	}

	result, err := s.reconcileUC.Reconcile(ctx, event)
	if err != nil {
		metrics.GetMetrics().WebhookEventTotal.WithLabelValues(event.Provider, string(event.Kind), constants.ReconcileResultError).Inc()
		s.log.Errorf("Reconcile failed: provider=%s, kind=%s, error=%v", event.Provider, event.Kind, err)
		return nil, err
	}
	metrics.GetMetrics().WebhookEventTotal.WithLabelValues(event.Provider, string(event.Kind), result.Result).Inc()

	if result.Result == constants.ReconcileResultIgnored {
		return &WebhookReply{Status: constants.ReplyStatusIgnored, Reason: result.Reason}, nil
	}
	return &WebhookReply{Status: constants.ReplyStatusSuccess}, nil
}

// VerifyReceipt 客户端上报 Apple 收据
func (s *BillingEventService) VerifyReceipt(ctx context.Context, req *VerifyReceiptRequest) (*VerifyReceiptReply, error) {
	result, err := s.receiptUC.VerifyReceipt(ctx, req.UserID, req.ReceiptData)
	if err != nil {
		s.log.Errorf("VerifyReceipt failed: userID=%s, error=%v", req.UserID, err)
		return nil, err
	}
	return &VerifyReceiptReply{
		Status:             constants.ReplyStatusSuccess,
		SubscriptionStatus: result.NewStatus,
	}, nil
}

// PaidManager 运营后台手动同步付费状态
// 合成一条支付成功事件，与渠道通知走同一条对账路径
func (s *BillingEventService) PaidManager(ctx context.Context, req *PaidManagerRequest) (*WebhookReply, error) {
	event := &biz.BillingEvent{
		Provider:           req.Provider,
		Kind:               biz.EventKindPaymentSucceeded,
		UserID:             req.UserID,
		ProviderCustomerID: req.ProviderCustomerID,
	}
	result, err := s.reconcileUC.Reconcile(ctx, event)
	if err != nil {
		s.log.Errorf("PaidManager failed: userID=%s, error=%v", req.UserID, err)
		return nil, err
	}
	if result.Result == constants.ReconcileResultIgnored {
		return &WebhookReply{Status: constants.ReplyStatusIgnored, Reason: result.Reason}, nil
	}
	return &WebhookReply{Status: constants.ReplyStatusSuccess}, nil
}
