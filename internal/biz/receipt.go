package biz

import (
	"context"
	"time"

	"subscription-service/internal/constants"
	"subscription-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
)

// ReceiptUseCase Apple 收据校验业务逻辑
// 客户端主动上报收据时走这里：校验通过后合成一条计费事件交给对账编排器，
// 与服务端通知复用同一条状态机路径
type ReceiptUseCase struct {
	verifier    AppleVerifier
	userRepo    UserRepo
	reconcileUC *ReconcileUseCase
	log         *log.Helper
}

// NewReceiptUseCase 创建收据 UseCase
func NewReceiptUseCase(verifier AppleVerifier, userRepo UserRepo, reconcileUC *ReconcileUseCase, logger log.Logger) *ReceiptUseCase {
	return &ReceiptUseCase{
		verifier:    verifier,
		userRepo:    userRepo,
		reconcileUC: reconcileUC,
		log:         log.NewHelper(logger),
	}
}

// VerifyReceipt 校验收据并应用订阅状态
// 同一 originalTransactionId 只能绑定一个账号，防止一份收据多账号共享
func (uc *ReceiptUseCase) VerifyReceipt(ctx context.Context, userID, receiptData string) (*ReconcileResult, error) {
	start := time.Now()
	response, err := uc.verifier.VerifyReceipt(ctx, receiptData)
	metrics.GetMetrics().ReceiptVerifyDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GetMetrics().ReceiptVerifyTotal.WithLabelValues(constants.ReplyStatusError).Inc()
		return nil, err
	}
	if response.Status != constants.AppleReceiptStatusOK {
		metrics.GetMetrics().ReceiptVerifyTotal.WithLabelValues(constants.ReplyStatusError).Inc()
		uc.log.Warnf("Apple receipt verification failed: user=%s, status=%d", userID, response.Status)
		return nil, ErrReceiptVerifyFailed
	}
	if len(response.LatestReceiptInfo) == 0 {
		metrics.GetMetrics().ReceiptVerifyTotal.WithLabelValues(constants.ReplyStatusError).Inc()
		return nil, ErrReceiptVerifyFailed
	}
	metrics.GetMetrics().ReceiptVerifyTotal.WithLabelValues(constants.ReplyStatusSuccess).Inc()

	// latest_receipt_info 按时间升序，取最后一笔为最新交易
	latest := response.LatestReceiptInfo[len(response.LatestReceiptInfo)-1]
	originalTransactionID := latest.OriginalTransactionID
	if originalTransactionID == "" {
		return nil, ErrReceiptVerifyFailed
	}

	bound, err := uc.userRepo.GetByAppleCustomerID(ctx, originalTransactionID)
	if err != nil {
		return nil, err
	}
	if bound != nil && bound.UserID != userID {
		uc.log.Warnf("Receipt already bound to another account: otid=%s, owner=%s, requester=%s",
			originalTransactionID, bound.UserID, userID)
		return nil, ErrReceiptBoundElsewhere
	}

	event := &BillingEvent{
		Provider:           constants.ProviderApple,
		Kind:               EventKindPaymentSucceeded,
		UserID:             userID,
		ProviderCustomerID: originalTransactionID,
	}
	return uc.reconcileUC.Reconcile(ctx, event)
}
