package biz

import (
	"context"

	"subscription-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
)

// QuotaLimits 两类配额的月度上限
type QuotaLimits struct {
	RequestMonthLimit int // 请求配额
	ReceiptMonthLimit int // 小票识别配额
}

// Quota 配额领域对象
type Quota struct {
	UserID     string
	MonthLimit int
	UsedMonth  int
}

// Remaining 本月剩余配额
func (q *Quota) Remaining() int {
	remaining := q.MonthLimit - q.UsedMonth
	if remaining < 0 {
		return 0
	}
	return remaining
}

// QuotaRepo 配额数据层接口
type QuotaRepo interface {
	GetRequestQuota(ctx context.Context, userID string) (*Quota, error)
	GetReceiptQuota(ctx context.Context, userID string) (*Quota, error)
	ResetMonthlyUsage(ctx context.Context) (int64, error)
}

// QuotaUseCase 配额投影业务逻辑
type QuotaUseCase struct {
	repo QuotaRepo
	conf *BillingConfig
	log  *log.Helper
}

// NewQuotaUseCase 创建配额 UseCase
func NewQuotaUseCase(repo QuotaRepo, conf *BillingConfig, logger log.Logger) *QuotaUseCase {
	return &QuotaUseCase{
		repo: repo,
		conf: conf,
		log:  log.NewHelper(logger),
	}
}

// LimitsForStatus 配额投影：订阅状态 → 月度配额上限
// 纯函数，只依赖当前状态，不依赖历史；同一状态重复投影结果不变
func (uc *QuotaUseCase) LimitsForStatus(status string) QuotaLimits {
	if status == constants.SubscriptionStatusPro {
		return QuotaLimits{
			RequestMonthLimit: uc.conf.ProMonthLimit,
			ReceiptMonthLimit: uc.conf.ProMonthLimit,
		}
	}
	return QuotaLimits{
		RequestMonthLimit: uc.conf.FreeMonthLimit,
		ReceiptMonthLimit: uc.conf.FreeMonthLimit,
	}
}

// GetRequestQuota 获取请求配额
func (uc *QuotaUseCase) GetRequestQuota(ctx context.Context, userID string) (*Quota, error) {
	return uc.repo.GetRequestQuota(ctx, userID)
}

// GetReceiptQuota 获取小票识别配额
func (uc *QuotaUseCase) GetReceiptQuota(ctx context.Context, userID string) (*Quota, error) {
	return uc.repo.GetReceiptQuota(ctx, userID)
}

// ResetMonthlyUsage 月初清零所有用户的当月用量（定时任务调用）
func (uc *QuotaUseCase) ResetMonthlyUsage(ctx context.Context) (int64, error) {
	affected, err := uc.repo.ResetMonthlyUsage(ctx)
	if err != nil {
		return 0, err
	}
	uc.log.Infof("ResetMonthlyUsage completed: affected=%d", affected)
	return affected, nil
}
