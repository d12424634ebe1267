package biz

import (
	"context"
	"time"

	"subscription-service/internal/constants"
	"subscription-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
)

// EventPublisher 计费事件重放通道
// 开启 MQ 时 webhook 入口将归一化事件投递到队列，由消费侧对账
type EventPublisher interface {
	Publish(ctx context.Context, event *BillingEvent) error
}

// UserLocker 按用户粒度的分布式锁
// 保证同一用户的对账串行执行，不同用户互不阻塞
type UserLocker interface {
	// Lock 获取用户锁，返回释放函数
	Lock(ctx context.Context, userID string) (func(), error)
}

// ReconcileResult 对账结果
type ReconcileResult struct {
	Result    string // applied / ignored / error
	Reason    string // ignored 时的原因
	UserID    string
	OldStatus string
	NewStatus string
}

// ReconcileUseCase 对账编排器
// 对账是幂等的：同一事件重放产生相同的终态，状态与配额写入
// 只依赖事件类型与当前状态，返利发放由 pending 状态流转保证只发一次
type ReconcileUseCase struct {
	userUC   *UserUseCase
	quotaUC  *QuotaUseCase
	creditUC *CreditUseCase
	locker   UserLocker
	log      *log.Helper
}

// NewReconcileUseCase 创建对账 UseCase
func NewReconcileUseCase(userUC *UserUseCase, quotaUC *QuotaUseCase, creditUC *CreditUseCase, locker UserLocker, logger log.Logger) *ReconcileUseCase {
	return &ReconcileUseCase{
		userUC:   userUC,
		quotaUC:  quotaUC,
		creditUC: creditUC,
		locker:   locker,
		log:      log.NewHelper(logger),
	}
}

// Reconcile 处理一条归一化计费事件
// 流程: 查找用户 → 加用户锁 → 状态机 → 配额投影 → 单事务落库 → 返利检查
func (uc *ReconcileUseCase) Reconcile(ctx context.Context, event *BillingEvent) (*ReconcileResult, error) {
	start := time.Now()
	result, err := uc.reconcile(ctx, event)
	metrics.GetMetrics().ReconcileDuration.WithLabelValues(event.Provider).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.GetMetrics().ReconcileTotal.WithLabelValues(event.Provider, constants.ReconcileResultError).Inc()
		return nil, err
	}
	metrics.GetMetrics().ReconcileTotal.WithLabelValues(event.Provider, result.Result).Inc()
	return result, nil
}

func (uc *ReconcileUseCase) reconcile(ctx context.Context, event *BillingEvent) (*ReconcileResult, error) {
	if event.Kind == EventKindUnknown {
		return &ReconcileResult{
			Result: constants.ReconcileResultIgnored,
			Reason: constants.ReasonUnhandledEvent,
		}, nil
	}

	user, err := uc.userUC.LookupByEvent(ctx, event)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// 渠道侧用户可能先于身份同步到达，忽略等待渠道重发
		uc.log.Warnf("User not found for event: provider=%s, kind=%s", event.Provider, event.Kind)
		return &ReconcileResult{
			Result: constants.ReconcileResultIgnored,
			Reason: constants.ReasonUserNotFound,
		}, nil
	}

	unlock, err := uc.locker.Lock(ctx, user.UserID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// 锁内重读，避免用锁前的旧状态做状态机判定
	user, err = uc.userUC.GetByUserID(ctx, user.UserID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return &ReconcileResult{
			Result: constants.ReconcileResultIgnored,
			Reason: constants.ReasonUserNotFound,
		}, nil
	}

	oldStatus := user.SubscriptionStatus
	newStatus := uc.userUC.NextStatus(oldStatus, event)
	limits := uc.quotaUC.LimitsForStatus(newStatus)

	if err := uc.userUC.ApplyStatusAndQuota(ctx, user.UserID, newStatus, event.Provider, event.ProviderCustomerID, limits); err != nil {
		return nil, err
	}

	uc.log.Infof("Reconciled billing event: user=%s, provider=%s, kind=%s, status=%s->%s",
		user.UserID, event.Provider, event.Kind, oldStatus, newStatus)

	// 首次转为付费时检查推荐返利；返利失败向上抛出，
	// 由消费侧重试，重复重放由 pending 状态流转保证不重复发放
	if newStatus == constants.SubscriptionStatusPro && oldStatus != constants.SubscriptionStatusPro {
		if _, err := uc.creditUC.Reward(ctx, user.UserID, event.ProviderCustomerID); err != nil {
			return nil, err
		}
	}

	return &ReconcileResult{
		Result:    constants.ReconcileResultApplied,
		UserID:    user.UserID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	}, nil
}
