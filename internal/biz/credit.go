package biz

import (
	"context"
	"math"
	"time"

	"subscription-service/internal/constants"
	"subscription-service/internal/metrics"

	"github.com/go-kratos/kratos/v2/log"
)

// UserCredit 用户返利账本
// 守恒约束: TotalEarned == UsedCredits + AvailableCredits，且三者均非负
type UserCredit struct {
	UserID           string
	TotalEarned      float64
	UsedCredits      float64
	AvailableCredits float64
	UpdatedAt        time.Time
}

// CheckInvariant 校验账本守恒约束
func (c *UserCredit) CheckInvariant() error {
	if c.TotalEarned < 0 || c.UsedCredits < 0 || c.AvailableCredits < 0 {
		return ErrLedgerInvariant
	}
	if math.Abs(c.TotalEarned-(c.UsedCredits+c.AvailableCredits)) > 1e-9 {
		return ErrLedgerInvariant
	}
	return nil
}

// CreditTransaction 返利流水
// 同一用户的流水按时间排序构成余额链：每条的 BalanceBefore
// 等于上一条的 BalanceAfter，ReferenceID 指向触发来源
type CreditTransaction struct {
	ID            string
	UserID        string
	Type          string // earned / used / expired
	Amount        float64
	BalanceBefore float64
	BalanceAfter  float64
	ReferenceID   string // 推荐记录 ID 或账单 ID
	Description   string
	CreatedAt     time.Time
}

// RewardResult 返利发放结果
type RewardResult struct {
	Rewarded       bool
	Reason         string // 未发放时的原因
	ReferrerUserID string
	Amount         float64
}

// CreditRepo 返利账本数据层接口
// RewardReferral 与 ApplyDeduction 必须是单事务：行锁下修改账本、
// 写入流水并校验守恒约束，任何一步失败整体回滚
type CreditRepo interface {
	GetUserCredit(ctx context.Context, userID string) (*UserCredit, error)
	ListTransactions(ctx context.Context, userID string, limit int) ([]*CreditTransaction, error)
	// RewardReferral 将被邀请人的 pending 推荐记录置为 completed 并给推荐人入账。
	// 入账金额取绑定时固化在记录上的 reward_amount，不受当前配置影响。
	// 没有 pending 记录时返回 Rewarded=false，不视为错误
	RewardReferral(ctx context.Context, refereeUserID string) (*RewardResult, error)
	// ApplyDeduction 从用户可用余额中扣减 amount 并写入 used 流水，
	// referenceID 为触发扣减的账单标识
	ApplyDeduction(ctx context.Context, userID string, amount float64, description, referenceID string) error
}

// CreditDeduction 抵扣结果
type CreditDeduction struct {
	Applied   bool
	Reason    string
	Amount    float64
	Remaining float64
}

// CreditUseCase 返利账本业务逻辑
type CreditUseCase struct {
	repo     CreditRepo
	userRepo UserRepo
	stripe   StripeGateway
	log      *log.Helper
}

// NewCreditUseCase 创建返利 UseCase
func NewCreditUseCase(repo CreditRepo, userRepo UserRepo, stripe StripeGateway, logger log.Logger) *CreditUseCase {
	return &CreditUseCase{
		repo:     repo,
		userRepo: userRepo,
		stripe:   stripe,
		log:      log.NewHelper(logger),
	}
}

// GetUserCredit 获取用户返利余额，无账本记录时返回零值账本
func (uc *CreditUseCase) GetUserCredit(ctx context.Context, userID string) (*UserCredit, error) {
	credit, err := uc.repo.GetUserCredit(ctx, userID)
	if err != nil {
		return nil, err
	}
	if credit == nil {
		return &UserCredit{UserID: userID}, nil
	}
	return credit, nil
}

// ListTransactions 获取返利流水，limit 限定在 1..100，缺省 20
func (uc *CreditUseCase) ListTransactions(ctx context.Context, userID string, limit int) ([]*CreditTransaction, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	return uc.repo.ListTransactions(ctx, userID, limit)
}

// Reward 被邀请人首次转为付费时给推荐人发放返利
// 携带渠道客户 ID 时先核对被邀请人的订阅行已绑定该客户，
// 防止付款尚未落到该账号时提前发放。
// 幂等性由 pending → completed 的状态流转保证：同一被邀请人
// 只有第一次调用能完成流转，重复调用返回 no_pending_referral
func (uc *CreditUseCase) Reward(ctx context.Context, refereeUserID, providerCustomerID string) (*RewardResult, error) {
	if providerCustomerID != "" {
		referee, err := uc.userRepo.GetByUserID(ctx, refereeUserID)
		if err != nil {
			return nil, err
		}
		if referee == nil ||
			(referee.StripeCustomerID != providerCustomerID && referee.AppleCustomerID != providerCustomerID) {
			metrics.GetMetrics().RewardTotal.WithLabelValues(constants.ReplyStatusIgnored).Inc()
			uc.log.Warnf("Referral reward skipped, provider customer mismatch: referee=%s, customerID=%s",
				refereeUserID, providerCustomerID)
			return &RewardResult{Reason: constants.ReasonUserNotPro}, nil
		}
	}

	result, err := uc.repo.RewardReferral(ctx, refereeUserID)
	if err != nil {
		metrics.GetMetrics().RewardTotal.WithLabelValues(constants.ReplyStatusError).Inc()
		return nil, err
	}
	if !result.Rewarded {
		metrics.GetMetrics().RewardTotal.WithLabelValues(constants.ReplyStatusIgnored).Inc()
		return result, nil
	}

	metrics.GetMetrics().RewardTotal.WithLabelValues(constants.ReplyStatusSuccess).Inc()
	metrics.GetMetrics().RewardAmount.Add(result.Amount)
	uc.log.Infof("Referral reward granted: referrer=%s, referee=%s, amount=%.2f",
		result.ReferrerUserID, refereeUserID, result.Amount)
	return result, nil
}

// ApplyToInvoice 将可用返利抵扣到下期 Stripe 账单
// 抵扣金额为 min(可用余额, 账单金额)；先落账本事务再调用渠道，
// 保证同一笔余额不会重复抵扣（渠道失败时余额已扣，人工对账处理）
func (uc *CreditUseCase) ApplyToInvoice(ctx context.Context, userID, invoiceID string, invoiceAmount float64) (*CreditDeduction, error) {
	user, err := uc.userRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !user.IsPro() || user.StripeCustomerID == "" {
		metrics.GetMetrics().DeductionTotal.WithLabelValues(constants.ReplyStatusIgnored).Inc()
		return &CreditDeduction{Reason: constants.ReasonUserNotPro}, nil
	}

	credit, err := uc.GetUserCredit(ctx, userID)
	if err != nil {
		return nil, err
	}

	amount := math.Min(credit.AvailableCredits, invoiceAmount)
	if amount <= 0 {
		metrics.GetMetrics().DeductionTotal.WithLabelValues(constants.ReplyStatusIgnored).Inc()
		return &CreditDeduction{Reason: constants.ReasonNoCredits, Remaining: credit.AvailableCredits}, nil
	}

	if err := uc.repo.ApplyDeduction(ctx, userID, amount, "Referral credit applied to invoice", invoiceID); err != nil {
		metrics.GetMetrics().DeductionTotal.WithLabelValues(constants.ReplyStatusError).Inc()
		return nil, err
	}

	amountCents := int64(math.Round(amount * 100))
	if err := uc.stripe.CreateCreditInvoiceItem(ctx, user.StripeCustomerID, -amountCents, "Referral credit"); err != nil {
		// 账本已扣，渠道侧失败需要人工介入，不回滚账本
		metrics.GetMetrics().DeductionTotal.WithLabelValues(constants.ReplyStatusError).Inc()
		uc.log.Errorf("CreateCreditInvoiceItem failed after ledger deduction: user=%s, amount=%.2f, err=%v", userID, amount, err)
		return nil, err
	}

	metrics.GetMetrics().DeductionTotal.WithLabelValues(constants.ReplyStatusSuccess).Inc()
	metrics.GetMetrics().DeductionAmount.Add(amount)
	uc.log.Infof("Credit applied to invoice: user=%s, amount=%.2f, remaining=%.2f",
		userID, amount, credit.AvailableCredits-amount)
	return &CreditDeduction{
		Applied:   true,
		Amount:    amount,
		Remaining: credit.AvailableCredits - amount,
	}, nil
}

// CreatePortalSession 创建 Stripe 客户自助管理门户会话
func (uc *CreditUseCase) CreatePortalSession(ctx context.Context, userID string) (string, error) {
	user, err := uc.userRepo.GetByUserID(ctx, userID)
	if err != nil {
		return "", err
	}
	if user == nil || user.StripeCustomerID == "" {
		return "", ErrUserNotFound
	}
	return uc.stripe.CreatePortalSession(ctx, user.StripeCustomerID)
}
