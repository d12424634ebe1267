package service

import (
	"context"
	"time"

	"subscription-service/internal/biz"

	"github.com/go-kratos/kratos/v2/log"
)

// MyCodeReply 我的邀请码
type MyCodeReply struct {
	Code      string `json:"code"`
	IsActive  bool   `json:"is_active"`
	ExpiresAt string `json:"expires_at,omitempty"`
}

// BindRequest 绑定邀请码请求
type BindRequest struct {
	UserID string `json:"user_id"`
	Code   string `json:"code"`
}

// BindReply 绑定结果
type BindReply struct {
	ReferrerUserID string `json:"referrer_user_id"`
	Status         string `json:"status"`
}

// CheckBindingReply 绑定查询结果
type CheckBindingReply struct {
	Bound  bool   `json:"bound"`
	Code   string `json:"code,omitempty"`
	Status string `json:"status,omitempty"`
}

// StatsReply 邀请统计
type StatsReply struct {
	TotalInvited int     `json:"total_invited"`
	TotalPaid    int     `json:"total_paid"`
	Pending      int     `json:"pending"`
	TotalEarned  float64 `json:"total_earned"`
}

// CreditsReply 返利余额
type CreditsReply struct {
	TotalEarned      float64 `json:"total_earned"`
	UsedCredits      float64 `json:"used_credits"`
	AvailableCredits float64 `json:"available_credits"`
}

// CreditTransactionItem 返利流水条目
type CreditTransactionItem struct {
	Type          string  `json:"type"`
	Amount        float64 `json:"amount"`
	BalanceBefore float64 `json:"balance_before"`
	BalanceAfter  float64 `json:"balance_after"`
	ReferenceID   string  `json:"reference_id,omitempty"`
	Description   string  `json:"description"`
	CreatedAt     string  `json:"created_at"`
}

// CreditHistoryReply 返利流水
type CreditHistoryReply struct {
	Transactions []*CreditTransactionItem `json:"transactions"`
}

// ApplyCreditRequest 抵扣请求
type ApplyCreditRequest struct {
	UserID        string  `json:"user_id"`
	InvoiceID     string  `json:"invoice_id"`
	InvoiceAmount float64 `json:"invoice_amount"`
}

// ApplyCreditReply 抵扣结果
type ApplyCreditReply struct {
	Applied   bool    `json:"applied"`
	Reason    string  `json:"reason,omitempty"`
	Amount    float64 `json:"amount"`
	Remaining float64 `json:"remaining"`
}

// PortalReply 订阅管理门户会话
type PortalReply struct {
	Url string `json:"url"`
}

// AccountCheckReply 账户总览
type AccountCheckReply struct {
	UserID             string  `json:"user_id"`
	SubscriptionStatus string  `json:"subscription_status"`
	RequestMonthLimit  int     `json:"request_month_limit"`
	RequestUsedMonth   int     `json:"request_used_month"`
	ReceiptMonthLimit  int     `json:"receipt_month_limit"`
	ReceiptUsedMonth   int     `json:"receipt_used_month"`
	AvailableCredits   float64 `json:"available_credits"`
}

// ReferralService 推荐/返利服务
type ReferralService struct {
	referralUC *biz.ReferralUseCase
	creditUC   *biz.CreditUseCase
	userUC     *biz.UserUseCase
	quotaUC    *biz.QuotaUseCase
	log        *log.Helper
}

// NewReferralService 创建推荐服务
func NewReferralService(
	referralUC *biz.ReferralUseCase,
	creditUC *biz.CreditUseCase,
	userUC *biz.UserUseCase,
	quotaUC *biz.QuotaUseCase,
	logger log.Logger,
) *ReferralService {
	return &ReferralService{
		referralUC: referralUC,
		creditUC:   creditUC,
		userUC:     userUC,
		quotaUC:    quotaUC,
		log:        log.NewHelper(logger),
	}
}

// MyCode 获取（或生成）我的邀请码
func (s *ReferralService) MyCode(ctx context.Context, userID string) (*MyCodeReply, error) {
	code, err := s.referralUC.GetOrCreateCode(ctx, userID)
	if err != nil {
		s.log.Errorf("MyCode failed: userID=%s, error=%v", userID, err)
		return nil, err
	}
	reply := &MyCodeReply{
		Code:     code.Code,
		IsActive: code.IsActive,
	}
	if code.ExpiresAt != nil {
		reply.ExpiresAt = code.ExpiresAt.Format(time.RFC3339)
	}
	return reply, nil
}

// Bind 绑定邀请码
func (s *ReferralService) Bind(ctx context.Context, req *BindRequest) (*BindReply, error) {
	record, err := s.referralUC.Bind(ctx, req.UserID, req.Code)
	if err != nil {
		s.log.Warnf("Bind failed: userID=%s, code=%s, error=%v", req.UserID, req.Code, err)
		return nil, err
	}
	return &BindReply{
		ReferrerUserID: record.ReferrerUserID,
		Status:         record.Status,
	}, nil
}

// CheckBinding 查询我的绑定情况
func (s *ReferralService) CheckBinding(ctx context.Context, userID string) (*CheckBindingReply, error) {
	record, err := s.referralUC.CheckBinding(ctx, userID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return &CheckBindingReply{Bound: false}, nil
	}
	return &CheckBindingReply{
		Bound:  true,
		Code:   record.Code,
		Status: record.Status,
	}, nil
}

// Stats 我的邀请统计
func (s *ReferralService) Stats(ctx context.Context, userID string) (*StatsReply, error) {
	stats, err := s.referralUC.Stats(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &StatsReply{
		TotalInvited: stats.TotalInvited,
		TotalPaid:    stats.TotalPaid,
		Pending:      stats.Pending,
		TotalEarned:  stats.TotalEarned,
	}, nil
}

// Credits 我的返利余额
func (s *ReferralService) Credits(ctx context.Context, userID string) (*CreditsReply, error) {
	credit, err := s.creditUC.GetUserCredit(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &CreditsReply{
		TotalEarned:      credit.TotalEarned,
		UsedCredits:      credit.UsedCredits,
		AvailableCredits: credit.AvailableCredits,
	}, nil
}

// CreditHistory 我的返利流水
func (s *ReferralService) CreditHistory(ctx context.Context, userID string, limit int) (*CreditHistoryReply, error) {
	transactions, err := s.creditUC.ListTransactions(ctx, userID, limit)
	if err != nil {
		return nil, err
	}
	reply := &CreditHistoryReply{
		Transactions: make([]*CreditTransactionItem, 0, len(transactions)),
	}
	for _, t := range transactions {
		reply.Transactions = append(reply.Transactions, &CreditTransactionItem{
			Type:          t.Type,
			Amount:        t.Amount,
			BalanceBefore: t.BalanceBefore,
			BalanceAfter:  t.BalanceAfter,
			ReferenceID:   t.ReferenceID,
			Description:   t.Description,
			CreatedAt:     t.CreatedAt.Format(time.RFC3339),
		})
	}
	return reply, nil
}

// ApplyCredit 将返利余额抵扣到下期账单
func (s *ReferralService) ApplyCredit(ctx context.Context, req *ApplyCreditRequest) (*ApplyCreditReply, error) {
	deduction, err := s.creditUC.ApplyToInvoice(ctx, req.UserID, req.InvoiceID, req.InvoiceAmount)
	if err != nil {
		s.log.Errorf("ApplyCredit failed: userID=%s, error=%v", req.UserID, err)
		return nil, err
	}
	return &ApplyCreditReply{
		Applied:   deduction.Applied,
		Reason:    deduction.Reason,
		Amount:    deduction.Amount,
		Remaining: deduction.Remaining,
	}, nil
}

// SubscriptionPortal 创建订阅管理门户会话
func (s *ReferralService) SubscriptionPortal(ctx context.Context, userID string) (*PortalReply, error) {
	url, err := s.creditUC.CreatePortalSession(ctx, userID)
	if err != nil {
		s.log.Errorf("SubscriptionPortal failed: userID=%s, error=%v", userID, err)
		return nil, err
	}
	return &PortalReply{Url: url}, nil
}

// AccountCheck 账户总览（订阅状态 + 配额 + 返利余额）
func (s *ReferralService) AccountCheck(ctx context.Context, userID string) (*AccountCheckReply, error) {
	user, err := s.userUC.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, biz.ErrUserNotFound
	}

	reply := &AccountCheckReply{
		UserID:             user.UserID,
		SubscriptionStatus: user.SubscriptionStatus,
	}

	if quota, err := s.quotaUC.GetRequestQuota(ctx, userID); err == nil && quota != nil {
		reply.RequestMonthLimit = quota.MonthLimit
		reply.RequestUsedMonth = quota.UsedMonth
	}
	if quota, err := s.quotaUC.GetReceiptQuota(ctx, userID); err == nil && quota != nil {
		reply.ReceiptMonthLimit = quota.MonthLimit
		reply.ReceiptUsedMonth = quota.UsedMonth
	}
	if credit, err := s.creditUC.GetUserCredit(ctx, userID); err == nil {
		reply.AvailableCredits = credit.AvailableCredits
	}

	return reply, nil
}
