package biz

import (
	"context"
	"crypto/rand"
	"math/big"
	"time"

	"subscription-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
)

// ReferralCode 邀请码领域对象
type ReferralCode struct {
	ID        string
	UserID    string
	Code      string
	IsActive  bool
	ExpiresAt *time.Time // nil 表示永不过期
	CreatedAt time.Time
}

// IsExpired 邀请码是否已过期
func (c *ReferralCode) IsExpired(now time.Time) bool {
	return c.ExpiresAt != nil && now.After(*c.ExpiresAt)
}

// ReferralRecord 推荐记录领域对象
// 一条记录对应一次绑定，状态流转: pending → completed / expired
type ReferralRecord struct {
	ID             string
	ReferrerUserID string
	RefereeUserID  string
	Code           string
	Status         string
	RewardAmount   float64
	CompletedAt    *time.Time
	CreatedAt      time.Time
}

// ReferralStats 推荐统计
type ReferralStats struct {
	TotalInvited int     // 累计邀请人数
	TotalPaid    int     // 已付费人数
	Pending      int     // 已绑定未付费人数
	TotalEarned  float64 // 累计返利金额（取账本 total_earned）
}

// ReferralRepo 推荐数据层接口
// CreateRecord 依赖 referee_user_id 唯一索引保证一人只能绑定一次，
// 并发重复绑定由数据库约束裁决，冲突时返回 ErrAlreadyBound
type ReferralRepo interface {
	GetCodeByUserID(ctx context.Context, userID string) (*ReferralCode, error)
	GetCodeByCode(ctx context.Context, code string) (*ReferralCode, error)
	CreateCode(ctx context.Context, code *ReferralCode) error
	GetRecordByReferee(ctx context.Context, refereeUserID string) (*ReferralRecord, error)
	CreateRecord(ctx context.Context, record *ReferralRecord) error
	CountRecordsByReferrer(ctx context.Context, referrerUserID, status string) (int64, error)
	ExpireCodes(ctx context.Context, now time.Time) (int64, error)
}

// ReferralUseCase 推荐业务逻辑
type ReferralUseCase struct {
	repo       ReferralRepo
	userRepo   UserRepo
	creditRepo CreditRepo
	conf       *BillingConfig
	log        *log.Helper
}

// NewReferralUseCase 创建推荐 UseCase
func NewReferralUseCase(repo ReferralRepo, userRepo UserRepo, creditRepo CreditRepo, conf *BillingConfig, logger log.Logger) *ReferralUseCase {
	return &ReferralUseCase{
		repo:       repo,
		userRepo:   userRepo,
		creditRepo: creditRepo,
		conf:       conf,
		log:        log.NewHelper(logger),
	}
}

// GetOrCreateCode 获取用户的邀请码，不存在则生成
// 生成的码全局唯一，码值冲突时重试
func (uc *ReferralUseCase) GetOrCreateCode(ctx context.Context, userID string) (*ReferralCode, error) {
	user, err := uc.userRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	existing, err := uc.repo.GetCodeByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	const maxAttempts = 5
	for attempt := 0; attempt < maxAttempts; attempt++ {
		value, err := uc.generateCode()
		if err != nil {
			return nil, err
		}
		conflict, err := uc.repo.GetCodeByCode(ctx, value)
		if err != nil {
			return nil, err
		}
		if conflict != nil {
			continue
		}

		code := &ReferralCode{
			UserID:   userID,
			Code:     value,
			IsActive: true,
		}
		if uc.conf.CodeExpiryDays > 0 {
			expiresAt := time.Now().AddDate(0, 0, uc.conf.CodeExpiryDays)
			code.ExpiresAt = &expiresAt
		}
		if err := uc.repo.CreateCode(ctx, code); err != nil {
			// 并发下同一用户可能重复生成，回读已有记录
			if existing, getErr := uc.repo.GetCodeByUserID(ctx, userID); getErr == nil && existing != nil {
				return existing, nil
			}
			return nil, err
		}
		return code, nil
	}
	return nil, ErrCodeNotFound
}

// generateCode 从字符集随机生成邀请码
func (uc *ReferralUseCase) generateCode() (string, error) {
	alphabet := uc.conf.CodeAlphabet
	result := make([]byte, uc.conf.CodeLength)
	max := big.NewInt(int64(len(alphabet)))
	for i := range result {
		index, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		result[i] = alphabet[index.Int64()]
	}
	return string(result), nil
}

// Bind 被邀请人绑定邀请码，创建 pending 推荐记录
// 校验顺序: 已绑定 > 码有效性 > 自我推荐 > 已付费
func (uc *ReferralUseCase) Bind(ctx context.Context, refereeUserID, codeValue string) (*ReferralRecord, error) {
	existing, err := uc.repo.GetRecordByReferee(ctx, refereeUserID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrAlreadyBound
	}

	code, err := uc.repo.GetCodeByCode(ctx, codeValue)
	if err != nil {
		return nil, err
	}
	if code == nil {
		return nil, ErrCodeNotFound
	}
	if !code.IsActive {
		return nil, ErrCodeInactive
	}
	if code.IsExpired(time.Now()) {
		return nil, ErrCodeExpired
	}
	if code.UserID == refereeUserID {
		return nil, ErrSelfReferral
	}

	referee, err := uc.userRepo.GetByUserID(ctx, refereeUserID)
	if err != nil {
		return nil, err
	}
	if referee == nil {
		return nil, ErrUserNotFound
	}
	if referee.IsPro() {
		return nil, ErrAlreadyPaid
	}

	record := &ReferralRecord{
		ReferrerUserID: code.UserID,
		RefereeUserID:  refereeUserID,
		Code:           code.Code,
		Status:         constants.ReferralStatusPending,
		RewardAmount:   uc.conf.ReferralRewardAmount,
	}
	if err := uc.repo.CreateRecord(ctx, record); err != nil {
		return nil, err
	}

	uc.log.Infof("Referral bound: referrer=%s, referee=%s, code=%s", code.UserID, refereeUserID, code.Code)
	return record, nil
}

// CheckBinding 查询被邀请人的绑定情况
func (uc *ReferralUseCase) CheckBinding(ctx context.Context, refereeUserID string) (*ReferralRecord, error) {
	return uc.repo.GetRecordByReferee(ctx, refereeUserID)
}

// Stats 推荐人的邀请统计
// 累计返利金额以账本为准，历史发放金额与当前配置无关
func (uc *ReferralUseCase) Stats(ctx context.Context, referrerUserID string) (*ReferralStats, error) {
	totalInvited, err := uc.repo.CountRecordsByReferrer(ctx, referrerUserID, "")
	if err != nil {
		return nil, err
	}
	totalPaid, err := uc.repo.CountRecordsByReferrer(ctx, referrerUserID, constants.ReferralStatusCompleted)
	if err != nil {
		return nil, err
	}
	pending, err := uc.repo.CountRecordsByReferrer(ctx, referrerUserID, constants.ReferralStatusPending)
	if err != nil {
		return nil, err
	}

	stats := &ReferralStats{
		TotalInvited: int(totalInvited),
		TotalPaid:    int(totalPaid),
		Pending:      int(pending),
	}
	credit, err := uc.creditRepo.GetUserCredit(ctx, referrerUserID)
	if err != nil {
		return nil, err
	}
	if credit != nil {
		stats.TotalEarned = credit.TotalEarned
	}
	return stats, nil
}

// ExpireCodes 批量停用过期邀请码（定时任务调用）
func (uc *ReferralUseCase) ExpireCodes(ctx context.Context) (int64, error) {
	affected, err := uc.repo.ExpireCodes(ctx, time.Now())
	if err != nil {
		return 0, err
	}
	if affected > 0 {
		uc.log.Infof("ExpireCodes completed: affected=%d", affected)
	}
	return affected, nil
}
