package biz

import (
	"context"
	"fmt"
	"time"

	"subscription-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
)

// User 用户订阅领域对象
type User struct {
	UserID             string
	Email              string // 存储为不透明密文，落库加密由外部负责
	EmailHash          string
	SubscriptionStatus string
	StripeCustomerID   string
	AppleCustomerID    string // Apple originalTransactionId
	VirtualBox         string
	CreatedAt          time.Time
}

// IsPro 是否为付费用户
func (u *User) IsPro() bool {
	return u.SubscriptionStatus == constants.SubscriptionStatusPro
}

// AuthUser 认证侧的用户记录（新用户同步来源）
type AuthUser struct {
	ID    string
	Email string
}

// UserRepo 用户数据层接口（定义在 biz 层）
// ApplyStatusAndQuota 必须在单个事务中完成状态与两张配额表的写入
type UserRepo interface {
	GetByUserID(ctx context.Context, userID string) (*User, error)
	GetByEmailHash(ctx context.Context, emailHash string) (*User, error)
	GetByStripeCustomerID(ctx context.Context, customerID string) (*User, error)
	GetByAppleCustomerID(ctx context.Context, originalTransactionID string) (*User, error)
	ApplyStatusAndQuota(ctx context.Context, userID, status, provider, providerCustomerID string, limits QuotaLimits) error
	ListUnsyncedAuthUsers(ctx context.Context) ([]*AuthUser, error)
	CreateUserWithQuotas(ctx context.Context, user *User) error
}

// UserUseCase 用户订阅业务逻辑（订阅状态机）
type UserUseCase struct {
	repo UserRepo
	conf *BillingConfig
	log  *log.Helper
}

// NewUserUseCase 创建用户 UseCase
func NewUserUseCase(repo UserRepo, conf *BillingConfig, logger log.Logger) *UserUseCase {
	return &UserUseCase{
		repo: repo,
		conf: conf,
		log:  log.NewHelper(logger),
	}
}

// GetByUserID 获取用户
func (uc *UserUseCase) GetByUserID(ctx context.Context, userID string) (*User, error) {
	return uc.repo.GetByUserID(ctx, userID)
}

// LookupByEvent 按事件携带的标识查找用户
// 统一的查找策略：直接 user_id > 邮箱指纹 > 渠道客户ID，
// 避免按查找方式复制状态机逻辑
func (uc *UserUseCase) LookupByEvent(ctx context.Context, event *BillingEvent) (*User, error) {
	switch {
	case event.UserID != "":
		return uc.repo.GetByUserID(ctx, event.UserID)
	case event.EmailHash != "":
		return uc.repo.GetByEmailHash(ctx, event.EmailHash)
	case event.ProviderCustomerID != "" && event.Provider == constants.ProviderApple:
		return uc.repo.GetByAppleCustomerID(ctx, event.ProviderCustomerID)
	case event.ProviderCustomerID != "" && event.Provider == constants.ProviderStripe:
		return uc.repo.GetByStripeCustomerID(ctx, event.ProviderCustomerID)
	default:
		return nil, ErrMissingIdentifier
	}
}

// NextStatus 订阅状态机：根据事件类型计算新状态
// Free → Pro → {Expired, Refunded}，Expired/Refunded 可在后续续订时回到 Pro
func (uc *UserUseCase) NextStatus(current string, event *BillingEvent) string {
	switch event.Kind {
	case EventKindPaymentSucceeded, EventKindRenewed:
		return constants.SubscriptionStatusPro
	case EventKindSubscriptionCancelled:
		return constants.SubscriptionStatusFree
	case EventKindExpired:
		return constants.SubscriptionStatusExpired
	case EventKindRefunded:
		return constants.SubscriptionStatusRefunded
	case EventKindRenewalStatusChanged:
		// 用户关闭自动续订后订阅仍在有效期内，默认保持 Pro，
		// 真正过期时会收到 EXPIRED 通知；可通过配置改为立即降级
		if uc.conf.DowngradeOnRenewalStatusChange {
			return constants.SubscriptionStatusFree
		}
		return constants.SubscriptionStatusPro
	default:
		return current
	}
}

// ApplyStatusAndQuota 应用状态与配额（单事务）
func (uc *UserUseCase) ApplyStatusAndQuota(ctx context.Context, userID, status, provider, providerCustomerID string, limits QuotaLimits) error {
	return uc.repo.ApplyStatusAndQuota(ctx, userID, status, provider, providerCustomerID, limits)
}

// SyncNewUsers 同步新注册用户
// 为认证侧存在但尚无订阅记录的用户创建订阅行（Free）和两张配额行（限额 0）
func (uc *UserUseCase) SyncNewUsers(ctx context.Context) (int, error) {
	authUsers, err := uc.repo.ListUnsyncedAuthUsers(ctx)
	if err != nil {
		return 0, err
	}
	if len(authUsers) == 0 {
		return 0, nil
	}

	synced := 0
	for _, au := range authUsers {
		user := &User{
			UserID:             au.ID,
			Email:              au.Email,
			EmailHash:          EmailFingerprint(au.Email, uc.conf.EmailSalt),
			SubscriptionStatus: constants.SubscriptionStatusFree,
			VirtualBox:         fmt.Sprintf("%s@%s", au.ID, uc.conf.VirtualBoxDomain),
		}
		if err := uc.repo.CreateUserWithQuotas(ctx, user); err != nil {
			// 并发同步可能触发重复创建，记录后继续处理其他用户
			uc.log.Warnf("CreateUserWithQuotas failed for user=%s: %v", au.ID, err)
			continue
		}
		synced++
	}

	uc.log.Infof("SyncNewUsers completed: found=%d, synced=%d", len(authUsers), synced)
	return synced, nil
}
