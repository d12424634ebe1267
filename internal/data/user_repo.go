package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"subscription-service/internal/biz"
	"subscription-service/internal/constants"
	"subscription-service/internal/data/model"
	subErrors "subscription-service/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// userRepo 用户订阅数据访问
type userRepo struct {
	data *Data
	log  *log.Helper
}

// NewUserRepo 创建用户 repo（返回 biz.UserRepo 接口）
func NewUserRepo(data *Data, logger log.Logger) biz.UserRepo {
	return &userRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// nullableStr 空串转 NULL，唯一索引列不存空串
func nullableStr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// strValue NULL 列转空串
func strValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// toBizUser model 转领域对象
func toBizUser(m *model.UserLevel) *biz.User {
	return &biz.User{
		UserID:             m.UserID,
		Email:              m.Email,
		EmailHash:          strValue(m.EmailHash),
		SubscriptionStatus: m.SubscriptionStatus,
		StripeCustomerID:   strValue(m.StripeCustomerID),
		AppleCustomerID:    strValue(m.AppleCustomerID),
		VirtualBox:         m.VirtualBox,
		CreatedAt:          m.CreatedAt,
	}
}

// findOne 按条件查询单个用户，不存在时返回 nil 而不是错误
func (r *userRepo) findOne(ctx context.Context, query string, args ...interface{}) (*biz.User, error) {
	var m model.UserLevel
	if err := r.data.db.WithContext(ctx).Where(query, args...).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Errorf("query user_level failed: query=%s, error=%v", query, err)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, subErrors.ErrCodeUserGetFailed)
	}
	return toBizUser(&m), nil
}

// GetByUserID 按 user_id 获取用户
func (r *userRepo) GetByUserID(ctx context.Context, userID string) (*biz.User, error) {
	if userID == "" {
		return nil, fmt.Errorf("userID is required")
	}
	user, err := r.findOne(ctx, "user_id = ?", userID)
	if err != nil || user == nil {
		return user, err
	}

	// 更新状态缓存（异步，不阻塞，设置超时避免长时间等待）
	statusKey := fmt.Sprintf("%s%s", constants.RedisKeySubscriptionStatus, userID)
	status := user.SubscriptionStatus
	go func() {
		cacheCtx, cacheCancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cacheCancel()
		// 缓存更新失败不影响主流程
		r.data.rdb.Set(cacheCtx, statusKey, status, 5*time.Minute)
	}()

	return user, nil
}

// GetByEmailHash 按邮箱指纹获取用户
func (r *userRepo) GetByEmailHash(ctx context.Context, emailHash string) (*biz.User, error) {
	return r.findOne(ctx, "email_hash = ?", emailHash)
}

// GetByStripeCustomerID 按 Stripe 客户 ID 获取用户
func (r *userRepo) GetByStripeCustomerID(ctx context.Context, customerID string) (*biz.User, error) {
	return r.findOne(ctx, "stripe_customer_id = ?", customerID)
}

// GetByAppleCustomerID 按 Apple originalTransactionId 获取用户
func (r *userRepo) GetByAppleCustomerID(ctx context.Context, originalTransactionID string) (*biz.User, error) {
	return r.findOne(ctx, "apple_customer_id = ?", originalTransactionID)
}

// ApplyStatusAndQuota 单事务写入订阅状态与两张配额表
// 行锁保证与同用户的其他写入串行；配额行缺失时补建
func (r *userRepo) ApplyStatusAndQuota(ctx context.Context, userID, status, provider, providerCustomerID string, limits biz.QuotaLimits) error {
	err := r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var m model.UserLevel
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&m).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{
			"subscription_status": status,
		}
		if providerCustomerID != "" {
			switch provider {
			case constants.ProviderStripe:
				updates["stripe_customer_id"] = providerCustomerID
			case constants.ProviderApple:
				updates["apple_customer_id"] = providerCustomerID
			}
		}
		if err := tx.Model(&m).Updates(updates).Error; err != nil {
			return err
		}

		if err := upsertQuotaLimit(tx, &model.RequestUsageQuota{}, userID, limits.RequestMonthLimit); err != nil {
			return err
		}
		if err := upsertQuotaLimit(tx, &model.ReceiptUsageQuota{}, userID, limits.ReceiptMonthLimit); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		// 渠道客户 ID 撞唯一索引：该客户已绑定其他账号，并发竞争的败者走这里
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			r.log.Warnf("provider customer already bound to another account: userID=%s, provider=%s, customerID=%s",
				userID, provider, providerCustomerID)
			return biz.ErrReceiptBoundElsewhere
		}
		r.log.Errorf("ApplyStatusAndQuota failed: userID=%s, status=%s, error=%v", userID, status, err)
		return pkgErrors.NewBizErrorWithLang(ctx, subErrors.ErrCodeUserUpdateFailed)
	}

	// 事务提交成功后更新状态缓存（设置超时避免阻塞）
	statusKey := fmt.Sprintf("%s%s", constants.RedisKeySubscriptionStatus, userID)
	cacheCtx, cacheCancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cacheCancel()
	if err := r.data.rdb.Set(cacheCtx, statusKey, status, 5*time.Minute).Err(); err != nil {
		// 缓存更新失败不影响主流程，只记录日志
		r.log.Warnf("failed to update status cache: userID=%s, error=%v", userID, err)
	}

	return nil
}

// upsertQuotaLimit 更新配额上限，行缺失时补建
func upsertQuotaLimit(tx *gorm.DB, m interface{}, userID string, monthLimit int) error {
	result := tx.Model(m).Where("user_id = ?", userID).Update("month_limit", monthLimit)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	switch m.(type) {
	case *model.RequestUsageQuota:
		return tx.Create(&model.RequestUsageQuota{
			RequestUsageQuotaID: uuid.New().String(),
			UserID:              userID,
			MonthLimit:          monthLimit,
		}).Error
	case *model.ReceiptUsageQuota:
		return tx.Create(&model.ReceiptUsageQuota{
			ReceiptUsageQuotaID: uuid.New().String(),
			UserID:              userID,
			MonthLimit:          monthLimit,
		}).Error
	default:
		return fmt.Errorf("unsupported quota model type")
	}
}

// ListUnsyncedAuthUsers 查询认证侧存在但尚无订阅记录的用户
func (r *userRepo) ListUnsyncedAuthUsers(ctx context.Context) ([]*biz.AuthUser, error) {
	var models []model.AuthUser
	if err := r.data.db.WithContext(ctx).
		Model(&model.AuthUser{}).
		Joins("LEFT JOIN user_level ON user_level.user_id = auth_user.id").
		Where("user_level.user_id IS NULL").
		Limit(500).
		Find(&models).Error; err != nil {
		r.log.Errorf("ListUnsyncedAuthUsers failed: error=%v", err)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, subErrors.ErrCodeSyncNewUsersFailed)
	}

	users := make([]*biz.AuthUser, 0, len(models))
	for _, m := range models {
		users = append(users, &biz.AuthUser{
			ID:    m.ID,
			Email: m.Email,
		})
	}
	return users, nil
}

// CreateUserWithQuotas 单事务创建订阅记录与两张配额行
func (r *userRepo) CreateUserWithQuotas(ctx context.Context, user *biz.User) error {
	err := r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		m := model.UserLevel{
			UserLevelID:        uuid.New().String(),
			UserID:             user.UserID,
			Email:              user.Email,
			EmailHash:          nullableStr(user.EmailHash),
			SubscriptionStatus: user.SubscriptionStatus,
			VirtualBox:         user.VirtualBox,
		}
		if err := tx.Create(&m).Error; err != nil {
			return err
		}
		if err := tx.Create(&model.RequestUsageQuota{
			RequestUsageQuotaID: uuid.New().String(),
			UserID:              user.UserID,
		}).Error; err != nil {
			return err
		}
		return tx.Create(&model.ReceiptUsageQuota{
			ReceiptUsageQuotaID: uuid.New().String(),
			UserID:              user.UserID,
		}).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// 并发同步撞到唯一索引，按已创建处理
			return pkgErrors.NewBizErrorWithLang(ctx, subErrors.ErrCodeUserCreateFailed)
		}
		r.log.Errorf("CreateUserWithQuotas failed: userID=%s, error=%v", user.UserID, err)
		return pkgErrors.NewBizErrorWithLang(ctx, subErrors.ErrCodeUserCreateFailed)
	}
	return nil
}
