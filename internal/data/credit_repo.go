package data

import (
	"context"
	"errors"
	"fmt"
	"math"
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

// creditRepo 返利账本数据访问
type creditRepo struct {
	data *Data
	log  *log.Helper
}

// NewCreditRepo 创建返利 repo（返回 biz.CreditRepo 接口）
func NewCreditRepo(data *Data, logger log.Logger) biz.CreditRepo {
	return &creditRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// GetUserCredit 获取用户返利余额
func (r *creditRepo) GetUserCredit(ctx context.Context, userID string) (*biz.UserCredit, error) {
	if userID == "" {
		return nil, fmt.Errorf("userID is required")
	}

	// 缓存只存可用余额，完整账本以数据库为准
	var m model.UserCredit
	if err := r.data.db.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Errorf("GetUserCredit failed: userID=%s, error=%v", userID, err)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, subErrors.ErrCodeCreditGetFailed)
	}

	result := &biz.UserCredit{
		UserID:           m.UserID,
		TotalEarned:      m.TotalEarned,
		UsedCredits:      m.UsedCredits,
		AvailableCredits: m.AvailableCredits,
		UpdatedAt:        m.UpdatedAt,
	}

	// 更新余额缓存（异步，不阻塞，设置超时避免长时间等待）
	creditKey := fmt.Sprintf("%s%s", constants.RedisKeyUserCredit, userID)
	go func() {
		cacheCtx, cacheCancel := context.WithTimeout(context.Background(), 1*time.Second)
		defer cacheCancel()
		r.data.rdb.Set(cacheCtx, creditKey, fmt.Sprintf("%.2f", m.AvailableCredits), 5*time.Minute)
	}()

	return result, nil
}

// ListTransactions 获取返利流水（按时间倒序）
func (r *creditRepo) ListTransactions(ctx context.Context, userID string, limit int) ([]*biz.CreditTransaction, error) {
	var models []model.CreditTransaction
	if err := r.data.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		r.log.Errorf("ListTransactions failed: userID=%s, error=%v", userID, err)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, subErrors.ErrCodeCreditHistoryFailed)
	}

	transactions := make([]*biz.CreditTransaction, 0, len(models))
	for _, m := range models {
		transactions = append(transactions, &biz.CreditTransaction{
			ID:            m.CreditTransactionID,
			UserID:        m.UserID,
			Type:          m.Type,
			Amount:        m.Amount,
			BalanceBefore: m.BalanceBefore,
			BalanceAfter:  m.BalanceAfter,
			ReferenceID:   m.ReferenceID,
			Description:   m.Description,
			CreatedAt:     m.CreatedAt,
		})
	}
	return transactions, nil
}

// RewardReferral 返利入账（单事务）
// 行锁住 pending 推荐记录后以 status='pending' 条件更新，
// RowsAffected=0 说明已被并发对账发放过，幂等返回未发放。
// 入账金额取记录绑定时固化的 reward_amount
func (r *creditRepo) RewardReferral(ctx context.Context, refereeUserID string) (*biz.RewardResult, error) {
	result := &biz.RewardResult{}

	err := r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record model.ReferralRecord
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("referee_user_id = ? AND status = ?", refereeUserID, constants.ReferralStatusPending).
			First(&record).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				result.Reason = constants.ReasonNoPendingReferral
				return nil
			}
			return err
		}
		amount := record.RewardAmount

		now := time.Now()
		flip := tx.Model(&model.ReferralRecord{}).
			Where("referral_record_id = ? AND status = ?", record.ReferralRecordID, constants.ReferralStatusPending).
			Updates(map[string]interface{}{
				"status":       constants.ReferralStatusCompleted,
				"completed_at": now,
			})
		if flip.Error != nil {
			return flip.Error
		}
		if flip.RowsAffected == 0 {
			result.Reason = constants.ReasonNoPendingReferral
			return nil
		}

		// 给推荐人入账，账本行缺失时补建
		var credit model.UserCredit
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", record.ReferrerUserID).First(&credit).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			credit = model.UserCredit{
				UserCreditID: uuid.New().String(),
				UserID:       record.ReferrerUserID,
			}
			if err := tx.Create(&credit).Error; err != nil {
				return err
			}
		}

		balanceBefore := credit.AvailableCredits
		if err := tx.Model(&model.UserCredit{}).
			Where("user_credit_id = ?", credit.UserCreditID).
			Updates(map[string]interface{}{
				"total_earned":      gorm.Expr("total_earned + ?", amount),
				"available_credits": gorm.Expr("available_credits + ?", amount),
			}).Error; err != nil {
			return err
		}

		if err := checkLedgerInvariant(tx, credit.UserCreditID); err != nil {
			return err
		}

		transaction := model.CreditTransaction{
			CreditTransactionID: uuid.New().String(),
			UserID:              record.ReferrerUserID,
			Type:                constants.CreditTransactionEarned,
			Amount:              amount,
			BalanceBefore:       balanceBefore,
			BalanceAfter:        balanceBefore + amount,
			ReferenceID:         record.ReferralRecordID,
			Description:         fmt.Sprintf("Referral reward for inviting user %s", refereeUserID),
		}
		if err := tx.Create(&transaction).Error; err != nil {
			return err
		}

		result.Rewarded = true
		result.ReferrerUserID = record.ReferrerUserID
		result.Amount = amount
		return nil
	})
	if err != nil {
		if errors.Is(err, biz.ErrLedgerInvariant) {
			return nil, err
		}
		r.log.Errorf("RewardReferral failed: refereeUserID=%s, error=%v", refereeUserID, err)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, subErrors.ErrCodeCreditRewardFailed)
	}

	if result.Rewarded {
		r.invalidateCreditCache(result.ReferrerUserID)
	}
	return result, nil
}

// ApplyDeduction 余额抵扣（单事务）
// 行锁下校验余额充足后扣减，并写入 used 流水
func (r *creditRepo) ApplyDeduction(ctx context.Context, userID string, amount float64, description, referenceID string) error {
	err := r.data.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var credit model.UserCredit
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("user_id = ?", userID).First(&credit).Error; err != nil {
			return err
		}
		if credit.AvailableCredits < amount {
			return fmt.Errorf("insufficient credits: available=%.2f, requested=%.2f", credit.AvailableCredits, amount)
		}

		if err := tx.Model(&model.UserCredit{}).
			Where("user_credit_id = ?", credit.UserCreditID).
			Updates(map[string]interface{}{
				"available_credits": gorm.Expr("available_credits - ?", amount),
				"used_credits":      gorm.Expr("used_credits + ?", amount),
			}).Error; err != nil {
			return err
		}

		if err := checkLedgerInvariant(tx, credit.UserCreditID); err != nil {
			return err
		}

		transaction := model.CreditTransaction{
			CreditTransactionID: uuid.New().String(),
			UserID:              userID,
			Type:                constants.CreditTransactionUsed,
			Amount:              amount,
			BalanceBefore:       credit.AvailableCredits,
			BalanceAfter:        credit.AvailableCredits - amount,
			ReferenceID:         referenceID,
			Description:         description,
		}
		return tx.Create(&transaction).Error
	})
	if err != nil {
		if errors.Is(err, biz.ErrLedgerInvariant) {
			return err
		}
		r.log.Errorf("ApplyDeduction failed: userID=%s, amount=%.2f, error=%v", userID, amount, err)
		return pkgErrors.NewBizErrorWithLang(ctx, subErrors.ErrCodeCreditDeductFailed)
	}

	r.invalidateCreditCache(userID)
	return nil
}

// checkLedgerInvariant 事务内校验账本守恒约束，违反时使事务回滚
func checkLedgerInvariant(tx *gorm.DB, userCreditID string) error {
	var credit model.UserCredit
	if err := tx.Where("user_credit_id = ?", userCreditID).First(&credit).Error; err != nil {
		return err
	}
	if credit.TotalEarned < 0 || credit.UsedCredits < 0 || credit.AvailableCredits < 0 {
		return biz.ErrLedgerInvariant
	}
	if math.Abs(credit.TotalEarned-(credit.UsedCredits+credit.AvailableCredits)) > 0.001 {
		return biz.ErrLedgerInvariant
	}
	return nil
}

// invalidateCreditCache 账本变更后删除余额缓存（设置超时避免阻塞）
func (r *creditRepo) invalidateCreditCache(userID string) {
	creditKey := fmt.Sprintf("%s%s", constants.RedisKeyUserCredit, userID)
	cacheCtx, cacheCancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cacheCancel()
	if err := r.data.rdb.Del(cacheCtx, creditKey).Err(); err != nil {
		r.log.Warnf("failed to invalidate credit cache: userID=%s, error=%v", userID, err)
	}
}
