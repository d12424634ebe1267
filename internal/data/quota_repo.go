package data

import (
	"context"
	"errors"
	"fmt"
	"time"

	"subscription-service/internal/biz"
	"subscription-service/internal/data/model"
	subErrors "subscription-service/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"
)

// quotaRepo 配额数据访问
type quotaRepo struct {
	data *Data
	log  *log.Helper
}

// NewQuotaRepo 创建配额 repo（返回 biz.QuotaRepo 接口）
func NewQuotaRepo(data *Data, logger log.Logger) biz.QuotaRepo {
	return &quotaRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// GetRequestQuota 获取请求配额
func (r *quotaRepo) GetRequestQuota(ctx context.Context, userID string) (*biz.Quota, error) {
	if userID == "" {
		return nil, fmt.Errorf("userID is required")
	}
	var m model.RequestUsageQuota
	if err := r.data.db.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Errorf("GetRequestQuota failed: userID=%s, error=%v", userID, err)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, subErrors.ErrCodeQuotaGetFailed)
	}
	return &biz.Quota{
		UserID:     m.UserID,
		MonthLimit: m.MonthLimit,
		UsedMonth:  m.UsedMonth,
	}, nil
}

// GetReceiptQuota 获取小票识别配额
func (r *quotaRepo) GetReceiptQuota(ctx context.Context, userID string) (*biz.Quota, error) {
	if userID == "" {
		return nil, fmt.Errorf("userID is required")
	}
	var m model.ReceiptUsageQuota
	if err := r.data.db.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Errorf("GetReceiptQuota failed: userID=%s, error=%v", userID, err)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, subErrors.ErrCodeQuotaGetFailed)
	}
	return &biz.Quota{
		UserID:     m.UserID,
		MonthLimit: m.MonthLimit,
		UsedMonth:  m.UsedMonth,
	}, nil
}

// ResetMonthlyUsage 月初清零所有用户的当月用量
func (r *quotaRepo) ResetMonthlyUsage(ctx context.Context) (int64, error) {
	start := time.Now()
	var total int64

	result := r.data.db.WithContext(ctx).Model(&model.RequestUsageQuota{}).
		Where("used_month > 0").
		Update("used_month", 0)
	if result.Error != nil {
		r.log.Errorf("ResetMonthlyUsage request quota failed: error=%v", result.Error)
		return 0, pkgErrors.NewBizErrorWithLang(ctx, subErrors.ErrCodeQuotaResetFailed)
	}
	total += result.RowsAffected

	result = r.data.db.WithContext(ctx).Model(&model.ReceiptUsageQuota{}).
		Where("used_month > 0").
		Update("used_month", 0)
	if result.Error != nil {
		r.log.Errorf("ResetMonthlyUsage receipt quota failed: error=%v", result.Error)
		return 0, pkgErrors.NewBizErrorWithLang(ctx, subErrors.ErrCodeQuotaResetFailed)
	}
	total += result.RowsAffected

	r.log.Infof("ResetMonthlyUsage done: affected=%d, cost=%v", total, time.Since(start))
	return total, nil
}
