package data

import (
	"context"
	"errors"
	"time"

	"subscription-service/internal/biz"
	"subscription-service/internal/data/model"
	subErrors "subscription-service/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// referralRepo 推荐数据访问
type referralRepo struct {
	data *Data
	log  *log.Helper
}

// NewReferralRepo 创建推荐 repo（返回 biz.ReferralRepo 接口）
func NewReferralRepo(data *Data, logger log.Logger) biz.ReferralRepo {
	return &referralRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// toBizCode model 转领域对象
func toBizCode(m *model.ReferralCode) *biz.ReferralCode {
	return &biz.ReferralCode{
		ID:        m.ReferralCodeID,
		UserID:    m.UserID,
		Code:      m.Code,
		IsActive:  m.IsActive,
		ExpiresAt: m.ExpiresAt,
		CreatedAt: m.CreatedAt,
	}
}

// toBizRecord model 转领域对象
func toBizRecord(m *model.ReferralRecord) *biz.ReferralRecord {
	return &biz.ReferralRecord{
		ID:             m.ReferralRecordID,
		ReferrerUserID: m.ReferrerUserID,
		RefereeUserID:  m.RefereeUserID,
		Code:           m.Code,
		Status:         m.Status,
		RewardAmount:   m.RewardAmount,
		CompletedAt:    m.CompletedAt,
		CreatedAt:      m.CreatedAt,
	}
}

// GetCodeByUserID 按用户获取邀请码
func (r *referralRepo) GetCodeByUserID(ctx context.Context, userID string) (*biz.ReferralCode, error) {
	var m model.ReferralCode
	if err := r.data.db.WithContext(ctx).Where("user_id = ?", userID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Errorf("GetCodeByUserID failed: userID=%s, error=%v", userID, err)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, subErrors.ErrCodeReferralCodeGetFailed)
	}
	return toBizCode(&m), nil
}

// GetCodeByCode 按码值获取邀请码
func (r *referralRepo) GetCodeByCode(ctx context.Context, code string) (*biz.ReferralCode, error) {
	var m model.ReferralCode
	if err := r.data.db.WithContext(ctx).Where("code = ?", code).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Errorf("GetCodeByCode failed: code=%s, error=%v", code, err)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, subErrors.ErrCodeReferralCodeGetFailed)
	}
	return toBizCode(&m), nil
}

// CreateCode 创建邀请码
func (r *referralRepo) CreateCode(ctx context.Context, code *biz.ReferralCode) error {
	m := model.ReferralCode{
		ReferralCodeID: uuid.New().String(),
		UserID:         code.UserID,
		Code:           code.Code,
		IsActive:       code.IsActive,
		ExpiresAt:      code.ExpiresAt,
	}
	if err := r.data.db.WithContext(ctx).Create(&m).Error; err != nil {
		r.log.Errorf("CreateCode failed: userID=%s, error=%v", code.UserID, err)
		return pkgErrors.NewBizErrorWithLang(ctx, subErrors.ErrCodeReferralCodeCreateFailed)
	}
	code.ID = m.ReferralCodeID
	code.CreatedAt = m.CreatedAt
	return nil
}

// GetRecordByReferee 按被邀请人获取推荐记录
func (r *referralRepo) GetRecordByReferee(ctx context.Context, refereeUserID string) (*biz.ReferralRecord, error) {
	var m model.ReferralRecord
	if err := r.data.db.WithContext(ctx).Where("referee_user_id = ?", refereeUserID).First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.Errorf("GetRecordByReferee failed: refereeUserID=%s, error=%v", refereeUserID, err)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, subErrors.ErrCodeReferralRecordGetFailed)
	}
	return toBizRecord(&m), nil
}

// CreateRecord 创建推荐记录
// referee_user_id 唯一索引兜底并发重复绑定，冲突返回 ErrAlreadyBound
func (r *referralRepo) CreateRecord(ctx context.Context, record *biz.ReferralRecord) error {
	m := model.ReferralRecord{
		ReferralRecordID: uuid.New().String(),
		ReferrerUserID:   record.ReferrerUserID,
		RefereeUserID:    record.RefereeUserID,
		Code:             record.Code,
		Status:           record.Status,
		RewardAmount:     record.RewardAmount,
	}
	if err := r.data.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return biz.ErrAlreadyBound
		}
		r.log.Errorf("CreateRecord failed: refereeUserID=%s, error=%v", record.RefereeUserID, err)
		return pkgErrors.NewBizErrorWithLang(ctx, subErrors.ErrCodeReferralRecordCreateFailed)
	}
	record.ID = m.ReferralRecordID
	record.CreatedAt = m.CreatedAt
	return nil
}

// CountRecordsByReferrer 统计推荐人的推荐记录数，status 为空表示不过滤
func (r *referralRepo) CountRecordsByReferrer(ctx context.Context, referrerUserID, status string) (int64, error) {
	var count int64
	db := r.data.db.WithContext(ctx).Model(&model.ReferralRecord{}).
		Where("referrer_user_id = ?", referrerUserID)
	if status != "" {
		db = db.Where("status = ?", status)
	}
	if err := db.Count(&count).Error; err != nil {
		r.log.Errorf("CountRecordsByReferrer failed: referrerUserID=%s, error=%v", referrerUserID, err)
		return 0, pkgErrors.NewBizErrorWithLang(ctx, subErrors.ErrCodeReferralStatsFailed)
	}
	return count, nil
}

// ExpireCodes 批量停用过期邀请码
func (r *referralRepo) ExpireCodes(ctx context.Context, now time.Time) (int64, error) {
	result := r.data.db.WithContext(ctx).Model(&model.ReferralCode{}).
		Where("is_active = ? AND expires_at IS NOT NULL AND expires_at < ?", true, now).
		Update("is_active", false)
	if result.Error != nil {
		r.log.Errorf("ExpireCodes failed: error=%v", result.Error)
		return 0, pkgErrors.NewBizErrorWithLang(ctx, subErrors.ErrCodeReferralExpireFailed)
	}
	return result.RowsAffected, nil
}
