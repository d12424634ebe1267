package errors

import (
	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	i18nPkg "github.com/gaoyong06/go-pkg/middleware/i18n"
)

func init() {
	// 初始化全局错误管理器（使用项目特定的配置）
	pkgErrors.InitGlobalErrorManager("i18n", i18nPkg.Language)
}

// Subscription Service 错误码定义
// 错误码格式：SSMMEE (6位数字)
//   SS: 服务标识，Subscription 固定为 20
//   MM: 模块标识，按业务划分
//   EE: 模块内错误序号
//
// 模块划分：
//   00: 通用模块（复用 go-pkg 通用错误码）
//   01: 订阅/用户模块
//   02: 配额模块
//   03: 推荐模块
//   04: 返利账本模块
//   05: 支付渠道模块
//   06: 同步/定时任务模块
//   07-99: 预留扩展

// 订阅/用户模块错误码 (200100-200199)
const (
	// ErrCodeUserNotFound 用户不存在
	ErrCodeUserNotFound = 200101
	// ErrCodeUserGetFailed 查询用户失败
	ErrCodeUserGetFailed = 200102
	// ErrCodeUserUpdateFailed 更新用户订阅状态失败
	ErrCodeUserUpdateFailed = 200103
	// ErrCodeUserCreateFailed 创建用户失败
	ErrCodeUserCreateFailed = 200104
)

// 配额模块错误码 (200200-200299)
const (
	// ErrCodeQuotaUpdateFailed 配额更新失败
	ErrCodeQuotaUpdateFailed = 200201
	// ErrCodeQuotaGetFailed 查询配额失败
	ErrCodeQuotaGetFailed = 200202
	// ErrCodeQuotaResetFailed 配额重置失败
	ErrCodeQuotaResetFailed = 200203
)

// 推荐模块错误码 (200300-200399)
const (
	// ErrCodeReferralCodeGetFailed 查询邀请码失败
	ErrCodeReferralCodeGetFailed = 200301
	// ErrCodeReferralCodeCreateFailed 创建邀请码失败
	ErrCodeReferralCodeCreateFailed = 200302
	// ErrCodeReferralCodeGenerateFailed 生成唯一邀请码失败
	ErrCodeReferralCodeGenerateFailed = 200303
	// ErrCodeReferralRecordCreateFailed 创建推荐记录失败
	ErrCodeReferralRecordCreateFailed = 200304
	// ErrCodeReferralRecordGetFailed 查询推荐记录失败
	ErrCodeReferralRecordGetFailed = 200305
	// ErrCodeReferralStatsFailed 查询推荐统计失败
	ErrCodeReferralStatsFailed = 200306
	// ErrCodeReferralExpireFailed 失效过期邀请码失败
	ErrCodeReferralExpireFailed = 200307
)

// 返利账本模块错误码 (200400-200499)
const (
	// ErrCodeCreditGetFailed 查询余额失败
	ErrCodeCreditGetFailed = 200401
	// ErrCodeCreditRewardFailed 返利入账失败
	ErrCodeCreditRewardFailed = 200402
	// ErrCodeCreditDeductFailed 余额抵扣失败
	ErrCodeCreditDeductFailed = 200403
	// ErrCodeCreditHistoryFailed 查询余额流水失败
	ErrCodeCreditHistoryFailed = 200404
)

// 支付渠道模块错误码 (200500-200599)
const (
	// ErrCodeStripeConfigNil Stripe 配置为空
	ErrCodeStripeConfigNil = 200501
	// ErrCodeStripeInvoiceItemFailed 创建 Stripe 抵扣项失败
	ErrCodeStripeInvoiceItemFailed = 200502
	// ErrCodeStripePortalFailed 创建 Stripe Portal 会话失败
	ErrCodeStripePortalFailed = 200503
	// ErrCodeAppleVerifyFailed Apple 收据校验调用失败
	ErrCodeAppleVerifyFailed = 200504
	// ErrCodeAppleConfigNil Apple 配置为空
	ErrCodeAppleConfigNil = 200505
)

// 同步/定时任务模块错误码 (200600-200699)
const (
	// ErrCodeSyncNewUsersFailed 新用户同步失败
	ErrCodeSyncNewUsersFailed = 200601
	// ErrCodeReconcileLockFailed 获取对账锁失败
	ErrCodeReconcileLockFailed = 200602
)
