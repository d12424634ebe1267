package constants

// 时间格式常量
const (
	// TimeFormatMonth 月份格式 (YYYY-MM)
	TimeFormatMonth = "2006-01"
	// TimeFormatDate 日期格式 (YYYY-MM-DD)
	TimeFormatDate = "2006-01-02"
)

// Redis Key 前缀常量
const (
	// RedisKeySubscriptionStatus 订阅状态缓存 key 前缀
	RedisKeySubscriptionStatus = "sub:status:"
	// RedisKeyUserCredit 用户返利余额缓存 key 前缀
	RedisKeyUserCredit = "credit:"
	// RedisKeyReconcileLock 对账锁 key 前缀（按用户串行化）
	RedisKeyReconcileLock = "reconcile:lock:"
)

// 订阅状态常量
const (
	// SubscriptionStatusFree 免费用户
	SubscriptionStatusFree = "Free"
	// SubscriptionStatusPro 付费用户
	SubscriptionStatusPro = "Pro"
	// SubscriptionStatusExpired 订阅过期
	SubscriptionStatusExpired = "Expired"
	// SubscriptionStatusRefunded 已退款
	SubscriptionStatusRefunded = "Refunded"
)

// 支付渠道常量
const (
	// ProviderStripe Stripe 渠道
	ProviderStripe = "stripe"
	// ProviderApple Apple IAP 渠道
	ProviderApple = "apple"
)

// Stripe webhook 事件类型常量
const (
	// StripeEventPaymentSucceeded 支付成功
	StripeEventPaymentSucceeded = "invoice.payment_succeeded"
	// StripeEventSubscriptionDeleted 订阅取消
	StripeEventSubscriptionDeleted = "customer.subscription.deleted"
)

// Apple 通知类型常量 (App Store Server Notifications V2)
const (
	// AppleNotificationDidRenew 自动续订成功
	AppleNotificationDidRenew = "DID_RENEW"
	// AppleNotificationSubscribed 新订阅或重新订阅
	AppleNotificationSubscribed = "SUBSCRIBED"
	// AppleNotificationExpired 订阅过期
	AppleNotificationExpired = "EXPIRED"
	// AppleNotificationRefund 退款
	AppleNotificationRefund = "REFUND"
	// AppleNotificationRenewalStatusChanged 用户开启/关闭自动续订
	AppleNotificationRenewalStatusChanged = "DID_CHANGE_RENEWAL_STATUS"
)

// Apple 收据校验状态常量
const (
	// AppleReceiptStatusOK 校验通过
	AppleReceiptStatusOK = 0
	// AppleReceiptStatusSandbox 沙盒收据，需改用沙盒环境重试
	AppleReceiptStatusSandbox = 21007
)

// 推荐记录状态常量
const (
	// ReferralStatusPending 待付费
	ReferralStatusPending = "pending"
	// ReferralStatusCompleted 已返利
	ReferralStatusCompleted = "completed"
	// ReferralStatusExpired 已失效
	ReferralStatusExpired = "expired"
)

// 返利流水类型常量
const (
	// CreditTransactionEarned 返利入账
	CreditTransactionEarned = "earned"
	// CreditTransactionUsed 抵扣消耗
	CreditTransactionUsed = "used"
	// CreditTransactionExpired 过期扣除
	CreditTransactionExpired = "expired"
)

// 邀请码字符集（去除易混淆字符 0/O, 1/I/L）
const (
	// ReferralCodeAlphabet 邀请码字符集
	ReferralCodeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"
	// ReferralCodeLength 邀请码长度
	ReferralCodeLength = 6
)

// 对账结果常量
const (
	// ReconcileResultApplied 已应用
	ReconcileResultApplied = "applied"
	// ReconcileResultIgnored 已忽略
	ReconcileResultIgnored = "ignored"
	// ReconcileResultError 处理失败
	ReconcileResultError = "error"
)

// 对账忽略原因常量
const (
	// ReasonUserNotFound 用户不存在（身份尚未同步，属预期情况）
	ReasonUserNotFound = "user_not_found"
	// ReasonUnhandledEvent 未识别的事件类型
	ReasonUnhandledEvent = "unhandled_event"
)

// 返利处理原因常量
const (
	// ReasonNoPendingReferral 没有待处理的推荐记录
	ReasonNoPendingReferral = "no_pending_referral"
	// ReasonUserNotPro 被邀请人与支付渠道客户不匹配
	ReasonUserNotPro = "user_not_pro"
	// ReasonNoCredits 无可用余额
	ReasonNoCredits = "no_credits"
)

// 回复状态常量
const (
	// ReplyStatusSuccess 成功
	ReplyStatusSuccess = "success"
	// ReplyStatusIgnored 忽略
	ReplyStatusIgnored = "ignored"
	// ReplyStatusError 错误
	ReplyStatusError = "error"
)
