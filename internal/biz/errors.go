package biz

import (
	kerrors "github.com/go-kratos/kratos/v2/errors"
)

// 业务错误（带判别 reason，供 HTTP 层直接映射状态码）
var (
	// ErrMalformedToken 签名 token 格式错误（非 3 段或 payload 无法解码）
	ErrMalformedToken = kerrors.BadRequest("MALFORMED_TOKEN", "invalid signed token")
	// ErrMissingIdentifier 事件中缺少用户标识
	ErrMissingIdentifier = kerrors.BadRequest("MISSING_IDENTIFIER", "missing user identifier in event")
	// ErrUserNotFound 用户不存在
	ErrUserNotFound = kerrors.NotFound("USER_NOT_FOUND", "user not found")
	// ErrCodeNotFound 邀请码不存在
	ErrCodeNotFound = kerrors.NotFound("CODE_NOT_FOUND", "invalid referral code")
	// ErrCodeInactive 邀请码已停用
	ErrCodeInactive = kerrors.BadRequest("CODE_INACTIVE", "referral code is inactive")
	// ErrCodeExpired 邀请码已过期
	ErrCodeExpired = kerrors.BadRequest("CODE_EXPIRED", "referral code has expired")
	// ErrSelfReferral 不能使用自己的邀请码
	ErrSelfReferral = kerrors.BadRequest("SELF_REFERRAL", "cannot use your own referral code")
	// ErrAlreadyBound 被邀请人已绑定过邀请码
	ErrAlreadyBound = kerrors.Conflict("ALREADY_BOUND", "you have already used a referral code")
	// ErrAlreadyPaid 被邀请人已是付费用户，不允许再绑定
	ErrAlreadyPaid = kerrors.BadRequest("ALREADY_PAID", "cannot bind referral code after subscription")
	// ErrReceiptBoundElsewhere 该购买凭证已绑定其他账号
	ErrReceiptBoundElsewhere = kerrors.Conflict("RECEIPT_BOUND_ELSEWHERE", "this purchase is already linked to another account")
	// ErrReceiptVerifyFailed Apple 收据校验未通过
	ErrReceiptVerifyFailed = kerrors.BadRequest("RECEIPT_VERIFY_FAILED", "apple receipt verification failed")
	// ErrLedgerInvariant 账本守恒校验失败（total != used + available 或出现负值）
	// 出现即说明事务纪律被破坏，整个事务回滚，不做原地修补
	ErrLedgerInvariant = kerrors.InternalServer("LEDGER_INVARIANT_VIOLATION", "credit ledger invariant violated")
)
