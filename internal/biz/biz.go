package biz

import "github.com/google/wire"

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewBillingConfig,
	NewEventNormalizer,
	NewUserUseCase,
	NewQuotaUseCase,
	NewReferralUseCase,
	NewCreditUseCase,
	NewReceiptUseCase,
	NewReconcileUseCase, // 组合 UseCase
)
