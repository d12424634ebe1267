package biz

import (
	"context"
	"time"
)

// mockUserRepo 可按测试用例注入行为的 UserRepo
type mockUserRepo struct {
	getByUserID           func(ctx context.Context, userID string) (*User, error)
	getByEmailHash        func(ctx context.Context, emailHash string) (*User, error)
	getByStripeCustomerID func(ctx context.Context, customerID string) (*User, error)
	getByAppleCustomerID  func(ctx context.Context, originalTransactionID string) (*User, error)
	applyStatusAndQuota   func(ctx context.Context, userID, status, provider, providerCustomerID string, limits QuotaLimits) error
	listUnsyncedAuthUsers func(ctx context.Context) ([]*AuthUser, error)
	createUserWithQuotas  func(ctx context.Context, user *User) error
}

func (m *mockUserRepo) GetByUserID(ctx context.Context, userID string) (*User, error) {
	if m.getByUserID != nil {
		return m.getByUserID(ctx, userID)
	}
	return nil, nil
}

func (m *mockUserRepo) GetByEmailHash(ctx context.Context, emailHash string) (*User, error) {
	if m.getByEmailHash != nil {
		return m.getByEmailHash(ctx, emailHash)
	}
	return nil, nil
}

func (m *mockUserRepo) GetByStripeCustomerID(ctx context.Context, customerID string) (*User, error) {
	if m.getByStripeCustomerID != nil {
		return m.getByStripeCustomerID(ctx, customerID)
	}
	return nil, nil
}

func (m *mockUserRepo) GetByAppleCustomerID(ctx context.Context, originalTransactionID string) (*User, error) {
	if m.getByAppleCustomerID != nil {
		return m.getByAppleCustomerID(ctx, originalTransactionID)
	}
	return nil, nil
}

func (m *mockUserRepo) ApplyStatusAndQuota(ctx context.Context, userID, status, provider, providerCustomerID string, limits QuotaLimits) error {
	if m.applyStatusAndQuota != nil {
		return m.applyStatusAndQuota(ctx, userID, status, provider, providerCustomerID, limits)
	}
	return nil
}

func (m *mockUserRepo) ListUnsyncedAuthUsers(ctx context.Context) ([]*AuthUser, error) {
	if m.listUnsyncedAuthUsers != nil {
		return m.listUnsyncedAuthUsers(ctx)
	}
	return nil, nil
}

func (m *mockUserRepo) CreateUserWithQuotas(ctx context.Context, user *User) error {
	if m.createUserWithQuotas != nil {
		return m.createUserWithQuotas(ctx, user)
	}
	return nil
}

// mockQuotaRepo 可按测试用例注入行为的 QuotaRepo
type mockQuotaRepo struct {
	getRequestQuota   func(ctx context.Context, userID string) (*Quota, error)
	getReceiptQuota   func(ctx context.Context, userID string) (*Quota, error)
	resetMonthlyUsage func(ctx context.Context) (int64, error)
}

func (m *mockQuotaRepo) GetRequestQuota(ctx context.Context, userID string) (*Quota, error) {
	if m.getRequestQuota != nil {
		return m.getRequestQuota(ctx, userID)
	}
	return nil, nil
}

func (m *mockQuotaRepo) GetReceiptQuota(ctx context.Context, userID string) (*Quota, error) {
	if m.getReceiptQuota != nil {
		return m.getReceiptQuota(ctx, userID)
	}
	return nil, nil
}

func (m *mockQuotaRepo) ResetMonthlyUsage(ctx context.Context) (int64, error) {
	if m.resetMonthlyUsage != nil {
		return m.resetMonthlyUsage(ctx)
	}
	return 0, nil
}

// mockReferralRepo 可按测试用例注入行为的 ReferralRepo
type mockReferralRepo struct {
	getCodeByUserID        func(ctx context.Context, userID string) (*ReferralCode, error)
	getCodeByCode          func(ctx context.Context, code string) (*ReferralCode, error)
	createCode             func(ctx context.Context, code *ReferralCode) error
	getRecordByReferee     func(ctx context.Context, refereeUserID string) (*ReferralRecord, error)
	createRecord           func(ctx context.Context, record *ReferralRecord) error
	countRecordsByReferrer func(ctx context.Context, referrerUserID, status string) (int64, error)
	expireCodes            func(ctx context.Context, now time.Time) (int64, error)
}

func (m *mockReferralRepo) GetCodeByUserID(ctx context.Context, userID string) (*ReferralCode, error) {
	if m.getCodeByUserID != nil {
		return m.getCodeByUserID(ctx, userID)
	}
	return nil, nil
}

func (m *mockReferralRepo) GetCodeByCode(ctx context.Context, code string) (*ReferralCode, error) {
	if m.getCodeByCode != nil {
		return m.getCodeByCode(ctx, code)
	}
	return nil, nil
}

func (m *mockReferralRepo) CreateCode(ctx context.Context, code *ReferralCode) error {
	if m.createCode != nil {
		return m.createCode(ctx, code)
	}
	return nil
}

func (m *mockReferralRepo) GetRecordByReferee(ctx context.Context, refereeUserID string) (*ReferralRecord, error) {
	if m.getRecordByReferee != nil {
		return m.getRecordByReferee(ctx, refereeUserID)
	}
	return nil, nil
}

func (m *mockReferralRepo) CreateRecord(ctx context.Context, record *ReferralRecord) error {
	if m.createRecord != nil {
		return m.createRecord(ctx, record)
	}
	return nil
}

func (m *mockReferralRepo) CountRecordsByReferrer(ctx context.Context, referrerUserID, status string) (int64, error) {
	if m.countRecordsByReferrer != nil {
		return m.countRecordsByReferrer(ctx, referrerUserID, status)
	}
	return 0, nil
}

func (m *mockReferralRepo) ExpireCodes(ctx context.Context, now time.Time) (int64, error) {
	if m.expireCodes != nil {
		return m.expireCodes(ctx, now)
	}
	return 0, nil
}

// mockCreditRepo 可按测试用例注入行为的 CreditRepo
type mockCreditRepo struct {
	getUserCredit    func(ctx context.Context, userID string) (*UserCredit, error)
	listTransactions func(ctx context.Context, userID string, limit int) ([]*CreditTransaction, error)
	rewardReferral   func(ctx context.Context, refereeUserID string) (*RewardResult, error)
	applyDeduction   func(ctx context.Context, userID string, amount float64, description, referenceID string) error
}

func (m *mockCreditRepo) GetUserCredit(ctx context.Context, userID string) (*UserCredit, error) {
	if m.getUserCredit != nil {
		return m.getUserCredit(ctx, userID)
	}
	return nil, nil
}

func (m *mockCreditRepo) ListTransactions(ctx context.Context, userID string, limit int) ([]*CreditTransaction, error) {
	if m.listTransactions != nil {
		return m.listTransactions(ctx, userID, limit)
	}
	return nil, nil
}

func (m *mockCreditRepo) RewardReferral(ctx context.Context, refereeUserID string) (*RewardResult, error) {
	if m.rewardReferral != nil {
		return m.rewardReferral(ctx, refereeUserID)
	}
	return &RewardResult{}, nil
}

func (m *mockCreditRepo) ApplyDeduction(ctx context.Context, userID string, amount float64, description, referenceID string) error {
	if m.applyDeduction != nil {
		return m.applyDeduction(ctx, userID, amount, description, referenceID)
	}
	return nil
}

// mockStripeGateway 可按测试用例注入行为的 StripeGateway
type mockStripeGateway struct {
	verifyWebhookSignature  func(payload []byte, signature string) ([]byte, error)
	createCreditInvoiceItem func(ctx context.Context, customerID string, amountCents int64, description string) error
	createPortalSession     func(ctx context.Context, customerID string) (string, error)
}

func (m *mockStripeGateway) VerifyWebhookSignature(payload []byte, signature string) ([]byte, error) {
	if m.verifyWebhookSignature != nil {
		return m.verifyWebhookSignature(payload, signature)
	}
	return payload, nil
}

func (m *mockStripeGateway) CreateCreditInvoiceItem(ctx context.Context, customerID string, amountCents int64, description string) error {
	if m.createCreditInvoiceItem != nil {
		return m.createCreditInvoiceItem(ctx, customerID, amountCents, description)
	}
	return nil
}

func (m *mockStripeGateway) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	if m.createPortalSession != nil {
		return m.createPortalSession(ctx, customerID)
	}
	return "", nil
}

// mockAppleVerifier 可按测试用例注入行为的 AppleVerifier
type mockAppleVerifier struct {
	verifyReceipt func(ctx context.Context, receiptData string) (*AppleReceiptResponse, error)
}

func (m *mockAppleVerifier) VerifyReceipt(ctx context.Context, receiptData string) (*AppleReceiptResponse, error) {
	if m.verifyReceipt != nil {
		return m.verifyReceipt(ctx, receiptData)
	}
	return &AppleReceiptResponse{}, nil
}

// mockLocker 直接放行的用户锁
type mockLocker struct {
	lock func(ctx context.Context, userID string) (func(), error)
}

func (m *mockLocker) Lock(ctx context.Context, userID string) (func(), error) {
	if m.lock != nil {
		return m.lock(ctx, userID)
	}
	return func() {}, nil
}
