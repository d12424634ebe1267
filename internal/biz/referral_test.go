package biz

import (
	"context"
	"strings"
	"testing"
	"time"

	"subscription-service/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newReferralUseCase(repo ReferralRepo, userRepo UserRepo) *ReferralUseCase {
	return NewReferralUseCase(repo, userRepo, &mockCreditRepo{}, testBillingConfig(), testLogger())
}

func existingUser(userID, status string) *mockUserRepo {
	return &mockUserRepo{
		getByUserID: func(ctx context.Context, id string) (*User, error) {
			return &User{UserID: id, SubscriptionStatus: status}, nil
		},
	}
}

func TestGetOrCreateCode(t *testing.T) {
	ctx := context.Background()

	t.Run("returns existing code", func(t *testing.T) {
		repo := &mockReferralRepo{
			getCodeByUserID: func(ctx context.Context, userID string) (*ReferralCode, error) {
				return &ReferralCode{UserID: userID, Code: "ABCDEF", IsActive: true}, nil
			},
		}
		uc := newReferralUseCase(repo, existingUser("u1", "Free"))

		code, err := uc.GetOrCreateCode(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "ABCDEF", code.Code)
	})

	t.Run("generates code from restricted alphabet", func(t *testing.T) {
		var created *ReferralCode
		repo := &mockReferralRepo{
			createCode: func(ctx context.Context, code *ReferralCode) error {
				created = code
				return nil
			},
		}
		uc := newReferralUseCase(repo, existingUser("u1", "Free"))

		code, err := uc.GetOrCreateCode(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Len(t, code.Code, constants.ReferralCodeLength)
		for _, c := range code.Code {
			assert.True(t, strings.ContainsRune(constants.ReferralCodeAlphabet, c),
				"code contains character outside alphabet: %c", c)
		}
		assert.True(t, code.IsActive)
		require.NotNil(t, code.ExpiresAt)
		assert.WithinDuration(t, time.Now().AddDate(0, 0, 365), *code.ExpiresAt, time.Minute)
	})

	t.Run("retries on code collision", func(t *testing.T) {
		calls := 0
		repo := &mockReferralRepo{
			getCodeByCode: func(ctx context.Context, code string) (*ReferralCode, error) {
				calls++
				if calls == 1 {
					return &ReferralCode{Code: code}, nil
				}
				return nil, nil
			},
		}
		uc := newReferralUseCase(repo, existingUser("u1", "Free"))

		_, err := uc.GetOrCreateCode(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, 2, calls)
	})

	t.Run("user not found", func(t *testing.T) {
		uc := newReferralUseCase(&mockReferralRepo{}, &mockUserRepo{})
		_, err := uc.GetOrCreateCode(ctx, "ghost")
		assert.ErrorIs(t, err, ErrUserNotFound)
	})
}

func TestBind(t *testing.T) {
	ctx := context.Background()

	activeCode := func(ownerID string) *ReferralCode {
		expiresAt := time.Now().AddDate(0, 0, 30)
		return &ReferralCode{UserID: ownerID, Code: "ABCDEF", IsActive: true, ExpiresAt: &expiresAt}
	}

	t.Run("success creates pending record", func(t *testing.T) {
		var created *ReferralRecord
		repo := &mockReferralRepo{
			getCodeByCode: func(ctx context.Context, code string) (*ReferralCode, error) {
				return activeCode("referrer"), nil
			},
			createRecord: func(ctx context.Context, record *ReferralRecord) error {
				created = record
				return nil
			},
		}
		uc := newReferralUseCase(repo, existingUser("referee", "Free"))

		record, err := uc.Bind(ctx, "referee", "ABCDEF")
		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, "referrer", record.ReferrerUserID)
		assert.Equal(t, "referee", record.RefereeUserID)
		assert.Equal(t, constants.ReferralStatusPending, record.Status)
		assert.Equal(t, 1.00, record.RewardAmount)
	})

	t.Run("already bound", func(t *testing.T) {
		repo := &mockReferralRepo{
			getRecordByReferee: func(ctx context.Context, refereeUserID string) (*ReferralRecord, error) {
				return &ReferralRecord{RefereeUserID: refereeUserID}, nil
			},
		}
		uc := newReferralUseCase(repo, existingUser("referee", "Free"))
		_, err := uc.Bind(ctx, "referee", "ABCDEF")
		assert.ErrorIs(t, err, ErrAlreadyBound)
	})

	t.Run("code not found", func(t *testing.T) {
		uc := newReferralUseCase(&mockReferralRepo{}, existingUser("referee", "Free"))
		_, err := uc.Bind(ctx, "referee", "NOPE42")
		assert.ErrorIs(t, err, ErrCodeNotFound)
	})

	t.Run("code inactive", func(t *testing.T) {
		repo := &mockReferralRepo{
			getCodeByCode: func(ctx context.Context, code string) (*ReferralCode, error) {
				c := activeCode("referrer")
				c.IsActive = false
				return c, nil
			},
		}
		uc := newReferralUseCase(repo, existingUser("referee", "Free"))
		_, err := uc.Bind(ctx, "referee", "ABCDEF")
		assert.ErrorIs(t, err, ErrCodeInactive)
	})

	t.Run("code expired", func(t *testing.T) {
		repo := &mockReferralRepo{
			getCodeByCode: func(ctx context.Context, code string) (*ReferralCode, error) {
				expired := time.Now().Add(-time.Hour)
				return &ReferralCode{UserID: "referrer", Code: code, IsActive: true, ExpiresAt: &expired}, nil
			},
		}
		uc := newReferralUseCase(repo, existingUser("referee", "Free"))
		_, err := uc.Bind(ctx, "referee", "ABCDEF")
		assert.ErrorIs(t, err, ErrCodeExpired)
	})

	t.Run("self referral", func(t *testing.T) {
		repo := &mockReferralRepo{
			getCodeByCode: func(ctx context.Context, code string) (*ReferralCode, error) {
				return activeCode("referee"), nil
			},
		}
		uc := newReferralUseCase(repo, existingUser("referee", "Free"))
		_, err := uc.Bind(ctx, "referee", "ABCDEF")
		assert.ErrorIs(t, err, ErrSelfReferral)
	})

	t.Run("already paid referee", func(t *testing.T) {
		repo := &mockReferralRepo{
			getCodeByCode: func(ctx context.Context, code string) (*ReferralCode, error) {
				return activeCode("referrer"), nil
			},
		}
		uc := newReferralUseCase(repo, existingUser("referee", "Pro"))
		_, err := uc.Bind(ctx, "referee", "ABCDEF")
		assert.ErrorIs(t, err, ErrAlreadyPaid)
	})

	t.Run("concurrent duplicate surfaces from repo", func(t *testing.T) {
		repo := &mockReferralRepo{
			getCodeByCode: func(ctx context.Context, code string) (*ReferralCode, error) {
				return activeCode("referrer"), nil
			},
			createRecord: func(ctx context.Context, record *ReferralRecord) error {
				return ErrAlreadyBound
			},
		}
		uc := newReferralUseCase(repo, existingUser("referee", "Free"))
		_, err := uc.Bind(ctx, "referee", "ABCDEF")
		assert.ErrorIs(t, err, ErrAlreadyBound)
	})
}

func TestStats(t *testing.T) {
	repo := &mockReferralRepo{
		countRecordsByReferrer: func(ctx context.Context, referrerUserID, status string) (int64, error) {
			switch status {
			case constants.ReferralStatusCompleted:
				return 3, nil
			case constants.ReferralStatusPending:
				return 2, nil
			}
			return 10, nil
		},
	}

	t.Run("earned comes from the ledger, not count times config", func(t *testing.T) {
		// 历史发放金额与当前配置的 1.00 不同，统计以账本为准
		creditRepo := &mockCreditRepo{
			getUserCredit: func(ctx context.Context, userID string) (*UserCredit, error) {
				return &UserCredit{UserID: userID, TotalEarned: 7.50, AvailableCredits: 7.50}, nil
			},
		}
		uc := NewReferralUseCase(repo, &mockUserRepo{}, creditRepo, testBillingConfig(), testLogger())

		stats, err := uc.Stats(context.Background(), "referrer")
		require.NoError(t, err)
		assert.Equal(t, 10, stats.TotalInvited)
		assert.Equal(t, 3, stats.TotalPaid)
		assert.Equal(t, 2, stats.Pending)
		assert.Equal(t, 7.50, stats.TotalEarned)
	})

	t.Run("no ledger row means zero earned", func(t *testing.T) {
		uc := NewReferralUseCase(repo, &mockUserRepo{}, &mockCreditRepo{}, testBillingConfig(), testLogger())

		stats, err := uc.Stats(context.Background(), "referrer")
		require.NoError(t, err)
		assert.Zero(t, stats.TotalEarned)
	})
}
