package biz

import (
	"context"
	"errors"
	"testing"

	"subscription-service/internal/constants"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextStatus(t *testing.T) {
	uc := NewUserUseCase(&mockUserRepo{}, testBillingConfig(), testLogger())

	tests := []struct {
		name    string
		current string
		kind    EventKind
		want    string
	}{
		{"free upgrades on payment", "Free", EventKindPaymentSucceeded, "Pro"},
		{"expired returns to pro on renewal", "Expired", EventKindRenewed, "Pro"},
		{"refunded returns to pro on payment", "Refunded", EventKindPaymentSucceeded, "Pro"},
		{"pro stays pro on renewal", "Pro", EventKindRenewed, "Pro"},
		{"cancelled goes free", "Pro", EventKindSubscriptionCancelled, "Free"},
		{"expired notification", "Pro", EventKindExpired, "Expired"},
		{"refund notification", "Pro", EventKindRefunded, "Refunded"},
		{"renewal status change keeps pro", "Pro", EventKindRenewalStatusChanged, "Pro"},
		{"unknown keeps current", "Expired", EventKindUnknown, "Expired"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := uc.NextStatus(tt.current, &BillingEvent{Kind: tt.kind})
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNextStatusIdempotent(t *testing.T) {
	uc := NewUserUseCase(&mockUserRepo{}, testBillingConfig(), testLogger())
	event := &BillingEvent{Kind: EventKindRenewed}

	first := uc.NextStatus("Free", event)
	second := uc.NextStatus(first, event)
	assert.Equal(t, first, second, "replaying the same event must not change the outcome")
}

func TestNextStatusDowngradeOnRenewalStatusChange(t *testing.T) {
	conf := testBillingConfig()
	conf.DowngradeOnRenewalStatusChange = true
	uc := NewUserUseCase(&mockUserRepo{}, conf, testLogger())

	got := uc.NextStatus("Pro", &BillingEvent{Kind: EventKindRenewalStatusChanged})
	assert.Equal(t, constants.SubscriptionStatusFree, got)
}

func TestLookupByEvent(t *testing.T) {
	ctx := context.Background()
	repo := &mockUserRepo{
		getByUserID: func(ctx context.Context, userID string) (*User, error) {
			return &User{UserID: userID}, nil
		},
		getByEmailHash: func(ctx context.Context, emailHash string) (*User, error) {
			return &User{UserID: "by-email"}, nil
		},
		getByAppleCustomerID: func(ctx context.Context, otid string) (*User, error) {
			return &User{UserID: "by-apple"}, nil
		},
		getByStripeCustomerID: func(ctx context.Context, customerID string) (*User, error) {
			return &User{UserID: "by-stripe"}, nil
		},
	}
	uc := NewUserUseCase(repo, testBillingConfig(), testLogger())

	t.Run("direct user id wins", func(t *testing.T) {
		user, err := uc.LookupByEvent(ctx, &BillingEvent{UserID: "u1", EmailHash: "h", ProviderCustomerID: "c"})
		require.NoError(t, err)
		assert.Equal(t, "u1", user.UserID)
	})

	t.Run("email fingerprint second", func(t *testing.T) {
		user, err := uc.LookupByEvent(ctx, &BillingEvent{EmailHash: "h", ProviderCustomerID: "c", Provider: constants.ProviderStripe})
		require.NoError(t, err)
		assert.Equal(t, "by-email", user.UserID)
	})

	t.Run("apple customer id", func(t *testing.T) {
		user, err := uc.LookupByEvent(ctx, &BillingEvent{Provider: constants.ProviderApple, ProviderCustomerID: "otid"})
		require.NoError(t, err)
		assert.Equal(t, "by-apple", user.UserID)
	})

	t.Run("stripe customer id", func(t *testing.T) {
		user, err := uc.LookupByEvent(ctx, &BillingEvent{Provider: constants.ProviderStripe, ProviderCustomerID: "cus"})
		require.NoError(t, err)
		assert.Equal(t, "by-stripe", user.UserID)
	})

	t.Run("no identifier", func(t *testing.T) {
		_, err := uc.LookupByEvent(ctx, &BillingEvent{})
		assert.ErrorIs(t, err, ErrMissingIdentifier)
	})
}

func TestSyncNewUsers(t *testing.T) {
	ctx := context.Background()

	t.Run("creates rows for unsynced users", func(t *testing.T) {
		var created []*User
		repo := &mockUserRepo{
			listUnsyncedAuthUsers: func(ctx context.Context) ([]*AuthUser, error) {
				return []*AuthUser{
					{ID: "u1", Email: "a@example.com"},
					{ID: "u2", Email: "b@example.com"},
				}, nil
			},
			createUserWithQuotas: func(ctx context.Context, user *User) error {
				created = append(created, user)
				return nil
			},
		}
		conf := testBillingConfig()
		conf.VirtualBoxDomain = "inbox.test"
		uc := NewUserUseCase(repo, conf, testLogger())

		synced, err := uc.SyncNewUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, synced)
		require.Len(t, created, 2)
		assert.Equal(t, constants.SubscriptionStatusFree, created[0].SubscriptionStatus)
		assert.Equal(t, EmailFingerprint("a@example.com", conf.EmailSalt), created[0].EmailHash)
		assert.Equal(t, "u1@inbox.test", created[0].VirtualBox)
	})

	t.Run("create failure does not abort the batch", func(t *testing.T) {
		repo := &mockUserRepo{
			listUnsyncedAuthUsers: func(ctx context.Context) ([]*AuthUser, error) {
				return []*AuthUser{{ID: "u1"}, {ID: "u2"}}, nil
			},
			createUserWithQuotas: func(ctx context.Context, user *User) error {
				if user.UserID == "u1" {
					return errors.New("duplicate")
				}
				return nil
			},
		}
		uc := NewUserUseCase(repo, testBillingConfig(), testLogger())

		synced, err := uc.SyncNewUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, synced)
	})

	t.Run("nothing to sync", func(t *testing.T) {
		uc := NewUserUseCase(&mockUserRepo{}, testBillingConfig(), testLogger())
		synced, err := uc.SyncNewUsers(ctx)
		require.NoError(t, err)
		assert.Zero(t, synced)
	})
}
