package biz

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"testing"

	"subscription-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBillingConfig() *BillingConfig {
	return &BillingConfig{
		EmailSalt:            "test-salt",
		ProMonthLimit:        100,
		FreeMonthLimit:       0,
		ReferralRewardAmount: 1.00,
		CodeExpiryDays:       365,
		CodeLength:           constants.ReferralCodeLength,
		CodeAlphabet:         constants.ReferralCodeAlphabet,
	}
}

func testLogger() log.Logger {
	return log.NewStdLogger(io.Discard)
}

// makeJWS 构造测试用 JWS token（签名段为占位，解码不校验签名）
func makeJWS(t *testing.T, payload interface{}) string {
	t.Helper()
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"ES256"}`))
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return header + "." + base64.RawURLEncoding.EncodeToString(body) + ".c2lnbmF0dXJl"
}

func TestEmailFingerprint(t *testing.T) {
	a := EmailFingerprint("User@Example.COM", "salt")
	b := EmailFingerprint("user@example.com", "salt")
	assert.Equal(t, a, b, "fingerprint should be case-insensitive on email")
	assert.Len(t, a, 64)

	c := EmailFingerprint("user@example.com", "other-salt")
	assert.NotEqual(t, a, c, "different salt should change fingerprint")
}

func TestDecodeJWSPayload(t *testing.T) {
	type payload struct {
		Value string `json:"value"`
	}

	t.Run("valid token", func(t *testing.T) {
		token := makeJWS(t, payload{Value: "hello"})
		var out payload
		require.NoError(t, DecodeJWSPayload(token, &out))
		assert.Equal(t, "hello", out.Value)
	})

	t.Run("payload with stripped padding", func(t *testing.T) {
		// 长度不是 3 的倍数的 JSON，base64url 编码后缺省 padding
		token := makeJWS(t, payload{Value: "ab"})
		var out payload
		require.NoError(t, DecodeJWSPayload(token, &out))
		assert.Equal(t, "ab", out.Value)
	})

	t.Run("wrong segment count", func(t *testing.T) {
		var out payload
		err := DecodeJWSPayload("only.two", &out)
		assert.ErrorIs(t, err, ErrMalformedToken)

		err = DecodeJWSPayload("a.b.c.d", &out)
		assert.ErrorIs(t, err, ErrMalformedToken)
	})

	t.Run("invalid base64 payload", func(t *testing.T) {
		var out payload
		err := DecodeJWSPayload("header.!!!.sig", &out)
		assert.ErrorIs(t, err, ErrMalformedToken)
	})

	t.Run("payload is not json", func(t *testing.T) {
		body := base64.RawURLEncoding.EncodeToString([]byte("not json"))
		var out payload
		err := DecodeJWSPayload("header."+body+".sig", &out)
		assert.ErrorIs(t, err, ErrMalformedToken)
	})
}

func TestNormalizeStripeEvent(t *testing.T) {
	normalizer := NewEventNormalizer(testBillingConfig(), testLogger())

	t.Run("payment succeeded with metadata user id", func(t *testing.T) {
		raw := []byte(`{
			"type": "invoice.payment_succeeded",
			"data": {"object": {"customer": "cus_123", "customer_email": "user@example.com", "metadata": {"user_id": "u1"}}}
		}`)
		event, err := normalizer.NormalizeStripeEvent(raw)
		require.NoError(t, err)
		assert.Equal(t, constants.ProviderStripe, event.Provider)
		assert.Equal(t, EventKindPaymentSucceeded, event.Kind)
		assert.Equal(t, "u1", event.UserID)
		assert.Empty(t, event.EmailHash, "direct user id takes precedence over email fingerprint")
		assert.Equal(t, "cus_123", event.ProviderCustomerID)
	})

	t.Run("payment succeeded falls back to email fingerprint", func(t *testing.T) {
		raw := []byte(`{
			"type": "invoice.payment_succeeded",
			"data": {"object": {"customer": "cus_123", "customer_email": "User@Example.com"}}
		}`)
		event, err := normalizer.NormalizeStripeEvent(raw)
		require.NoError(t, err)
		assert.Empty(t, event.UserID)
		assert.Equal(t, EmailFingerprint("user@example.com", "test-salt"), event.EmailHash)
	})

	t.Run("subscription deleted", func(t *testing.T) {
		raw := []byte(`{
			"type": "customer.subscription.deleted",
			"data": {"object": {"customer": "cus_123", "customer_email": "user@example.com"}}
		}`)
		event, err := normalizer.NormalizeStripeEvent(raw)
		require.NoError(t, err)
		assert.Equal(t, EventKindSubscriptionCancelled, event.Kind)
	})

	t.Run("missing identifier", func(t *testing.T) {
		raw := []byte(`{"type": "invoice.payment_succeeded", "data": {"object": {"customer": "cus_123"}}}`)
		_, err := normalizer.NormalizeStripeEvent(raw)
		assert.ErrorIs(t, err, ErrMissingIdentifier)
	})

	t.Run("unhandled event type is not an error", func(t *testing.T) {
		raw := []byte(`{"type": "invoice.created", "data": {"object": {"customer": "cus_123"}}}`)
		event, err := normalizer.NormalizeStripeEvent(raw)
		require.NoError(t, err)
		assert.Equal(t, EventKindUnknown, event.Kind)
	})

	t.Run("malformed json", func(t *testing.T) {
		_, err := normalizer.NormalizeStripeEvent([]byte(`{not json`))
		assert.ErrorIs(t, err, ErrMalformedToken)
	})
}

func TestNormalizeAppleNotification(t *testing.T) {
	normalizer := NewEventNormalizer(testBillingConfig(), testLogger())

	makeNotification := func(t *testing.T, notificationType, subtype, otid string) string {
		transaction := makeJWS(t, map[string]string{"originalTransactionId": otid})
		return makeJWS(t, map[string]interface{}{
			"notificationType": notificationType,
			"subtype":          subtype,
			"data":             map[string]string{"signedTransactionInfo": transaction},
		})
	}

	tests := []struct {
		name             string
		notificationType string
		wantKind         EventKind
	}{
		{"did renew", "DID_RENEW", EventKindRenewed},
		{"subscribed", "SUBSCRIBED", EventKindPaymentSucceeded},
		{"expired", "EXPIRED", EventKindExpired},
		{"refund", "REFUND", EventKindRefunded},
		{"renewal status changed", "DID_CHANGE_RENEWAL_STATUS", EventKindRenewalStatusChanged},
		{"unknown type", "PRICE_INCREASE", EventKindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			signedPayload := makeNotification(t, tt.notificationType, "", "otid-1")
			event, err := normalizer.NormalizeAppleNotification(signedPayload)
			require.NoError(t, err)
			assert.Equal(t, constants.ProviderApple, event.Provider)
			assert.Equal(t, tt.wantKind, event.Kind)
			assert.Equal(t, "otid-1", event.ProviderCustomerID)
		})
	}

	t.Run("subtype is carried through", func(t *testing.T) {
		signedPayload := makeNotification(t, "DID_CHANGE_RENEWAL_STATUS", "AUTO_RENEW_DISABLED", "otid-1")
		event, err := normalizer.NormalizeAppleNotification(signedPayload)
		require.NoError(t, err)
		assert.Equal(t, "AUTO_RENEW_DISABLED", event.Subtype)
	})

	t.Run("malformed outer token", func(t *testing.T) {
		_, err := normalizer.NormalizeAppleNotification("not-a-jws")
		assert.ErrorIs(t, err, ErrMalformedToken)
	})

	t.Run("missing transaction info", func(t *testing.T) {
		signedPayload := makeJWS(t, map[string]interface{}{
			"notificationType": "DID_RENEW",
			"data":             map[string]string{},
		})
		_, err := normalizer.NormalizeAppleNotification(signedPayload)
		assert.ErrorIs(t, err, ErrMissingIdentifier)
	})

	t.Run("missing original transaction id", func(t *testing.T) {
		signedPayload := makeNotification(t, "DID_RENEW", "", "")
		_, err := normalizer.NormalizeAppleNotification(signedPayload)
		assert.ErrorIs(t, err, ErrMissingIdentifier)
	})
}
