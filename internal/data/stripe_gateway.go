package data

import (
	"context"
	"fmt"

	"subscription-service/internal/biz"
	"subscription-service/internal/conf"
	subErrors "subscription-service/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"github.com/stripe/stripe-go/v82/webhook"
)

// stripeGateway Stripe 渠道网关
type stripeGateway struct {
	api           *client.API
	webhookSecret string
	returnURL     string
	log           *log.Helper
}

// NewStripeGateway 创建 Stripe 网关（返回 biz.StripeGateway 接口）
func NewStripeGateway(c *conf.Bootstrap, logger log.Logger) (biz.StripeGateway, error) {
	if c.Providers == nil || c.Providers.Stripe == nil {
		return nil, fmt.Errorf("stripe config is nil")
	}

	api := &client.API{}
	api.Init(c.Providers.Stripe.ApiKey, nil)

	return &stripeGateway{
		api:           api,
		webhookSecret: c.Providers.Stripe.WebhookSecret,
		returnURL:     c.Providers.Stripe.PortalReturnUrl,
		log:           log.NewHelper(logger),
	}, nil
}

// VerifyWebhookSignature 校验 webhook 签名，通过后返回原始事件负载
func (g *stripeGateway) VerifyWebhookSignature(payload []byte, signature string) ([]byte, error) {
	if _, err := webhook.ConstructEvent(payload, signature, g.webhookSecret); err != nil {
		g.log.Warnf("stripe webhook signature verification failed: %v", err)
		return nil, biz.ErrMalformedToken
	}
	return payload, nil
}

// CreateCreditInvoiceItem 创建负数账单项，返利抵扣下期账单
func (g *stripeGateway) CreateCreditInvoiceItem(ctx context.Context, customerID string, amountCents int64, description string) error {
	params := &stripe.InvoiceItemParams{
		Params:      stripe.Params{Context: ctx},
		Customer:    stripe.String(customerID),
		Amount:      stripe.Int64(amountCents),
		Currency:    stripe.String(string(stripe.CurrencyEUR)),
		Description: stripe.String(description),
	}
	if _, err := g.api.InvoiceItems.New(params); err != nil {
		g.log.Errorf("CreateCreditInvoiceItem failed: customer=%s, amount=%d, error=%v", customerID, amountCents, err)
		return pkgErrors.NewBizErrorWithLang(ctx, subErrors.ErrCodeStripeInvoiceItemFailed)
	}
	return nil
}

// CreatePortalSession 创建客户自助管理门户会话
func (g *stripeGateway) CreatePortalSession(ctx context.Context, customerID string) (string, error) {
	params := &stripe.BillingPortalSessionParams{
		Params:    stripe.Params{Context: ctx},
		Customer:  stripe.String(customerID),
		ReturnURL: stripe.String(g.returnURL),
	}
	session, err := g.api.BillingPortalSessions.New(params)
	if err != nil {
		g.log.Errorf("CreatePortalSession failed: customer=%s, error=%v", customerID, err)
		return "", pkgErrors.NewBizErrorWithLang(ctx, subErrors.ErrCodeStripePortalFailed)
	}
	return session.URL, nil
}
