package server

import (
	"io"
	"strconv"

	"subscription-service/internal/conf"
	"subscription-service/internal/service"

	"github.com/go-kratos/kratos/v2/middleware/recovery"
	"github.com/go-kratos/kratos/v2/transport/http"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewHTTPServer 创建 HTTP 服务器
// 入站负载由支付渠道定义（Stripe JSON / Apple JWS），直接注册 JSON 路由
func NewHTTPServer(
	c *conf.Bootstrap,
	eventService *service.BillingEventService,
	referralService *service.ReferralService,
) *http.Server {
	var opts = []http.ServerOption{
		http.Middleware(
			recovery.Recovery(),
		),
	}
	if c.Server != nil && c.Server.Http != nil {
		if c.Server.Http.Network != "" {
			opts = append(opts, http.Network(c.Server.Http.Network))
		}
		if c.Server.Http.Addr != "" {
			opts = append(opts, http.Address(c.Server.Http.Addr))
		}
		if d := c.Server.Http.TimeoutDuration(); d > 0 {
			opts = append(opts, http.Timeout(d))
		}
	}
	srv := http.NewServer(opts...)

	srv.Handle("/metrics", promhttp.Handler())

	registerWebhookRoutes(srv, eventService)
	registerReferralRoutes(srv, referralService)
	return srv
}

// registerWebhookRoutes 注册渠道回调与收据上报路由
func registerWebhookRoutes(srv *http.Server, svc *service.BillingEventService) {
	r := srv.Route("/")

	// Stripe webhook：签名在原始请求体上校验，不能先 Bind
	r.POST("/v1/webhook/stripe", func(ctx http.Context) error {
		body, err := io.ReadAll(ctx.Request().Body)
		if err != nil {
			return err
		}
		signature := ctx.Request().Header.Get("Stripe-Signature")
		reply, err := svc.StripeWebhook(ctx, body, signature)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.POST("/v1/webhook/apple", func(ctx http.Context) error {
		var req service.AppleNotificationRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := svc.AppleNotification(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.POST("/v1/receipt/verify", func(ctx http.Context) error {
		var req service.VerifyReceiptRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := svc.VerifyReceipt(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.POST("/v1/admin/paid-manager", func(ctx http.Context) error {
		var req service.PaidManagerRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := svc.PaidManager(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})
}

// registerReferralRoutes 注册推荐/返利/账户路由
func registerReferralRoutes(srv *http.Server, svc *service.ReferralService) {
	r := srv.Route("/")

	r.GET("/v1/referral/my-code", func(ctx http.Context) error {
		reply, err := svc.MyCode(ctx, ctx.Query().Get("user_id"))
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.POST("/v1/referral/bind", func(ctx http.Context) error {
		var req service.BindRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := svc.Bind(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.GET("/v1/referral/check-binding", func(ctx http.Context) error {
		reply, err := svc.CheckBinding(ctx, ctx.Query().Get("user_id"))
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.GET("/v1/referral/stats", func(ctx http.Context) error {
		reply, err := svc.Stats(ctx, ctx.Query().Get("user_id"))
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.GET("/v1/referral/credits", func(ctx http.Context) error {
		reply, err := svc.Credits(ctx, ctx.Query().Get("user_id"))
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.GET("/v1/referral/credit-history", func(ctx http.Context) error {
		limit, _ := strconv.Atoi(ctx.Query().Get("limit"))
		reply, err := svc.CreditHistory(ctx, ctx.Query().Get("user_id"), limit)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.POST("/v1/referral/apply-credit", func(ctx http.Context) error {
		var req service.ApplyCreditRequest
		if err := ctx.Bind(&req); err != nil {
			return err
		}
		reply, err := svc.ApplyCredit(ctx, &req)
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.GET("/v1/subscription/portal", func(ctx http.Context) error {
		reply, err := svc.SubscriptionPortal(ctx, ctx.Query().Get("user_id"))
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})

	r.GET("/v1/account/check", func(ctx http.Context) error {
		reply, err := svc.AccountCheck(ctx, ctx.Query().Get("user_id"))
		if err != nil {
			return err
		}
		return ctx.Result(200, reply)
	})
}
