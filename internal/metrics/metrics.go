package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// SubscriptionMetrics 订阅服务指标
type SubscriptionMetrics struct {
	// webhook 事件相关指标
	WebhookEventTotal  *prometheus.CounterVec   // webhook 事件总数（按渠道、事件类型、结果）
	ReconcileDuration  *prometheus.HistogramVec // 对账耗时
	ReconcileTotal     *prometheus.CounterVec   // 对账总数（按渠道、结果）

	// 返利相关指标
	RewardTotal  *prometheus.CounterVec // 返利处理总数（按结果）
	RewardAmount prometheus.Counter     // 返利累计金额

	// 抵扣相关指标
	DeductionTotal  *prometheus.CounterVec // 抵扣总数（按结果）
	DeductionAmount prometheus.Counter     // 抵扣累计金额

	// 收据校验相关指标
	ReceiptVerifyTotal    *prometheus.CounterVec // 收据校验总数（按结果）
	ReceiptVerifyDuration prometheus.Histogram   // 收据校验耗时

	// 分布式锁相关指标
	LockAcquireTotal    *prometheus.CounterVec // 锁获取总数（按结果）
	LockAcquireDuration prometheus.Histogram   // 锁获取耗时
}

// NewSubscriptionMetrics 创建订阅服务指标
func NewSubscriptionMetrics() *SubscriptionMetrics {
	return &SubscriptionMetrics{
		WebhookEventTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subscription_webhook_event_total",
				Help: "Total number of webhook events received",
			},
			[]string{"provider", "kind", "result"}, // result: applied/ignored/error
		),
		ReconcileDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "subscription_reconcile_duration_seconds",
				Help:    "Duration of billing event reconciliation",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		ReconcileTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subscription_reconcile_total",
				Help: "Total number of reconciliations",
			},
			[]string{"provider", "result"},
		),

		RewardTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subscription_referral_reward_total",
				Help: "Total number of referral reward attempts",
			},
			[]string{"result"}, // result: processed/skipped/error
		),
		RewardAmount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "subscription_referral_reward_amount_total",
				Help: "Total amount of referral rewards credited",
			},
		),

		DeductionTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subscription_credit_deduction_total",
				Help: "Total number of credit deduction attempts",
			},
			[]string{"result"}, // result: applied/skipped/error
		),
		DeductionAmount: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "subscription_credit_deduction_amount_total",
				Help: "Total amount of credits applied to invoices",
			},
		),

		ReceiptVerifyTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subscription_receipt_verify_total",
				Help: "Total number of Apple receipt verifications",
			},
			[]string{"result"}, // result: success/sandbox_retry/failed
		),
		ReceiptVerifyDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "subscription_receipt_verify_duration_seconds",
				Help:    "Duration of Apple receipt verification calls",
				Buckets: prometheus.DefBuckets,
			},
		),

		LockAcquireTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "subscription_lock_acquire_total",
				Help: "Total number of per-user lock acquisition attempts",
			},
			[]string{"result"}, // result: success/failed
		),
		LockAcquireDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "subscription_lock_acquire_duration_seconds",
				Help:    "Duration of per-user lock acquisition",
				Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
			},
		),
	}
}

// 全局指标实例
var defaultMetrics *SubscriptionMetrics

// InitMetrics 初始化全局指标
func InitMetrics() {
	defaultMetrics = NewSubscriptionMetrics()
}

// GetMetrics 获取全局指标实例
func GetMetrics() *SubscriptionMetrics {
	if defaultMetrics == nil {
		InitMetrics()
	}
	return defaultMetrics
}
