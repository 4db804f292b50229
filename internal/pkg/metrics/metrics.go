// Package metrics 定义下单引擎暴露给 Prometheus 的指标。
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	OrdersPlaced = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "orders_placed_total",
		Help:      "Orders committed by the checkout engine.",
	})

	OrderFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "order_failures_total",
		Help:      "Failed checkout attempts, labelled by error kind.",
	}, []string{"kind"})

	OrdersCancelled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "orders_cancelled_total",
		Help:      "Orders cancelled with stock restored.",
	})

	CouponsDegraded = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "coupon_degraded_total",
		Help:      "Checkouts where a coupon became invalid before commit and was dropped.",
	}, []string{"reason"})

	IntegrityViolations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "order_integrity_violations_total",
		Help:      "Orders whose stored monetary fields no longer match their digest.",
	})

	RateLimitRejections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "rate_limit_rejections_total",
		Help:      "Requests rejected by the rate limiter, labelled by action family.",
	}, []string{"action"})

	AccountLockouts = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "storefront",
		Name:      "account_lockouts_total",
		Help:      "Identities locked out after repeated authentication failures.",
	})

	CheckoutDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "storefront",
		Name:      "checkout_duration_seconds",
		Help:      "Wall time of placeOrder including the retry.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5},
	})
)
