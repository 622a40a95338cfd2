// Package metrics holds the prometheus collectors exported on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TipsSettled = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "obolus",
		Name:      "tips_settled_total",
		Help:      "Number of successfully settled tips.",
	})

	TipVolume = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "obolus",
		Name:      "tip_volume_tokens_total",
		Help:      "Tokens moved by settled tips, split by recipient.",
	}, []string{"share"})

	SettlementFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "obolus",
		Name:      "settlement_failures_total",
		Help:      "Rejected or failed settlements by error kind.",
	}, []string{"kind"})

	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "obolus",
		Name:      "webhook_events_total",
		Help:      "Payment webhook deliveries by outcome.",
	}, []string{"outcome"})

	NotificationFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "obolus",
		Name:      "notification_failures_total",
		Help:      "Failed best-effort tip notifications by channel.",
	}, []string{"channel"})

	LiveSubscribers = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "obolus",
		Name:      "live_subscribers",
		Help:      "Currently connected overlay subscribers.",
	})

	LedgerBalanced = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "obolus",
		Name:      "ledger_balanced",
		Help:      "1 when the last audit sweep found no discrepancy, 0 otherwise.",
	})
)
