package util

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	LinksCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "links_created_total",
		Help: "Total number of payment links created",
	}, []string{"kind"})

	BidsPlacedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bids_placed_total",
		Help: "Total number of accepted bids",
	})

	BidsRejectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bids_rejected_total",
		Help: "Total number of rejected bids",
	}, []string{"reason"})

	AuctionsFinalizedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "auctions_finalized_total",
		Help: "Total number of auctions finalized",
	}, []string{"outcome"})

	WinnerNotificationsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "winner_notifications_total",
		Help: "Total number of winner notification emails sent",
	})

	WinnerNotificationsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "winner_notifications_failed_total",
		Help: "Total number of winner notification emails that failed to send",
	})

	CheckoutSessionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "checkout_sessions_total",
		Help: "Total number of checkout sessions created",
	})

	CheckoutSessionsRefused = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_sessions_refused_total",
		Help: "Total number of refused checkout session requests",
	}, []string{"reason"})

	OrdersRecordedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "orders_recorded_total",
		Help: "Total number of paid orders recorded",
	})

	PayoutTransfersTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payout_transfers_total",
		Help: "Total number of payout transfers issued",
	})

	PayoutTransfersFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "payout_transfers_failed_total",
		Help: "Total number of failed payout transfers",
	})

	FinalizeLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "auction_finalize_latency_seconds",
		Help:    "Latency of auction finalization",
		Buckets: prometheus.DefBuckets,
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})
)
