// Package metrics declares the Prometheus collectors the core exposes on
// /metrics, in the same promauto package-level-vector style used for the
// IMAP server's own connection/command gauges and counters.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SMSCConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bearerbox_smsc_connections",
		Help: "Number of configured SMSC connections",
	})
	SMSCQueued = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "bearerbox_smsc_queued",
		Help: "Outbound backlog per SMSC connection",
	}, []string{"smsc_id"})
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bearerbox_messages_total",
		Help: "Total messages processed, by direction and outcome",
	}, []string{"direction", "status"})
	SmsboxConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bearerbox_smsbox_connections",
		Help: "Number of currently connected smsbox clients",
	})
)

const (
	DirectionMT = "mt"
	DirectionMO = "mo"

	StatusSent   = "sent"
	StatusFailed = "failed"
)
