// Package metrics exposes Prometheus counters for the bot.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics groups the bot's counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	commands       *prometheus.CounterVec
	betsRecorded   prometheus.Counter
	settlements    *prometheus.CounterVec
	notifyFailures prometheus.Counter
	duplicates     prometheus.Counter
}

// New registers the counters on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		commands: f.NewCounterVec(prometheus.CounterOpts{
			Name: "betlog_commands_total",
			Help: "Messages handled, by command kind and outcome",
		}, []string{"command", "outcome"}),
		betsRecorded: f.NewCounter(prometheus.CounterOpts{
			Name: "betlog_bets_recorded_total",
			Help: "Bets inserted into the ledger",
		}),
		settlements: f.NewCounterVec(prometheus.CounterOpts{
			Name: "betlog_settlements_total",
			Help: "Successful settlements, by status",
		}, []string{"status"}),
		notifyFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "betlog_notify_failures_total",
			Help: "Replies that could not be delivered to Telegram",
		}),
		duplicates: f.NewCounter(prometheus.CounterOpts{
			Name: "betlog_duplicate_updates_total",
			Help: "Webhook updates dropped as redeliveries",
		}),
	}
}

// Command counts one handled message.
func (m *Metrics) Command(command, outcome string) {
	if m == nil {
		return
	}
	m.commands.WithLabelValues(command, outcome).Inc()
}

// BetRecorded counts one inserted bet.
func (m *Metrics) BetRecorded() {
	if m == nil {
		return
	}
	m.betsRecorded.Inc()
}

// Settlement counts one successful settlement.
func (m *Metrics) Settlement(status string) {
	if m == nil {
		return
	}
	m.settlements.WithLabelValues(status).Inc()
}

// NotifyFailure counts one undelivered reply.
func (m *Metrics) NotifyFailure() {
	if m == nil {
		return
	}
	m.notifyFailures.Inc()
}

// DuplicateUpdate counts one dropped redelivery.
func (m *Metrics) DuplicateUpdate() {
	if m == nil {
		return
	}
	m.duplicates.Inc()
}
