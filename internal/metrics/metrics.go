// Package metrics exposes engine counters for prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "chat"

var (
	MessagesSent = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "messages_sent_total",
		Help:      "User messages accepted through the normal send path.",
	})

	RepliesGenerated = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "replies_generated_total",
		Help:      "Assistant replies appended after the typing delay.",
	})

	CommandsHandled = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "commands_handled_total",
		Help:      "Slash commands dispatched by the interpreter.",
	}, []string{"command"})

	StatusAdvances = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "status_advances_total",
		Help:      "Deferred delivery status updates that fired.",
	}, []string{"status"})

	PersistWrites = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "persist_writes_total",
		Help:      "Write-through attempts of the durable state record.",
	}, []string{"result"})

	PresenceTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "presence_transitions_total",
		Help:      "Simulated presence changes by target status.",
	}, []string{"status"})

	Subscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "store_subscribers",
		Help:      "Listeners currently subscribed to the state store.",
	})
)

func init() {
	prometheus.MustRegister(
		MessagesSent,
		RepliesGenerated,
		CommandsHandled,
		StatusAdvances,
		PersistWrites,
		PresenceTransitions,
		Subscribers,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
