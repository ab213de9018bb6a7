package mailbox

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	messagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bounce_messages_total",
			Help: "Messages read from mailboxes, by outcome",
		},
		[]string{"outcome"}, // processed, unprocessed, fetch_error
	)

	classificationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bounce_classifications_total",
			Help: "Classified messages by category and bounce type",
		},
		[]string{"category", "bounce_type"},
	)

	dispositionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bounce_dispositions_total",
			Help: "Mailbox actions taken on classified messages",
		},
		[]string{"disposition"},
	)

	purgedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bounce_purged_messages_total",
			Help: "Messages deleted by the date purge",
		},
	)
)
