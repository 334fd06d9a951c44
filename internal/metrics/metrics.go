// Package metrics exposes the service's Prometheus counters.  The set
// is intentionally small: group and ledger activity plus sweep volume,
// which is the number operators watch after TTL changes.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// GroupsCreated counts successfully issued join codes.
	GroupsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "presence_groups_created_total",
		Help: "Number of groups created.",
	})

	// Checkins counts accepted check-ins.
	Checkins = promauto.NewCounter(prometheus.CounterOpts{
		Name: "presence_checkins_total",
		Help: "Number of check-ins recorded.",
	})

	// Checkouts counts checkout requests by mode (targeted or full).
	Checkouts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "presence_checkouts_total",
		Help: "Number of checkouts, labelled by mode.",
	}, []string{"mode"})

	// RowsExpired counts ledger rows flipped inactive by the sweeper.
	RowsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "presence_rows_expired_total",
		Help: "Number of check-in rows expired by the sweeper.",
	})
)
