package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	propagationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crew_schedule",
		Subsystem: "propagation",
		Name:      "workers_total",
		Help:      "Worker week propagations broken down by outcome.",
	}, []string{"outcome"})

	reconcileDeletedRows = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crew_schedule",
		Subsystem: "reconcile",
		Name:      "deleted_rows_total",
		Help:      "Rows deleted by orphan ghost timesheet reconciliation, per table.",
	}, []string{"table"})

	ghostTimesheetsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crew_schedule",
		Subsystem: "absence",
		Name:      "ghost_timesheets_total",
		Help:      "Absence ghost timesheet generator calls broken down by outcome.",
	}, []string{"outcome"})

	writeConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "crew_schedule",
		Subsystem: "write",
		Name:      "conflicts_total",
		Help:      "Concurrent write conflicts broken down by operation and resolution.",
	}, []string{"op", "resolution"})
)

func recordPropagation(outcome string) {
	propagationsTotal.WithLabelValues(outcome).Inc()
}

func recordDeletedRows(counts map[string]int64) {
	for table, n := range counts {
		if n > 0 {
			reconcileDeletedRows.WithLabelValues(table).Add(float64(n))
		}
	}
}

func recordGhost(outcome GhostOutcome) {
	ghostTimesheetsTotal.WithLabelValues(string(outcome)).Inc()
}

func recordConflict(op, resolution string) {
	writeConflicts.WithLabelValues(op, resolution).Inc()
}
