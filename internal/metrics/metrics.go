package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ScansTotal counts attendance writes by outcome: created, overridden, rejected.
	ScansTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_attendance_writes_total",
		Help: "Attendance record writes by outcome.",
	}, []string{"outcome"})

	// NotificationsTotal counts guardian notifications by result: sent, failed, skipped.
	NotificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classtrack_notifications_total",
		Help: "Guardian notification deliveries by result.",
	}, []string{"result"})
)
