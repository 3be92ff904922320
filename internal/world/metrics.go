package world

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "emberwake",
		Subsystem: "world",
		Name:      "events_total",
		Help:      "Events dispatched through the four-phase protocol.",
	}, []string{"event"})

	updateFramesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "emberwake",
		Subsystem: "world",
		Name:      "update_frames_total",
		Help:      "Update batches flushed to clients.",
	})

	travelTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "emberwake",
		Subsystem: "world",
		Name:      "travel_total",
		Help:      "Successful avatar moves between locations.",
	})

	questsCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "emberwake",
		Subsystem: "world",
		Name:      "quests_completed_total",
		Help:      "Quests completed by avatars.",
	})

	ResidentsGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "emberwake",
		Subsystem: "world",
		Name:      "residents",
		Help:      "Avatars currently resident in the world.",
	})
)
