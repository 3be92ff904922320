package system

import (
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var tickDuration = promauto.NewHistogram(prometheus.HistogramOpts{
	Namespace: "emberwake",
	Subsystem: "core",
	Name:      "tick_duration_seconds",
	Help:      "Wall time spent running all systems for one tick.",
	Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
})

// Runner executes systems in phase order each tick.
type Runner struct {
	systems []System
	sorted  bool
}

func NewRunner() *Runner {
	return &Runner{
		systems: make([]System, 0, 8),
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

func (r *Runner) Tick(dt time.Duration) {
	r.ensureSorted()
	start := time.Now()
	for _, s := range r.systems {
		s.Update(dt)
	}
	tickDuration.Observe(time.Since(start).Seconds())
}

func (r *Runner) ensureSorted() {
	if !r.sorted {
		sort.SliceStable(r.systems, func(i, j int) bool {
			return r.systems[i].Phase() < r.systems[j].Phase()
		})
		r.sorted = true
	}
}
