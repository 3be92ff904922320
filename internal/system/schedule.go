package system

import (
	"time"

	coresys "github.com/emberwake/server/internal/core/system"
	"github.com/emberwake/server/internal/world"
)

// ScheduleSystem fires due scheduled callbacks, which is how sleep and
// timed activities resume. Phase 2 (Update).
type ScheduleSystem struct {
	w *world.World
}

func NewScheduleSystem(w *world.World) *ScheduleSystem {
	return &ScheduleSystem{w: w}
}

func (s *ScheduleSystem) Phase() coresys.Phase { return coresys.PhaseUpdate }

func (s *ScheduleSystem) Update(dt time.Duration) {
	s.w.RunScheduled()
}
