package system

import (
	"context"
	"time"

	coresys "github.com/emberwake/server/internal/core/system"
	"github.com/emberwake/server/internal/world"
)

// PersistSystem autosaves every resident avatar on an interval counted in
// ticks. Phase 4 (Persist).
type PersistSystem struct {
	w        *world.World
	interval int
	counter  int
}

func NewPersistSystem(w *world.World, intervalTicks int) *PersistSystem {
	if intervalTicks <= 0 {
		intervalTicks = 1500
	}
	return &PersistSystem{w: w, interval: intervalTicks}
}

func (s *PersistSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *PersistSystem) Update(dt time.Duration) {
	s.counter++
	if s.counter < s.interval {
		return
	}
	s.counter = 0
	s.w.SaveAllResidents(context.Background())
}
