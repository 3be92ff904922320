package system

import (
	"time"

	"github.com/emberwake/server/internal/core/event"
	coresys "github.com/emberwake/server/internal/core/system"
)

// EventDispatchSystem rotates the bus buffers and delivers last tick's
// events. Phase 1 (PreUpdate).
type EventDispatchSystem struct {
	bus *event.Bus
}

func NewEventDispatchSystem(bus *event.Bus) *EventDispatchSystem {
	return &EventDispatchSystem{bus: bus}
}

func (s *EventDispatchSystem) Phase() coresys.Phase { return coresys.PhasePreUpdate }

func (s *EventDispatchSystem) Update(dt time.Duration) {
	s.bus.Swap()
	s.bus.Dispatch()
}
