package system

import (
	"time"

	coresys "github.com/emberwake/server/internal/core/system"
	"github.com/emberwake/server/internal/world"
)

// OutputSystem sends each avatar's buffered updates as one batch frame.
// Phase 3 (Output).
type OutputSystem struct {
	w *world.World
}

func NewOutputSystem(w *world.World) *OutputSystem {
	return &OutputSystem{w: w}
}

func (s *OutputSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *OutputSystem) Update(dt time.Duration) {
	s.w.FlushUpdates()
}
