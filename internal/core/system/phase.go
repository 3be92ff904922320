package system

import "time"

// Phase defines execution ordering within a single tick.
type Phase int

const (
	PhaseInput     Phase = iota // 0: drain session command queues
	PhasePreUpdate              // 1: deliver last tick's events
	PhaseUpdate                 // 2: world logic, scheduled callbacks
	PhaseOutput                 // 3: flush update batches
	PhasePersist                // 4: autosave
)

// System is the interface every tick system implements.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
