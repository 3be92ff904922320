package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type probe struct {
	phase Phase
	log   *[]Phase
	dt    time.Duration
}

func (p *probe) Phase() Phase { return p.phase }

func (p *probe) Update(dt time.Duration) {
	p.dt = dt
	*p.log = append(*p.log, p.phase)
}

func TestRunnerTicksInPhaseOrder(t *testing.T) {
	var log []Phase
	r := NewRunner()
	r.Register(&probe{phase: PhasePersist, log: &log})
	r.Register(&probe{phase: PhaseInput, log: &log})
	r.Register(&probe{phase: PhaseOutput, log: &log})
	r.Register(&probe{phase: PhaseUpdate, log: &log})

	r.Tick(200 * time.Millisecond)
	assert.Equal(t, []Phase{PhaseInput, PhaseUpdate, PhaseOutput, PhasePersist}, log)
}

func TestRunnerRegisterAfterTick(t *testing.T) {
	var log []Phase
	r := NewRunner()
	r.Register(&probe{phase: PhaseUpdate, log: &log})
	r.Tick(time.Millisecond)

	r.Register(&probe{phase: PhaseInput, log: &log})
	log = nil
	r.Tick(time.Millisecond)
	assert.Equal(t, []Phase{PhaseInput, PhaseUpdate}, log)
}

func TestRunnerPassesDelta(t *testing.T) {
	var log []Phase
	p := &probe{phase: PhaseInput, log: &log}
	r := NewRunner()
	r.Register(p)
	r.Tick(50 * time.Millisecond)
	assert.Equal(t, 50*time.Millisecond, p.dt)
}
