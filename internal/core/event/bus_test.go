package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type ping struct{ N int }
type pong struct{ N int }

func TestBusDeliversNextTick(t *testing.T) {
	b := NewBus()
	var got []int
	Subscribe(b, func(ev ping) { got = append(got, ev.N) })

	Emit(b, ping{N: 1})
	b.Swap()
	b.Dispatch()
	assert.Equal(t, []int{1}, got)

	// Nothing new emitted, so the next tick delivers nothing.
	b.Swap()
	b.Dispatch()
	assert.Equal(t, []int{1}, got)
}

func TestBusKeepsEmitOrder(t *testing.T) {
	b := NewBus()
	var got []int
	Subscribe(b, func(ev ping) { got = append(got, ev.N) })

	for n := 1; n <= 3; n++ {
		Emit(b, ping{N: n})
	}
	b.Swap()
	b.Dispatch()
	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestBusRoutesByType(t *testing.T) {
	b := NewBus()
	var pings, pongs int
	Subscribe(b, func(ping) { pings++ })
	Subscribe(b, func(pong) { pongs++ })

	Emit(b, ping{})
	Emit(b, pong{})
	Emit(b, pong{})
	b.Swap()
	b.Dispatch()
	assert.Equal(t, 1, pings)
	assert.Equal(t, 2, pongs)
}

func TestBusEmitDuringDispatchDefersOneTick(t *testing.T) {
	b := NewBus()
	var got []int
	Subscribe(b, func(ev ping) {
		got = append(got, ev.N)
		if ev.N == 1 {
			Emit(b, ping{N: 2})
		}
	})

	Emit(b, ping{N: 1})
	b.Swap()
	b.Dispatch()
	assert.Equal(t, []int{1}, got)

	b.Swap()
	b.Dispatch()
	assert.Equal(t, []int{1, 2}, got)
}
