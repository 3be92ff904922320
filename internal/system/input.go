package system

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/emberwake/server/internal/command"
	"github.com/emberwake/server/internal/core/event"
	coresys "github.com/emberwake/server/internal/core/system"
	"github.com/emberwake/server/internal/net"
	"github.com/emberwake/server/internal/world"
)

// maxCommandsPerTick caps how many queued lines one session may run in a
// single tick.
const maxCommandsPerTick = 8

// InputSystem binds fresh sessions, unbinds dead ones, and drains queued
// command lines into the dispatcher. Phase 0 (Input).
type InputSystem struct {
	server     *net.Server
	w          *world.World
	dispatcher *command.Dispatcher
	bus        *event.Bus
	log        *zap.Logger
}

func NewInputSystem(server *net.Server, w *world.World, dispatcher *command.Dispatcher, bus *event.Bus, log *zap.Logger) *InputSystem {
	return &InputSystem{
		server:     server,
		w:          w,
		dispatcher: dispatcher,
		bus:        bus,
		log:        log,
	}
}

func (s *InputSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *InputSystem) Update(dt time.Duration) {
	ctx := context.Background()
	s.drainNewSessions(ctx)
	s.drainDeadSessions(ctx)
	s.drainCommands()
}

func (s *InputSystem) drainNewSessions(ctx context.Context) {
	for {
		select {
		case sess := <-s.server.NewSessions():
			if _, err := s.w.EnterWorld(ctx, sess.AccountID, sess); err != nil {
				s.log.Error("enter world failed",
					zap.String("username", sess.Username), zap.Error(err))
				sess.Close()
				continue
			}
			event.Emit(s.bus, event.AvatarEnteredWorld{
				AccountID: sess.AccountID,
				Username:  sess.Username,
			})
		default:
			return
		}
	}
}

func (s *InputSystem) drainDeadSessions(ctx context.Context) {
	for {
		select {
		case sess := <-s.server.DeadSessions():
			av := s.w.Resident(sess.AccountID)
			if av == nil {
				continue
			}
			// A reconnect may already have rebound the avatar to a newer
			// session; only unbind if this one is still current.
			if a := av.Avatar(); a == nil || a.Session != world.Session(sess) {
				continue
			}
			s.w.Disconnect(ctx, sess.AccountID)
			event.Emit(s.bus, event.AvatarLeftWorld{
				AccountID: sess.AccountID,
				Username:  sess.Username,
			})
		default:
			return
		}
	}
}

func (s *InputSystem) drainCommands() {
	s.w.Residents(func(accountID int64, av *world.Entity) {
		a := av.Avatar()
		if a == nil {
			return
		}
		sess, ok := a.Session.(*net.Session)
		if !ok {
			return
		}
		for n := 0; n < maxCommandsPerTick; n++ {
			select {
			case line := <-sess.InQueue:
				s.dispatcher.Dispatch(av, line)
				event.Emit(s.bus, event.CommandDispatched{
					AccountID: accountID,
					Input:     line,
				})
			default:
				return
			}
		}
	})
}
