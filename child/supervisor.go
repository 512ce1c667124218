package child

import (
	"context"
	"errors"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/knockware/knocker/proxy"
	"github.com/knockware/knocker/utils"
)

// ErrUnknownProxy ends supervision when the data plane reports an error it
// can not classify. It is terminal for the whole process.
var ErrUnknownProxy = errors.New("unknown proxy error occurred")

// Supervisor owns the set of children currently believed alive and reacts
// to one interleaved stream of idle-timer expiries and proxy events. The
// tracked set is mutated only inside Run's loop.
type Supervisor struct {
	command     string
	idleTimeout time.Duration
	gracePeriod time.Duration
	events      *proxy.EventWatch
	gate        *proxy.ReadyGate //may be nil
}

func NewSupervisor(command string, idleTimeout, gracePeriod time.Duration, events *proxy.EventWatch, gate *proxy.ReadyGate) *Supervisor {
	return &Supervisor{
		command:     command,
		idleTimeout: idleTimeout,
		gracePeriod: gracePeriod,
		events:      events,
		gate:        gate,
	}
}

// Run spawns the initial child and supervises until a fatal condition or
// until ctx is done; ctx cancellation tears all tracked children down
// before returning. Signal and wait failures during teardown are logged,
// never fatal; spawn failures and EventUnknownError are.
func (s *Supervisor) Run(ctx context.Context) error {
	first, err := Spawn(s.command)
	if err != nil {
		return err
	}
	children := []*Child{first}

	guard, expired := utils.RunAfter(s.idleTimeout)

	for {
		select {
		case <-ctx.Done():
			s.teardown(children)
			return ctx.Err()

		case <-expired:
			s.teardown(children)
			children = children[:0]
			// new supervision cycle; the next child is spawned lazily once
			// a proxy reports the destination gone
			guard, expired = utils.RunAfter(s.idleTimeout)

		case ev := <-s.events.C():
			switch ev {
			case proxy.EventGotPacket:
				if ce := utils.CanLogDebug("got packet, restarting cooldown"); ce != nil {
					ce.Write()
				}
				guard.Reset()

			case proxy.EventDestinationNotResponding:
				c, err := Spawn(s.command)
				if err != nil {
					return utils.ErrInErr{ErrDesc: "respawn failed", ErrDetail: err}
				}
				if ce := utils.CanLogInfo("no response from destination, spawned command"); ce != nil {
					sid, _ := c.SessionID()
					ce.Write(zap.Int("pid", c.Pid()), zap.Int("session", sid))
				}
				children = append(children, c)
				if s.gate != nil {
					s.gate.Broadcast()
				}

			case proxy.EventUnknownError:
				if ce := utils.CanLogErr("some unknown error occurred"); ce != nil {
					ce.Write()
				}
				return ErrUnknownProxy

			case proxy.EventNothing:
				if ce := utils.CanLogDebug("got an event of nothing"); ce != nil {
					ce.Write()
				}
			}
		}
	}
}

// teardown terminates every tracked child's process group: SIGTERM now, a
// fire-and-forget SIGKILL after the grace period, then reap. Best effort
// throughout; one child's failure does not stop the others' teardown.
func (s *Supervisor) teardown(children []*Child) {
	for _, c := range children {
		sid, _ := c.SessionID()
		if ce := utils.CanLogDebug("idle time expired, terminating child"); ce != nil {
			ce.Write(zap.Int("pid", c.Pid()), zap.Int("session", sid))
		}

		if err := c.SignalGroup(syscall.SIGTERM); err != nil {
			if ce := utils.CanLogErr("problem terminating child"); ce != nil {
				ce.Write(zap.Int("pid", c.Pid()), zap.Error(err))
			}
			continue
		}

		c.KillGroupAfter(s.gracePeriod, syscall.SIGKILL)

		if ce := utils.CanLogInfo("child terminated"); ce != nil {
			ce.Write(zap.Int("pid", c.Pid()))
		}

		if status, err := c.Wait(); err != nil {
			if ce := utils.CanLogErr("failed to wait on child"); ce != nil {
				ce.Write(zap.Int("pid", c.Pid()), zap.Error(err))
			}
		} else if ce := utils.CanLogDebug("child exited"); ce != nil {
			ce.Write(zap.Int("pid", c.Pid()), zap.String("status", status.String()))
		}
	}
}
