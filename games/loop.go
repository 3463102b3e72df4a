package games

import (
	"context"
	"fmt"
	"time"
)

// Sender delivers client events to the server.
type Sender interface {
	Send(ClientMessage) error
}

// Steerer picks a direction before each tick. A nil Steerer means the
// direction only changes through Loop.Turn.
type Steerer interface {
	Steer(s *Simulation) Direction
}

// Loop drives a Simulation on a fixed tick. Server events and local turns are
// folded in between ticks on the same goroutine, so the Simulation is never
// touched concurrently.
type Loop struct {
	Sim   *Simulation
	Out   Sender
	Steer Steerer
	// Rate overrides the simulation's tick rate when positive.
	Rate int

	inbox chan ServerMessage
	turns chan Direction
	done  chan struct{}
}

func NewLoop(sim *Simulation, out Sender) *Loop {
	return &Loop{
		Sim:   sim,
		Out:   out,
		inbox: make(chan ServerMessage, 64),
		turns: make(chan Direction, 8),
		done:  make(chan struct{}),
	}
}

// Deliver hands a server event to the loop. It returns false once the loop has
// exited.
func (l *Loop) Deliver(m ServerMessage) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.inbox <- m:
		return true
	case <-l.done:
		return false
	}
}

// Turn queues a local direction change.
func (l *Loop) Turn(d Direction) bool {
	select {
	case <-l.done:
		return false
	default:
	}

	select {
	case l.turns <- d:
		return true
	case <-l.done:
		return false
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}

// Run ticks until the match is over or ctx is cancelled.
func (l *Loop) Run(ctx context.Context) error {
	defer close(l.done)

	rate := l.Rate
	if rate <= 0 {
		rate = l.Sim.TickRate
	}
	if rate <= 0 {
		rate = DefaultTickRate
	}

	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case m := <-l.inbox:
			l.Sim.Apply(m)
			if l.Sim.Over {
				return nil
			}

		case d := <-l.turns:
			if err := l.turn(d); err != nil {
				return err
			}

		case <-ticker.C:
			if l.Steer != nil {
				if err := l.turn(l.Steer.Steer(l.Sim)); err != nil {
					return err
				}
			}

			for _, m := range l.Sim.Tick() {
				if err := l.send(m); err != nil {
					return err
				}
			}

			if l.Sim.Over {
				return nil
			}
		}
	}
}

func (l *Loop) turn(d Direction) error {
	if m, ok := l.Sim.Turn(d); ok {
		return l.send(m)
	}
	return nil
}

func (l *Loop) send(m ClientMessage) error {
	if err := l.Out.Send(m); err != nil {
		return fmt.Errorf("send %s: %w", m.Type, err)
	}
	return nil
}
