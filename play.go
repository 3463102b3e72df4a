package main

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Seednode/snakebox/games"
	"github.com/gorilla/websocket"
)

// wsSender serialises writes from the tick loop and the read loop onto one
// connection.
type wsSender struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (s *wsSender) Send(m games.ClientMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(m)
}

// match is the client side of one room, from gameFound to its terminal event.
type match struct {
	sim  *games.Simulation
	loop *games.Loop
	done chan error
}

// Play connects to cfg.server and plays matches with the autopilot until
// cfg.matches have finished or ctx is cancelled.
func Play(ctx context.Context, cfg *Config) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, cfg.server, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", cfg.server, err)
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() {
		_ = conn.Close()
	})
	defer stop()

	out := &wsSender{conn: conn}

	if err := out.Send(games.ClientMessage{Type: games.TypeFindGame}); err != nil {
		return fmt.Errorf("send %s: %w", games.TypeFindGame, err)
	}
	logf(cfg, "PLAY: Connected to %s, looking for a match", cfg.server)

	var (
		cur    *match
		played int
	)

	for {
		var m games.ServerMessage
		if err := conn.ReadJSON(&m); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}

		switch m.Type {
		case games.TypeWaitingForPlayer:
			logf(cfg, "PLAY: Waiting for an opponent")

		case games.TypeGameFound:
			slot := games.SlotOf(m.Players, m.PlayerID)
			if slot < 0 || m.InitialFood == nil {
				return errors.New("malformed gameFound from server")
			}

			sim := games.NewSimulation(slot, *m.InitialFood)
			sim.RoomID = m.RoomID
			sim.Players = m.Players
			cur = &match{sim: sim}

			logf(cfg, "PLAY: Matched in room %s as %s", m.RoomID, games.SlotLabel(slot))

			if err := out.Send(games.ClientMessage{Type: games.TypePlayerReady}); err != nil {
				return fmt.Errorf("send %s: %w", games.TypePlayerReady, err)
			}

		case games.TypePlayerReadyUpdate:
			logf(cfg, "PLAY: %d/2 players ready", m.ReadyPlayers)

		case games.TypeGameStart:
			if cur == nil || cur.loop != nil {
				continue
			}
			cur.sim.Apply(m)

			cur.loop = games.NewLoop(cur.sim, out)
			cur.loop.Steer = games.Autopilot{}
			cur.loop.Rate = cfg.clientTickRate
			cur.done = make(chan error, 1)

			go func(l *games.Loop, done chan<- error) {
				done <- l.Run(ctx)
			}(cur.loop, cur.done)

			logf(cfg, "PLAY: Match started at %d ticks per second", cur.sim.TickRate)

		case games.TypeGameEnded, games.TypeOpponentDisconnected, games.TypeMatchExpired:
			if err := cur.finish(m); err != nil {
				return err
			}

			if cur != nil {
				report(cur.sim)
				played++
			}
			cur = nil

			if cfg.matches > 0 && played >= cfg.matches {
				return nil
			}

			if err := out.Send(games.ClientMessage{Type: games.TypeFindGame}); err != nil {
				return fmt.Errorf("send %s: %w", games.TypeFindGame, err)
			}

		default:
			if cur == nil {
				continue
			}
			if cur.loop != nil {
				cur.loop.Deliver(m)
			} else {
				cur.sim.Apply(m)
			}
		}
	}
}

// finish hands the terminal event to the tick loop and waits for it to exit.
// If the loop already stopped on its own, the event is applied directly.
func (mt *match) finish(m games.ServerMessage) error {
	if mt == nil {
		return nil
	}

	delivered := false
	if mt.loop != nil {
		delivered = mt.loop.Deliver(m)

		if err := <-mt.done; err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("match %s: %w", mt.sim.RoomID, err)
		}
	}

	if !delivered {
		mt.sim.Apply(m)
	}

	return nil
}

func report(sim *games.Simulation) {
	var outcome string

	switch {
	case sim.Ended == nil:
		outcome = "ended early (" + sim.Result + ")"
	case sim.Won():
		outcome = "won"
	default:
		outcome = "lost"
	}

	fmt.Printf("%s | PLAY: Room %s %s as %s, score %d-%d\n",
		time.Now().Format(logDate),
		sim.RoomID,
		outcome,
		games.SlotLabel(sim.Slot),
		sim.MyScore(),
		sim.OpponentScore(),
	)
}
