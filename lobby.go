/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"math/rand/v2"
	"sync"
	"time"

	"github.com/Seednode/snakebox/games"
	"github.com/gorilla/websocket"
)

// Client is one websocket connection. Everything but conn and send is owned
// by the lobby goroutine.
type Client struct {
	conn *websocket.Conn
	send chan any
	id   string

	roomID string
	closed bool
}

type clientEvent struct {
	client *Client
	msg    games.ClientMessage
}

// Lobby owns the room registry. Every registry and room mutation happens on
// the run goroutine, one event at a time, so no room state needs a lock.
type Lobby struct {
	cfg     *Config
	rooms   *Registry
	clients map[*Client]bool
	rng     *rand.Rand
	now     func() time.Time

	register chan *Client
	unreg    chan *Client
	events   chan clientEvent
	stats    chan chan RoomCounts
	quit     chan struct{}

	stopOnce sync.Once
}

func newLobby(cfg *Config, rng *rand.Rand) *Lobby {
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &Lobby{
		cfg:      cfg,
		rooms:    newRegistry(),
		clients:  make(map[*Client]bool),
		rng:      rng,
		now:      time.Now,
		register: make(chan *Client),
		unreg:    make(chan *Client),
		events:   make(chan clientEvent),
		stats:    make(chan chan RoomCounts),
		quit:     make(chan struct{}),
	}
}

func (l *Lobby) run() {
	var reap <-chan time.Time
	if l.cfg.roomTimeout > 0 {
		ticker := time.NewTicker(l.cfg.roomTimeout / 2)
		defer ticker.Stop()
		reap = ticker.C
	}

	for {
		select {
		case c := <-l.register:
			l.connect(c)

		case c := <-l.unreg:
			l.disconnect(c)

		case ev := <-l.events:
			l.dispatch(ev)

		case reply := <-l.stats:
			reply <- l.rooms.Counts()

		case <-reap:
			l.reap()

		case <-l.quit:
			l.closeAll()
			return
		}
	}
}

func (l *Lobby) stop() {
	l.stopOnce.Do(func() {
		close(l.quit)
	})
}

// Stats asks the run goroutine for a snapshot of room counts.
func (l *Lobby) Stats() (RoomCounts, bool) {
	reply := make(chan RoomCounts, 1)
	select {
	case l.stats <- reply:
		return <-reply, true
	case <-l.quit:
		return RoomCounts{}, false
	}
}

func (l *Lobby) connect(c *Client) {
	l.clients[c] = true
	logf(l.cfg, "CONNS: %s connected (%d online)", c.id, len(l.clients))
}

// disconnect is safe to call more than once for the same client.
func (l *Lobby) disconnect(c *Client) {
	if _, ok := l.clients[c]; ok {
		delete(l.clients, c)
		logf(l.cfg, "CONNS: %s disconnected (%d online)", c.id, len(l.clients))
	}
	if !c.closed {
		c.closed = true
		close(c.send)
	}

	room, slot := l.roomOf(c)
	c.roomID = ""
	if room == nil {
		return
	}

	if peer := room.peer(slot); peer != nil {
		l.deliver(peer.Client, games.SimpleMessage{Type: games.TypeOpponentDisconnected})
	}
	l.teardown(room, "player disconnected")
}

func (l *Lobby) dispatch(ev clientEvent) {
	c := ev.client
	if c.closed {
		return
	}

	switch ev.msg.Type {
	case games.TypeFindGame:
		l.handleFindGame(c)
	case games.TypePlayerReady:
		l.handleReady(c)
	case games.TypePlayerMove:
		l.handleMove(c, ev.msg)
	case games.TypeFoodCollected:
		l.handleFoodCollected(c, ev.msg)
	case games.TypeGameOver:
		l.handleGameOver(c)
	default:
		// ignore unknown types
	}
}

// roomOf resolves the room c belongs to. A stale id yields nil.
func (l *Lobby) roomOf(c *Client) (*Room, int) {
	room, ok := l.rooms.Get(c.roomID)
	if !ok {
		return nil, -1
	}
	slot := room.slotOf(c)
	if slot < 0 {
		return nil, -1
	}
	return room, slot
}

func (l *Lobby) handleFindGame(c *Client) {
	if room, _ := l.roomOf(c); room != nil {
		if room.Status == Waiting {
			l.deliver(c, games.SimpleMessage{Type: games.TypeWaitingForPlayer})
		}
		return
	}
	c.roomID = ""

	now := l.now()

	if room := l.rooms.FindJoinable(c); room != nil {
		if err := room.join(c); err != nil {
			logf(l.cfg, "MATCH: %s could not join %s: %v", c.id, room.ID, err)
			return
		}
		c.roomID = room.ID
		room.Status = Ready
		room.LastActive = now

		players := room.playerIDs()
		for _, p := range room.Players {
			l.deliver(p.Client, games.GameFoundMessage{
				Type:        games.TypeGameFound,
				RoomID:      room.ID,
				Players:     players,
				InitialFood: room.State.Food,
				PlayerID:    p.ID,
			})
		}
		logf(l.cfg, "MATCH: %s joined %s as %s", c.id, room.ID, games.SlotLabel(1))
		return
	}

	spawns := []games.Cell{games.SpawnCell(0), games.SpawnCell(1)}
	food := games.RandomFreeCell(l.rng, games.TileCount, games.Occupancy(spawns))

	room := l.rooms.Create(c, food, now)
	c.roomID = room.ID

	l.deliver(c, games.SimpleMessage{Type: games.TypeWaitingForPlayer})
	logf(l.cfg, "ROOMS: %s created by %s (%d rooms)", room.ID, c.id, l.rooms.Len())
}

func (l *Lobby) handleReady(c *Client) {
	room, slot := l.roomOf(c)
	if room == nil || room.Status != Ready {
		return
	}

	p := room.Players[slot]
	if p.Ready {
		return
	}
	p.Ready = true
	room.LastActive = l.now()

	n := room.readyCount()
	l.broadcast(room, games.ReadyUpdateMessage{
		Type:         games.TypePlayerReadyUpdate,
		ReadyPlayers: n,
	})

	if n < 2 || len(room.Players) < 2 {
		return
	}

	room.Status = Active
	l.broadcast(room, games.GameStartMessage{
		Type:        games.TypeGameStart,
		RoomID:      room.ID,
		Players:     room.playerIDs(),
		InitialFood: room.State.Food,
		TickRate:    l.cfg.tickRate,
	})
	logf(l.cfg, "MATCH: %s started", room.ID)
}

func (l *Lobby) handleMove(c *Client, msg games.ClientMessage) {
	room, slot := l.roomOf(c)
	if room == nil || room.Status != Active {
		return
	}

	d := games.Direction{DX: msg.DX, DY: msg.DY}
	if !d.Valid() {
		logf(l.cfg, "RELAY: dropped malformed direction %v from %s", d, c.id)
		return
	}
	room.LastActive = l.now()

	relay := games.OpponentMoveMessage{
		Type: games.TypeOpponentMove,
		DX:   d.DX,
		DY:   d.DY,
	}
	if len(msg.Body) > 0 {
		room.rememberBody(slot, msg.Body)
		relay.Body = room.bodies[slot]
	}

	if peer := room.peer(slot); peer != nil {
		l.deliver(peer.Client, relay)
	}
}

func (l *Lobby) handleFoodCollected(c *Client, msg games.ClientMessage) {
	room, slot := l.roomOf(c)
	if room == nil || room.Status != Active {
		return
	}

	if l.cfg.validateFood && (msg.Food == nil || *msg.Food != room.State.Food) {
		logf(l.cfg, "RELAY: rejected food claim %v from %s in %s (food is at %v)",
			msg.Food, c.id, room.ID, room.State.Food)
		return
	}
	room.LastActive = l.now()

	room.rememberBody(slot, msg.Body)
	room.credit(slot)
	room.State.Food = games.RandomFreeCell(l.rng, games.TileCount, room.occupied())

	l.broadcast(room, room.stateMessage())
	logf(l.cfg, "RELAY: %s scored in %s (%d-%d)", games.SlotLabel(slot), room.ID, room.State.Score1, room.State.Score2)
}

func (l *Lobby) handleGameOver(c *Client) {
	room, slot := l.roomOf(c)
	if room == nil || room.Status != Active {
		return
	}

	winner := 1 - slot
	msg := games.GameEndedMessage{
		Type:   games.TypeGameEnded,
		Winner: games.SlotLabel(winner),
		FinalScore: games.FinalScore{
			Player1: room.State.Score1,
			Player2: room.State.Score2,
		},
	}
	if p := room.peer(slot); p != nil {
		msg.WinnerID = p.ID
	}

	l.broadcast(room, msg)
	l.teardown(room, msg.Winner+" won")
}

// reap ends rooms that have sat in Waiting or Ready longer than the room
// timeout.
func (l *Lobby) reap() {
	cutoff := l.now().Add(-l.cfg.roomTimeout)

	var expired []*Room
	l.rooms.Each(func(r *Room) {
		if (r.Status == Waiting || r.Status == Ready) && r.LastActive.Before(cutoff) {
			expired = append(expired, r)
		}
	})

	for _, r := range expired {
		l.broadcast(r, games.SimpleMessage{Type: games.TypeMatchExpired})
		l.teardown(r, "idle")
	}
}

// teardown marks a room ended, detaches its players, and deletes it.
func (l *Lobby) teardown(room *Room, reason string) {
	room.Status = Ended
	for _, p := range room.Players {
		if p.Client.roomID == room.ID {
			p.Client.roomID = ""
		}
	}
	if l.rooms.Delete(room.ID) {
		logf(l.cfg, "ROOMS: %s ended: %s (%d rooms)", room.ID, reason, l.rooms.Len())
	}
}

func (l *Lobby) broadcast(room *Room, msg any) {
	for _, p := range room.Players {
		l.deliver(p.Client, msg)
	}
}

// deliver queues msg for c without blocking. A client whose buffer is full is
// dropped; its read pump then unregisters it, which tears down its room.
func (l *Lobby) deliver(c *Client, msg any) bool {
	if c.closed {
		return false
	}

	select {
	case c.send <- msg:
		return true
	default:
		delete(l.clients, c)
		c.closed = true
		close(c.send)
		logf(l.cfg, "CONNS: dropped slow client %s", c.id)
		return false
	}
}

// closeAll disconnects every client (used on shutdown).
func (l *Lobby) closeAll() {
	for c := range l.clients {
		if !c.closed {
			c.closed = true
			close(c.send)
		}
		delete(l.clients, c)
	}
}
