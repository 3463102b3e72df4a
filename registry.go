package main

import (
	"errors"
	"slices"
	"time"

	"github.com/Seednode/snakebox/games"
	"github.com/google/uuid"
)

var ErrRoomFull = errors.New("room already has two players")

type RoomStatus int

const (
	Waiting RoomStatus = iota
	Ready
	Active
	Ended
)

func (s RoomStatus) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Ready:
		return "ready"
	case Active:
		return "active"
	case Ended:
		return "ended"
	}
	return "unknown"
}

// Player is one occupied slot in a room.
type Player struct {
	Client *Client
	ID     string
	Ready  bool
}

// GameState is the server-owned part of a match.
type GameState struct {
	Food   games.Cell
	Score1 int
	Score2 int
}

type Room struct {
	ID      string
	Players []*Player // slot order
	Status  RoomStatus
	State   GameState

	// last body each slot reported, only used to keep new food off the snakes
	bodies [2][]games.Cell

	CreatedAt  time.Time
	LastActive time.Time
}

func (r *Room) join(c *Client) error {
	if len(r.Players) >= 2 {
		return ErrRoomFull
	}
	r.Players = append(r.Players, &Player{Client: c, ID: c.id})
	return nil
}

// slotOf returns the slot c occupies, or -1.
func (r *Room) slotOf(c *Client) int {
	for i, p := range r.Players {
		if p.Client == c {
			return i
		}
	}
	return -1
}

// peer returns the other occupant of the room, if any.
func (r *Room) peer(slot int) *Player {
	other := 1 - slot
	if other < 0 || other >= len(r.Players) {
		return nil
	}
	return r.Players[other]
}

func (r *Room) playerIDs() []string {
	ids := make([]string, 0, len(r.Players))
	for _, p := range r.Players {
		ids = append(ids, p.ID)
	}
	return ids
}

func (r *Room) readyCount() int {
	n := 0
	for _, p := range r.Players {
		if p.Ready {
			n++
		}
	}
	return n
}

// credit adds one food item's worth of points to the given slot.
func (r *Room) credit(slot int) {
	if slot == 0 {
		r.State.Score1 += games.ScoreStep
	} else {
		r.State.Score2 += games.ScoreStep
	}
}

func (r *Room) rememberBody(slot int, body []games.Cell) {
	if slot < 0 || slot > 1 || len(body) == 0 {
		return
	}
	kept := make([]games.Cell, 0, len(body))
	for _, c := range body {
		if c.InBounds(games.TileCount) {
			kept = append(kept, c)
		}
		if len(kept) == games.TileCount*games.TileCount {
			break
		}
	}
	r.bodies[slot] = kept
}

// occupied reports cells the next food must avoid: both snakes as last
// reported (spawn cells until a report arrives) and the current food.
func (r *Room) occupied() func(games.Cell) bool {
	lists := make([][]games.Cell, 0, 3)
	for slot := range r.bodies {
		if len(r.bodies[slot]) > 0 {
			lists = append(lists, r.bodies[slot])
		} else {
			lists = append(lists, []games.Cell{games.SpawnCell(slot)})
		}
	}
	lists = append(lists, []games.Cell{r.State.Food})
	return games.Occupancy(lists...)
}

func (r *Room) stateMessage() games.GameStateMessage {
	return games.GameStateMessage{
		Type:    games.TypeGameStateUpdate,
		Food:    r.State.Food,
		Score1:  r.State.Score1,
		Score2:  r.State.Score2,
		Length1: games.LengthForScore(r.State.Score1),
		Length2: games.LengthForScore(r.State.Score2),
	}
}

// RoomCounts is a snapshot of how many rooms sit in each state.
type RoomCounts struct {
	Waiting int `json:"waiting"`
	Ready   int `json:"ready"`
	Active  int `json:"active"`
	Players int `json:"players"`
}

// Registry maps room ids to rooms and remembers insertion order, so that the
// first-fit scan in FindJoinable is deterministic.
type Registry struct {
	order []string
	rooms map[string]*Room
	newID func() string
}

func newRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
		newID: uuid.NewString,
	}
}

// Create inserts a Waiting room with c in slot 0.
func (reg *Registry) Create(c *Client, food games.Cell, now time.Time) *Room {
	id := reg.newID()
	for {
		if _, exists := reg.rooms[id]; !exists {
			break
		}
		id = reg.newID()
	}

	r := &Room{
		ID:         id,
		Status:     Waiting,
		State:      GameState{Food: food},
		CreatedAt:  now,
		LastActive: now,
	}
	_ = r.join(c)

	reg.rooms[id] = r
	reg.order = append(reg.order, id)

	return r
}

// FindJoinable returns the first room, in creation order, holding exactly one
// player other than c.
func (reg *Registry) FindJoinable(c *Client) *Room {
	for _, id := range reg.order {
		r := reg.rooms[id]
		if len(r.Players) == 1 && r.Players[0].Client != c {
			return r
		}
	}
	return nil
}

func (reg *Registry) Get(id string) (*Room, bool) {
	if id == "" {
		return nil, false
	}
	r, ok := reg.rooms[id]
	return r, ok
}

// Delete removes a room. Removing an absent room is a no-op that returns false.
func (reg *Registry) Delete(id string) bool {
	if _, ok := reg.rooms[id]; !ok {
		return false
	}
	delete(reg.rooms, id)
	reg.order = slices.DeleteFunc(reg.order, func(s string) bool { return s == id })
	return true
}

func (reg *Registry) Len() int {
	return len(reg.rooms)
}

// Each visits rooms in creation order. fn must not add or delete rooms.
func (reg *Registry) Each(fn func(*Room)) {
	for _, id := range reg.order {
		fn(reg.rooms[id])
	}
}

func (reg *Registry) Counts() RoomCounts {
	var rc RoomCounts
	reg.Each(func(r *Room) {
		switch r.Status {
		case Waiting:
			rc.Waiting++
		case Ready:
			rc.Ready++
		case Active:
			rc.Active++
		}
		rc.Players += len(r.Players)
	})
	return rc
}
