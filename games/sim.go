package games

// Simulation is one client's view of a match. It is a pure reducer: server
// events are folded in with Apply, time advances with Tick, and local input
// with Turn. Nothing in here performs I/O.
type Simulation struct {
	Slot     int // 0 = player1, 1 = player2
	Size     int
	RoomID   string
	Players  []string
	TickRate int

	Self        Snake
	Opponent    Snake
	SelfDir     Direction
	OpponentDir Direction

	Food   Cell
	Score1 int
	Score2 int

	Running bool
	Over    bool
	// Result is the terminal event type that ended the match, if any.
	Result string
	Ended  *GameEndedMessage

	claimed *Cell
}

// NewSimulation places both snakes on their spawn cells for the given slot.
func NewSimulation(slot int, food Cell) *Simulation {
	return &Simulation{
		Slot:     slot,
		Size:     TileCount,
		TickRate: DefaultTickRate,
		Self:     NewSnake(SpawnCell(slot)),
		Opponent: NewSnake(SpawnCell(1 - slot)),
		Food:     food,
	}
}

// SlotOf returns the slot a connection id occupies in the players list, or -1.
func SlotOf(players []string, id string) int {
	for i, p := range players {
		if p == id {
			return i
		}
	}
	return -1
}

func (s *Simulation) MyScore() int {
	if s.Slot == 0 {
		return s.Score1
	}
	return s.Score2
}

func (s *Simulation) OpponentScore() int {
	if s.Slot == 0 {
		return s.Score2
	}
	return s.Score1
}

// Won reports whether the finished match went to this client.
func (s *Simulation) Won() bool {
	return s.Ended != nil && s.Ended.Winner == SlotLabel(s.Slot)
}

// Turn changes the local direction if the axis rule allows it. The returned
// message, if any, must be sent to the server.
func (s *Simulation) Turn(d Direction) (ClientMessage, bool) {
	if !s.Running || !CanTurn(s.SelfDir, d) {
		return ClientMessage{}, false
	}
	s.SelfDir = d
	return ClientMessage{
		Type: TypePlayerMove,
		DX:   d.DX,
		DY:   d.DY,
		Body: s.Self.Cells(),
	}, true
}

// Tick advances both snakes one step and returns the events to emit.
func (s *Simulation) Tick() []ClientMessage {
	if !s.Running {
		return nil
	}

	s.Self.Move(s.SelfDir, s.Size)
	s.Opponent.Move(s.OpponentDir, s.Size)

	if s.Self.HitsSelf() {
		s.stop(TypeGameOver)
		return []ClientMessage{{
			Type: TypeGameOver,
			Body: s.Self.Cells(),
		}}
	}

	if s.Self.Head() == s.Food && (s.claimed == nil || *s.claimed != s.Food) {
		s.Self.Grow()
		food := s.Food
		s.claimed = &food
		return []ClientMessage{{
			Type: TypeFoodCollected,
			Food: &food,
			Body: s.Self.Cells(),
		}}
	}

	return nil
}

// Apply folds one server event into the simulation.
func (s *Simulation) Apply(m ServerMessage) {
	switch m.Type {
	case TypeGameStart:
		if m.InitialFood != nil {
			s.Food = *m.InitialFood
		}
		if m.TickRate > 0 {
			s.TickRate = m.TickRate
		}
		if m.RoomID != "" {
			s.RoomID = m.RoomID
		}
		s.Running = true

	case TypeOpponentMove:
		d := Direction{m.DX, m.DY}
		if d.Valid() {
			s.OpponentDir = d
		}
		if len(m.Body) > 0 {
			s.Opponent.Body = append(s.Opponent.Body[:0], m.Body...)
		}

	case TypeGameStateUpdate:
		if m.Food != nil {
			s.Food = *m.Food
		}
		s.Score1, s.Score2 = m.Score1, m.Score2

		mine, theirs := m.Length1, m.Length2
		if s.Slot == 1 {
			mine, theirs = theirs, mine
		}
		s.Self.GrowTo(mine)
		s.Opponent.GrowTo(theirs)

	case TypeGameEnded:
		if m.FinalScore != nil {
			s.Score1, s.Score2 = m.FinalScore.Player1, m.FinalScore.Player2
		}
		s.Ended = &GameEndedMessage{
			Type:     m.Type,
			Winner:   m.Winner,
			WinnerID: m.WinnerID,
			FinalScore: FinalScore{
				Player1: s.Score1,
				Player2: s.Score2,
			},
		}
		s.stop(m.Type)

	case TypeOpponentDisconnected, TypeMatchExpired:
		s.stop(m.Type)
	}
}

func (s *Simulation) stop(result string) {
	s.Running = false
	s.Over = true
	if s.Result == "" {
		s.Result = result
	}
}
