package games

import (
	"math/rand/v2"
	"testing"
)

func rngForTest(i int) *rand.Rand {
	return rand.New(rand.NewPCG(uint64(i), 99))
}

func TestAutopilotHeadsForFood(t *testing.T) {
	s := startedSim(0, Cell{9, 5})

	if d := (Autopilot{}).Steer(s); d != Right {
		t.Fatalf("expected Right toward food, got %v", d)
	}
}

func TestAutopilotUsesWraparound(t *testing.T) {
	s := startedSim(0, Cell{5, 18})

	if d := (Autopilot{}).Steer(s); d != Up {
		t.Fatalf("expected Up across the edge, got %v", d)
	}
}

func TestAutopilotAvoidsOwnBody(t *testing.T) {
	s := startedSim(0, Cell{5, 2})
	// Heading right with the body curled above the head.
	s.Self.Body = []Cell{{5, 5}, {5, 4}, {6, 4}, {7, 4}, {7, 5}, {7, 6}}
	s.SelfDir = Right

	d := (Autopilot{}).Steer(s)
	if d == Up {
		t.Fatalf("autopilot steered into its own body")
	}
	if !CanTurn(s.SelfDir, d) && d != s.SelfDir {
		t.Fatalf("autopilot chose an illegal turn %v", d)
	}
}

func TestAutopilotNeverCollidesAlone(t *testing.T) {
	s := startedSim(0, Cell{0, 0})
	pilot := Autopilot{}

	for i := 0; i < 300 && s.Running && s.Self.Len() < 6; i++ {
		s.Turn(pilot.Steer(s))
		for _, m := range s.Tick() {
			if m.Type == TypeFoodCollected {
				food := RandomFreeCell(rngForTest(i), s.Size, Occupancy(s.Self.Body))
				s.Apply(ServerMessage{
					Type:    TypeGameStateUpdate,
					Food:    &food,
					Score1:  s.Score1 + ScoreStep,
					Length1: s.Self.Len(),
					Length2: 1,
				})
			}
		}
	}

	if s.Over {
		t.Fatalf("autopilot crashed into itself at length %d", s.Self.Len())
	}
	if s.Score1 == 0 {
		t.Fatalf("autopilot never collected food")
	}
}
