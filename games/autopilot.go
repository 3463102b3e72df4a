package games

// Autopilot steers greedily toward the food on the torus while refusing
// moves that would put the head on its own body.
type Autopilot struct{}

var steerOrder = []Direction{Up, Right, Down, Left}

func (Autopilot) Steer(s *Simulation) Direction {
	head := s.Self.Head()
	best := s.SelfDir
	bestDist := -1

	candidates := make([]Direction, 0, 5)
	if !s.SelfDir.IsZero() {
		candidates = append(candidates, s.SelfDir)
	}
	for _, d := range steerOrder {
		if CanTurn(s.SelfDir, d) {
			candidates = append(candidates, d)
		}
	}

	for _, d := range candidates {
		next := Step(head, d, s.Size)
		if blocked(&s.Self, next) {
			continue
		}
		dist := torusDistance(next, s.Food, s.Size)
		if bestDist < 0 || dist < bestDist {
			best, bestDist = d, dist
		}
	}

	return best
}

// blocked reports whether next is on a segment that will still be there after
// the snake moves. The last cell is vacated unless it is a fresh growth
// segment stacked on the one before it.
func blocked(s *Snake, next Cell) bool {
	n := len(s.Body)
	if n < 2 {
		return false
	}
	keep := s.Body[:n-1]
	if s.Body[n-1] == s.Body[n-2] {
		keep = s.Body
	}
	for _, c := range keep {
		if c == next {
			return true
		}
	}
	return false
}

func torusDistance(a, b Cell, size int) int {
	return axisDistance(a.X, b.X, size) + axisDistance(a.Y, b.Y, size)
}

func axisDistance(a, b, size int) int {
	d := a - b
	if d < 0 {
		d = -d
	}
	if size-d < d {
		return size - d
	}
	return d
}
