package games

// Snake is an ordered list of cells, head first.
type Snake struct {
	Body []Cell
}

func NewSnake(head Cell) Snake {
	return Snake{Body: []Cell{head}}
}

func (s *Snake) Head() Cell {
	return s.Body[0]
}

func (s *Snake) Len() int {
	return len(s.Body)
}

// Move advances the head one cell along d with wraparound and drops the tail,
// keeping the length unchanged. A zero direction leaves the snake in place.
func (s *Snake) Move(d Direction, size int) {
	if d.IsZero() || len(s.Body) == 0 {
		return
	}
	head := Step(s.Body[0], d, size)
	copy(s.Body[1:], s.Body[:len(s.Body)-1])
	s.Body[0] = head
}

// Grow appends one trailing segment on top of the current tail.
func (s *Snake) Grow() {
	s.Body = append(s.Body, s.Body[len(s.Body)-1])
}

// GrowTo grows the snake until it is at least n cells long. It never shrinks.
func (s *Snake) GrowTo(n int) {
	for len(s.Body) < n {
		s.Grow()
	}
}

// HitsSelf reports whether the head shares a cell with any other segment.
func (s *Snake) HitsSelf() bool {
	if len(s.Body) < 2 {
		return false
	}
	head := s.Body[0]
	for _, c := range s.Body[1:] {
		if c == head {
			return true
		}
	}
	return false
}

// Occupies reports whether any segment lies on c.
func (s *Snake) Occupies(c Cell) bool {
	for _, b := range s.Body {
		if b == c {
			return true
		}
	}
	return false
}

// Cells returns a copy of the body, safe to hand to another goroutine.
func (s *Snake) Cells() []Cell {
	out := make([]Cell, len(s.Body))
	copy(out, s.Body)
	return out
}
