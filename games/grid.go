package games

import (
	"math/rand/v2"
)

// Board geometry shared with the renderer.
const (
	TileCount  = 20
	CellSize   = 20
	CanvasSize = TileCount * CellSize

	// ScoreStep is the number of points credited per food item.
	ScoreStep = 10

	// DefaultTickRate is the client simulation rate in ticks per second.
	DefaultTickRate = 4
)

type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// InBounds reports whether c lies within [0,size)².
func (c Cell) InBounds(size int) bool {
	return c.X >= 0 && c.X < size && c.Y >= 0 && c.Y < size
}

// Direction is a movement vector: one of the four axis unit vectors, or zero.
type Direction struct {
	DX int `json:"dx"`
	DY int `json:"dy"`
}

var (
	Stop  = Direction{0, 0}
	Up    = Direction{0, -1}
	Down  = Direction{0, 1}
	Left  = Direction{-1, 0}
	Right = Direction{1, 0}
)

// Valid reports whether d is an axis unit vector or zero.
func (d Direction) Valid() bool {
	switch d {
	case Stop, Up, Down, Left, Right:
		return true
	}
	return false
}

func (d Direction) IsZero() bool {
	return d == Stop
}

// CanTurn reports whether a snake heading cur may switch to next. A turn is
// only accepted when it changes the axis of motion, which also rules out
// reversing into the neck. From a standstill any direction is accepted.
func CanTurn(cur, next Direction) bool {
	if !next.Valid() || next.IsZero() || next == cur {
		return false
	}
	if next.DX != 0 {
		return cur.DX == 0
	}
	return cur.DY == 0
}

// Step moves c one unit along d on a size×size torus.
func Step(c Cell, d Direction, size int) Cell {
	return Cell{
		X: (c.X + d.DX + size) % size,
		Y: (c.Y + d.DY + size) % size,
	}
}

// SpawnCell is where the snake in the given slot starts.
func SpawnCell(slot int) Cell {
	if slot == 0 {
		return Cell{5, 5}
	}
	return Cell{15, 15}
}

// LengthForScore is the snake length implied by a cumulative score.
func LengthForScore(score int) int {
	return 1 + score/ScoreStep
}

// RandomFreeCell samples uniformly among the cells of a size×size grid for
// which occupied returns false. If every cell is occupied, any cell is
// returned.
func RandomFreeCell(r *rand.Rand, size int, occupied func(Cell) bool) Cell {
	free := make([]Cell, 0, size*size)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := Cell{x, y}
			if occupied == nil || !occupied(c) {
				free = append(free, c)
			}
		}
	}
	if len(free) == 0 {
		return Cell{r.IntN(size), r.IntN(size)}
	}
	return free[r.IntN(len(free))]
}

// Occupancy builds an occupied predicate from any number of cell lists.
func Occupancy(lists ...[]Cell) func(Cell) bool {
	set := make(map[Cell]struct{})
	for _, l := range lists {
		for _, c := range l {
			set[c] = struct{}{}
		}
	}
	return func(c Cell) bool {
		_, ok := set[c]
		return ok
	}
}
