package model

import (
	"fmt"
	"time"
)

// RoundID uniquely identifies a round
type RoundID string

// Coord addresses a grid cell
type Coord struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// String returns the "row:col" form sent to clients
func (c Coord) String() string {
	return fmt.Sprintf("%d:%d", c.Row, c.Col)
}

// Cell is a single grid position
type Cell struct {
	IsMine   bool `json:"isMine"`
	Revealed bool `json:"revealed"`
}

// Grid is a square matrix of cells indexed [row][col]
type Grid [][]Cell

// NewGrid creates an empty size x size grid
func NewGrid(size int) Grid {
	g := make(Grid, size)
	for i := range g {
		g[i] = make([]Cell, size)
	}
	return g
}

// Size returns the side length of the grid
func (g Grid) Size() int {
	return len(g)
}

// InBounds reports whether the coordinate addresses a cell of the grid
func (g Grid) InBounds(c Coord) bool {
	return c.Row >= 0 && c.Col >= 0 && c.Row < len(g) && c.Col < len(g[c.Row])
}

// At returns a pointer to the cell at c. The caller must check InBounds.
func (g Grid) At(c Coord) *Cell {
	return &g[c.Row][c.Col]
}

// CountMines returns the number of mines on the grid
func (g Grid) CountMines() int {
	n := 0
	for _, row := range g {
		for _, cell := range row {
			if cell.IsMine {
				n++
			}
		}
	}
	return n
}

// CountAccounted returns the number of cells that are either mines or revealed
func (g Grid) CountAccounted() int {
	n := 0
	for _, row := range g {
		for _, cell := range row {
			if cell.IsMine || cell.Revealed {
				n++
			}
		}
	}
	return n
}

// BetRef is the structured bet identifier used to correlate ledger calls
type BetRef struct {
	RoundID    RoundID `json:"round_id"`
	OperatorID string  `json:"operator_id"`
	UserID     string  `json:"user_id"`
	Amount     Money   `json:"amount"`
	Mines      int     `json:"mines"`
}

// String returns the wire form "BT:<round>:<operator>:<user>:<amount>:<mines>"
func (b BetRef) String() string {
	return fmt.Sprintf("BT:%s:%s:%s:%s:%d", b.RoundID, b.OperatorID, b.UserID, b.Amount, b.Mines)
}

// Round is one bet -> reveals -> terminal outcome
type Round struct {
	ID     RoundID  `json:"matchId"`
	Player PlayerID `json:"player"`
	BetRef BetRef   `json:"bet_ref"`
	Bet    Money    `json:"bet"`
	Mines  int      `json:"mines"`
	Grid   Grid     `json:"playerGrid"`

	// Revealed lists safe and mine reveals in the order they happened
	Revealed []Coord `json:"revealed"`
	// RevealedCount starts at Mines and counts every accounted cell
	RevealedCount int `json:"revealedCellCount"`

	Bank              Money   `json:"bank"`
	CurrentMultiplier float64 `json:"currentMultiplier"`
	NextMultiplier    float64 `json:"multiplier"`

	TxnID     string    `json:"txn_id"`
	CreatedAt time.Time `json:"created_at"`
}

// RevealedStrings returns the revealed coordinates in "row:col" form
func (r *Round) RevealedStrings() []string {
	out := make([]string, len(r.Revealed))
	for i, c := range r.Revealed {
		out[i] = c.String()
	}
	return out
}

// AllAccounted reports whether every cell is either a mine or revealed
func (r *Round) AllAccounted() bool {
	size := r.Grid.Size()
	return r.RevealedCount >= size*size
}

// Clone returns a deep copy of the round
func (r *Round) Clone() *Round {
	c := *r
	c.Grid = make(Grid, len(r.Grid))
	for i, row := range r.Grid {
		c.Grid[i] = append([]Cell(nil), row...)
	}
	c.Revealed = append([]Coord(nil), r.Revealed...)
	return &c
}
