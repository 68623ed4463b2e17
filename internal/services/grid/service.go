package grid

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"maps"
	"strconv"

	"github.com/mcoot/minesgame/internal/dependencies/random"
	"github.com/mcoot/minesgame/internal/model"
)

// DefaultSize is the side length of the grid when none is configured
const DefaultSize = 5

// DefaultTable is the built-in payout table keyed by mines plus safe reveals
func DefaultTable() model.MultiplierTable {
	return model.MultiplierTable{
		1: 1.01, 2: 1.05, 3: 1.10, 4: 1.15, 5: 1.21,
		6: 1.27, 7: 1.34, 8: 1.42, 9: 1.51, 10: 1.61,
		11: 1.73, 12: 1.86, 13: 2.02, 14: 2.20, 15: 2.42,
		16: 2.69, 17: 3.03, 18: 3.46, 19: 4.04, 20: 4.85,
		21: 6.06, 22: 8.08, 23: 12.12, 24: 23.25, 25: 24.25,
	}
}

// Table is a multiplier table that can be loaded from configuration as a
// JSON object such as {"1": 1.01, "2": 1.05}
type Table model.MultiplierTable

// UnmarshalText parses the JSON form of the table
func (t *Table) UnmarshalText(text []byte) error {
	var raw map[string]float64
	if err := json.Unmarshal(text, &raw); err != nil {
		return fmt.Errorf("parse multiplier table: %w", err)
	}
	parsed := make(Table, len(raw))
	for k, v := range raw {
		n, err := strconv.Atoi(k)
		if err != nil {
			return fmt.Errorf("parse multiplier table key %q: %w", k, err)
		}
		parsed[n] = v
	}
	*t = parsed
	return nil
}

// MissingKey returns the first count in 1..size² that table has no
// multiplier for
func MissingKey(table model.MultiplierTable, size int) (int, bool) {
	for k := 1; k <= size*size; k++ {
		if _, ok := table[k]; !ok {
			return k, true
		}
	}
	return 0, false
}

// Service generates mine layouts and looks up payout multipliers
type Service struct {
	size   int
	table  model.MultiplierTable
	random random.Random
	logger *slog.Logger
}

// New creates a grid service. An empty table falls back to DefaultTable and
// a non-positive size to DefaultSize.
func New(size int, table model.MultiplierTable, random random.Random, logger *slog.Logger) *Service {
	if size <= 0 {
		size = DefaultSize
	}
	if len(table) == 0 {
		table = DefaultTable()
	}
	return &Service{
		size:   size,
		table:  maps.Clone(table),
		random: random,
		logger: logger.With(slog.String("component", "grid")),
	}
}

// Size returns the configured grid side length
func (s *Service) Size() int {
	return s.size
}

// Table returns a copy of the multiplier table
func (s *Service) Table() model.MultiplierTable {
	return maps.Clone(s.table)
}

// GenerateGrid places exactly mineCount mines uniformly at random
func (s *Service) GenerateGrid(mineCount int) (model.Grid, error) {
	cells := s.size * s.size
	if mineCount < 1 || mineCount >= cells {
		return nil, model.ErrInvalidMineCount
	}

	g := model.NewGrid(s.size)
	placed := 0
	for placed < mineCount {
		idx := s.random.Intn(cells)
		cell := &g[idx/s.size][idx%s.size]
		if cell.IsMine {
			continue
		}
		cell.IsMine = true
		placed++
	}
	return g, nil
}

// NextMultiplier returns the multiplier for the given count of accounted cells
func (s *Service) NextMultiplier(count int) (float64, error) {
	m, ok := s.table[count]
	if !ok {
		return 0, fmt.Errorf("%w: key %d", model.ErrMultiplierNotFound, count)
	}
	return m, nil
}

// ValidateCoverage checks that every lookup a round with mineCount mines can
// make is present in the table
func (s *Service) ValidateCoverage(mineCount int) error {
	cells := s.size * s.size
	if mineCount < 1 || mineCount >= cells {
		return model.ErrInvalidMineCount
	}
	for k := mineCount; k <= cells; k++ {
		if _, err := s.NextMultiplier(k); err != nil {
			s.logger.Error("multiplier table does not cover round",
				slog.Int("mines", mineCount),
				slog.Int("missing_key", k),
			)
			return err
		}
	}
	return nil
}

// RandomUnrevealed picks a uniformly random cell that has not been revealed
func (s *Service) RandomUnrevealed(g model.Grid) (model.Coord, bool) {
	var candidates []model.Coord
	for r, row := range g {
		for c, cell := range row {
			if !cell.Revealed {
				candidates = append(candidates, model.Coord{Row: r, Col: c})
			}
		}
	}
	if len(candidates) == 0 {
		return model.Coord{}, false
	}
	return candidates[s.random.Intn(len(candidates))], true
}
