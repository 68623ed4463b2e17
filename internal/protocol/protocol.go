// Package protocol parses inbound text frames and encodes outbound events.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/mcoot/minesgame/internal/model"
)

// ErrUnknownCommand is returned when the first token is not a known verb.
// Callers ignore such frames.
var ErrUnknownCommand = errors.New("unknown command")

// Verb is the first colon-separated token of an inbound frame
type Verb string

const (
	VerbPlaceBet     Verb = "SG"
	VerbRevealCell   Verb = "RC"
	VerbRevealRandom Verb = "RDC"
	VerbCashOut      Verb = "CO"
)

// Command is a parsed inbound frame. Only the fields relevant to Verb are set.
type Command struct {
	Verb  Verb
	Bet   model.Money
	Mines int
	Cell  model.Coord
}

// Parse decodes a frame such as "SG:10.00:3", "RC:2:4", "RDC" or "CO"
func Parse(raw string) (Command, error) {
	parts := strings.Split(strings.TrimSpace(raw), ":")
	verb := Verb(parts[0])
	args := parts[1:]

	switch verb {
	case VerbPlaceBet:
		return parsePlaceBet(args)
	case VerbRevealCell:
		return parseRevealCell(args)
	case VerbRevealRandom, VerbCashOut:
		return Command{Verb: verb}, nil
	default:
		return Command{}, fmt.Errorf("%w: %q", ErrUnknownCommand, parts[0])
	}
}

func parsePlaceBet(args []string) (Command, error) {
	if len(args) < 2 || args[0] == "" || args[1] == "" {
		return Command{}, model.ErrMissingBetDetails
	}
	bet, err := model.ParseMoney(args[0])
	if err != nil {
		return Command{}, fmt.Errorf("%w: %w", model.ErrMissingBetDetails, err)
	}
	mines, err := strconv.Atoi(strings.TrimSpace(args[1]))
	if err != nil {
		return Command{}, fmt.Errorf("%w: mines %q", model.ErrMissingBetDetails, args[1])
	}
	return Command{Verb: VerbPlaceBet, Bet: bet, Mines: mines}, nil
}

func parseRevealCell(args []string) (Command, error) {
	if len(args) < 2 {
		return Command{}, model.ErrInvalidCell
	}
	row, err := strconv.Atoi(strings.TrimSpace(args[0]))
	if err != nil {
		return Command{}, fmt.Errorf("%w: row %q", model.ErrInvalidCell, args[0])
	}
	col, err := strconv.Atoi(strings.TrimSpace(args[1]))
	if err != nil {
		return Command{}, fmt.Errorf("%w: col %q", model.ErrInvalidCell, args[1])
	}
	return Command{Verb: VerbRevealCell, Cell: model.Coord{Row: row, Col: col}}, nil
}

// String returns the wire form of the command
func (c Command) String() string {
	switch c.Verb {
	case VerbPlaceBet:
		return fmt.Sprintf("SG:%s:%d", c.Bet, c.Mines)
	case VerbRevealCell:
		return fmt.Sprintf("RC:%d:%d", c.Cell.Row, c.Cell.Col)
	default:
		return string(c.Verb)
	}
}

// Frame is the outbound envelope
type Frame struct {
	Event model.EventName `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Encode serializes an event into its outbound frame
func Encode(e model.Event) ([]byte, error) {
	data, err := json.Marshal(e.Data)
	if err != nil {
		return nil, fmt.Errorf("encode %s: %w", e.Name, err)
	}
	return json.Marshal(Frame{Event: e.Name, Data: data})
}

// Decode parses an outbound frame. Used by clients and tests.
func Decode(b []byte) (Frame, error) {
	var f Frame
	if err := json.Unmarshal(b, &f); err != nil {
		return Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}
