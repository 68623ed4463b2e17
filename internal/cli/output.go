package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mcoot/minesgame/internal/model"
	"github.com/mcoot/minesgame/internal/protocol"
)

// Output handles formatting output based on the configured format
type Output struct {
	format string
}

// NewOutput creates a new Output formatter
func NewOutput(format string) *Output {
	return &Output{format: format}
}

// Print outputs data in the configured format
func (o *Output) Print(data any) {
	if o.format == "json" {
		o.printJSON(data)
	} else {
		o.printText(data)
	}
}

// PrintError outputs an error
func (o *Output) PrintError(err error) {
	if o.format == "json" {
		errData := map[string]any{
			"error": map[string]string{
				"message": err.Error(),
			},
		}
		data, _ := json.Marshal(errData)
		fmt.Fprintln(os.Stderr, string(data))
	} else {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	}
}

// PrintMessage outputs a simple message
func (o *Output) PrintMessage(msg string) {
	if o.format == "json" {
		data, _ := json.Marshal(map[string]string{"message": msg})
		fmt.Println(string(data))
	} else {
		fmt.Println(msg)
	}
}

func (o *Output) printJSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	if _, ok := data.(protocol.Frame); !ok {
		enc.SetIndent("", "  ")
	}
	_ = enc.Encode(data)
}

func (o *Output) printText(data any) {
	switch v := data.(type) {
	case HealthResult:
		o.printHealthResult(v)
	case MultipliersResult:
		o.printMultipliers(v)
	case TokenResult:
		o.printToken(v)
	case CreditFailuresResult:
		o.printCreditFailures(v)
	case protocol.Frame:
		o.printFrame(v)
	default:
		// Fallback to JSON for unknown types
		o.printJSON(data)
	}
}

// HealthResult response type
type HealthResult struct {
	Status      string `json:"status"`
	Connections int    `json:"connections"`
}

// MultipliersResult response type
type MultipliersResult struct {
	GridSize    int `json:"grid_size"`
	Multipliers []struct {
		Cells      int     `json:"cells"`
		Multiplier float64 `json:"multiplier"`
	} `json:"multipliers"`
}

// TokenResult response type
type TokenResult struct {
	Token      string `json:"token"`
	OperatorID string `json:"operator_id"`
	UserID     string `json:"user_id"`
}

// CreditFailure response type
type CreditFailure struct {
	RoundID    string      `json:"round_id"`
	BetID      string      `json:"bet_id"`
	OperatorID string      `json:"operator_id"`
	UserID     string      `json:"user_id"`
	Amount     model.Money `json:"amount"`
	TxnID      string      `json:"txn_id"`
	Reason     string      `json:"reason"`
	CreatedAt  time.Time   `json:"created_at"`
}

// CreditFailuresResult response type
type CreditFailuresResult struct {
	Failures []CreditFailure `json:"failures"`
	Total    model.Money     `json:"total"`
}

func (o *Output) printHealthResult(h HealthResult) {
	fmt.Printf("Status: %s\n", h.Status)
	fmt.Printf("Connections: %d\n", h.Connections)
}

func (o *Output) printMultipliers(m MultipliersResult) {
	fmt.Printf("Grid: %dx%d\n", m.GridSize, m.GridSize)
	for _, row := range m.Multipliers {
		fmt.Printf("  %2d cells: x%.2f\n", row.Cells, row.Multiplier)
	}
}

func (o *Output) printToken(t TokenResult) {
	fmt.Printf("Player: %s/%s\n", t.OperatorID, t.UserID)
	fmt.Printf("Token: %s\n", t.Token)
}

func (o *Output) printCreditFailures(r CreditFailuresResult) {
	if len(r.Failures) == 0 {
		fmt.Println("No unresolved credit failures")
		return
	}
	fmt.Printf("Unresolved credit failures (%d, total %s):\n", len(r.Failures), r.Total)
	for _, f := range r.Failures {
		fmt.Printf("  - %s %s/%s %s txn=%s at %s\n",
			f.RoundID, f.OperatorID, f.UserID, f.Amount, f.TxnID, f.CreatedAt.Format(time.RFC3339))
		if f.Reason != "" {
			fmt.Printf("      %s\n", f.Reason)
		}
	}
}

func (o *Output) printFrame(f protocol.Frame) {
	switch f.Event {
	case model.EventInfo:
		var p model.InfoPayload
		if json.Unmarshal(f.Data, &p) == nil {
			fmt.Printf("[%s] balance %s\n", f.Event, p.Balance)
			return
		}
	case model.EventGameStarted:
		var p model.GameStartedPayload
		if json.Unmarshal(f.Data, &p) == nil {
			fmt.Printf("[%s] match %s bank %s\n", f.Event, p.MatchID, p.Bank)
			return
		}
	case model.EventRevealedCell:
		var p model.RevealedCellPayload
		if json.Unmarshal(f.Data, &p) == nil {
			fmt.Printf("[%s] bank %s next x%.2f revealed %s\n",
				f.Event, p.Bank, p.Multiplier, strings.Join(p.RevealedCells, " "))
			return
		}
	case model.EventMatchEnded:
		var p model.MatchEndedPayload
		if json.Unmarshal(f.Data, &p) == nil {
			fmt.Printf("[%s] mine at %s, lost %s\n", f.Event, p.BombPos, p.Bet)
			printGrid(p.PlayerGrid)
			return
		}
	case model.EventCashOutComplete:
		var p model.CashOutPayload
		if json.Unmarshal(f.Data, &p) == nil {
			fmt.Printf("[%s] paid %s\n", f.Event, p.Payout)
			printGrid(p.PlayerGrid)
			return
		}
	case model.EventBetError:
		var p model.BetErrorPayload
		if json.Unmarshal(f.Data, &p) == nil {
			fmt.Printf("[%s] %s\n", f.Event, p.Message)
			return
		}
	case model.EventAutoCashout:
		var p model.AutoCashoutPayload
		if json.Unmarshal(f.Data, &p) == nil {
			fmt.Printf("[%s] idle, cash out within %ds\n", f.Event, p.Timer)
			return
		}
	}
	fmt.Printf("[%s] %s\n", f.Event, string(f.Data))
}

func printGrid(g model.Grid) {
	for _, row := range g {
		var b strings.Builder
		b.WriteString("   ")
		for _, cell := range row {
			switch {
			case cell.IsMine && cell.Revealed:
				b.WriteString(" X")
			case cell.IsMine:
				b.WriteString(" *")
			case cell.Revealed:
				b.WriteString(" o")
			default:
				b.WriteString(" .")
			}
		}
		fmt.Println(b.String())
	}
}
