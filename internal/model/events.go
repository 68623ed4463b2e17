package model

// EventName identifies an outbound event
type EventName string

const (
	EventInfo            EventName = "info"
	EventMines           EventName = "mines"
	EventGameStarted     EventName = "game_started"
	EventRevealedCell    EventName = "revealed_cell"
	EventMatchEnded      EventName = "match_ended"
	EventCashOutComplete EventName = "cash_out_complete"
	EventBetError        EventName = "betError"
	EventAutoCashout     EventName = "auto_cashout"
)

// Event is a named payload sent to a single connection
type Event struct {
	Name EventName
	Data any
}

// MultiplierTable maps the count of accounted cells (mines plus safe
// reveals) to the payout multiplier
type MultiplierTable map[int]float64

// InfoPayload is emitted after every balance change
type InfoPayload struct {
	UserID     string `json:"user_id"`
	OperatorID string `json:"operator_id"`
	Balance    Money  `json:"balance"`
}

// GameStartedPayload is emitted after a bet is placed
type GameStartedPayload struct {
	MatchID RoundID `json:"matchId"`
	Bank    Money   `json:"bank"`
}

// RevealedCellPayload is emitted after a non-terminal reveal
type RevealedCellPayload struct {
	MatchID       RoundID  `json:"matchId"`
	Bank          Money    `json:"bank"`
	RevealedCells []string `json:"revealedCells"`
	Multiplier    float64  `json:"multiplier"`
}

// MatchEndedPayload is the final round snapshot sent when a mine is hit
type MatchEndedPayload struct {
	MatchID           RoundID  `json:"matchId"`
	BetID             string   `json:"bet_id"`
	Bank              Money    `json:"bank"`
	Bet               Money    `json:"bet"`
	Multiplier        float64  `json:"multiplier"`
	PlayerGrid        Grid     `json:"playerGrid"`
	RevealedCells     []string `json:"revealedCells"`
	RevealedCellCount int      `json:"revealedCellCount"`
	BombPos           string   `json:"bombPos"`
}

// CashOutPayload is emitted when a round is paid out
type CashOutPayload struct {
	Payout     Money   `json:"payout"`
	MatchID    string  `json:"matchId"`
	PlayerGrid Grid    `json:"playerGrid"`
	Multiplier float64 `json:"multiplier"`
}

// BetErrorPayload carries a rejection message
type BetErrorPayload struct {
	Message string `json:"message"`
}

// AutoCashoutPayload is the advisory idle nudge
type AutoCashoutPayload struct {
	Timer int `json:"timer"`
}

// NewInfoEvent builds an info event from an account snapshot
func NewInfoEvent(account *PlayerAccount) Event {
	return Event{Name: EventInfo, Data: InfoPayload{
		UserID:     account.UserID,
		OperatorID: account.OperatorID,
		Balance:    account.Balance,
	}}
}

// NewBetErrorEvent builds a betError event
func NewBetErrorEvent(message string) Event {
	return Event{Name: EventBetError, Data: BetErrorPayload{Message: message}}
}
