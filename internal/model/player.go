package model

import "fmt"

// PlayerID identifies a player across connections
type PlayerID struct {
	OperatorID string `json:"operator_id"`
	UserID     string `json:"user_id"`
}

// String returns the "<operator>:<user>" form used in storage keys and logs
func (p PlayerID) String() string {
	return fmt.Sprintf("%s:%s", p.OperatorID, p.UserID)
}

// ConnectionID identifies a single transport connection
type ConnectionID string

// PlayerAccount is the directory entry for a connected player.
// The balance is a cached copy of the ledger balance.
type PlayerAccount struct {
	ConnectionID ConnectionID `json:"connection_id"`
	OperatorID   string       `json:"operator_id"`
	UserID       string       `json:"user_id"`
	Balance      Money        `json:"balance"`
	ClientIP     string       `json:"ip,omitempty"`
}

// PlayerID returns the identity this account belongs to
func (a *PlayerAccount) PlayerID() PlayerID {
	return PlayerID{OperatorID: a.OperatorID, UserID: a.UserID}
}
