package request

// IssueTokenRequest is the request body for minting a player handshake token
type IssueTokenRequest struct {
	OperatorID string `json:"operator_id"`
	UserID     string `json:"user_id"`
}
