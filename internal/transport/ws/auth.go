package ws

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mcoot/minesgame/internal/model"
)

// ErrInvalidToken is returned when a handshake token cannot be verified
var ErrInvalidToken = errors.New("invalid token")

// DefaultTokenTTL is how long issued handshake tokens stay valid
const DefaultTokenTTL = 24 * time.Hour

// Claims identify the player a connection belongs to. The user id is carried
// in the subject.
type Claims struct {
	OperatorID string `json:"operator_id"`
	jwt.RegisteredClaims
}

// Authenticator issues and verifies HS256 handshake tokens
type Authenticator struct {
	secret []byte
	ttl    time.Duration
	issuer string
}

// NewAuthenticator creates an authenticator signing with secret
func NewAuthenticator(secret string, ttl time.Duration) *Authenticator {
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &Authenticator{
		secret: []byte(secret),
		ttl:    ttl,
		issuer: "minesgame",
	}
}

// IssueToken signs a token for player valid from now
func (a *Authenticator) IssueToken(player model.PlayerID, now time.Time) (string, error) {
	if player.OperatorID == "" || player.UserID == "" {
		return "", fmt.Errorf("%w: operator and user are required", ErrInvalidToken)
	}
	claims := Claims{
		OperatorID: player.OperatorID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   player.UserID,
			Issuer:    a.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(a.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(a.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and expiry and returns the player
func (a *Authenticator) Verify(tokenString string) (model.PlayerID, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(a.issuer))
	if err != nil {
		return model.PlayerID{}, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if claims.OperatorID == "" || claims.Subject == "" {
		return model.PlayerID{}, fmt.Errorf("%w: missing player identity", ErrInvalidToken)
	}
	return model.PlayerID{OperatorID: claims.OperatorID, UserID: claims.Subject}, nil
}
