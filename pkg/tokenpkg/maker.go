// Package tokenpkg provides creation and verification of access tokens.
package tokenpkg

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Token verification errors.
var (
	ErrInvalidToken = errors.New("token is invalid")
	ErrExpiredToken = errors.New("token has expired")
)

// Token types understood by NewMaker.
const (
	TypePaseto = "paseto"
	TypeJWT    = "jwt"
)

// NewMaker creates the Maker of the given token type.
func NewMaker(tokenType, key string) (Maker, error) {
	switch tokenType {
	case TypePaseto:
		return NewPasetoMaker(key)
	case TypeJWT:
		return NewJWTMaker(key)
	default:
		return nil, fmt.Errorf("unsupported token type %q", tokenType)
	}
}

// Maker is an interface for managing tokens.
type Maker interface {
	// CreateToken creates a new token for a specific customer and duration.
	CreateToken(userID string, duration time.Duration) (string, *Payload, error)
	// VerifyToken checks if the token is valid or not.
	VerifyToken(token string) (*Payload, error)
}

// Payload contains the payload data of the token.
type Payload struct {
	ID        uuid.UUID `json:"id"`
	UserID    string    `json:"user_id"`
	IssuedAt  time.Time `json:"issued_at"`
	ExpiredAt time.Time `json:"expired_at"`
}

// NewPayload creates a new token payload with a specific customer id and duration.
func NewPayload(userID string, duration time.Duration) (*Payload, error) {
	tokenID, err := uuid.NewRandom()
	if err != nil {
		return nil, err
	}

	now := time.Now()

	return &Payload{
		ID:        tokenID,
		UserID:    userID,
		IssuedAt:  now,
		ExpiredAt: now.Add(duration),
	}, nil
}

// Valid checks if the token payload is valid or not.
func (p *Payload) Valid() error {
	if time.Now().After(p.ExpiredAt) {
		return ErrExpiredToken
	}

	return nil
}
