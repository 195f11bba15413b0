package domain

import "time"

// TokenType differentiates access and refresh tokens.
type TokenType string

const (
	TokenTypeAccess  TokenType = "access"
	TokenTypeRefresh TokenType = "refresh"
)

// Token represents issued token metadata.
type Token struct {
	ID        string
	UserID    string
	Type      TokenType
	ExpiresAt time.Time
	IssuedAt  time.Time
}
