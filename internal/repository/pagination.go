package repository

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"time"

	"github.com/spec-kit/issue-tracker/internal/domain"
)

// ErrInvalidCursor is returned when a pagination token cannot be decoded.
var ErrInvalidCursor = errors.New("invalid pagination token")

// IssueCursor marks the last issue of a page in (created_at, id) order.
type IssueCursor struct {
	CreatedAt time.Time `json:"c"`
	ID        string    `json:"i"`
}

// IssueListOptions controls issue listing. Limit <= 0 returns everything.
type IssueListOptions struct {
	Limit int
	After *IssueCursor
}

// IssuePage is one page of issues plus the cursor for the next one.
type IssuePage struct {
	Items []domain.Issue
	Next  *IssueCursor
}

// Encode renders the cursor as an opaque URL-safe token.
func (c IssueCursor) Encode() string {
	raw, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(raw)
}

// DecodeIssueCursor parses a token produced by IssueCursor.Encode.
func DecodeIssueCursor(token string) (*IssueCursor, error) {
	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, ErrInvalidCursor
	}
	var cursor IssueCursor
	if err := json.Unmarshal(raw, &cursor); err != nil || cursor.ID == "" {
		return nil, ErrInvalidCursor
	}
	return &cursor, nil
}

func issueBefore(aCreated time.Time, aID string, bCreated time.Time, bID string) bool {
	if aCreated.Equal(bCreated) {
		return aID < bID
	}
	return aCreated.Before(bCreated)
}
