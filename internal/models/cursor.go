package models

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
)

// Cursor is a position in the public feed. ID breaks ties between objects created
// in the same second. An empty ID comes from a legacy timestamp-only cursor.
type Cursor struct {
	CreatedAt int64
	ID        string
}

// Encode renders the cursor as an opaque URL-safe token.
func (c Cursor) Encode() string {
	raw := strconv.FormatInt(c.CreatedAt, 10) + ":" + c.ID
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// ParseCursor decodes a token from Encode. A bare integer is accepted as a legacy
// timestamp cursor.
func ParseCursor(token string) (*Cursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	if ts, err := strconv.ParseInt(token, 10, 64); err == nil {
		return &Cursor{CreatedAt: ts}, nil
	}

	raw, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	tsPart, id, ok := strings.Cut(string(raw), ":")
	if !ok || id == "" {
		return nil, fmt.Errorf("malformed cursor")
	}
	ts, err := strconv.ParseInt(tsPart, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed cursor timestamp: %w", err)
	}
	return &Cursor{CreatedAt: ts, ID: id}, nil
}
