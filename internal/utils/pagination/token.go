package pagination

import (
	"encoding/base64"
	"fmt"
	"strings"
	"time"
)

const timeFormat = time.RFC3339Nano

// Cursor marks the last row of a page. Rows strictly older than the cursor form the next page.
type Cursor struct {
	OccurredAt time.Time
	ID         string
}

// EncodeToken creates an opaque, URL-safe token from the last row's timestamp and id.
func EncodeToken(occurredAt time.Time, id string) string {
	tokenStr := fmt.Sprintf("%s|%s", occurredAt.UTC().Format(timeFormat), id)
	return base64.RawURLEncoding.EncodeToString([]byte(tokenStr))
}

// DecodeToken parses a token produced by EncodeToken.
func DecodeToken(token string) (*Cursor, error) {
	decodedBytes, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("invalid pagination token format (base64 decode): %w", err)
	}
	parts := strings.SplitN(string(decodedBytes), "|", 2)
	if len(parts) != 2 || parts[1] == "" {
		return nil, fmt.Errorf("invalid pagination token format (split)")
	}

	occurredAt, err := time.Parse(timeFormat, parts[0])
	if err != nil {
		return nil, fmt.Errorf("invalid pagination token format (occurred_at parse): %w", err)
	}

	return &Cursor{OccurredAt: occurredAt, ID: parts[1]}, nil
}

// Before reports whether a row at (occurredAt, id) sorts after the cursor in newest-first order.
func (c *Cursor) Before(occurredAt time.Time, id string) bool {
	if c == nil {
		return true
	}
	if occurredAt.Equal(c.OccurredAt) {
		return id < c.ID
	}
	return occurredAt.Before(c.OccurredAt)
}
