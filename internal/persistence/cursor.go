// Package persistence holds what the memory and Postgres stores share.
package persistence

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"example.com/processmap/internal/domain"
)

// ErrInvalidCursor reports an audit page token that was not produced by
// EncodeCursor.
var ErrInvalidCursor = errors.New("invalid audit cursor")

const cursorVersion = "a1"

// EncodeCursor turns the keyset position of the last returned audit entry
// into an opaque, URL-safe token. A nil cursor encodes as "".
func EncodeCursor(c *domain.AuditCursor) string {
	if c == nil {
		return ""
	}
	raw := strings.Join([]string{
		cursorVersion,
		strconv.FormatInt(c.ChangedAt.UnixNano(), 36),
		strconv.FormatInt(c.ID, 36),
	}, ".")
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor reverses EncodeCursor. A blank token means the first page.
func DecodeCursor(token string) (*domain.AuditCursor, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	parts := strings.Split(string(decoded), ".")
	if len(parts) != 3 || parts[0] != cursorVersion {
		return nil, ErrInvalidCursor
	}
	nanos, err := strconv.ParseInt(parts[1], 36, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: timestamp: %v", ErrInvalidCursor, err)
	}
	id, err := strconv.ParseInt(parts[2], 36, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: entry id %q", ErrInvalidCursor, parts[2])
	}
	return &domain.AuditCursor{ChangedAt: time.Unix(0, nanos).UTC(), ID: id}, nil
}
