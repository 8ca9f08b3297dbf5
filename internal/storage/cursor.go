package storage

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
)

var ErrInvalidCursor = errors.New("invalid cursor")

// Cursor is an opaque pagination token over mints.added_id.
type Cursor struct {
	AddedID int64 `json:"added_id"`
}

// Encode serializes the cursor to an unpadded base64url string.
func (c Cursor) Encode() string {
	data, _ := json.Marshal(c)
	return base64.RawURLEncoding.EncodeToString(data)
}

// DecodeCursor parses a cursor. The empty string is the start of the list.
func DecodeCursor(s string) (Cursor, error) {
	if s == "" {
		return Cursor{}, nil
	}
	data, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	var c Cursor
	if err := json.Unmarshal(data, &c); err != nil {
		return Cursor{}, fmt.Errorf("%w: %v", ErrInvalidCursor, err)
	}
	if c.AddedID < 0 {
		return Cursor{}, fmt.Errorf("%w: negative position %d", ErrInvalidCursor, c.AddedID)
	}
	return c, nil
}
