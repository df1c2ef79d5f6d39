package pagination

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/campusmatch/campusmatch/internal/apperr"
)

// Cursor is the opaque pagination state we encode/decode.
// ID plus a millisecond timestamp establish a stable position in
// (time DESC, id DESC) orderings.
type Cursor struct {
	ID   uint64 `json:"id"`
	Unix int64  `json:"unix,omitempty"`
}

// Encode converts a Cursor into a Base64 string.
func Encode(c Cursor) (string, error) {
	b, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("failed to marshal cursor: %w", err)
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// Decode parses a Base64 string into a Cursor.
// Empty token → empty cursor (first page).
func Decode(token string) (Cursor, error) {
	if token == "" {
		return Cursor{}, nil
	}

	b, err := base64.URLEncoding.DecodeString(token)
	if err != nil {
		return Cursor{}, apperr.Validation("invalid pagination token")
	}

	var c Cursor
	if err := json.Unmarshal(b, &c); err != nil {
		return Cursor{}, apperr.Validation("invalid pagination token")
	}
	return c, nil
}
