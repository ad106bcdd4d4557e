package storage

import (
	"encoding/base64"
	"encoding/json"
)

// pageCursor is the decoded form of an opaque pagination cursor. The offset
// is never exposed directly so the pagination strategy can change without
// breaking issued cursors.
type pageCursor struct {
	Offset int `json:"o"`
}

// encodeCursor serializes an offset into an opaque cursor token.
func encodeCursor(offset int) string {
	data, err := json.Marshal(pageCursor{Offset: offset})
	if err != nil {
		return ""
	}
	return base64.URLEncoding.EncodeToString(data)
}

// decodeCursor recovers the offset from a cursor token. An empty or
// malformed cursor decodes to offset zero rather than failing, so stale
// clients restart from the first page.
func decodeCursor(cursor string) int {
	if cursor == "" {
		return 0
	}
	data, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return 0
	}
	var pc pageCursor
	if err := json.Unmarshal(data, &pc); err != nil {
		return 0
	}
	if pc.Offset < 0 {
		return 0
	}
	return pc.Offset
}
