package pagination

import (
	"encoding/base64"
	"encoding/json"
	"errors"
)

var ErrInvalidPageToken = errors.New("invalid_page_token")

type Pagination struct {
	PageToken string `form:"page_token"`
	PageSize  int    `form:"page_size,default=20"`
}

type Cursor struct {
	ID        string `json:"id,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

type PageInfo struct {
	NextPageToken string `json:"next_page_token,omitempty"`
	HasMore       bool   `json:"has_more"`
}

// NormalizeSize clamps size into [1, max], using def when size is unset.
func NormalizeSize(size, def, max int) int {
	if size <= 0 {
		size = def
	}
	if size > max {
		size = max
	}
	return size
}

func EncodeCursor(data Cursor) (string, error) {
	b, err := json.Marshal(data)
	if err != nil {
		return "", err
	}

	return base64.RawURLEncoding.EncodeToString(b), nil
}

func DecodeCursor(data string) (*Cursor, error) {
	b, err := base64.RawURLEncoding.DecodeString(data)
	if err != nil {
		return nil, ErrInvalidPageToken
	}

	var cursor Cursor
	if err := json.Unmarshal(b, &cursor); err != nil {
		return nil, ErrInvalidPageToken
	}

	return &cursor, nil
}

// BuildCursorPageInfo expects data to hold up to limit+1 rows; the extra row
// only signals that another page exists.
func BuildCursorPageInfo[T any](data []*T, limit int, extractCursor func(*T) string) PageInfo {
	if len(data) == 0 || limit <= 0 {
		return PageInfo{}
	}
	if len(data) <= limit {
		return PageInfo{HasMore: false}
	}

	return PageInfo{
		HasMore:       true,
		NextPageToken: extractCursor(data[limit-1]),
	}
}
