package request

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Pagination holds parsed keyset pagination parameters. Cursor is the id of
// the last item of the previous page.
type Pagination struct {
	Limit  int
	Cursor string
}

const (
	DefaultLimit = 50
	MaxLimit     = 200
)

// ParsePagination extracts limit and cursor from query parameters. Invalid or
// non-positive limits fall back to DefaultLimit; larger ones are capped.
func ParsePagination(r *http.Request) Pagination {
	q := r.URL.Query()
	p := Pagination{
		Limit:  DefaultLimit,
		Cursor: strings.TrimSpace(q.Get("cursor")),
	}

	if limit, err := strconv.Atoi(q.Get("limit")); err == nil && limit > 0 {
		p.Limit = min(limit, MaxLimit)
	}
	return p
}

// NextCursor returns lastID when another page follows, else "".
func NextCursor(lastID string, hasMore bool) string {
	if !hasMore {
		return ""
	}
	return lastID
}

// ValidateCursor rejects a cursor that is not an item id. Empty is valid.
func ValidateCursor(cursor string) error {
	if cursor == "" {
		return nil
	}
	if _, err := uuid.Parse(cursor); err != nil {
		return fmt.Errorf("invalid cursor %q", cursor)
	}
	return nil
}
