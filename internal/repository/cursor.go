package repository

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"careervivid/internal/models"
)

// Feed cursors are opaque to clients: base64 of the last item's ordering key
// (createdAt at nanosecond precision) plus its id as a tie breaker, so pages
// never overlap even when two posts share a timestamp.

// EncodeCursor builds the cursor pointing just past p in feed order.
func EncodeCursor(p *models.Post) string {
	raw := fmt.Sprintf("%d|%d", p.CreatedAt.UTC().UnixNano(), p.ID)
	return base64.URLEncoding.EncodeToString([]byte(raw))
}

// DecodeCursor parses a cursor produced by EncodeCursor.
func DecodeCursor(cursor string) (time.Time, uint, error) {
	raw, err := base64.URLEncoding.DecodeString(cursor)
	if err != nil {
		return time.Time{}, 0, models.NewValidationError("Invalid cursor")
	}
	parts := strings.SplitN(string(raw), "|", 2)
	if len(parts) != 2 {
		return time.Time{}, 0, models.NewValidationError("Invalid cursor")
	}
	nanos, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return time.Time{}, 0, models.NewValidationError("Invalid cursor")
	}
	id, err := strconv.ParseUint(parts[1], 10, 32)
	if err != nil {
		return time.Time{}, 0, models.NewValidationError("Invalid cursor")
	}
	return time.Unix(0, nanos).UTC(), uint(id), nil
}
