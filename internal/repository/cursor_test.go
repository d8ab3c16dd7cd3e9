package repository

import (
	"encoding/base64"
	"testing"
	"time"

	"careervivid/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	created := time.Date(2025, 6, 1, 12, 30, 45, 123456789, time.UTC)
	post := &models.Post{ID: 42, CreatedAt: created}

	cursor := EncodeCursor(post)
	ts, id, err := DecodeCursor(cursor)
	require.NoError(t, err)
	assert.True(t, ts.Equal(created))
	assert.Equal(t, uint(42), id)
}

func TestDecodeCursorInvalid(t *testing.T) {
	enc := func(raw string) string {
		return base64.URLEncoding.EncodeToString([]byte(raw))
	}

	tests := []struct {
		name   string
		cursor string
	}{
		{"not base64", "!!!not-base64!!!"},
		{"missing separator", enc("123456")},
		{"bad timestamp", enc("abc|42")},
		{"bad id", enc("1700000000000000|xyz")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeCursor(tt.cursor)
			require.Error(t, err)
			assert.Equal(t, models.CodeInvalidArgument, models.ErrorCode(err))
		})
	}
}
