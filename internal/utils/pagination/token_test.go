package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeToken(t *testing.T) {
	occurredAt := time.Date(2023, 5, 15, 14, 30, 45, 123456789, time.UTC)

	token := EncodeToken(occurredAt, "7b1c2a34-0000-4000-8000-000000000001")
	assert.NotEmpty(t, token, "Token should not be empty")
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")

	cursor, err := DecodeToken(token)
	require.NoError(t, err)
	assert.True(t, occurredAt.Equal(cursor.OccurredAt))
	assert.Equal(t, "7b1c2a34-0000-4000-8000-000000000001", cursor.ID)

	// Non-UTC input is normalised
	local := time.Date(2023, 5, 15, 16, 30, 45, 0, time.FixedZone("CEST", 2*60*60))
	cursor, err = DecodeToken(EncodeToken(local, "a"))
	require.NoError(t, err)
	assert.True(t, local.Equal(cursor.OccurredAt))
}

func TestDecodeTokenError(t *testing.T) {
	_, err := DecodeToken("this is not base64!")
	assert.ErrorContains(t, err, "base64 decode")

	noSeparator := base64.RawURLEncoding.EncodeToString([]byte("2023-05-15T00:00:00Z"))
	_, err = DecodeToken(noSeparator)
	assert.ErrorContains(t, err, "split")

	emptyID := base64.RawURLEncoding.EncodeToString([]byte("2023-05-15T00:00:00Z|"))
	_, err = DecodeToken(emptyID)
	assert.ErrorContains(t, err, "split")

	badDate := base64.RawURLEncoding.EncodeToString([]byte("notadate|abc"))
	_, err = DecodeToken(badDate)
	assert.ErrorContains(t, err, "occurred_at parse")
}

func TestCursorBefore(t *testing.T) {
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cursor := &Cursor{OccurredAt: base, ID: "m"}

	assert.True(t, cursor.Before(base.Add(-time.Second), "z"), "older row belongs to the next page")
	assert.False(t, cursor.Before(base.Add(time.Second), "a"), "newer row was already returned")
	assert.True(t, cursor.Before(base, "a"), "same instant, lower id comes later")
	assert.False(t, cursor.Before(base, "m"), "the cursor row itself is excluded")
	assert.False(t, cursor.Before(base, "z"))

	var none *Cursor
	assert.True(t, none.Before(base, "m"))
}
