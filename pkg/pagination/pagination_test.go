package pagination

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestCursorRoundTrip(t *testing.T) {
	c := Cursor{CreatedAt: time.Date(2024, 3, 1, 9, 30, 0, 123456000, time.UTC), ID: uuid.New()}
	parsed, err := ParseCursor(EncodeCursor(c))
	require.NoError(t, err)
	require.True(t, parsed.CreatedAt.Equal(c.CreatedAt))
	require.Equal(t, c.ID, parsed.ID)
}

func TestParseCursorRejectsGarbage(t *testing.T) {
	empty, err := ParseCursor("  ")
	require.NoError(t, err)
	require.Nil(t, empty)

	_, err = ParseCursor("%%%")
	require.Error(t, err)
}

func TestNormalizeLimit(t *testing.T) {
	require.Equal(t, DefaultLimit, NormalizeLimit(0))
	require.Equal(t, MaxLimit, NormalizeLimit(MaxLimit+50))
	require.Equal(t, 7, NormalizeLimit(7))
	require.Equal(t, 8, LimitWithBuffer(7))
}

func TestTrimKeepsCursorOnLastKeptRow(t *testing.T) {
	rows := []int{1, 2, 3, 4}
	key := func(v int) Cursor { return Cursor{ID: uuid.NewSHA1(uuid.Nil, []byte{byte(v)})} }

	page, next := Trim(rows, 3, key)
	require.Equal(t, []int{1, 2, 3}, page)
	require.NotNil(t, next)
	require.Equal(t, key(3).ID, next.ID)

	page, next = Trim(rows[:2], 3, key)
	require.Len(t, page, 2)
	require.Nil(t, next)
}
