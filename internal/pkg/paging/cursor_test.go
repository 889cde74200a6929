package paging

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor(t *testing.T) {
	ts := time.Date(2026, 3, 4, 5, 6, 7, 891011, time.UTC)
	id := uuid.New()

	gotT, gotID, err := DecodeCursor(EncodeCursor(ts, id))
	require.NoError(t, err)
	assert.True(t, ts.Equal(gotT))
	assert.Equal(t, id, gotID)
}

func TestDecodeCursor_Invalid(t *testing.T) {
	for _, c := range []string{"%%%", "bm8tcGlwZQ", "YWJjfGRlZg", "MTIzfG5vdC1hLXV1aWQ"} {
		_, _, err := DecodeCursor(c)
		assert.ErrorIs(t, err, ErrInvalidCursor, c)
	}
}
