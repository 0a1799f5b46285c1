package models

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendComment_AppendsSnapshot(t *testing.T) {
	author := User{ID: "v", Name: "Vera", Avatar: "https://cdn.example/v.png"}
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	ledger, comment, err := AppendComment(nil, author.Snapshot(), "  hi  ", now)
	require.NoError(t, err)
	require.Len(t, ledger, 1)

	assert.NotEmpty(t, comment.ID)
	assert.Equal(t, "hi", comment.Text)
	assert.Equal(t, "v", comment.AuthorID)
	assert.Equal(t, "Vera", comment.AuthorName)
	assert.Equal(t, "https://cdn.example/v.png", comment.Avatar)
	assert.Equal(t, now, comment.CreatedAt)
	assert.Equal(t, comment, ledger[0])

	// Later profile edits do not reach the stored snapshot.
	author.Name = "Vera Renamed"
	author.Avatar = "https://cdn.example/new.png"
	assert.Equal(t, "Vera", ledger[0].AuthorName)
	assert.Equal(t, "https://cdn.example/v.png", ledger[0].Avatar)
}

func TestAppendComment_PreservesOrderAndInput(t *testing.T) {
	snap := AuthorSnapshot{UserID: "a", Name: "A"}
	now := time.Now()

	var ledger []Comment
	ids := make([]string, 0, 5)
	for i := 0; i < 5; i++ {
		prev := append([]Comment(nil), ledger...)
		next, c, err := AppendComment(ledger, snap, strings.Repeat("x", i+1), now)
		require.NoError(t, err)
		require.Len(t, next, len(ledger)+1)
		for j := range prev {
			require.Equal(t, prev[j], next[j])
			require.Equal(t, prev[j], ledger[j])
		}
		ids = append(ids, c.ID)
		ledger = next
	}

	seen := map[string]bool{}
	for i, c := range ledger {
		assert.Equal(t, ids[i], c.ID)
		assert.False(t, seen[c.ID], "duplicate id %s", c.ID)
		seen[c.ID] = true
	}
}

func TestAppendComment_RejectsBlankAndOversized(t *testing.T) {
	ledger := []Comment{{ID: "1", Text: "first"}}

	for _, text := range []string{"", "   ", "\n\t"} {
		next, _, err := AppendComment(ledger, AuthorSnapshot{}, text, time.Now())
		require.Error(t, err)
		assert.Nil(t, next)
		assert.True(t, errors.Is(err, ErrInvalidComment))
	}

	_, _, err := AppendComment(ledger, AuthorSnapshot{}, strings.Repeat("é", MaxCommentLength+1), time.Now())
	assert.True(t, errors.Is(err, ErrInvalidComment))

	_, _, err = AppendComment(ledger, AuthorSnapshot{}, strings.Repeat("é", MaxCommentLength), time.Now())
	assert.NoError(t, err)
	assert.Len(t, ledger, 1)
}
