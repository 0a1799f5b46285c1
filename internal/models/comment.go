package models

import (
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// MaxCommentLength is the longest accepted comment, in runes.
const MaxCommentLength = 2000

// AuthorSnapshot is the author attribution copied into a comment.
type AuthorSnapshot struct {
	UserID string
	Name   string
	Avatar string
}

// Comment is one entry of a post's comment ledger. Author fields are copied
// at comment time and never follow later profile edits.
type Comment struct {
	ID         string    `json:"id"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Avatar     string    `json:"avatar"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}

// AppendComment validates text and returns a new ledger with the comment
// appended, along with the comment itself. The input ledger is not modified.
func AppendComment(ledger []Comment, author AuthorSnapshot, text string, now time.Time) ([]Comment, Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, Comment{}, NewInvalidCommentError("comment text is required")
	}
	if utf8.RuneCountInString(text) > MaxCommentLength {
		return nil, Comment{}, NewInvalidCommentError("comment text is too long")
	}

	comment := Comment{
		ID:         uuid.NewString(),
		AuthorID:   author.UserID,
		AuthorName: author.Name,
		Avatar:     author.Avatar,
		Text:       text,
		CreatedAt:  now.UTC(),
	}

	next := slices.Grow(slices.Clone(ledger), 1)
	next = append(next, comment)
	return next, comment, nil
}
