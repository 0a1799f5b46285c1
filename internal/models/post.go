package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// MediaType is the kind of an attached media reference.
type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// MaxMediaPerPost caps the attachments on a single post.
const MaxMediaPerPost = 5

// MediaItem is a media reference attached to a post.
type MediaItem struct {
	URL  string    `json:"url"`
	Type MediaType `json:"type"`
}

// Post represents a post. Reactions and comments live inside the record and
// are only changed by whole-record replacement guarded by Version.
type Post struct {
	ID        string                          `gorm:"primaryKey;size:36" json:"id"`
	AuthorID  string                          `gorm:"size:36;not null;index" json:"author_id"`
	Author    *User                           `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
	Content   string                          `gorm:"type:text" json:"content"`
	Media     datatypes.JSONType[[]MediaItem] `json:"media"`
	Reactions datatypes.JSONType[ReactionMap] `json:"reactions"`
	Comments  datatypes.JSONType[[]Comment]   `json:"comments"`
	Version   int64                           `gorm:"not null;default:1" json:"version"`
	CreatedAt time.Time                       `gorm:"index" json:"created_at"`
	UpdatedAt time.Time                       `json:"updated_at"`
}

// BeforeCreate assigns an id and initial version to new posts.
func (p *Post) BeforeCreate(_ *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Version == 0 {
		p.Version = 1
	}
	return nil
}

// ReactionMap returns the current reaction map, never nil.
func (p *Post) ReactionMap() ReactionMap {
	m := p.Reactions.Data()
	if m == nil {
		return ReactionMap{}
	}
	return m
}

// CommentLedger returns the current comment ledger.
func (p *Post) CommentLedger() []Comment {
	return p.Comments.Data()
}

// SetReactions replaces the reaction map.
func (p *Post) SetReactions(m ReactionMap) {
	p.Reactions = datatypes.NewJSONType(m)
}

// SetComments replaces the comment ledger.
func (p *Post) SetComments(ledger []Comment) {
	p.Comments = datatypes.NewJSONType(ledger)
}

// NewPost builds an unsaved post with empty reactions and comments.
func NewPost(authorID, content string, media []MediaItem) *Post {
	if media == nil {
		media = []MediaItem{}
	}
	return &Post{
		AuthorID:  authorID,
		Content:   content,
		Media:     datatypes.NewJSONType(media),
		Reactions: datatypes.NewJSONType(ReactionMap{}),
		Comments:  datatypes.NewJSONType([]Comment{}),
		Version:   1,
	}
}
