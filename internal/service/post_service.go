package service

import (
	"context"
	"strings"
	"time"

	"github.com/aquawaran/Clon-Official/internal/models"
	"github.com/aquawaran/Clon-Official/internal/notifications"
	"github.com/aquawaran/Clon-Official/internal/repository"
)

const maxPostContentLen = 10000

// PostService owns post creation, reads, reactions, comments and deletion.
type PostService struct {
	posts         repository.PostRepository
	users         repository.UserRepository
	coordinator   *MutationCoordinator
	notifications *NotificationService
	events        Broadcaster
	now           func() time.Time
}

// CreatePostInput is a new post. Content is trimmed; either it or Media must
// be non-empty.
type CreatePostInput struct {
	AuthorID string
	Content  string
	Media    []models.MediaItem
}

func NewPostService(
	posts repository.PostRepository,
	users repository.UserRepository,
	coordinator *MutationCoordinator,
	notifications *NotificationService,
	events Broadcaster,
) *PostService {
	return &PostService{
		posts:         posts,
		users:         users,
		coordinator:   coordinator,
		notifications: notifications,
		events:        orNoop(events),
		now:           time.Now,
	}
}

// activeUser loads userID and rejects banned accounts.
func activeUser(ctx context.Context, users repository.UserRepository, userID string) (*models.User, error) {
	user, err := users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user.IsBanned {
		return nil, models.NewForbiddenError("Account is banned")
	}
	return user, nil
}

// CreatePost validates and stores a post by an active (unbanned) author, then
// broadcasts new_post to everyone.
func (s *PostService) CreatePost(ctx context.Context, in CreatePostInput) (*models.Post, error) {
	author, err := activeUser(ctx, s.users, in.AuthorID)
	if err != nil {
		return nil, err
	}

	content := strings.TrimSpace(in.Content)
	if content == "" && len(in.Media) == 0 {
		return nil, models.NewValidationError("Post must have content or media")
	}
	if len([]rune(content)) > maxPostContentLen {
		return nil, models.NewValidationError("Content too long (max 10000 characters)")
	}
	if len(in.Media) > models.MaxMediaPerPost {
		return nil, models.NewValidationError("Too many media items (max 5)")
	}
	for _, m := range in.Media {
		if strings.TrimSpace(m.URL) == "" {
			return nil, models.NewValidationError("Media url is required")
		}
		if m.Type != models.MediaImage && m.Type != models.MediaVideo {
			return nil, models.NewValidationError("Media type must be image or video")
		}
	}

	post := models.NewPost(author.ID, content, in.Media)
	if err := s.posts.Create(ctx, post); err != nil {
		return nil, err
	}
	post.Author = author

	s.events.EmitAll(notifications.EventNewPost, post)
	return post, nil
}

// GetPost returns postID with its author and comments.
func (s *PostService) GetPost(ctx context.Context, postID string) (*models.Post, error) {
	return s.posts.GetByID(ctx, postID)
}

// Feed lists all posts newest first. limit and offset are clamped.
func (s *PostService) Feed(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	limit, offset = pageBounds(limit, offset)
	return s.posts.List(ctx, limit, offset)
}

// UserPosts lists userID's posts newest first. It returns a not-found error
// for an unknown user.
func (s *PostService) UserPosts(ctx context.Context, userID string, limit, offset int) ([]*models.Post, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	limit, offset = pageBounds(limit, offset)
	return s.posts.ListByAuthor(ctx, userID, limit, offset)
}

// ToggleReaction applies kind for userID on postID and returns the new map.
func (s *PostService) ToggleReaction(ctx context.Context, userID, postID, kind string) (models.ReactionMap, error) {
	if _, err := activeUser(ctx, s.users, userID); err != nil {
		return nil, err
	}

	post, err := s.coordinator.Mutate(ctx, "reaction", postID,
		func(p *models.Post) error {
			k, err := models.ParseReactionKind(kind)
			if err != nil {
				return err
			}
			next, err := models.ApplyReaction(p.ReactionMap(), userID, k)
			if err != nil {
				return err
			}
			p.SetReactions(next)
			return nil
		},
		func(p *models.Post) {
			s.events.EmitAll(notifications.EventPostReaction, notifications.ReactionPayload{
				PostID:    p.ID,
				Reactions: p.ReactionMap(),
			})
		},
	)
	if err != nil {
		return nil, err
	}
	return post.ReactionMap(), nil
}

// AddComment appends a comment attributed to the author's current name and avatar.
func (s *PostService) AddComment(ctx context.Context, userID, postID, text string) (*models.Comment, error) {
	author, err := activeUser(ctx, s.users, userID)
	if err != nil {
		return nil, err
	}
	snapshot := author.Snapshot()

	var added models.Comment
	_, err = s.coordinator.Mutate(ctx, "comment", postID,
		func(p *models.Post) error {
			ledger, comment, err := models.AppendComment(p.CommentLedger(), snapshot, text, s.now())
			if err != nil {
				return err
			}
			p.SetComments(ledger)
			added = comment
			return nil
		},
		func(p *models.Post) {
			s.events.EmitAll(notifications.EventNewComment, notifications.CommentPayload{
				PostID:  p.ID,
				Comment: added,
			})
		},
	)
	if err != nil {
		return nil, err
	}
	return &added, nil
}

// DeletePost removes a post. Authors may delete their own posts; the
// creator may delete any post, in which case the author is notified.
func (s *PostService) DeletePost(ctx context.Context, userID, postID string) error {
	actor, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}

	post, err := s.coordinator.Delete(ctx, postID,
		func(p *models.Post) error {
			if p.AuthorID != actor.ID && !actor.IsCreator {
				return models.NewForbiddenError("Not allowed to delete this post")
			}
			return nil
		},
		func(p *models.Post) {
			s.events.EmitAll(notifications.EventPostDeleted, notifications.PostDeletedPayload{PostID: p.ID})
		},
	)
	if err != nil {
		return err
	}

	if post.AuthorID != actor.ID && s.notifications != nil {
		// The post is already gone; a failed notification does not undo that.
		_, _ = s.notifications.Notify(ctx, post.AuthorID, models.NotificationPostDeleted,
			"Your post was removed by the administrator",
			map[string]interface{}{"postId": post.ID},
		)
	}
	return nil
}
