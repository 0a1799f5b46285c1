// Package repository provides data access layer implementations for the application.
package repository

import (
	"context"
	"log/slog"
	"time"

	"github.com/aquawaran/Clon-Official/internal/models"
	"github.com/aquawaran/Clon-Official/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id string) (*models.Post, error)
	// Replace writes the whole record if its stored version still equals
	// post.Version, then advances post.Version.
	Replace(ctx context.Context, post *models.Post) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*models.Post, error)
	ListByAuthor(ctx context.Context, authorID string, limit, offset int) ([]*models.Post, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: observability.NewRepoLogger("posts")}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("create", "posts")()
	if err := r.db.WithContext(ctx).Omit("Author").Create(post).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return dbError(err, "Post", post.ID)
	}
	r.log.LogWrite(ctx, "create", slog.String("post_id", post.ID))
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id string) (*models.Post, error) {
	defer observability.TrackQuery("get", "posts")()
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("Author").First(&post, "id = ?", id).Error; err != nil {
		return nil, dbError(err, "Post", id)
	}
	return &post, nil
}

func (r *postRepository) Replace(ctx context.Context, post *models.Post) error {
	defer observability.TrackQuery("replace", "posts")()
	ctx, span := observability.TraceRepositoryMethod(ctx, "replace", "posts")
	defer span.End()
	expected := post.Version
	now := time.Now().UTC()

	res := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ? AND version = ?", post.ID, expected).
		Updates(map[string]interface{}{
			"content":    post.Content,
			"media":      post.Media,
			"reactions":  post.Reactions,
			"comments":   post.Comments,
			"version":    expected + 1,
			"updated_at": now,
		})
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "replace")
		return dbError(res.Error, "Post", post.ID)
	}

	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&models.Post{}).Where("id = ?", post.ID).Count(&count).Error; err != nil {
			return dbError(err, "Post", post.ID)
		}
		if count == 0 {
			return models.NewNotFoundError("Post", post.ID)
		}
		return models.NewConflictError("post was modified concurrently")
	}

	post.Version = expected + 1
	post.UpdatedAt = now
	r.log.LogWrite(ctx, "replace", slog.String("post_id", post.ID), slog.Int64("version", post.Version))
	return nil
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	defer observability.TrackQuery("delete", "posts")()
	res := r.db.WithContext(ctx).Delete(&models.Post{}, "id = ?", id)
	if res.Error != nil {
		r.log.LogError(ctx, res.Error, "delete")
		return dbError(res.Error, "Post", id)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	r.log.LogWrite(ctx, "delete", slog.String("post_id", id))
	return nil
}

func (r *postRepository) List(ctx context.Context, limit, offset int) ([]*models.Post, error) {
	defer observability.TrackQuery("list", "posts")()
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, dbError(err, "Post", nil)
	}
	return posts, nil
}

func (r *postRepository) ListByAuthor(ctx context.Context, authorID string, limit, offset int) ([]*models.Post, error) {
	defer observability.TrackQuery("list_by_author", "posts")()
	var posts []*models.Post
	err := r.db.WithContext(ctx).
		Preload("Author").
		Where("author_id = ?", authorID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&posts).Error
	if err != nil {
		return nil, dbError(err, "Post", nil)
	}
	return posts, nil
}
