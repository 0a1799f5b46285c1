package repository

import (
	"context"
	"errors"

	"github.com/aquawaran/Clon-Official/internal/cache"
	"github.com/aquawaran/Clon-Official/internal/models"

	"gorm.io/gorm"
)

// FollowCounts is the number of followers and followees of a user.
type FollowCounts struct {
	Followers int64 `json:"followers"`
	Following int64 `json:"following"`
}

// FollowRepository defines persistence operations for follow edges.
type FollowRepository interface {
	// Toggle adds the edge when absent and removes it when present. It
	// reports whether the edge exists afterwards.
	Toggle(ctx context.Context, followerID, followingID string) (bool, error)
	IsFollowing(ctx context.Context, followerID, followingID string) (bool, error)
	Followers(ctx context.Context, userID string) ([]models.User, error)
	Following(ctx context.Context, userID string) ([]models.User, error)
	Counts(ctx context.Context, userID string) (FollowCounts, error)
}

type followRepository struct {
	db *gorm.DB
}

// NewFollowRepository creates a new follow repository
func NewFollowRepository(db *gorm.DB) FollowRepository {
	return &followRepository{db: db}
}

func (r *followRepository) Toggle(ctx context.Context, followerID, followingID string) (bool, error) {
	var following bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var edge models.Follow
		err := tx.Where("follower_id = ? AND following_id = ?", followerID, followingID).First(&edge).Error
		switch {
		case err == nil:
			following = false
			return tx.Delete(&edge).Error
		case errors.Is(err, gorm.ErrRecordNotFound):
			following = true
			return tx.Create(&models.Follow{FollowerID: followerID, FollowingID: followingID}).Error
		default:
			return err
		}
	})
	if err != nil {
		return false, dbError(err, "Follow", followingID)
	}
	cache.InvalidateFollowCounts(ctx, followerID, followingID)
	return following, nil
}

func (r *followRepository) IsFollowing(ctx context.Context, followerID, followingID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Follow{}).
		Where("follower_id = ? AND following_id = ?", followerID, followingID).
		Count(&count).Error
	if err != nil {
		return false, dbError(err, "Follow", followingID)
	}
	return count > 0, nil
}

func (r *followRepository) Followers(ctx context.Context, userID string) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Joins("JOIN follows f ON f.follower_id = users.id").
		Where("f.following_id = ?", userID).
		Order("f.created_at DESC").
		Find(&users).Error
	if err != nil {
		return nil, dbError(err, "Follow", userID)
	}
	return users, nil
}

func (r *followRepository) Following(ctx context.Context, userID string) ([]models.User, error) {
	var users []models.User
	err := r.db.WithContext(ctx).
		Joins("JOIN follows f ON f.following_id = users.id").
		Where("f.follower_id = ?", userID).
		Order("f.created_at DESC").
		Find(&users).Error
	if err != nil {
		return nil, dbError(err, "Follow", userID)
	}
	return users, nil
}

func (r *followRepository) Counts(ctx context.Context, userID string) (FollowCounts, error) {
	var counts FollowCounts
	err := cache.Aside(ctx, cache.FollowCountKey(userID), &counts, cache.FollowCountTTL, func() error {
		db := r.db.WithContext(ctx).Model(&models.Follow{})
		if err := db.Where("following_id = ?", userID).Count(&counts.Followers).Error; err != nil {
			return err
		}
		return r.db.WithContext(ctx).Model(&models.Follow{}).Where("follower_id = ?", userID).Count(&counts.Following).Error
	})
	if err != nil {
		return FollowCounts{}, dbError(err, "Follow", userID)
	}
	return counts, nil
}
