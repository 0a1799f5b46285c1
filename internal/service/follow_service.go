package service

import (
	"context"

	"github.com/aquawaran/Clon-Official/internal/models"
	"github.com/aquawaran/Clon-Official/internal/repository"
)

type FollowService struct {
	follows       repository.FollowRepository
	users         repository.UserRepository
	notifications *NotificationService
}

func NewFollowService(follows repository.FollowRepository, users repository.UserRepository, notifications *NotificationService) *FollowService {
	return &FollowService{follows: follows, users: users, notifications: notifications}
}

// Toggle follows targetID when followerID does not follow them yet and
// unfollows otherwise. It reports whether the edge exists afterwards.
func (s *FollowService) Toggle(ctx context.Context, followerID, targetID string) (bool, error) {
	if followerID == targetID {
		return false, models.NewValidationError("You cannot follow yourself")
	}
	follower, err := activeUser(ctx, s.users, followerID)
	if err != nil {
		return false, err
	}
	if _, err := s.users.GetByID(ctx, targetID); err != nil {
		return false, err
	}

	following, err := s.follows.Toggle(ctx, followerID, targetID)
	if err != nil {
		return false, err
	}

	if following && s.notifications != nil {
		_, _ = s.notifications.Notify(ctx, targetID, models.NotificationFollow,
			"You have a new follower",
			map[string]interface{}{"followerId": follower.ID},
		)
	}
	return following, nil
}

func (s *FollowService) Followers(ctx context.Context, userID string) ([]models.User, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.follows.Followers(ctx, userID)
}

func (s *FollowService) Following(ctx context.Context, userID string) ([]models.User, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		return nil, err
	}
	return s.follows.Following(ctx, userID)
}

func (s *FollowService) Counts(ctx context.Context, userID string) (repository.FollowCounts, error) {
	return s.follows.Counts(ctx, userID)
}
