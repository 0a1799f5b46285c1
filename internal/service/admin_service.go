package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/aquawaran/Clon-Official/internal/models"
	"github.com/aquawaran/Clon-Official/internal/repository"
)

const maxVerificationRequestLen = 1000

// AdminService holds the moderation operations reserved for the creator.
type AdminService struct {
	users         repository.UserRepository
	notifications *NotificationService
	now           func() time.Time
}

func NewAdminService(users repository.UserRepository, notifications *NotificationService) *AdminService {
	return &AdminService{users: users, notifications: notifications, now: time.Now}
}

// requireCreator loads actorID and fails unless they hold the creator role.
func (s *AdminService) requireCreator(ctx context.Context, actorID string) error {
	actor, err := s.users.GetByID(ctx, actorID)
	if err != nil {
		return err
	}
	if !actor.IsCreator {
		return models.NewForbiddenError("Creator access required")
	}
	return nil
}

func (s *AdminService) ListUsers(ctx context.Context, actorID string, filter repository.UserFilter) ([]models.User, error) {
	if err := s.requireCreator(ctx, actorID); err != nil {
		return nil, err
	}
	return s.users.List(ctx, filter)
}

// SetBan bans or unbans userID. The creator cannot ban themselves.
func (s *AdminService) SetBan(ctx context.Context, actorID, userID string, banned bool) (*models.User, error) {
	if err := s.requireCreator(ctx, actorID); err != nil {
		return nil, err
	}
	if actorID == userID && banned {
		return nil, models.NewValidationError("You cannot ban yourself")
	}
	if err := s.users.SetBanned(ctx, userID, banned); err != nil {
		return nil, err
	}

	msg := "Your account has been unbanned"
	if banned {
		msg = "Your account has been banned"
	}
	s.notify(ctx, userID, models.NotificationBanChanged, msg, map[string]interface{}{"banned": banned})

	slog.InfoContext(ctx, "ban status changed", "user_id", userID, "banned", banned, "by", actorID)
	return s.users.GetByID(ctx, userID)
}

// RequestVerification records a pending verification request for userID.
func (s *AdminService) RequestVerification(ctx context.Context, userID, request string) error {
	request = strings.TrimSpace(request)
	if request == "" {
		return models.NewValidationError("request is required")
	}
	if len([]rune(request)) > maxVerificationRequestLen {
		return models.NewValidationError("request must not exceed 1000 characters")
	}
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return err
	}
	if user.IsVerified {
		return models.NewConflictError("Account is already verified")
	}
	return s.users.RequestVerification(ctx, userID, request, s.now())
}

func (s *AdminService) VerificationRequests(ctx context.Context, actorID string) ([]models.User, error) {
	if err := s.requireCreator(ctx, actorID); err != nil {
		return nil, err
	}
	return s.users.ListVerificationRequests(ctx)
}

func (s *AdminService) ApproveVerification(ctx context.Context, actorID, userID string) error {
	return s.resolve(ctx, actorID, userID, true)
}

func (s *AdminService) RejectVerification(ctx context.Context, actorID, userID string) error {
	return s.resolve(ctx, actorID, userID, false)
}

func (s *AdminService) resolve(ctx context.Context, actorID, userID string, approved bool) error {
	if err := s.requireCreator(ctx, actorID); err != nil {
		return err
	}
	if err := s.users.ResolveVerification(ctx, userID, approved); err != nil {
		return err
	}

	if approved {
		s.notify(ctx, userID, models.NotificationVerificationApproved, "Your verification request was approved", nil)
	} else {
		s.notify(ctx, userID, models.NotificationVerificationRejected, "Your verification request was rejected", nil)
	}
	return nil
}

func (s *AdminService) notify(ctx context.Context, userID string, typ models.NotificationType, msg string, data map[string]interface{}) {
	if s.notifications == nil {
		return
	}
	if _, err := s.notifications.Notify(ctx, userID, typ, msg, data); err != nil {
		slog.WarnContext(ctx, "failed to store notification", "user_id", userID, "type", string(typ), "error", err)
	}
}
