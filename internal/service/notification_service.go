package service

import (
	"context"
	"encoding/json"

	"github.com/aquawaran/Clon-Official/internal/models"
	"github.com/aquawaran/Clon-Official/internal/notifications"
	"github.com/aquawaran/Clon-Official/internal/repository"

	"gorm.io/datatypes"
)

type NotificationService struct {
	repo   repository.NotificationRepository
	events Broadcaster
}

func NewNotificationService(repo repository.NotificationRepository, events Broadcaster) *NotificationService {
	return &NotificationService{repo: repo, events: orNoop(events)}
}

// Notify stores a notification for userID and pushes it to their live
// connections.
func (s *NotificationService) Notify(ctx context.Context, userID string, typ models.NotificationType, message string, data map[string]interface{}) (*models.Notification, error) {
	n := &models.Notification{
		UserID:  userID,
		Type:    typ,
		Message: message,
	}
	if data != nil {
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		n.Data = datatypes.JSON(raw)
	}
	if err := s.repo.Create(ctx, n); err != nil {
		return nil, err
	}
	s.events.EmitTo(userID, notifications.EventNotification, n)
	return n, nil
}

func (s *NotificationService) List(ctx context.Context, userID string) ([]models.Notification, error) {
	return s.repo.ListForUser(ctx, userID, repository.NotificationListLimit)
}

func (s *NotificationService) UnreadCount(ctx context.Context, userID string) (int64, error) {
	return s.repo.UnreadCount(ctx, userID)
}

func (s *NotificationService) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	return s.repo.MarkAllRead(ctx, userID)
}
