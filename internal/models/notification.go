package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NotificationType identifies what produced a notification.
type NotificationType string

const (
	NotificationFollow               NotificationType = "follow"
	NotificationPostDeleted          NotificationType = "post_deleted"
	NotificationVerificationApproved NotificationType = "verification_approved"
	NotificationVerificationRejected NotificationType = "verification_rejected"
	NotificationBanChanged           NotificationType = "ban_changed"
)

// Notification is addressed to a single recipient.
type Notification struct {
	ID        string           `gorm:"primaryKey;size:36" json:"id"`
	UserID    string           `gorm:"size:36;not null;index" json:"user_id"`
	Type      NotificationType `gorm:"size:32;not null" json:"type"`
	Message   string           `gorm:"type:text;not null" json:"message"`
	Data      datatypes.JSON   `json:"data"`
	Read      bool             `gorm:"not null;default:false;index" json:"read"`
	CreatedAt time.Time        `gorm:"index" json:"created_at"`
}

// BeforeCreate assigns an id and makes sure Data holds valid JSON.
func (n *Notification) BeforeCreate(_ *gorm.DB) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if len(n.Data) == 0 {
		n.Data = datatypes.JSON("{}")
	}
	return nil
}
