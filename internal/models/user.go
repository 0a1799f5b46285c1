// Package models contains data structures for the application's domain models.
package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// User represents an account.
type User struct {
	ID       string `gorm:"primaryKey;size:36" json:"id"`
	Name     string `gorm:"size:100;not null" json:"name"`
	Username string `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email    string `gorm:"size:255;uniqueIndex;not null" json:"-"`
	Password string `gorm:"not null" json:"-"`
	// PublicID is the numeric id shown to other users.
	PublicID   int64  `gorm:"uniqueIndex;not null" json:"public_id,string"`
	IsCreator  bool   `gorm:"not null;default:false" json:"is_creator"`
	IsBanned   bool   `gorm:"not null;default:false" json:"is_banned"`
	IsVerified bool   `gorm:"not null;default:false" json:"is_verified"`
	Avatar     string `json:"avatar"`
	Bio        string `gorm:"type:text" json:"bio"`

	VerificationRequest     *string    `gorm:"type:text" json:"verification_request,omitempty"`
	VerificationRequestedAt *time.Time `json:"verification_requested_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// BeforeCreate assigns an id to new users.
func (u *User) BeforeCreate(_ *gorm.DB) error {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	return nil
}

// Snapshot captures the attribution copied into comments.
func (u *User) Snapshot() AuthorSnapshot {
	return AuthorSnapshot{
		UserID: u.ID,
		Name:   u.Name,
		Avatar: u.Avatar,
	}
}

// UserProfile is the account view returned to its owner.
type UserProfile struct {
	*User
	Email          string `json:"email"`
	FollowersCount int64  `json:"followers_count"`
	FollowingCount int64  `json:"following_count"`
}
