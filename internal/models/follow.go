package models

import "time"

// Follow is a directed follower -> followed edge.
type Follow struct {
	FollowerID  string    `gorm:"primaryKey;size:36" json:"follower_id"`
	FollowingID string    `gorm:"primaryKey;size:36;index" json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// TableName specifies the table name for GORM
func (Follow) TableName() string {
	return "follows"
}
