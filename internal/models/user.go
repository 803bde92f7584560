package models

import "time"

// User represents a chat user, either registered or anonymous (guest).
type User struct {
	ID string `gorm:"type:text;primaryKey"` // Opaque unique identifier (UUID string).

	Email       *string `gorm:"type:text;uniqueIndex"` // Login email; nil for anonymous users.
	DisplayName *string `gorm:"type:text"`             // Display name; nil for anonymous users.
	Password    string  `gorm:"type:text"`             // Bcrypt hash; empty for anonymous users.

	IsAnonymous bool `gorm:"not null;default:false;index"` // Marks guest accounts.

	DailyMessageCount    int64 `gorm:"not null;default:0"` // Standard-tier messages sent today.
	DailyProMessageCount int64 `gorm:"not null;default:0"` // Pro-tier messages sent today.

	LastActiveAt time.Time `gorm:"not null;index"` // Last observed activity.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (User) TableName() string {
	return "users"
}
