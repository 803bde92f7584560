package models

import (
	"encoding/json"
	"time"
)

// Setting is a database-backed configuration entry. Values are raw JSON so
// operators can store numbers, strings, or structured overrides under one
// schema; the settings package parses them into typed values.
type Setting struct {
	Key       string          `gorm:"type:varchar(255);primaryKey"`
	Value     json.RawMessage `gorm:"type:jsonb"`
	UpdatedAt time.Time       `gorm:"not null;autoUpdateTime;default:CURRENT_TIMESTAMP"`
}

// TableName forces the settings table name.
func (Setting) TableName() string {
	return "settings"
}
