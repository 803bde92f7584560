package models

import "time"

// Credential stores one encrypted provider API key per (user, provider) pair.
type Credential struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID string `gorm:"type:text;not null;uniqueIndex:idx_credentials_user_provider,priority:1"` // Owning user ID.
	User   *User  `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`                           // Associated user record.

	Provider string `gorm:"type:text;not null;uniqueIndex:idx_credentials_user_provider,priority:2"` // Provider name.

	Ciphertext []byte `gorm:"type:bytea;not null"` // AEAD ciphertext of the secret.
	IV         []byte `gorm:"type:bytea;not null"` // Random nonce used for this row.
	AuthTag    []byte `gorm:"type:bytea;not null"` // AEAD authentication tag.

	Active     bool       `gorm:"not null;default:true"` // Whether the credential is usable.
	LastUsedAt *time.Time // Last successful retrieval time.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Creation timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last update timestamp.
}

// TableName overrides the default table name.
func (Credential) TableName() string {
	return "credentials"
}
