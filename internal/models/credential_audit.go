package models

import (
	"time"

	"gorm.io/datatypes"
)

// Credential audit action kinds.
const (
	// AuditActionCreated records a first-time credential save.
	AuditActionCreated = "created"
	// AuditActionUpdated records an overwrite of an existing credential.
	AuditActionUpdated = "updated"
	// AuditActionDeleted records a credential deactivation.
	AuditActionDeleted = "deleted"
	// AuditActionUsed records a credential retrieval for use.
	AuditActionUsed = "used"
)

// CredentialAudit is an append-only record of a credential-affecting action.
//
// Rows reference users by ID value only, with no foreign key: audit history
// outlives both the credential row (which may be recreated) and the user row
// (which may be deleted).
type CredentialAudit struct {
	ID uint64 `gorm:"primaryKey;autoIncrement"` // Primary key.

	UserID   string `gorm:"type:text;not null;index:idx_credential_audits_user_provider_created,priority:1"` // Subject user ID.
	Provider string `gorm:"type:text;not null;index:idx_credential_audits_user_provider_created,priority:2"` // Provider name.

	Action  string `gorm:"type:text;not null"`     // Action kind: created, updated, deleted, used.
	Success bool   `gorm:"not null;default:false"` // Whether the action succeeded.

	ErrorMessage string `gorm:"type:text"` // Failure detail, empty on success.

	Metadata datatypes.JSON `gorm:"type:jsonb"` // Optional request metadata (origin address, client agent).

	CreatedAt time.Time `gorm:"not null;autoCreateTime;index:idx_credential_audits_user_provider_created,priority:3"` // Creation timestamp.
}

// TableName overrides the default table name.
func (CredentialAudit) TableName() string {
	return "credential_audits"
}
