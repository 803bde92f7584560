package credentials

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/convoflow/convoflow-server/internal/audit"
	"github.com/convoflow/convoflow-server/internal/db"
	"github.com/convoflow/convoflow-server/internal/models"
	"github.com/convoflow/convoflow-server/internal/secrets"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store errors.
var (
	// ErrUnknownProvider indicates a provider name outside the accepted set.
	// Rejected before any crypto or storage work.
	ErrUnknownProvider = errors.New("credentials: unknown provider")
	// ErrEmptySecret indicates an empty plaintext secret was submitted.
	ErrEmptySecret = errors.New("credentials: empty secret")
)

// Secret is a decrypted credential returned by Get.
type Secret struct {
	Provider   string
	Plaintext  string
	LastUsedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Summary describes a credential without exposing secret material.
type Summary struct {
	Provider   string     `json:"provider"`
	Active     bool       `json:"active"`
	LastUsedAt *time.Time `json:"last_used_at"`
	CreatedAt  time.Time  `json:"created_at"`
}

// Store persists one encrypted credential per (user, provider) pair. All
// writes are single conditional statements so concurrent calls for the same
// pair cannot produce duplicate rows or lost updates.
type Store struct {
	db      *gorm.DB
	cipher  *secrets.Cipher
	auditor *audit.Recorder
}

// NewStore constructs a credential store.
func NewStore(conn *gorm.DB, cipher *secrets.Cipher, auditor *audit.Recorder) *Store {
	return &Store{db: conn, cipher: cipher, auditor: auditor}
}

// Upsert seals the plaintext and inserts or overwrites the credential for
// (userID, provider) in one atomic insert-on-conflict statement. An existing
// row keeps its identity; ciphertext, IV, tag, and active are replaced and
// active is forced true.
func (s *Store) Upsert(ctx context.Context, userID, provider, plaintext string, meta *audit.RequestMeta) error {
	provider = models.NormalizeProvider(provider)
	if !models.IsKnownProvider(provider) {
		return ErrUnknownProvider
	}
	if plaintext == "" {
		return ErrEmptySecret
	}

	// The pre-check only picks the audit action label; correctness of the
	// write rests on the conflict clause below.
	action := models.AuditActionCreated
	var existing int64
	if errCount := s.db.WithContext(ctx).Model(&models.Credential{}).
		Where("user_id = ? AND provider = ?", userID, provider).
		Count(&existing).Error; errCount == nil && existing > 0 {
		action = models.AuditActionUpdated
	}

	sealed, errSeal := s.cipher.Seal(plaintext, userID)
	if errSeal != nil {
		s.record(ctx, userID, provider, action, false, errSeal, meta)
		return fmt.Errorf("credentials: seal: %w", errSeal)
	}

	now := time.Now().UTC()
	row := models.Credential{
		UserID:     userID,
		Provider:   provider,
		Ciphertext: sealed.Ciphertext,
		IV:         sealed.IV,
		AuthTag:    sealed.AuthTag,
		Active:     true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	errUpsert := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "user_id"}, {Name: "provider"}},
		DoUpdates: clause.Assignments(map[string]any{
			"ciphertext": sealed.Ciphertext,
			"iv":         sealed.IV,
			"auth_tag":   sealed.AuthTag,
			"active":     true,
			"updated_at": now,
		}),
	}).Create(&row).Error
	if errUpsert != nil {
		classified := db.Classify(errUpsert)
		s.record(ctx, userID, provider, action, false, classified, meta)
		return classified
	}

	s.record(ctx, userID, provider, action, true, nil, meta)
	return nil
}

// Get returns the decrypted active credential for (userID, provider), or
// db.ErrNotFound. On success it stamps last_used_at best-effort: a failed
// stamp is logged and does not fail the read.
func (s *Store) Get(ctx context.Context, userID, provider string, meta *audit.RequestMeta) (Secret, error) {
	provider = models.NormalizeProvider(provider)
	if !models.IsKnownProvider(provider) {
		return Secret{}, ErrUnknownProvider
	}

	var row models.Credential
	errTake := s.db.WithContext(ctx).
		Where("user_id = ? AND provider = ? AND active = ?", userID, provider, true).
		Take(&row).Error
	if errTake != nil {
		return Secret{}, db.Classify(errTake)
	}

	plaintext, errUnseal := s.cipher.Unseal(secrets.Sealed{
		Ciphertext: row.Ciphertext,
		IV:         row.IV,
		AuthTag:    row.AuthTag,
	}, userID)
	if errUnseal != nil {
		s.record(ctx, userID, provider, models.AuditActionUsed, false, errUnseal, meta)
		return Secret{}, errUnseal
	}

	now := time.Now().UTC()
	if errStamp := s.db.WithContext(ctx).Model(&models.Credential{}).
		Where("id = ?", row.ID).
		Update("last_used_at", now).Error; errStamp != nil {
		log.WithError(errStamp).WithFields(log.Fields{
			"user_id":  userID,
			"provider": provider,
		}).Warn("credentials: failed to stamp last_used_at")
	} else {
		row.LastUsedAt = &now
	}

	s.record(ctx, userID, provider, models.AuditActionUsed, true, nil, meta)
	return Secret{
		Provider:   row.Provider,
		Plaintext:  plaintext,
		LastUsedAt: row.LastUsedAt,
		CreatedAt:  row.CreatedAt,
		UpdatedAt:  row.UpdatedAt,
	}, nil
}

// List returns every credential for the user, newest first, without any
// secret material.
func (s *Store) List(ctx context.Context, userID string) ([]Summary, error) {
	var rows []models.Credential
	errFind := s.db.WithContext(ctx).
		Select("provider", "active", "last_used_at", "created_at").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&rows).Error
	if errFind != nil {
		return nil, db.Classify(errFind)
	}

	out := make([]Summary, 0, len(rows))
	for _, row := range rows {
		out = append(out, Summary{
			Provider:   row.Provider,
			Active:     row.Active,
			LastUsedAt: row.LastUsedAt,
			CreatedAt:  row.CreatedAt,
		})
	}
	return out, nil
}

// Deactivate soft-deletes the credential for (userID, provider). Calling it
// on an already-inactive credential succeeds; a missing row is db.ErrNotFound.
func (s *Store) Deactivate(ctx context.Context, userID, provider string, meta *audit.RequestMeta) error {
	provider = models.NormalizeProvider(provider)
	if !models.IsKnownProvider(provider) {
		return ErrUnknownProvider
	}

	res := s.db.WithContext(ctx).Model(&models.Credential{}).
		Where("user_id = ? AND provider = ?", userID, provider).
		Update("active", false)
	if res.Error != nil {
		classified := db.Classify(res.Error)
		s.record(ctx, userID, provider, models.AuditActionDeleted, false, classified, meta)
		return classified
	}
	if res.RowsAffected == 0 {
		// Some dialects report zero affected rows for a no-op update, so
		// distinguish "already inactive" from "never existed".
		var count int64
		if errCount := s.db.WithContext(ctx).Model(&models.Credential{}).
			Where("user_id = ? AND provider = ?", userID, provider).
			Count(&count).Error; errCount != nil {
			return db.Classify(errCount)
		}
		if count == 0 {
			return db.ErrNotFound
		}
	}

	s.record(ctx, userID, provider, models.AuditActionDeleted, true, nil, meta)
	return nil
}

// record forwards to the audit recorder, which never propagates failures.
func (s *Store) record(ctx context.Context, userID, provider, action string, success bool, cause error, meta *audit.RequestMeta) {
	if s.auditor == nil {
		return
	}
	errMessage := ""
	if cause != nil {
		errMessage = cause.Error()
	}
	s.auditor.Record(ctx, userID, provider, action, success, errMessage, meta)
}
