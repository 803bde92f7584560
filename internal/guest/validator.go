package guest

import (
	"context"
	"errors"
	"strings"

	"github.com/convoflow/convoflow-server/internal/db"
	"github.com/convoflow/convoflow-server/internal/models"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Validator decides whether a presented identifier names a valid guest
// account: canonical UUID syntax first, then an existence check requiring
// the anonymous flag. When the store is unreachable the validator degrades
// to the syntax result alone, which weakens the guarantee from "exists and
// is anonymous" to "well-formed"; the degradation is always logged.
type Validator struct {
	db *gorm.DB
}

// NewValidator constructs a Validator backed by GORM.
func NewValidator(conn *gorm.DB) *Validator {
	return &Validator{db: conn}
}

// WellFormed reports whether the identifier is a canonical 36-character
// UUID. Braced, URN, and hash-like forms are rejected.
func WellFormed(id string) bool {
	trimmed := strings.TrimSpace(id)
	if len(trimmed) != 36 {
		return false
	}
	_, err := uuid.Parse(trimmed)
	return err == nil
}

// Validate returns true only for a well-formed identifier that names an
// anonymous user. Syntax failures never touch storage.
func (v *Validator) Validate(ctx context.Context, id string) bool {
	if !WellFormed(id) {
		return false
	}
	id = strings.TrimSpace(id)

	var row models.User
	errTake := v.db.WithContext(ctx).
		Select("id", "is_anonymous").
		Where("id = ?", id).
		Take(&row).Error
	if errTake != nil {
		classified := db.Classify(errTake)
		if errors.Is(classified, db.ErrNotFound) {
			return false
		}
		log.WithError(classified).WithField("guest_id", id).
			Warn("guest: store unreachable, accepting well-formed identifier")
		return true
	}
	return row.IsAnonymous
}
