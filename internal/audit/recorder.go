package audit

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/convoflow/convoflow-server/internal/models"
	log "github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// recordTimeout bounds a single audit append so a slow store cannot stall
// the credential operation being audited.
const recordTimeout = 5 * time.Second

// RequestMeta carries optional request attribution for an audit entry.
type RequestMeta struct {
	OriginAddr  string `json:"origin_addr,omitempty"`
	ClientAgent string `json:"client_agent,omitempty"`
}

// Recorder appends credential lifecycle events. Appends are best-effort:
// failures are logged and never propagated, so audit infrastructure outages
// cannot block credential or quota operations.
type Recorder struct {
	db *gorm.DB
}

// NewRecorder constructs a Recorder backed by GORM.
func NewRecorder(db *gorm.DB) *Recorder {
	return &Recorder{db: db}
}

// Record appends one audit entry for a credential-affecting action.
// errMessage may be empty; meta may be nil.
func (r *Recorder) Record(ctx context.Context, userID, provider, action string, success bool, errMessage string, meta *RequestMeta) {
	if r == nil || r.db == nil {
		return
	}

	dbCtx, cancel := context.WithTimeout(context.Background(), recordTimeout)
	defer cancel()

	var metaJSON datatypes.JSON
	if meta != nil {
		encoded, errMarshal := json.Marshal(meta)
		if errMarshal != nil {
			log.WithError(errMarshal).Warn("audit: failed to encode request metadata")
		} else {
			metaJSON = encoded
		}
	}

	row := models.CredentialAudit{
		UserID:       userID,
		Provider:     models.NormalizeProvider(provider),
		Action:       action,
		Success:      success,
		ErrorMessage: strings.TrimSpace(errMessage),
		Metadata:     metaJSON,
		CreatedAt:    time.Now().UTC(),
	}
	if errCreate := r.db.WithContext(dbCtx).Create(&row).Error; errCreate != nil {
		log.WithError(errCreate).WithFields(log.Fields{
			"user_id":  userID,
			"provider": row.Provider,
			"action":   action,
		}).Warn("audit: failed to append entry")
	}
}
