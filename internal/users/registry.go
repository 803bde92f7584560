package users

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/convoflow/convoflow-server/internal/db"
	"github.com/convoflow/convoflow-server/internal/models"
	"github.com/convoflow/convoflow-server/internal/security"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Registry errors.
var (
	// ErrEmailTaken indicates the email is already registered.
	ErrEmailTaken = errors.New("users: email already registered")
	// ErrInvalidCredentials indicates a failed email/password check.
	ErrInvalidCredentials = errors.New("users: invalid credentials")
	// ErrInvalidInput indicates missing or malformed registration fields.
	ErrInvalidInput = errors.New("users: invalid input")
)

// Registry manages user records for both guests and registered accounts.
type Registry struct {
	db *gorm.DB
}

// NewRegistry constructs a Registry backed by GORM.
func NewRegistry(conn *gorm.DB) *Registry {
	return &Registry{db: conn}
}

// CreateGuest creates an anonymous user with a fresh UUID, zero counters,
// and no email or display name.
func (r *Registry) CreateGuest(ctx context.Context) (models.User, error) {
	user := models.User{
		ID:           uuid.NewString(),
		IsAnonymous:  true,
		LastActiveAt: time.Now().UTC(),
	}
	if errCreate := r.db.WithContext(ctx).Create(&user).Error; errCreate != nil {
		return models.User{}, db.Classify(errCreate)
	}
	return user, nil
}

// Register creates a registered account with a bcrypt-hashed password.
func (r *Registry) Register(ctx context.Context, email, displayName, password string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	displayName = strings.TrimSpace(displayName)
	if email == "" || !strings.Contains(email, "@") || password == "" {
		return models.User{}, ErrInvalidInput
	}

	var existing int64
	if errCount := r.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", email).
		Count(&existing).Error; errCount != nil {
		return models.User{}, db.Classify(errCount)
	}
	if existing > 0 {
		return models.User{}, ErrEmailTaken
	}

	hash, errHash := security.HashPassword(password)
	if errHash != nil {
		return models.User{}, errHash
	}

	user := models.User{
		ID:           uuid.NewString(),
		Email:        &email,
		Password:     hash,
		LastActiveAt: time.Now().UTC(),
	}
	if displayName != "" {
		user.DisplayName = &displayName
	}
	if errCreate := r.db.WithContext(ctx).Create(&user).Error; errCreate != nil {
		// The unique index on email closes the pre-check race.
		return models.User{}, db.Classify(errCreate)
	}
	return user, nil
}

// Authenticate verifies an email/password pair. Both an unknown email and a
// wrong password map to ErrInvalidCredentials.
func (r *Registry) Authenticate(ctx context.Context, email, password string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	var user models.User
	errTake := r.db.WithContext(ctx).
		Where("email = ? AND is_anonymous = ?", email, false).
		Take(&user).Error
	if errTake != nil {
		classified := db.Classify(errTake)
		if errors.Is(classified, db.ErrNotFound) {
			return models.User{}, ErrInvalidCredentials
		}
		return models.User{}, classified
	}

	if !security.CheckPassword(user.Password, password) {
		return models.User{}, ErrInvalidCredentials
	}
	return user, nil
}

// GetByID fetches a user record.
func (r *Registry) GetByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	if errTake := r.db.WithContext(ctx).Where("id = ?", id).Take(&user).Error; errTake != nil {
		return models.User{}, db.Classify(errTake)
	}
	return user, nil
}

// TouchLastActive refreshes last_active_at best-effort; failures are logged
// and not propagated.
func (r *Registry) TouchLastActive(ctx context.Context, id string) {
	if errUpdate := r.db.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", id).
		Update("last_active_at", time.Now().UTC()).Error; errUpdate != nil {
		log.WithError(errUpdate).WithField("user_id", id).Warn("users: failed to touch last_active_at")
	}
}
