package credentials

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/convoflow/convoflow-server/internal/audit"
	"github.com/convoflow/convoflow-server/internal/db"
	"github.com/convoflow/convoflow-server/internal/models"
	"github.com/convoflow/convoflow-server/internal/secrets"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

func openStoreTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:credentials_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(&models.User{}, &models.Credential{}, &models.CredentialAudit{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func newTestStore(t *testing.T) (*Store, *gorm.DB, string) {
	t.Helper()
	conn := openStoreTestDB(t)
	cipher, errCipher := secrets.NewCipher("store-test-master-secret")
	if errCipher != nil {
		t.Fatalf("new cipher: %v", errCipher)
	}

	userID := uuid.NewString()
	user := models.User{ID: userID, IsAnonymous: true, LastActiveAt: time.Now().UTC()}
	if errCreate := conn.Create(&user).Error; errCreate != nil {
		t.Fatalf("seed user: %v", errCreate)
	}

	return NewStore(conn, cipher, audit.NewRecorder(conn)), conn, userID
}

func TestUpsertThenGetRoundTrip(t *testing.T) {
	store, _, userID := newTestStore(t)
	ctx := context.Background()

	before := time.Now().UTC().Add(-time.Second)
	if errUpsert := store.Upsert(ctx, userID, "openai", "sk-abc123", nil); errUpsert != nil {
		t.Fatalf("upsert: %v", errUpsert)
	}

	secret, errGet := store.Get(ctx, userID, "openai", nil)
	if errGet != nil {
		t.Fatalf("get: %v", errGet)
	}
	if secret.Plaintext != "sk-abc123" {
		t.Fatalf("plaintext = %q", secret.Plaintext)
	}
	if secret.LastUsedAt == nil {
		t.Fatalf("expected last_used_at to be stamped")
	}
	if !secret.LastUsedAt.After(before) {
		t.Fatalf("last_used_at %v not after %v", secret.LastUsedAt, before)
	}
	if !secret.LastUsedAt.After(secret.CreatedAt.Add(-time.Millisecond)) {
		t.Fatalf("last_used_at older than created_at")
	}
}

func TestUpsertOverwritesInPlace(t *testing.T) {
	store, conn, userID := newTestStore(t)
	ctx := context.Background()

	if errUpsert := store.Upsert(ctx, userID, "openai", "sk-first", nil); errUpsert != nil {
		t.Fatalf("first upsert: %v", errUpsert)
	}
	if errUpsert := store.Upsert(ctx, userID, "openai", "sk-second", nil); errUpsert != nil {
		t.Fatalf("second upsert: %v", errUpsert)
	}

	var count int64
	if errCount := conn.Model(&models.Credential{}).
		Where("user_id = ? AND provider = ?", userID, "openai").
		Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 1 {
		t.Fatalf("expected exactly 1 row, got %d", count)
	}

	secret, errGet := store.Get(ctx, userID, "openai", nil)
	if errGet != nil {
		t.Fatalf("get: %v", errGet)
	}
	if secret.Plaintext != "sk-second" {
		t.Fatalf("plaintext = %q, want sk-second", secret.Plaintext)
	}
}

func TestUpsertReactivatesDeactivatedCredential(t *testing.T) {
	store, _, userID := newTestStore(t)
	ctx := context.Background()

	if errUpsert := store.Upsert(ctx, userID, "anthropic", "sk-ant-1", nil); errUpsert != nil {
		t.Fatalf("upsert: %v", errUpsert)
	}
	if errDeactivate := store.Deactivate(ctx, userID, "anthropic", nil); errDeactivate != nil {
		t.Fatalf("deactivate: %v", errDeactivate)
	}
	if _, errGet := store.Get(ctx, userID, "anthropic", nil); !errors.Is(errGet, db.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after deactivate, got %v", errGet)
	}

	if errUpsert := store.Upsert(ctx, userID, "anthropic", "sk-ant-2", nil); errUpsert != nil {
		t.Fatalf("re-upsert: %v", errUpsert)
	}
	secret, errGet := store.Get(ctx, userID, "anthropic", nil)
	if errGet != nil {
		t.Fatalf("get after re-upsert: %v", errGet)
	}
	if secret.Plaintext != "sk-ant-2" {
		t.Fatalf("plaintext = %q", secret.Plaintext)
	}
}

func TestUpsertRejectsUnknownProvider(t *testing.T) {
	store, conn, userID := newTestStore(t)

	if err := store.Upsert(context.Background(), userID, "tarot-cards", "sk-1", nil); !errors.Is(err, ErrUnknownProvider) {
		t.Fatalf("expected ErrUnknownProvider, got %v", err)
	}

	// Validation failures happen before storage: no rows, no audit entries.
	var count int64
	if errCount := conn.Model(&models.Credential{}).Count(&count).Error; errCount != nil {
		t.Fatalf("count: %v", errCount)
	}
	if count != 0 {
		t.Fatalf("expected no credential rows, got %d", count)
	}
}

func TestGetMissingCredential(t *testing.T) {
	store, _, userID := newTestStore(t)

	if _, err := store.Get(context.Background(), userID, "mistral", nil); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetTamperedCiphertextFailsClosed(t *testing.T) {
	store, conn, userID := newTestStore(t)
	ctx := context.Background()

	if errUpsert := store.Upsert(ctx, userID, "openai", "sk-abc123", nil); errUpsert != nil {
		t.Fatalf("upsert: %v", errUpsert)
	}

	var row models.Credential
	if errTake := conn.Where("user_id = ?", userID).Take(&row).Error; errTake != nil {
		t.Fatalf("take: %v", errTake)
	}
	row.Ciphertext[0] ^= 0x01
	if errSave := conn.Model(&models.Credential{}).Where("id = ?", row.ID).
		Update("ciphertext", row.Ciphertext).Error; errSave != nil {
		t.Fatalf("tamper: %v", errSave)
	}

	if _, err := store.Get(ctx, userID, "openai", nil); !errors.Is(err, secrets.ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}

	var failures int64
	if errCount := conn.Model(&models.CredentialAudit{}).
		Where("user_id = ? AND action = ? AND success = ?", userID, models.AuditActionUsed, false).
		Count(&failures).Error; errCount != nil {
		t.Fatalf("count audits: %v", errCount)
	}
	if failures != 1 {
		t.Fatalf("expected 1 failed used-audit, got %d", failures)
	}
}

func TestCredentialNotReadableUnderOtherUser(t *testing.T) {
	store, conn, userID := newTestStore(t)
	ctx := context.Background()

	otherID := uuid.NewString()
	other := models.User{ID: otherID, IsAnonymous: true, LastActiveAt: time.Now().UTC()}
	if errCreate := conn.Create(&other).Error; errCreate != nil {
		t.Fatalf("seed other user: %v", errCreate)
	}

	if errUpsert := store.Upsert(ctx, userID, "openai", "sk-abc123", nil); errUpsert != nil {
		t.Fatalf("upsert: %v", errUpsert)
	}

	// Simulate a row swap: reassign the encrypted row to another user. The
	// AAD binding must make the unseal fail closed.
	if errSwap := conn.Model(&models.Credential{}).
		Where("user_id = ?", userID).
		Update("user_id", otherID).Error; errSwap != nil {
		t.Fatalf("swap row: %v", errSwap)
	}

	if _, err := store.Get(ctx, otherID, "openai", nil); !errors.Is(err, secrets.ErrAuthenticationFailed) {
		t.Fatalf("expected ErrAuthenticationFailed, got %v", err)
	}
}

func TestListOmitsSecretMaterial(t *testing.T) {
	store, _, userID := newTestStore(t)
	ctx := context.Background()

	for provider, key := range map[string]string{"openai": "sk-1", "anthropic": "sk-2"} {
		if errUpsert := store.Upsert(ctx, userID, provider, key, nil); errUpsert != nil {
			t.Fatalf("upsert %s: %v", provider, errUpsert)
		}
	}
	if errDeactivate := store.Deactivate(ctx, userID, "anthropic", nil); errDeactivate != nil {
		t.Fatalf("deactivate: %v", errDeactivate)
	}

	list, errList := store.List(ctx, userID)
	if errList != nil {
		t.Fatalf("list: %v", errList)
	}
	if len(list) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(list))
	}

	byProvider := map[string]Summary{}
	for _, item := range list {
		byProvider[item.Provider] = item
	}
	if !byProvider["openai"].Active {
		t.Fatalf("openai should be active")
	}
	if byProvider["anthropic"].Active {
		t.Fatalf("anthropic should be inactive")
	}
}

func TestDeactivateIsIdempotent(t *testing.T) {
	store, _, userID := newTestStore(t)
	ctx := context.Background()

	if errUpsert := store.Upsert(ctx, userID, "openai", "sk-1", nil); errUpsert != nil {
		t.Fatalf("upsert: %v", errUpsert)
	}
	if errFirst := store.Deactivate(ctx, userID, "openai", nil); errFirst != nil {
		t.Fatalf("first deactivate: %v", errFirst)
	}
	if errSecond := store.Deactivate(ctx, userID, "openai", nil); errSecond != nil {
		t.Fatalf("second deactivate: %v", errSecond)
	}
}

func TestDeactivateMissingCredential(t *testing.T) {
	store, _, userID := newTestStore(t)

	if err := store.Deactivate(context.Background(), userID, "openai", nil); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestUpsertWritesAuditTrail(t *testing.T) {
	store, conn, userID := newTestStore(t)
	ctx := context.Background()

	meta := &audit.RequestMeta{OriginAddr: "198.51.100.4", ClientAgent: "convoflow-web/1.0"}
	if errUpsert := store.Upsert(ctx, userID, "openai", "sk-1", meta); errUpsert != nil {
		t.Fatalf("create upsert: %v", errUpsert)
	}
	if errUpsert := store.Upsert(ctx, userID, "openai", "sk-2", meta); errUpsert != nil {
		t.Fatalf("update upsert: %v", errUpsert)
	}

	var actions []string
	if errPluck := conn.Model(&models.CredentialAudit{}).
		Where("user_id = ?", userID).
		Order("id ASC").
		Pluck("action", &actions).Error; errPluck != nil {
		t.Fatalf("pluck: %v", errPluck)
	}
	want := []string{models.AuditActionCreated, models.AuditActionUpdated}
	if len(actions) != len(want) {
		t.Fatalf("audit actions = %v, want %v", actions, want)
	}
	for i := range want {
		if actions[i] != want[i] {
			t.Fatalf("audit actions = %v, want %v", actions, want)
		}
	}
}
