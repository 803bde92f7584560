package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/convoflow/convoflow-server/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func openSettingsTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:settings_%d?mode=memory&cache=shared", time.Now().UnixNano())
	conn, errOpen := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if errOpen != nil {
		t.Fatalf("open db: %v", errOpen)
	}
	if errMigrate := conn.AutoMigrate(&models.Setting{}); errMigrate != nil {
		t.Fatalf("migrate: %v", errMigrate)
	}
	return conn
}

func TestRefreshDBConfigSnapshot(t *testing.T) {
	conn := openSettingsTestDB(t)

	rows := []models.Setting{
		{Key: DailyMessageLimitKey, Value: json.RawMessage(`50`)},
		{Key: GuestRetentionDaysKey, Value: json.RawMessage(`"14"`)},
		{Key: SiteNameKey, Value: json.RawMessage(`"ConvoFlow Dev"`)},
	}
	if errCreate := conn.Create(&rows).Error; errCreate != nil {
		t.Fatalf("seed settings: %v", errCreate)
	}

	if errRefresh := RefreshDBConfigSnapshot(context.Background(), conn); errRefresh != nil {
		t.Fatalf("refresh: %v", errRefresh)
	}

	if got := DBConfigInt(DailyMessageLimitKey, DefaultDailyMessageLimit); got != 50 {
		t.Fatalf("daily limit = %d, want 50", got)
	}
	if got := DBConfigInt(GuestRetentionDaysKey, DefaultGuestRetentionDays); got != 14 {
		t.Fatalf("guest retention = %d, want 14", got)
	}
	if got := DBConfigInt(AuditRetentionDaysKey, DefaultAuditRetentionDays); got != DefaultAuditRetentionDays {
		t.Fatalf("audit retention = %d, want default", got)
	}
}

func TestDBConfigIntFallsBackOnGarbage(t *testing.T) {
	StoreDBConfig(time.Now(), map[string]json.RawMessage{
		DailyMessageLimitKey: json.RawMessage(`"not-a-number"`),
	})
	if got := DBConfigInt(DailyMessageLimitKey, 7); got != 7 {
		t.Fatalf("got %d, want fallback 7", got)
	}
}
