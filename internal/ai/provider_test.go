package ai

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"recruithub/internal/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func sampleProvider(name string) Provider {
	return Provider{
		Name:          name,
		APIKey:        "sk-test-1234",
		ParsingModel:  "model-a",
		MatchingModel: "model-b",
	}
}

func TestCreateActivatesFirstProvider(t *testing.T) {
	ctx := context.Background()
	store := NewProviderStore(newTestDB(t))

	first, err := store.Create(ctx, sampleProvider("OpenAI"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	activeID, err := store.ActiveID(ctx)
	if err != nil {
		t.Fatalf("active id: %v", err)
	}
	if activeID != first.ID {
		t.Fatalf("activeID = %q, want first provider auto-activated", activeID)
	}

	// 已有激活供应商时，后续新增不抢占激活状态。
	if _, err := store.Create(ctx, sampleProvider("OpenRouter")); err != nil {
		t.Fatalf("second create: %v", err)
	}
	activeID, _ = store.ActiveID(ctx)
	if activeID != first.ID {
		t.Fatalf("activeID = %q, want unchanged", activeID)
	}
}

func TestCreateRejectsIncompleteProvider(t *testing.T) {
	ctx := context.Background()
	store := NewProviderStore(newTestDB(t))

	p := sampleProvider("OpenAI")
	p.APIKey = ""
	if _, err := store.Create(ctx, p); !errors.Is(err, ErrProviderIncomplete) {
		t.Fatalf("err = %v, want ErrProviderIncomplete", err)
	}
}

func TestUpdateKeepsAPIKeyWhenBlank(t *testing.T) {
	ctx := context.Background()
	store := NewProviderStore(newTestDB(t))

	created, err := store.Create(ctx, sampleProvider("OpenAI"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	patch := sampleProvider("OpenAI Renamed")
	patch.APIKey = ""
	updated, err := store.Update(ctx, created.ID, patch)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.APIKey != "sk-test-1234" {
		t.Fatalf("apiKey = %q, want original kept", updated.APIKey)
	}
	if updated.Name != "OpenAI Renamed" {
		t.Fatalf("name = %q", updated.Name)
	}

	if _, err := store.Update(ctx, "missing", patch); !errors.Is(err, ErrProviderNotFound) {
		t.Fatalf("update missing: err = %v, want ErrProviderNotFound", err)
	}
}

func TestDeleteRefusesActiveProvider(t *testing.T) {
	ctx := context.Background()
	store := NewProviderStore(newTestDB(t))

	active, err := store.Create(ctx, sampleProvider("OpenAI"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	other, err := store.Create(ctx, sampleProvider("OpenRouter"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := store.Delete(ctx, active.ID); !errors.Is(err, ErrProviderActive) {
		t.Fatalf("delete active: err = %v, want ErrProviderActive", err)
	}
	if err := store.Delete(ctx, other.ID); err != nil {
		t.Fatalf("delete inactive: %v", err)
	}
	if err := store.Delete(ctx, other.ID); !errors.Is(err, ErrProviderNotFound) {
		t.Fatalf("delete twice: err = %v, want ErrProviderNotFound", err)
	}
}

func TestSetActiveRequiresExistingProvider(t *testing.T) {
	ctx := context.Background()
	store := NewProviderStore(newTestDB(t))

	if err := store.SetActive(ctx, "ghost"); !errors.Is(err, ErrProviderNotFound) {
		t.Fatalf("err = %v, want ErrProviderNotFound", err)
	}

	created, err := store.Create(ctx, sampleProvider("OpenAI"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	second, err := store.Create(ctx, sampleProvider("OpenRouter"))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := store.SetActive(ctx, second.ID); err != nil {
		t.Fatalf("set active: %v", err)
	}
	activeID, _ := store.ActiveID(ctx)
	if activeID != second.ID {
		t.Fatalf("activeID = %q, want %q (was %q)", activeID, second.ID, created.ID)
	}
}

func TestActiveWithoutSelection(t *testing.T) {
	ctx := context.Background()
	store := NewProviderStore(newTestDB(t))

	if _, err := store.Active(ctx); !errors.Is(err, ErrNoActiveProvider) {
		t.Fatalf("err = %v, want ErrNoActiveProvider", err)
	}
}

func TestActiveIDToleratesNull(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)
	store := NewProviderStore(db)

	// 原始前端把"未选择"写成 JSON null，读取端必须容忍。
	setting := database.AppSetting{Key: "activeProviderId", Value: []byte("null")}
	if err := db.Create(&setting).Error; err != nil {
		t.Fatalf("seed setting: %v", err)
	}

	id, err := store.ActiveID(ctx)
	if err != nil {
		t.Fatalf("active id: %v", err)
	}
	if id != "" {
		t.Fatalf("id = %q, want empty", id)
	}
}

func TestMaskAPIKey(t *testing.T) {
	if got := MaskAPIKey("sk-abcdef123456"); got != "••••••••••••3456" {
		t.Fatalf("masked = %q", got)
	}
	if got := MaskAPIKey("abc"); got != "••••••••••••abc" {
		t.Fatalf("short masked = %q", got)
	}
	if got := MaskAPIKey(""); got != "" {
		t.Fatalf("empty masked = %q", got)
	}
}
