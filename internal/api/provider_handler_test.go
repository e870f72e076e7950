package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"recruithub/internal/ai"
)

func newProviderRouter(t *testing.T, db *gorm.DB) (*gin.Engine, *ai.ProviderStore) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := ai.NewProviderStore(db)
	h := NewProviderHandler(store, nil)

	router := gin.New()
	router.GET("/api/ai-providers", h.List)
	router.POST("/api/ai-providers", h.Create)
	router.PUT("/api/ai-providers/:id", h.Update)
	router.DELETE("/api/ai-providers/:id", h.Delete)
	router.POST("/api/ai-providers/active", h.SetActive)
	return router, store
}

func TestProviderListMasksKeys(t *testing.T) {
	db := newTestDB(t)
	router, store := newProviderRouter(t, db)

	created, err := store.Create(context.Background(), ai.Provider{
		Name:          "OpenAI",
		APIKey:        "sk-secret-98765",
		ParsingModel:  "m1",
		MatchingModel: "m2",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/ai-providers", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var providers []providerResponse
	if err := json.Unmarshal(w.Body.Bytes(), &providers); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(providers) != 1 {
		t.Fatalf("len = %d", len(providers))
	}
	if strings.Contains(providers[0].APIKey, "secret") {
		t.Fatalf("api key leaked: %q", providers[0].APIKey)
	}
	if !strings.HasSuffix(providers[0].APIKey, "8765") {
		t.Fatalf("masked key = %q, want last four digits visible", providers[0].APIKey)
	}
	if !providers[0].Active {
		t.Fatalf("first provider not marked active: %+v (id %s)", providers[0], created.ID)
	}
}

func TestProviderCreateValidation(t *testing.T) {
	router, _ := newProviderRouter(t, newTestDB(t))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/api/ai-providers", gin.H{
		"name": "OpenAI",
	}))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", w.Code)
	}
}

func TestProviderDeleteActiveRefused(t *testing.T) {
	db := newTestDB(t)
	router, store := newProviderRouter(t, db)

	active, err := store.Create(context.Background(), ai.Provider{
		Name:          "OpenAI",
		APIKey:        "sk-1",
		ParsingModel:  "m1",
		MatchingModel: "m2",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/ai-providers/"+active.ID, nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("delete active status = %d, want refusal", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/ai-providers/ghost", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("delete missing status = %d", w.Code)
	}
}

func TestProviderSetActive(t *testing.T) {
	db := newTestDB(t)
	router, store := newProviderRouter(t, db)

	if _, err := store.Create(context.Background(), ai.Provider{
		Name: "OpenAI", APIKey: "sk-1", ParsingModel: "m1", MatchingModel: "m2",
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	second, err := store.Create(context.Background(), ai.Provider{
		Name: "OpenRouter", APIKey: "sk-2", ParsingModel: "m1", MatchingModel: "m2",
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/api/ai-providers/active", gin.H{"id": second.ID}))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}

	activeID, err := store.ActiveID(context.Background())
	if err != nil {
		t.Fatalf("active id: %v", err)
	}
	if activeID != second.ID {
		t.Fatalf("activeID = %q, want %q", activeID, second.ID)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/api/ai-providers/active", gin.H{"id": "ghost"}))
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d", w.Code)
	}
}
