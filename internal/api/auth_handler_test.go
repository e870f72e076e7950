package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"recruithub/internal/auth"
	"recruithub/internal/database"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
		t.Fatalf("enable foreign keys: %v", err)
	}
	if err := database.AutoMigrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newAuthService(t *testing.T) *auth.Service {
	t.Helper()
	svc, err := auth.NewService("test-secret", time.Hour)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	return svc
}

func seedUser(t *testing.T, db *gorm.DB, username, password, role string) database.User {
	t.Helper()
	hashed, err := auth.HashPassword(password)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := database.User{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hashed,
		Role:         role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func newAuthRouter(t *testing.T, db *gorm.DB) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(db, newAuthService(t), nil, nil, 0)

	router := gin.New()
	router.POST("/api/auth/login", h.Login)
	router.GET("/api/users", h.ListUsers)
	router.POST("/api/users", h.CreateUser)
	router.DELETE("/api/users/:id", h.DeleteUser)
	return router
}

func TestLogin(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "admin@example.com", "secret-pw", auth.RoleAdmin)
	router := newAuthRouter(t, db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/api/auth/login", gin.H{
		"username": "admin@example.com",
		"password": "secret-pw",
	}))

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}

	var resp struct {
		Token string `json:"token"`
		User  struct {
			ID   string `json:"id"`
			Role string `json:"role"`
		} `json:"user"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("no token in response")
	}
	if resp.User.ID != user.ID || resp.User.Role != auth.RoleAdmin {
		t.Fatalf("user payload = %+v", resp.User)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "admin@example.com", "secret-pw", auth.RoleAdmin)
	router := newAuthRouter(t, db)

	for _, payload := range []gin.H{
		{"username": "admin@example.com", "password": "wrong"},
		{"username": "ghost@example.com", "password": "secret-pw"},
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/api/auth/login", payload))
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("payload %v: status = %d", payload, w.Code)
		}
	}
}

func TestCreateUser(t *testing.T) {
	db := newTestDB(t)
	router := newAuthRouter(t, db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/api/users", gin.H{
		"username": "recruiter@example.com",
		"password": "longenough",
	}))
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", w.Code, w.Body.String())
	}

	var resp userResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Role != auth.RoleRecruiter {
		t.Fatalf("role = %q, want recruiter", resp.Role)
	}

	// 同一邮箱不允许重复注册。
	w = httptest.NewRecorder()
	router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/api/users", gin.H{
		"username": "recruiter@example.com",
		"password": "longenough",
	}))
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d", w.Code)
	}
}

func TestCreateUserValidation(t *testing.T) {
	router := newAuthRouter(t, newTestDB(t))

	for _, payload := range []gin.H{
		{"username": "not-an-email", "password": "longenough"},
		{"username": "r@example.com", "password": "short"},
	} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, jsonRequest(t, http.MethodPost, "/api/users", payload))
		if w.Code != http.StatusBadRequest {
			t.Fatalf("payload %v: status = %d", payload, w.Code)
		}
	}
}

func TestListUsersOnlyRecruiters(t *testing.T) {
	db := newTestDB(t)
	seedUser(t, db, "admin@example.com", "secret-pw", auth.RoleAdmin)
	seedUser(t, db, "r1@example.com", "secret-pw", auth.RoleRecruiter)
	router := newAuthRouter(t, db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var users []userResponse
	if err := json.Unmarshal(w.Body.Bytes(), &users); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(users) != 1 || users[0].Username != "r1@example.com" {
		t.Fatalf("users = %+v, want recruiter only", users)
	}
}

func TestDeleteUser(t *testing.T) {
	db := newTestDB(t)
	user := seedUser(t, db, "r1@example.com", "secret-pw", auth.RoleRecruiter)
	router := newAuthRouter(t, db)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/users/"+user.ID, nil))
	if w.Code != http.StatusNoContent {
		t.Fatalf("status = %d", w.Code)
	}

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/users/"+user.ID, nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", w.Code)
	}
}
