package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"name-rotation/backend/config"
	"name-rotation/backend/internal/api/handler"
	"name-rotation/backend/internal/dto"
	"name-rotation/backend/internal/service"
	"name-rotation/backend/pkg/jwt"
)

type stubTaskService struct {
	service.TaskService
	generated bool
}

func (s *stubTaskService) Generate(_ context.Context, _ time.Time, _ int, _ string) (*dto.GenerateTasksResponse, error) {
	s.generated = true
	return &dto.GenerateTasksResponse{}, nil
}

func (s *stubTaskService) ListAll(_ context.Context, _ time.Time) ([]dto.TaskResponse, error) {
	return []dto.TaskResponse{}, nil
}

func setupRouter(t *testing.T) (http.Handler, *jwt.Manager, *stubTaskService) {
	t.Helper()
	if err := handler.RegisterValidators(); err != nil {
		t.Fatalf("RegisterValidators 失败: %v", err)
	}

	cfg := &config.Config{
		Server: config.ServerConfig{BodyLimit: 1 << 20},
		Auth: config.AuthConfig{
			JWTSecret:      "router-test-secret-0123456789",
			Issuer:         "name-rotation",
			AccessTokenTTL: time.Minute,
		},
		RateLimit: config.RateLimitConfig{GenerateLimit: 10, Window: time.Minute},
	}
	tasks := &stubTaskService{}
	clock := handler.NewClock(time.UTC)
	h := &handler.Handler{
		Task: handler.NewTaskHandler(tasks, clock, 6),
	}
	jwtMgr := jwt.NewManager(&cfg.Auth)
	return Setup(cfg, h, jwtMgr, nil, zap.NewNop()), jwtMgr, tasks
}

func do(r http.Handler, method, path, token, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestRouter_Health(t *testing.T) {
	r, _, _ := setupRouter(t)
	w := do(r, "GET", "/health", "", "")
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Request-ID") == "" {
		t.Error("响应应带 X-Request-ID")
	}
}

func TestRouter_RequiresToken(t *testing.T) {
	r, _, _ := setupRouter(t)
	if w := do(r, "GET", "/api/v1/tasks", "", ""); w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", w.Code)
	}
}

func TestRouter_MemberCanRead(t *testing.T) {
	r, jwtMgr, _ := setupRouter(t)
	token, _ := jwtMgr.GenerateAccessToken("u-1", "member")

	if w := do(r, "GET", "/api/v1/tasks", token, ""); w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
}

func TestRouter_GenerateRequiresAdmin(t *testing.T) {
	r, jwtMgr, tasks := setupRouter(t)

	member, _ := jwtMgr.GenerateAccessToken("u-1", "member")
	if w := do(r, "POST", "/api/v1/tasks/generate", member, `{"count":4}`); w.Code != http.StatusForbidden {
		t.Errorf("member: expected 403, got %d", w.Code)
	}
	if tasks.generated {
		t.Fatal("无权限时不应调用 Generate")
	}

	admin, _ := jwtMgr.GenerateAccessToken("u-2", "admin")
	if w := do(r, "POST", "/api/v1/tasks/generate", admin, `{"count":4}`); w.Code != http.StatusCreated {
		t.Errorf("admin: expected 201, got %d", w.Code)
	}
	if !tasks.generated {
		t.Error("管理员请求应触发 Generate")
	}
}
