package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/chainlearn/internal/identity"
	"github.com/hitoshi/chainlearn/internal/logger"
	"github.com/hitoshi/chainlearn/internal/metrics"
	"github.com/hitoshi/chainlearn/internal/middleware"
	"github.com/hitoshi/chainlearn/internal/model"
)

// newTestRouter はモック依存で構成した完全なルーターを生成する。
// userがnilでなければ、セッションCookie付きリクエストはそのユーザーに解決される。
func newTestRouter(t *testing.T, user *model.AuthUser, adminIDs map[string]bool) http.Handler {
	t.Helper()

	resolver := &mockResolver{
		resolveFn: func(ctx context.Context, accessToken, refreshToken string) (*model.AuthUser, *model.Session, error) {
			if accessToken == "" {
				return nil, nil, nil
			}
			return user, nil, nil
		},
	}
	cookies := identity.CookieConfig{}
	collector := metrics.NewCollector(prometheus.NewRegistry())

	rateLimiter := middleware.NewRateLimiter(middleware.DefaultRateLimiterConfig())
	t.Cleanup(rateLimiter.Stop)

	deps := &RouterDeps{
		Logger:               logger.Setup(io.Discard),
		SessionGate:          middleware.NewSessionGate(resolver, cookies, collector),
		RateLimiter:          rateLimiter,
		RequestRecorder:      collector,
		CORSAllowedOrigin:    "http://localhost:3000",
		Sessions:             NewSessions(resolver, cookies),
		AdminAuthorizer:      &mockAdmins{adminIDs: adminIDs},
		AuthClient:           &mockAuthClient{},
		CourseService:        &mockCourseService{},
		LessonService:        &mockLessonService{},
		AdminOpsService:      &mockAdminOpsService{},
		ProgressService:      &mockProgressService{},
		QuestionLister:       &mockQuestionLister{},
		QuestionAdminService: &mockQuestionAdminService{},
		DesignHandler:        newTestDesignHandler(&mockDesignRepo{}),
		HealthHandler:        NewHealthHandler(nil),
		MetricsHandler:       metrics.Handler(prometheus.NewRegistry()),
	}

	return NewRouter(deps)
}

// --- テスト ---

func TestRouter_HealthEndpoint(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("GET /health status = %d, want %d", rec.Code, http.StatusOK)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("failed to parse body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status = %q, want %q", body["status"], "ok")
	}
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("GET /metrics status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRouter_PublicEndpoints_NoSessionRequired(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	paths := []string{
		"/api/designs",
		"/api/practice-questions",
		"/api/admin/courses",
	}
	for _, path := range paths {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}

func TestRouter_ProtectedEndpoints_RequireSession(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	tests := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/api/progress"},
		{http.MethodGet, "/api/admin/auth"},
		{http.MethodPost, "/api/admin/auth"},
		{http.MethodPost, "/api/admin/courses"},
		{http.MethodGet, "/api/admin/lessons"},
		{http.MethodPost, "/api/admin/lessons"},
		{http.MethodPut, "/api/admin/lessons/lesson-1"},
		{http.MethodGet, "/api/admin/practice-questions"},
		{http.MethodPost, "/api/admin/practice-questions"},
		{http.MethodGet, "/api/admin/practice-questions/export"},
		{http.MethodPost, "/api/admin/practice-questions/import"},
		{http.MethodDelete, "/api/admin/practice-questions/q-1"},
		{http.MethodGet, "/api/admin/users"},
		{http.MethodPost, "/api/admin/users/user-1/reset-password"},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(tt.method, tt.path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s status = %d, want %d", tt.method, tt.path, rec.Code, http.StatusUnauthorized)
		}
	}
}

func TestRouter_AdminEndpoints_ForbiddenForNonAdmin(t *testing.T) {
	user := &model.AuthUser{ID: "user-1", Email: "user@example.com"}
	router := newTestRouter(t, user, map[string]bool{})

	req := authedRequest(t, http.MethodGet, "/api/admin/users", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("GET /api/admin/users status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}

func TestRouter_AdminEndpoints_AllowedForAdmin(t *testing.T) {
	admin := &model.AuthUser{ID: "admin-1", Email: "admin@example.com"}
	router := newTestRouter(t, admin, map[string]bool{"admin-1": true})

	paths := []string{
		"/api/admin/users",
		"/api/admin/lessons",
		"/api/admin/practice-questions",
		"/api/admin/practice-questions/export",
	}
	for _, path := range paths {
		req := authedRequest(t, http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("GET %s status = %d, want %d", path, rec.Code, http.StatusOK)
		}
	}
}

func TestRouter_SessionGate_InjectsUserForProtectedRoute(t *testing.T) {
	user := &model.AuthUser{ID: "user-1", Email: "user@example.com"}
	router := newTestRouter(t, user, nil)

	req := authedRequest(t, http.MethodGet, "/api/progress", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("GET /api/progress status = %d, want %d", rec.Code, http.StatusOK)
	}
}

func TestRouter_ResetPasswordRedirect_WithoutSession(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/reset-password", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusTemporaryRedirect {
		t.Fatalf("GET /reset-password status = %d, want %d", rec.Code, http.StatusTemporaryRedirect)
	}
	if loc := rec.Header().Get("Location"); loc != "/learn" {
		t.Errorf("Location = %q, want %q", loc, "/learn")
	}
}

func TestRouter_SetsSecurityAndRequestIDHeaders(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/designs", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("expected X-Content-Type-Options header")
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected X-Request-ID header")
	}
}

func TestRouter_UnknownPath_Returns404(t *testing.T) {
	router := newTestRouter(t, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/unknown", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusNotFound)
	}
}
