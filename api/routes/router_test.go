package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	goredis "github.com/redis/go-redis/v9"

	"github.com/angelmondragon/garage-backend/internal/inventory"
	"github.com/angelmondragon/garage-backend/internal/reports"
	pkgAuth "github.com/angelmondragon/garage-backend/pkg/auth"
	"github.com/angelmondragon/garage-backend/pkg/config"
	"github.com/angelmondragon/garage-backend/pkg/enums"
	"github.com/angelmondragon/garage-backend/pkg/logger"
	"github.com/angelmondragon/garage-backend/pkg/metrics"
)

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

type stubSessions struct{}

func (stubSessions) HasSession(ctx context.Context, accessID string) (bool, error) {
	return true, nil
}

type memoryRedis struct {
	mu     sync.Mutex
	values map[string]string
	counts map[string]int64
}

func newMemoryRedis() *memoryRedis {
	return &memoryRedis{values: map[string]string{}, counts: map[string]int64{}}
}

func (m *memoryRedis) Ping(context.Context) error { return nil }

func (m *memoryRedis) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.values[key]; ok {
		return v, nil
	}
	return "", goredis.Nil
}

func (m *memoryRedis) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.values[key]; ok {
		return false, nil
	}
	m.values[key], _ = value.(string)
	return true, nil
}

func (m *memoryRedis) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key], _ = value.(string)
	return nil
}

func (m *memoryRedis) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, key := range keys {
		delete(m.values, key)
	}
	return nil
}

func (m *memoryRedis) IdempotencyKey(scope, id string) string {
	return "idem:" + scope + ":" + id
}

func (m *memoryRedis) RateLimitKey(scope string) string {
	return "rl:" + scope
}

func (m *memoryRedis) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.counts[key]++
	return m.counts[key], nil
}

type stubReports struct {
	mu      sync.Mutex
	created int
}

func (s *stubReports) Create(ctx context.Context, input reports.CreateInput) (*reports.ReportDTO, error) {
	s.mu.Lock()
	s.created++
	s.mu.Unlock()
	return &reports.ReportDTO{ID: uuid.New(), VehicleID: input.VehicleID, Status: enums.ReportStatusPending}, nil
}

func (s *stubReports) Get(ctx context.Context, id uuid.UUID) (*reports.ReportDTO, error) {
	return &reports.ReportDTO{ID: id, Status: enums.ReportStatusInProgress}, nil
}

func (s *stubReports) List(ctx context.Context, input reports.ListInput) (*reports.ListResult, error) {
	return &reports.ListResult{Items: []reports.ReportDTO{}}, nil
}

func (s *stubReports) Update(ctx context.Context, id uuid.UUID, input reports.UpdateInput) (*reports.ReportDTO, error) {
	return &reports.ReportDTO{ID: id}, nil
}

func (s *stubReports) Delete(ctx context.Context, id uuid.UUID) error { return nil }

func (s *stubReports) ListTasks(ctx context.Context, id uuid.UUID) ([]reports.TaskDTO, error) {
	return []reports.TaskDTO{}, nil
}

func (s *stubReports) ListParts(ctx context.Context, id uuid.UUID) ([]inventory.PartUsageDTO, error) {
	return []inventory.PartUsageDTO{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{Secret: "secret", Issuer: "garage", ExpirationMinutes: 10},
	}
}

func newTestRouter(t *testing.T, deps Dependencies) (http.Handler, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	deps.Config = testConfig()
	deps.Logger = logger.Nop()
	deps.Registry = reg
	deps.HTTP = metrics.NewHTTPMetrics(reg)
	deps.Sessions = stubSessions{}
	if deps.DB == nil {
		deps.DB = stubPinger{}
	}
	return NewRouter(deps), reg
}

func bearer(t *testing.T, cfg config.JWTConfig) string {
	t.Helper()
	token, err := pkgAuth.MintAccessToken(cfg, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		Role:   enums.UserRoleStaff,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return "Bearer " + token
}

func TestHealthRoutes(t *testing.T) {
	router, _ := newTestRouter(t, Dependencies{Redis: newMemoryRedis()})

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected live 200 got %d", resp.Code)
	}
	if resp.Header().Get("X-Garage-Env") != "test" {
		t.Fatalf("expected env header")
	}

	down, _ := newTestRouter(t, Dependencies{DB: stubPinger{err: context.DeadlineExceeded}})
	resp = httptest.NewRecorder()
	down.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected ready 503 when the database is down, got %d", resp.Code)
	}
}

func TestResourceRoutesRequireAuth(t *testing.T) {
	router, _ := newTestRouter(t, Dependencies{})
	for _, path := range []string{"/api/v1/owners", "/api/v1/reports", "/api/v1/inventory/low-stock", "/api/v1/users/me"} {
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, path, nil))
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 got %d", path, resp.Code)
		}
	}
}

func TestReportDetailRoute(t *testing.T) {
	router, _ := newTestRouter(t, Dependencies{Reports: &stubReports{}})
	id := uuid.New()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/"+id.String(), nil)
	req.Header.Set("Authorization", bearer(t, testConfig().JWT))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
	var envelope struct {
		Data reports.ReportDTO `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if envelope.Data.ID != id {
		t.Fatalf("expected report %s got %s", id, envelope.Data.ID)
	}
}

func TestReportCreateIsIdempotent(t *testing.T) {
	svc := &stubReports{}
	router, _ := newTestRouter(t, Dependencies{Reports: svc, Redis: newMemoryRedis()})
	token := bearer(t, testConfig().JWT)
	body := `{"vehicle_id":"` + uuid.NewString() + `","tasks":[],"parts":[]}`

	missingKey := httptest.NewRequest(http.MethodPost, "/api/v1/reports", strings.NewReader(body))
	missingKey.Header.Set("Authorization", token)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, missingKey)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without Idempotency-Key, got %d", resp.Code)
	}

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", strings.NewReader(body))
		req.Header.Set("Authorization", token)
		req.Header.Set("Idempotency-Key", "report-1")
		resp := httptest.NewRecorder()
		router.ServeHTTP(resp, req)
		if resp.Code != http.StatusCreated {
			t.Fatalf("attempt %d: expected 201 got %d: %s", i, resp.Code, resp.Body.String())
		}
	}
	if svc.created != 1 {
		t.Fatalf("expected a single report to be created, got %d", svc.created)
	}
}

func TestMetricsEndpointExposesRequests(t *testing.T) {
	router, _ := newTestRouter(t, Dependencies{})
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health/live", nil))

	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if !strings.Contains(resp.Body.String(), `http_requests_total{method="GET",route="/health/live",status="200"} 1`) {
		t.Fatalf("expected live check in metrics output:\n%s", resp.Body.String())
	}
}
