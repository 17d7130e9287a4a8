package server_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"poem/internal/auth"
	"poem/internal/handler"
	"poem/internal/metrics"
	"poem/internal/model"
	"poem/internal/server"
	"poem/internal/service"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"
)

type MockPoetryService struct {
	mock.Mock
}

func (m *MockPoetryService) GetRandomPoetry(ctx context.Context) (*service.PoetryResponse, error) {
	args := m.Called(ctx)
	resp, _ := args.Get(0).(*service.PoetryResponse)
	return resp, args.Error(1)
}

func (m *MockPoetryService) GetPoemByID(ctx context.Context, id string) (*service.PoetryResponse, error) {
	args := m.Called(ctx, id)
	resp, _ := args.Get(0).(*service.PoetryResponse)
	return resp, args.Error(1)
}

func (m *MockPoetryService) SearchByTitle(ctx context.Context, title string, page, size int) (service.PoetryPage, error) {
	res := m.Called(ctx, title, page, size)
	return res.Get(0).(service.PoetryPage), res.Error(1)
}

func (m *MockPoetryService) SearchByAuthor(ctx context.Context, author string, page, size int) (service.PoetryPage, error) {
	res := m.Called(ctx, author, page, size)
	return res.Get(0).(service.PoetryPage), res.Error(1)
}

func (m *MockPoetryService) SearchByDynasty(ctx context.Context, dynasty string, page, size int) (service.PoetryPage, error) {
	res := m.Called(ctx, dynasty, page, size)
	return res.Get(0).(service.PoetryPage), res.Error(1)
}

func (m *MockPoetryService) SearchByType(ctx context.Context, poemType string, page, size int) (service.PoetryPage, error) {
	res := m.Called(ctx, poemType, page, size)
	return res.Get(0).(service.PoetryPage), res.Error(1)
}

func (m *MockPoetryService) SearchByTag(ctx context.Context, tagName string, page, size int) (service.PoetryPage, error) {
	res := m.Called(ctx, tagName, page, size)
	return res.Get(0).(service.PoetryPage), res.Error(1)
}

func (m *MockPoetryService) SearchByFormat(ctx context.Context, format string, page, size int) (service.PoetryPage, error) {
	res := m.Called(ctx, format, page, size)
	return res.Get(0).(service.PoetryPage), res.Error(1)
}

func (m *MockPoetryService) FullTextSearch(ctx context.Context, keyword string, page, size int) (service.PoetryPage, error) {
	res := m.Called(ctx, keyword, page, size)
	return res.Get(0).(service.PoetryPage), res.Error(1)
}

func (m *MockPoetryService) SavePoem(ctx context.Context, poem *model.Poem) (*service.PoetryResponse, error) {
	args := m.Called(ctx, poem)
	resp, _ := args.Get(0).(*service.PoetryResponse)
	return resp, args.Error(1)
}

func (m *MockPoetryService) DeletePoem(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

var _ handler.PoetryService = (*MockPoetryService)(nil)

type pinger struct{ err error }

func (p pinger) PingContext(context.Context) error { return p.err }

const secret = "test-secret-key"

func setupEngine(t *testing.T, db server.Pinger, limiter *rate.Limiter) (*gin.Engine, *MockPoetryService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc := new(MockPoetryService)
	if limiter == nil {
		limiter = rate.NewLimiter(rate.Inf, 1)
	}
	engine := server.NewEngine(server.Deps{
		Poetry:  svc,
		Tokens:  auth.NewTokenManager(secret, time.Hour),
		Metrics: metrics.New("poem"),
		Limiter: limiter,
		DB:      db,
		Logger:  log.New(io.Discard),
	})
	return engine, svc
}

func get(engine *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	return resp
}

func TestAPIDocs_JSON(t *testing.T) {
	engine, _ := setupEngine(t, nil, nil)

	resp := get(engine, "/v3/api-docs")

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Header().Get("Content-Type"), "application/json")

	var body struct {
		OpenAPI string `json:"openapi"`
		Info    struct {
			Title       string `json:"title"`
			Version     string `json:"version"`
			Description string `json:"description"`
		} `json:"info"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "3.0.1", body.OpenAPI)
	assert.Equal(t, "Poem API", body.Info.Title)
	assert.Equal(t, "1.0", body.Info.Version)
	assert.Equal(t, "API documentation for Poem Management System", body.Info.Description)
}

func TestAPIDocs_YAML(t *testing.T) {
	engine, _ := setupEngine(t, nil, nil)

	resp := get(engine, "/v3/api-docs.yaml")

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "Poem API")
}

func TestSwaggerUI_ServesSameDocument(t *testing.T) {
	engine, _ := setupEngine(t, nil, nil)

	index := get(engine, "/swagger-ui/index.html")
	assert.Equal(t, http.StatusOK, index.Code)

	doc := get(engine, "/swagger-ui/doc.json")
	assert.Equal(t, http.StatusOK, doc.Code)
	assert.JSONEq(t, get(engine, "/v3/api-docs").Body.String(), doc.Body.String())
}

func TestHealth(t *testing.T) {
	up, _ := setupEngine(t, pinger{}, nil)
	assert.Equal(t, http.StatusOK, get(up, "/health").Code)

	down, _ := setupEngine(t, pinger{err: errors.New("connection refused")}, nil)
	resp := get(down, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.JSONEq(t, `{"status":"DOWN"}`, resp.Body.String())
}

func TestMetrics_RecordsRoute(t *testing.T) {
	engine, svc := setupEngine(t, nil, nil)
	svc.On("SearchByDynasty", mock.Anything, "唐", 0, 10).Return(service.PoetryPage{}, nil)

	require.Equal(t, http.StatusOK, get(engine, "/api/poetry/dynasty/%E5%94%90").Code)

	resp := get(engine, "/metrics")
	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), `route="/api/poetry/dynasty/:dynasty"`)
}

func TestAdminRoutes_RequireToken(t *testing.T) {
	engine, svc := setupEngine(t, nil, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/poetry/1", nil)
	resp := httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusUnauthorized, resp.Code)

	svc.On("DeletePoem", mock.Anything, "1").Return(nil)
	token, err := auth.NewTokenManager(secret, time.Hour).GenerateToken("editor", auth.RoleAdmin)
	require.NoError(t, err)

	req = httptest.NewRequest(http.MethodDelete, "/api/poetry/1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp = httptest.NewRecorder()
	engine.ServeHTTP(resp, req)
	assert.Equal(t, http.StatusNoContent, resp.Code)
	svc.AssertExpectations(t)
}

func TestPublicRoutes_RateLimited(t *testing.T) {
	engine, svc := setupEngine(t, nil, rate.NewLimiter(0, 1))
	svc.On("GetRandomPoetry", mock.Anything).Return(nil, nil)

	assert.Equal(t, http.StatusNotFound, get(engine, "/api/poetry/random").Code)

	resp := get(engine, "/api/poetry/random")
	assert.Equal(t, http.StatusTooManyRequests, resp.Code)
	assert.JSONEq(t, `{"error":"Too many requests"}`, resp.Body.String())

	// служебные маршруты не ограничены
	assert.Equal(t, http.StatusOK, get(engine, "/v3/api-docs").Code)
}
