package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leap-learning/leap-server/internal/bootstrap"
	"github.com/leap-learning/leap-server/internal/testutil"
	"github.com/leap-learning/leap-server/pkg/cache"
	"github.com/leap-learning/leap-server/pkg/config"
	"github.com/leap-learning/leap-server/pkg/gemini"
	"github.com/leap-learning/leap-server/pkg/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubModel struct{}

func (stubModel) Generate(context.Context, string) (*gemini.Result, error) {
	return &gemini.Result{Text: "unused"}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Env:              "test",
		JWTSecret:        "access-secret",
		JWTRefreshSecret: "refresh-secret",
		AccessTokenTTL:   time.Hour,
		RefreshTokenTTL:  24 * time.Hour,
		PasswordResetTTL: time.Hour,
		Gemini:           config.GeminiConfig{MaxAttempts: 1, BaseDelay: time.Millisecond},
		YouTube:          config.YouTubeConfig{MaxResults: 3, Concurrency: 2},
		Cache: config.CacheConfig{
			ContentSessionTTL: time.Minute,
			ContentDurableTTL: time.Hour,
			EditorSessionTTL:  time.Minute,
			VideoDraftTTL:     time.Minute,
		},
		Certificate: config.CertificateConfig{Issuer: "LEAP"},
	}
}

func newEngine(t *testing.T) *gin.Engine {
	t.Helper()
	db := testutil.NewDB(t, bootstrap.Models()...)
	engine := gin.New()
	services := Register(engine, Deps{
		Config: testConfig(),
		DB:     db,
		Logger: logger.Discard(),
		Cache:  cache.NewMemoryCache(),
		Model:  stubModel{},
	})
	t.Cleanup(services.Close)
	require.NotNil(t, services.Certificates)
	require.NotNil(t, services.GenerationLimiter)
	return engine
}

func do(engine *gin.Engine, method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)
	return rec
}

func TestReadyReportsDependencies(t *testing.T) {
	engine := newEngine(t)

	rec := do(engine, http.MethodGet, "/ready", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"cache"`)
	assert.Contains(t, rec.Body.String(), `"database"`)

	assert.Equal(t, http.StatusOK, do(engine, http.MethodGet, "/health", "", nil).Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	engine := newEngine(t)

	for _, path := range []string{"/api/courses", "/api/dashboard/courses", "/api/users/me"} {
		rec := do(engine, http.MethodGet, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
}

func TestRegisteredUserReachesDashboard(t *testing.T) {
	engine := newEngine(t)

	rec := do(engine, http.MethodPost, "/api/auth/register", "", gin.H{
		"fullName": "Ada Lovelace",
		"email":    "ada@example.com",
		"password": "analytical-engine",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var body struct {
		Data struct {
			AccessToken string `json:"accessToken"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.Data.AccessToken)

	rec = do(engine, http.MethodGet, "/api/dashboard/courses", body.Data.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = do(engine, http.MethodGet, "/api/courses", body.Data.AccessToken, nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestUserOrIPFallsBackToClientIP(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "10.1.2.3:5555"

	assert.Equal(t, "ip:10.1.2.3", UserOrIP(c))
}
