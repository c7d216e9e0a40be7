package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shaderhub/shaderhub-api/internal/handler"
	"github.com/shaderhub/shaderhub-api/internal/models"
	"github.com/shaderhub/shaderhub-api/internal/service"
	"github.com/shaderhub/shaderhub-api/pkg/config"
	"github.com/shaderhub/shaderhub-api/pkg/ratelimit"
)

const testSecret = "router-secret"

func newTestEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	limiter := ratelimit.New(100, 100)
	t.Cleanup(limiter.Stop)

	metrics := service.NewMetricsService()
	cfg := &config.Config{Env: config.EnvDevelopment, APIPrefix: "/api/v1", Auth: config.AuthConfig{AdminRole: models.RoleAdmin}}
	return New(Deps{
		Config:  cfg,
		Auth:    service.NewAuthService(nil, service.AuthConfig{SessionSecret: testSecret}),
		Metrics: metrics,
		Limiter: limiter,
		Handlers: Handlers{
			Feed:     handler.NewFeedHandler(nil, nil),
			Objects:  handler.NewObjectHandler(nil, nil),
			Library:  handler.NewLibraryHandler(nil),
			Upload:   handler.NewUploadHandler(nil, 0),
			Profiles: handler.NewProfileHandler(nil),
			Search:   handler.NewSearchHandler(nil),
			Requests: handler.NewRequestHandler(nil),
			Webhooks: handler.NewWebhookHandler(nil),
			Metrics:  handler.NewMetricsHandler(metrics, nil, nil),
		},
	})
}

func token(t *testing.T, userID string, roles ...string) string {
	t.Helper()
	claims := models.SessionClaims{
		UserID: userID,
		Roles:  roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func do(r *gin.Engine, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestProbesAreOpen(t *testing.T) {
	r := newTestEngine(t)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/health", "").Code)
	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/ready", "").Code)

	rec := do(r, http.MethodGet, "/metrics", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestUserRoutesNeedSession(t *testing.T) {
	r := newTestEngine(t)
	for _, route := range [][2]string{
		{http.MethodGet, "/api/v1/library"},
		{http.MethodPost, "/api/v1/library/o1/favourite"},
		{http.MethodGet, "/api/v1/upload/catalog"},
		{http.MethodPost, "/api/v1/upload/objects"},
		{http.MethodDelete, "/api/v1/objects/o1"},
		{http.MethodPost, "/api/v1/objects/o1/visibility"},
		{http.MethodPut, "/api/v1/profiles/me"},
		{http.MethodGet, "/api/v1/search/history"},
	} {
		rec := do(r, route[0], route[1], "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, route[1])
	}
}

func TestRequestsNeedAdminRole(t *testing.T) {
	r := newTestEngine(t)
	assert.Equal(t, http.StatusUnauthorized, do(r, http.MethodGet, "/api/v1/requests", "").Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodGet, "/api/v1/requests", token(t, "u1")).Code)
	assert.Equal(t, http.StatusForbidden, do(r, http.MethodPatch, "/api/v1/requests/r1", token(t, "u1", "member")).Code)
}
