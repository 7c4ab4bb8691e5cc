package app

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-tours/internal/auth"
	"github.com/odyssey-erp/odyssey-tours/internal/observability"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "test-secret")
	t.Setenv("FX_RATES", "usd:0.9,GBP:1.2")
	t.Setenv("FX_BASE_CURRENCY", "eur")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 12*time.Hour, cfg.JWTTTL)
	assert.Equal(t, 10*time.Minute, cfg.ReportCacheTTL)
	assert.Equal(t, "EUR", cfg.FXBaseCurrency)
	assert.Equal(t, 1.2, cfg.FXRates["GBP"])
	assert.Equal(t, "15 1 * * *", cfg.ReportWarmupCron)
	assert.False(t, cfg.IsProduction())
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoadConfigValidation(t *testing.T) {
	t.Setenv("JWT_SECRET", "short")
	t.Setenv("APP_ENV", "production")
	_, err := LoadConfig()
	assert.ErrorContains(t, err, "at least 32 characters")

	t.Setenv("APP_ENV", "development")
	t.Setenv("FX_BASE_CURRENCY", "EURO")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "not an ISO code")

	t.Setenv("FX_BASE_CURRENCY", "EUR")
	t.Setenv("FX_RATES", "USD:-1")
	_, err = LoadConfig()
	assert.ErrorContains(t, err, "must be positive")
}

type pingHandler struct{}

func (pingHandler) MountRoutes(r chi.Router) {
	r.Get("/ping", func(w http.ResponseWriter, _ *http.Request) { w.WriteHeader(http.StatusNoContent) })
}

func newTestRouter(t *testing.T, limit int) (http.Handler, *auth.TokenIssuer) {
	t.Helper()
	tokens := auth.NewTokenIssuer("secret", time.Hour)
	router := NewRouter(RouterParams{
		Config:   &Config{AppEnv: "development", RateLimitPerMinute: limit, AppRequestTimeout: time.Second},
		Guard:    auth.Middleware{Tokens: tokens},
		Metrics:  observability.NewMetrics(),
		Handlers: []RouteMounter{pingHandler{}},
	})
	return router, tokens
}

func do(router http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.RemoteAddr = "10.0.0.1:1234"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestRouterPublicAndProtectedRoutes(t *testing.T) {
	router, tokens := newTestRouter(t, 100)

	res := do(router, "/healthz", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.JSONEq(t, `{"status":"ok"}`, res.Body.String())
	assert.Equal(t, "DENY", res.Header().Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", res.Header().Get("X-Content-Type-Options"))

	res = do(router, "/metrics", "")
	require.Equal(t, http.StatusOK, res.Code)
	assert.Contains(t, res.Body.String(), "odyssey_http_requests_total")

	res = do(router, "/ping", "")
	assert.Equal(t, http.StatusUnauthorized, res.Code)

	token, _, err := tokens.Issue(auth.User{ID: 1})
	require.NoError(t, err)
	res = do(router, "/ping", token)
	assert.Equal(t, http.StatusNoContent, res.Code)

	res = do(router, "/nowhere", token)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestRouterRateLimit(t *testing.T) {
	router, _ := newTestRouter(t, 2)
	assert.Equal(t, http.StatusOK, do(router, "/healthz", "").Code)
	assert.Equal(t, http.StatusOK, do(router, "/healthz", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(router, "/healthz", "").Code)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, parseLevel("warning"))
	assert.Equal(t, slog.LevelError, parseLevel(" error "))
	assert.Equal(t, slog.LevelInfo, parseLevel("verbose"))
}
