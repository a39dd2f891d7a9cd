package api_test

import (
	"bills/internal/api"
	"bills/internal/api/handler/v1handler"
	mockbilling "bills/internal/billing/mock"
	"bills/internal/config"
	"bills/pkg/domain"
	"bills/pkg/logger"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestMain(m *testing.M) {
	logger.Setup(logger.DevelopmentEnvironment)
	m.Run()
}

func newDeps(t *testing.T) (api.Deps, *mockbilling.MockBilling) {
	t.Helper()
	b := mockbilling.NewMockBilling(gomock.NewController(t))

	return api.Deps{Deps: v1handler.Deps{Billing: b}}, b
}

func defaultOptions() api.Options {
	return api.Options{
		Addr:           ":0",
		RequestTimeout: 5 * time.Second,
		MetricsPath:    "/metrics",
	}
}

func do(h http.Handler, method, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))

	return rec
}

func TestNewOptions(t *testing.T) {
	var cfg config.Config
	cfg.HTTP.Port = 9090
	cfg.HTTP.RequestTimeout = 3 * time.Second
	cfg.HTTP.MetricsPath = "/prom"
	cfg.HTTP.PprofEnabled = true

	opts := api.NewOptions(&cfg)
	require.Equal(t, ":9090", opts.Addr)
	require.Equal(t, 3*time.Second, opts.RequestTimeout)
	require.Equal(t, "/prom", opts.MetricsPath)
	require.True(t, opts.PprofEnabled)
}

func TestRouter_MethodNotAllowed(t *testing.T) {
	deps, _ := newDeps(t)
	r := api.NewRouter(deps, defaultOptions())

	rec := do(r, http.MethodDelete, "/bills")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, "GET, POST", rec.Header().Get("Allow"))
	require.JSONEq(t, `{"type":"about:blank","title":"Method 'DELETE' is not allowed.","status":405}`, rec.Body.String())

	rec = do(r, http.MethodPost, "/")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	require.Equal(t, "GET", rec.Header().Get("Allow"))
}

func TestRouter_NotFound(t *testing.T) {
	deps, _ := newDeps(t)
	r := api.NewRouter(deps, defaultOptions())

	rec := do(r, http.MethodGet, "/bills-minimal")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, v1handler.ProblemContentType, rec.Header().Get("Content-Type"))
	require.JSONEq(t, `{"type":"about:blank","title":"Resource not found.","status":404}`, rec.Body.String())
}

func TestRouter_SpecsAndDocs(t *testing.T) {
	deps, _ := newDeps(t)
	r := api.NewRouter(deps, defaultOptions())

	rec := do(r, http.MethodGet, "/specs/v1.yaml")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "application/yaml", rec.Header().Get("Content-Type"))
	require.Contains(t, rec.Body.String(), "openapi: 3.0.3")
	require.Contains(t, rec.Body.String(), "/bills:")

	rec = do(r, http.MethodGet, "/v1/docs/")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Bills API")
}

func TestRouter_Metrics(t *testing.T) {
	deps, _ := newDeps(t)
	r := api.NewRouter(deps, defaultOptions())

	rec := do(r, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_Pprof(t *testing.T) {
	deps, _ := newDeps(t)

	rec := do(api.NewRouter(deps, defaultOptions()), http.MethodGet, "/debug/pprof/")
	require.Equal(t, http.StatusNotFound, rec.Code)

	opts := defaultOptions()
	opts.PprofEnabled = true
	rec = do(api.NewRouter(deps, opts), http.MethodGet, "/debug/pprof/")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestNewServer_Middlewares(t *testing.T) {
	deps, _ := newDeps(t)

	srv := api.NewServer(deps, defaultOptions())
	require.Equal(t, ":0", srv.Addr)

	// preflight never reaches the router
	rec := do(srv.Handler, http.MethodOptions, "/bills")
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	require.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-Id", "req-1")
	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "req-1", rec.Header().Get("X-Request-Id"))
}

func TestNewServer_RecoversFromPanics(t *testing.T) {
	deps, b := newDeps(t)
	b.EXPECT().List(gomock.Any()).DoAndReturn(func(context.Context) ([]domain.BillSummary, error) {
		panic("nil map")
	})

	rec := do(api.NewServer(deps, defaultOptions()).Handler, http.MethodGet, "/bills")
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.JSONEq(t, `{"type":"about:blank","title":"An unexpected error occurred.","status":500}`, rec.Body.String())
}
