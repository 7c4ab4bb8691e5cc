package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/odyssey-tours/internal/auth"
	"github.com/odyssey-erp/odyssey-tours/internal/fx"
	jobmetrics "github.com/odyssey-erp/odyssey-tours/internal/jobs"
	"github.com/odyssey-erp/odyssey-tours/internal/reports"
	"github.com/odyssey-erp/odyssey-tours/internal/shared"
)

type fakeWarmer struct {
	results []reports.WarmResult
	err     error
	calls   int
}

func (f *fakeWarmer) Warm(context.Context) ([]reports.WarmResult, error) {
	f.calls++
	return f.results, f.err
}

type fakeRates struct {
	table fx.Table
	err   error
}

func (f fakeRates) Refresh(context.Context) (fx.Table, error) { return f.table, f.err }

type bumper struct{ n int }

func (b *bumper) Bump(context.Context) error { b.n++; return nil }

type cleaner struct{ olderThan time.Duration }

func (c *cleaner) Cleanup(_ context.Context, olderThan time.Duration) error {
	c.olderThan = olderThan
	return nil
}

func TestReportsWarmupTaskPayload(t *testing.T) {
	task, err := NewReportsWarmupTask("manual")
	require.NoError(t, err)
	assert.Equal(t, TaskReportsWarmup, task.Type())

	var payload ReportsWarmupPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "manual", payload.Reason)
}

func TestReportsWarmupJob(t *testing.T) {
	reg := prometheus.NewRegistry()
	metrics := jobmetrics.NewMetrics(reg)
	warmer := &fakeWarmer{results: []reports.WarmResult{
		{Report: reports.ReportMonthlyPL, Count: 10},
		{Report: reports.ReportOutstanding, Count: 4},
	}}
	job := NewReportsWarmupJob(warmer, nil, metrics)

	task, err := NewReportsWarmupTask("schedule")
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 1, warmer.calls)

	count, err := testutil.GatherAndCount(reg, "odyssey_reports_warmed_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestReportsWarmupJobFailure(t *testing.T) {
	boom := errors.New("db down")
	job := NewReportsWarmupJob(&fakeWarmer{err: boom}, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))
	err := job.Handle(context.Background(), asynq.NewTask(TaskReportsWarmup, nil))
	assert.ErrorIs(t, err, boom)
}

func TestReportsWarmupRejectsBadPayload(t *testing.T) {
	job := NewReportsWarmupJob(&fakeWarmer{}, nil, nil)
	err := job.Handle(context.Background(), asynq.NewTask(TaskReportsWarmup, []byte("{")))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestFXRefreshJobBumpsReportCache(t *testing.T) {
	reg := prometheus.NewRegistry()
	cache := &bumper{}
	table := fx.NewTable("EUR", map[string]float64{"USD": 0.9, "GBP": 1.17}, time.Now(), "remote")
	job := NewFXRefreshJob(fakeRates{table: table}, cache, nil, jobmetrics.NewMetrics(reg))

	require.NoError(t, job.Handle(context.Background(), NewFXRefreshTask()))
	assert.Equal(t, 1, cache.n)

	expected := `
# HELP odyssey_fx_rates_loaded Currencies returned by the last FX refresh.
# TYPE odyssey_fx_rates_loaded gauge
odyssey_fx_rates_loaded 3
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "odyssey_fx_rates_loaded"))
}

func TestFXRefreshJobFailureKeepsCache(t *testing.T) {
	cache := &bumper{}
	job := NewFXRefreshJob(fakeRates{err: errors.New("timeout")}, cache, nil, nil)
	assert.Error(t, job.Handle(context.Background(), NewFXRefreshTask()))
	assert.Zero(t, cache.n)
}

func TestIdempotencyCleanupJob(t *testing.T) {
	keys := &cleaner{}
	job := NewIdempotencyCleanupJob(keys, nil, nil)

	task, err := NewIdempotencyCleanupTask(48 * time.Hour)
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	assert.Equal(t, 48*time.Hour, keys.olderThan)

	require.NoError(t, job.Handle(context.Background(), asynq.NewTask(TaskIdempotencyCleanup, nil)))
	assert.Equal(t, defaultKeyRetention, keys.olderThan)
}

type fakeEnqueuer struct {
	err     error
	reasons []string
}

func (f *fakeEnqueuer) EnqueueReportsWarmup(_ context.Context, reason string) (*asynq.TaskInfo, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.reasons = append(f.reasons, reason)
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault}, nil
}

type fakeInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (f fakeInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) { return f.info, f.err }

func newTestRouter(t *testing.T, enqueuer Enqueuer, inspector QueueInspector, perms ...string) (http.Handler, string) {
	t.Helper()
	tokens := auth.NewTokenIssuer("secret", 0)
	guard := auth.Middleware{Tokens: tokens}
	token, _, err := tokens.Issue(auth.User{ID: 9, Permissions: perms})
	require.NoError(t, err)
	router := chi.NewRouter()
	router.Use(guard.Authenticate)
	NewHandler(enqueuer, inspector, guard, nil).MountRoutes(router)
	return router, token
}

func send(router http.Handler, token, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	res := httptest.NewRecorder()
	router.ServeHTTP(res, req)
	return res
}

func TestReportsWarmupEndpoint(t *testing.T) {
	enqueuer := &fakeEnqueuer{}
	router, token := newTestRouter(t, enqueuer, nil, shared.PermJobsRun)

	res := send(router, token, http.MethodPost, "/jobs/reports-warmup")
	require.Equal(t, http.StatusAccepted, res.Code, res.Body.String())
	assert.Contains(t, res.Body.String(), `"task_id":"task-1"`)
	assert.Equal(t, []string{"manual"}, enqueuer.reasons)

	enqueuer.err = asynq.ErrDuplicateTask
	res = send(router, token, http.MethodPost, "/jobs/reports-warmup")
	require.Equal(t, http.StatusAccepted, res.Code)
	assert.Contains(t, res.Body.String(), "already_queued")
}

func TestReportsWarmupEndpointRequiresPermission(t *testing.T) {
	router, token := newTestRouter(t, &fakeEnqueuer{}, nil, shared.PermReportsView)
	res := send(router, token, http.MethodPost, "/jobs/reports-warmup")
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestJobsHealth(t *testing.T) {
	inspector := fakeInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3, Active: 1, Failed: 2}}
	router, token := newTestRouter(t, nil, inspector)

	res := send(router, token, http.MethodGet, "/jobs/health")
	require.Equal(t, http.StatusOK, res.Code)
	var body QueueHealth
	require.NoError(t, json.Unmarshal(res.Body.Bytes(), &body))
	assert.Equal(t, QueueHealth{Queue: QueueDefault, Pending: 3, Active: 1, Failed: 2}, body)

	router, token = newTestRouter(t, nil, fakeInspector{err: errors.New("redis down")})
	res = send(router, token, http.MethodGet, "/jobs/health")
	assert.Equal(t, http.StatusServiceUnavailable, res.Code)
}
