package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/anmicius0/euvat-checker/internal/config"
	"github.com/anmicius0/euvat-checker/internal/metrics"
	"github.com/anmicius0/euvat-checker/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const testToken = "test-token"

func noSleep(ctx context.Context, _ time.Duration) error { return ctx.Err() }

type testEnv struct {
	router   *gin.Engine
	store    *config.JobStore
	manager  *BatchManager
	registry *MockRegistryClient
	lock     *service.BatchLock
	cancel   context.CancelFunc
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())

	registry := new(MockRegistryClient)
	m := metrics.New()
	scheduler := service.NewScheduler(registry, service.SchedulerConfig{
		TimeUnit:    time.Millisecond,
		PacingUnits: 1,
		MaxRetries:  4,
	}, m).WithSleeper(noSleep)

	store := config.NewJobStore()
	lock := &service.BatchLock{}
	manager := NewBatchManager(ctx, store, scheduler, lock)
	cfg := &config.Config{APIToken: testToken}

	env := &testEnv{
		router:   NewRouter(cfg, store, manager, m),
		store:    store,
		manager:  manager,
		registry: registry,
		lock:     lock,
		cancel:   cancel,
	}
	t.Cleanup(func() {
		cancel()
		manager.Wait()
	})
	return env
}

func (e *testEnv) do(method, path, contentType string, body []byte, authorized bool) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, bytes.NewBuffer(body))
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if authorized {
		req.Header.Set("Authorization", "Bearer "+testToken)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) submit(t *testing.T, ids ...string) *httptest.ResponseRecorder {
	t.Helper()
	if ids == nil {
		ids = []string{}
	}
	body, err := json.Marshal(config.BatchRequest{VATNumbers: ids})
	require.NoError(t, err)
	return e.do(http.MethodPost, BatchesPath, "application/json", body, true)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var resp map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func (e *testEnv) waitForStatus(t *testing.T, jobID string, status config.JobStatus) *config.Job {
	t.Helper()
	var job *config.Job
	require.Eventually(t, func() bool {
		var ok bool
		job, ok = e.store.GetJob(jobID)
		return ok && job.Status == status
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, HealthEndpoint, "", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)

	resp := decode(t, w)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, "healthy", resp["status"])
	assert.Equal(t, false, resp["batchRunning"])
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodGet, MetricsEndpoint, "", nil, false)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "go_goroutines")
}

func TestAuthMiddleware(t *testing.T) {
	r := gin.New()
	r.Use(authMiddleware(testToken))
	r.GET("/protected", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	t.Run("Authorized", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer test-token")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Unauthorized - Wrong Token", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/protected", nil)
		req.Header.Set("Authorization", "Bearer wrong-token")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Unauthorized - No Header", func(t *testing.T) {
		req, _ := http.NewRequest("GET", "/protected", nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestBatchRoutesRequireToken(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, BatchesPath, "application/json", []byte(`{"vatNumbers":["DE123456789"]}`), false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(http.MethodGet, BatchesPath+"/job-1", "", nil, false)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	env.registry.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
}

func TestSubmitBatch_Validation(t *testing.T) {
	env := newTestEnv(t)

	t.Run("Empty Body", func(t *testing.T) {
		w := env.do(http.MethodPost, BatchesPath, "application/json", nil, true)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		assert.Equal(t, ErrorCodeInvalidRequestBody, decode(t, w)["error"])
	})

	t.Run("Empty VAT Number List", func(t *testing.T) {
		w := env.submit(t)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
		resp := decode(t, w)
		assert.Equal(t, ErrorCodeValidationFailed, resp["error"])
		assert.Equal(t, MessageBatchEmpty, resp["message"])
	})

	t.Run("Only Blank Lines", func(t *testing.T) {
		w := env.do(http.MethodPost, BatchesPath, "text/plain", []byte("\n  \n\r\n"), true)
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})

	assert.False(t, env.lock.Held())
	env.registry.AssertNotCalled(t, "Verify", mock.Anything, mock.Anything)
}

func TestSubmitBatch_Success(t *testing.T) {
	env := newTestEnv(t)
	env.registry.On("Verify", mock.Anything, "DE123456789").Return(validResult("DE123456789"), nil).Once()
	env.registry.On("Verify", mock.Anything, "FR12345678901").Return(validResult("FR12345678901"), nil).Once()

	w := env.submit(t, "DE123456789", "XX00000001", "FR12345678901", "DE1")
	require.Equal(t, http.StatusAccepted, w.Code)

	resp := decode(t, w)
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, StatusPending, resp["status"])
	jobID, ok := resp["jobId"].(string)
	require.True(t, ok)
	require.NotEmpty(t, jobID)

	validation, ok := resp["validation"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(4), validation["totalVATNumbers"])
	assert.Equal(t, float64(2), validation["wellFormed"])
	assert.Equal(t, float64(2), validation["malformed"])
	assert.Equal(t, float64(1), validation["invalidCountryCodes"])
	assert.Len(t, validation["validCountryCodes"], 28)

	job := env.waitForStatus(t, jobID, config.JobStatusCompleted)
	assert.Equal(t, string(service.OutcomeCompleted), job.Outcome)
	require.Len(t, job.Results, 4)
	assert.Equal(t, "DE", job.Results[0].CountryCode)
	assert.Equal(t, "XX00000001", job.Results[1].VatNumber)
	assert.Equal(t, "FR", job.Results[2].CountryCode)
	assert.Equal(t, "DE1", job.Results[3].VatNumber)
	assert.Equal(t, 2, job.MalformedCount)

	assert.Eventually(t, func() bool { return !env.lock.Held() }, time.Second, 5*time.Millisecond)
	env.registry.AssertExpectations(t)
}

func TestSubmitBatch_PlainText(t *testing.T) {
	env := newTestEnv(t)
	env.registry.On("Verify", mock.Anything, "DE123456789").Return(validResult("DE123456789"), nil).Once()

	w := env.do(http.MethodPost, BatchesPath, "text/plain; charset=utf-8", []byte("DE123456789\r\n\n"), true)
	require.Equal(t, http.StatusAccepted, w.Code)

	jobID := decode(t, w)["jobId"].(string)
	job := env.waitForStatus(t, jobID, config.JobStatusCompleted)
	assert.Equal(t, 1, job.TotalVATNumbers)
	assert.Len(t, job.Results, 1)
}

func TestSubmitBatch_RejectsConcurrentBatch(t *testing.T) {
	env := newTestEnv(t)
	release := make(chan struct{})
	env.registry.On("Verify", mock.Anything, "DE123456789").
		Run(func(mock.Arguments) { <-release }).
		Return(validResult("DE123456789"), nil).Once()

	w := env.submit(t, "DE123456789")
	require.Equal(t, http.StatusAccepted, w.Code)
	jobID := decode(t, w)["jobId"].(string)

	w = env.submit(t, "FR12345678901")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, ErrorCodeBatchInProgress, decode(t, w)["error"])

	health := decode(t, env.do(http.MethodGet, HealthEndpoint, "", nil, false))
	assert.Equal(t, true, health["batchRunning"])

	close(release)
	env.waitForStatus(t, jobID, config.JobStatusCompleted)
	assert.Eventually(t, func() bool { return !env.lock.Held() }, time.Second, 5*time.Millisecond)

	env.registry.On("Verify", mock.Anything, "FR12345678901").Return(validResult("FR12345678901"), nil).Once()
	w = env.submit(t, "FR12345678901")
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestSubmitBatch_CancelledOnShutdown(t *testing.T) {
	env := newTestEnv(t)
	started := make(chan struct{})
	env.registry.On("Verify", mock.Anything, "DE123456789").
		Run(func(args mock.Arguments) {
			close(started)
			<-args.Get(0).(context.Context).Done()
		}).
		Return(nil, context.Canceled).Once()

	w := env.submit(t, "DE123456789", "FR12345678901")
	require.Equal(t, http.StatusAccepted, w.Code)
	jobID := decode(t, w)["jobId"].(string)

	<-started
	env.cancel()
	env.manager.Wait()

	job, ok := env.store.GetJob(jobID)
	require.True(t, ok)
	assert.Equal(t, config.JobStatusFailed, job.Status)
	assert.Equal(t, string(service.OutcomeCancelled), job.Outcome)
	assert.False(t, env.lock.Held())
}

func TestGetBatchStatus(t *testing.T) {
	env := newTestEnv(t)
	env.store.CreateJob("job-1", 3)

	t.Run("Job Found", func(t *testing.T) {
		w := env.do(http.MethodGet, BatchesPath+"/job-1", "", nil, true)
		assert.Equal(t, http.StatusOK, w.Code)

		resp := decode(t, w)
		assert.Equal(t, "job-1", resp["id"])
		assert.Equal(t, "pending", resp["status"])
		assert.Equal(t, float64(3), resp["totalVATNumbers"])
		assert.NotEmpty(t, resp["createdAt"])
	})

	t.Run("Job Not Found", func(t *testing.T) {
		w := env.do(http.MethodGet, BatchesPath+"/job-999", "", nil, true)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.True(t, strings.Contains(decode(t, w)["error"].(string), "job-999"))
	})
}
