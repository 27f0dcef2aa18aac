package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sonr-io/passkey/bridge/tasks"
	"github.com/sonr-io/passkey/client/errors"
	"github.com/sonr-io/passkey/client/rpc"
)

// fakeQueue rejects a second task with an id it already holds, the way
// Redis-backed asynq does.
type fakeQueue struct {
	mu    sync.Mutex
	tasks map[string]*asynq.Task
	types []string
	err   error
}

func newFakeQueue() *fakeQueue {
	return &fakeQueue{tasks: make(map[string]*asynq.Task)}
}

func (q *fakeQueue) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.err != nil {
		return nil, q.err
	}
	q.types = append(q.types, task.Type())

	id, queue := "", tasks.QueueDefault
	for _, opt := range opts {
		switch opt.Type() {
		case asynq.TaskIDOpt:
			id = opt.Value().(string)
		case asynq.QueueOpt:
			queue = opt.Value().(string)
		}
	}
	if id == "" && task.Type() == tasks.TypeUpgradeRetry {
		var payload tasks.UpgradeRetryPayload
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return nil, err
		}
		id = tasks.UpgradeRetryTaskID(payload.Tag)
	}
	if id != "" {
		if _, ok := q.tasks[id]; ok {
			return nil, asynq.ErrTaskIDConflict
		}
		q.tasks[id] = task
	}
	return &asynq.TaskInfo{ID: id, Type: task.Type(), Queue: queue}, nil
}

type fakeRelay struct {
	connected bool
}

func (r fakeRelay) IsConnected(context.Context) bool {
	return r.connected
}

type fakeBundles struct {
	statuses map[string]*rpc.CallsStatus
	err      error
}

func (f *fakeBundles) BundleStatus(ctx context.Context, id string) (*rpc.CallsStatus, error) {
	if f.err != nil {
		return nil, f.err
	}
	status, ok := f.statuses[id]
	if !ok {
		return nil, &rpc.RPCError{Code: -32000, Message: "unknown bundle"}
	}
	return status, nil
}

func serve(e *echo.Echo, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestGetQueueFromPriority(t *testing.T) {
	tests := []struct {
		priority string
		expected string
	}{
		{"critical", "critical"},
		{"high", "critical"},
		{"low", "low"},
		{"", "default"},
		{"unknown", "default"},
	}

	for _, tt := range tests {
		t.Run(tt.priority, func(t *testing.T) {
			assert.Equal(t, tt.expected, GetQueueFromPriority(tt.priority))
		})
	}
}

func TestUpgradeRetryHandler(t *testing.T) {
	queue := newFakeQueue()
	e := echo.New()
	e.POST("/accounts/:tag/upgrade-retry", NewAccountHandlers(queue, nil).UpgradeRetryHandler)

	rec := serve(e, http.MethodPost, "/accounts/alice/upgrade-retry")
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp EnqueueResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "enqueued", resp.Status)
	assert.Equal(t, tasks.UpgradeRetryTaskID("alice"), resp.TaskID)

	rec = serve(e, http.MethodPost, "/accounts/alice/upgrade-retry")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "already_queued", resp.Status)

	rec = serve(e, http.MethodPost, "/accounts/bob/upgrade-retry?priority=low")
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "low", resp.Queue)

	assert.Len(t, queue.tasks, 2)
}

func TestUpgradeRetryHandler_QueueDown(t *testing.T) {
	queue := newFakeQueue()
	queue.err = fmt.Errorf("dial tcp: connection refused")
	e := echo.New()
	e.POST("/accounts/:tag/upgrade-retry", NewAccountHandlers(queue, nil).UpgradeRetryHandler)

	rec := serve(e, http.MethodPost, "/accounts/alice/upgrade-retry")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestBundleStatusHandler(t *testing.T) {
	hash := common.HexToHash("0xaa")
	source := &fakeBundles{statuses: map[string]*rpc.CallsStatus{
		"0xdone":    {ID: "0xdone", Status: rpc.StatusSuccess, TransactionHash: &hash},
		"0xpending": {ID: "0xpending", Status: rpc.StatusPending},
	}}
	e := echo.New()
	e.GET("/bundles/:id", NewBundleHandlers(source).StatusHandler)

	tests := []struct {
		name     string
		id       string
		code     int
		status   rpc.StatusCode
		terminal bool
		hash     string
	}{
		{name: "confirmed", id: "0xdone", code: http.StatusOK, status: rpc.StatusSuccess, terminal: true, hash: hash.Hex()},
		{name: "pending", id: "0xpending", code: http.StatusOK, status: rpc.StatusPending},
		{name: "unknown", id: "0xmissing", code: http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, http.MethodGet, "/bundles/"+tt.id)
			require.Equal(t, tt.code, rec.Code)
			if tt.code != http.StatusOK {
				var resp ErrorResponse
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
				assert.Equal(t, "rpc", resp.Kind)
				assert.True(t, resp.Retryable)
				return
			}

			var resp BundleResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.id, resp.ID)
			assert.Equal(t, tt.status, resp.Status)
			assert.Equal(t, tt.terminal, resp.Terminal)
			assert.Equal(t, tt.hash, resp.TransactionHash)
		})
	}
}

func TestHealthChecker(t *testing.T) {
	tests := []struct {
		name      string
		queueErr  error
		connected bool
		checked   bool
		code      int
		status    string
		ready     bool
	}{
		{name: "starting", code: http.StatusOK, status: "starting"},
		{name: "healthy", checked: true, connected: true, code: http.StatusOK, status: "healthy", ready: true},
		{name: "relay down", checked: true, code: http.StatusServiceUnavailable, status: "unhealthy"},
		{
			name:      "redis down",
			checked:   true,
			connected: true,
			queueErr:  fmt.Errorf("redis: connection refused"),
			code:      http.StatusServiceUnavailable,
			status:    "unhealthy",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			queue := newFakeQueue()
			queue.err = tt.queueErr
			hc := NewHealthChecker(queue, fakeRelay{connected: tt.connected})
			if tt.checked {
				hc.Check(context.Background())
			}

			e := echo.New()
			e.GET("/health", hc.HealthCheckHandler)
			e.GET("/ready", hc.ReadinessHandler)

			rec := serve(e, http.MethodGet, "/health")
			require.Equal(t, tt.code, rec.Code)
			var status HealthStatus
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
			assert.Equal(t, tt.status, status.Status)

			rec = serve(e, http.MethodGet, "/ready")
			assert.Equal(t, tt.ready, rec.Code == http.StatusOK)
			assert.Equal(t, tt.ready, hc.IsReady())
		})
	}
}

func TestHealthChecker_ProbesQueue(t *testing.T) {
	queue := newFakeQueue()
	hc := NewHealthChecker(queue, fakeRelay{connected: true})
	hc.Check(context.Background())

	assert.Equal(t, []string{tasks.TypeHealthCheck}, queue.types)
	assert.Equal(t, "healthy", hc.GetStatus().Dependencies["redis"])
}

func TestWriteError_RegisteredCode(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
		wantCode   uint32
	}{
		{
			name:       "registered wallet error",
			err:        fmt.Errorf("swap: %w", errors.ErrSimulationFailed),
			wantStatus: http.StatusUnprocessableEntity,
			wantKind:   "simulation_failed",
			wantCode:   uint32(errors.CodeSimulationFailed),
		},
		{
			name:       "plain error",
			err:        fmt.Errorf("boom"),
			wantStatus: http.StatusInternalServerError,
			wantKind:   "unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			c := echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
			require.NoError(t, writeError(c, tt.err))

			assert.Equal(t, tt.wantStatus, rec.Code)
			var body ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantKind, body.Kind)
			assert.Equal(t, tt.wantCode, body.Code)
		})
	}
}
