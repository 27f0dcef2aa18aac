package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/sonr-io/passkey/bridge/handlers"
	"github.com/sonr-io/passkey/client/rpc"
)

type mockQueue struct {
	tasks []*asynq.Task
}

func (m *mockQueue) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	m.tasks = append(m.tasks, task)
	return &asynq.TaskInfo{ID: "test-task-id", Type: task.Type(), Queue: "critical"}, nil
}

type mockRelay struct{}

func (mockRelay) IsConnected(context.Context) bool { return true }

func (mockRelay) BundleStatus(ctx context.Context, id string) (*rpc.CallsStatus, error) {
	return &rpc.CallsStatus{ID: id, Status: rpc.StatusPending}, nil
}

type ServerTestSuite struct {
	suite.Suite
	queue  *mockQueue
	server *Server
}

func (s *ServerTestSuite) SetupTest() {
	s.queue = &mockQueue{}
	s.server = NewServer(&Config{}, Dependencies{
		Queue:   s.queue,
		Relay:   mockRelay{},
		Bundles: mockRelay{},
	})
}

func (s *ServerTestSuite) do(method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	s.server.Echo().ServeHTTP(rec, req)
	return rec
}

func (s *ServerTestSuite) TestHealthStarting() {
	rec := s.do(http.MethodGet, "/health")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Header().Get("Content-Type"), "application/json")

	var status handlers.HealthStatus
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &status))
	s.Equal("starting", status.Status)

	s.Equal(http.StatusServiceUnavailable, s.do(http.MethodGet, "/ready").Code)
}

func (s *ServerTestSuite) TestHealthAfterCheck() {
	s.server.Health().Check(context.Background())

	rec := s.do(http.MethodGet, "/health")
	s.Require().Equal(http.StatusOK, rec.Code)
	s.Equal(http.StatusOK, s.do(http.MethodGet, "/ready").Code)
}

func (s *ServerTestSuite) TestUpgradeRetryRoute() {
	rec := s.do(http.MethodPost, "/accounts/alice/upgrade-retry")
	s.Require().Equal(http.StatusAccepted, rec.Code)
	s.Require().Len(s.queue.tasks, 1)
	s.Equal("account:upgrade:retry", s.queue.tasks[0].Type())
}

func (s *ServerTestSuite) TestBundleRoute() {
	rec := s.do(http.MethodGet, "/bundles/0xabc")
	s.Require().Equal(http.StatusOK, rec.Code)

	var resp handlers.BundleResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal("0xabc", resp.ID)
	s.False(resp.Terminal)
}

func (s *ServerTestSuite) TestUnknownRoute() {
	s.Equal(http.StatusNotFound, s.do(http.MethodGet, "/vault/generate").Code)
	s.Equal(http.StatusMethodNotAllowed, s.do(http.MethodGet, "/accounts/alice/upgrade-retry").Code)
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func TestShutdownBeforeStart(t *testing.T) {
	s := NewServer(&Config{}, Dependencies{})
	require.NotNil(t, s.Echo())
	assert.NoError(t, s.Shutdown(context.Background()))
}
