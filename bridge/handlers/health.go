package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"

	"github.com/sonr-io/passkey/bridge/tasks"
)

// Enqueuer puts tasks on the queue. *asynq.Client implements it.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// RelayProbe reports whether the relay answers for the configured chain.
type RelayProbe interface {
	IsConnected(ctx context.Context) bool
}

// HealthStatus represents the health status of the service
type HealthStatus struct {
	Status       string            `json:"status"`
	Timestamp    string            `json:"timestamp"`
	Uptime       string            `json:"uptime"`
	Dependencies map[string]string `json:"dependencies"`
}

// HealthChecker manages health and readiness checks
type HealthChecker struct {
	startTime time.Time
	queue     Enqueuer
	relay     RelayProbe

	mu           sync.RWMutex
	checked      bool
	queueHealthy bool
	relayHealthy bool
}

// NewHealthChecker creates a health checker. Call Run to start periodic
// checks, or Check to run one.
func NewHealthChecker(queue Enqueuer, relay RelayProbe) *HealthChecker {
	return &HealthChecker{
		startTime: time.Now(),
		queue:     queue,
		relay:     relay,
	}
}

// Run checks dependencies every interval until ctx is done.
func (hc *HealthChecker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	hc.Check(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			hc.Check(ctx)
		}
	}
}

// Check probes every dependency once.
func (hc *HealthChecker) Check(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	queueHealthy := hc.checkQueue(ctx)
	relayHealthy := hc.relay != nil && hc.relay.IsConnected(ctx)

	hc.mu.Lock()
	hc.checked = true
	hc.queueHealthy = queueHealthy
	hc.relayHealthy = relayHealthy
	hc.mu.Unlock()
}

// checkQueue verifies Redis connectivity by enqueueing a probe task
func (hc *HealthChecker) checkQueue(ctx context.Context) bool {
	if hc.queue == nil {
		return false
	}
	_, err := hc.queue.EnqueueContext(ctx, asynq.NewTask(tasks.TypeHealthCheck, nil),
		asynq.Queue(tasks.QueueLow),
		asynq.MaxRetry(0),
		asynq.Retention(time.Second))
	return err == nil
}

// IsReady reports whether both the queue and the relay are reachable.
func (hc *HealthChecker) IsReady() bool {
	hc.mu.RLock()
	defer hc.mu.RUnlock()
	return hc.checked && hc.queueHealthy && hc.relayHealthy
}

// GetStatus returns the current health status
func (hc *HealthChecker) GetStatus() HealthStatus {
	hc.mu.RLock()
	defer hc.mu.RUnlock()

	status := HealthStatus{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Uptime:    time.Since(hc.startTime).Round(time.Second).String(),
		Dependencies: map[string]string{
			"redis": healthWord(hc.queueHealthy),
			"relay": healthWord(hc.relayHealthy),
		},
	}
	switch {
	case !hc.checked:
		status.Status = "starting"
	case !hc.queueHealthy || !hc.relayHealthy:
		status.Status = "unhealthy"
	}
	return status
}

func healthWord(ok bool) string {
	if ok {
		return "healthy"
	}
	return "unhealthy"
}

// HealthCheckHandler returns health status (liveness probe)
func (hc *HealthChecker) HealthCheckHandler(c echo.Context) error {
	status := hc.GetStatus()
	if status.Status == "unhealthy" {
		return c.JSON(http.StatusServiceUnavailable, status)
	}
	return c.JSON(http.StatusOK, status)
}

// ReadinessHandler returns readiness status (readiness probe)
func (hc *HealthChecker) ReadinessHandler(c echo.Context) error {
	if !hc.IsReady() {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"ready":  "false",
			"reason": "service not ready",
		})
	}
	return c.JSON(http.StatusOK, map[string]string{"ready": "true"})
}
