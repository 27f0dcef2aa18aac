package handlers

import (
	stderrors "errors"
	"net/http"

	"cosmossdk.io/log"
	"github.com/hibiken/asynq"
	"github.com/labstack/echo/v4"

	"github.com/sonr-io/passkey/bridge/tasks"
)

// EnqueueResponse acknowledges a queued task.
type EnqueueResponse struct {
	TaskID string `json:"task_id"`
	Queue  string `json:"queue"`
	Status string `json:"status"`
}

// AccountHandlers serves the account endpoints.
type AccountHandlers struct {
	queue  Enqueuer
	logger log.Logger
}

// NewAccountHandlers returns handlers that enqueue onto queue.
func NewAccountHandlers(queue Enqueuer, logger log.Logger) *AccountHandlers {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &AccountHandlers{queue: queue, logger: logger}
}

// GetQueueFromPriority maps a request priority to an asynq queue.
func GetQueueFromPriority(priority string) string {
	switch priority {
	case "critical", "high":
		return tasks.QueueCritical
	case "low":
		return tasks.QueueLow
	default:
		return tasks.QueueDefault
	}
}

// UpgradeRetryHandler enqueues an upgrade retry for :tag. At most one retry
// per tag is queued; a duplicate answers 409.
func (h *AccountHandlers) UpgradeRetryHandler(c echo.Context) error {
	tag := c.Param("tag")
	task, err := tasks.NewUpgradeRetryTask(tag)
	if err != nil {
		return badRequest(c, err.Error())
	}

	opts := []asynq.Option{}
	if priority := c.QueryParam("priority"); priority != "" {
		opts = append(opts, asynq.Queue(GetQueueFromPriority(priority)))
	}

	info, err := h.queue.EnqueueContext(c.Request().Context(), task, opts...)
	switch {
	case stderrors.Is(err, asynq.ErrTaskIDConflict):
		return c.JSON(http.StatusConflict, EnqueueResponse{
			TaskID: tasks.UpgradeRetryTaskID(tag),
			Status: "already_queued",
		})
	case err != nil:
		h.logger.Error("enqueue upgrade retry failed", "tag", tag, "error", err)
		return c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "failed to enqueue task", Retryable: true})
	}

	h.logger.Info("upgrade retry queued", "tag", tag, "task", info.ID, "queue", info.Queue)
	return c.JSON(http.StatusAccepted, EnqueueResponse{TaskID: info.ID, Queue: info.Queue, Status: "enqueued"})
}
