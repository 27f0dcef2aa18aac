package tasks

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"time"

	"cosmossdk.io/log"
	"github.com/hibiken/asynq"

	"github.com/sonr-io/passkey/client/account"
	"github.com/sonr-io/passkey/client/errors"
)

// UpgradeRetryMaxRetry is how often asynq re-runs a retryable failure.
const UpgradeRetryMaxRetry = 8

// ╭─────────────────────────────────────────────────────────╮
// │                      Processor                          │
// ╰─────────────────────────────────────────────────────────╯

// Upgrader completes deferred account upgrades.
type Upgrader interface {
	RetryUpgrade(ctx context.Context, tag string) (*account.Account, error)
}

// UpgradeRetryProcessor implements asynq.Handler for deferred upgrades.
type UpgradeRetryProcessor struct {
	upgrader Upgrader
	logger   log.Logger
}

// NewUpgradeRetryProcessor returns a processor backed by upgrader.
func NewUpgradeRetryProcessor(upgrader Upgrader, logger log.Logger) *UpgradeRetryProcessor {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	return &UpgradeRetryProcessor{
		upgrader: upgrader,
		logger:   logger.With(log.ModuleKey, "tasks"),
	}
}

// ╭─────────────────────────────────────────────────────────╮
// │                      Payload                            │
// ╰─────────────────────────────────────────────────────────╯

// UpgradeRetryPayload names the account to upgrade.
type UpgradeRetryPayload struct {
	Tag string `json:"tag"`
}

// UpgradeRetryTaskID is the task id of tag's retry. Enqueueing a second
// retry for the same tag while one is queued fails with
// asynq.ErrTaskIDConflict.
func UpgradeRetryTaskID(tag string) string {
	return TypeUpgradeRetry + ":" + tag
}

// NewUpgradeRetryTask creates a retry task for tag.
func NewUpgradeRetryTask(tag string) (*asynq.Task, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, fmt.Errorf("account tag is required")
	}
	payload, err := json.Marshal(UpgradeRetryPayload{Tag: tag})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeUpgradeRetry, payload,
		asynq.TaskID(UpgradeRetryTaskID(tag)),
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(UpgradeRetryMaxRetry),
		asynq.Timeout(KRequestTimeout),
		asynq.Retention(24*time.Hour),
	), nil
}

// ╭───────────────────────────────────────────────────────╮
// │                      Handler                          │
// ╰───────────────────────────────────────────────────────╯

// ProcessTask retries the upgrade. Failures the relay may recover from are
// returned for asynq to retry; everything else skips retry.
func (p *UpgradeRetryProcessor) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload UpgradeRetryPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}
	if payload.Tag == "" {
		return fmt.Errorf("empty account tag: %w", asynq.SkipRetry)
	}

	acct, err := p.upgrader.RetryUpgrade(ctx, payload.Tag)
	switch {
	case err == nil:
		p.logger.Info("account upgraded", "tag", payload.Tag, "address", acct.Address, "delegation", acct.Delegation)
		return nil
	case stderrors.Is(err, errors.ErrAlreadyUpgraded):
		p.logger.Debug("account already upgraded", "tag", payload.Tag)
		return nil
	}

	kind := errors.Classify(err)
	if errors.Retryable(kind) {
		p.logger.Warn("upgrade retry failed", "tag", payload.Tag, "kind", kind, "error", err)
		return err
	}
	p.logger.Error("upgrade retry abandoned", "tag", payload.Tag, "kind", kind, "error", err)
	return fmt.Errorf("%w: %w", err, asynq.SkipRetry)
}

// HealthCheckProcessor acknowledges queue liveness probes.
type HealthCheckProcessor struct{}

// ProcessTask does nothing.
func (HealthCheckProcessor) ProcessTask(context.Context, *asynq.Task) error {
	return nil
}
