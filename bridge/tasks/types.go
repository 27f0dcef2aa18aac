// Package tasks provides the background tasks of the wallet bridge.
package tasks

import "time"

// KRequestTimeout bounds one task run.
const KRequestTimeout = 2 * time.Minute

// Task types.
const (
	TypeUpgradeRetry = "account:upgrade:retry" // Complete an upgrade left as an EOA
	TypeHealthCheck  = "health:check"          // Queue liveness probe
)

// Queues, highest priority first.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)
