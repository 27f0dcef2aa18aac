package bridge

import (
	"cosmossdk.io/log"
	"github.com/hibiken/asynq"

	"github.com/sonr-io/passkey/bridge/tasks"
)

// QueueManager handles Asynq server setup and task registration
type QueueManager struct {
	server *asynq.Server
	mux    *asynq.ServeMux
	config *Config
	logger log.Logger
}

// NewQueueManager creates a new queue manager with the given configuration
func NewQueueManager(config *Config, upgrader tasks.Upgrader, logger log.Logger) *QueueManager {
	if logger == nil {
		logger = log.NewNopLogger()
	}
	logger = logger.With(log.ModuleKey, "queue")

	asynqConfig := config.AsynqConfig
	asynqConfig.Logger = asynqLogger{logger: logger}
	srv := asynq.NewServer(asynq.RedisClientOpt{Addr: config.RedisAddr}, asynqConfig)

	mux := asynq.NewServeMux()
	registerTaskHandlers(mux, upgrader, logger)

	return &QueueManager{
		server: srv,
		mux:    mux,
		config: config,
		logger: logger,
	}
}

// registerTaskHandlers registers all task handlers
func registerTaskHandlers(mux *asynq.ServeMux, upgrader tasks.Upgrader, logger log.Logger) {
	mux.Handle(tasks.TypeUpgradeRetry, tasks.NewUpgradeRetryProcessor(upgrader, logger))
	mux.Handle(tasks.TypeHealthCheck, tasks.HealthCheckProcessor{})
}

// Handler returns the task router.
func (qm *QueueManager) Handler() asynq.Handler {
	return qm.mux
}

// Run starts the Asynq server with the registered task handlers
func (qm *QueueManager) Run() error {
	qm.logger.Info("starting task server", "redis", qm.config.RedisAddr)
	return qm.server.Run(qm.mux)
}

// Shutdown gracefully shuts down the Asynq server
func (qm *QueueManager) Shutdown() {
	qm.server.Shutdown()
}
