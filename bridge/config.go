package bridge

import (
	"strings"
	"time"

	"github.com/hibiken/asynq"

	"github.com/sonr-io/passkey/bridge/tasks"
	"github.com/sonr-io/passkey/client/config"
)

const (
	DefaultRedisAddr = "127.0.0.1:6379"
	DefaultHTTPAddr  = ":8080"
	ShutdownTimeout  = 30 * time.Second
	HealthInterval   = 10 * time.Second
)

// Config holds the bridge service settings.
type Config struct {
	RedisAddr       string
	HTTPAddr        string
	ShutdownTimeout time.Duration
	HealthInterval  time.Duration
	AsynqConfig     asynq.Config
}

// NewConfig derives the bridge settings from the client configuration.
func NewConfig(cfg *config.ClientConfig) *Config {
	redisAddr := normalizeRedisAddr(cfg.RedisAddr)
	httpAddr := cfg.ListenAddr
	if httpAddr == "" {
		httpAddr = DefaultHTTPAddr
	}

	return &Config{
		RedisAddr:       redisAddr,
		HTTPAddr:        httpAddr,
		ShutdownTimeout: ShutdownTimeout,
		HealthInterval:  HealthInterval,
		AsynqConfig: asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				tasks.QueueCritical: 6,
				tasks.QueueDefault:  3,
				tasks.QueueLow:      1,
			},
			ShutdownTimeout: ShutdownTimeout,
			RetryDelayFunc:  asynq.DefaultRetryDelayFunc,
		},
	}
}

// normalizeRedisAddr accepts host:port or a redis:// URL.
func normalizeRedisAddr(addr string) string {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return DefaultRedisAddr
	}
	addr = strings.TrimPrefix(addr, "redis://")
	return strings.TrimSuffix(addr, "/")
}
