package domain

import (
	"context"
	"time"
)

// Logger defines the interface for logging operations
type Logger interface {
	Info(msg string, fields ...interface{})
	Error(msg string, err error, fields ...interface{})
	Debug(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
}

// Config defines the interface for configuration management
type Config interface {
	GetServerPort() string
	GetLogLevel() string
	GetMaxFileSize() int64
	GetTelemetryInterval() time.Duration
	GetSweepYield() time.Duration
	GetRenderCacheTTL() time.Duration
	GetViewportSize() (width, height int)
	GetControlToken() string
	GetAllowedOrigins() []string
	GetRateLimitPerMinute() int
	GetSupabaseURL() string
	GetSupabaseKey() string
	GetFaultTable() string
	GetStorageBucket() string
}

// FaultRecorder keeps a record of failed render sweeps.
type FaultRecorder interface {
	RecordFault(ctx context.Context, fault SweepFault) error
}

// DocumentSource fetches document bytes from a remote store.
type DocumentSource interface {
	Fetch(ctx context.Context, path string) ([]byte, error)
}

// MemorySampler reports the memory held by the host process, in bytes.
type MemorySampler interface {
	Sample(ctx context.Context) (uint64, error)
}
