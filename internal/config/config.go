package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"pdf-view-session/internal/domain"
)

// AppConfig implements the domain.Config interface
type AppConfig struct {
	ServerPort         string
	LogLevel           string
	MaxFileSize        int64
	TelemetryInterval  time.Duration
	SweepYield         time.Duration
	RenderCacheTTL     time.Duration
	ViewportWidth      int
	ViewportHeight     int
	ControlToken       string
	AllowedOrigins     []string
	RateLimitPerMinute int
	SupabaseURL        string
	SupabaseKey        string
	FaultTable         string
	StorageBucket      string
}

// NewConfig creates a new configuration instance with default values
func NewConfig() domain.Config {
	return &AppConfig{
		ServerPort:         getEnvOrDefault("PORT", getEnvOrDefault("SERVER_PORT", "8080")),
		LogLevel:           getEnvOrDefault("LOG_LEVEL", "info"),
		MaxFileSize:        getEnvInt64OrDefault("MAX_FILE_SIZE", 50*1024*1024), // 50MB default
		TelemetryInterval:  getEnvDurationOrDefault("TELEMETRY_INTERVAL", time.Second),
		SweepYield:         getEnvDurationOrDefault("SWEEP_YIELD", time.Millisecond),
		RenderCacheTTL:     getEnvDurationOrDefault("RENDER_CACHE_TTL", 5*time.Minute),
		ViewportWidth:      int(getEnvInt64OrDefault("VIEWPORT_WIDTH", 1024)),
		ViewportHeight:     int(getEnvInt64OrDefault("VIEWPORT_HEIGHT", 768)),
		ControlToken:       getEnvOrDefault("CONTROL_TOKEN", ""),
		AllowedOrigins:     getEnvListOrDefault("ALLOWED_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		RateLimitPerMinute: int(getEnvInt64OrDefault("RATE_LIMIT_PER_MINUTE", 600)),
		SupabaseURL:        getEnvOrDefault("SUPABASE_URL", ""),
		SupabaseKey:        getEnvOrDefault("SUPABASE_ANON_KEY", ""),
		FaultTable:         getEnvOrDefault("SUPABASE_FAULT_TABLE", "viewer_faults"),
		StorageBucket:      getEnvOrDefault("SUPABASE_BUCKET", "documents"),
	}
}

// GetServerPort returns the server port
func (c *AppConfig) GetServerPort() string {
	return c.ServerPort
}

// GetLogLevel returns the logging level
func (c *AppConfig) GetLogLevel() string {
	return c.LogLevel
}

// GetMaxFileSize returns the largest document stream the session will read
func (c *AppConfig) GetMaxFileSize() int64 {
	return c.MaxFileSize
}

// GetTelemetryInterval returns the memory sampling period
func (c *AppConfig) GetTelemetryInterval() time.Duration {
	return c.TelemetryInterval
}

// GetSweepYield returns the pause between render sweep steps
func (c *AppConfig) GetSweepYield() time.Duration {
	return c.SweepYield
}

// GetRenderCacheTTL returns how long rendered pages stay cached
func (c *AppConfig) GetRenderCacheTTL() time.Duration {
	return c.RenderCacheTTL
}

// GetViewportSize returns the viewport used by the fit zoom modes
func (c *AppConfig) GetViewportSize() (int, int) {
	return c.ViewportWidth, c.ViewportHeight
}

// GetControlToken returns the bearer token guarding the control API
func (c *AppConfig) GetControlToken() string {
	return c.ControlToken
}

// GetAllowedOrigins returns the CORS origins
func (c *AppConfig) GetAllowedOrigins() []string {
	return c.AllowedOrigins
}

// GetRateLimitPerMinute returns the per-client request budget
func (c *AppConfig) GetRateLimitPerMinute() int {
	return c.RateLimitPerMinute
}

// GetSupabaseURL returns the Supabase URL
func (c *AppConfig) GetSupabaseURL() string {
	return c.SupabaseURL
}

// GetSupabaseKey returns the Supabase anon key
func (c *AppConfig) GetSupabaseKey() string {
	return c.SupabaseKey
}

// GetFaultTable returns the table sweep faults are written to
func (c *AppConfig) GetFaultTable() string {
	return c.FaultTable
}

// GetStorageBucket returns the storage bucket documents are fetched from
func (c *AppConfig) GetStorageBucket() string {
	return c.StorageBucket
}

// Helper functions for environment variable handling
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64OrDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
