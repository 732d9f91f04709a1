package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config is the full system configuration. The session section carries
// the shared-timer and scoring constants; everything a room computes is
// derived from these externally supplied values.
type Config struct {
	HTTP      *HTTPConfig      `json:"http"`
	WebSocket *WebSocketConfig `json:"websocket"`
	Session   *SessionConfig   `json:"session"`
}

type HTTPConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

type WebSocketConfig struct {
	PingInterval time.Duration `json:"ping_interval"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	BufferSize   int           `json:"buffer_size"`
}

// SessionConfig holds the focus-session constants: pomodoro durations,
// scoring rates, the metrics broadcast cadence and the expression-frame
// throttle.
type SessionConfig struct {
	FocusDuration        time.Duration `json:"focus_duration"`
	BreakDuration        time.Duration `json:"break_duration"`
	BaseRatePerSecond    float64       `json:"base_rate_per_second"`
	PenaltyPerDistracted float64       `json:"penalty_per_distracted"`
	MetricsInterval      time.Duration `json:"metrics_interval"`
	FrameRateLimit       float64       `json:"frame_rate_limit"`
	FrameRateBurst       int           `json:"frame_rate_burst"`
}

// DefaultConfig returns production defaults: the classic 25/5 pomodoro
// split, one point per second base rate, a quarter-rate penalty per
// distracted participant, and a 5 second state rebroadcast.
func DefaultConfig() *Config {
	return &Config{
		HTTP: &HTTPConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		WebSocket: &WebSocketConfig{
			PingInterval: 30 * time.Second,
			ReadTimeout:  60 * time.Second,
			BufferSize:   100,
		},
		Session: &SessionConfig{
			FocusDuration:        25 * time.Minute,
			BreakDuration:        5 * time.Minute,
			BaseRatePerSecond:    1.0,
			PenaltyPerDistracted: 0.25,
			MetricsInterval:      5 * time.Second,
			FrameRateLimit:       30,
			FrameRateBurst:       60,
		},
	}
}

// Validate rejects configurations that would fail at runtime.
func (c *Config) Validate() error {
	if c.HTTP == nil {
		return fmt.Errorf("HTTP configuration is required")
	}
	if c.HTTP.Host == "" {
		return fmt.Errorf("HTTP host cannot be empty")
	}
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("HTTP port must be between 1 and 65535")
	}
	if c.HTTP.ReadTimeout <= 0 {
		return fmt.Errorf("HTTP read timeout must be positive")
	}
	if c.HTTP.WriteTimeout <= 0 {
		return fmt.Errorf("HTTP write timeout must be positive")
	}

	if c.WebSocket == nil {
		return fmt.Errorf("WebSocket configuration is required")
	}
	if c.WebSocket.PingInterval <= 0 {
		return fmt.Errorf("WebSocket ping interval must be positive")
	}
	if c.WebSocket.ReadTimeout <= c.WebSocket.PingInterval {
		return fmt.Errorf("WebSocket read timeout must exceed the ping interval")
	}
	if c.WebSocket.BufferSize <= 0 {
		return fmt.Errorf("WebSocket buffer size must be positive")
	}

	if c.Session == nil {
		return fmt.Errorf("session configuration is required")
	}
	if c.Session.FocusDuration <= 0 {
		return fmt.Errorf("focus duration must be positive")
	}
	if c.Session.BreakDuration <= 0 {
		return fmt.Errorf("break duration must be positive")
	}
	if c.Session.BaseRatePerSecond <= 0 {
		return fmt.Errorf("base rate must be positive")
	}
	if c.Session.PenaltyPerDistracted < 0 {
		return fmt.Errorf("distraction penalty cannot be negative")
	}
	if c.Session.MetricsInterval <= 0 {
		return fmt.Errorf("metrics interval must be positive")
	}
	if c.Session.FrameRateLimit <= 0 {
		return fmt.Errorf("frame rate limit must be positive")
	}
	if c.Session.FrameRateBurst <= 0 {
		return fmt.Errorf("frame rate burst must be positive")
	}

	return nil
}

// LoadFromEnv returns the defaults overridden by FOCUSHUB_* environment
// variables. Unparsable values fall back silently; deployments that care
// should rely on Validate catching the result.
func LoadFromEnv() *Config {
	config := DefaultConfig()

	if host := os.Getenv("FOCUSHUB_HTTP_HOST"); host != "" {
		config.HTTP.Host = host
	}
	if port := os.Getenv("FOCUSHUB_HTTP_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.HTTP.Port = p
		}
	}
	if readTimeout := os.Getenv("FOCUSHUB_HTTP_READ_TIMEOUT"); readTimeout != "" {
		if timeout, err := time.ParseDuration(readTimeout); err == nil {
			config.HTTP.ReadTimeout = timeout
		}
	}
	if writeTimeout := os.Getenv("FOCUSHUB_HTTP_WRITE_TIMEOUT"); writeTimeout != "" {
		if timeout, err := time.ParseDuration(writeTimeout); err == nil {
			config.HTTP.WriteTimeout = timeout
		}
	}

	if pingInterval := os.Getenv("FOCUSHUB_WEBSOCKET_PING_INTERVAL"); pingInterval != "" {
		if interval, err := time.ParseDuration(pingInterval); err == nil {
			config.WebSocket.PingInterval = interval
		}
	}
	if readTimeout := os.Getenv("FOCUSHUB_WEBSOCKET_READ_TIMEOUT"); readTimeout != "" {
		if timeout, err := time.ParseDuration(readTimeout); err == nil {
			config.WebSocket.ReadTimeout = timeout
		}
	}
	if bufferSize := os.Getenv("FOCUSHUB_WEBSOCKET_BUFFER_SIZE"); bufferSize != "" {
		if size, err := strconv.Atoi(bufferSize); err == nil {
			config.WebSocket.BufferSize = size
		}
	}

	if focus := os.Getenv("FOCUSHUB_FOCUS_DURATION"); focus != "" {
		if d, err := time.ParseDuration(focus); err == nil {
			config.Session.FocusDuration = d
		}
	}
	if brk := os.Getenv("FOCUSHUB_BREAK_DURATION"); brk != "" {
		if d, err := time.ParseDuration(brk); err == nil {
			config.Session.BreakDuration = d
		}
	}
	if rate := os.Getenv("FOCUSHUB_BASE_RATE_PER_SECOND"); rate != "" {
		if f, err := strconv.ParseFloat(rate, 64); err == nil {
			config.Session.BaseRatePerSecond = f
		}
	}
	if penalty := os.Getenv("FOCUSHUB_PENALTY_PER_DISTRACTED"); penalty != "" {
		if f, err := strconv.ParseFloat(penalty, 64); err == nil {
			config.Session.PenaltyPerDistracted = f
		}
	}
	if interval := os.Getenv("FOCUSHUB_METRICS_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			config.Session.MetricsInterval = d
		}
	}
	if limit := os.Getenv("FOCUSHUB_FRAME_RATE_LIMIT"); limit != "" {
		if f, err := strconv.ParseFloat(limit, 64); err == nil {
			config.Session.FrameRateLimit = f
		}
	}
	if burst := os.Getenv("FOCUSHUB_FRAME_RATE_BURST"); burst != "" {
		if n, err := strconv.Atoi(burst); err == nil {
			config.Session.FrameRateBurst = n
		}
	}

	return config
}

// ConfigFile is the JSON structure for file-based configuration;
// durations are human-readable strings ("25m", "5s").
type ConfigFile struct {
	HTTP      *HTTPConfigFile      `json:"http"`
	WebSocket *WebSocketConfigFile `json:"websocket"`
	Session   *SessionConfigFile   `json:"session"`
}

type HTTPConfigFile struct {
	Host         string `json:"host"`
	Port         int    `json:"port"`
	ReadTimeout  string `json:"read_timeout"`
	WriteTimeout string `json:"write_timeout"`
}

type WebSocketConfigFile struct {
	PingInterval string `json:"ping_interval"`
	ReadTimeout  string `json:"read_timeout"`
	BufferSize   int    `json:"buffer_size"`
}

type SessionConfigFile struct {
	FocusDuration        string  `json:"focus_duration"`
	BreakDuration        string  `json:"break_duration"`
	BaseRatePerSecond    float64 `json:"base_rate_per_second"`
	PenaltyPerDistracted float64 `json:"penalty_per_distracted"`
	MetricsInterval      string  `json:"metrics_interval"`
	FrameRateLimit       float64 `json:"frame_rate_limit"`
	FrameRateBurst       int     `json:"frame_rate_burst"`
}

// LoadFromFile loads configuration from a JSON file on top of the
// defaults and validates the result.
func LoadFromFile(filepath string) (*Config, error) {
	data, err := os.ReadFile(filepath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", filepath, err)
	}

	var configFile ConfigFile
	if err := json.Unmarshal(data, &configFile); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", filepath, err)
	}

	config := DefaultConfig()

	if configFile.HTTP != nil {
		if configFile.HTTP.Host != "" {
			config.HTTP.Host = configFile.HTTP.Host
		}
		if configFile.HTTP.Port > 0 {
			config.HTTP.Port = configFile.HTTP.Port
		}
		if d, err := time.ParseDuration(configFile.HTTP.ReadTimeout); err == nil && configFile.HTTP.ReadTimeout != "" {
			config.HTTP.ReadTimeout = d
		}
		if d, err := time.ParseDuration(configFile.HTTP.WriteTimeout); err == nil && configFile.HTTP.WriteTimeout != "" {
			config.HTTP.WriteTimeout = d
		}
	}

	if configFile.WebSocket != nil {
		if d, err := time.ParseDuration(configFile.WebSocket.PingInterval); err == nil && configFile.WebSocket.PingInterval != "" {
			config.WebSocket.PingInterval = d
		}
		if d, err := time.ParseDuration(configFile.WebSocket.ReadTimeout); err == nil && configFile.WebSocket.ReadTimeout != "" {
			config.WebSocket.ReadTimeout = d
		}
		if configFile.WebSocket.BufferSize > 0 {
			config.WebSocket.BufferSize = configFile.WebSocket.BufferSize
		}
	}

	if configFile.Session != nil {
		if d, err := time.ParseDuration(configFile.Session.FocusDuration); err == nil && configFile.Session.FocusDuration != "" {
			config.Session.FocusDuration = d
		}
		if d, err := time.ParseDuration(configFile.Session.BreakDuration); err == nil && configFile.Session.BreakDuration != "" {
			config.Session.BreakDuration = d
		}
		if configFile.Session.BaseRatePerSecond > 0 {
			config.Session.BaseRatePerSecond = configFile.Session.BaseRatePerSecond
		}
		if configFile.Session.PenaltyPerDistracted > 0 {
			config.Session.PenaltyPerDistracted = configFile.Session.PenaltyPerDistracted
		}
		if d, err := time.ParseDuration(configFile.Session.MetricsInterval); err == nil && configFile.Session.MetricsInterval != "" {
			config.Session.MetricsInterval = d
		}
		if configFile.Session.FrameRateLimit > 0 {
			config.Session.FrameRateLimit = configFile.Session.FrameRateLimit
		}
		if configFile.Session.FrameRateBurst > 0 {
			config.Session.FrameRateBurst = configFile.Session.FrameRateBurst
		}
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration in %s: %w", filepath, err)
	}

	return config, nil
}

// LoadConfigWithPrecedence resolves configuration as file > environment
// > defaults. File errors are ignored so environment and defaults still
// work without one.
func LoadConfigWithPrecedence(filepath string) *Config {
	config := LoadFromEnv()

	if filepath != "" {
		if fileConfig, err := LoadFromFile(filepath); err == nil {
			config = fileConfig
		}
	}

	return config
}
