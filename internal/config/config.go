// Package config provides environment-driven configuration loading for
// the SCA decoder daemon, following the GetEnv/GetEnvDuration shape used
// throughout this module's style.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// GetEnv returns the value of key from the environment, or defaultValue if unset or empty.
func GetEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return strings.TrimSpace(v)
	}
	return defaultValue
}

// GetEnvDuration returns the duration for key, or defaultValue if unset/invalid.
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultValue
	}
	return d
}

// GetEnvInt returns the integer for key, or defaultValue if unset/invalid.
func GetEnvInt(key string, defaultValue int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultValue
	}
	return n
}

// DecoderConfig holds configuration for the SCA decoder daemon.
type DecoderConfig struct {
	StoreAddr        string
	StoreDialTimeout time.Duration

	ForwarderAddr           string
	ForwarderMaxMessageSize int

	SourcePrefix string
	AgentIDPath  string
	TypePath     string

	HTTPAddr        string
	ShutdownTimeout time.Duration
}

// DefaultDecoderConfig returns decoder config from the environment with defaults.
func DefaultDecoderConfig() DecoderConfig {
	return DecoderConfig{
		StoreAddr:               GetEnv("SCA_STORE_ADDR", "127.0.0.1:1514"),
		StoreDialTimeout:        GetEnvDuration("SCA_STORE_DIAL_TIMEOUT", 5*time.Second),
		ForwarderAddr:           GetEnv("SCA_FORWARDER_ADDR", "127.0.0.1:1515"),
		ForwarderMaxMessageSize: GetEnvInt("SCA_FORWARDER_MAX_MESSAGE_SIZE", 212),
		SourcePrefix:            GetEnv("SCA_SOURCE_PREFIX", "/sca"),
		AgentIDPath:             GetEnv("SCA_AGENT_ID_PATH", "/agent/id"),
		TypePath:                GetEnv("SCA_TYPE_PATH", "/type"),
		HTTPAddr:                GetEnv("SCA_HTTP_ADDR", ":8090"),
		ShutdownTimeout:         GetEnvDuration("SCA_SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}
