package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type AuthMode string

const (
	AuthModeRequired AuthMode = "required"
	AuthModeOptional AuthMode = "optional"
	AuthModeDisabled AuthMode = "disabled"
)

type Config struct {
	Addr string

	AuthMode AuthMode
	APIKeys  map[string]struct{}

	// Turn commit: how long the caller must stay silent before the
	// accumulated transcript is committed and routed.
	SilenceThreshold time.Duration

	// Session staleness eviction.
	SessionMaxAge time.Duration
	SweepInterval time.Duration

	// WebSocket call-stream limits.
	MaxAudioFrameBytes  int
	MaxJSONMessageBytes int64
	WSWriteTimeout      time.Duration
	HandshakeTimeout    time.Duration

	MetricsNamespace string

	// Operational defaults
	ReadHeaderTimeout   time.Duration
	ReadTimeout         time.Duration
	ShutdownGracePeriod time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                envOr("VOICECORE_ADDR", ":8080"),
		AuthMode:            AuthMode(envOr("VOICECORE_AUTH_MODE", string(AuthModeRequired))),
		APIKeys:             make(map[string]struct{}),
		SilenceThreshold:    envDurationOr("VOICECORE_SILENCE_THRESHOLD", time.Second),
		SessionMaxAge:       envDurationOr("VOICECORE_SESSION_MAX_AGE", 30*time.Minute),
		SweepInterval:       envDurationOr("VOICECORE_SWEEP_INTERVAL", time.Minute),
		MaxAudioFrameBytes:  envIntOr("VOICECORE_MAX_AUDIO_FRAME_BYTES", 8192),
		MaxJSONMessageBytes: envInt64Or("VOICECORE_MAX_JSON_MESSAGE_BYTES", 64*1024),
		WSWriteTimeout:      envDurationOr("VOICECORE_WS_WRITE_TIMEOUT", 5*time.Second),
		HandshakeTimeout:    envDurationOr("VOICECORE_HANDSHAKE_TIMEOUT", 5*time.Second),
		MetricsNamespace:    envOr("VOICECORE_METRICS_NAMESPACE", "voicecore"),
		ReadHeaderTimeout:   envDurationOr("VOICECORE_READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:         envDurationOr("VOICECORE_READ_TIMEOUT", 30*time.Second),
		ShutdownGracePeriod: envDurationOr("VOICECORE_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}

	switch cfg.AuthMode {
	case AuthModeRequired, AuthModeOptional, AuthModeDisabled:
	default:
		return Config{}, fmt.Errorf("VOICECORE_AUTH_MODE must be one of required|optional|disabled")
	}

	for _, key := range splitCSV(os.Getenv("VOICECORE_API_KEYS")) {
		cfg.APIKeys[key] = struct{}{}
	}

	if cfg.SilenceThreshold <= 0 {
		return Config{}, fmt.Errorf("VOICECORE_SILENCE_THRESHOLD must be > 0")
	}
	if cfg.SessionMaxAge <= 0 {
		return Config{}, fmt.Errorf("VOICECORE_SESSION_MAX_AGE must be > 0")
	}
	if cfg.SweepInterval <= 0 {
		return Config{}, fmt.Errorf("VOICECORE_SWEEP_INTERVAL must be > 0")
	}
	if cfg.MaxAudioFrameBytes <= 0 {
		return Config{}, fmt.Errorf("VOICECORE_MAX_AUDIO_FRAME_BYTES must be > 0")
	}
	if cfg.MaxJSONMessageBytes <= 0 {
		return Config{}, fmt.Errorf("VOICECORE_MAX_JSON_MESSAGE_BYTES must be > 0")
	}
	if cfg.WSWriteTimeout <= 0 {
		return Config{}, fmt.Errorf("VOICECORE_WS_WRITE_TIMEOUT must be > 0")
	}
	if cfg.HandshakeTimeout <= 0 {
		return Config{}, fmt.Errorf("VOICECORE_HANDSHAKE_TIMEOUT must be > 0")
	}
	if strings.TrimSpace(cfg.MetricsNamespace) == "" {
		return Config{}, fmt.Errorf("VOICECORE_METRICS_NAMESPACE must not be empty")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		return Config{}, fmt.Errorf("VOICECORE_READ_HEADER_TIMEOUT must be > 0")
	}
	if cfg.ReadTimeout <= 0 {
		return Config{}, fmt.Errorf("VOICECORE_READ_TIMEOUT must be > 0")
	}
	if cfg.ShutdownGracePeriod <= 0 {
		return Config{}, fmt.Errorf("VOICECORE_SHUTDOWN_GRACE_PERIOD must be > 0")
	}

	if cfg.AuthMode == AuthModeRequired && len(cfg.APIKeys) == 0 {
		return Config{}, fmt.Errorf("VOICECORE_API_KEYS must be set when VOICECORE_AUTH_MODE=required")
	}

	return cfg, nil
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envInt64Or(key string, def int64) int64 {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

func splitCSV(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}
