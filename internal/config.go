package internal

import (
	"fmt"
	"strings"
	"time"
)

type Config struct {
	BackendURL  string `env:"BACKEND_URL,required=true"`
	AnonKey     string `env:"BACKEND_ANON_KEY,required=true"`
	RedirectURL string `env:"AUTH_REDIRECT_URL"`
	LogLevel    string `env:"LOG_LEVEL,default=INFO"`
	DebugPort   int    `env:"DEBUG_PORT,default=8081"`

	BadgerFilepath string `env:"BADGER_FILEPATH,required=true"`
	LimitMessages  int    `env:"LIMIT_MESSAGES,default=50"`
	BufferSize     int    `env:"BUFFER_SIZE,default=256"`

	HTTPTimeout        time.Duration `env:"HTTP_TIMEOUT,default=10s"`
	HeartbeatInterval  time.Duration `env:"HEARTBEAT_INTERVAL,default=25s"`
	RestartInterval    time.Duration `env:"RESTART_INTERVAL,default=2s"`
	TokenRefreshMargin time.Duration `env:"TOKEN_REFRESH_MARGIN,default=60s"`
	NegativeCacheTTL   time.Duration `env:"NEGATIVE_CACHE_TTL,default=30s"`
	NoticeDuration     time.Duration `env:"NOTICE_DURATION,default=5s"`
	MetricInterval     time.Duration `env:"METRIC_INTERVAL,default=30s"`

	CaptchaToken string `env:"CAPTCHA_TOKEN"`

	TelemetryHost          string        `env:"TELEMETRY_HOST"`
	TelemetryKey           string        `env:"TELEMETRY_KEY"`
	TelemetryFlushInterval time.Duration `env:"TELEMETRY_FLUSH_INTERVAL,default=10s"`
	TelemetryQueueSize     int           `env:"TELEMETRY_QUEUE_SIZE,default=256"`
	TelemetryBatchSize     int           `env:"TELEMETRY_BATCH_SIZE,default=20"`

	CensoredWords   string `env:"CENSORED_WORDS"`
	CharReplacement string `env:"CHARACTER_REPLACEMENT,default=*"`
}

// TelemetryEnabled is false when no capture endpoint is configured.
func (c Config) TelemetryEnabled() bool {
	return c.TelemetryHost != "" && c.TelemetryKey != ""
}

func CharacterRune(str string) (rune, error) {
	r := []rune(str)
	if len(r) != 1 {
		return 0, fmt.Errorf(
			"CHARACTER_REPLACEMENT must be a single character, got %q",
			str,
		)
	}
	return r[0], nil
}

// WordList splits a comma separated list, dropping blanks.
func WordList(str string) []string {
	var words []string
	for _, w := range strings.Split(str, ",") {
		if w = strings.TrimSpace(w); w != "" {
			words = append(words, w)
		}
	}
	return words
}
