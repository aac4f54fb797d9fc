package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type BackendConfig struct {
	BaseURL          string `yaml:"base_url"`
	RequestTimeoutMS int    `yaml:"request_timeout_ms"`
	PollIntervalMS   int    `yaml:"poll_interval_ms"`
	WarmupMS         int    `yaml:"warmup_ms"`
}

type CameraConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Command     string `yaml:"command"`
	InputFormat string `yaml:"input_format"`
	Device      string `yaml:"device"`
}

type HistoryConfig struct {
	Persist bool   `yaml:"persist"`
	Path    string `yaml:"path"`
}

type SpeechConfig struct {
	Command string  `yaml:"command"`
	Rate    float64 `yaml:"rate"`
	Pitch   float64 `yaml:"pitch"`
	Volume  float64 `yaml:"volume"`
}

type DownloadsConfig struct {
	Directory string `yaml:"directory"`
}

type LoggingConfig struct {
	Path      string `yaml:"path"`
	Level     string `yaml:"level"`
	MaxSizeMB int    `yaml:"max_size_mb"`
}

type NotifyConfig struct {
	Desktop bool `yaml:"desktop"`
}

type Config struct {
	Backend   BackendConfig   `yaml:"backend"`
	Camera    CameraConfig    `yaml:"camera"`
	History   HistoryConfig   `yaml:"history"`
	Speech    SpeechConfig    `yaml:"speech"`
	Downloads DownloadsConfig `yaml:"downloads"`
	Logging   LoggingConfig   `yaml:"logging"`
	Notify    NotifyConfig    `yaml:"notify"`
}

// PollInterval returns the poll tick period.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.Backend.PollIntervalMS) * time.Millisecond
}

// RequestTimeout returns the per-request backend timeout.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Backend.RequestTimeoutMS) * time.Millisecond
}

// Warmup returns how long a freshly started session reports warming up.
func (c Config) Warmup() time.Duration {
	return time.Duration(c.Backend.WarmupMS) * time.Millisecond
}

func Default() Config {
	dataDir := defaultDataDir()
	return Config{
		Backend: BackendConfig{
			BaseURL:          "http://127.0.0.1:5000",
			RequestTimeoutMS: 5000,
			PollIntervalMS:   1000,
			WarmupMS:         3000,
		},
		Camera: CameraConfig{
			Enabled:     true,
			Command:     "ffmpeg",
			InputFormat: "v4l2",
			Device:      "/dev/video0",
		},
		History: HistoryConfig{
			Persist: true,
			Path:    filepath.Join(dataDir, "bolt_history.sqlite"),
		},
		Speech: SpeechConfig{
			Command: "espeak-ng",
			Rate:    1,
			Pitch:   1,
			Volume:  1,
		},
		Downloads: DownloadsConfig{
			Directory: defaultDownloadsDir(),
		},
		Logging: LoggingConfig{
			Path:      filepath.Join(dataDir, "bolt.log"),
			Level:     "info",
			MaxSizeMB: 10,
		},
		Notify: NotifyConfig{
			Desktop: false,
		},
	}
}

// Load resolves configuration from defaults, an optional YAML file, an
// optional .env file and BOLT_* environment variables, in that order.
func Load(path string) (Config, error) {
	cfg := Default()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("parse config %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// config file is optional
		default:
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg)

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	cfg.Backend.BaseURL = envOrDefault("BOLT_BACKEND_URL", cfg.Backend.BaseURL)
	cfg.Backend.RequestTimeoutMS = envOrDefaultInt("BOLT_REQUEST_TIMEOUT_MS", cfg.Backend.RequestTimeoutMS)
	cfg.Backend.PollIntervalMS = envOrDefaultInt("BOLT_POLL_INTERVAL_MS", cfg.Backend.PollIntervalMS)
	cfg.Backend.WarmupMS = envOrDefaultInt("BOLT_WARMUP_MS", cfg.Backend.WarmupMS)
	cfg.Camera.Enabled = envOrDefaultBool("BOLT_CAMERA_ENABLED", cfg.Camera.Enabled)
	cfg.Camera.Device = envOrDefault("BOLT_CAMERA_DEVICE", cfg.Camera.Device)
	cfg.History.Persist = envOrDefaultBool("BOLT_HISTORY_PERSIST", cfg.History.Persist)
	cfg.History.Path = envOrDefault("BOLT_HISTORY_PATH", cfg.History.Path)
	cfg.Speech.Command = envOrDefault("BOLT_SPEECH_COMMAND", cfg.Speech.Command)
	cfg.Downloads.Directory = envOrDefault("BOLT_DOWNLOADS_DIR", cfg.Downloads.Directory)
	cfg.Logging.Level = envOrDefault("BOLT_LOG_LEVEL", cfg.Logging.Level)
	cfg.Logging.Path = envOrDefault("BOLT_LOG_PATH", cfg.Logging.Path)
	cfg.Notify.Desktop = envOrDefaultBool("BOLT_NOTIFY_DESKTOP", cfg.Notify.Desktop)
}

func (c *Config) validate() error {
	c.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(c.Backend.BaseURL), "/")
	if c.Backend.BaseURL == "" {
		return errors.New("backend.base_url is required")
	}
	if !strings.HasPrefix(c.Backend.BaseURL, "http://") && !strings.HasPrefix(c.Backend.BaseURL, "https://") {
		return fmt.Errorf("backend.base_url must be an http(s) URL, got %q", c.Backend.BaseURL)
	}
	if c.Backend.RequestTimeoutMS <= 0 {
		c.Backend.RequestTimeoutMS = 5000
	}
	c.Backend.PollIntervalMS = clampInt(c.Backend.PollIntervalMS, 250, 10000)
	if c.Backend.WarmupMS < 0 {
		c.Backend.WarmupMS = 0
	}
	if c.History.Persist && strings.TrimSpace(c.History.Path) == "" {
		return errors.New("history.path is required when history.persist is true")
	}
	c.Speech.Rate = clampFloat(c.Speech.Rate, 0.1, 10)
	c.Speech.Pitch = clampFloat(c.Speech.Pitch, 0, 2)
	c.Speech.Volume = clampFloat(c.Speech.Volume, 0, 1)
	if c.Logging.MaxSizeMB <= 0 {
		c.Logging.MaxSizeMB = 10
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error, got %q", c.Logging.Level)
	}
	return nil
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "bolt")
	}
	return "./data"
}

func defaultDownloadsDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./downloads"
	}
	return filepath.Join(home, "Downloads")
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func envOrDefault(key string, fallback string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	return value
}

func envOrDefaultInt(key string, fallback int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func envOrDefaultBool(key string, fallback bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	switch value {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}
