package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/bobmcallan/dart-portal/internal/common"
)

// Config represents the application configuration.
type Config struct {
	Environment string               `toml:"environment"`
	Server      ServerConfig         `toml:"server"`
	OpenDART    OpenDARTConfig       `toml:"opendart"`
	Gemini      GeminiConfig         `toml:"gemini"`
	Corpus      CorpusConfig         `toml:"corpus"`
	Storage     StorageConfig        `toml:"storage"`
	Cache       CacheConfig          `toml:"cache"`
	Logging     common.LoggingConfig `toml:"logging"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

// OpenDARTConfig contains the filing API settings.
type OpenDARTConfig struct {
	BaseURL    string   `toml:"base_url"`
	APIKey     string   `toml:"api_key"`
	Timeout    Duration `toml:"timeout"`
	ReportCode string   `toml:"report_code"`
}

// GeminiConfig contains text generation settings.
type GeminiConfig struct {
	APIKey      string   `toml:"api_key"`
	Model       string   `toml:"model"`
	Timeout     Duration `toml:"timeout"`
	MaxAttempts int      `toml:"max_attempts"`
	BackoffUnit Duration `toml:"backoff_unit"`
}

// CorpusConfig points at the company database built by dart-corpus.
type CorpusConfig struct {
	DBPath         string `toml:"db_path"`
	ReloadSchedule string `toml:"reload_schedule"`
}

// StorageConfig contains storage layer settings.
type StorageConfig struct {
	Badger BadgerConfig `toml:"badger"`
}

// BadgerConfig contains BadgerDB-specific settings.
type BadgerConfig struct {
	Path string `toml:"path"`
}

// CacheConfig bounds the statement and explanation caches.
type CacheConfig struct {
	TTL            Duration `toml:"ttl"`
	MaxEntries     int      `toml:"max_entries"`
	ExplanationTTL Duration `toml:"explanation_ttl"`
}

// Duration decodes TOML strings such as "30s" or "24h".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// IsProduction reports whether the environment is "prod" or "production".
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Environment)
	return env == "prod" || env == "production"
}

// Validate lists configuration problems. Missing keys are reported but the
// server can still start; the affected endpoints answer with a configuration error.
func (c *Config) Validate() []string {
	var issues []string
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		issues = append(issues, fmt.Sprintf("server.port %d is out of range", c.Server.Port))
	}
	if c.OpenDART.APIKey == "" {
		issues = append(issues, "OPENDART_API_KEY is not set")
	}
	if c.Gemini.APIKey == "" {
		issues = append(issues, "GEMINI_API_KEY is not set")
	}
	if c.Gemini.MaxAttempts <= 0 {
		issues = append(issues, "gemini.max_attempts must be positive")
	}
	if c.OpenDART.ReportCode != "" && !isReportCode(c.OpenDART.ReportCode) {
		issues = append(issues, fmt.Sprintf("opendart.report_code %q is not a known report code", c.OpenDART.ReportCode))
	}
	if c.Corpus.DBPath == "" {
		issues = append(issues, "corpus.db_path is empty")
	}
	return issues
}

func isReportCode(code string) bool {
	switch code {
	case "11011", "11012", "11013", "11014":
		return true
	}
	return false
}

// LoadFromFile loads configuration with priority: defaults -> file -> env.
func LoadFromFile(path string) (*Config, error) {
	if path == "" {
		return LoadFromFiles()
	}
	return LoadFromFiles(path)
}

// LoadFromFiles loads configuration from multiple files with priority:
// defaults -> file1 -> file2 -> ... -> env.
// Later files override earlier files.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	for i, path := range paths {
		if path == "" {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		err = toml.Unmarshal(data, config)
		if err != nil {
			return nil, fmt.Errorf("failed to parse config file %s (file %d of %d): %w", path, i+1, len(paths), err)
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// applyEnvOverrides applies DART_* and credential environment variables to config.
func applyEnvOverrides(config *Config) {
	if port := os.Getenv("DART_SERVER_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	} else if port := os.Getenv("PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}
	if host := os.Getenv("DART_SERVER_HOST"); host != "" {
		config.Server.Host = host
	}
	if env := os.Getenv("DART_ENV"); env != "" {
		config.Environment = env
	}
	if badgerPath := os.Getenv("DART_BADGER_PATH"); badgerPath != "" {
		config.Storage.Badger.Path = badgerPath
	}
	if dbPath := os.Getenv("DART_CORPUS_DB"); dbPath != "" {
		config.Corpus.DBPath = dbPath
	}
	if schedule := os.Getenv("DART_CORPUS_RELOAD"); schedule != "" {
		config.Corpus.ReloadSchedule = schedule
	}
	if level := os.Getenv("DART_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}
	if format := os.Getenv("DART_LOG_FORMAT"); format != "" {
		config.Logging.Format = format
	}
	if key := os.Getenv("OPENDART_API_KEY"); key != "" {
		config.OpenDART.APIKey = key
	}
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	} else if key := os.Getenv("GOOGLE_API_KEY"); key != "" {
		config.Gemini.APIKey = key
	}
	if model := os.Getenv("GEMINI_MODEL"); model != "" {
		config.Gemini.Model = model
	}
}

// ApplyFlagOverrides applies command-line flag overrides to config.
func ApplyFlagOverrides(config *Config, port int, host string) {
	if port > 0 {
		config.Server.Port = port
	}
	if host != "" {
		config.Server.Host = host
	}
}
