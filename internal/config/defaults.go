package config

import (
	"time"

	"github.com/bobmcallan/dart-portal/internal/common"
)

// NewDefaultConfig creates a configuration with default values.
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "dev",
		Server: ServerConfig{
			Port: 5000,
			Host: "localhost",
		},
		OpenDART: OpenDARTConfig{
			BaseURL:    "https://opendart.fss.or.kr",
			Timeout:    Duration{30 * time.Second},
			ReportCode: "11011",
		},
		Gemini: GeminiConfig{
			Model:       "gemini-2.5-flash",
			Timeout:     Duration{60 * time.Second},
			MaxAttempts: 5,
			BackoffUnit: Duration{time.Second},
		},
		Corpus: CorpusConfig{
			DBPath:         "./data/companies.db",
			ReloadSchedule: "",
		},
		Storage: StorageConfig{
			Badger: BadgerConfig{
				Path: "./data/dart",
			},
		},
		Cache: CacheConfig{
			TTL:            Duration{10 * time.Minute},
			MaxEntries:     256,
			ExplanationTTL: Duration{24 * time.Hour},
		},
		Logging: common.LoggingConfig{
			Level:   "info",
			Format:  "text",
			Outputs: []string{"console"},
		},
	}
}
