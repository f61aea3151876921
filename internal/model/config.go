package model

import "time"

// Config is the full runtime configuration. Defaults come from
// DefaultConfig; the CLI layers config file, environment and flags on top.
type Config struct {
	HTTP        HTTPConfig        `yaml:"http"`
	Retry       RetryConfig       `yaml:"retry"`
	Quality     QualityConfig     `yaml:"quality"`
	OCR         OCRConfig         `yaml:"ocr"`
	Market      MarketConfig      `yaml:"market"`
	Cache       CacheConfig       `yaml:"cache"`
	Store       StoreConfig       `yaml:"store"`
	Narrative   NarrativeConfig   `yaml:"narrative"`
	Concurrency ConcurrencyConfig `yaml:"concurrency"`
	Output      OutputConfig      `yaml:"output"`
}

// HTTPConfig applies to every outbound client.
type HTTPConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	UserAgent  string        `yaml:"user_agent"`
	HTTPProxy  string        `yaml:"http_proxy"`
	HTTPSProxy string        `yaml:"https_proxy"`
	NoProxy    string        `yaml:"no_proxy"`
}

// RetryConfig is the single retry policy shared by all external calls.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseDelay   time.Duration `yaml:"base_delay"`
	MaxDelay    time.Duration `yaml:"max_delay"`
	Jitter      float64       `yaml:"jitter"` // fraction of the delay, 0–1
}

// QualityConfig tunes the document quality router.
type QualityConfig struct {
	DirectThreshold float64 `yaml:"direct_threshold"` // score at or above which direct extraction wins
}

// OCRConfig points at the two OCR engine services.
type OCRConfig struct {
	EngineAName string  `yaml:"engine_a_name"`
	EngineAURL  string  `yaml:"engine_a_url"`
	EngineAKey  string  `yaml:"engine_a_key"`
	EngineBName string  `yaml:"engine_b_name"`
	EngineBURL  string  `yaml:"engine_b_url"`
	EngineBKey  string  `yaml:"engine_b_key"`
	RatePerSec  float64 `yaml:"rate_per_sec"` // per-engine request rate
	Burst       int     `yaml:"burst"`
}

// MarketConfig points at the region-code and transaction services.
type MarketConfig struct {
	RegionServiceURL      string  `yaml:"region_service_url"`
	TransactionServiceURL string  `yaml:"transaction_service_url"`
	ServiceKey            string  `yaml:"service_key"`
	RecoveryRate          float64 `yaml:"recovery_rate"` // auction recovery fraction applied to the sale mean
	RatePerSec            float64 `yaml:"rate_per_sec"`
	Burst                 int     `yaml:"burst"`
}

// CacheConfig controls the injected region/transaction caches.
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled"`
	Dir       string        `yaml:"dir"` // disk layer location, empty disables the disk layer
	MemoryTTL time.Duration `yaml:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl"`
}

// StoreConfig locates the embedded case/analysis database and artifact root.
type StoreConfig struct {
	Path        string        `yaml:"path"`         // SQLite file
	ArtifactDir string        `yaml:"artifact_dir"` // registry document files
	SignSecret  string        `yaml:"sign_secret"`  // HMAC secret for download URLs
	SignTTL     time.Duration `yaml:"sign_ttl"`
}

// NarrativeConfig selects the external narrative generator, when enabled.
type NarrativeConfig struct {
	Provider  string `yaml:"provider"` // openai, anthropic, "" disables
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key"`
	BaseURL   string `yaml:"base_url"`
	MaxTokens int    `yaml:"max_tokens"`
	Timeout   int    `yaml:"timeout"` // seconds
}

// ConcurrencyConfig bounds the batch worker pool.
type ConcurrencyConfig struct {
	BatchWorkers int `yaml:"batch_workers"`
}

// OutputConfig controls CLI rendering.
type OutputConfig struct {
	Verbose bool   `yaml:"verbose"`
	Dir     string `yaml:"dir"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:   20 * time.Second,
			UserAgent: "jipcheck/0.3 (+https://github.com/hyeonwoo-dev/jipcheck)",
		},
		Retry: RetryConfig{
			MaxAttempts: 4,
			BaseDelay:   500 * time.Millisecond,
			MaxDelay:    8 * time.Second,
			Jitter:      0.2,
		},
		Quality: QualityConfig{
			DirectThreshold: 0.6,
		},
		OCR: OCRConfig{
			EngineAName: "swift",
			EngineBName: "thorough",
			RatePerSec:  5,
			Burst:       5,
		},
		Market: MarketConfig{
			RecoveryRate: 0.75,
			RatePerSec:   10,
			Burst:        10,
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   24 * time.Hour,
		},
		Store: StoreConfig{
			Path:        "jipcheck.db",
			ArtifactDir: "artifacts",
			SignTTL:     15 * time.Minute,
		},
		Narrative: NarrativeConfig{
			MaxTokens: 1000,
			Timeout:   30,
		},
		Concurrency: ConcurrencyConfig{
			BatchWorkers: 4,
		},
		Output: OutputConfig{
			Dir: ".",
		},
	}
}
