// File: internal/config/config.go
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Network   NetworkConfig   `mapstructure:"network" yaml:"network"`
	Agent     AgentConfig     `mapstructure:"agent" yaml:"agent"`
	Crawler   CrawlerConfig   `mapstructure:"crawler" yaml:"crawler"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge" yaml:"knowledge"`
	Database  DatabaseConfig  `mapstructure:"database" yaml:"database"`
}

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int    `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
}

// BrowserConfig holds settings for the headless browser instance.
type BrowserConfig struct {
	Headless        bool     `mapstructure:"headless" yaml:"headless"`
	IgnoreTLSErrors bool     `mapstructure:"ignore_tls_errors" yaml:"ignore_tls_errors"`
	UserAgent       string   `mapstructure:"user_agent" yaml:"user_agent"`
	Args            []string `mapstructure:"args" yaml:"args"`
	ViewportWidth   int      `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight  int      `mapstructure:"viewport_height" yaml:"viewport_height"`
	// SnapshotHTMLLimit caps the HTML carried in page snapshots handed to
	// the agent; the full document never leaves the browser layer.
	SnapshotHTMLLimit int `mapstructure:"snapshot_html_limit" yaml:"snapshot_html_limit"`
}

// NetworkConfig tunes timeouts for browser navigation and element waits.
type NetworkConfig struct {
	NavigationTimeout  time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	DefaultWaitTimeout time.Duration `mapstructure:"default_wait_timeout" yaml:"default_wait_timeout"`
	PostActionWait     time.Duration `mapstructure:"post_action_wait" yaml:"post_action_wait"`
}

// AgentConfig holds settings for the plan/execute/validate control loop.
type AgentConfig struct {
	// MaxCycles is the orchestrator's outer iteration cap. The router is
	// expected to terminate well before this; hitting it is an anomaly.
	MaxCycles int `mapstructure:"max_cycles" yaml:"max_cycles"`
	// MaxRetries bounds error-driven continuations granted by the router.
	MaxRetries int `mapstructure:"max_retries" yaml:"max_retries"`
	// StepCeiling is the absolute cap on the step index, independent of
	// plan length.
	StepCeiling   int       `mapstructure:"step_ceiling" yaml:"step_ceiling"`
	ScreenshotDir string    `mapstructure:"screenshot_dir" yaml:"screenshot_dir"`
	ContextTopK   int       `mapstructure:"context_top_k" yaml:"context_top_k"`
	LLM           LLMConfig `mapstructure:"llm" yaml:"llm"`
}

// LLMProvider defines the supported LLM providers.
type LLMProvider string

const (
	ProviderGemini LLMProvider = "gemini"
)

// LLMConfig defines the configuration for the language model backend.
type LLMConfig struct {
	Provider    LLMProvider   `mapstructure:"provider" yaml:"provider"`
	Model       string        `mapstructure:"model" yaml:"model"`
	APIKey      string        `mapstructure:"api_key" yaml:"-"`
	Endpoint    string        `mapstructure:"endpoint" yaml:"endpoint"`
	APITimeout  time.Duration `mapstructure:"api_timeout" yaml:"api_timeout"`
	Temperature float32       `mapstructure:"temperature" yaml:"temperature"`
	TopP        float32       `mapstructure:"top_p" yaml:"top_p"`
	TopK        int           `mapstructure:"top_k" yaml:"top_k"`
	MaxTokens   int           `mapstructure:"max_tokens" yaml:"max_tokens"`
}

// CrawlerConfig tunes the knowledge-base crawler.
type CrawlerConfig struct {
	MaxDepth          int           `mapstructure:"max_depth" yaml:"max_depth"`
	MaxPages          int           `mapstructure:"max_pages" yaml:"max_pages"`
	PageTimeout       time.Duration `mapstructure:"page_timeout" yaml:"page_timeout"`
	Concurrency       int           `mapstructure:"concurrency" yaml:"concurrency"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second" yaml:"requests_per_second"`
	HTMLLimit         int           `mapstructure:"html_limit" yaml:"html_limit"`
}

// KnowledgeConfig tunes the in-memory vector store.
type KnowledgeConfig struct {
	ChunkSize    int `mapstructure:"chunk_size" yaml:"chunk_size"`
	ChunkOverlap int `mapstructure:"chunk_overlap" yaml:"chunk_overlap"`
	Dimensions   int `mapstructure:"dimensions" yaml:"dimensions"`
}

// DatabaseConfig holds the optional result-store connection details. When
// URL is empty, results are written to a JSON file next to the screenshots.
type DatabaseConfig struct {
	URL string `mapstructure:"url" yaml:"url"`
}

// SetDefaults initializes default values for all configuration parameters.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "webagent")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 7)
	v.SetDefault("logger.compress", true)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.ignore_tls_errors", false)
	v.SetDefault("browser.user_agent", "")
	v.SetDefault("browser.viewport_width", 1366)
	v.SetDefault("browser.viewport_height", 768)
	v.SetDefault("browser.snapshot_html_limit", 1000)

	v.SetDefault("network.navigation_timeout", 30*time.Second)
	v.SetDefault("network.default_wait_timeout", 30*time.Second)
	v.SetDefault("network.post_action_wait", 500*time.Millisecond)

	v.SetDefault("agent.max_cycles", 15)
	v.SetDefault("agent.max_retries", 2)
	v.SetDefault("agent.step_ceiling", 10)
	v.SetDefault("agent.screenshot_dir", "screenshots")
	v.SetDefault("agent.context_top_k", 5)
	v.SetDefault("agent.llm.provider", "gemini")
	v.SetDefault("agent.llm.model", "gemini-2.0-flash")
	v.SetDefault("agent.llm.api_timeout", 60*time.Second)
	v.SetDefault("agent.llm.temperature", 0.0)
	v.SetDefault("agent.llm.max_tokens", 4096)

	v.SetDefault("crawler.max_depth", 2)
	v.SetDefault("crawler.max_pages", 10)
	v.SetDefault("crawler.page_timeout", 15*time.Second)
	v.SetDefault("crawler.concurrency", 4)
	v.SetDefault("crawler.requests_per_second", 4.0)
	v.SetDefault("crawler.html_limit", 30000)

	v.SetDefault("knowledge.chunk_size", 1000)
	v.SetDefault("knowledge.chunk_overlap", 100)
	v.SetDefault("knowledge.dimensions", 256)

	v.SetDefault("database.url", "")
}

// NewDefaultConfig creates a configuration struct populated with defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// Cannot happen with the defaults above, but fail loudly if it does.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// NewConfigFromViper builds a validated Config from a prepared viper instance.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field constraints that viper cannot express.
func (c *Config) Validate() error {
	if c.Agent.MaxCycles <= 0 {
		return fmt.Errorf("agent.max_cycles must be positive, got %d", c.Agent.MaxCycles)
	}
	if c.Agent.MaxRetries < 0 {
		return fmt.Errorf("agent.max_retries must not be negative, got %d", c.Agent.MaxRetries)
	}
	if c.Agent.StepCeiling <= 0 {
		return fmt.Errorf("agent.step_ceiling must be positive, got %d", c.Agent.StepCeiling)
	}
	if c.Crawler.MaxDepth < 1 {
		return fmt.Errorf("crawler.max_depth must be at least 1, got %d", c.Crawler.MaxDepth)
	}
	if c.Knowledge.ChunkOverlap >= c.Knowledge.ChunkSize {
		return fmt.Errorf("knowledge.chunk_overlap (%d) must be smaller than knowledge.chunk_size (%d)",
			c.Knowledge.ChunkOverlap, c.Knowledge.ChunkSize)
	}
	if c.Knowledge.Dimensions <= 0 {
		return fmt.Errorf("knowledge.dimensions must be positive, got %d", c.Knowledge.Dimensions)
	}
	return nil
}
