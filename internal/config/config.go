package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"aidigest/internal/domain"
)

const (
	configPathEnv   = "AIDIGEST_CONFIG"
	databaseDSNEnv  = "DATABASE_DSN"
	openAIAPIKeyEnv = "OPENAI_API_KEY"
	openAIModelEnv  = "OPENAI_MODEL"
	openAIBaseEnv   = "OPENAI_BASE_URL"
)

// Config holds high-level settings required across the application.
type Config struct {
	Database  DatabaseConfig  `yaml:"database"`
	Pipeline  PipelineConfig  `yaml:"pipeline"`
	OpenAI    OpenAIConfig    `yaml:"openai"`
	Extractor ExtractorConfig `yaml:"extractor"`
	Scheduler SchedulerConfig `yaml:"scheduler"`
	Logging   LoggingConfig   `yaml:"logging"`
	Sources   []SourceConfig  `yaml:"sources"`
}

// DatabaseConfig describes Postgres connection details.
type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

// PipelineConfig tunes the per-run ingestion policy.
type PipelineConfig struct {
	WindowDays   int `yaml:"windowDays"`
	MaxPerSource int `yaml:"maxPerSource"`
}

// Window converts the recency window to a duration.
func (p PipelineConfig) Window() time.Duration {
	return time.Duration(p.WindowDays) * 24 * time.Hour
}

// Duration parses YAML duration literals like "15s" or "24h".
type Duration time.Duration

// Std converts back to the standard library representation.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	parsed, err := time.ParseDuration(node.Value)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", node.Value, err)
	}
	*d = Duration(parsed)
	return nil
}

// OpenAIConfig defines how to contact the analysis model API.
type OpenAIConfig struct {
	BaseURL string `yaml:"baseUrl"`
	Model   string `yaml:"model"`
	APIKey  string `yaml:"apiKey"`
}

// ExtractorConfig bounds the article-page fetch.
type ExtractorConfig struct {
	Timeout   Duration `yaml:"timeout"`
	UserAgent string   `yaml:"userAgent"`
}

// SchedulerConfig defines how often the pipeline re-runs.
// A zero interval means a single run per invocation.
type SchedulerConfig struct {
	Interval Duration `yaml:"interval"`
}

// LoggingConfig selects the slog level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// SourceConfig maps a human-readable source name to its feed endpoint.
type SourceConfig struct {
	Name    string `yaml:"name"`
	FeedURL string `yaml:"feedUrl"`
}

// DomainSources converts the configured registry into domain sources.
func (c Config) DomainSources() []domain.Source {
	sources := make([]domain.Source, 0, len(c.Sources))
	for _, s := range c.Sources {
		sources = append(sources, domain.Source{Name: s.Name, FeedURL: s.FeedURL})
	}
	return sources
}

// Load reads YAML configuration (if present) and applies environment overrides.
func Load() Config {
	cfg := defaultConfig()

	if path := os.Getenv(configPathEnv); path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else {
			var fileCfg Config
			if err := yaml.Unmarshal(raw, &fileCfg); err != nil {
				log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			} else {
				cfg = mergeConfig(cfg, fileCfg)
			}
		}
	}

	cfg.applyEnvOverrides()

	if len(cfg.Sources) == 0 {
		cfg.Sources = defaultConfig().Sources
	}

	return cfg
}

// Validate reports configuration gaps that must abort startup before any
// source is processed.
func (c Config) Validate() error {
	if c.Database.DSN == "" {
		return fmt.Errorf("database dsn is required")
	}
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("openai api key is required")
	}
	if c.OpenAI.Model == "" {
		return fmt.Errorf("openai model is required")
	}
	if c.Pipeline.WindowDays <= 0 {
		return fmt.Errorf("pipeline window must be positive, got %d days", c.Pipeline.WindowDays)
	}
	if c.Pipeline.MaxPerSource <= 0 {
		return fmt.Errorf("pipeline per-source cap must be positive, got %d", c.Pipeline.MaxPerSource)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(databaseDSNEnv); v != "" {
		c.Database.DSN = v
	}

	if v := os.Getenv(openAIAPIKeyEnv); v != "" {
		c.OpenAI.APIKey = v
	}

	if v := os.Getenv(openAIModelEnv); v != "" {
		c.OpenAI.Model = v
	}

	if v := os.Getenv(openAIBaseEnv); v != "" {
		c.OpenAI.BaseURL = v
	}
}

func mergeConfig(base, override Config) Config {
	if override.Database.DSN != "" {
		base.Database = override.Database
	}

	if override.Pipeline.WindowDays > 0 {
		base.Pipeline.WindowDays = override.Pipeline.WindowDays
	}
	if override.Pipeline.MaxPerSource > 0 {
		base.Pipeline.MaxPerSource = override.Pipeline.MaxPerSource
	}

	if override.OpenAI.BaseURL != "" {
		base.OpenAI.BaseURL = override.OpenAI.BaseURL
	}
	if override.OpenAI.Model != "" {
		base.OpenAI.Model = override.OpenAI.Model
	}
	if override.OpenAI.APIKey != "" {
		base.OpenAI.APIKey = override.OpenAI.APIKey
	}

	if override.Extractor.Timeout > 0 {
		base.Extractor.Timeout = override.Extractor.Timeout
	}
	if override.Extractor.UserAgent != "" {
		base.Extractor.UserAgent = override.Extractor.UserAgent
	}

	if override.Scheduler.Interval > 0 {
		base.Scheduler.Interval = override.Scheduler.Interval
	}

	if override.Logging.Level != "" {
		base.Logging.Level = override.Logging.Level
	}

	if len(override.Sources) > 0 {
		base.Sources = override.Sources
	}

	return base
}

func defaultConfig() Config {
	return Config{
		Database: DatabaseConfig{DSN: ""},
		Pipeline: PipelineConfig{WindowDays: 3, MaxPerSource: 5},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
		Extractor: ExtractorConfig{
			Timeout:   Duration(15 * time.Second),
			UserAgent: "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.36",
		},
		Scheduler: SchedulerConfig{Interval: 0},
		Logging:   LoggingConfig{Level: "info"},
		Sources: []SourceConfig{
			{Name: "arXiv: AI", FeedURL: "https://arxiv.org/rss/cs.AI"},
			{Name: "arXiv: Computation and Language", FeedURL: "https://arxiv.org/rss/cs.CL"},
			{Name: "arXiv: Machine Learning", FeedURL: "https://arxiv.org/rss/cs.LG"},
			{Name: "Google AI Blog", FeedURL: "https://blog.google/technology/ai/rss/"},
			{Name: "DeepMind Blog", FeedURL: "https://deepmind.google/blog/rss/"},
			{Name: "OpenAI Blog", FeedURL: "https://openai.com/blog/rss.xml"},
			{Name: "Microsoft AI Blog", FeedURL: "https://blogs.microsoft.com/ai/feed/"},
			{Name: "Meta AI Blog", FeedURL: "https://ai.meta.com/blog/rss/"},
			{Name: "Anthropic Blog", FeedURL: "https://www.anthropic.com/news/rss.xml"},
			{Name: "VentureBeat AI", FeedURL: "https://feeds.feedburner.com/venturebeat/SZYF"},
		},
	}
}
