package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the report bot.
type Config struct {
	General   GeneralConfig   `mapstructure:"general"`
	IRC       IRCConfig       `mapstructure:"irc"`
	Research  ResearchConfig  `mapstructure:"research"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
	Server    ServerConfig    `mapstructure:"server"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	Debug     bool   `mapstructure:"debug"`
	LogLevel  string `mapstructure:"log_level"`
	OutputDir string `mapstructure:"output_dir"`
}

// IRCConfig describes the chat connection and the in-channel behaviour of the bot.
type IRCConfig struct {
	Nickname        string        `mapstructure:"nickname"`
	Server          string        `mapstructure:"server"`
	Port            int           `mapstructure:"port"`
	TLS             bool          `mapstructure:"tls"`
	Channel         string        `mapstructure:"channel"`
	Trigger         string        `mapstructure:"trigger"`
	ReportInChannel bool          `mapstructure:"report_in_channel"`
	LineLimit       int           `mapstructure:"line_limit"`
	SendInterval    time.Duration `mapstructure:"send_interval"`
	StatsSchedule   string        `mapstructure:"stats_schedule"`
}

// Normalize applies defaults for unset values.
func (c IRCConfig) Normalize() IRCConfig {
	c.Trigger = strings.TrimSpace(c.Trigger)
	if c.Trigger == "" {
		c.Trigger = "research!"
	}
	if c.Port <= 0 {
		c.Port = 6667
		if c.TLS {
			c.Port = 6697
		}
	}
	if c.LineLimit <= 0 {
		c.LineLimit = 400
	}
	if c.SendInterval < 0 {
		c.SendInterval = time.Second
	}
	return c
}

// Validate checks the fields required to connect.
func (c IRCConfig) Validate() error {
	if strings.TrimSpace(c.Nickname) == "" {
		return fmt.Errorf("irc.nickname required")
	}
	if strings.TrimSpace(c.Server) == "" {
		return fmt.Errorf("irc.server required")
	}
	if strings.TrimSpace(c.Channel) == "" {
		return fmt.Errorf("irc.channel required")
	}
	return nil
}

// ResearchConfig tunes the built-in research engine.
type ResearchConfig struct {
	DefaultReportType string        `mapstructure:"default_report_type"`
	SearchProvider    string        `mapstructure:"search_provider"`
	BraveAPIKey       string        `mapstructure:"brave_api_key"`
	SerperAPIKey      string        `mapstructure:"serper_api_key"`
	MaxSubqueries     int           `mapstructure:"max_subqueries"`
	MaxSources        int           `mapstructure:"max_sources"`
	ResultsPerQuery   int           `mapstructure:"results_per_query"`
	Fetcher           string        `mapstructure:"fetcher"`
	FetchTimeout      time.Duration `mapstructure:"fetch_timeout"`
	FetchConcurrency  int           `mapstructure:"fetch_concurrency"`
	MaxChars          int           `mapstructure:"max_chars"`
	MaxContextChars   int           `mapstructure:"max_context_chars"`
}

// Normalize applies defaults for unset values.
func (c ResearchConfig) Normalize() ResearchConfig {
	if strings.TrimSpace(c.DefaultReportType) == "" {
		c.DefaultReportType = "research"
	}
	c.SearchProvider = strings.ToLower(strings.TrimSpace(c.SearchProvider))
	if c.SearchProvider == "" {
		c.SearchProvider = "brave"
	}
	c.Fetcher = strings.ToLower(strings.TrimSpace(c.Fetcher))
	if c.Fetcher == "" {
		c.Fetcher = "http"
	}
	if c.MaxSubqueries <= 0 {
		c.MaxSubqueries = 3
	}
	if c.MaxSources <= 0 {
		c.MaxSources = 8
	}
	if c.ResultsPerQuery <= 0 {
		c.ResultsPerQuery = 5
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 15 * time.Second
	}
	if c.FetchConcurrency <= 0 {
		c.FetchConcurrency = 4
	}
	if c.MaxChars <= 0 {
		c.MaxChars = 20000
	}
	if c.MaxContextChars <= 0 {
		c.MaxContextChars = 60000
	}
	return c
}

// Validate checks provider selection.
func (c ResearchConfig) Validate() error {
	switch c.SearchProvider {
	case "brave", "serper":
	default:
		return fmt.Errorf("research.search_provider must be brave or serper, got %q", c.SearchProvider)
	}
	switch c.Fetcher {
	case "http", "chromedp":
	default:
		return fmt.Errorf("research.fetcher must be http or chromedp, got %q", c.Fetcher)
	}
	return nil
}

// LLMConfig contains the OpenAI-compatible provider settings.
type LLMConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	BaseURL         string        `mapstructure:"base_url"`
	Model           string        `mapstructure:"model"`
	Temperature     float64       `mapstructure:"temperature"`
	MaxTokens       int           `mapstructure:"max_tokens"`
	Timeout         time.Duration `mapstructure:"timeout"`
	CostPer1K       float64       `mapstructure:"cost_per_1k_input"`
	CostPer1KOutput float64       `mapstructure:"cost_per_1k_output"`
}

// StorageConfig contains storage and persistence settings
type StorageConfig struct {
	S3       S3Config       `mapstructure:"s3"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// S3Config contains object storage configuration.
type S3Config struct {
	Endpoint        string `mapstructure:"endpoint"`
	Region          string `mapstructure:"region"`
	Bucket          string `mapstructure:"bucket"`
	Domain          string `mapstructure:"domain"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
}

func (s S3Config) Validate() error {
	if strings.TrimSpace(s.Endpoint) == "" && strings.TrimSpace(s.Bucket) == "" {
		return nil
	}
	if strings.TrimSpace(s.Bucket) == "" {
		return fmt.Errorf("storage.s3.bucket required when endpoint is provided")
	}
	if strings.TrimSpace(s.Domain) == "" {
		return fmt.Errorf("storage.s3.domain required when bucket is provided")
	}
	return nil
}

// RedisConfig contains Redis connection settings
type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         string        `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	Timeout      time.Duration `mapstructure:"timeout"`
	EventsStream string        `mapstructure:"events_stream"`
	MaxLen       int64         `mapstructure:"max_len"`
}

// Enabled reports whether a Redis endpoint was configured.
func (r RedisConfig) Enabled() bool { return strings.TrimSpace(r.Host) != "" }

func (r RedisConfig) Validate() error {
	if !r.Enabled() {
		return nil
	}
	if strings.TrimSpace(r.Port) == "" {
		return fmt.Errorf("storage.redis.port required")
	}
	return nil
}

// PostgresConfig contains Postgres connection settings
type PostgresConfig struct {
	URL      string        `mapstructure:"url"`
	Host     string        `mapstructure:"host"`
	Port     string        `mapstructure:"port"`
	User     string        `mapstructure:"user"`
	Password string        `mapstructure:"password"`
	DBName   string        `mapstructure:"dbname"`
	SSLMode  string        `mapstructure:"sslmode"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// Enabled reports whether a Postgres database was configured.
func (p PostgresConfig) Enabled() bool {
	return strings.TrimSpace(p.URL) != "" || strings.TrimSpace(p.Host) != ""
}

// DSN returns the connection string, building it from parts when url is unset.
func (p PostgresConfig) DSN() string {
	if strings.TrimSpace(p.URL) != "" {
		return p.URL
	}
	port := p.Port
	if port == "" {
		port = "5432"
	}
	ssl := p.SSLMode
	if ssl == "" {
		ssl = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", p.User, p.Password, p.Host, port, p.DBName, ssl)
}

func (p PostgresConfig) Validate() error {
	if !p.Enabled() || strings.TrimSpace(p.URL) != "" {
		return nil
	}
	if strings.TrimSpace(p.DBName) == "" {
		return fmt.Errorf("storage.postgres.dbname required when url is not provided")
	}
	return nil
}

// PipelineConfig bounds job admission.
type PipelineConfig struct {
	MaxConcurrentJobs int `mapstructure:"max_concurrent_jobs"`
}

// ServerConfig contains HTTP API settings
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// TelemetryConfig contains telemetry and monitoring settings
type TelemetryConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	MetricsPort  int    `mapstructure:"metrics_port"`
	OTLPEndpoint string `mapstructure:"otlp_endpoint"`
}

func (t TelemetryConfig) Validate() error {
	if t.Enabled && t.MetricsPort < 0 {
		return fmt.Errorf("telemetry.metrics_port cannot be negative")
	}
	return nil
}

// LoadConfig loads config from file and REPORTBOT_* environment variables.
// An empty path searches the usual locations; a missing file is not an error
// in that case so the bot can run from flags and environment alone.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("json")
	v.SetDefault("general.log_level", "info")
	v.SetDefault("general.output_dir", "./bot.out")
	v.SetDefault("irc.trigger", "research!")
	v.SetDefault("irc.line_limit", 400)
	v.SetDefault("irc.send_interval", "1s")
	v.SetDefault("research.default_report_type", "research")
	v.SetDefault("llm.model", "gpt-4o-mini")
	v.SetDefault("llm.temperature", 0.4)
	v.SetDefault("llm.max_tokens", 4000)
	v.SetDefault("llm.timeout", "2m")
	v.SetDefault("storage.s3.region", "auto")
	v.SetDefault("storage.redis.events_stream", "reportbot.events")
	v.SetDefault("storage.redis.max_len", 10000)
	v.SetDefault("pipeline.max_concurrent_jobs", 1)
	v.SetDefault("server.address", ":10001")

	if path == "" {
		v.AddConfigPath("./app/config")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
		if exe, err := os.Executable(); err == nil {
			exeDir := filepath.Dir(exe)
			v.AddConfigPath(exeDir)
			v.AddConfigPath(filepath.Join(exeDir, ".."))
			v.AddConfigPath(filepath.Join(exeDir, "..", "config"))
		}
	} else {
		v.SetConfigFile(path)
	}

	v.SetEnvPrefix("REPORTBOT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.IRC = cfg.IRC.Normalize()
	cfg.Research = cfg.Research.Normalize()
	if cfg.Pipeline.MaxConcurrentJobs <= 0 {
		cfg.Pipeline.MaxConcurrentJobs = 1
	}

	for _, validate := range []func() error{
		cfg.Research.Validate,
		cfg.Storage.S3.Validate,
		cfg.Storage.Redis.Validate,
		cfg.Storage.Postgres.Validate,
		cfg.Telemetry.Validate,
	} {
		if err := validate(); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// bindEnv registers keys that have no default so AutomaticEnv can see them
// during Unmarshal.
func bindEnv(v *viper.Viper) {
	for _, key := range []string{
		"general.debug",
		"irc.nickname", "irc.server", "irc.port", "irc.tls", "irc.channel", "irc.report_in_channel", "irc.stats_schedule",
		"research.search_provider", "research.brave_api_key", "research.serper_api_key", "research.fetcher",
		"llm.api_key", "llm.base_url", "llm.cost_per_1k_input", "llm.cost_per_1k_output",
		"storage.s3.endpoint", "storage.s3.bucket", "storage.s3.domain",
		"storage.s3.access_key_id", "storage.s3.secret_access_key", "storage.s3.use_path_style",
		"storage.redis.host", "storage.redis.port", "storage.redis.password", "storage.redis.db",
		"storage.postgres.url", "storage.postgres.host", "storage.postgres.port", "storage.postgres.user",
		"storage.postgres.password", "storage.postgres.dbname", "storage.postgres.sslmode",
		"telemetry.enabled", "telemetry.metrics_port", "telemetry.otlp_endpoint",
	} {
		_ = v.BindEnv(key)
	}
}
