// Package config provides configuration loading for zapscan.
// It supports a layered configuration approach with priority:
// CLI flags > environment variables (ZAPSCAN_*) > config file (~/.zapscan.yaml).
package config

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/buemura/zapscan/internal/auth"
	"github.com/buemura/zapscan/internal/policy"
	"github.com/buemura/zapscan/internal/remediation"
	"github.com/buemura/zapscan/internal/scanner"
	"github.com/buemura/zapscan/internal/zap"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const envPrefix = "ZAPSCAN"

// ZAPConfig locates the engine's control API.
type ZAPConfig struct {
	APIURL         string        `mapstructure:"api_url" yaml:"api_url"`
	APIKey         string        `mapstructure:"api_key" yaml:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	Retries        uint          `mapstructure:"retries" yaml:"retries"`
	RateLimit      float64       `mapstructure:"rate_limit" yaml:"rate_limit"`
	Burst          int           `mapstructure:"burst" yaml:"burst"`
}

// ServerConfig configures `zapscan serve`.
type ServerConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
	// MaxJobs bounds how many finished jobs are kept in memory.
	MaxJobs int `mapstructure:"max_jobs" yaml:"max_jobs"`
}

// Config holds all zapscan configuration options.
type Config struct {
	ZAP    ZAPConfig    `mapstructure:"zap" yaml:"zap"`
	Server ServerConfig `mapstructure:"server" yaml:"server"`

	OutputFormat string `mapstructure:"output_format" yaml:"output_format"`
	LogFormat    string `mapstructure:"log_format" yaml:"log_format"`

	ContextName     string        `mapstructure:"context_name" yaml:"context_name"`
	PollInterval    time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	SpiderDuration  time.Duration `mapstructure:"spider_duration" yaml:"spider_duration"`
	SpiderDepth     int           `mapstructure:"spider_depth" yaml:"spider_depth"`
	PassiveDuration time.Duration `mapstructure:"passive_duration" yaml:"passive_duration"`
	ActiveDuration  time.Duration `mapstructure:"active_duration" yaml:"active_duration"`
	Threads         int           `mapstructure:"threads" yaml:"threads"`
	ScriptDir       string        `mapstructure:"script_dir" yaml:"script_dir"`

	TemplatesPath string              `mapstructure:"templates_path" yaml:"templates_path"`
	Policies      []policy.Definition `mapstructure:"policies" yaml:"policies"`

	// Auth is used when a scan is started without explicit auth flags.
	Auth *auth.Config `mapstructure:"auth" yaml:"auth"`
}

// Defaults returns a Config populated with default values.
func Defaults() Config {
	return Config{
		ZAP: ZAPConfig{
			APIURL:         "http://localhost:8080",
			RequestTimeout: 30 * time.Second,
			Retries:        3,
			Burst:          1,
		},
		Server: ServerConfig{
			Addr:    ":8090",
			MaxJobs: 100,
		},
		OutputFormat:    "table",
		LogFormat:       "text",
		ContextName:     scanner.DefaultContextName,
		PollInterval:    scanner.DefaultPollInterval,
		SpiderDuration:  scanner.DefaultSpiderDuration,
		SpiderDepth:     scanner.DefaultSpiderDepth,
		PassiveDuration: scanner.DefaultPassiveDuration,
		ActiveDuration:  scanner.DefaultActiveDuration,
		Threads:         scanner.DefaultThreads,
	}
}

// Load reads configuration from ~/.zapscan.yaml and environment variables.
// It does NOT apply CLI flag overrides; call ApplyFlags for that.
func Load() (*Config, error) {
	v := newViper()

	v.SetConfigName(".zapscan")
	v.SetConfigType("yaml")

	home, err := os.UserHomeDir()
	if err == nil {
		v.AddConfigPath(home)
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}
	return unmarshal(v)
}

// LoadFromFile reads configuration from a specific file path.
func LoadFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return unmarshal(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := Defaults()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if cfg.Auth != nil {
		if cfg.Auth.Type == "" {
			cfg.Auth = nil
		} else {
			t, err := auth.ParseType(string(cfg.Auth.Type))
			if err != nil {
				return nil, err
			}
			cfg.Auth.Type = t
		}
	}
	return &cfg, nil
}

// ApplyFlags overrides config values with any CLI flags that were explicitly set.
func ApplyFlags(cfg *Config, cmd *cobra.Command) {
	flags := cmd.Flags()

	if flags.Changed("zap-url") {
		cfg.ZAP.APIURL, _ = flags.GetString("zap-url")
	}
	if flags.Changed("api-key") {
		cfg.ZAP.APIKey, _ = flags.GetString("api-key")
	}
	if flags.Changed("output") {
		cfg.OutputFormat, _ = flags.GetString("output")
	}
	if flags.Changed("log-format") {
		cfg.LogFormat, _ = flags.GetString("log-format")
	}
	if flags.Changed("context") {
		cfg.ContextName, _ = flags.GetString("context")
	}
	if flags.Changed("poll-interval") {
		cfg.PollInterval, _ = flags.GetDuration("poll-interval")
	}
	if flags.Changed("spider-duration") {
		cfg.SpiderDuration, _ = flags.GetDuration("spider-duration")
	}
	if flags.Changed("spider-depth") {
		cfg.SpiderDepth, _ = flags.GetInt("spider-depth")
	}
	if flags.Changed("passive-duration") {
		cfg.PassiveDuration, _ = flags.GetDuration("passive-duration")
	}
	if flags.Changed("active-duration") {
		cfg.ActiveDuration, _ = flags.GetDuration("active-duration")
	}
	if flags.Changed("threads") {
		cfg.Threads, _ = flags.GetInt("threads")
	}
	if flags.Changed("templates") {
		cfg.TemplatesPath, _ = flags.GetString("templates")
	}
	if flags.Changed("addr") {
		cfg.Server.Addr, _ = flags.GetString("addr")
	}
}

// ScanOptions converts the scan defaults into orchestrator options.
func (c *Config) ScanOptions() []scanner.ScanOption {
	opts := []scanner.ScanOption{
		scanner.WithContextName(c.ContextName),
		scanner.WithPollInterval(c.PollInterval),
		scanner.WithSpiderDuration(c.SpiderDuration),
		scanner.WithSpiderDepth(c.SpiderDepth),
		scanner.WithPassiveDuration(c.PassiveDuration),
		scanner.WithActiveDuration(c.ActiveDuration),
		scanner.WithThreads(c.Threads),
	}
	if c.Auth != nil {
		opts = append(opts, scanner.WithAuth(*c.Auth))
	}
	return opts
}

// ZAPClient builds an engine client from the zap section.
func (c *Config) ZAPClient(logger *slog.Logger) (*zap.Client, error) {
	opts := []zap.Option{
		zap.WithHTTPClient(&http.Client{Timeout: c.ZAP.RequestTimeout}),
		zap.WithRetry(c.ZAP.Retries, 500*time.Millisecond),
		zap.WithRateLimit(c.ZAP.RateLimit, c.ZAP.Burst),
	}
	if logger != nil {
		opts = append(opts, zap.WithLogger(logger))
	}
	return zap.NewClient(c.ZAP.APIURL, c.ZAP.APIKey, opts...)
}

// PolicyManager returns the built-in policies plus the configured ones.
func (c *Config) PolicyManager() (*policy.Manager, error) {
	return policy.NewManager(c.Policies...)
}

// RemediationCatalog returns the built-in templates followed by those in
// TemplatesPath, if set.
func (c *Config) RemediationCatalog() (*remediation.Catalog, error) {
	catalog := remediation.DefaultCatalog()
	if c.TemplatesPath == "" {
		return catalog, nil
	}
	if err := catalog.LoadTemplatesFile(c.TemplatesPath); err != nil {
		return nil, err
	}
	return catalog, nil
}

// ConfigFilePath returns the default config file path (~/.zapscan.yaml).
func ConfigFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".zapscan.yaml"
	}
	return filepath.Join(home, ".zapscan.yaml")
}

func setDefaults(v *viper.Viper) {
	d := Defaults()
	v.SetDefault("zap.api_url", d.ZAP.APIURL)
	v.SetDefault("zap.api_key", "")
	v.SetDefault("zap.request_timeout", d.ZAP.RequestTimeout)
	v.SetDefault("zap.retries", d.ZAP.Retries)
	v.SetDefault("zap.rate_limit", d.ZAP.RateLimit)
	v.SetDefault("zap.burst", d.ZAP.Burst)
	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.max_jobs", d.Server.MaxJobs)
	v.SetDefault("output_format", d.OutputFormat)
	v.SetDefault("log_format", d.LogFormat)
	v.SetDefault("context_name", d.ContextName)
	v.SetDefault("poll_interval", d.PollInterval)
	v.SetDefault("spider_duration", d.SpiderDuration)
	v.SetDefault("spider_depth", d.SpiderDepth)
	v.SetDefault("passive_duration", d.PassiveDuration)
	v.SetDefault("active_duration", d.ActiveDuration)
	v.SetDefault("threads", d.Threads)
	v.SetDefault("script_dir", "")
	v.SetDefault("templates_path", "")
}
