package scanner

import (
	"regexp"
	"strings"
	"time"

	"github.com/buemura/zapscan/internal/auth"
	"github.com/buemura/zapscan/internal/policy"
	"github.com/buemura/zapscan/pkg/scanerr"
	"github.com/buemura/zapscan/pkg/types"
)

// Defaults applied by NewScanConfig.
const (
	DefaultContextName     = "default-context"
	DefaultSpiderDepth     = 5
	DefaultSpiderDuration  = 10 * time.Minute
	DefaultPassiveDuration = 5 * time.Minute
	DefaultActiveDuration  = 30 * time.Minute
	DefaultThreads         = 5
	DefaultPollInterval    = 2 * time.Second
	DefaultAlertPageSize   = 500
)

// ScanConfig describes one scan. Build it with NewScanConfig; the
// orchestrator works on its own copy.
type ScanConfig struct {
	TargetURL    string
	ContextName  string
	ResetContext bool

	Auth   *auth.Config
	Policy *policy.ScanPolicy

	// IncludePatterns and ExcludePatterns are regexes added to the context
	// scope in addition to the target itself.
	IncludePatterns []string
	ExcludePatterns []string

	// SpiderMaxDepth of 0 lets the crawl go unlimited.
	SpiderMaxDepth  int
	SpiderDuration  time.Duration
	PassiveDuration time.Duration
	ActiveDuration  time.Duration

	ActiveScanEnabled bool
	// Threads is forwarded to the engine; zero leaves its setting alone.
	Threads int

	PollInterval  time.Duration
	AlertPageSize int
}

// ScanOption adjusts a ScanConfig under construction.
type ScanOption func(*ScanConfig)

func WithContextName(name string) ScanOption {
	return func(c *ScanConfig) { c.ContextName = name }
}

// WithResetContext removes an existing context of the same name first.
func WithResetContext(reset bool) ScanOption {
	return func(c *ScanConfig) { c.ResetContext = reset }
}

func WithAuth(cfg auth.Config) ScanOption {
	return func(c *ScanConfig) { c.Auth = &cfg }
}

func WithPolicy(p *policy.ScanPolicy) ScanOption {
	return func(c *ScanConfig) { c.Policy = p }
}

func WithIncludePatterns(patterns ...string) ScanOption {
	return func(c *ScanConfig) { c.IncludePatterns = append(c.IncludePatterns, patterns...) }
}

func WithExcludePatterns(patterns ...string) ScanOption {
	return func(c *ScanConfig) { c.ExcludePatterns = append(c.ExcludePatterns, patterns...) }
}

func WithSpiderDepth(depth int) ScanOption {
	return func(c *ScanConfig) { c.SpiderMaxDepth = depth }
}

func WithSpiderDuration(d time.Duration) ScanOption {
	return func(c *ScanConfig) { c.SpiderDuration = d }
}

func WithPassiveDuration(d time.Duration) ScanOption {
	return func(c *ScanConfig) { c.PassiveDuration = d }
}

func WithActiveDuration(d time.Duration) ScanOption {
	return func(c *ScanConfig) { c.ActiveDuration = d }
}

func WithActiveScan(enabled bool) ScanOption {
	return func(c *ScanConfig) { c.ActiveScanEnabled = enabled }
}

func WithThreads(n int) ScanOption {
	return func(c *ScanConfig) { c.Threads = n }
}

func WithPollInterval(d time.Duration) ScanOption {
	return func(c *ScanConfig) { c.PollInterval = d }
}

func WithAlertPageSize(n int) ScanOption {
	return func(c *ScanConfig) { c.AlertPageSize = n }
}

// NewScanConfig applies opts over the defaults and validates the result.
func NewScanConfig(targetURL string, opts ...ScanOption) (ScanConfig, error) {
	c := ScanConfig{
		TargetURL:         targetURL,
		ContextName:       DefaultContextName,
		SpiderMaxDepth:    DefaultSpiderDepth,
		SpiderDuration:    DefaultSpiderDuration,
		PassiveDuration:   DefaultPassiveDuration,
		ActiveDuration:    DefaultActiveDuration,
		ActiveScanEnabled: true,
		Threads:           DefaultThreads,
		PollInterval:      DefaultPollInterval,
		AlertPageSize:     DefaultAlertPageSize,
	}
	for _, opt := range opts {
		opt(&c)
	}
	if err := c.Validate(); err != nil {
		return ScanConfig{}, err
	}
	return c, nil
}

// RequiresAuthentication reports whether an auth provider runs.
func (c ScanConfig) RequiresAuthentication() bool { return c.Auth != nil }

// Validate reports the first invalid field as a ConfigurationError.
func (c ScanConfig) Validate() error {
	if strings.TrimSpace(c.TargetURL) == "" {
		return scanerr.Configf("target_url", "required")
	}
	if !strings.Contains(c.TargetURL, "://") {
		return scanerr.Configf("target_url", "%q must be an absolute http(s) URL", c.TargetURL)
	}
	if _, err := types.ParseTarget(c.TargetURL); err != nil {
		return scanerr.Configf("target_url", "%v", err)
	}
	if strings.TrimSpace(c.ContextName) == "" {
		return scanerr.Configf("context_name", "required")
	}

	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"spider_duration", c.SpiderDuration},
		{"passive_duration", c.PassiveDuration},
		{"active_duration", c.ActiveDuration},
		{"poll_interval", c.PollInterval},
	} {
		if d.value <= 0 {
			return scanerr.Configf(d.name, "must be positive, got %s", d.value)
		}
	}
	if c.SpiderMaxDepth < 0 {
		return scanerr.Configf("spider_depth", "must not be negative")
	}
	if c.Threads < 0 {
		return scanerr.Configf("threads", "must not be negative")
	}
	if c.AlertPageSize <= 0 {
		return scanerr.Configf("alert_page_size", "must be positive")
	}

	for _, p := range append(append([]string{}, c.IncludePatterns...), c.ExcludePatterns...) {
		if _, err := regexp.Compile(p); err != nil {
			return scanerr.Configf("scope", "invalid pattern %q: %v", p, err)
		}
	}

	if c.Auth != nil {
		if err := c.Auth.Validate(); err != nil {
			return err
		}
	}
	if c.Policy != nil && strings.TrimSpace(c.Policy.Name) == "" {
		return scanerr.Configf("policy", "policy has no name")
	}
	return nil
}

// spiderMinutes rounds the spider budget up to whole minutes for the
// engine's own limit.
func (c ScanConfig) spiderMinutes() int {
	return int((c.SpiderDuration + time.Minute - 1) / time.Minute)
}
