package scanner

import (
	"testing"
	"time"

	"github.com/buemura/zapscan/internal/auth"
	"github.com/buemura/zapscan/pkg/scanerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewScanConfig_Defaults(t *testing.T) {
	cfg, err := NewScanConfig("https://example.com")
	require.NoError(t, err)

	assert.Equal(t, DefaultContextName, cfg.ContextName)
	assert.Equal(t, DefaultSpiderDuration, cfg.SpiderDuration)
	assert.Equal(t, DefaultPassiveDuration, cfg.PassiveDuration)
	assert.Equal(t, DefaultActiveDuration, cfg.ActiveDuration)
	assert.Equal(t, DefaultThreads, cfg.Threads)
	assert.True(t, cfg.ActiveScanEnabled)
	assert.False(t, cfg.RequiresAuthentication())
}

func TestNewScanConfig_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		target string
		opts   []ScanOption
		field  string
	}{
		{"empty target", "", nil, "target_url"},
		{"bare host", "example.com", nil, "target_url"},
		{"ftp target", "ftp://example.com", nil, "target_url"},
		{"empty context", "https://example.com", []ScanOption{WithContextName(" ")}, "context_name"},
		{"zero spider budget", "https://example.com", []ScanOption{WithSpiderDuration(0)}, "spider_duration"},
		{"negative active budget", "https://example.com", []ScanOption{WithActiveDuration(-time.Second)}, "active_duration"},
		{"zero poll interval", "https://example.com", []ScanOption{WithPollInterval(0)}, "poll_interval"},
		{"bad pattern", "https://example.com", []ScanOption{WithExcludePatterns("(")}, "scope"},
		{"incomplete auth", "https://example.com", []ScanOption{WithAuth(auth.Config{Type: auth.JWT})}, "token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScanConfig(tt.target, tt.opts...)
			var cfgErr *scanerr.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestWithAuth_CopiesConfig(t *testing.T) {
	a := auth.Config{Type: auth.JWT, Token: "t1"}
	cfg, err := NewScanConfig("https://example.com", WithAuth(a))
	require.NoError(t, err)

	a.Token = "changed"
	assert.Equal(t, "t1", cfg.Auth.Token)
}

func TestSpiderMinutes_RoundsUp(t *testing.T) {
	cfg := ScanConfig{SpiderDuration: 90 * time.Second}
	assert.Equal(t, 2, cfg.spiderMinutes())
	cfg.SpiderDuration = 10 * time.Minute
	assert.Equal(t, 10, cfg.spiderMinutes())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "passive_drained", StatePassiveDrained.String())
	assert.Equal(t, "state(99)", State(99).String())
	assert.True(t, StateFailed.Terminal())
	assert.False(t, StateCrawled.Terminal())
}
