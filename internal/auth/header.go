package auth

import (
	"context"
	"fmt"
	"net/url"

	"github.com/buemura/zapscan/internal/zap"
	"github.com/google/uuid"
)

// headerProvider handles API_KEY and JWT by installing a script that adds
// a fixed header to the authentication request.
type headerProvider struct {
	base
}

func newHeaderProvider(cfg Config, engine Engine, opts Options) Provider {
	return &headerProvider{base: base{cfg: cfg, engine: engine, opts: opts}}
}

func (p *headerProvider) Setup(ctx context.Context, contextName string) (string, error) {
	return setupInNewContext(ctx, p, p.engine, contextName)
}

func (p *headerProvider) header() (name, value, prefix string) {
	if p.cfg.Type == JWT {
		return "Authorization", "Bearer " + p.cfg.Token, "jwt"
	}
	return p.cfg.HeaderName, p.cfg.HeaderValue, "apikey"
}

func (p *headerProvider) SetupContext(ctx context.Context, contextID string) error {
	if err := p.begin(); err != nil {
		return err
	}

	name, value, prefix := p.header()
	scriptName := scriptName(prefix)
	content, err := HeaderScript(name, value, fmt.Sprintf("%s header authentication for context %s", name, contextID))
	if err != nil {
		return authErr(p.cfg.Type, "generate script", err)
	}
	script, err := InstallScript(ctx, p.engine, p.opts.ScriptDir, scriptName, p.opts.ScriptEngine, "Injects the "+name+" header", content)
	if err != nil {
		return authErr(p.cfg.Type, "install script", err)
	}
	p.script = script

	params := url.Values{"scriptName": {scriptName}}
	if target := firstNonEmpty(p.cfg.LoginURL, p.opts.TargetURL); target != "" {
		params.Set("targetUrl", target)
	}
	if err := p.setMethod(ctx, contextID, zap.ScriptBasedAuthentication, withParams(params, p.cfg.Params)); err != nil {
		return err
	}
	if err := p.setIndicators(ctx, contextID); err != nil {
		return err
	}
	p.markReady(contextID)
	return nil
}

func scriptName(prefix string) string {
	return prefix + "-auth-" + uuid.NewString()[:8]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
