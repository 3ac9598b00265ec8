package auth

import (
	"context"
	"net/url"

	"github.com/buemura/zapscan/internal/zap"
)

// scriptProvider loads a caller-supplied authentication script. The file
// stays where it is; only the engine registration is removed on cleanup.
type scriptProvider struct {
	base
}

func newScriptProvider(cfg Config, engine Engine, opts Options) Provider {
	return &scriptProvider{base: base{cfg: cfg, engine: engine, opts: opts}}
}

func (p *scriptProvider) Setup(ctx context.Context, contextName string) (string, error) {
	return setupInNewContext(ctx, p, p.engine, contextName)
}

func (p *scriptProvider) SetupContext(ctx context.Context, contextID string) error {
	if err := p.begin(); err != nil {
		return err
	}

	name := scriptName("custom")
	interpreter := firstNonEmpty(p.cfg.ScriptEngine, p.opts.ScriptEngine)
	script, err := LoadScriptFile(ctx, p.engine, p.cfg.ScriptPath, name, interpreter, "User authentication script")
	if err != nil {
		return authErr(p.cfg.Type, "load script", err)
	}
	p.script = script

	params := url.Values{"scriptName": {name}}
	if p.cfg.LoginURL != "" {
		params.Set("loginUrl", p.cfg.LoginURL)
	}
	if err := p.setMethod(ctx, contextID, zap.ScriptBasedAuthentication, withParams(params, p.cfg.Params)); err != nil {
		return err
	}
	if err := p.setIndicators(ctx, contextID); err != nil {
		return err
	}
	if p.cfg.Username != "" {
		if err := p.provisionUser(ctx, contextID, p.cfg.Username, credentials(p.cfg.Username, p.cfg.Password)); err != nil {
			return err
		}
	}
	p.markReady(contextID)
	return nil
}
