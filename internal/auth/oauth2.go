package auth

import (
	"context"
	"net/url"

	"github.com/buemura/zapscan/internal/zap"
)

// oauth2Provider installs a client-credentials token exchange script and a
// user whose username and password carry the client id and secret.
type oauth2Provider struct {
	base
}

func newOAuth2Provider(cfg Config, engine Engine, opts Options) Provider {
	return &oauth2Provider{base: base{cfg: cfg, engine: engine, opts: opts}}
}

func (p *oauth2Provider) Setup(ctx context.Context, contextName string) (string, error) {
	return setupInNewContext(ctx, p, p.engine, contextName)
}

func (p *oauth2Provider) SetupContext(ctx context.Context, contextID string) error {
	if err := p.begin(); err != nil {
		return err
	}

	name := scriptName("oauth2")
	content, err := OAuth2Script(p.cfg.TokenURL, p.cfg.Scope, p.cfg.RedirectURI, name+"-token", "OAuth2 client credentials against "+p.cfg.TokenURL)
	if err != nil {
		return authErr(p.cfg.Type, "generate script", err)
	}
	script, err := InstallScript(ctx, p.engine, p.opts.ScriptDir, name, p.opts.ScriptEngine, "OAuth2 client credentials", content)
	if err != nil {
		return authErr(p.cfg.Type, "install script", err)
	}
	p.script = script

	params := withParams(url.Values{"scriptName": {name}}, p.cfg.Params)
	if err := p.setMethod(ctx, contextID, zap.ScriptBasedAuthentication, params); err != nil {
		return err
	}
	if err := p.setIndicators(ctx, contextID); err != nil {
		return err
	}
	if err := p.provisionUser(ctx, contextID, p.cfg.ClientID, credentials(p.cfg.ClientID, p.cfg.ClientSecret)); err != nil {
		return err
	}
	p.markReady(contextID)
	return nil
}
