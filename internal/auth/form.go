package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/buemura/zapscan/internal/zap"
)

// formProvider handles FORM_BASED and JSON_BASED login forms.
type formProvider struct {
	base
}

func newFormProvider(cfg Config, engine Engine, opts Options) Provider {
	return &formProvider{base: base{cfg: cfg, engine: engine, opts: opts}}
}

func (p *formProvider) Setup(ctx context.Context, contextName string) (string, error) {
	return setupInNewContext(ctx, p, p.engine, contextName)
}

func (p *formProvider) SetupContext(ctx context.Context, contextID string) error {
	if err := p.begin(); err != nil {
		return err
	}

	method := zap.FormBasedAuthentication
	if p.cfg.Type == JSONBased {
		method = zap.JSONBasedAuthentication
	}
	params := withParams(url.Values{
		"loginUrl":         {p.cfg.LoginURL},
		"loginRequestData": {LoginRequestData(p.cfg)},
	}, p.cfg.Params)
	if err := p.setMethod(ctx, contextID, method, params); err != nil {
		return err
	}
	if err := p.setIndicators(ctx, contextID); err != nil {
		return err
	}
	if err := p.provisionUser(ctx, contextID, p.cfg.Username, credentials(p.cfg.Username, p.cfg.Password)); err != nil {
		return err
	}
	p.markReady(contextID)
	return nil
}

// LoginRequestData is the request body template the engine submits on
// login. Custom data is used verbatim; otherwise it is built from the
// username and password field names.
func LoginRequestData(cfg Config) string {
	if cfg.LoginRequestData != "" {
		return cfg.LoginRequestData
	}
	if cfg.Type == JSONBased {
		return fmt.Sprintf(`{%s:"{%%username%%}",%s:"{%%password%%}"}`, jsonKey(cfg.UsernameField), jsonKey(cfg.PasswordField))
	}
	return fmt.Sprintf("%s={%%username%%}&%s={%%password%%}", url.QueryEscape(cfg.UsernameField), url.QueryEscape(cfg.PasswordField))
}

func jsonKey(name string) string {
	b, err := json.Marshal(name)
	if err != nil {
		return `""`
	}
	return string(b)
}
