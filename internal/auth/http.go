package auth

import (
	"context"
	"net/url"
	"strconv"

	"github.com/buemura/zapscan/internal/zap"
	"github.com/buemura/zapscan/pkg/types"
)

// httpProvider handles HTTP_BASIC and HTTP_DIGEST, which the engine treats
// as one method scoped by hostname, realm and port.
type httpProvider struct {
	base
}

func newHTTPProvider(cfg Config, engine Engine, opts Options) Provider {
	return &httpProvider{base: base{cfg: cfg, engine: engine, opts: opts}}
}

func (p *httpProvider) Setup(ctx context.Context, contextName string) (string, error) {
	return setupInNewContext(ctx, p, p.engine, contextName)
}

func (p *httpProvider) SetupContext(ctx context.Context, contextID string) error {
	if err := p.begin(); err != nil {
		return err
	}

	target, err := types.ParseTarget(p.cfg.LoginURL)
	if err != nil {
		return authErr(p.cfg.Type, "parse login url", err)
	}
	params := withParams(url.Values{
		"hostname": {target.Host},
		"realm":    {p.cfg.Realm},
		"port":     {strconv.Itoa(target.EffectivePort())},
	}, p.cfg.Params)
	if err := p.setMethod(ctx, contextID, zap.HTTPAuthentication, params); err != nil {
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
