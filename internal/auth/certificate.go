package auth

import (
	"context"
)

// certificateProvider attaches a client certificate to the engine's
// outgoing connections. It creates nothing that needs releasing.
type certificateProvider struct {
	base
}

func newCertificateProvider(cfg Config, engine Engine, opts Options) Provider {
	return &certificateProvider{base: base{cfg: cfg, engine: engine, opts: opts}}
}

func (p *certificateProvider) Setup(ctx context.Context, contextName string) (string, error) {
	return setupInNewContext(ctx, p, p.engine, contextName)
}

func (p *certificateProvider) SetupContext(ctx context.Context, contextID string) error {
	if err := p.begin(); err != nil {
		return err
	}
	if err := p.engine.SetClientCertificate(ctx, p.cfg.CertificatePath, p.cfg.CertificatePassword); err != nil {
		return authErr(p.cfg.Type, "set client certificate", err)
	}
	p.markReady(contextID)
	return nil
}
