package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/buemura/zapscan/internal/zap"
)

// base holds the acquisition state every provider shares. A field is set
// only once the matching engine-side or local resource exists.
type base struct {
	cfg    Config
	engine Engine
	opts   Options

	user   userSlot
	script *ScriptResource
	ready  bool
}

func (b *base) Type() Type  { return b.cfg.Type }
func (b *base) Ready() bool { return b.ready }

func (b *base) begin() error {
	if b.ready || b.user.created || b.script != nil {
		return authErr(b.cfg.Type, "setup", errAlreadySetUp)
	}
	return nil
}

func (b *base) setMethod(ctx context.Context, contextID string, method zap.AuthMethod, params url.Values) error {
	if err := b.engine.SetAuthenticationMethod(ctx, contextID, method, params); err != nil {
		return authErr(b.cfg.Type, "set authentication method", err)
	}
	return nil
}

func (b *base) setIndicators(ctx context.Context, contextID string) error {
	if b.cfg.LoggedInIndicator != "" {
		if err := b.engine.SetLoggedInIndicator(ctx, contextID, b.cfg.LoggedInIndicator); err != nil {
			return authErr(b.cfg.Type, "set logged-in indicator", err)
		}
	}
	if b.cfg.LoggedOutIndicator != "" {
		if err := b.engine.SetLoggedOutIndicator(ctx, contextID, b.cfg.LoggedOutIndicator); err != nil {
			return authErr(b.cfg.Type, "set logged-out indicator", err)
		}
	}
	return nil
}

func (b *base) provisionUser(ctx context.Context, contextID, name string, creds url.Values) error {
	return b.user.provision(ctx, b.engine, b.cfg.Type, contextID, name, creds)
}

func (b *base) markReady(contextID string) {
	b.ready = true
	b.opts.Logger.Info("authentication configured", "type", b.cfg.Type, "context_id", contextID)
}

// Cleanup removes the user and the script if they were acquired. Every
// release is attempted; failures are joined into one AuthenticationError.
func (b *base) Cleanup(ctx context.Context, contextID string) error {
	b.ready = false

	var errs []error
	if err := b.user.release(ctx, b.engine); err != nil {
		errs = append(errs, fmt.Errorf("removing user: %w", err))
	}
	if s := b.script; s != nil {
		b.script = nil
		if err := s.Release(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return authErr(b.cfg.Type, "cleanup", errors.Join(errs...))
	}
	b.opts.Logger.Debug("authentication cleaned up", "type", b.cfg.Type, "context_id", contextID)
	return nil
}

// withParams copies extra into params without overwriting existing keys.
func withParams(params url.Values, extra map[string]string) url.Values {
	for k, v := range extra {
		if _, ok := params[k]; !ok {
			params.Set(k, v)
		}
	}
	return params
}
